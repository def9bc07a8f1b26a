package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/norchain/bridge-middleware/pkg/app/api"
	"github.com/norchain/bridge-middleware/pkg/config"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := api.NewServer(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "API server exited with error: %v\n", err)
		os.Exit(1)
	}
}
