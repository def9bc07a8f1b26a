// Package quote implements the bridge fee model and the quote engine.
//
// All amount arithmetic is big-integer basis-point math on the asset's native
// units; floating point never touches money.
package quote

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/norchain/bridge-middleware/pkg/chain"
)

// Bridge fee rate: 5 basis points (0.05%).
const (
	feeBasisPoints = 5
	bpsDenominator = 10000
)

var (
	// ErrInvalidRoute is returned when the source and destination chains are
	// the same, or one of them is not a supported chain.
	ErrInvalidRoute = errors.New("source and destination chains must be different")
	// ErrInvalidAmount is returned when the amount is not a non-negative
	// base-10 integer string.
	ErrInvalidAmount = errors.New("amount must be a non-negative integer string")
)

// ParseAmount validates and parses an amount expressed in native units.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, ErrInvalidAmount
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, ErrInvalidAmount
		}
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return amount, nil
}

// Fee computes floor(amount * 5 / 10000) in native units.
func Fee(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, big.NewInt(feeBasisPoints))
	return fee.Div(fee, big.NewInt(bpsDenominator))
}

// defaultETAMinutes is the static chain-pair settlement time table, in
// minutes. Unknown pairs fall back to defaultETA.
var defaultETAMinutes = map[string]int{
	"nor-bsc":      5,
	"bsc-nor":      5,
	"nor-ethereum": 15,
	"ethereum-nor": 15,
	"nor-tron":     10,
	"tron-nor":     10,
}

const defaultETA = 10

// RouteTable answers deterministic, side-effect-free settlement time
// estimates per chain pair.
type RouteTable struct {
	etas map[string]int
}

// NewRouteTable returns the built-in chain-pair table.
func NewRouteTable() *RouteTable {
	etas := make(map[string]int, len(defaultETAMinutes))
	for k, v := range defaultETAMinutes {
		etas[k] = v
	}
	return &RouteTable{etas: etas}
}

// LoadRouteTable reads pair overrides from a YAML file of the form
//
//	routes:
//	  nor-bsc: 5
//	  nor-ethereum: 20
//
// and merges them over the built-in defaults.
func LoadRouteTable(path string) (*RouteTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}

	var file struct {
		Routes map[string]int `yaml:"routes"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	table := NewRouteTable()
	for pair, minutes := range file.Routes {
		table.etas[pair] = minutes
	}
	return table, nil
}

// EstimateMinutes looks up the settlement estimate for a chain pair.
func (t *RouteTable) EstimateMinutes(src, dst chain.Chain) int {
	if minutes, ok := t.etas[fmt.Sprintf("%s-%s", src, dst)]; ok {
		return minutes
	}
	return defaultETA
}
