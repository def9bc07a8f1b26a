package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/creasty/defaults"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// EVMClientOptions tune the JSON-RPC client shared by all configured chains.
type EVMClientOptions struct {
	RequestTimeout  time.Duration `default:"10s"`
	BreakerMaxFails uint32        `default:"5"`
	BreakerCooldown time.Duration `default:"30s"`
}

// EVMClient implements Client over JSON-RPC endpoints, one per chain. Every
// chain gets its own circuit breaker so a flapping endpoint cannot starve
// requests to the healthy ones.
type EVMClient struct {
	opts     EVMClientOptions
	clients  map[Chain]*ethclient.Client
	breakers map[Chain]*gobreaker.CircuitBreaker[any]
	logger   *zap.Logger
}

// NewEVMClient dials the given RPC endpoints. Endpoints for unsupported chain
// identifiers are rejected up front.
func NewEVMClient(endpoints map[string]string, opts EVMClientOptions, logger *zap.Logger) (*EVMClient, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("apply client defaults: %w", err)
	}

	c := &EVMClient{
		opts:     opts,
		clients:  make(map[Chain]*ethclient.Client, len(endpoints)),
		breakers: make(map[Chain]*gobreaker.CircuitBreaker[any], len(endpoints)),
		logger:   logger,
	}

	for name, url := range endpoints {
		ch, err := Parse(name)
		if err != nil {
			c.Close()
			return nil, err
		}
		client, err := ethclient.Dial(url)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("dial %s rpc: %w", ch, err)
		}
		c.clients[ch] = client
		c.breakers[ch] = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    fmt.Sprintf("chain-rpc-%s", ch),
			Timeout: opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.BreakerMaxFails
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Chain RPC breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return c, nil
}

// Close releases all RPC connections.
func (c *EVMClient) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

func (c *EVMClient) call(ctx context.Context, chain Chain, fn func(ctx context.Context, client *ethclient.Client) (any, error)) (any, error) {
	client, ok := c.clients[chain]
	if !ok {
		return nil, fmt.Errorf("no rpc endpoint configured for chain %q", chain)
	}
	return c.breakers[chain].Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
		return fn(callCtx, client)
	})
}

// CurrentBlockNumber returns the chain head, fetched fresh on every call.
func (c *EVMClient) CurrentBlockNumber(ctx context.Context, chain Chain) (uint64, error) {
	res, err := c.call(ctx, chain, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.BlockNumber(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("block number on %s: %w", chain, err)
	}
	return res.(uint64), nil
}

// BlockByNumber fetches header-level block data.
func (c *EVMClient) BlockByNumber(ctx context.Context, chain Chain, number uint64) (*Block, error) {
	res, err := c.call(ctx, chain, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	})
	if err != nil {
		return nil, fmt.Errorf("header %d on %s: %w", number, chain, err)
	}
	header := res.(*types.Header)
	return &Block{
		Number:    header.Number.Uint64(),
		Timestamp: header.Time,
	}, nil
}

// TransactionByHash resolves a transaction to its containing block. Pending
// and unknown transactions both surface as ErrTxNotFound.
func (c *EVMClient) TransactionByHash(ctx context.Context, chain Chain, hash string) (*TxInfo, error) {
	res, err := c.call(ctx, chain, func(ctx context.Context, client *ethclient.Client) (any, error) {
		_, pending, err := client.TransactionByHash(ctx, common.HexToHash(hash))
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, ErrTxNotFound
		}
		receipt, err := client.TransactionReceipt(ctx, common.HexToHash(hash))
		if err != nil {
			return nil, err
		}
		return receipt.BlockNumber.Uint64(), nil
	})
	if err != nil {
		if errors.Is(err, ethereum.NotFound) || errors.Is(err, ErrTxNotFound) {
			return nil, ErrTxNotFound
		}
		return nil, fmt.Errorf("transaction %s on %s: %w", hash, chain, err)
	}
	return &TxInfo{BlockNumber: res.(uint64)}, nil
}
