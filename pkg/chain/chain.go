// Package chain defines the supported bridge chains, the narrow RPC client
// contract the core needs from them, and the finality oracle built on top of it.
package chain

import (
	"context"
	"errors"
	"fmt"
)

// Chain identifies a supported bridge chain.
type Chain string

const (
	ChainNOR      Chain = "nor"
	ChainBSC      Chain = "bsc"
	ChainEthereum Chain = "ethereum"
	ChainTron     Chain = "tron"
)

// Valid reports whether c is a supported chain identifier.
func (c Chain) Valid() bool {
	switch c {
	case ChainNOR, ChainBSC, ChainEthereum, ChainTron:
		return true
	}
	return false
}

func (c Chain) String() string {
	return string(c)
}

// Parse converts a raw chain identifier into a Chain.
func Parse(s string) (Chain, error) {
	c := Chain(s)
	if !c.Valid() {
		return "", fmt.Errorf("unsupported chain %q", s)
	}
	return c, nil
}

// ErrTxNotFound is returned by Client.TransactionByHash when the transaction
// is unknown to the chain or not yet mined. The finality oracle treats this
// as "not final", not as a failure.
var ErrTxNotFound = errors.New("transaction not found")

// Block carries the subset of block data the oracle needs.
type Block struct {
	Number    uint64
	Timestamp uint64 // unix seconds, source block time
}

// TxInfo carries the subset of transaction data the oracle needs.
type TxInfo struct {
	BlockNumber uint64
}

// Client is the blockchain RPC collaborator. All methods are blocking I/O;
// callers pass a request-scoped context and treat deadline errors as
// transient.
type Client interface {
	CurrentBlockNumber(ctx context.Context, chain Chain) (uint64, error)
	BlockByNumber(ctx context.Context, chain Chain, number uint64) (*Block, error)
	TransactionByHash(ctx context.Context, chain Chain, hash string) (*TxInfo, error)
}
