package chain

import (
	"context"
	"errors"
	"fmt"
)

// FinalityLevel grades how irreversible a block is.
type FinalityLevel string

const (
	FinalityUnsafe FinalityLevel = "unsafe"
	FinalitySafe   FinalityLevel = "safe"
	FinalityFinal  FinalityLevel = "final"
)

// FinalityStatus is the confidence-graded answer of the oracle. It is
// computed on demand and never stored.
type FinalityStatus struct {
	Status      FinalityLevel `json:"status"`
	BlockNumber uint64        `json:"block_number"`
	Confidence  int           `json:"confidence"` // 0-100
	Timestamp   uint64        `json:"timestamp"`  // source block time, unix seconds
}

// Final reports whether the referenced block is past the reversion horizon.
func (s FinalityStatus) Final() bool {
	return s.Status == FinalityFinal
}

// FinalityOracle grades block finality by confirmation depth against the
// chain's current head. The head is fetched fresh on every call and never
// cached.
//
// The thresholds encode a short-finality consensus assumption for fast,
// low-validator-count chains: one confirmation is safe, two are final.
type FinalityOracle struct {
	client Client
}

// NewFinalityOracle creates an oracle backed by the given chain client.
func NewFinalityOracle(client Client) *FinalityOracle {
	return &FinalityOracle{client: client}
}

// FinalityByTx resolves a transaction hash to its containing block and grades
// that block. An unknown or unmined transaction yields Unsafe with zero
// confidence rather than an error; absence of finality is a valid answer.
func (o *FinalityOracle) FinalityByTx(ctx context.Context, chain Chain, txHash string) (FinalityStatus, error) {
	tx, err := o.client.TransactionByHash(ctx, chain, txHash)
	if err != nil {
		if errors.Is(err, ErrTxNotFound) {
			return FinalityStatus{Status: FinalityUnsafe, BlockNumber: 0, Confidence: 0}, nil
		}
		return FinalityStatus{}, fmt.Errorf("resolve transaction %s: %w", txHash, err)
	}
	return o.FinalityByBlock(ctx, chain, tx.BlockNumber)
}

// FinalityByBlock grades the given block number against the current head.
func (o *FinalityOracle) FinalityByBlock(ctx context.Context, chain Chain, blockNumber uint64) (FinalityStatus, error) {
	head, err := o.client.CurrentBlockNumber(ctx, chain)
	if err != nil {
		return FinalityStatus{}, fmt.Errorf("current block number: %w", err)
	}

	confirmations := int64(head) - int64(blockNumber)

	status := FinalityStatus{BlockNumber: blockNumber}
	switch {
	case confirmations >= 2:
		status.Status = FinalityFinal
		status.Confidence = 100
	case confirmations == 1:
		status.Status = FinalitySafe
		status.Confidence = 95
	default:
		status.Status = FinalityUnsafe
		status.Confidence = 50
	}

	// The timestamp is best effort: a block that cannot be fetched leaves it
	// at zero without failing the finality answer.
	if block, err := o.client.BlockByNumber(ctx, chain, blockNumber); err == nil && block != nil {
		status.Timestamp = block.Timestamp
	}

	return status, nil
}
