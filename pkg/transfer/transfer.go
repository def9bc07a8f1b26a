// Package transfer defines the bridge transfer domain model, its state
// machine, and the persistence contract the controller depends on.
package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/norchain/bridge-middleware/pkg/chain"
)

// Status is the lifecycle state of a bridge transfer.
type Status string

const (
	StatusPendingPolicy Status = "pending_policy"
	StatusPending       Status = "pending"
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusCancelled     Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingPolicy, StatusPending, StatusProcessing,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a sink state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ErrInvalidTransition is returned when a state advance violates the
// transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the forward-only state machine. Failed is reachable from
// any non-terminal state; Cancelled only before processing has started.
var transitions = map[Status]map[Status]bool{
	StatusPendingPolicy: {StatusPending: true, StatusFailed: true, StatusCancelled: true},
	StatusPending:       {StatusProcessing: true, StatusFailed: true, StatusCancelled: true},
	StatusProcessing:    {StatusCompleted: true, StatusFailed: true},
}

// CanTransition reports whether from -> to is a legal advance.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// ValidateTransition returns ErrInvalidTransition (wrapped with both states)
// for an illegal advance.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Transfer is the unit of work: one requested movement of value from a
// source chain to a destination chain. Rows are created once and only ever
// appended to; no field other than status, the transaction hashes, proof,
// error message and timestamps is written after creation.
type Transfer struct {
	ID             string
	UserID         string
	SrcChain       chain.Chain
	DstChain       chain.Chain
	Asset          string
	Amount         string // native units, base-10 integer string
	Fees           string // native units, fixed at creation
	FromAddress    string // filled later by custody
	ToAddress      string
	Status         Status
	SrcTxHash      string
	DstTxHash      string
	Proof          string // opaque, set once by the proof issuer
	IdempotencyKey string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}
