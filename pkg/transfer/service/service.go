// Package service implements the bridge transfer controller: validation,
// idempotent creation, policy gating and the guarded lifecycle advances.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/norchain/bridge-middleware/pkg/app/errors"
	"github.com/norchain/bridge-middleware/pkg/chain"
	"github.com/norchain/bridge-middleware/pkg/policy"
	"github.com/norchain/bridge-middleware/pkg/quote"
	"github.com/norchain/bridge-middleware/pkg/transfer"
)

// defaultListLimit is applied when the caller does not request a page size.
const defaultListLimit = 50

var (
	// ErrProofUnavailable signals that a transfer exists but its proof has
	// not been issued yet. Callers must poll; waiting is the only remedy.
	ErrProofUnavailable = errors.New("proof not yet available")

	// ErrCancelNotAllowed signals a cancel request against a transfer that
	// has already entered settlement or a terminal state.
	ErrCancelNotAllowed = errors.New("transfer can no longer be cancelled")
)

// Finality is the narrow oracle interface the controller needs.
type Finality interface {
	FinalityByTx(ctx context.Context, c chain.Chain, txHash string) (chain.FinalityStatus, error)
}

// Metrics is the instrumentation sink for transfer lifecycle events. The
// concrete recorder is injected so the controller stays free of global
// collector state.
type Metrics interface {
	TransferCreated(srcChain, dstChain string)
	TransferAdvanced(status string)
	PolicyRejected()
}

// NopMetrics discards all lifecycle events.
type NopMetrics struct{}

func (NopMetrics) TransferCreated(srcChain, dstChain string) {}
func (NopMetrics) TransferAdvanced(status string)            {}
func (NopMetrics) PolicyRejected()                           {}

// Service defines the transfer controller's business operations.
type Service interface {
	// CreateTransfer validates, dedupes, policy-gates and persists a new
	// transfer. Idempotent retries return the stored row unchanged.
	CreateTransfer(ctx context.Context, userID string, req *transfer.CreateRequest) (*transfer.View, error)

	// GetTransfer returns a transfer scoped to its owner.
	GetTransfer(ctx context.Context, userID, transferID string) (*transfer.View, error)

	// ListTransfers returns one page of the user's transfers, newest first.
	ListTransfers(ctx context.Context, userID string, limit, offset int) (*transfer.ListResult, error)

	// GetProof returns the issued inclusion proof for a completed transfer.
	GetProof(ctx context.Context, userID, transferID string) (*transfer.ProofView, error)

	// CheckFinality grades the transfer's source transaction against the
	// source chain's current head.
	CheckFinality(ctx context.Context, userID, transferID string) (*chain.FinalityStatus, error)

	// CancelTransfer cancels a transfer that has not entered settlement.
	CancelTransfer(ctx context.Context, userID, transferID string) (*transfer.View, error)

	// Advance moves a transfer to the next lifecycle state, guarded by the
	// transition table. It is the single entry point for state advances and
	// is driven by the settlement process, not by API callers.
	Advance(ctx context.Context, transferID string, next transfer.Status, ev transfer.Evidence) error
}

type bridgeService struct {
	store   transfer.Store
	gate    policy.Gate
	oracle  Finality
	metrics Metrics
	logger  *zap.Logger
	newID   func() string
	now     func() time.Time
}

// NewService creates the transfer controller.
func NewService(
	store transfer.Store,
	gate policy.Gate,
	oracle Finality,
	metrics Metrics,
	logger *zap.Logger,
) Service {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &bridgeService{
		store:   store,
		gate:    gate,
		oracle:  oracle,
		metrics: metrics,
		logger:  logger,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// CreateTransfer implements the create path of the state machine:
//
//  1. Idempotency lookup. A hit returns the stored row unchanged; this path
//     never re-runs policy checks or fee computation.
//  2. Route and amount validation, before any I/O.
//  3. Fee computation via the pure fee model.
//  4. Policy gate. A rejection means nothing is persisted.
//  5. Insert with status pending_policy. A lost insert race re-reads and
//     returns the winning row.
func (s *bridgeService) CreateTransfer(
	ctx context.Context,
	userID string,
	req *transfer.CreateRequest,
) (*transfer.View, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.store.FindByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if err == nil {
			return transfer.NewView(existing), nil
		}
		if !errors.Is(err, transfer.ErrNotFound) {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
	}

	src, err := chain.Parse(req.SrcChain)
	if err != nil {
		return nil, apperrors.BadRequestError(quote.ErrInvalidRoute, fmt.Sprintf("unsupported source chain %q", req.SrcChain))
	}
	dst, err := chain.Parse(req.DstChain)
	if err != nil {
		return nil, apperrors.BadRequestError(quote.ErrInvalidRoute, fmt.Sprintf("unsupported destination chain %q", req.DstChain))
	}
	if src == dst {
		return nil, apperrors.BadRequestError(quote.ErrInvalidRoute, "source and destination chains must be different")
	}

	amount, err := quote.ParseAmount(req.Amount)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "amount must be a non-negative integer string")
	}
	fees := quote.Fee(amount)

	// The gate can dedupe on its side using the request id; idempotent
	// retries carry the same one.
	requestID := req.IdempotencyKey
	if requestID == "" {
		requestID = s.newID()
	}

	err = s.gate.Check(ctx, userID, policy.CheckRequest{
		ToAddress: req.ToAddress,
		Amount:    req.Amount,
		Asset:     req.Asset,
		RequestID: requestID,
	})
	if err != nil {
		if rej, ok := policy.AsRejection(err); ok {
			s.metrics.PolicyRejected()
			return nil, apperrors.ForbiddenError(rej, rej.Reason)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.TimeoutError(err, "policy check timed out")
		}
		return nil, fmt.Errorf("policy check failed: %w", err)
	}

	now := s.now().UTC()
	t := &transfer.Transfer{
		ID:             s.newID(),
		UserID:         userID,
		SrcChain:       src,
		DstChain:       dst,
		Asset:          req.Asset,
		Amount:         amount.String(),
		Fees:           fees.String(),
		FromAddress:    "", // filled later by custody
		ToAddress:      req.ToAddress,
		Status:         transfer.StatusPendingPolicy,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Insert(ctx, t); err != nil {
		if errors.Is(err, transfer.ErrConflict) && req.IdempotencyKey != "" {
			// Lost the creation race; the winner's row is the answer.
			winner, findErr := s.store.FindByIdempotencyKey(ctx, userID, req.IdempotencyKey)
			if findErr != nil {
				return nil, fmt.Errorf("conflict re-read failed: %w", findErr)
			}
			return transfer.NewView(winner), nil
		}
		return nil, fmt.Errorf("failed to persist transfer: %w", err)
	}

	s.metrics.TransferCreated(src.String(), dst.String())
	return transfer.NewView(t), nil
}

func (s *bridgeService) GetTransfer(ctx context.Context, userID, transferID string) (*transfer.View, error) {
	t, err := s.findOwned(ctx, userID, transferID)
	if err != nil {
		return nil, err
	}
	return transfer.NewView(t), nil
}

func (s *bridgeService) ListTransfers(ctx context.Context, userID string, limit, offset int) (*transfer.ListResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.store.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	views := make([]*transfer.View, len(items))
	for i, t := range items {
		views[i] = transfer.NewView(t)
	}
	return &transfer.ListResult{
		Items:  views,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s *bridgeService) GetProof(ctx context.Context, userID, transferID string) (*transfer.ProofView, error) {
	t, err := s.findOwned(ctx, userID, transferID)
	if err != nil {
		return nil, err
	}

	if t.Proof == "" {
		return nil, apperrors.LockedError(ErrProofUnavailable, "proof not yet available")
	}

	return &transfer.ProofView{
		TransferID: t.ID,
		SrcChain:   t.SrcChain.String(),
		SrcTxHash:  t.SrcTxHash,
		Proof:      t.Proof,
	}, nil
}

func (s *bridgeService) CheckFinality(ctx context.Context, userID, transferID string) (*chain.FinalityStatus, error) {
	t, err := s.findOwned(ctx, userID, transferID)
	if err != nil {
		return nil, err
	}

	// A transfer without an observed source transaction has no finality yet.
	if t.SrcTxHash == "" {
		return &chain.FinalityStatus{Status: chain.FinalityUnsafe}, nil
	}

	status, err := s.oracle.FinalityByTx(ctx, t.SrcChain, t.SrcTxHash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.TimeoutError(err, "chain query timed out")
		}
		return nil, fmt.Errorf("finality check failed: %w", err)
	}
	return &status, nil
}

func (s *bridgeService) CancelTransfer(ctx context.Context, userID, transferID string) (*transfer.View, error) {
	t, err := s.findOwned(ctx, userID, transferID)
	if err != nil {
		return nil, err
	}

	if err := transfer.ValidateTransition(t.Status, transfer.StatusCancelled); err != nil {
		return nil, apperrors.ConflictError(ErrCancelNotAllowed, fmt.Sprintf("transfer in status %s cannot be cancelled", t.Status))
	}

	// The guard makes the write conditional on the status the transition was
	// validated against; a settlement advance racing this cancel cannot be
	// overwritten.
	cancelled := transfer.StatusCancelled
	err = s.store.Update(ctx, t.ID, transfer.Patch{Status: &cancelled, ExpectStatus: &t.Status})
	if err != nil {
		if errors.Is(err, transfer.ErrStaleStatus) {
			return nil, apperrors.ConflictError(ErrCancelNotAllowed, "transfer status changed concurrently")
		}
		return nil, fmt.Errorf("failed to cancel transfer: %w", err)
	}

	s.metrics.TransferAdvanced(string(cancelled))
	t.Status = cancelled
	return transfer.NewView(t), nil
}

// Advance applies one guarded lifecycle transition. completedAt is set
// exactly once, on the first transition into a completed or failed state.
func (s *bridgeService) Advance(ctx context.Context, transferID string, next transfer.Status, ev transfer.Evidence) error {
	if !next.Valid() {
		return apperrors.BadRequestError(nil, fmt.Sprintf("unknown status %q", next))
	}

	t, err := s.store.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			return apperrors.ResourceNotFoundError(err, "transfer not found")
		}
		return fmt.Errorf("failed to load transfer: %w", err)
	}

	if err := transfer.ValidateTransition(t.Status, next); err != nil {
		return apperrors.ConflictError(err, fmt.Sprintf("cannot advance transfer from %s to %s", t.Status, next))
	}

	patch := transfer.Patch{Status: &next, ExpectStatus: &t.Status}
	if ev.SrcTxHash != "" {
		patch.SrcTxHash = &ev.SrcTxHash
	}
	if ev.DstTxHash != "" {
		patch.DstTxHash = &ev.DstTxHash
	}
	if ev.Proof != "" {
		patch.Proof = &ev.Proof
	}
	if ev.ErrorMessage != "" {
		patch.ErrorMessage = &ev.ErrorMessage
	}
	if (next == transfer.StatusCompleted || next == transfer.StatusFailed) && t.CompletedAt == nil {
		completedAt := s.now().UTC()
		patch.CompletedAt = &completedAt
	}

	if err := s.store.Update(ctx, transferID, patch); err != nil {
		if errors.Is(err, transfer.ErrStaleStatus) {
			return apperrors.ConflictError(err, fmt.Sprintf("transfer left status %s concurrently", t.Status))
		}
		return fmt.Errorf("failed to advance transfer: %w", err)
	}

	s.metrics.TransferAdvanced(string(next))
	s.logger.Info("Transfer advanced",
		zap.String("transfer_id", transferID),
		zap.String("from", string(t.Status)),
		zap.String("to", string(next)))
	return nil
}

// findOwned loads a transfer scoped to its owner. A transfer owned by
// another user is indistinguishable from a nonexistent one.
func (s *bridgeService) findOwned(ctx context.Context, userID, transferID string) (*transfer.Transfer, error) {
	t, err := s.store.FindByID(ctx, userID, transferID)
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "transfer not found")
		}
		return nil, fmt.Errorf("failed to load transfer: %w", err)
	}
	return t, nil
}
