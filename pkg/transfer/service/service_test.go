package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/norchain/bridge-middleware/pkg/app/errors"
	"github.com/norchain/bridge-middleware/pkg/chain"
	"github.com/norchain/bridge-middleware/pkg/policy"
	"github.com/norchain/bridge-middleware/pkg/transfer"
	"github.com/norchain/bridge-middleware/pkg/transferstore"
)

type testEnv struct {
	svc     Service
	store   transfer.Store
	gate    *MockGate
	oracle  *MockOracle
	metrics *RecordingMetrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   transferstore.NewMemoryStore(),
		gate:    &MockGate{},
		oracle:  &MockOracle{},
		metrics: &RecordingMetrics{},
	}
	env.svc = NewService(env.store, env.gate, env.oracle, env.metrics, zap.NewNop())
	return env
}

func validCreateRequest() *transfer.CreateRequest {
	return &transfer.CreateRequest{
		SrcChain:       "nor",
		DstChain:       "ethereum",
		Asset:          "NOR",
		Amount:         "1000000000000000000",
		ToAddress:      "0xrecipient",
		IdempotencyKey: "key-1",
	}
}

func TestCreateTransfer_Success(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	require.NotEmpty(t, view.ID)
	require.Equal(t, transfer.StatusPendingPolicy, view.Status)
	require.Equal(t, "1000000000000000000", view.Amount)
	require.Equal(t, "500000000000000", view.Fees)
	require.Equal(t, "1", view.AmountFormatted)
	require.Equal(t, "0.0005", view.FeesFormatted)
	require.Empty(t, view.FromAddress)
	require.False(t, view.CreatedAt.IsZero())
	require.False(t, view.UpdatedAt.IsZero())
	require.Equal(t, 1, env.gate.Calls)
	require.Equal(t, 1, env.metrics.Created)

	stored, err := env.store.FindByID(ctx, "user-1", view.ID)
	require.NoError(t, err)
	require.Equal(t, transfer.StatusPendingPolicy, stored.Status)
}

func TestCreateTransfer_IdempotentReuse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	// Same key with a different amount still returns the original row
	// unchanged, and never re-runs the policy gate.
	retry := validCreateRequest()
	retry.Amount = "999"
	second, err := env.svc.CreateTransfer(ctx, "user-1", retry)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "1000000000000000000", second.Amount)
	require.Equal(t, 1, env.gate.Calls)
	require.Equal(t, 1, env.metrics.Created)
}

func TestCreateTransfer_InvalidRoute(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sameChain := validCreateRequest()
	sameChain.DstChain = sameChain.SrcChain
	_, err := env.svc.CreateTransfer(ctx, "user-1", sameChain)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataError))

	unknown := validCreateRequest()
	unknown.SrcChain = "solana"
	_, err = env.svc.CreateTransfer(ctx, "user-1", unknown)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataError))

	// Validation happens before any I/O.
	require.Zero(t, env.gate.Calls)
}

func TestCreateTransfer_InvalidAmount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for _, amount := range []string{"", "-5", "1.5", "abc", "0x10"} {
		req := validCreateRequest()
		req.Amount = amount
		_, err := env.svc.CreateTransfer(ctx, "user-1", req)
		require.Error(t, err, "amount %q", amount)
		require.True(t, apperrors.Is(err, apperrors.CategoryDataError), "amount %q", amount)
	}
	require.Zero(t, env.gate.Calls)
}

func TestCreateTransfer_PolicyRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.gate.CheckFunc = func(ctx context.Context, userID string, req policy.CheckRequest) error {
		return &policy.Rejection{Reason: "destination address is blocked"}
	}

	_, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryForbidden))
	require.Contains(t, err.Error(), "destination address is blocked")
	require.Equal(t, 1, env.metrics.Rejections)

	// A rejected transfer is never persisted.
	_, total, listErr := env.store.List(ctx, "user-1", 10, 0)
	require.NoError(t, listErr)
	require.Zero(t, total)
}

func TestCreateTransfer_PolicyTimeout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.gate.CheckFunc = func(ctx context.Context, userID string, req policy.CheckRequest) error {
		return context.DeadlineExceeded
	}

	_, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryConnectionTimeout))

	_, total, listErr := env.store.List(ctx, "user-1", 10, 0)
	require.NoError(t, listErr)
	require.Zero(t, total)
}

func TestCreateTransfer_RequestIDDefaultsToIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var gotRequestID string
	env.gate.CheckFunc = func(ctx context.Context, userID string, req policy.CheckRequest) error {
		gotRequestID = req.RequestID
		return nil
	}

	_, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, "key-1", gotRequestID)

	noKey := validCreateRequest()
	noKey.IdempotencyKey = ""
	_, err = env.svc.CreateTransfer(ctx, "user-1", noKey)
	require.NoError(t, err)
	require.NotEmpty(t, gotRequestID)
	require.NotEqual(t, "key-1", gotRequestID)
}

func TestCreateTransfer_ConflictLoserReReadsWinner(t *testing.T) {
	ctx := context.Background()

	winner := &transfer.Transfer{
		ID:             "winner-id",
		UserID:         "user-1",
		SrcChain:       chain.ChainNOR,
		DstChain:       chain.ChainEthereum,
		Amount:         "1000000000000000000",
		Fees:           "500000000000000",
		Status:         transfer.StatusPendingPolicy,
		IdempotencyKey: "key-1",
	}

	lookups := 0
	store := &MockStore{
		FindByIdempotencyKeyFunc: func(ctx context.Context, userID, key string) (*transfer.Transfer, error) {
			lookups++
			if lookups == 1 {
				// First lookup races ahead of the winning insert.
				return nil, transfer.ErrNotFound
			}
			return winner, nil
		},
		InsertFunc: func(ctx context.Context, t *transfer.Transfer) error {
			return transfer.ErrConflict
		},
	}

	svc := NewService(store, &MockGate{}, &MockOracle{}, nil, zap.NewNop())

	view, err := svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, "winner-id", view.ID)
	require.Equal(t, 2, lookups)
}

func TestGetTransfer_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	// Another user's transfer is indistinguishable from a missing one.
	_, err = env.svc.GetTransfer(ctx, "user-2", view.ID)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))

	_, err = env.svc.GetTransfer(ctx, "user-1", "no-such-id")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))
}

func TestGetProof_Gating(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	_, err = env.svc.GetProof(ctx, "user-1", view.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProofUnavailable)
	require.True(t, apperrors.Is(err, apperrors.CategoryLocked))

	proof := "proof_abc123"
	require.NoError(t, env.store.Update(ctx, view.ID, transfer.Patch{Proof: &proof}))

	pv, err := env.svc.GetProof(ctx, "user-1", view.ID)
	require.NoError(t, err)
	require.Equal(t, "proof_abc123", pv.Proof)
	require.Equal(t, view.ID, pv.TransferID)
}

func TestListTransfers_DefaultLimitAndTotal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		req := validCreateRequest()
		req.IdempotencyKey = ""
		_, err := env.svc.CreateTransfer(ctx, "user-1", req)
		require.NoError(t, err)
	}

	result, err := env.svc.ListTransfers(ctx, "user-1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, defaultListLimit, result.Limit)
	require.Len(t, result.Items, 3)

	// Total is independent of the page window.
	small, err := env.svc.ListTransfers(ctx, "user-1", 1, 0)
	require.NoError(t, err)
	require.Len(t, small.Items, 1)
	require.Equal(t, result.Total, small.Total)
	require.Equal(t, 3, small.Total)
}

func TestCheckFinality(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	// No observed source transaction yet.
	status, err := env.svc.CheckFinality(ctx, "user-1", view.ID)
	require.NoError(t, err)
	require.Equal(t, chain.FinalityUnsafe, status.Status)
	require.Zero(t, status.Confidence)
	require.Zero(t, env.oracle.Calls)

	srcTx := "0xsrc"
	require.NoError(t, env.store.Update(ctx, view.ID, transfer.Patch{SrcTxHash: &srcTx}))

	env.oracle.FinalityByTxFunc = func(ctx context.Context, c chain.Chain, txHash string) (chain.FinalityStatus, error) {
		require.Equal(t, chain.ChainNOR, c)
		require.Equal(t, "0xsrc", txHash)
		return chain.FinalityStatus{Status: chain.FinalityFinal, BlockNumber: 100, Confidence: 100}, nil
	}

	status, err = env.svc.CheckFinality(ctx, "user-1", view.ID)
	require.NoError(t, err)
	require.True(t, status.Final())
	require.Equal(t, uint64(100), status.BlockNumber)

	env.oracle.FinalityByTxFunc = func(ctx context.Context, c chain.Chain, txHash string) (chain.FinalityStatus, error) {
		return chain.FinalityStatus{}, context.DeadlineExceeded
	}
	_, err = env.svc.CheckFinality(ctx, "user-1", view.ID)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryConnectionTimeout))
}

func TestCancelTransfer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	cancelled, err := env.svc.CancelTransfer(ctx, "user-1", view.ID)
	require.NoError(t, err)
	require.Equal(t, transfer.StatusCancelled, cancelled.Status)

	// Cancelling twice is an illegal transition.
	_, err = env.svc.CancelTransfer(ctx, "user-1", view.ID)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
}

func TestCancelTransfer_NotAfterProcessing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, env.svc.Advance(ctx, view.ID, transfer.StatusPending, transfer.Evidence{}))
	require.NoError(t, env.svc.Advance(ctx, view.ID, transfer.StatusProcessing, transfer.Evidence{SrcTxHash: "0xsrc"}))

	_, err = env.svc.CancelTransfer(ctx, "user-1", view.ID)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
}

func TestAdvance_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, env.svc.Advance(ctx, view.ID, transfer.StatusPending, transfer.Evidence{}))
	require.NoError(t, env.svc.Advance(ctx, view.ID, transfer.StatusProcessing, transfer.Evidence{SrcTxHash: "0xsrc"}))
	require.NoError(t, env.svc.Advance(ctx, view.ID, transfer.StatusCompleted, transfer.Evidence{
		DstTxHash: "0xdst",
		Proof:     "proof_final",
	}))

	got, err := env.store.GetByID(ctx, view.ID)
	require.NoError(t, err)
	require.Equal(t, transfer.StatusCompleted, got.Status)
	require.Equal(t, "0xsrc", got.SrcTxHash)
	require.Equal(t, "0xdst", got.DstTxHash)
	require.Equal(t, "proof_final", got.Proof)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, []string{"pending", "processing", "completed"}, env.metrics.Advanced)
}

func TestAdvance_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	view, err := env.svc.CreateTransfer(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	// Skipping states is illegal.
	err = env.svc.Advance(ctx, view.ID, transfer.StatusCompleted, transfer.Evidence{})
	require.Error(t, err)
	require.ErrorIs(t, err, transfer.ErrInvalidTransition)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))

	// Unknown statuses are rejected before the store is touched.
	err = env.svc.Advance(ctx, view.ID, transfer.Status("archived"), transfer.Evidence{})
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataError))

	err = env.svc.Advance(ctx, "missing-id", transfer.StatusPending, transfer.Evidence{})
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))
}

func TestAdvance_CompletedAtSetOnce(t *testing.T) {
	ctx := context.Background()

	completedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	stored := &transfer.Transfer{
		ID:          "tx-1",
		UserID:      "user-1",
		Status:      transfer.StatusProcessing,
		CompletedAt: &completedAt,
	}

	var gotPatch transfer.Patch
	store := &MockStore{
		GetByIDFunc: func(ctx context.Context, id string) (*transfer.Transfer, error) {
			return stored, nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch transfer.Patch) error {
			gotPatch = patch
			return nil
		},
	}

	svc := NewService(store, &MockGate{}, &MockOracle{}, nil, zap.NewNop())

	err := svc.Advance(ctx, "tx-1", transfer.StatusFailed, transfer.Evidence{ErrorMessage: "settlement failed"})
	require.NoError(t, err)
	require.Nil(t, gotPatch.CompletedAt)
	require.NotNil(t, gotPatch.ErrorMessage)
	require.Equal(t, "settlement failed", *gotPatch.ErrorMessage)
}

func TestAdvance_FailureWrapsStoreError(t *testing.T) {
	ctx := context.Background()

	storeErr := errors.New("db unavailable")
	store := &MockStore{
		GetByIDFunc: func(ctx context.Context, id string) (*transfer.Transfer, error) {
			return nil, storeErr
		},
	}

	svc := NewService(store, &MockGate{}, &MockOracle{}, nil, zap.NewNop())

	err := svc.Advance(ctx, "tx-1", transfer.StatusPending, transfer.Evidence{})
	require.Error(t, err)
	require.ErrorIs(t, err, storeErr)
}

func TestCancelTransfer_LosesRaceToSettlement(t *testing.T) {
	ctx := context.Background()

	// The read sees Pending, but by the time the write lands the settlement
	// process has moved the row on. The guarded update refuses to write
	// cancelled over the newer status.
	store := &MockStore{
		FindByIDFunc: func(ctx context.Context, userID, id string) (*transfer.Transfer, error) {
			return &transfer.Transfer{ID: id, UserID: userID, Status: transfer.StatusPending}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch transfer.Patch) error {
			require.NotNil(t, patch.ExpectStatus)
			require.Equal(t, transfer.StatusPending, *patch.ExpectStatus)
			return transfer.ErrStaleStatus
		},
	}

	svc := NewService(store, &MockGate{}, &MockOracle{}, nil, zap.NewNop())

	_, err := svc.CancelTransfer(ctx, "user-1", "tx-1")
	require.ErrorIs(t, err, ErrCancelNotAllowed)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
}

func TestAdvance_LosesRaceReturnsConflict(t *testing.T) {
	ctx := context.Background()

	store := &MockStore{
		GetByIDFunc: func(ctx context.Context, id string) (*transfer.Transfer, error) {
			return &transfer.Transfer{ID: id, Status: transfer.StatusPending}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch transfer.Patch) error {
			return transfer.ErrStaleStatus
		},
	}

	svc := NewService(store, &MockGate{}, &MockOracle{}, nil, zap.NewNop())

	err := svc.Advance(ctx, "tx-1", transfer.StatusProcessing, transfer.Evidence{})
	require.ErrorIs(t, err, transfer.ErrStaleStatus)
	require.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
}
