package service

import (
	"context"

	"github.com/norchain/bridge-middleware/pkg/chain"
	"github.com/norchain/bridge-middleware/pkg/policy"
	"github.com/norchain/bridge-middleware/pkg/transfer"
)

// MockGate implements policy.Gate with configurable behavior and a call
// counter, so tests can assert the gate is not re-run on idempotent retries.
type MockGate struct {
	CheckFunc func(ctx context.Context, userID string, req policy.CheckRequest) error
	Calls     int
}

func (m *MockGate) Check(ctx context.Context, userID string, req policy.CheckRequest) error {
	m.Calls++
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, userID, req)
	}
	return nil
}

// MockOracle implements the Finality interface.
type MockOracle struct {
	FinalityByTxFunc func(ctx context.Context, c chain.Chain, txHash string) (chain.FinalityStatus, error)
	Calls            int
}

func (m *MockOracle) FinalityByTx(ctx context.Context, c chain.Chain, txHash string) (chain.FinalityStatus, error) {
	m.Calls++
	if m.FinalityByTxFunc != nil {
		return m.FinalityByTxFunc(ctx, c, txHash)
	}
	return chain.FinalityStatus{}, nil
}

// MockStore implements transfer.Store with function fields. Only the
// conflict-path tests need it; everything else runs against the in-memory
// store.
type MockStore struct {
	InsertFunc               func(ctx context.Context, t *transfer.Transfer) error
	FindByIDFunc             func(ctx context.Context, userID, id string) (*transfer.Transfer, error)
	GetByIDFunc              func(ctx context.Context, id string) (*transfer.Transfer, error)
	FindByIdempotencyKeyFunc func(ctx context.Context, userID, key string) (*transfer.Transfer, error)
	ListFunc                 func(ctx context.Context, userID string, limit, offset int) ([]*transfer.Transfer, int, error)
	ListByStatusFunc         func(ctx context.Context, status transfer.Status, limit int) ([]*transfer.Transfer, error)
	UpdateFunc               func(ctx context.Context, id string, patch transfer.Patch) error
}

func (m *MockStore) Insert(ctx context.Context, t *transfer.Transfer) error {
	return m.InsertFunc(ctx, t)
}

func (m *MockStore) FindByID(ctx context.Context, userID, id string) (*transfer.Transfer, error) {
	return m.FindByIDFunc(ctx, userID, id)
}

func (m *MockStore) GetByID(ctx context.Context, id string) (*transfer.Transfer, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockStore) FindByIdempotencyKey(ctx context.Context, userID, key string) (*transfer.Transfer, error) {
	return m.FindByIdempotencyKeyFunc(ctx, userID, key)
}

func (m *MockStore) List(ctx context.Context, userID string, limit, offset int) ([]*transfer.Transfer, int, error) {
	return m.ListFunc(ctx, userID, limit, offset)
}

func (m *MockStore) ListByStatus(ctx context.Context, status transfer.Status, limit int) ([]*transfer.Transfer, error) {
	return m.ListByStatusFunc(ctx, status, limit)
}

func (m *MockStore) Update(ctx context.Context, id string, patch transfer.Patch) error {
	return m.UpdateFunc(ctx, id, patch)
}

// RecordingMetrics captures lifecycle events for assertions.
type RecordingMetrics struct {
	Created    int
	Advanced   []string
	Rejections int
}

func (m *RecordingMetrics) TransferCreated(srcChain, dstChain string) {
	m.Created++
}

func (m *RecordingMetrics) TransferAdvanced(status string) {
	m.Advanced = append(m.Advanced, status)
}

func (m *RecordingMetrics) PolicyRejected() {
	m.Rejections++
}
