package chain

import "context"

// MockClient is a mock implementation of Client
type MockClient struct {
	CurrentBlockNumberFunc func(ctx context.Context, chain Chain) (uint64, error)
	BlockByNumberFunc      func(ctx context.Context, chain Chain, number uint64) (*Block, error)
	TransactionByHashFunc  func(ctx context.Context, chain Chain, hash string) (*TxInfo, error)

	HeadCalls int
}

func (m *MockClient) CurrentBlockNumber(ctx context.Context, chain Chain) (uint64, error) {
	m.HeadCalls++
	if m.CurrentBlockNumberFunc != nil {
		return m.CurrentBlockNumberFunc(ctx, chain)
	}
	return 0, nil
}

func (m *MockClient) BlockByNumber(ctx context.Context, chain Chain, number uint64) (*Block, error) {
	if m.BlockByNumberFunc != nil {
		return m.BlockByNumberFunc(ctx, chain, number)
	}
	return nil, nil
}

func (m *MockClient) TransactionByHash(ctx context.Context, chain Chain, hash string) (*TxInfo, error) {
	if m.TransactionByHashFunc != nil {
		return m.TransactionByHashFunc(ctx, chain, hash)
	}
	return nil, ErrTxNotFound
}
