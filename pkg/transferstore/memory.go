package transferstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/norchain/bridge-middleware/pkg/transfer"
)

// memoryStore is an in-memory transfer.Store with the same conflict
// semantics as the postgres store. Used by tests and local development.
type memoryStore struct {
	mu   sync.Mutex
	rows map[string]*transfer.Transfer
	// idemIndex enforces (user, idempotency key) uniqueness. Key format is
	// userID + "\x00" + idempotencyKey.
	idemIndex map[string]string
	seq       map[string]uint64
	nextSeq   uint64
}

// NewMemoryStore creates an empty in-memory transfer store.
func NewMemoryStore() *memoryStore {
	return &memoryStore{
		rows:      make(map[string]*transfer.Transfer),
		idemIndex: make(map[string]string),
		seq:       make(map[string]uint64),
	}
}

func idemKey(userID, key string) string {
	return userID + "\x00" + key
}

func (s *memoryStore) Insert(ctx context.Context, t *transfer.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.IdempotencyKey != "" {
		if _, exists := s.idemIndex[idemKey(t.UserID, t.IdempotencyKey)]; exists {
			return transfer.ErrConflict
		}
	}
	if _, exists := s.rows[t.ID]; exists {
		return transfer.ErrConflict
	}

	now := time.Now().UTC()
	cp := *t
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	s.rows[cp.ID] = &cp
	s.nextSeq++
	s.seq[cp.ID] = s.nextSeq
	if cp.IdempotencyKey != "" {
		s.idemIndex[idemKey(cp.UserID, cp.IdempotencyKey)] = cp.ID
	}
	return nil
}

func (s *memoryStore) FindByID(ctx context.Context, userID, id string) (*transfer.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.UserID != userID {
		return nil, transfer.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *memoryStore) GetByID(ctx context.Context, id string) (*transfer.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, transfer.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *memoryStore) FindByIdempotencyKey(ctx context.Context, userID, key string) (*transfer.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.idemIndex[idemKey(userID, key)]
	if !ok {
		return nil, transfer.ErrNotFound
	}
	cp := *s.rows[id]
	return &cp, nil
}

func (s *memoryStore) List(ctx context.Context, userID string, limit, offset int) ([]*transfer.Transfer, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*transfer.Transfer
	for _, row := range s.rows {
		if row.UserID == userID {
			matched = append(matched, row)
		}
	}

	// Newest first; insertion order breaks creation-time ties.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return s.seq[matched[i].ID] > s.seq[matched[j].ID]
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit >= 0 && offset+limit < total {
		end = offset + limit
	}

	page := make([]*transfer.Transfer, 0, end-offset)
	for _, row := range matched[offset:end] {
		cp := *row
		page = append(page, &cp)
	}
	return page, total, nil
}

func (s *memoryStore) ListByStatus(ctx context.Context, status transfer.Status, limit int) ([]*transfer.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*transfer.Transfer
	for _, row := range s.rows {
		if row.Status == status {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return s.seq[matched[i].ID] < s.seq[matched[j].ID]
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*transfer.Transfer, 0, len(matched))
	for _, row := range matched {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) Update(ctx context.Context, id string, patch transfer.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return transfer.ErrNotFound
	}
	if patch.ExpectStatus != nil && row.Status != *patch.ExpectStatus {
		return transfer.ErrStaleStatus
	}

	if patch.Status != nil {
		row.Status = *patch.Status
	}
	if patch.FromAddress != nil {
		row.FromAddress = *patch.FromAddress
	}
	if patch.SrcTxHash != nil {
		row.SrcTxHash = *patch.SrcTxHash
	}
	if patch.DstTxHash != nil {
		row.DstTxHash = *patch.DstTxHash
	}
	if patch.Proof != nil {
		row.Proof = *patch.Proof
	}
	if patch.ErrorMessage != nil {
		row.ErrorMessage = *patch.ErrorMessage
	}
	if patch.CompletedAt != nil {
		completedAt := *patch.CompletedAt
		row.CompletedAt = &completedAt
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}
