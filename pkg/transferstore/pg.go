// Package transferstore provides the PostgreSQL transfer store and an
// in-memory equivalent for tests and local development.
package transferstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/norchain/bridge-middleware/pkg/transfer"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the transfer store.
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Insert(ctx context.Context, t *transfer.Transfer) error {
	dao := toDao(t)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return transfer.ErrConflict
		}
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure
// (SQLSTATE 23505), which is how the (user_id, idempotency_key) index
// signals a lost creation race.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func (s *pgStore) FindByID(ctx context.Context, userID, id string) (*transfer.Transfer, error) {
	dao := new(TransferDao)

	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transfer.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}

	return fromDao(dao), nil
}

func (s *pgStore) GetByID(ctx context.Context, id string) (*transfer.Transfer, error) {
	dao := new(TransferDao)

	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transfer.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}

	return fromDao(dao), nil
}

func (s *pgStore) FindByIdempotencyKey(ctx context.Context, userID, key string) (*transfer.Transfer, error) {
	dao := new(TransferDao)

	err := s.db.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		Where("idempotency_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transfer.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transfer by idempotency key: %w", err)
	}

	return fromDao(dao), nil
}

func (s *pgStore) List(ctx context.Context, userID string, limit, offset int) ([]*transfer.Transfer, int, error) {
	var daos []TransferDao

	total, err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}

	transfers := make([]*transfer.Transfer, len(daos))
	for i := range daos {
		transfers[i] = fromDao(&daos[i])
	}
	return transfers, total, nil
}

func (s *pgStore) ListByStatus(ctx context.Context, status transfer.Status, limit int) ([]*transfer.Transfer, error) {
	var daos []TransferDao

	err := s.db.NewSelect().
		Model(&daos).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers by status: %w", err)
	}

	transfers := make([]*transfer.Transfer, len(daos))
	for i := range daos {
		transfers[i] = fromDao(&daos[i])
	}
	return transfers, nil
}

func (s *pgStore) Update(ctx context.Context, id string, patch transfer.Patch) error {
	q := s.db.NewUpdate().
		Model((*TransferDao)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id)

	if patch.ExpectStatus != nil {
		q = q.Where("status = ?", string(*patch.ExpectStatus))
	}

	if patch.Status != nil {
		q = q.Set("status = ?", string(*patch.Status))
	}
	if patch.FromAddress != nil {
		q = q.Set("from_address = ?", *patch.FromAddress)
	}
	if patch.SrcTxHash != nil {
		q = q.Set("src_tx_hash = ?", *patch.SrcTxHash)
	}
	if patch.DstTxHash != nil {
		q = q.Set("dst_tx_hash = ?", *patch.DstTxHash)
	}
	if patch.Proof != nil {
		q = q.Set("proof = ?", *patch.Proof)
	}
	if patch.ErrorMessage != nil {
		q = q.Set("error_message = ?", *patch.ErrorMessage)
	}
	if patch.CompletedAt != nil {
		q = q.Set("completed_at = ?", *patch.CompletedAt)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		if patch.ExpectStatus != nil {
			// Distinguish a lost lifecycle race from a missing row.
			exists, err := s.db.NewSelect().
				Model((*TransferDao)(nil)).
				Where("id = ?", id).
				Exists(ctx)
			if err != nil {
				return fmt.Errorf("failed to update transfer: %w", err)
			}
			if exists {
				return transfer.ErrStaleStatus
			}
		}
		return transfer.ErrNotFound
	}
	return nil
}
