package transferstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/norchain/bridge-middleware/pkg/chain"
	"github.com/norchain/bridge-middleware/pkg/transfer"
)

// TransferDao is a data access object that maps directly to the 'transfers'
// table in PostgreSQL. Amounts are stored as varchar(78): big enough for any
// uint256 rendered in base 10, and never touched by database arithmetic.
type TransferDao struct {
	bun.BaseModel  `bun:"table:transfers,alias:t"`
	ID             string     `bun:"id,pk,type:varchar(64)"`
	UserID         string     `bun:"user_id,notnull,type:varchar(64)"`
	SrcChain       string     `bun:"src_chain,notnull,type:varchar(32)"`
	DstChain       string     `bun:"dst_chain,notnull,type:varchar(32)"`
	Asset          string     `bun:"asset,notnull,type:varchar(32)"`
	Amount         string     `bun:"amount,notnull,type:varchar(78)"`
	Fees           string     `bun:"fees,notnull,type:varchar(78)"`
	FromAddress    string     `bun:"from_address,type:varchar(255)"`
	ToAddress      string     `bun:"to_address,notnull,type:varchar(255)"`
	Status         string     `bun:"status,notnull,type:varchar(20)"`
	SrcTxHash      *string    `bun:"src_tx_hash,type:varchar(128)"`
	DstTxHash      *string    `bun:"dst_tx_hash,type:varchar(128)"`
	Proof          *string    `bun:"proof,type:text"`
	IdempotencyKey *string    `bun:"idempotency_key,type:varchar(128)"`
	ErrorMessage   *string    `bun:"error_message,type:text"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt    *time.Time `bun:"completed_at"`
}

func toDao(t *transfer.Transfer) *TransferDao {
	dao := &TransferDao{
		ID:          t.ID,
		UserID:      t.UserID,
		SrcChain:    t.SrcChain.String(),
		DstChain:    t.DstChain.String(),
		Asset:       t.Asset,
		Amount:      t.Amount,
		Fees:        t.Fees,
		FromAddress: t.FromAddress,
		ToAddress:   t.ToAddress,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}

	if t.SrcTxHash != "" {
		dao.SrcTxHash = &t.SrcTxHash
	}
	if t.DstTxHash != "" {
		dao.DstTxHash = &t.DstTxHash
	}
	if t.Proof != "" {
		dao.Proof = &t.Proof
	}
	if t.IdempotencyKey != "" {
		dao.IdempotencyKey = &t.IdempotencyKey
	}
	if t.ErrorMessage != "" {
		dao.ErrorMessage = &t.ErrorMessage
	}

	return dao
}

func fromDao(dao *TransferDao) *transfer.Transfer {
	t := &transfer.Transfer{
		ID:          dao.ID,
		UserID:      dao.UserID,
		SrcChain:    chain.Chain(dao.SrcChain),
		DstChain:    chain.Chain(dao.DstChain),
		Asset:       dao.Asset,
		Amount:      dao.Amount,
		Fees:        dao.Fees,
		FromAddress: dao.FromAddress,
		ToAddress:   dao.ToAddress,
		Status:      transfer.Status(dao.Status),
		CreatedAt:   dao.CreatedAt,
		UpdatedAt:   dao.UpdatedAt,
		CompletedAt: dao.CompletedAt,
	}

	if dao.SrcTxHash != nil {
		t.SrcTxHash = *dao.SrcTxHash
	}
	if dao.DstTxHash != nil {
		t.DstTxHash = *dao.DstTxHash
	}
	if dao.Proof != nil {
		t.Proof = *dao.Proof
	}
	if dao.IdempotencyKey != nil {
		t.IdempotencyKey = *dao.IdempotencyKey
	}
	if dao.ErrorMessage != nil {
		t.ErrorMessage = *dao.ErrorMessage
	}

	return t
}
