package transfer

import "time"

// CreateRequest is the payload for requesting a new bridge transfer.
type CreateRequest struct {
	SrcChain       string `json:"src_chain" validate:"required"`
	DstChain       string `json:"dst_chain" validate:"required"`
	Asset          string `json:"asset" validate:"required"`
	Amount         string `json:"amount" validate:"required"`
	ToAddress      string `json:"to_address" validate:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// View is the external rendering of a transfer. The formatted amounts are a
// pure display transform of the raw integer strings; they never round-trip
// back into stored state.
type View struct {
	ID              string     `json:"id"`
	SrcChain        string     `json:"src_chain"`
	DstChain        string     `json:"dst_chain"`
	Asset           string     `json:"asset"`
	Amount          string     `json:"amount"`
	AmountFormatted string     `json:"amount_formatted"`
	Fees            string     `json:"fees"`
	FeesFormatted   string     `json:"fees_formatted"`
	FromAddress     string     `json:"from_address,omitempty"`
	ToAddress       string     `json:"to_address"`
	Status          Status     `json:"status"`
	SrcTxHash       string     `json:"src_tx_hash,omitempty"`
	DstTxHash       string     `json:"dst_tx_hash,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewView renders a transfer for the API surface.
func NewView(t *Transfer) *View {
	return &View{
		ID:              t.ID,
		SrcChain:        t.SrcChain.String(),
		DstChain:        t.DstChain.String(),
		Asset:           t.Asset,
		Amount:          t.Amount,
		AmountFormatted: FormatUnits(t.Amount),
		Fees:            t.Fees,
		FeesFormatted:   FormatUnits(t.Fees),
		FromAddress:     t.FromAddress,
		ToAddress:       t.ToAddress,
		Status:          t.Status,
		SrcTxHash:       t.SrcTxHash,
		DstTxHash:       t.DstTxHash,
		ErrorMessage:    t.ErrorMessage,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CompletedAt:     t.CompletedAt,
	}
}

// ProofView is the response for a proof query. It is only produced once the
// proof has actually been issued.
type ProofView struct {
	TransferID string `json:"transfer_id"`
	SrcChain   string `json:"src_chain"`
	SrcTxHash  string `json:"src_tx_hash,omitempty"`
	Proof      string `json:"proof"`
}

// ListResult is one page of transfers plus the total count independent of
// the page window.
type ListResult struct {
	Items  []*View `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Evidence carries the observed facts accompanying a status advance: the
// transaction hashes, the issued proof or the failure reason. Empty fields
// are left untouched on the stored row.
type Evidence struct {
	SrcTxHash    string
	DstTxHash    string
	Proof        string
	ErrorMessage string
}
