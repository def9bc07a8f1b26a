package quote

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/norchain/bridge-middleware/pkg/chain"
)

// quoteTTL bounds how long a quote is presented as valid. Quotes are
// advisory: nothing downstream enforces that a transfer referenced a live
// quote.
const quoteTTL = 5 * time.Minute

// Quote is an ephemeral price/time answer. It is never persisted.
type Quote struct {
	SrcChain             chain.Chain `json:"src_chain"`
	DstChain             chain.Chain `json:"dst_chain"`
	Asset                string      `json:"asset"`
	Amount               string      `json:"amount"`
	AmountAfterFees      string      `json:"amount_after_fees"`
	Fees                 string      `json:"fees"`
	EstimatedTimeMinutes int         `json:"estimated_time_minutes"`
	Route                string      `json:"route"`
	QuoteID              string      `json:"quote_id"`
	ExpiresAt            time.Time   `json:"expires_at"`
}

// Engine wraps the fee model with route validation and quote identity.
type Engine struct {
	routes *RouteTable
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRouteTable overrides the built-in ETA table.
func WithRouteTable(table *RouteTable) EngineOption {
	return func(e *Engine) {
		e.routes = table
	}
}

// WithClock overrides the expiry clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a quote engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		routes: NewRouteTable(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quote validates the route and amount and prices the transfer. Stateless
// aside from quote identity; safe to call concurrently.
func (e *Engine) Quote(src, dst chain.Chain, asset, amount string) (*Quote, error) {
	if !src.Valid() || !dst.Valid() {
		return nil, fmt.Errorf("%w: unsupported chain", ErrInvalidRoute)
	}
	if src == dst {
		return nil, ErrInvalidRoute
	}

	parsed, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	fees := Fee(parsed)
	afterFees := new(big.Int).Sub(parsed, fees)

	return &Quote{
		SrcChain:             src,
		DstChain:             dst,
		Asset:                asset,
		Amount:               amount,
		AmountAfterFees:      afterFees.String(),
		Fees:                 fees.String(),
		EstimatedTimeMinutes: e.routes.EstimateMinutes(src, dst),
		Route:                fmt.Sprintf("%s -> %s", src, dst),
		QuoteID:              fmt.Sprintf("quote_%s", uuid.NewString()),
		ExpiresAt:            e.now().Add(quoteTTL),
	}, nil
}
