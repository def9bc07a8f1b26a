// Package policy defines the compliance gate contract consumed by the
// transfer controller, plus a config-driven default gate.
package policy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
)

// CheckRequest describes a proposed value movement.
type CheckRequest struct {
	ToAddress string
	Amount    string
	Asset     string
	// RequestID lets the gate dedupe on its side. The controller defaults it
	// to the idempotency key when present.
	RequestID string
}

// Rejection is a permanent policy denial. It must never be retried silently;
// its reason is reported to the caller verbatim.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("policy rejected: %s", r.Reason)
}

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// Gate decides whether a proposed movement is allowed. A nil return means
// allowed; a *Rejection means permanently denied; any other error
// (including deadline errors) is transient and safe to retry.
type Gate interface {
	Check(ctx context.Context, userID string, req CheckRequest) error
}

// Config drives the built-in rule gate.
type Config struct {
	// MaxAmount is the per-transfer cap in native units; empty means no cap.
	MaxAmount string `mapstructure:"max_amount"`
	// DeniedAddresses are destination addresses that are always rejected.
	DeniedAddresses []string `mapstructure:"denied_addresses"`
}

// RuleGate is the default in-process gate: a per-transfer amount cap and a
// destination denylist. It stands in for a real compliance service behind
// the same interface.
type RuleGate struct {
	maxAmount *big.Int
	denied    map[string]struct{}
	logger    *zap.Logger
}

// NewRuleGate builds a gate from config.
func NewRuleGate(cfg Config, logger *zap.Logger) (*RuleGate, error) {
	g := &RuleGate{
		denied: make(map[string]struct{}, len(cfg.DeniedAddresses)),
		logger: logger,
	}
	if cfg.MaxAmount != "" {
		max, ok := new(big.Int).SetString(cfg.MaxAmount, 10)
		if !ok || max.Sign() < 0 {
			return nil, fmt.Errorf("invalid policy max_amount %q", cfg.MaxAmount)
		}
		g.maxAmount = max
	}
	for _, addr := range cfg.DeniedAddresses {
		g.denied[strings.ToLower(addr)] = struct{}{}
	}
	return g, nil
}

// Check applies the denylist and amount cap.
func (g *RuleGate) Check(ctx context.Context, userID string, req CheckRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, blocked := g.denied[strings.ToLower(req.ToAddress)]; blocked {
		g.logger.Warn("Policy denied destination address",
			zap.String("user_id", userID),
			zap.String("request_id", req.RequestID))
		return &Rejection{Reason: "destination address is blocked"}
	}

	if g.maxAmount != nil {
		amount, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok {
			return &Rejection{Reason: "amount is not a valid integer"}
		}
		if amount.Cmp(g.maxAmount) > 0 {
			g.logger.Warn("Policy denied amount over cap",
				zap.String("user_id", userID),
				zap.String("amount", req.Amount),
				zap.String("request_id", req.RequestID))
			return &Rejection{Reason: "amount exceeds the per-transfer limit"}
		}
	}

	return nil
}
