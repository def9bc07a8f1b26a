package quote

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/norchain/bridge-middleware/pkg/app/errors"
	apphttp "github.com/norchain/bridge-middleware/pkg/app/http"
	"github.com/norchain/bridge-middleware/pkg/chain"
)

// QuoteRequest is the payload for pricing a prospective transfer.
type QuoteRequest struct {
	SrcChain string `json:"src_chain" validate:"required"`
	DstChain string `json:"dst_chain" validate:"required"`
	Asset    string `json:"asset" validate:"required"`
	Amount   string `json:"amount" validate:"required"`
}

// HTTP wraps the Engine to provide the quote endpoint
type HTTP struct {
	engine   *Engine
	logger   *zap.Logger
	validate *validator.Validate
}

// RegisterRoutes registers the quote endpoint on the given chi router
func RegisterRoutes(r chi.Router, engine *Engine, logger *zap.Logger) {
	h := &HTTP{
		engine:   engine,
		logger:   logger,
		validate: validator.New(),
	}

	r.Post("/quote", apphttp.HandleError(h.quote))
}

func (h *HTTP) quote(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req QuoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "missing required fields")
	}

	q, err := h.engine.Quote(chain.Chain(req.SrcChain), chain.Chain(req.DstChain), req.Asset, req.Amount)
	if err != nil {
		if errors.Is(err, ErrInvalidRoute) || errors.Is(err, ErrInvalidAmount) {
			return apperrors.BadRequestError(err, err.Error())
		}
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(q)
}
