package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/norchain/bridge-middleware/pkg/app/errors"
	apphttp "github.com/norchain/bridge-middleware/pkg/app/http"
	"github.com/norchain/bridge-middleware/pkg/auth"
	"github.com/norchain/bridge-middleware/pkg/transfer"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// RegisterRoutes registers transfer endpoints on the given chi router. The
// router is expected to sit behind the auth middleware; every handler reads
// the authenticated user id from the request context.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}

	r.Post("/transfers", apphttp.HandleError(h.createTransfer))
	r.Get("/transfers", apphttp.HandleError(h.listTransfers))
	r.Get("/transfers/{transferID}", apphttp.HandleError(h.getTransfer))
	r.Get("/transfers/{transferID}/proof", apphttp.HandleError(h.getProof))
	r.Get("/transfers/{transferID}/finality", apphttp.HandleError(h.checkFinality))
	r.Post("/transfers/{transferID}/cancel", apphttp.HandleError(h.cancelTransfer))
}

func (h *HTTP) createTransfer(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req transfer.CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "missing required fields")
	}

	view, err := h.service.CreateTransfer(r.Context(), userID, &req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, view)
	return nil
}

func (h *HTTP) listTransfers(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return apperrors.BadRequestError(err, "invalid limit")
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return apperrors.BadRequestError(err, "invalid offset")
	}

	result, err := h.service.ListTransfers(r.Context(), userID, limit, offset)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) getTransfer(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	view, err := h.service.GetTransfer(r.Context(), userID, chi.URLParam(r, "transferID"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *HTTP) getProof(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	view, err := h.service.GetProof(r.Context(), userID, chi.URLParam(r, "transferID"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *HTTP) checkFinality(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	status, err := h.service.CheckFinality(r.Context(), userID, chi.URLParam(r, "transferID"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, status)
	return nil
}

func (h *HTTP) cancelTransfer(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	view, err := h.service.CancelTransfer(r.Context(), userID, chi.URLParam(r, "transferID"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, view)
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
