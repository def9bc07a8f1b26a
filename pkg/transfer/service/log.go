package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/norchain/bridge-middleware/pkg/chain"
	"github.com/norchain/bridge-middleware/pkg/transfer"
)

const serviceName = "TransferService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the transfer Service.
// It logs method entry/exit, duration and errors.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) CreateTransfer(
	ctx context.Context,
	userID string,
	req *transfer.CreateRequest,
) (view *transfer.View, err error) {
	start := time.Now()

	ls.logger.Info("CreateTransfer started",
		zap.String("service", serviceName),
		zap.String("method", "CreateTransfer"),
		zap.String("user_id", userID),
		zap.String("src_chain", req.SrcChain),
		zap.String("dst_chain", req.DstChain),
		zap.String("asset", req.Asset),
		zap.Bool("has_idempotency_key", req.IdempotencyKey != ""),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("CreateTransfer failed",
				zap.String("service", serviceName),
				zap.String("method", "CreateTransfer"),
				zap.String("user_id", userID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("CreateTransfer completed",
				zap.String("service", serviceName),
				zap.String("method", "CreateTransfer"),
				zap.String("user_id", userID),
				zap.String("transfer_id", view.ID),
				zap.String("status", string(view.Status)),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.CreateTransfer(ctx, userID, req)
}

func (ls *logService) GetTransfer(ctx context.Context, userID, transferID string) (view *transfer.View, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("GetTransfer failed",
				zap.String("service", serviceName),
				zap.String("method", "GetTransfer"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("GetTransfer completed",
				zap.String("service", serviceName),
				zap.String("method", "GetTransfer"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.String("status", string(view.Status)),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.GetTransfer(ctx, userID, transferID)
}

func (ls *logService) ListTransfers(ctx context.Context, userID string, limit, offset int) (result *transfer.ListResult, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("ListTransfers failed",
				zap.String("service", serviceName),
				zap.String("method", "ListTransfers"),
				zap.String("user_id", userID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("ListTransfers completed",
				zap.String("service", serviceName),
				zap.String("method", "ListTransfers"),
				zap.String("user_id", userID),
				zap.Int("count", len(result.Items)),
				zap.Int("total", result.Total),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.ListTransfers(ctx, userID, limit, offset)
}

func (ls *logService) GetProof(ctx context.Context, userID, transferID string) (view *transfer.ProofView, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Warn("GetProof failed",
				zap.String("service", serviceName),
				zap.String("method", "GetProof"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("GetProof completed",
				zap.String("service", serviceName),
				zap.String("method", "GetProof"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.GetProof(ctx, userID, transferID)
}

func (ls *logService) CheckFinality(ctx context.Context, userID, transferID string) (status *chain.FinalityStatus, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("CheckFinality failed",
				zap.String("service", serviceName),
				zap.String("method", "CheckFinality"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("CheckFinality completed",
				zap.String("service", serviceName),
				zap.String("method", "CheckFinality"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.String("finality", string(status.Status)),
				zap.Int("confidence", status.Confidence),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.CheckFinality(ctx, userID, transferID)
}

func (ls *logService) CancelTransfer(ctx context.Context, userID, transferID string) (view *transfer.View, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Warn("CancelTransfer failed",
				zap.String("service", serviceName),
				zap.String("method", "CancelTransfer"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("CancelTransfer completed",
				zap.String("service", serviceName),
				zap.String("method", "CancelTransfer"),
				zap.String("user_id", userID),
				zap.String("transfer_id", transferID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.CancelTransfer(ctx, userID, transferID)
}

func (ls *logService) Advance(ctx context.Context, transferID string, next transfer.Status, ev transfer.Evidence) (err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Advance failed",
				zap.String("service", serviceName),
				zap.String("method", "Advance"),
				zap.String("transfer_id", transferID),
				zap.String("next_status", string(next)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Advance completed",
				zap.String("service", serviceName),
				zap.String("method", "Advance"),
				zap.String("transfer_id", transferID),
				zap.String("next_status", string(next)),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Advance(ctx, transferID, next, ev)
}
