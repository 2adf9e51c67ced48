package cron

import (
	"context"
	"fmt"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/logger"
)

const refundReconcileBatchSize = 50

// refundReconciler is the slice of the order service this job needs.
type refundReconciler interface {
	ReconcilePendingRefunds(ctx context.Context, limit int) (int, error)
}

// RefundReconcileJob polls the payment gateway for refunds that were still
// pending when their order was cancelled and settles the ones that have
// reached a terminal state.
type RefundReconcileJob struct {
	orders refundReconciler
	logg   *logger.Logger
	batch  int
}

// NewRefundReconcileJob builds the job.
func NewRefundReconcileJob(orders refundReconciler, logg *logger.Logger, batch int) (*RefundReconcileJob, error) {
	if orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if batch <= 0 {
		batch = refundReconcileBatchSize
	}
	return &RefundReconcileJob{orders: orders, logg: logg, batch: batch}, nil
}

// Name identifies the job in logs and metrics.
func (j *RefundReconcileJob) Name() string {
	return "refund_reconcile"
}

// Run settles one batch of pending refunds.
func (j *RefundReconcileJob) Run(ctx context.Context) error {
	settled, err := j.orders.ReconcilePendingRefunds(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("reconcile pending refunds: %w", err)
	}
	if settled > 0 {
		logCtx := j.logg.WithField(ctx, "settled_count", settled)
		j.logg.Info(logCtx, "pending refunds settled")
	}
	return nil
}
