package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/logger"
)

type stubReconciler struct {
	limit   int
	settled int
	err     error
}

func (s *stubReconciler) ReconcilePendingRefunds(ctx context.Context, limit int) (int, error) {
	s.limit = limit
	if s.err != nil {
		return 0, s.err
	}
	return s.settled, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Level: logger.ParseLevel("error")})
}

func TestRefundReconcileJobRunsBatch(t *testing.T) {
	reconciler := &stubReconciler{settled: 3}
	job, err := NewRefundReconcileJob(reconciler, testLogger(), 25)
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 25, reconciler.limit)
	assert.Equal(t, "refund_reconcile", job.Name())
}

func TestRefundReconcileJobDefaultsBatch(t *testing.T) {
	reconciler := &stubReconciler{}
	job, err := NewRefundReconcileJob(reconciler, testLogger(), 0)
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, refundReconcileBatchSize, reconciler.limit)
}

func TestRefundReconcileJobPropagatesError(t *testing.T) {
	reconciler := &stubReconciler{err: errors.New("gateway down")}
	job, err := NewRefundReconcileJob(reconciler, testLogger(), 10)
	require.NoError(t, err)

	assert.Error(t, job.Run(context.Background()))
}

func TestNewRefundReconcileJobValidatesDeps(t *testing.T) {
	_, err := NewRefundReconcileJob(nil, testLogger(), 10)
	assert.Error(t, err)

	_, err = NewRefundReconcileJob(&stubReconciler{}, nil, 10)
	assert.Error(t, err)
}
