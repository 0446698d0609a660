package workers

import (
	"context"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/internal/repository"
	syncservice "github.com/ibtikar-org-tr/membership-app/internal/service/sync"

	"go.uber.org/zap"
)

// Pending reset requests older than this are expired by the cleanup worker.
const resetRequestMaxAge = time.Hour

// Workers owns the background jobs: the registration reconciliation run and
// the password-reset cleanup. Each job runs synchronously inside its own
// ticker loop, so a run can never overlap itself.
type Workers struct {
	sync    *syncservice.Service
	resets  *repository.ResetRepository
	audit   *repository.AuditRepository
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	syncIvl time.Duration
	cleanup time.Duration
	trigger chan struct{}
}

func New(
	syncSvc *syncservice.Service,
	resets *repository.ResetRepository,
	audit *repository.AuditRepository,
	syncInterval, cleanupInterval time.Duration,
	logger *zap.Logger,
) *Workers {
	ctx, cancel := context.WithCancel(context.Background())
	return &Workers{
		sync:    syncSvc,
		resets:  resets,
		audit:   audit,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		syncIvl: syncInterval,
		cleanup: cleanupInterval,
		trigger: make(chan struct{}, 1),
	}
}

// Start launches all background workers.
func (w *Workers) Start() {
	w.logger.Info("starting background workers",
		zap.Duration("sync_interval", w.syncIvl),
		zap.Duration("cleanup_interval", w.cleanup),
	)
	go w.runSyncWorker(w.syncIvl)
	go w.runCleanupWorker(w.cleanup)
}

// Stop stops all background workers.
func (w *Workers) Stop() {
	w.logger.Info("stopping background workers")
	w.cancel()
}

// TriggerSync requests one reconciliation pass outside the schedule, for the
// admin endpoint. The request is handed to the sync worker's loop so a
// triggered run can never overlap a scheduled one; the roster append is
// read-modify-write and depends on a single writer. Triggers arriving while
// one is already pending are coalesced.
func (w *Workers) TriggerSync() {
	select {
	case w.trigger <- struct{}{}:
	default:
		w.logger.Info("sync trigger already pending, coalesced")
	}
}

func (w *Workers) runSyncWorker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on startup
	w.runReconciliation()

	for {
		select {
		case <-ticker.C:
			w.runReconciliation()

		case <-w.trigger:
			w.runReconciliation()

		case <-w.ctx.Done():
			w.logger.Info("sync worker stopped")
			return
		}
	}
}

func (w *Workers) runReconciliation() {
	summary, err := w.sync.Run(w.ctx)
	if err != nil {
		w.logger.Error("reconciliation run failed", zap.Error(err))
		return
	}
	w.logger.Info("reconciliation summary",
		zap.Int("processed", summary.Processed),
		zap.Int("new", summary.New),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
}

func (w *Workers) runCleanupWorker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.cleanupExpiredResets()

		case <-w.ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		}
	}
}

func (w *Workers) cleanupExpiredResets() {
	expired, err := w.resets.ExpirePending(w.ctx, resetRequestMaxAge)
	if err != nil {
		w.logger.Error("failed to expire password reset requests", zap.Error(err))
		if err := w.audit.Append(w.ctx, "system", domain.ActionCleanupExpiredResets, domain.StatusFailed); err != nil {
			w.logger.Warn("failed to append audit log", zap.Error(err))
		}
		return
	}

	if expired > 0 {
		w.logger.Info("expired stale password reset requests", zap.Int64("count", expired))
	}
	if err := w.audit.Append(w.ctx, "system", domain.ActionCleanupExpiredResets, domain.StatusSuccess); err != nil {
		w.logger.Warn("failed to append audit log", zap.Error(err))
	}
}
