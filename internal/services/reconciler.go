package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/internal/infrastructure/journal"
	"github.com/taskgate/backend/repository"
)

// ReconcilerConfig controls how frequently the journal is drained.
type ReconcilerConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Reconciler replays journaled reference repairs on a schedule. Repairs
// are idempotent single-document writes, so replaying one that already
// succeeded is harmless.
type Reconciler struct {
	journal *journal.Journal
	users   repository.UserRepository
	tasks   repository.TaskRepository
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ReconcilerConfig
}

func NewReconciler(
	jrnl *journal.Journal,
	users repository.UserRepository,
	tasks repository.TaskRepository,
	logger *zap.Logger,
	cfg ReconcilerConfig,
) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reconciler{
		journal: jrnl,
		users:   users,
		tasks:   tasks,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := r.Drain(ctx); err != nil {
			r.logger.Error("journal drain failed", zap.Error(err))
		}
	})

	return r
}

// Start launches the cron scheduler.
func (r *Reconciler) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("reconciler started")
}

// Stop gracefully stops the scheduler.
func (r *Reconciler) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("reconciler stopped")
}

// Drain processes pending journal entries synchronously.
func (r *Reconciler) Drain(ctx context.Context) error {
	if r == nil || r.journal == nil {
		return nil
	}

	entries, err := r.journal.GetBatch(r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := r.applyEntry(ctx, entry); err != nil {
			r.logger.Error("failed to apply journal entry",
				zap.String("entry_id", entry.ID),
				zap.String("op", entry.Op),
				zap.Error(err))

			entry.Retries++
			if entry.Retries >= r.cfg.MaxRetries {
				r.logger.Warn("dropping journal entry (max retries reached)", zap.String("entry_id", entry.ID))
				_ = r.journal.Remove(entry)
				continue
			}

			if err := r.journal.Remove(entry); err != nil {
				r.logger.Warn("failed to remove journal entry", zap.Error(err))
			}
			if err := r.journal.Requeue(entry); err != nil {
				r.logger.Error("failed to requeue journal entry", zap.Error(err))
			}
			continue
		}

		if err := r.journal.Remove(entry); err != nil {
			r.logger.Warn("failed to purge applied journal entry", zap.Error(err))
		}
	}
	return nil
}

// Backlog returns the number of pending journal entries.
func (r *Reconciler) Backlog() int {
	if r == nil || r.journal == nil {
		return 0
	}
	size, err := r.journal.Size()
	if err != nil {
		return 0
	}
	return size
}

// applyEntry performs the repair. A missing counterpart record means the
// repair is moot and counts as success.
func (r *Reconciler) applyEntry(ctx context.Context, entry journal.Entry) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	switch entry.Op {
	case journal.OpAttach:
		err = r.users.AddTaskRef(ctx, entry.UserID, entry.TaskID)
	case journal.OpDetachTaskRef:
		err = r.users.RemoveTaskRef(ctx, entry.UserID, entry.TaskID)
	case journal.OpDetachAssignee:
		err = r.tasks.RemoveAssignee(ctx, entry.TaskID, entry.UserID)
	default:
		return fmt.Errorf("unsupported op %s", entry.Op)
	}

	if domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil
	}
	return err
}
