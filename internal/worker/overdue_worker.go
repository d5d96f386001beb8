package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/persistence"
	"github.com/spec-kit/issue-service/internal/repository"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

const overdueAlertKeyPrefix = "issue:overdue-alert:"

// alert dedupe keys outlive any realistic sweep gap but do expire
const overdueAlertTTL = 14 * 24 * time.Hour

// OverdueWorker is the periodic sweep the lifecycle engine itself does not
// run: it finds non-terminal issues past their SLA deadline, persists the
// breach flag, and publishes one overdue event per issue.
type OverdueWorker struct {
	issues     repository.IssueRepository
	redis      *persistence.Redis
	dispatcher events.Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	batchLimit int
}

// NewOverdueWorker constructs the worker.
func NewOverdueWorker(issues repository.IssueRepository, redis *persistence.Redis, dispatcher events.Dispatcher, logger *zap.Logger, interval time.Duration, batchLimit int) *OverdueWorker {
	return &OverdueWorker{
		issues:     issues,
		redis:      redis,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
		batchLimit: batchLimit,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("overdue sweep started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue sweep stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OverdueWorker) sweep(ctx context.Context) {
	now := time.Now().UTC()
	breached, err := w.issues.ListBreached(ctx, now, w.batchLimit)
	if err != nil {
		w.logger.Error("overdue sweep query failed", zap.Error(err))
		return
	}
	if len(breached) == 0 {
		return
	}

	flagged := 0
	for i := range breached {
		issue := &breached[i]
		issue.IsOverdue = true
		if err := w.issues.Update(ctx, issue); err != nil {
			// A concurrent transition wins; the next sweep re-evaluates.
			if apperrors.IsRetryable(err) {
				continue
			}
			w.logger.Error("failed to flag overdue issue", zap.String("issue_id", issue.ID), zap.Error(err))
			continue
		}
		flagged++
		w.alertOnce(ctx, issue.ID, now, breached[i])
	}
	w.logger.Info("overdue sweep completed", zap.Int("breached", len(breached)), zap.Int("flagged", flagged))
}

// alertOnce publishes the overdue event at most once per issue, deduped
// across restarts through a Redis SETNX marker.
func (w *OverdueWorker) alertOnce(ctx context.Context, issueID string, now time.Time, issue domain.Issue) {
	if w.dispatcher == nil {
		return
	}
	if w.redis != nil && w.redis.Client != nil {
		set, err := w.redis.Client.SetNX(ctx, overdueAlertKeyPrefix+issueID, now.Format(time.RFC3339), overdueAlertTTL).Result()
		if err != nil {
			w.logger.Warn("overdue alert dedupe unavailable", zap.String("issue_id", issueID), zap.Error(err))
		} else if !set {
			return
		}
	}

	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventIssueOverdue,
		IssueID:   issueID,
		Timestamp: now,
		Payload: events.IssueOverduePayload{
			Reference:   issue.Reference,
			Priority:    issue.Priority,
			Responsible: issue.Responsible,
			SLADeadline: issue.SLADeadline,
			BreachedBy:  now.Sub(issue.SLADeadline),
		},
	})
}
