package observability

import (
	"context"
	"testing"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
)

func TestEventMetricsCountTransitions(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := NewMetrics()
	RegisterEventMetrics(dispatcher, metrics)

	publish := func(from, to domain.IssueStatus, overdue bool) {
		_ = dispatcher.Publish(context.Background(), events.Event{
			Type: events.EventIssueStatusChanged,
			Payload: events.IssueStatusChangedPayload{
				OldStatus: from,
				NewStatus: to,
				IsOverdue: overdue,
			},
		})
	}

	publish(domain.IssueStatusOpen, domain.IssueStatusAcknowledged, false)
	publish(domain.IssueStatusOpen, domain.IssueStatusAcknowledged, false)
	publish(domain.IssueStatusInProgress, domain.IssueStatusResolved, true)

	if got := metrics.TransitionCount("open", "acknowledged", false); got != 2 {
		t.Errorf("open>acknowledged count = %d, want 2", got)
	}
	if got := metrics.TransitionCount("in_progress", "resolved", true); got != 1 {
		t.Errorf("in_progress>resolved overdue count = %d, want 1", got)
	}
	if got := metrics.TransitionCount("open", "closed", false); got != 0 {
		t.Errorf("unseen pair count = %d, want 0", got)
	}
}
