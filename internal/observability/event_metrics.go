package observability

import (
	"context"

	"github.com/spec-kit/issue-service/internal/events"
)

// RegisterEventMetrics feeds the lifecycle counters from published events.
func RegisterEventMetrics(dispatcher events.Dispatcher, metrics *Metrics) {
	dispatcher.Subscribe(events.EventIssueStatusChanged, func(_ context.Context, e events.Event) error {
		if payload, ok := e.Payload.(events.IssueStatusChangedPayload); ok {
			metrics.RecordTransition(string(payload.OldStatus), string(payload.NewStatus), payload.IsOverdue)
		}
		return nil
	})
	dispatcher.Subscribe(events.EventIssueOverdue, func(_ context.Context, _ events.Event) error {
		metrics.RecordOverdueFlagged()
		return nil
	})
}
