// Package sla computes binding response deadlines and breach state for
// tenancy issues. Everything here is pure: deciding when to evaluate and
// what to do about a breach belongs to callers.
package sla

import (
	"time"

	"github.com/spec-kit/issue-service/internal/domain"
)

// Platform fallback response windows, in hours. Used whenever an issue has
// no managing agency or the agency's configuration carries no usable value
// for the priority. The fallback is deliberately silent: an issue must
// never be left without a deadline.
const (
	DefaultEmergencyHours = 4
	DefaultUrgentHours    = 24
	DefaultRoutineHours   = 72
	DefaultLowHours       = 168
)

// Defaults carries the platform fallback windows, overridable via config.
type Defaults struct {
	EmergencyHours int
	UrgentHours    int
	RoutineHours   int
	LowHours       int
}

// PlatformDefaults returns the compiled-in fallback windows.
func PlatformDefaults() Defaults {
	return Defaults{
		EmergencyHours: DefaultEmergencyHours,
		UrgentHours:    DefaultUrgentHours,
		RoutineHours:   DefaultRoutineHours,
		LowHours:       DefaultLowHours,
	}
}

func (d Defaults) hours(p domain.IssuePriority) int {
	switch p {
	case domain.IssuePriorityEmergency:
		return d.EmergencyHours
	case domain.IssuePriorityUrgent:
		return d.UrgentHours
	case domain.IssuePriorityRoutine:
		return d.RoutineHours
	default:
		return d.LowHours
	}
}

// ResolveDeadline computes the SLA deadline for an issue raised at
// raisedAt. The agency configuration wins when it yields a positive hour
// value for the priority; otherwise the defaults apply. Invoked exactly
// once per issue, at creation; the result is immutable thereafter.
func ResolveDeadline(raisedAt time.Time, priority domain.IssuePriority, cfg *domain.SLAConfiguration, defaults Defaults) time.Time {
	hours := cfg.ResponseHours(priority)
	if hours <= 0 {
		hours = defaults.hours(priority)
	}
	return raisedAt.Add(time.Duration(hours) * time.Hour)
}

// Evaluate reports breach state. While the status is non-terminal the
// result is recomputed from the clock; once resolved or closed it is
// frozen at lastKnown, a permanent record of whether the SLA was met.
// An issue is overdue strictly after the deadline, never at it.
func Evaluate(now time.Time, status domain.IssueStatus, deadline time.Time, lastKnown bool) bool {
	if status.Terminal() {
		return lastKnown
	}
	return now.After(deadline)
}
