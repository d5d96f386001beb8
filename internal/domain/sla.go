package domain

import "time"

// SLAConfiguration holds an agency's response-time commitments per
// priority. It is read-only input to the lifecycle engine; editing a
// configuration never reschedules issues that are already open.
type SLAConfiguration struct {
	AgencyID                string
	EmergencyResponseHours  int
	UrgentResponseHours     int
	RoutineResponseHours    int
	MaintenanceResponseDays int
	UpdatedAt               time.Time
}

// ResponseHours returns the configured hours for a priority, or 0 when the
// configuration carries no usable value for it. Low priority maps to the
// maintenance window expressed in days.
func (c *SLAConfiguration) ResponseHours(p IssuePriority) int {
	if c == nil {
		return 0
	}
	switch p {
	case IssuePriorityEmergency:
		return c.EmergencyResponseHours
	case IssuePriorityUrgent:
		return c.UrgentResponseHours
	case IssuePriorityRoutine:
		return c.RoutineResponseHours
	case IssuePriorityLow:
		return c.MaintenanceResponseDays * 24
	}
	return 0
}
