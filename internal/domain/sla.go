package domain

import "time"

// SlaPolicy maps (category, priority) to response/resolution targets for one
// tenant. A policy with IsDefault set matches any priority within its
// category and is the required fallback when no exact match exists. Policy
// changes never retroactively alter measurements already started.
type SlaPolicy struct {
	ID                      string
	TenantID                string
	Category                TicketCategory
	Priority                TicketPriority
	IsDefault               bool
	ResponseTargetMinutes   int
	ResolutionTargetMinutes int
	PauseStatuses           []TicketStatus
	IsActive                bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// PausesOn reports whether entering status stops the SLA clock.
func (p *SlaPolicy) PausesOn(status TicketStatus) bool {
	for _, s := range p.PauseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// SlaMeasurement tracks one ticket against the policy that was in force when
// the ticket was opened. Targets and pause statuses are copied from the
// policy at start time. Deadlines are wall-clock targets net of paused time:
// every resume shifts both deadlines forward by the pause duration. Breach
// flags are monotonic; once set they are never cleared here.
type SlaMeasurement struct {
	ID                 string
	TenantID           string
	TicketID           string
	PolicyID           string
	StartedAt          time.Time
	ResponseDeadline   time.Time
	ResolutionDeadline time.Time
	PauseStatuses      []TicketStatus
	PauseStartedAt     *time.Time
	PausedTotal        time.Duration
	FirstResponseAt    *time.Time
	ResponseBreached   bool
	Breached           bool
	BreachedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsPaused reports whether the clock is currently stopped.
func (m *SlaMeasurement) IsPaused() bool {
	return m.PauseStartedAt != nil
}

// PausesOn reports whether entering status stops the clock for this
// measurement, using the statuses captured at start time.
func (m *SlaMeasurement) PausesOn(status TicketStatus) bool {
	for _, s := range m.PauseStatuses {
		if s == status {
			return true
		}
	}
	return false
}
