package events

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketUnassigned    EventType = "ticket_unassigned"
	EventWorklogAdded        EventType = "ticket_worklog_added"
	EventSlaBreached         EventType = "sla_breached"
)

// Actor identifies who triggered an event. SystemActorID is used for
// machine-initiated events such as the breach scanner.
const SystemActorID = "system"

type Actor struct {
	UserID string          `json:"user_id"`
	Role   domain.UserRole `json:"role,omitempty"`
}

// Event represents a domain event emitted after a committed mutation.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TenantID  string    `json:"tenant_id"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number   string                `json:"number"`
	SiteID   string                `json:"site_id"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
	Terminal  bool                `json:"terminal"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignmentID string              `json:"assignment_id"`
	AssigneeType domain.AssigneeType `json:"assignee_type"`
	AssigneeRef  string              `json:"assignee_ref"`
	Reassigned   bool                `json:"reassigned"`
}

// WorklogAddedPayload payload.
type WorklogAddedPayload struct {
	WorklogID  string          `json:"worklog_id"`
	WorkType   domain.WorkType `json:"work_type"`
	IsInternal bool            `json:"is_internal"`
}

// SlaBreachedPayload payload.
type SlaBreachedPayload struct {
	MeasurementID string    `json:"measurement_id"`
	PolicyID      string    `json:"policy_id"`
	BreachedAt    time.Time `json:"breached_at"`
}
