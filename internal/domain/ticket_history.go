package domain

import "time"

// TicketStatusHistory is an immutable audit trail entry for a status change.
// FromStatus is nil only for the initial NEW record written at creation.
type TicketStatusHistory struct {
	ID         string
	TenantID   string
	TicketID   string
	FromStatus *TicketStatus
	ToStatus   TicketStatus
	Reason     string
	ChangedBy  string
	ChangedAt  time.Time
}
