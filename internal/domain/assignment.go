package domain

import "time"

// AssigneeType differentiates internal users from external vendors.
type AssigneeType string

const (
	AssigneeTypeUser   AssigneeType = "USER"
	AssigneeTypeVendor AssigneeType = "VENDOR"
)

// Assignment is an ownership record for a ticket. At most one assignment per
// ticket is active at any time; superseded rows are kept for audit.
type Assignment struct {
	ID             string
	TenantID       string
	TicketID       string
	AssigneeType   AssigneeType
	AssigneeUserID *string
	VendorName     *string
	VendorContact  *string
	Notes          string
	Active         bool
	AssignedBy     string
	AssignedAt     time.Time
	ReleasedAt     *time.Time
}

// AssigneeRef returns the weak reference stored on the ticket: the user id
// for internal assignees, the vendor name otherwise.
func (a *Assignment) AssigneeRef() string {
	if a.AssigneeType == AssigneeTypeUser && a.AssigneeUserID != nil {
		return *a.AssigneeUserID
	}
	if a.VendorName != nil {
		return *a.VendorName
	}
	return ""
}
