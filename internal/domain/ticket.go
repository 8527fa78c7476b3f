package domain

import "time"

// TicketStatus enumerates lifecycle states for maintenance tickets.
type TicketStatus string

const (
	TicketStatusNew               TicketStatus = "NEW"
	TicketStatusAssigned          TicketStatus = "ASSIGNED"
	TicketStatusInProgress        TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingOnCustomer TicketStatus = "WAITING_ON_CUSTOMER"
	TicketStatusWaitingOnVendor   TicketStatus = "WAITING_ON_VENDOR"
	TicketStatusResolved          TicketStatus = "RESOLVED"
	TicketStatusClosed            TicketStatus = "CLOSED"
	TicketStatusCancelled         TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// TicketCategory classifies the failure domain of a ticket.
type TicketCategory string

const (
	CategoryHardware  TicketCategory = "HARDWARE"
	CategorySoftware  TicketCategory = "SOFTWARE"
	CategoryNetwork   TicketCategory = "NETWORK"
	CategoryPower     TicketCategory = "POWER"
	CategoryConnector TicketCategory = "CONNECTOR"
	CategoryFirmware  TicketCategory = "FIRMWARE"
	CategoryOther     TicketCategory = "OTHER"
)

// TicketChannel records how a ticket was opened.
type TicketChannel string

const (
	ChannelPhone  TicketChannel = "PHONE"
	ChannelEmail  TicketChannel = "EMAIL"
	ChannelWeb    TicketChannel = "WEB"
	ChannelMobile TicketChannel = "MOBILE"
	ChannelAuto   TicketChannel = "AUTO"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusWaitingOnCustomer, TicketStatusWaitingOnVendor,
		TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether the priority is known.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// Valid reports whether the category is known.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryPower,
		CategoryConnector, CategoryFirmware, CategoryOther:
		return true
	}
	return false
}

// Valid reports whether the channel is known.
func (c TicketChannel) Valid() bool {
	switch c {
	case ChannelPhone, ChannelEmail, ChannelWeb, ChannelMobile, ChannelAuto:
		return true
	}
	return false
}

// Ticket is the aggregate for charging-station maintenance requests. It is
// never physically deleted; terminal statuses soft-close it. Version is the
// optimistic concurrency counter: every committed mutation increments it.
type Ticket struct {
	ID                string
	TenantID          string
	SiteID            string
	ChargerID         *string
	Number            string
	Title             string
	Description       string
	Channel           TicketChannel
	Category          TicketCategory
	Priority          TicketPriority
	Status            TicketStatus
	CurrentAssignee   *string
	SlaBreached       bool
	ResolutionSummary *string
	Version           int64
	ReporterName      *string
	ReporterEmail     *string
	OpenedAt          time.Time
	ResolvedAt        *time.Time
	ClosedAt          *time.Time
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
