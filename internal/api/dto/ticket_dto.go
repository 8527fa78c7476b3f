package dto

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	SiteID        string                `json:"site_id"`
	ChargerID     *string               `json:"charger_id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Channel       domain.TicketChannel  `json:"channel"`
	Category      domain.TicketCategory `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	ReporterName  *string               `json:"reporter_name"`
	ReporterEmail *string               `json:"reporter_email"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	Status domain.TicketStatus `json:"status"`
	Reason string              `json:"reason"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeType   domain.AssigneeType `json:"assignee_type"`
	AssigneeUserID *string             `json:"assignee_user_id"`
	VendorName     string              `json:"vendor_name"`
	VendorContact  string              `json:"vendor_contact"`
	Notes          string              `json:"notes"`
	Reassign       bool                `json:"reassign"`
}

// WorklogRequest payload.
type WorklogRequest struct {
	Body             string          `json:"body"`
	WorkType         domain.WorkType `json:"work_type"`
	TimeSpentMinutes *int            `json:"time_spent_minutes"`
	IsInternal       bool            `json:"is_internal"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	SiteID          string                `json:"site_id"`
	ChargerID       *string               `json:"charger_id"`
	Title           string                `json:"title"`
	Status          domain.TicketStatus   `json:"status"`
	Category        domain.TicketCategory `json:"category"`
	Priority        domain.TicketPriority `json:"priority"`
	CurrentAssignee *string               `json:"current_assignee"`
	SlaBreached     bool                  `json:"sla_breached"`
	Version         int64                 `json:"version"`
	OpenedAt        time.Time             `json:"opened_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// SlaStatus summarizes the live measurement state on ticket reads.
type SlaStatus struct {
	PolicyID           string     `json:"policy_id"`
	ResponseDeadline   time.Time  `json:"response_deadline"`
	ResolutionDeadline time.Time  `json:"resolution_deadline"`
	Paused             bool       `json:"paused"`
	PausedTotalSeconds int64      `json:"paused_total_seconds"`
	ElapsedSeconds     int64      `json:"elapsed_seconds"`
	FirstResponseAt    *time.Time `json:"first_response_at"`
	ResponseBreached   bool       `json:"response_breached"`
	Breached           bool       `json:"breached"`
	BreachedAt         *time.Time `json:"breached_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description       string               `json:"description"`
	Channel           domain.TicketChannel `json:"channel"`
	ReporterName      *string              `json:"reporter_name"`
	ReporterEmail     *string              `json:"reporter_email"`
	ResolutionSummary *string              `json:"resolution_summary"`
	ResolvedAt        *time.Time           `json:"resolved_at"`
	ClosedAt          *time.Time           `json:"closed_at"`
	CreatedBy         string               `json:"created_by"`
	Sla               *SlaStatus           `json:"sla"`
}

// HistoryEntryResponse is one audit record of the status trail.
type HistoryEntryResponse struct {
	ID         string               `json:"id"`
	FromStatus *domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus  `json:"to_status"`
	Reason     string               `json:"reason,omitempty"`
	ChangedBy  string               `json:"changed_by"`
	ChangedAt  time.Time            `json:"changed_at"`
}

// AssignmentResponse is one assignment record.
type AssignmentResponse struct {
	ID            string              `json:"id"`
	AssigneeType  domain.AssigneeType `json:"assignee_type"`
	AssigneeRef   string              `json:"assignee_ref"`
	VendorContact *string             `json:"vendor_contact,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	IsActive      bool                `json:"is_active"`
	AssignedBy    string              `json:"assigned_by"`
	AssignedAt    time.Time           `json:"assigned_at"`
	ReleasedAt    *time.Time          `json:"released_at"`
}

// WorklogResponse is one work record.
type WorklogResponse struct {
	ID               string          `json:"id"`
	Body             string          `json:"body"`
	WorkType         domain.WorkType `json:"work_type"`
	TimeSpentMinutes *int            `json:"time_spent_minutes"`
	IsInternal       bool            `json:"is_internal"`
	AuthorID         string          `json:"author_id"`
	CreatedAt        time.Time       `json:"created_at"`
}
