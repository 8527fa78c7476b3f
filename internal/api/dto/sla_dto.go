package dto

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// UpsertPolicyRequest payload.
type UpsertPolicyRequest struct {
	Category                domain.TicketCategory `json:"category"`
	Priority                domain.TicketPriority `json:"priority"`
	IsDefault               bool                  `json:"is_default"`
	ResponseTargetMinutes   int                   `json:"response_target_minutes"`
	ResolutionTargetMinutes int                   `json:"resolution_target_minutes"`
	PauseStatuses           []domain.TicketStatus `json:"pause_statuses"`
	IsActive                *bool                 `json:"is_active"`
}

// PolicyResponse is one SLA policy.
type PolicyResponse struct {
	ID                      string                `json:"id"`
	Category                domain.TicketCategory `json:"category"`
	Priority                domain.TicketPriority `json:"priority,omitempty"`
	IsDefault               bool                  `json:"is_default"`
	ResponseTargetMinutes   int                   `json:"response_target_minutes"`
	ResolutionTargetMinutes int                   `json:"resolution_target_minutes"`
	PauseStatuses           []domain.TicketStatus `json:"pause_statuses"`
	IsActive                bool                  `json:"is_active"`
	UpdatedAt               time.Time             `json:"updated_at"`
}
