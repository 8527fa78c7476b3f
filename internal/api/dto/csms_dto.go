package dto

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// LinkCsmsEventRequest payload.
type LinkCsmsEventRequest struct {
	ChargerID   string     `json:"charger_id"`
	CsmsEventID string     `json:"csms_event_id"`
	EventType   string     `json:"event_type"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

// LinkFirmwareJobRequest payload.
type LinkFirmwareJobRequest struct {
	ChargerID     string `json:"charger_id"`
	CsmsJobID     string `json:"csms_job_id"`
	TargetVersion string `json:"target_version"`
}

// CsmsEventRefResponse is one linked charger event.
type CsmsEventRefResponse struct {
	ID          string    `json:"id"`
	ChargerID   string    `json:"charger_id"`
	CsmsEventID string    `json:"csms_event_id"`
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// FirmwareJobRefResponse is one linked firmware job.
type FirmwareJobRefResponse struct {
	ID            string                   `json:"id"`
	ChargerID     string                   `json:"charger_id"`
	CsmsJobID     string                   `json:"csms_job_id"`
	TargetVersion string                   `json:"target_version"`
	LastStatus    domain.FirmwareJobStatus `json:"last_status"`
	LastCheckedAt time.Time                `json:"last_checked_at"`
}

// TicketCsmsResponse bundles linked CSMS references for a ticket.
type TicketCsmsResponse struct {
	Events       []CsmsEventRefResponse   `json:"events"`
	FirmwareJobs []FirmwareJobRefResponse `json:"firmware_jobs"`
}
