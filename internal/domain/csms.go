package domain

import "time"

// FirmwareJobStatus mirrors the CSMS firmware update job lifecycle.
type FirmwareJobStatus string

const (
	FirmwareJobRequested   FirmwareJobStatus = "REQUESTED"
	FirmwareJobScheduled   FirmwareJobStatus = "SCHEDULED"
	FirmwareJobDownloading FirmwareJobStatus = "DOWNLOADING"
	FirmwareJobInstalling  FirmwareJobStatus = "INSTALLING"
	FirmwareJobInstalled   FirmwareJobStatus = "INSTALLED"
	FirmwareJobFailed      FirmwareJobStatus = "FAILED"
	FirmwareJobCancelled   FirmwareJobStatus = "CANCELLED"
)

// CsmsEventRef links a ticket to a charger event observed in the CSMS. The
// CSMS itself is read-only from this service's point of view.
type CsmsEventRef struct {
	ID          string
	TenantID    string
	TicketID    string
	ChargerID   string
	CsmsEventID string
	EventType   string
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// FirmwareJobRef links a ticket to a firmware update job tracked in the CSMS.
type FirmwareJobRef struct {
	ID            string
	TenantID      string
	TicketID      string
	ChargerID     string
	CsmsJobID     string
	TargetVersion string
	LastStatus    FirmwareJobStatus
	LastCheckedAt time.Time
	CreatedAt     time.Time
}
