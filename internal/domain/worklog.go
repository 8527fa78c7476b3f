package domain

import "time"

// WorkType classifies the work recorded in a log entry.
type WorkType string

const (
	WorkTypeDiagnosis     WorkType = "DIAGNOSIS"
	WorkTypeRepair        WorkType = "REPAIR"
	WorkTypeTesting       WorkType = "TESTING"
	WorkTypeCommunication WorkType = "COMMUNICATION"
	WorkTypeTravel        WorkType = "TRAVEL"
	WorkTypeWaiting       WorkType = "WAITING"
	WorkTypeOther         WorkType = "OTHER"
)

// Worklog captures work performed on a ticket. A non-internal worklog counts
// as the first response for SLA purposes.
type Worklog struct {
	ID               string
	TenantID         string
	TicketID         string
	Body             string
	WorkType         WorkType
	TimeSpentMinutes *int
	IsInternal       bool
	AuthorID         string
	CreatedAt        time.Time
}
