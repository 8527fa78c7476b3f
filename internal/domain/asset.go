package domain

import "time"

// Site is a charging location belonging to a tenant.
type Site struct {
	ID         string
	TenantID   string
	Name       string
	Code       string
	Address    string
	City       string
	PostalCode string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Charger is a charging station installed at a site. Live status is owned by
// the external CSMS; the columns here are the last synced snapshot.
type Charger struct {
	ID               string
	TenantID         string
	SiteID           string
	Name             string
	SerialNumber     string
	Vendor           string
	Model            string
	FirmwareVersion  string
	CsmsChargerID    *string
	OcppProtocol     string
	PowerKW          int
	ConnectorCount   int
	LastKnownStatus  *string
	LastStatusUpdate *time.Time
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
