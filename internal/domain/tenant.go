package domain

import "time"

// Tenant is an isolated customer organization. Every other entity carries a
// tenant id, and no cross-tenant reference is ever resolvable.
type Tenant struct {
	ID           string
	Name         string
	Code         string
	ContactName  string
	ContactEmail string
	ContactPhone string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
