package domain

import "time"

// UserRole enumerates operator roles within a tenant.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleTenantAdmin UserRole = "TENANT_ADMIN"
	RoleCallCenter  UserRole = "CALL_CENTER"
	RoleASManager   UserRole = "AS_MANAGER"
	RoleASEngineer  UserRole = "AS_ENGINEER"
	RoleViewer      UserRole = "VIEWER"
)

// User is an operator account scoped to a single tenant.
type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Role         UserRole
	FullName     string
	Phone        *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}
