package domain

import "time"

// StaffRole enumerates agency staff roles.
type StaffRole string

const (
	StaffRoleProducer StaffRole = "PRODUCER"
	StaffRoleCSR      StaffRole = "CSR"
	StaffRoleManager  StaffRole = "MANAGER"
)

// StaffUser models a non-owner agency employee.
type StaffUser struct {
	ID           string
	AgencyID     string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
