package model

import (
	"time"

	"subscription-billing/internal/domain"

	"github.com/google/uuid"
)

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "superadmin"
)

// Admin is the credential holder that drives manual state transitions.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AdminRole
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewAdmin(name, email, passwordHash string, role AdminRole) (*Admin, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	if name == "" {
		name = "Admin"
	}
	switch role {
	case AdminRoleAdmin, AdminRoleSuperAdmin:
	case "":
		role = AdminRoleAdmin
	default:
		return nil, domain.NewValidationError("role", "must be admin or superadmin")
	}
	now := time.Now().UTC()
	return &Admin{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
