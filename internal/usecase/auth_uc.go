// File: internal/usecase/auth_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/logging"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// AuthUseCase checks admin credentials. Token minting stays in the web layer.
type AuthUseCase interface {
	Authenticate(ctx context.Context, email, password string) (*model.Admin, error)
	CreateAdmin(ctx context.Context, name, email, password string, role model.AdminRole) (*model.Admin, error)
}

// dummyHash keeps the unknown-email path as slow as a real comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

type authUC struct {
	admins repository.AdminRepository
	log    *zerolog.Logger
}

func NewAuthUseCase(admins repository.AdminRepository, logger *zerolog.Logger) *authUC {
	return &authUC{admins: admins, log: logger}
}

func (u *authUC) Authenticate(ctx context.Context, email, password string) (*model.Admin, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Authenticate")()
	email, err := model.NormalizeEmail(email)
	if err != nil || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	admin, err := u.admins.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		logging.With(ctx, u.log).Warn().Str("email", logging.Redact(email, false)).Msg("admin login rejected")
		return nil, domain.ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if err := u.admins.TouchLogin(ctx, repository.NoTX, admin.ID, now); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("record admin login")
	}
	admin.LastLoginAt = &now
	return admin, nil
}

func (u *authUC) CreateAdmin(ctx context.Context, name, email, password string, role model.AdminRole) (*model.Admin, error) {
	if len(password) < 8 {
		return nil, domain.NewValidationError("password", "must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin, err := model.NewAdmin(name, email, string(hash), role)
	if err != nil {
		return nil, err
	}
	if err := u.admins.Save(ctx, repository.NoTX, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
