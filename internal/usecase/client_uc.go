// File: internal/usecase/client_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ClientUseCase = (*clientUC)(nil)

type ClientInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Company string `json:"company" validate:"omitempty,max=100"`
}

type ClientUseCase interface {
	Create(ctx context.Context, in ClientInput) (*model.Client, error)
	Get(ctx context.Context, id string) (*model.Client, error)
	List(ctx context.Context, limit, offset int) ([]*model.Client, error)
	Update(ctx context.Context, id string, in ClientInput) (*model.Client, error)
	Delete(ctx context.Context, id string) error
}

type clientUC struct {
	clients repository.ClientRepository
	log     *zerolog.Logger
}

func NewClientUseCase(clients repository.ClientRepository, logger *zerolog.Logger) *clientUC {
	return &clientUC{clients: clients, log: logger}
}

func (u *clientUC) Create(ctx context.Context, in ClientInput) (*model.Client, error) {
	defer logging.TraceDuration(u.log, "ClientUC.Create")()
	c, err := model.NewClient("", in.Name, in.Email, in.Phone, in.Company)
	if err != nil {
		return nil, err
	}
	if err := u.clients.Save(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *clientUC) Get(ctx context.Context, id string) (*model.Client, error) {
	defer logging.TraceDuration(u.log, "ClientUC.Get")()
	return u.clients.FindByID(ctx, repository.NoTX, id)
}

func (u *clientUC) List(ctx context.Context, limit, offset int) ([]*model.Client, error) {
	defer logging.TraceDuration(u.log, "ClientUC.List")()
	limit, offset = clampPage(limit, offset)
	return u.clients.List(ctx, repository.NoTX, limit, offset)
}

func (u *clientUC) Update(ctx context.Context, id string, in ClientInput) (*model.Client, error) {
	defer logging.TraceDuration(u.log, "ClientUC.Update")()
	existing, err := u.clients.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	next, err := model.NewClient(existing.ID, in.Name, in.Email, in.Phone, in.Company)
	if err != nil {
		return nil, err
	}
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	if err := u.clients.Update(ctx, repository.NoTX, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (u *clientUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "ClientUC.Delete")()
	if strings.TrimSpace(id) == "" {
		return model.ErrEmptyID
	}
	if err := u.clients.Delete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	logging.With(ctx, u.log).Info().Str("client_id", id).Msg("client deleted with its subscriptions")
	return nil
}

// clampPage bounds list pagination.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
