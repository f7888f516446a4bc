package roles

import (
	"context"

	"trackwave/internal/models"
)

// Store captures the persistence needs for role management.
type Store interface {
	CreateRole(ctx context.Context, name, description string) (*models.Role, error)
	RoleByName(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
}

// Service coordinates role management.
type Service interface {
	Create(ctx context.Context, name, description string) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, name, description string) (*models.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.CreateRole(ctx, name, description)
}

func (s *service) GetByName(ctx context.Context, name string) (*models.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.RoleByName(ctx, name)
}

func (s *service) List(ctx context.Context) ([]models.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListRoles(ctx)
}
