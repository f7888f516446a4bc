package genres

import (
	"context"

	"trackwave/internal/models"
)

// Store captures the persistence needs for genre management.
type Store interface {
	CreateGenre(ctx context.Context, name, description string) (*models.Genre, error)
	GenreByID(ctx context.Context, id int64) (*models.Genre, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error
}

// Service coordinates genre management.
type Service interface {
	Create(ctx context.Context, name, description string) (*models.Genre, error)
	Get(ctx context.Context, id int64) (*models.Genre, error)
	List(ctx context.Context) ([]models.Genre, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, name, description string) (*models.Genre, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.CreateGenre(ctx, name, description)
}

func (s *service) Get(ctx context.Context, id int64) (*models.Genre, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GenreByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]models.Genre, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListGenres(ctx)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteGenre(ctx, id)
}
