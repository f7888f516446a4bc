package playlists

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"trackwave/internal/models"
	"trackwave/internal/store"
)

// Store captures the persistence needs for playlist workflows.
type Store interface {
	CreatePlaylist(ctx context.Context, userID int64, name, description, imagePath string, genreIDs []int64) (*models.Playlist, error)
	PlaylistByID(ctx context.Context, id int64) (*models.Playlist, error)
	ListPlaylists(ctx context.Context, limit, page int) ([]models.Playlist, error)
	SearchPlaylistsByName(ctx context.Context, fragment string) ([]models.Playlist, error)
	PlaylistsByGenre(ctx context.Context, genreID int64) ([]models.Playlist, error)
	UpdatePlaylistMeta(ctx context.Context, actorID, playlistID int64, name, description *string) error
	SetPlaylistImage(ctx context.Context, actorID, playlistID int64, path string) (string, error)
	SetPlaylistGenre(ctx context.Context, actorID, playlistID, genreID int64, add bool) error
	SetPlaylistTrack(ctx context.Context, actorID, playlistID, trackID int64, add bool) error
	SetPlaylistCollection(ctx context.Context, userID, playlistID int64, add bool) error
	DeletePlaylist(ctx context.Context, actorID, playlistID int64) (*store.PlaylistFiles, error)
}

// Blobs stores playlist cover images.
type Blobs interface {
	Create(owner, kind, ext string, content io.Reader) (string, error)
	Remove(owner, path string) error
}

// Service coordinates playlist-related operations.
type Service interface {
	Create(ctx context.Context, userID int64, userName, name, description, imageExt string, image io.Reader, genreIDs []int64) (*models.Playlist, error)
	Get(ctx context.Context, id int64) (*models.Playlist, error)
	List(ctx context.Context, limit, page int) ([]models.Playlist, error)
	Search(ctx context.Context, fragment string) ([]models.Playlist, error)
	ByGenre(ctx context.Context, genreID int64) ([]models.Playlist, error)
	UpdateMeta(ctx context.Context, actorID, id int64, name, description *string) error
	ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	SetGenre(ctx context.Context, actorID, id, genreID int64, add bool) error
	SetTrack(ctx context.Context, actorID, id, trackID int64, add bool) error
	SetCollection(ctx context.Context, userID, id int64, add bool) error
	Delete(ctx context.Context, actorID, id int64) error
}

type service struct {
	store Store
	blobs Blobs
}

// New constructs a Service backed by the provided dependencies.
func New(store Store, blobs Blobs) Service {
	return &service{store: store, blobs: blobs}
}

func (s *service) Create(ctx context.Context, userID int64, userName, name, description, imageExt string, image io.Reader, genreIDs []int64) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imagePath, err := s.blobs.Create(userName, "image", imageExt, image)
	if err != nil {
		return nil, err
	}
	playlist, err := s.store.CreatePlaylist(ctx, userID, name, description, imagePath, genreIDs)
	if err != nil {
		_ = s.blobs.Remove(userName, imagePath)
		return nil, err
	}
	return playlist, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.PlaylistByID(ctx, id)
}

func (s *service) List(ctx context.Context, limit, page int) ([]models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPlaylists(ctx, limit, page)
}

func (s *service) Search(ctx context.Context, fragment string) ([]models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SearchPlaylistsByName(ctx, fragment)
}

func (s *service) ByGenre(ctx context.Context, genreID int64) ([]models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.PlaylistsByGenre(ctx, genreID)
}

func (s *service) UpdateMeta(ctx context.Context, actorID, id int64, name, description *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.UpdatePlaylistMeta(ctx, actorID, id, name, description)
}

func (s *service) ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.blobs.Create(actorName, "image", ext, content)
	if err != nil {
		return "", err
	}
	old, err := s.store.SetPlaylistImage(ctx, actorID, id, path)
	if err != nil {
		_ = s.blobs.Remove(actorName, path)
		return "", err
	}
	_ = s.blobs.Remove(actorName, old)
	return path, nil
}

func (s *service) SetGenre(ctx context.Context, actorID, id, genreID int64, add bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.SetPlaylistGenre(ctx, actorID, id, genreID, add)
}

func (s *service) SetTrack(ctx context.Context, actorID, id, trackID int64, add bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.SetPlaylistTrack(ctx, actorID, id, trackID, add)
}

func (s *service) SetCollection(ctx context.Context, userID, id int64, add bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.SetPlaylistCollection(ctx, userID, id, add)
}

func (s *service) Delete(ctx context.Context, actorID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files, err := s.store.DeletePlaylist(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(files.Owner, files.Image); err != nil {
		log.Error().Err(err).Str("path", files.Image).Msg("remove playlist cover")
	}
	return nil
}
