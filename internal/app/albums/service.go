package albums

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"trackwave/internal/models"
	"trackwave/internal/store"
)

// Store captures the persistence needs for album workflows.
type Store interface {
	CreateAlbum(ctx context.Context, artistID int64, name, description, imagePath string, genreIDs []int64, tracks []store.NewAlbumTrack) (*models.Album, error)
	AlbumByID(ctx context.Context, id int64) (*models.Album, error)
	ListAlbums(ctx context.Context, limit, page int) ([]models.Album, error)
	MostLikedAlbums(ctx context.Context) ([]models.Album, error)
	AlbumsByArtist(ctx context.Context, artistID int64) ([]models.Album, error)
	SearchAlbumsByName(ctx context.Context, fragment string) ([]models.Album, error)
	AlbumsByGenre(ctx context.Context, genreID int64) ([]models.Album, error)
	UpdateAlbumMeta(ctx context.Context, actorID, albumID int64, name, description *string) error
	SetAlbumImage(ctx context.Context, actorID, albumID int64, path string) (string, error)
	SetAlbumGenre(ctx context.Context, actorID, albumID, genreID int64, add bool) error
	AttachAlbumTrack(ctx context.Context, actorID, albumID, trackID int64) (string, error)
	DetachAlbumTrack(ctx context.Context, actorID, albumID, trackID int64, newImagePath string) error
	SetAlbumCollection(ctx context.Context, userID, albumID int64, add bool) error
	DeleteAlbum(ctx context.Context, actorID, albumID int64) (*store.AlbumFiles, error)
}

// Blobs stores album media.
type Blobs interface {
	Create(owner, kind, ext string, content io.Reader) (string, error)
	Copy(owner, path string) (string, error)
	Remove(owner, path string) error
}

// TrackUpload is one track of an album batch.
type TrackUpload struct {
	Title       string
	Description string
	AudioExt    string
	Audio       io.Reader
}

// Upload bundles everything needed to create an album.
type Upload struct {
	Name        string
	Description string
	ImageExt    string
	Image       io.Reader
	GenreIDs    []int64
	Tracks      []TrackUpload
}

// Service coordinates album-related operations.
type Service interface {
	Create(ctx context.Context, artistID int64, artistName string, up Upload) (*models.Album, error)
	Get(ctx context.Context, id int64) (*models.Album, error)
	List(ctx context.Context, limit, page int) ([]models.Album, error)
	MostLiked(ctx context.Context) ([]models.Album, error)
	ByArtist(ctx context.Context, artistID int64) ([]models.Album, error)
	Search(ctx context.Context, fragment string) ([]models.Album, error)
	ByGenre(ctx context.Context, genreID int64) ([]models.Album, error)
	UpdateMeta(ctx context.Context, actorID, id int64, name, description *string) error
	ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	SetGenre(ctx context.Context, actorID, id, genreID int64, add bool) error
	AttachTrack(ctx context.Context, actorID int64, actorName string, id, trackID int64) error
	DetachTrack(ctx context.Context, actorID int64, actorName string, id, trackID int64) error
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

func (s *service) Create(ctx context.Context, artistID int64, artistName string, up Upload) (*models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var created []string
	cleanup := func() {
		for _, path := range created {
			_ = s.blobs.Remove(artistName, path)
		}
	}

	imagePath, err := s.blobs.Create(artistName, "image", up.ImageExt, up.Image)
	if err != nil {
		return nil, err
	}
	created = append(created, imagePath)

	batch := make([]store.NewAlbumTrack, 0, len(up.Tracks))
	for _, t := range up.Tracks {
		audioPath, err := s.blobs.Create(artistName, "audio", t.AudioExt, t.Audio)
		if err != nil {
			cleanup()
			return nil, err
		}
		created = append(created, audioPath)
		batch = append(batch, store.NewAlbumTrack{
			Title:       t.Title,
			Description: t.Description,
			AudioPath:   audioPath,
		})
	}

	album, err := s.store.CreateAlbum(ctx, artistID, up.Name, up.Description, imagePath, up.GenreIDs, batch)
	if err != nil {
		cleanup()
		return nil, err
	}
	return album, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AlbumByID(ctx, id)
}

func (s *service) List(ctx context.Context, limit, page int) ([]models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListAlbums(ctx, limit, page)
}

func (s *service) MostLiked(ctx context.Context) ([]models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.MostLikedAlbums(ctx)
}

func (s *service) ByArtist(ctx context.Context, artistID int64) ([]models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AlbumsByArtist(ctx, artistID)
}

func (s *service) Search(ctx context.Context, fragment string) ([]models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SearchAlbumsByName(ctx, fragment)
}

func (s *service) ByGenre(ctx context.Context, genreID int64) ([]models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AlbumsByGenre(ctx, genreID)
}

func (s *service) UpdateMeta(ctx context.Context, actorID, id int64, name, description *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.UpdateAlbumMeta(ctx, actorID, id, name, description)
}

func (s *service) ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.blobs.Create(actorName, "image", ext, content)
	if err != nil {
		return "", err
	}
	old, err := s.store.SetAlbumImage(ctx, actorID, id, path)
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
	return s.store.SetAlbumGenre(ctx, actorID, id, genreID, add)
}

func (s *service) AttachTrack(ctx context.Context, actorID int64, actorName string, id, trackID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Blob paths are relative to the album owner's directory, which is not
	// the actor's when an admin does the attach.
	album, err := s.store.AlbumByID(ctx, id)
	if err != nil {
		return err
	}
	old, err := s.store.AttachAlbumTrack(ctx, actorID, id, trackID)
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(album.OwnerName, old); err != nil {
		log.Error().Err(err).Str("path", old).Msg("remove replaced track image")
	}
	return nil
}

func (s *service) DetachTrack(ctx context.Context, actorID int64, actorName string, id, trackID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The released track keeps the album artwork through its own copy of
	// the cover file, made in the album owner's directory.
	album, err := s.store.AlbumByID(ctx, id)
	if err != nil {
		return err
	}
	newImage, err := s.blobs.Copy(album.OwnerName, album.Image)
	if err != nil {
		return err
	}
	if err := s.store.DetachAlbumTrack(ctx, actorID, id, trackID, newImage); err != nil {
		_ = s.blobs.Remove(album.OwnerName, newImage)
		return err
	}
	return nil
}

func (s *service) SetCollection(ctx context.Context, userID, id int64, add bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.SetAlbumCollection(ctx, userID, id, add)
}

func (s *service) Delete(ctx context.Context, actorID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files, err := s.store.DeleteAlbum(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(files.Owner, files.Image); err != nil {
		log.Error().Err(err).Str("path", files.Image).Msg("remove album cover")
	}
	for _, tf := range files.Tracks {
		// Member tracks share the cover path, so only the audio file is
		// theirs to release.
		if err := s.blobs.Remove(tf.Owner, tf.Audio); err != nil {
			log.Error().Err(err).Str("path", tf.Audio).Msg("remove album track audio")
		}
	}
	return nil
}
