package tracks

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"trackwave/internal/models"
	"trackwave/internal/store"
)

// Store captures the persistence needs for track workflows.
type Store interface {
	CreateTrack(ctx context.Context, artistID int64, title, description, audioPath, imagePath string) (*models.Track, error)
	TrackByID(ctx context.Context, id int64) (*models.Track, error)
	ListTracks(ctx context.Context, limit, page int) ([]models.Track, error)
	MostLikedTracks(ctx context.Context) ([]models.Track, error)
	MostListenedTracks(ctx context.Context) ([]models.Track, error)
	TracksByGenre(ctx context.Context, genreID int64) ([]models.Track, error)
	SearchTracksByName(ctx context.Context, fragment string) ([]models.Track, error)
	IncrementListens(ctx context.Context, trackID int64) error
	UpdateTrackMeta(ctx context.Context, actorID, trackID int64, title, description *string) error
	SetTrackAudio(ctx context.Context, actorID, trackID int64, path string) (string, error)
	SetTrackImage(ctx context.Context, actorID, trackID int64, path string) (string, error)
	SetTrackGenre(ctx context.Context, actorID, trackID, genreID int64, add bool) error
	SetTrackCollection(ctx context.Context, userID, trackID int64, add bool) error
	ChangeTrackArtist(ctx context.Context, actorID, trackID, newArtistID int64) (*store.TrackRelocation, error)
	DeleteTrack(ctx context.Context, actorID, trackID int64) (*store.TrackFiles, error)
	AddComment(ctx context.Context, userID, trackID int64, text string) (*models.Comment, error)
	EditComment(ctx context.Context, actorID, commentID int64, text string) error
	DeleteComment(ctx context.Context, actorID, commentID int64) error
}

// Blobs stores track media.
type Blobs interface {
	Create(owner, kind, ext string, content io.Reader) (string, error)
	Open(owner, path string) (io.ReadCloser, error)
	Move(fromOwner, toOwner, path string) error
	Remove(owner, path string) error
}

// Upload bundles the metadata and media of a new track.
type Upload struct {
	Title       string
	Description string
	AudioExt    string
	Audio       io.Reader
	ImageExt    string
	Image       io.Reader
}

// Service coordinates track-related operations.
type Service interface {
	Upload(ctx context.Context, artistID int64, artistName string, up Upload) (*models.Track, error)
	Get(ctx context.Context, id int64) (*models.Track, error)
	List(ctx context.Context, limit, page int) ([]models.Track, error)
	MostLiked(ctx context.Context) ([]models.Track, error)
	MostListened(ctx context.Context) ([]models.Track, error)
	ByGenre(ctx context.Context, genreID int64) ([]models.Track, error)
	Search(ctx context.Context, fragment string) ([]models.Track, error)
	Listen(ctx context.Context, id int64) error
	UpdateMeta(ctx context.Context, actorID, id int64, title, description *string) error
	ReplaceAudio(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	SetGenre(ctx context.Context, actorID, id, genreID int64, add bool) error
	SetCollection(ctx context.Context, userID, id int64, add bool) error
	ChangeArtist(ctx context.Context, actorID, id, newArtistID int64) error
	Delete(ctx context.Context, actorID, id int64) error
	OpenMedia(ctx context.Context, owner, path string) (io.ReadCloser, error)
	AddComment(ctx context.Context, userID, trackID int64, text string) (*models.Comment, error)
	EditComment(ctx context.Context, actorID, commentID int64, text string) error
	DeleteComment(ctx context.Context, actorID, commentID int64) error
}

type service struct {
	store Store
	blobs Blobs
}

// New constructs a Service backed by the provided dependencies.
func New(store Store, blobs Blobs) Service {
	return &service{store: store, blobs: blobs}
}

func (s *service) Upload(ctx context.Context, artistID int64, artistName string, up Upload) (*models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audioPath, err := s.blobs.Create(artistName, "audio", up.AudioExt, up.Audio)
	if err != nil {
		return nil, err
	}
	imagePath, err := s.blobs.Create(artistName, "image", up.ImageExt, up.Image)
	if err != nil {
		_ = s.blobs.Remove(artistName, audioPath)
		return nil, err
	}

	track, err := s.store.CreateTrack(ctx, artistID, up.Title, up.Description, audioPath, imagePath)
	if err != nil {
		_ = s.blobs.Remove(artistName, audioPath)
		_ = s.blobs.Remove(artistName, imagePath)
		return nil, err
	}
	return track, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.TrackByID(ctx, id)
}

func (s *service) List(ctx context.Context, limit, page int) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListTracks(ctx, limit, page)
}

func (s *service) MostLiked(ctx context.Context) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.MostLikedTracks(ctx)
}

func (s *service) MostListened(ctx context.Context) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.MostListenedTracks(ctx)
}

func (s *service) ByGenre(ctx context.Context, genreID int64) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.TracksByGenre(ctx, genreID)
}

func (s *service) Search(ctx context.Context, fragment string) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SearchTracksByName(ctx, fragment)
}

func (s *service) Listen(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.IncrementListens(ctx, id)
}

func (s *service) UpdateMeta(ctx context.Context, actorID, id int64, title, description *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.UpdateTrackMeta(ctx, actorID, id, title, description)
}

func (s *service) ReplaceAudio(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error) {
	return s.replaceMedia(ctx, actorID, actorName, id, "audio", ext, content, s.store.SetTrackAudio)
}

func (s *service) ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error) {
	return s.replaceMedia(ctx, actorID, actorName, id, "image", ext, content, s.store.SetTrackImage)
}

func (s *service) replaceMedia(ctx context.Context, actorID int64, actorName string, id int64, kind, ext string, content io.Reader,
	set func(context.Context, int64, int64, string) (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.blobs.Create(actorName, kind, ext, content)
	if err != nil {
		return "", err
	}
	old, err := set(ctx, actorID, id, path)
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
	return s.store.SetTrackGenre(ctx, actorID, id, genreID, add)
}

func (s *service) SetCollection(ctx context.Context, userID, id int64, add bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.SetTrackCollection(ctx, userID, id, add)
}

func (s *service) ChangeArtist(ctx context.Context, actorID, id, newArtistID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	move, err := s.store.ChangeTrackArtist(ctx, actorID, id, newArtistID)
	if err != nil {
		return err
	}

	// The row already points at the new owner; a failed move only strands
	// a file, so log and carry on.
	for _, path := range []string{move.Audio, move.Image} {
		if err := s.blobs.Move(move.OldOwner, move.NewOwner, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("move track media")
		}
	}
	return nil
}

func (s *service) Delete(ctx context.Context, actorID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files, err := s.store.DeleteTrack(ctx, actorID, id)
	if err != nil {
		return err
	}
	removeTrackFiles(s.blobs, files)
	return nil
}

func (s *service) OpenMedia(ctx context.Context, owner, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.blobs.Open(owner, path)
}

func (s *service) AddComment(ctx context.Context, userID, trackID int64, text string) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AddComment(ctx, userID, trackID, text)
}

func (s *service) EditComment(ctx context.Context, actorID, commentID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.EditComment(ctx, actorID, commentID, text)
}

func (s *service) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteComment(ctx, actorID, commentID)
}

func removeTrackFiles(blobs Blobs, files *store.TrackFiles) {
	for _, path := range []string{files.Audio, files.Image} {
		if err := blobs.Remove(files.Owner, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("remove track media")
		}
	}
}
