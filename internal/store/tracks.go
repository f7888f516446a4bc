package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackwave/internal/models"
)

// TrackFiles carries blob paths out of a mutation so the caller can clean
// up or relocate files after the transaction commits.
type TrackFiles struct {
	Audio string
	Image string
	Owner string
}

// TrackRelocation describes the blob moves required by an artist change.
type TrackRelocation struct {
	Audio    string
	Image    string
	OldOwner string
	NewOwner string
}

// CreateTrack persists an uploaded track. The owner-name snapshot is taken
// from the artist row at insert time.
func (s *Store) CreateTrack(ctx context.Context, artistID int64, title, description, audioPath, imagePath string) (*models.Track, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: track title", ErrValidation)
	}

	var ownerName string
	err := s.db.QueryRowContext(ctx, `
		SELECT username FROM users WHERE id = $1
	`, artistID).Scan(&ownerName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup artist: %w", err)
	}

	track := models.Track{
		OwnerName:   ownerName,
		Title:       title,
		Description: description,
		Audio:       audioPath,
		Image:       imagePath,
		ArtistID:    artistID,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO tracks (owner_name, title, description, audio, image, artist_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, ownerName, title, nullIfEmpty(description), audioPath, imagePath, artistID, time.Now().UTC()).
		Scan(&track.ID, &track.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert track: %w", err)
	}
	return &track, nil
}

// TrackByID loads a track with genre ids and comments.
func (s *Store) TrackByID(ctx context.Context, id int64) (*models.Track, error) {
	track, err := s.trackRow(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT genre_id FROM track_genres WHERE track_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list track genres: %w", err)
	}
	if track.GenreIDs, err = scanIDs(rows, "track genre"); err != nil {
		return nil, err
	}

	if track.Comments, err = s.CommentsByTrack(ctx, id); err != nil {
		return nil, err
	}
	return track, nil
}

func (s *Store) trackRow(ctx context.Context, q querier, id int64) (*models.Track, error) {
	var (
		track       models.Track
		description sql.NullString
		albumID     sql.NullInt64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, owner_name, title, description, listens, favorites, audio, image, protected_deletion, created_at, artist_id, album_id
		FROM tracks
		WHERE id = $1
	`, id).Scan(&track.ID, &track.OwnerName, &track.Title, &description, &track.Listens, &track.Favorites,
		&track.Audio, &track.Image, &track.ProtectedDeletion, &track.CreatedAt, &track.ArtistID, &albumID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	track.Description = description.String
	if albumID.Valid {
		track.AlbumID = &albumID.Int64
	}
	return &track, nil
}

// ListTracks returns a page of tracks, newest first.
func (s *Store) ListTracks(ctx context.Context, limit, page int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listTracks(ctx, `
		SELECT id, owner_name, title, COALESCE(description, ''), listens, favorites, audio, image, protected_deletion, created_at, artist_id, album_id
		FROM tracks
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, page*limit)
}

// MostLikedTracks returns the ten tracks with the highest favorites count.
func (s *Store) MostLikedTracks(ctx context.Context) ([]models.Track, error) {
	return s.listTracks(ctx, `
		SELECT id, owner_name, title, COALESCE(description, ''), listens, favorites, audio, image, protected_deletion, created_at, artist_id, album_id
		FROM tracks
		ORDER BY favorites DESC, id ASC
		LIMIT 10
	`)
}

// MostListenedTracks returns the ten tracks with the highest listen count.
func (s *Store) MostListenedTracks(ctx context.Context) ([]models.Track, error) {
	return s.listTracks(ctx, `
		SELECT id, owner_name, title, COALESCE(description, ''), listens, favorites, audio, image, protected_deletion, created_at, artist_id, album_id
		FROM tracks
		ORDER BY listens DESC, id ASC
		LIMIT 10
	`)
}

// TracksByGenre returns all tracks tagged with the genre.
func (s *Store) TracksByGenre(ctx context.Context, genreID int64) ([]models.Track, error) {
	return s.listTracks(ctx, `
		SELECT t.id, t.owner_name, t.title, COALESCE(t.description, ''), t.listens, t.favorites, t.audio, t.image, t.protected_deletion, t.created_at, t.artist_id, t.album_id
		FROM track_genres tg
		JOIN tracks t ON t.id = tg.track_id
		WHERE tg.genre_id = $1
		ORDER BY t.id ASC
	`, genreID)
}

// SearchTracksByName returns tracks whose title contains the fragment.
func (s *Store) SearchTracksByName(ctx context.Context, fragment string) ([]models.Track, error) {
	return s.listTracks(ctx, `
		SELECT id, owner_name, title, COALESCE(description, ''), listens, favorites, audio, image, protected_deletion, created_at, artist_id, album_id
		FROM tracks
		WHERE title ILIKE $1
		ORDER BY id ASC
	`, "%"+fragment+"%")
}

func (s *Store) listTracks(ctx context.Context, query string, args ...any) ([]models.Track, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var (
			t       models.Track
			albumID sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.OwnerName, &t.Title, &t.Description, &t.Listens, &t.Favorites,
			&t.Audio, &t.Image, &t.ProtectedDeletion, &t.CreatedAt, &t.ArtistID, &albumID); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		if albumID.Valid {
			t.AlbumID = &albumID.Int64
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// IncrementListens bumps the listen counter. Unauthenticated by design.
func (s *Store) IncrementListens(ctx context.Context, trackID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tracks SET listens = listens + 1 WHERE id = $1
	`, trackID)
	if err != nil {
		return fmt.Errorf("increment listens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTrackNotFound
	}
	return nil
}

// UpdateTrackMeta updates title and/or description. Artist only.
func (s *Store) UpdateTrackMeta(ctx context.Context, actorID, trackID int64, title, description *string) error {
	track, err := s.trackRow(ctx, s.db, trackID)
	if err != nil {
		return err
	}
	if track.ArtistID != actorID {
		return ErrPermissionDenied
	}

	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return fmt.Errorf("%w: track title", ErrValidation)
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE tracks SET title = $2 WHERE id = $1
		`, trackID, strings.TrimSpace(*title)); err != nil {
			return fmt.Errorf("update track title: %w", err)
		}
	}
	if description != nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE tracks SET description = $2 WHERE id = $1
		`, trackID, nullIfEmpty(*description)); err != nil {
			return fmt.Errorf("update track description: %w", err)
		}
	}
	return nil
}

// SetTrackAudio replaces the audio path. Artist only. Returns the previous
// path so the caller can drop the old blob.
func (s *Store) SetTrackAudio(ctx context.Context, actorID, trackID int64, path string) (string, error) {
	return s.setTrackFile(ctx, actorID, trackID, "audio", path)
}

// SetTrackImage replaces the image path. Artist only.
func (s *Store) SetTrackImage(ctx context.Context, actorID, trackID int64, path string) (string, error) {
	return s.setTrackFile(ctx, actorID, trackID, "image", path)
}

func (s *Store) setTrackFile(ctx context.Context, actorID, trackID int64, column, path string) (string, error) {
	track, err := s.trackRow(ctx, s.db, trackID)
	if err != nil {
		return "", err
	}
	if track.ArtistID != actorID {
		return "", ErrPermissionDenied
	}

	old := track.Audio
	if column == "image" {
		old = track.Image
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE tracks SET %s = $2 WHERE id = $1`, column),
		trackID, path); err != nil {
		return "", fmt.Errorf("update track %s: %w", column, err)
	}
	return old, nil
}

// SetTrackGenre attaches or detaches a genre. Artist only.
func (s *Store) SetTrackGenre(ctx context.Context, actorID, trackID, genreID int64, add bool) error {
	track, err := s.trackRow(ctx, s.db, trackID)
	if err != nil {
		return err
	}
	if track.ArtistID != actorID {
		return ErrPermissionDenied
	}
	return setGenreMembership(ctx, s.db, "track_genres", "track_id", trackID, genreID, add)
}

// SetTrackCollection adds or removes the track from the user's collection,
// keeping the favorites counter in step within one transaction.
func (s *Store) SetTrackCollection(ctx context.Context, userID, trackID int64, add bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if add {
		res, err := tx.ExecContext(ctx, `
			UPDATE tracks SET favorites = favorites + 1 WHERE id = $1
		`, trackID)
		if err != nil {
			return fmt.Errorf("increment favorites: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrTrackNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_track_collection (user_id, track_id)
			VALUES ($1, $2)
		`, userID, trackID); err != nil {
			if isUniqueViolation(err) {
				return ErrInCollection
			}
			return fmt.Errorf("insert collection row: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM user_track_collection
			WHERE user_id = $1 AND track_id = $2
		`, userID, trackID)
		if err != nil {
			return fmt.Errorf("delete collection row: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrNotInCollection
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tracks SET favorites = favorites - 1 WHERE id = $1
		`, trackID); err != nil {
			return fmt.Errorf("decrement favorites: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// ChangeTrackArtist reassigns a track to a new owner. Admin only; rejected
// while the track is protected, and the new owner must hold the artist
// role. Returns the blob moves the caller must perform.
func (s *Store) ChangeTrackArtist(ctx context.Context, actorID, trackID, newArtistID int64) (*TrackRelocation, error) {
	isAdmin, err := s.UserHasRole(ctx, actorID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrPermissionDenied
	}

	track, err := s.trackRow(ctx, s.db, trackID)
	if err != nil {
		return nil, err
	}
	if track.ProtectedDeletion {
		return nil, ErrTrackProtected
	}
	if track.ArtistID == newArtistID {
		return nil, ErrPermissionDenied
	}

	newOwner, err := s.UserByID(ctx, newArtistID)
	if err != nil {
		return nil, err
	}
	isArtist, err := s.UserHasRole(ctx, newArtistID, models.RoleArtist)
	if err != nil {
		return nil, err
	}
	if !isArtist {
		return nil, ErrPermissionDenied
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE tracks SET artist_id = $2, owner_name = $3 WHERE id = $1
	`, trackID, newArtistID, newOwner.Username); err != nil {
		return nil, fmt.Errorf("reassign track: %w", err)
	}

	return &TrackRelocation{
		Audio:    track.Audio,
		Image:    track.Image,
		OldOwner: track.OwnerName,
		NewOwner: newOwner.Username,
	}, nil
}

// DeleteTrack removes a track and every reference to it: comments,
// collection rows, playlist memberships and genre memberships, all in one
// transaction. Protected tracks are rejected; the caller must detach them
// from their album first. Artist or admin only.
func (s *Store) DeleteTrack(ctx context.Context, actorID, trackID int64) (*TrackFiles, error) {
	track, err := s.trackRow(ctx, s.db, trackID)
	if err != nil {
		return nil, err
	}
	if err := s.requireArtistOrAdmin(ctx, actorID, track.ArtistID); err != nil {
		return nil, err
	}
	if track.ProtectedDeletion {
		return nil, ErrTrackProtected
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	files, err := deleteTrackTx(ctx, tx, trackID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return files, nil
}

// deleteTrackTx performs the track cascade inside an existing transaction.
// It ignores the protection flag; album deletion uses it as the privileged
// path.
func deleteTrackTx(ctx context.Context, tx *sql.Tx, trackID int64) (*TrackFiles, error) {
	var files TrackFiles
	err := tx.QueryRowContext(ctx, `
		SELECT audio, image, owner_name FROM tracks WHERE id = $1
	`, trackID).Scan(&files.Audio, &files.Image, &files.Owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track files: %w", err)
	}

	for _, q := range []string{
		`DELETE FROM comments WHERE track_id = $1`,
		`DELETE FROM user_track_collection WHERE track_id = $1`,
		`DELETE FROM playlist_tracks WHERE track_id = $1`,
		`DELETE FROM track_genres WHERE track_id = $1`,
		`DELETE FROM tracks WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, trackID); err != nil {
			return nil, fmt.Errorf("cascade track delete: %w", err)
		}
	}
	return &files, nil
}
