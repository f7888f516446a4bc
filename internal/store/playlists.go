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

// CreatePlaylist persists a playlist with its initial genre set in one
// transaction.
func (s *Store) CreatePlaylist(ctx context.Context, userID int64, name, description, imagePath string, genreIDs []int64) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", ErrValidation)
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

	playlist := models.Playlist{
		Name:        name,
		Description: description,
		Image:       imagePath,
		UserID:      userID,
		GenreIDs:    genreIDs,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO playlists (name, description, image, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, name, nullIfEmpty(description), imagePath, userID, time.Now().UTC()).
		Scan(&playlist.ID, &playlist.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert playlist: %w", err)
	}

	for _, genreID := range genreIDs {
		if err := setGenreMembership(ctx, tx, "playlist_genres", "playlist_id", playlist.ID, genreID, true); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return &playlist, nil
}

// PlaylistByID loads a playlist with its genre and track ids.
func (s *Store) PlaylistByID(ctx context.Context, id int64) (*models.Playlist, error) {
	playlist, err := s.playlistRow(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT genre_id FROM playlist_genres WHERE playlist_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list playlist genres: %w", err)
	}
	if playlist.GenreIDs, err = scanIDs(rows, "playlist genre"); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT track_id FROM playlist_tracks WHERE playlist_id = $1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list playlist tracks: %w", err)
	}
	if playlist.TrackIDs, err = scanIDs(rows, "playlist track"); err != nil {
		return nil, err
	}
	return playlist, nil
}

func (s *Store) playlistRow(ctx context.Context, id int64) (*models.Playlist, error) {
	var (
		playlist    models.Playlist
		description sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, image, favorites, created_at, user_id
		FROM playlists
		WHERE id = $1
	`, id).Scan(&playlist.ID, &playlist.Name, &description, &playlist.Image,
		&playlist.Favorites, &playlist.CreatedAt, &playlist.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	playlist.Description = description.String
	return &playlist, nil
}

// ListPlaylists returns a page of playlists, newest first.
func (s *Store) ListPlaylists(ctx context.Context, limit, page int) ([]models.Playlist, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listPlaylists(ctx, `
		SELECT id, name, COALESCE(description, ''), image, favorites, created_at, user_id
		FROM playlists
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, page*limit)
}

// SearchPlaylistsByName returns playlists whose name contains the fragment.
func (s *Store) SearchPlaylistsByName(ctx context.Context, fragment string) ([]models.Playlist, error) {
	return s.listPlaylists(ctx, `
		SELECT id, name, COALESCE(description, ''), image, favorites, created_at, user_id
		FROM playlists
		WHERE name ILIKE $1
		ORDER BY id ASC
	`, "%"+fragment+"%")
}

// PlaylistsByGenre returns all playlists tagged with the genre.
func (s *Store) PlaylistsByGenre(ctx context.Context, genreID int64) ([]models.Playlist, error) {
	return s.listPlaylists(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, ''), p.image, p.favorites, p.created_at, p.user_id
		FROM playlist_genres pg
		JOIN playlists p ON p.id = pg.playlist_id
		WHERE pg.genre_id = $1
		ORDER BY p.id ASC
	`, genreID)
}

func (s *Store) listPlaylists(ctx context.Context, query string, args ...any) ([]models.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Favorites, &p.CreatedAt, &p.UserID); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// UpdatePlaylistMeta updates name and/or description. Owner only.
func (s *Store) UpdatePlaylistMeta(ctx context.Context, actorID, playlistID int64, name, description *string) error {
	playlist, err := s.playlistRow(ctx, playlistID)
	if err != nil {
		return err
	}
	if playlist.UserID != actorID {
		return ErrPermissionDenied
	}

	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return fmt.Errorf("%w: playlist name", ErrValidation)
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE playlists SET name = $2 WHERE id = $1
		`, playlistID, strings.TrimSpace(*name)); err != nil {
			return fmt.Errorf("update playlist name: %w", err)
		}
	}
	if description != nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE playlists SET description = $2 WHERE id = $1
		`, playlistID, nullIfEmpty(*description)); err != nil {
			return fmt.Errorf("update playlist description: %w", err)
		}
	}
	return nil
}

// SetPlaylistImage replaces the cover image path. Owner only. Returns the
// previous path.
func (s *Store) SetPlaylistImage(ctx context.Context, actorID, playlistID int64, path string) (string, error) {
	playlist, err := s.playlistRow(ctx, playlistID)
	if err != nil {
		return "", err
	}
	if playlist.UserID != actorID {
		return "", ErrPermissionDenied
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE playlists SET image = $2 WHERE id = $1
	`, playlistID, path); err != nil {
		return "", fmt.Errorf("update playlist image: %w", err)
	}
	return playlist.Image, nil
}

// SetPlaylistGenre attaches or detaches a genre. Owner only.
func (s *Store) SetPlaylistGenre(ctx context.Context, actorID, playlistID, genreID int64, add bool) error {
	playlist, err := s.playlistRow(ctx, playlistID)
	if err != nil {
		return err
	}
	if playlist.UserID != actorID {
		return ErrPermissionDenied
	}
	return setGenreMembership(ctx, s.db, "playlist_genres", "playlist_id", playlistID, genreID, add)
}

// SetPlaylistTrack adds or removes a track from the playlist. Owner only.
// The track's favorites counter moves with the membership inside one
// transaction.
func (s *Store) SetPlaylistTrack(ctx context.Context, actorID, playlistID, trackID int64, add bool) error {
	playlist, err := s.playlistRow(ctx, playlistID)
	if err != nil {
		return err
	}
	if playlist.UserID != actorID {
		return ErrPermissionDenied
	}

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
			return fmt.Errorf("increment track favorites: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrTrackNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, track_id, position)
			SELECT $1, $2, COALESCE(MAX(position), 0) + 1
			FROM playlist_tracks
			WHERE playlist_id = $1
		`, playlistID, trackID); err != nil {
			if isUniqueViolation(err) {
				return ErrTrackInPlaylist
			}
			return fmt.Errorf("insert playlist track: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM playlist_tracks
			WHERE playlist_id = $1 AND track_id = $2
		`, playlistID, trackID)
		if err != nil {
			return fmt.Errorf("delete playlist track: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrTrackNotInPlaylist
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tracks SET favorites = favorites - 1 WHERE id = $1
		`, trackID); err != nil {
			return fmt.Errorf("decrement track favorites: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// SetPlaylistCollection adds or removes the playlist from the user's
// collection, keeping the favorites counter in step.
func (s *Store) SetPlaylistCollection(ctx context.Context, userID, playlistID int64, add bool) error {
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
			UPDATE playlists SET favorites = favorites + 1 WHERE id = $1
		`, playlistID)
		if err != nil {
			return fmt.Errorf("increment favorites: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrPlaylistNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_playlist_collection (user_id, playlist_id)
			VALUES ($1, $2)
		`, userID, playlistID); err != nil {
			if isUniqueViolation(err) {
				return ErrInCollection
			}
			return fmt.Errorf("insert collection row: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM user_playlist_collection
			WHERE user_id = $1 AND playlist_id = $2
		`, userID, playlistID)
		if err != nil {
			return fmt.Errorf("delete collection row: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrNotInCollection
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE playlists SET favorites = favorites - 1 WHERE id = $1
		`, playlistID); err != nil {
			return fmt.Errorf("decrement favorites: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// PlaylistFiles carries the blob path released by a playlist deletion.
type PlaylistFiles struct {
	Image string
	Owner string
}

// DeletePlaylist removes a playlist and its references in one transaction:
// member tracks lose one favorite each, then memberships, genre links,
// collection rows and the playlist row go. Owner or admin only. Returns
// the cover image path for blob cleanup.
func (s *Store) DeletePlaylist(ctx context.Context, actorID, playlistID int64) (*PlaylistFiles, error) {
	playlist, err := s.playlistRow(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := s.requireArtistOrAdmin(ctx, actorID, playlist.UserID); err != nil {
		return nil, err
	}

	var ownerName string
	err = s.db.QueryRowContext(ctx, `
		SELECT username FROM users WHERE id = $1
	`, playlist.UserID).Scan(&ownerName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup playlist owner: %w", err)
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

	if _, err := tx.ExecContext(ctx, `
		UPDATE tracks SET favorites = favorites - 1
		WHERE id IN (SELECT track_id FROM playlist_tracks WHERE playlist_id = $1)
	`, playlistID); err != nil {
		return nil, fmt.Errorf("decrement member favorites: %w", err)
	}

	for _, q := range []string{
		`DELETE FROM playlist_tracks WHERE playlist_id = $1`,
		`DELETE FROM playlist_genres WHERE playlist_id = $1`,
		`DELETE FROM user_playlist_collection WHERE playlist_id = $1`,
		`DELETE FROM playlists WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, playlistID); err != nil {
			return nil, fmt.Errorf("cascade playlist delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return &PlaylistFiles{Image: playlist.Image, Owner: ownerName}, nil
}
