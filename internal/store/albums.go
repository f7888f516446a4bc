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

// NewAlbumTrack describes one track of an album batch. The audio blob is
// uploaded by the caller before the insert.
type NewAlbumTrack struct {
	Title       string
	Description string
	AudioPath   string
}

// AlbumFiles carries the blob paths released by an album deletion.
type AlbumFiles struct {
	Image  string
	Owner  string
	Tracks []TrackFiles
}

// CreateAlbum persists an album together with its track batch in one
// transaction. Member tracks are born protected, carry the album cover
// and point back at the album. Artist role required.
func (s *Store) CreateAlbum(ctx context.Context, artistID int64, name, description, imagePath string, genreIDs []int64, tracks []NewAlbumTrack) (*models.Album, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: album name", ErrValidation)
	}
	for _, t := range tracks {
		if strings.TrimSpace(t.Title) == "" {
			return nil, fmt.Errorf("%w: track title", ErrValidation)
		}
	}

	isArtist, err := s.UserHasRole(ctx, artistID, models.RoleArtist)
	if err != nil {
		return nil, err
	}
	if !isArtist {
		return nil, ErrPermissionDenied
	}

	var ownerName string
	err = s.db.QueryRowContext(ctx, `
		SELECT username FROM users WHERE id = $1
	`, artistID).Scan(&ownerName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup artist: %w", err)
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

	album := models.Album{
		OwnerName:   ownerName,
		Name:        name,
		Description: description,
		Image:       imagePath,
		ArtistID:    artistID,
		GenreIDs:    genreIDs,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO albums (owner_name, name, description, image, artist_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, ownerName, name, nullIfEmpty(description), imagePath, artistID, time.Now().UTC()).
		Scan(&album.ID, &album.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert album: %w", err)
	}

	for _, genreID := range genreIDs {
		if err := setGenreMembership(ctx, tx, "album_genres", "album_id", album.ID, genreID, true); err != nil {
			return nil, err
		}
	}

	for _, t := range tracks {
		var trackID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tracks (owner_name, title, description, audio, image, protected_deletion, artist_id, album_id, created_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8)
			RETURNING id
		`, ownerName, strings.TrimSpace(t.Title), nullIfEmpty(t.Description), t.AudioPath, imagePath, artistID, album.ID, time.Now().UTC()).
			Scan(&trackID)
		if err != nil {
			return nil, fmt.Errorf("insert album track: %w", err)
		}
		album.TrackIDs = append(album.TrackIDs, trackID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return &album, nil
}

// AlbumByID loads an album with its genre and track ids.
func (s *Store) AlbumByID(ctx context.Context, id int64) (*models.Album, error) {
	album, err := s.albumRow(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT genre_id FROM album_genres WHERE album_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list album genres: %w", err)
	}
	if album.GenreIDs, err = scanIDs(rows, "album genre"); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id FROM tracks WHERE album_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list album tracks: %w", err)
	}
	if album.TrackIDs, err = scanIDs(rows, "album track"); err != nil {
		return nil, err
	}
	return album, nil
}

func (s *Store) albumRow(ctx context.Context, id int64) (*models.Album, error) {
	var (
		album       models.Album
		description sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_name, name, description, image, favorites, created_at, artist_id
		FROM albums
		WHERE id = $1
	`, id).Scan(&album.ID, &album.OwnerName, &album.Name, &description, &album.Image,
		&album.Favorites, &album.CreatedAt, &album.ArtistID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlbumNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	album.Description = description.String
	return &album, nil
}

// ListAlbums returns a page of albums, newest first.
func (s *Store) ListAlbums(ctx context.Context, limit, page int) ([]models.Album, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listAlbums(ctx, `
		SELECT id, owner_name, name, COALESCE(description, ''), image, favorites, created_at, artist_id
		FROM albums
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, page*limit)
}

// MostLikedAlbums returns the ten albums with the highest favorites count.
func (s *Store) MostLikedAlbums(ctx context.Context) ([]models.Album, error) {
	return s.listAlbums(ctx, `
		SELECT id, owner_name, name, COALESCE(description, ''), image, favorites, created_at, artist_id
		FROM albums
		ORDER BY favorites DESC, id ASC
		LIMIT 10
	`)
}

// AlbumsByArtist returns all albums authored by the artist.
func (s *Store) AlbumsByArtist(ctx context.Context, artistID int64) ([]models.Album, error) {
	return s.listAlbums(ctx, `
		SELECT id, owner_name, name, COALESCE(description, ''), image, favorites, created_at, artist_id
		FROM albums
		WHERE artist_id = $1
		ORDER BY id ASC
	`, artistID)
}

// SearchAlbumsByName returns albums whose name contains the fragment.
func (s *Store) SearchAlbumsByName(ctx context.Context, fragment string) ([]models.Album, error) {
	return s.listAlbums(ctx, `
		SELECT id, owner_name, name, COALESCE(description, ''), image, favorites, created_at, artist_id
		FROM albums
		WHERE name ILIKE $1
		ORDER BY id ASC
	`, "%"+fragment+"%")
}

// AlbumsByGenre returns all albums tagged with the genre.
func (s *Store) AlbumsByGenre(ctx context.Context, genreID int64) ([]models.Album, error) {
	return s.listAlbums(ctx, `
		SELECT a.id, a.owner_name, a.name, COALESCE(a.description, ''), a.image, a.favorites, a.created_at, a.artist_id
		FROM album_genres ag
		JOIN albums a ON a.id = ag.album_id
		WHERE ag.genre_id = $1
		ORDER BY a.id ASC
	`, genreID)
}

func (s *Store) listAlbums(ctx context.Context, query string, args ...any) ([]models.Album, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		var a models.Album
		if err := rows.Scan(&a.ID, &a.OwnerName, &a.Name, &a.Description, &a.Image, &a.Favorites, &a.CreatedAt, &a.ArtistID); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// UpdateAlbumMeta updates name and/or description. Artist only.
func (s *Store) UpdateAlbumMeta(ctx context.Context, actorID, albumID int64, name, description *string) error {
	album, err := s.albumRow(ctx, albumID)
	if err != nil {
		return err
	}
	if album.ArtistID != actorID {
		return ErrPermissionDenied
	}

	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return fmt.Errorf("%w: album name", ErrValidation)
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE albums SET name = $2 WHERE id = $1
		`, albumID, strings.TrimSpace(*name)); err != nil {
			return fmt.Errorf("update album name: %w", err)
		}
	}
	if description != nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE albums SET description = $2 WHERE id = $1
		`, albumID, nullIfEmpty(*description)); err != nil {
			return fmt.Errorf("update album description: %w", err)
		}
	}
	return nil
}

// SetAlbumImage replaces the cover and propagates it to every member
// track in one transaction. Artist only. Returns the previous path.
func (s *Store) SetAlbumImage(ctx context.Context, actorID, albumID int64, path string) (string, error) {
	album, err := s.albumRow(ctx, albumID)
	if err != nil {
		return "", err
	}
	if album.ArtistID != actorID {
		return "", ErrPermissionDenied
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		UPDATE albums SET image = $2 WHERE id = $1
	`, albumID, path); err != nil {
		return "", fmt.Errorf("update album image: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tracks SET image = $2 WHERE album_id = $1
	`, albumID, path); err != nil {
		return "", fmt.Errorf("update member images: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return album.Image, nil
}

// SetAlbumGenre attaches or detaches a genre. Artist only.
func (s *Store) SetAlbumGenre(ctx context.Context, actorID, albumID, genreID int64, add bool) error {
	album, err := s.albumRow(ctx, albumID)
	if err != nil {
		return err
	}
	if album.ArtistID != actorID {
		return ErrPermissionDenied
	}
	return setGenreMembership(ctx, s.db, "album_genres", "album_id", albumID, genreID, add)
}

// AttachAlbumTrack moves one of the artist's standalone tracks into the
// album. The track becomes protected and takes on the album cover.
// Artist or admin only. Returns the track's previous image path for blob
// cleanup.
func (s *Store) AttachAlbumTrack(ctx context.Context, actorID, albumID, trackID int64) (string, error) {
	album, err := s.albumRow(ctx, albumID)
	if err != nil {
		return "", err
	}
	if err := s.requireArtistOrAdmin(ctx, actorID, album.ArtistID); err != nil {
		return "", err
	}

	track, err := s.trackRow(ctx, s.db, trackID)
	if err != nil {
		return "", err
	}
	if track.ArtistID != album.ArtistID {
		return "", ErrPermissionDenied
	}
	if track.AlbumID != nil {
		return "", ErrTrackInAlbum
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE tracks SET album_id = $2, protected_deletion = TRUE, image = $3 WHERE id = $1
	`, trackID, albumID, album.Image); err != nil {
		return "", fmt.Errorf("attach album track: %w", err)
	}
	return track.Image, nil
}

// DetachAlbumTrack releases a track from the album. The caller provides a
// fresh image path (a copy of the album cover) so the track keeps its
// artwork once the album no longer owns it. Artist or admin only.
func (s *Store) DetachAlbumTrack(ctx context.Context, actorID, albumID, trackID int64, newImagePath string) error {
	album, err := s.albumRow(ctx, albumID)
	if err != nil {
		return err
	}
	if err := s.requireArtistOrAdmin(ctx, actorID, album.ArtistID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tracks SET album_id = NULL, protected_deletion = FALSE, image = $3
		WHERE id = $1 AND album_id = $2
	`, trackID, albumID, newImagePath)
	if err != nil {
		return fmt.Errorf("detach album track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTrackNotInAlbum
	}
	return nil
}

// SetAlbumCollection adds or removes the album from the user's collection,
// keeping the favorites counter in step.
func (s *Store) SetAlbumCollection(ctx context.Context, userID, albumID int64, add bool) error {
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
			UPDATE albums SET favorites = favorites + 1 WHERE id = $1
		`, albumID)
		if err != nil {
			return fmt.Errorf("increment favorites: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrAlbumNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_album_collection (user_id, album_id)
			VALUES ($1, $2)
		`, userID, albumID); err != nil {
			if isUniqueViolation(err) {
				return ErrInCollection
			}
			return fmt.Errorf("insert collection row: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM user_album_collection
			WHERE user_id = $1 AND album_id = $2
		`, userID, albumID)
		if err != nil {
			return fmt.Errorf("delete collection row: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrNotInCollection
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE albums SET favorites = favorites - 1 WHERE id = $1
		`, albumID); err != nil {
			return fmt.Errorf("decrement favorites: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// DeleteAlbum removes the album and every member track in one transaction.
// The per-track cascade runs on the privileged path, so protection does
// not block it. Artist or admin only. Returns all released blob paths.
func (s *Store) DeleteAlbum(ctx context.Context, actorID, albumID int64) (*AlbumFiles, error) {
	album, err := s.albumRow(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if err := s.requireArtistOrAdmin(ctx, actorID, album.ArtistID); err != nil {
		return nil, err
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

	rows, err := tx.QueryContext(ctx, `SELECT id FROM tracks WHERE album_id = $1`, albumID)
	if err != nil {
		return nil, fmt.Errorf("list album tracks: %w", err)
	}
	trackIDs, err := scanIDs(rows, "album track")
	if err != nil {
		return nil, err
	}

	files := AlbumFiles{Image: album.Image, Owner: album.OwnerName}
	for _, trackID := range trackIDs {
		tf, err := deleteTrackTx(ctx, tx, trackID)
		if err != nil {
			return nil, err
		}
		files.Tracks = append(files.Tracks, *tf)
	}

	for _, q := range []string{
		`DELETE FROM album_genres WHERE album_id = $1`,
		`DELETE FROM user_album_collection WHERE album_id = $1`,
		`DELETE FROM albums WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, albumID); err != nil {
			return nil, fmt.Errorf("cascade album delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return &files, nil
}
