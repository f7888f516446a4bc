package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"trackwave/internal/models"
)

// CreateGenre adds a genre. Names are unique case-insensitively.
func (s *Store) CreateGenre(ctx context.Context, name, description string) (*models.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: genre name", ErrValidation)
	}

	genre := models.Genre{Name: name, Description: description}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO genres (name, description)
		VALUES ($1, $2)
		RETURNING id
	`, name, nullIfEmpty(description)).Scan(&genre.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrGenreExists
		}
		return nil, fmt.Errorf("insert genre: %w", err)
	}
	return &genre, nil
}

// GenreByID loads a genre with its membership back-references.
func (s *Store) GenreByID(ctx context.Context, id int64) (*models.Genre, error) {
	var genre models.Genre
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, '')
		FROM genres
		WHERE id = $1
	`, id).Scan(&genre.ID, &genre.Name, &genre.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGenreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get genre: %w", err)
	}

	if genre.TrackIDs, err = s.genreMembers(ctx, `SELECT track_id FROM track_genres WHERE genre_id = $1`, id); err != nil {
		return nil, err
	}
	if genre.PlaylistIDs, err = s.genreMembers(ctx, `SELECT playlist_id FROM playlist_genres WHERE genre_id = $1`, id); err != nil {
		return nil, err
	}
	if genre.AlbumIDs, err = s.genreMembers(ctx, `SELECT album_id FROM album_genres WHERE genre_id = $1`, id); err != nil {
		return nil, err
	}
	return &genre, nil
}

func (s *Store) genreMembers(ctx context.Context, query string, genreID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, genreID)
	if err != nil {
		return nil, fmt.Errorf("list genre members: %w", err)
	}
	return scanIDs(rows, "genre member")
}

// ListGenres returns all genres without membership sets.
func (s *Store) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, '')
		FROM genres
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}
	return genres, nil
}

// DeleteGenre removes a genre and detaches it from every track, playlist
// and album in one transaction.
func (s *Store) DeleteGenre(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{
		`DELETE FROM track_genres WHERE genre_id = $1`,
		`DELETE FROM playlist_genres WHERE genre_id = $1`,
		`DELETE FROM album_genres WHERE genre_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("detach genre: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete genre: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrGenreNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// setGenreMembership pairs a genre with an entity inside the given
// transaction. The join row realizes both sides of the back-reference, so
// readers never observe a half-updated pair.
func setGenreMembership(ctx context.Context, q querier, table, entityCol string, entityID, genreID int64, add bool) error {
	if add {
		var exists bool
		err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM genres WHERE id = $1)`, genreID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check genre: %w", err)
		}
		if !exists {
			return ErrGenreNotFound
		}

		if _, err := q.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (%s, genre_id) VALUES ($1, $2)`, table, entityCol),
			entityID, genreID); err != nil {
			if isUniqueViolation(err) {
				return ErrGenreAttached
			}
			return fmt.Errorf("attach genre: %w", err)
		}
		return nil
	}

	res, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND genre_id = $2`, table, entityCol),
		entityID, genreID)
	if err != nil {
		return fmt.Errorf("detach genre: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrGenreNotAttached
	}
	return nil
}
