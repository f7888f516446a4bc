package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"trackwave/internal/models"
)

var (
	// ErrUserExists signals the email or username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrPermissionDenied indicates an ownership or role check failed.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidation wraps rejected input.
	ErrValidation = errors.New("validation failed")

	ErrUserNotFound     = errors.New("user not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrGenreNotFound    = errors.New("genre not found")
	ErrTrackNotFound    = errors.New("track not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrAlbumNotFound    = errors.New("album not found")

	ErrRoleExists  = errors.New("role already exists")
	ErrGenreExists = errors.New("genre already exists")

	ErrGenreAttached    = errors.New("entity already has this genre")
	ErrGenreNotAttached = errors.New("entity does not have this genre")

	ErrInCollection    = errors.New("entity already in collection")
	ErrNotInCollection = errors.New("entity not in collection")

	ErrTrackInPlaylist    = errors.New("playlist already includes this track")
	ErrTrackNotInPlaylist = errors.New("playlist does not include this track")
	ErrTrackInAlbum       = errors.New("album already includes this track")
	ErrTrackNotInAlbum    = errors.New("album does not include this track")

	// ErrTrackProtected rejects direct deletion of a track that still
	// belongs to an album.
	ErrTrackProtected = errors.New("track is protected, detach it from its album first")

	ErrRoleGranted    = errors.New("user already has this role")
	ErrRoleNotGranted = errors.New("user does not have this role")

	ErrBanUnchanged   = errors.New("user already in requested ban state")
	ErrAlreadyFollows = errors.New("already following this user")
	ErrNotFollowing   = errors.New("not following this user")
	ErrSelfFollow     = errors.New("cannot follow yourself")

	// ErrUserBanned rejects writes from banned users.
	ErrUserBanned = errors.New("user is banned")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// requireArtistOrAdmin passes when the actor owns the entity or holds the
// admin role.
func (s *Store) requireArtistOrAdmin(ctx context.Context, actorID, ownerID int64) error {
	if actorID == ownerID {
		return nil
	}
	isAdmin, err := s.UserHasRole(ctx, actorID, models.RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrPermissionDenied
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// querier matches both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func scanIDs(rows *sql.Rows, what string) ([]int64, error) {
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return ids, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
