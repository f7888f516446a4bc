package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"trackwave/internal/models"
)

var dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

// CreateUser registers a new user and grants the default role.
func (s *Store) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	nu.Email = strings.TrimSpace(strings.ToLower(nu.Email))
	nu.Username = strings.TrimSpace(nu.Username)
	if nu.Email == "" || nu.Username == "" || nu.Password == "" {
		return nil, fmt.Errorf("email, username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
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

	user := models.User{
		Email:    nu.Email,
		Username: nu.Username,
		About:    nu.About,
		Birth:    nu.Birth,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash, about, birth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, nu.Email, nu.Username, hash, nullIfEmpty(nu.About), nu.Birth, time.Now().UTC()).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
	`, user.ID, models.RoleUser); err != nil {
		return nil, fmt.Errorf("grant default role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	user.Roles, err = s.UserRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate validates credentials and returns the matching user.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var (
		id   int64
		hash []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash
		FROM users
		WHERE email = $1
	`, email).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.UserByID(ctx, id)
}

// UserByID loads a user with roles and follow references.
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.userBy(ctx, `WHERE id = $1`, id)
}

// UserByName loads a user by exact username.
func (s *Store) UserByName(ctx context.Context, username string) (*models.User, error) {
	return s.userBy(ctx, `WHERE username = $1`, username)
}

// UserByEmail loads a user by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userBy(ctx, `WHERE email = $1`, strings.TrimSpace(strings.ToLower(email)))
}

func (s *Store) userBy(ctx context.Context, where string, arg any) (*models.User, error) {
	var (
		user   models.User
		about  sql.NullString
		avatar sql.NullString
		birth  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, COALESCE(about, ''), COALESCE(avatar, ''), birth, banned, ban_reasons, created_at
		FROM users
	`+where, arg).Scan(&user.ID, &user.Email, &user.Username, &about, &avatar, &birth,
		&user.Banned, pq.Array(&user.BanReasons), &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.About = about.String
	user.Avatar = avatar.String
	if birth.Valid {
		t := birth.Time
		user.Birth = &t
	}

	if user.Roles, err = s.UserRoles(ctx, user.ID); err != nil {
		return nil, err
	}
	if user.Followers, err = s.followIDs(ctx, `SELECT follower_id FROM user_follows WHERE followee_id = $1`, user.ID); err != nil {
		return nil, err
	}
	if user.Followings, err = s.followIDs(ctx, `SELECT followee_id FROM user_follows WHERE follower_id = $1`, user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) followIDs(ctx context.Context, query string, id int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	return scanIDs(rows, "follow")
}

// ListUsers returns a page of users ordered by registration time.
func (s *Store) ListUsers(ctx context.Context, limit, page int) ([]models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listUsers(ctx, `
		SELECT id, email, username, COALESCE(about, ''), COALESCE(avatar, ''), banned, created_at
		FROM users
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`, limit, page*limit)
}

// SearchUsersByName returns users whose username contains the fragment.
func (s *Store) SearchUsersByName(ctx context.Context, fragment string) ([]models.User, error) {
	return s.listUsers(ctx, `
		SELECT id, email, username, COALESCE(about, ''), COALESCE(avatar, ''), banned, created_at
		FROM users
		WHERE username ILIKE $1
		ORDER BY username ASC
	`, "%"+fragment+"%")
}

func (s *Store) listUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.About, &u.Avatar, &u.Banned, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UserRoles returns the role set attached to a user.
func (s *Store) UserRoles(ctx context.Context, userID int64) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, COALESCE(r.description, '')
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

// UserHasRole reports whether the user holds the named role.
func (s *Store) UserHasRole(ctx context.Context, userID int64, role string) (bool, error) {
	return userHasRole(ctx, s.db, userID, role)
}

func userHasRole(ctx context.Context, q querier, userID int64, role string) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2
		)
	`, userID, role).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return ok, nil
}

// GrantRole attaches a named role to a user.
func (s *Store) GrantRole(ctx context.Context, userID int64, role string) error {
	var roleID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM roles WHERE name = $1
	`, role).Scan(&roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoleNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup role: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
	`, userID, roleID); err != nil {
		if isUniqueViolation(err) {
			return ErrRoleGranted
		}
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// RevokeRole detaches a named role from a user.
func (s *Store) RevokeRole(ctx context.Context, userID int64, role string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM user_roles
		WHERE user_id = $1 AND role_id = (SELECT id FROM roles WHERE name = $2)
	`, userID, role)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRoleNotGranted
	}
	return nil
}

// UpdateProfile updates the user's about text and/or birth date.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, about *string, birth *time.Time) error {
	if about != nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE users SET about = $2 WHERE id = $1
		`, userID, nullIfEmpty(*about)); err != nil {
			return fmt.Errorf("update about: %w", err)
		}
	}
	if birth != nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE users SET birth = $2 WHERE id = $1
		`, userID, *birth); err != nil {
			return fmt.Errorf("update birth: %w", err)
		}
	}
	return nil
}

// SetAvatar replaces the avatar path and returns the previous one.
func (s *Store) SetAvatar(ctx context.Context, userID int64, path string) (string, error) {
	var old sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT avatar FROM users WHERE id = $1
	`, userID).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get avatar: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET avatar = $2 WHERE id = $1
	`, userID, nullIfEmpty(path)); err != nil {
		return "", fmt.Errorf("update avatar: %w", err)
	}
	return old.String, nil
}

// SetBan toggles the ban flag. Reasons accumulate across bans.
func (s *Store) SetBan(ctx context.Context, userID int64, banned bool, reason string) error {
	var res sql.Result
	var err error
	if banned {
		res, err = s.db.ExecContext(ctx, `
			UPDATE users
			SET banned = TRUE, ban_reasons = array_append(ban_reasons, $2)
			WHERE id = $1 AND banned = FALSE
		`, userID, reason)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE users
			SET banned = FALSE
			WHERE id = $1 AND banned = TRUE
		`, userID)
	}
	if err != nil {
		return fmt.Errorf("set ban: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrBanUnchanged
	}
	return nil
}

// Follow records followerID following followeeID.
func (s *Store) Follow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_follows (follower_id, followee_id)
		VALUES ($1, $2)
	`, followerID, followeeID); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyFollows
		}
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

// Unfollow removes the follow edge between the two users.
func (s *Store) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM user_follows
		WHERE follower_id = $1 AND followee_id = $2
	`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFollowing
	}
	return nil
}

// OwnTrackIDs returns the union of tracks the user authored and collected.
func (s *Store) OwnTrackIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM tracks WHERE artist_id = $1
		UNION
		SELECT track_id FROM user_track_collection WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list own tracks: %w", err)
	}
	return scanIDs(rows, "own track")
}

// OwnPlaylistIDs returns the union of playlists the user authored and collected.
func (s *Store) OwnPlaylistIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM playlists WHERE user_id = $1
		UNION
		SELECT playlist_id FROM user_playlist_collection WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list own playlists: %w", err)
	}
	return scanIDs(rows, "own playlist")
}

// OwnAlbumIDs returns the union of albums the user authored and collected.
func (s *Store) OwnAlbumIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM albums WHERE artist_id = $1
		UNION
		SELECT album_id FROM user_album_collection WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list own albums: %w", err)
	}
	return scanIDs(rows, "own album")
}
