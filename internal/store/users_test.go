package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"trackwave/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return New(db), mock, func() { db.Close() }
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func TestCreateUserSuccess(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO users (email, username, password_hash, about, birth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`)).
		WithArgs("ada@example.com", "ada", sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
	`)).
		WithArgs(int64(1), models.RoleUser).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT r.id, r.name, COALESCE(r.description, '')
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
	`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow(int64(1), models.RoleUser, ""))

	user, err := s.CreateUser(context.Background(), models.NewUser{
		Email:    "Ada@Example.com",
		Username: "ada",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID != 1 || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if len(user.Roles) != 1 || user.Roles[0].Name != models.RoleUser {
		t.Fatalf("expected default role, got %+v", user.Roles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(uniqueViolation())
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), models.NewUser{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "hunter22",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, password_hash
		FROM users
		WHERE email = $1
	`)).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow(int64(1), hash))

	_, err = s.Authenticate(context.Background(), "ada@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, password_hash`)).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}))

	_, err := s.Authenticate(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestFollowSelf(t *testing.T) {
	s, _, done := newMockStore(t)
	defer done()

	if err := s.Follow(context.Background(), 3, 3); !errors.Is(err, ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}
}

func TestFollowDuplicate(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO user_follows (follower_id, followee_id)
		VALUES ($1, $2)
	`)).
		WithArgs(int64(3), int64(4)).
		WillReturnError(uniqueViolation())

	if err := s.Follow(context.Background(), 3, 4); !errors.Is(err, ErrAlreadyFollows) {
		t.Fatalf("expected ErrAlreadyFollows, got %v", err)
	}
}

func TestUnfollowNotFollowing(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`
		DELETE FROM user_follows
		WHERE follower_id = $1 AND followee_id = $2
	`)).
		WithArgs(int64(3), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Unfollow(context.Background(), 3, 4); !errors.Is(err, ErrNotFollowing) {
		t.Fatalf("expected ErrNotFollowing, got %v", err)
	}
}

func TestSetBanUnchanged(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE users
		SET banned = TRUE, ban_reasons = array_append(ban_reasons, $2)
		WHERE id = $1 AND banned = FALSE
	`)).
		WithArgs(int64(5), "spam").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := s.SetBan(context.Background(), 5, true, "spam"); !errors.Is(err, ErrBanUnchanged) {
		t.Fatalf("expected ErrBanUnchanged, got %v", err)
	}
}

func TestSetBanUserNotFound(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE users
		SET banned = FALSE
		WHERE id = $1 AND banned = TRUE
	`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if err := s.SetBan(context.Background(), 5, false, ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRevokeRoleNotGranted(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`
		DELETE FROM user_roles
		WHERE user_id = $1 AND role_id = (SELECT id FROM roles WHERE name = $2)
	`)).
		WithArgs(int64(5), models.RoleArtist).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.RevokeRole(context.Background(), 5, models.RoleArtist); !errors.Is(err, ErrRoleNotGranted) {
		t.Fatalf("expected ErrRoleNotGranted, got %v", err)
	}
}
