package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"trackwave/internal/models"
)

func TestAddCommentBannedUser(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT banned FROM users WHERE id = $1
	`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"banned"}).AddRow(true))

	_, err := s.AddComment(context.Background(), 5, 9, "nice one")
	if !errors.Is(err, ErrUserBanned) {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}
}

func TestAddCommentUnknownTrack(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT banned FROM users WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"banned"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM tracks WHERE id = $1)`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.AddComment(context.Background(), 5, 9, "nice one")
	if !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestAddCommentSuccess(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT banned FROM users WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"banned"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM tracks WHERE id = $1)`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO comments (user_id, track_id, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`)).
		WithArgs(int64(5), int64(9), "nice one", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), time.Now()))

	comment, err := s.AddComment(context.Background(), 5, 9, "  nice one  ")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if comment.ID != 2 || comment.Text != "nice one" {
		t.Fatalf("unexpected comment: %+v", comment)
	}
}

func TestEditCommentNotAuthor(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT user_id FROM comments WHERE id = $1
	`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(5)))

	err := s.EditComment(context.Background(), 6, 2, "edited")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestDeleteCommentAsAdmin(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM comments WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(5)))
	expectRoleCheck(mock, 6, models.RoleAdmin, true)
	mock.ExpectExec(regexp.QuoteMeta(`
		DELETE FROM comments WHERE id = $1
	`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.DeleteComment(context.Background(), 6, 2); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
