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

var trackColumns = []string{
	"id", "owner_name", "title", "description", "listens", "favorites",
	"audio", "image", "protected_deletion", "created_at", "artist_id", "album_id",
}

func trackRowFixture(id, artistID int64, protected bool, albumID any) *sqlmock.Rows {
	return sqlmock.NewRows(trackColumns).AddRow(
		id, "ada", "Xtal", "first cut", int64(3), int64(1),
		"audio/a.mp3", "image/a.png", protected, time.Now(), artistID, albumID,
	)
}

func expectTrackRow(mock sqlmock.Sqlmock, id int64, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, owner_name, title, description, listens, favorites, audio, image, protected_deletion, created_at, artist_id, album_id
		FROM tracks
		WHERE id = $1
	`)).
		WithArgs(id).
		WillReturnRows(rows)
}

func TestIncrementListensNotFound(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE tracks SET listens = listens + 1 WHERE id = $1
	`)).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.IncrementListens(context.Background(), 9); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestSetTrackCollectionAdd(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
			UPDATE tracks SET favorites = favorites + 1 WHERE id = $1
		`)).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`
			INSERT INTO user_track_collection (user_id, track_id)
			VALUES ($1, $2)
		`)).
		WithArgs(int64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := s.SetTrackCollection(context.Background(), 5, 9, true); err != nil {
		t.Fatalf("SetTrackCollection: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetTrackCollectionAddDuplicate(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tracks SET favorites = favorites + 1 WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_track_collection`)).
		WillReturnError(uniqueViolation())
	mock.ExpectRollback()

	if err := s.SetTrackCollection(context.Background(), 5, 9, true); !errors.Is(err, ErrInCollection) {
		t.Fatalf("expected ErrInCollection, got %v", err)
	}
}

func TestSetTrackCollectionRemoveMissing(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
			DELETE FROM user_track_collection
			WHERE user_id = $1 AND track_id = $2
		`)).
		WithArgs(int64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := s.SetTrackCollection(context.Background(), 5, 9, false); !errors.Is(err, ErrNotInCollection) {
		t.Fatalf("expected ErrNotInCollection, got %v", err)
	}
}

func TestDeleteTrackProtected(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectTrackRow(mock, 9, trackRowFixture(9, 5, true, int64(3)))

	_, err := s.DeleteTrack(context.Background(), 5, 9)
	if !errors.Is(err, ErrTrackProtected) {
		t.Fatalf("expected ErrTrackProtected, got %v", err)
	}
}

func TestDeleteTrackNotOwner(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectTrackRow(mock, 9, trackRowFixture(9, 5, false, nil))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(`)).
		WithArgs(int64(6), models.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.DeleteTrack(context.Background(), 6, 9)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestDeleteTrackCascade(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectTrackRow(mock, 9, trackRowFixture(9, 5, false, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT audio, image, owner_name FROM tracks WHERE id = $1
	`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"audio", "image", "owner_name"}).
			AddRow("audio/a.mp3", "image/a.png", "ada"))
	for _, q := range []string{
		`DELETE FROM comments WHERE track_id = $1`,
		`DELETE FROM user_track_collection WHERE track_id = $1`,
		`DELETE FROM playlist_tracks WHERE track_id = $1`,
		`DELETE FROM track_genres WHERE track_id = $1`,
		`DELETE FROM tracks WHERE id = $1`,
	} {
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WithArgs(int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	files, err := s.DeleteTrack(context.Background(), 5, 9)
	if err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}
	if files.Audio != "audio/a.mp3" || files.Image != "image/a.png" || files.Owner != "ada" {
		t.Fatalf("unexpected files: %+v", files)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetTrackGenreNotOwner(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectTrackRow(mock, 9, trackRowFixture(9, 5, false, nil))

	err := s.SetTrackGenre(context.Background(), 6, 9, 2, true)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSetTrackGenreDetachMissing(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectTrackRow(mock, 9, trackRowFixture(9, 5, false, nil))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM track_genres WHERE track_id = $1 AND genre_id = $2`)).
		WithArgs(int64(9), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetTrackGenre(context.Background(), 5, 9, 2, false)
	if !errors.Is(err, ErrGenreNotAttached) {
		t.Fatalf("expected ErrGenreNotAttached, got %v", err)
	}
}
