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

var albumColumns = []string{"id", "owner_name", "name", "description", "image", "favorites", "created_at", "artist_id"}

func albumRowFixture(id, artistID int64) *sqlmock.Rows {
	return sqlmock.NewRows(albumColumns).AddRow(
		id, "ada", "Selected Works", "debut", "image/cover.png", int64(4), time.Now(), artistID,
	)
}

func expectAlbumRow(mock sqlmock.Sqlmock, id int64, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, owner_name, name, description, image, favorites, created_at, artist_id
		FROM albums
		WHERE id = $1
	`)).
		WithArgs(id).
		WillReturnRows(rows)
}

func expectRoleCheck(mock sqlmock.Sqlmock, userID int64, role string, held bool) {
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT EXISTS(
			SELECT 1 FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2
		)
	`)).
		WithArgs(userID, role).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(held))
}

func TestCreateAlbumRequiresArtistRole(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectRoleCheck(mock, 5, models.RoleArtist, false)

	_, err := s.CreateAlbum(context.Background(), 5, "Selected Works", "", "image/cover.png", nil, nil)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateAlbumWithTracks(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectRoleCheck(mock, 5, models.RoleArtist, true)
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT username FROM users WHERE id = $1
	`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("ada"))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO albums (owner_name, name, description, image, artist_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`)).
		WithArgs("ada", "Selected Works", nil, "image/cover.png", int64(5), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO tracks (owner_name, title, description, audio, image, protected_deletion, artist_id, album_id, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8)
		RETURNING id
	`)).
		WithArgs("ada", "Xtal", nil, "audio/a.mp3", "image/cover.png", int64(5), int64(3), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectCommit()

	album, err := s.CreateAlbum(context.Background(), 5, "Selected Works", "", "image/cover.png", nil,
		[]NewAlbumTrack{{Title: "Xtal", AudioPath: "audio/a.mp3"}})
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	if album.ID != 3 || len(album.TrackIDs) != 1 || album.TrackIDs[0] != 10 {
		t.Fatalf("unexpected album: %+v", album)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAttachAlbumTrackAlreadyInAlbum(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectAlbumRow(mock, 3, albumRowFixture(3, 5))
	expectTrackRow(mock, 9, trackRowFixture(9, 5, true, int64(3)))

	_, err := s.AttachAlbumTrack(context.Background(), 5, 3, 9)
	if !errors.Is(err, ErrTrackInAlbum) {
		t.Fatalf("expected ErrTrackInAlbum, got %v", err)
	}
}

func TestDetachAlbumTrackNotMember(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectAlbumRow(mock, 3, albumRowFixture(3, 5))
	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE tracks SET album_id = NULL, protected_deletion = FALSE, image = $3
		WHERE id = $1 AND album_id = $2
	`)).
		WithArgs(int64(9), int64(3), "image/copy.png").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DetachAlbumTrack(context.Background(), 5, 3, 9, "image/copy.png")
	if !errors.Is(err, ErrTrackNotInAlbum) {
		t.Fatalf("expected ErrTrackNotInAlbum, got %v", err)
	}
}

func TestSetAlbumImagePropagates(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectAlbumRow(mock, 3, albumRowFixture(3, 5))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
			UPDATE albums SET image = $2 WHERE id = $1
		`)).
		WithArgs(int64(3), "image/new.png").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`
			UPDATE tracks SET image = $2 WHERE album_id = $1
		`)).
		WithArgs(int64(3), "image/new.png").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	old, err := s.SetAlbumImage(context.Background(), 5, 3, "image/new.png")
	if err != nil {
		t.Fatalf("SetAlbumImage: %v", err)
	}
	if old != "image/cover.png" {
		t.Fatalf("expected previous path, got %q", old)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetAlbumCollectionRemoveMissing(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
				DELETE FROM user_album_collection
				WHERE user_id = $1 AND album_id = $2
			`)).
		WithArgs(int64(5), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := s.SetAlbumCollection(context.Background(), 5, 3, false); !errors.Is(err, ErrNotInCollection) {
		t.Fatalf("expected ErrNotInCollection, got %v", err)
	}
}

func TestDeleteAlbumCascade(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	expectAlbumRow(mock, 3, albumRowFixture(3, 5))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM tracks WHERE album_id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT audio, image, owner_name FROM tracks WHERE id = $1
	`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"audio", "image", "owner_name"}).
			AddRow("audio/a.mp3", "image/cover.png", "ada"))
	for _, q := range []string{
		`DELETE FROM comments WHERE track_id = $1`,
		`DELETE FROM user_track_collection WHERE track_id = $1`,
		`DELETE FROM playlist_tracks WHERE track_id = $1`,
		`DELETE FROM track_genres WHERE track_id = $1`,
		`DELETE FROM tracks WHERE id = $1`,
	} {
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	for _, q := range []string{
		`DELETE FROM album_genres WHERE album_id = $1`,
		`DELETE FROM user_album_collection WHERE album_id = $1`,
		`DELETE FROM albums WHERE id = $1`,
	} {
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	files, err := s.DeleteAlbum(context.Background(), 5, 3)
	if err != nil {
		t.Fatalf("DeleteAlbum: %v", err)
	}
	if files.Image != "image/cover.png" || files.Owner != "ada" || len(files.Tracks) != 1 {
		t.Fatalf("unexpected files: %+v", files)
	}
	if files.Tracks[0].Audio != "audio/a.mp3" {
		t.Fatalf("unexpected track files: %+v", files.Tracks[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
