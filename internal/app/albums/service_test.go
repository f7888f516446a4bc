package albums

import (
	"context"
	"errors"
	"io"
	"testing"

	"trackwave/internal/models"
)

// Stubs embed the dependency interfaces so each test only overrides the
// methods it exercises.

type stubStore struct {
	Store
	album    *models.Album
	attachFn func(ctx context.Context, actorID, albumID, trackID int64) (string, error)
	detachFn func(ctx context.Context, actorID, albumID, trackID int64, newImagePath string) error
}

func (s *stubStore) AlbumByID(context.Context, int64) (*models.Album, error) {
	return s.album, nil
}

func (s *stubStore) AttachAlbumTrack(ctx context.Context, actorID, albumID, trackID int64) (string, error) {
	return s.attachFn(ctx, actorID, albumID, trackID)
}

func (s *stubStore) DetachAlbumTrack(ctx context.Context, actorID, albumID, trackID int64, newImagePath string) error {
	return s.detachFn(ctx, actorID, albumID, trackID, newImagePath)
}

type blobCall struct {
	op    string
	owner string
	path  string
}

type stubBlobs struct {
	calls []blobCall
}

func (b *stubBlobs) Create(owner, kind, ext string, content io.Reader) (string, error) {
	return "", errors.New("not implemented")
}

func (b *stubBlobs) Copy(owner, path string) (string, error) {
	b.calls = append(b.calls, blobCall{op: "copy", owner: owner, path: path})
	return "image/fresh.png", nil
}

func (b *stubBlobs) Remove(owner, path string) error {
	b.calls = append(b.calls, blobCall{op: "remove", owner: owner, path: path})
	return nil
}

func adaAlbum() *models.Album {
	return &models.Album{ID: 3, OwnerName: "ada", Name: "Debut", Image: "image/cover.png", ArtistID: 5}
}

// An admin acting on another artist's album must touch blobs under the
// album owner's directory, not their own.
func TestDetachTrackCopiesCoverUnderOwner(t *testing.T) {
	var gotImage string
	st := &stubStore{
		album: adaAlbum(),
		detachFn: func(_ context.Context, actorID, albumID, trackID int64, newImagePath string) error {
			gotImage = newImagePath
			return nil
		},
	}
	blobs := &stubBlobs{}
	svc := New(st, blobs)

	if err := svc.DetachTrack(context.Background(), 99, "root", 3, 7); err != nil {
		t.Fatalf("detach track: %v", err)
	}
	if gotImage != "image/fresh.png" {
		t.Fatalf("store got image %q", gotImage)
	}
	if len(blobs.calls) != 1 {
		t.Fatalf("blob calls = %+v", blobs.calls)
	}
	if c := blobs.calls[0]; c.op != "copy" || c.owner != "ada" || c.path != "image/cover.png" {
		t.Fatalf("copy call = %+v", c)
	}
}

func TestDetachTrackCleansUpOnStoreError(t *testing.T) {
	st := &stubStore{
		album: adaAlbum(),
		detachFn: func(context.Context, int64, int64, int64, string) error {
			return errors.New("boom")
		},
	}
	blobs := &stubBlobs{}
	svc := New(st, blobs)

	if err := svc.DetachTrack(context.Background(), 99, "root", 3, 7); err == nil {
		t.Fatal("expected error")
	}
	if len(blobs.calls) != 2 {
		t.Fatalf("blob calls = %+v", blobs.calls)
	}
	if c := blobs.calls[1]; c.op != "remove" || c.owner != "ada" || c.path != "image/fresh.png" {
		t.Fatalf("remove call = %+v", c)
	}
}

func TestAttachTrackRemovesReplacedImageUnderOwner(t *testing.T) {
	st := &stubStore{
		album: adaAlbum(),
		attachFn: func(context.Context, int64, int64, int64) (string, error) {
			return "image/old.png", nil
		},
	}
	blobs := &stubBlobs{}
	svc := New(st, blobs)

	if err := svc.AttachTrack(context.Background(), 99, "root", 3, 7); err != nil {
		t.Fatalf("attach track: %v", err)
	}
	if len(blobs.calls) != 1 {
		t.Fatalf("blob calls = %+v", blobs.calls)
	}
	if c := blobs.calls[0]; c.op != "remove" || c.owner != "ada" || c.path != "image/old.png" {
		t.Fatalf("remove call = %+v", c)
	}
}
