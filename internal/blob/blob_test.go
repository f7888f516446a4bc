package blob

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func readStored(t *testing.T, s *Store, owner, path string) string {
	t.Helper()
	r, err := s.Open(owner, path)
	if err != nil {
		t.Fatalf("Open %s: %v", path, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestCreateAndOpen(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Create("ada", KindAudio, "mp3", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(path, "audio/") || !strings.HasSuffix(path, ".mp3") {
		t.Fatalf("unexpected path %q", path)
	}
	if got := readStored(t, s, "ada", path); got != "payload" {
		t.Fatalf("content = %q", got)
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("ada", "video", ".mp4", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestCopyProducesFreshPath(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Create("ada", KindImage, ".png", strings.NewReader("cover"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	copied, err := s.Copy("ada", path)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if copied == path {
		t.Fatal("copy reused the source path")
	}
	if got := readStored(t, s, "ada", copied); got != "cover" {
		t.Fatalf("copy content = %q", got)
	}
	if got := readStored(t, s, "ada", path); got != "cover" {
		t.Fatalf("source content = %q", got)
	}
}

func TestMoveChangesOwner(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Create("ada", KindAudio, ".mp3", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Move("ada", "grace", path); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := readStored(t, s, "grace", path); got != "payload" {
		t.Fatalf("moved content = %q", got)
	}
	if _, err := s.Open("ada", path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source to be gone, got %v", err)
	}
}

func TestRemoveMissingFile(t *testing.T) {
	s := newTestStore(t)

	if err := s.Remove("ada", "audio/gone.mp3"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	if err := s.Remove("ada", ""); err != nil {
		t.Fatalf("Remove empty path: %v", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Open("ada", filepath.Join("..", "..", "etc", "passwd")); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if err := s.Remove("..", "audio/x.mp3"); err == nil {
		t.Fatal("expected traversal owner to be rejected")
	}
}
