// Package blob stores uploaded media on the local filesystem. Stored
// values look like "audio/3f1c....mp3" and live under
// {root}/{owner}/{kind}/{uuid}{ext} so per-owner cleanup stays a single
// directory walk.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kinds of media the store accepts.
const (
	KindAudio = "audio"
	KindImage = "image"
)

// Store writes media files beneath a single root directory.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a Store.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{root: root}, nil
}

// Create saves the content under a fresh uuid name and returns the stored
// path, relative to the owner directory.
func (s *Store) Create(owner, kind string, ext string, content io.Reader) (string, error) {
	if err := validKind(kind); err != nil {
		return "", err
	}
	ext = normalizeExt(ext)

	name := filepath.Join(kind, uuid.NewString()+ext)
	full := filepath.Join(s.root, owner, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write media file: %w", err)
	}
	return filepath.ToSlash(name), nil
}

// Open returns a reader over a stored file.
func (s *Store) Open(owner, path string) (io.ReadCloser, error) {
	full, err := s.resolve(owner, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	return f, nil
}

// Copy duplicates a stored file under a new uuid name for the same owner
// and returns the new path.
func (s *Store) Copy(owner, path string) (string, error) {
	src, err := s.Open(owner, path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	kind := strings.SplitN(filepath.ToSlash(path), "/", 2)[0]
	return s.Create(owner, kind, filepath.Ext(path), src)
}

// Move relocates a stored file to a different owner, keeping the path.
func (s *Store) Move(fromOwner, toOwner, path string) error {
	src, err := s.resolve(fromOwner, path)
	if err != nil {
		return err
	}
	dst, err := s.resolve(toOwner, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move media file: %w", err)
	}
	return nil
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (s *Store) Remove(owner, path string) error {
	if path == "" {
		return nil
	}
	full, err := s.resolve(owner, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// resolve joins owner and path under the root, rejecting traversal.
func (s *Store) resolve(owner, path string) (string, error) {
	full := filepath.Join(s.root, owner, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid media path %q", path)
	}
	return full, nil
}

func validKind(kind string) error {
	if kind != KindAudio && kind != KindImage {
		return fmt.Errorf("unknown media kind %q", kind)
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
