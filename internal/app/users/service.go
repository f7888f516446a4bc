package users

import (
	"context"
	"io"
	"time"

	"trackwave/internal/models"
)

// Store captures the persistence needs for user workflows.
type Store interface {
	CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByName(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, limit, page int) ([]models.User, error)
	SearchUsersByName(ctx context.Context, fragment string) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID int64, about *string, birth *time.Time) error
	SetAvatar(ctx context.Context, userID int64, path string) (string, error)
	GrantRole(ctx context.Context, userID int64, role string) error
	RevokeRole(ctx context.Context, userID int64, role string) error
	SetBan(ctx context.Context, userID int64, banned bool, reason string) error
	Follow(ctx context.Context, followerID, followeeID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	OwnTrackIDs(ctx context.Context, userID int64) ([]int64, error)
	OwnPlaylistIDs(ctx context.Context, userID int64) ([]int64, error)
	OwnAlbumIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Tokens issues signed access tokens.
type Tokens interface {
	Issue(userID int64, username string, roles []string) (string, error)
}

// Blobs stores avatar images.
type Blobs interface {
	Create(owner, kind, ext string, content io.Reader) (string, error)
	Remove(owner, path string) error
}

// Collection groups the ids of everything a user authored or collected.
type Collection struct {
	TrackIDs    []int64 `json:"trackIds"`
	PlaylistIDs []int64 `json:"playlistIds"`
	AlbumIDs    []int64 `json:"albumIds"`
}

// Service coordinates user-related operations.
type Service interface {
	Register(ctx context.Context, nu models.NewUser) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByName(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, limit, page int) ([]models.User, error)
	Search(ctx context.Context, fragment string) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID int64, about *string, birth *time.Time) error
	SetAvatar(ctx context.Context, userID int64, username, ext string, content io.Reader) (string, error)
	GrantRole(ctx context.Context, userID int64, role string) error
	RevokeRole(ctx context.Context, userID int64, role string) error
	SetBan(ctx context.Context, userID int64, banned bool, reason string) error
	Follow(ctx context.Context, followerID, followeeID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	OwnCollection(ctx context.Context, userID int64) (*Collection, error)
}

type service struct {
	store  Store
	tokens Tokens
	blobs  Blobs
}

// New constructs a Service backed by the provided dependencies.
func New(store Store, tokens Tokens, blobs Blobs) Service {
	return &service{store: store, tokens: tokens, blobs: blobs}
}

func (s *service) Register(ctx context.Context, nu models.NewUser) (*models.User, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	user, err := s.store.CreateUser(ctx, nu)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(user.ID, user.Username, roleNames(user.Roles))
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	user, err := s.store.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(user.ID, user.Username, roleNames(user.Roles))
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.UserByID(ctx, id)
}

func (s *service) GetByName(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.UserByName(ctx, username)
}

func (s *service) List(ctx context.Context, limit, page int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, limit, page)
}

func (s *service) Search(ctx context.Context, fragment string) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SearchUsersByName(ctx, fragment)
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, about *string, birth *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.UpdateProfile(ctx, userID, about, birth)
}

func (s *service) SetAvatar(ctx context.Context, userID int64, username, ext string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.blobs.Create(username, "image", ext, content)
	if err != nil {
		return "", err
	}
	old, err := s.store.SetAvatar(ctx, userID, path)
	if err != nil {
		_ = s.blobs.Remove(username, path)
		return "", err
	}
	_ = s.blobs.Remove(username, old)
	return path, nil
}

func (s *service) GrantRole(ctx context.Context, userID int64, role string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.GrantRole(ctx, userID, role)
}

func (s *service) RevokeRole(ctx context.Context, userID int64, role string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.RevokeRole(ctx, userID, role)
}

func (s *service) SetBan(ctx context.Context, userID int64, banned bool, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.SetBan(ctx, userID, banned, reason)
}

func (s *service) Follow(ctx context.Context, followerID, followeeID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.Follow(ctx, followerID, followeeID)
}

func (s *service) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.Unfollow(ctx, followerID, followeeID)
}

func (s *service) OwnCollection(ctx context.Context, userID int64) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracks, err := s.store.OwnTrackIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	playlists, err := s.store.OwnPlaylistIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	albums, err := s.store.OwnAlbumIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Collection{TrackIDs: tracks, PlaylistIDs: playlists, AlbumIDs: albums}, nil
}

func roleNames(roles []models.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}
