package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trackwave/internal/auth"
	"trackwave/internal/models"
	"trackwave/internal/store"
)

// Stubs embed the service interfaces so each test only overrides the
// methods it exercises.

type stubUserService struct {
	UserService
	registerFn func(ctx context.Context, nu models.NewUser) (*models.User, string, error)
	getFn      func(ctx context.Context, id int64) (*models.User, error)
	followFn   func(ctx context.Context, followerID, followeeID int64) error
	unfollowFn func(ctx context.Context, followerID, followeeID int64) error
	setBanFn   func(ctx context.Context, userID int64, banned bool, reason string) error
}

func (s *stubUserService) Register(ctx context.Context, nu models.NewUser) (*models.User, string, error) {
	return s.registerFn(ctx, nu)
}

func (s *stubUserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) Follow(ctx context.Context, followerID, followeeID int64) error {
	return s.followFn(ctx, followerID, followeeID)
}

func (s *stubUserService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	return s.unfollowFn(ctx, followerID, followeeID)
}

func (s *stubUserService) SetBan(ctx context.Context, userID int64, banned bool, reason string) error {
	return s.setBanFn(ctx, userID, banned, reason)
}

type stubTrackService struct {
	TrackService
	getFn           func(ctx context.Context, id int64) (*models.Track, error)
	setCollectionFn func(ctx context.Context, userID, id int64, add bool) error
}

func (s *stubTrackService) Get(ctx context.Context, id int64) (*models.Track, error) {
	return s.getFn(ctx, id)
}

func (s *stubTrackService) SetCollection(ctx context.Context, userID, id int64, add bool) error {
	return s.setCollectionFn(ctx, userID, id, add)
}

type stubTokens struct {
	claims *auth.Claims
	id     int64
	err    error
}

func (s *stubTokens) Verify(string) (*auth.Claims, int64, error) {
	return s.claims, s.id, s.err
}

func newTestServer(users UserService, tracks TrackService, tokens TokenVerifier) http.Handler {
	if tokens == nil {
		tokens = &stubTokens{err: auth.ErrInvalidToken}
	}
	return New(users, nil, nil, tracks, nil, nil, tokens).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func userTokens(id int64, name string, roles ...string) *stubTokens {
	return &stubTokens{
		claims: &auth.Claims{Username: name, Roles: roles},
		id:     id,
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSignupCreated(t *testing.T) {
	users := &stubUserService{
		registerFn: func(_ context.Context, nu models.NewUser) (*models.User, string, error) {
			return &models.User{ID: 1, Email: nu.Email, Username: nu.Username}, "tok", nil
		},
	}
	h := newTestServer(users, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"ada@example.com","username":"ada","password":"hunter22"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "tok" || resp.User == nil || resp.User.Username != "ada" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSignupDuplicate(t *testing.T) {
	users := &stubUserService{
		registerFn: func(context.Context, models.NewUser) (*models.User, string, error) {
			return nil, "", store.ErrUserExists
		},
	}
	h := newTestServer(users, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"ada@example.com","username":"ada","password":"hunter22"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMeRejectsBadToken(t *testing.T) {
	h := newTestServer(nil, nil, &stubTokens{err: auth.ErrInvalidToken})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/me", "garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetTrackNotFound(t *testing.T) {
	tracks := &stubTrackService{
		getFn: func(context.Context, int64) (*models.Track, error) {
			return nil, store.ErrTrackNotFound
		},
	}
	h := newTestServer(nil, tracks, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/tracks/9", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetTrackInvalidID(t *testing.T) {
	h := newTestServer(nil, &stubTrackService{}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/tracks/abc", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFollowSelfMapsToBadRequest(t *testing.T) {
	users := &stubUserService{
		followFn: func(context.Context, int64, int64) error {
			return store.ErrSelfFollow
		},
	}
	h := newTestServer(users, nil, userTokens(3, "ada", models.RoleUser))

	rec := doRequest(t, h, http.MethodPost, "/api/v1/users/3/follow", "tok", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSetBanRequiresAdmin(t *testing.T) {
	h := newTestServer(&stubUserService{}, nil, userTokens(3, "ada", models.RoleUser))

	rec := doRequest(t, h, http.MethodPut, "/api/v1/users/5/ban", "tok",
		`{"banned":true,"reason":"spam"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSetBanAsAdmin(t *testing.T) {
	var gotUser int64
	users := &stubUserService{
		setBanFn: func(_ context.Context, userID int64, banned bool, reason string) error {
			gotUser = userID
			if !banned || reason != "spam" {
				t.Fatalf("unexpected args: banned=%v reason=%q", banned, reason)
			}
			return nil
		},
	}
	h := newTestServer(users, nil, userTokens(1, "root", models.RoleAdmin))

	rec := doRequest(t, h, http.MethodPut, "/api/v1/users/5/ban", "tok",
		`{"banned":true,"reason":"spam"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotUser != 5 {
		t.Fatalf("banned user = %d", gotUser)
	}
}

func TestTrackCollectionConflict(t *testing.T) {
	tracks := &stubTrackService{
		setCollectionFn: func(context.Context, int64, int64, bool) error {
			return store.ErrInCollection
		},
	}
	h := newTestServer(nil, tracks, userTokens(3, "ada", models.RoleUser))

	rec := doRequest(t, h, http.MethodPost, "/api/v1/tracks/9/collection", "tok", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTrackCollectionRemoveAbsent(t *testing.T) {
	tracks := &stubTrackService{
		setCollectionFn: func(context.Context, int64, int64, bool) error {
			return store.ErrNotInCollection
		},
	}
	h := newTestServer(nil, tracks, userTokens(3, "ada", models.RoleUser))

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/tracks/9/collection", "tok", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUnfollowAbsentMapsToNotFound(t *testing.T) {
	users := &stubUserService{
		unfollowFn: func(context.Context, int64, int64) error {
			return store.ErrNotFollowing
		},
	}
	h := newTestServer(users, nil, userTokens(3, "ada", models.RoleUser))

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/users/5/follow", "tok", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadTrackRequiresArtist(t *testing.T) {
	h := newTestServer(nil, &stubTrackService{}, userTokens(3, "ada", models.RoleUser))

	rec := doRequest(t, h, http.MethodPost, "/api/v1/tracks", "tok", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}
