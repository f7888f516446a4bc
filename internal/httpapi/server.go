package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trackwave/internal/app/albums"
	"trackwave/internal/app/tracks"
	"trackwave/internal/app/users"
	"trackwave/internal/auth"
	"trackwave/internal/models"
	"trackwave/internal/store"
)

// UserService captures the user-facing operations needed by the HTTP handlers.
type UserService interface {
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
	OwnCollection(ctx context.Context, userID int64) (*users.Collection, error)
}

// RoleService coordinates role management.
type RoleService interface {
	Create(ctx context.Context, name, description string) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
}

// GenreService coordinates genre management.
type GenreService interface {
	Create(ctx context.Context, name, description string) (*models.Genre, error)
	Get(ctx context.Context, id int64) (*models.Genre, error)
	List(ctx context.Context) ([]models.Genre, error)
	Delete(ctx context.Context, id int64) error
}

// TrackService coordinates track-level operations.
type TrackService interface {
	Upload(ctx context.Context, artistID int64, artistName string, up tracks.Upload) (*models.Track, error)
	Get(ctx context.Context, id int64) (*models.Track, error)
	List(ctx context.Context, limit, page int) ([]models.Track, error)
	MostLiked(ctx context.Context) ([]models.Track, error)
	MostListened(ctx context.Context) ([]models.Track, error)
	ByGenre(ctx context.Context, genreID int64) ([]models.Track, error)
	Search(ctx context.Context, fragment string) ([]models.Track, error)
	Listen(ctx context.Context, id int64) error
	UpdateMeta(ctx context.Context, actorID, id int64, title, description *string) error
	ReplaceAudio(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	SetGenre(ctx context.Context, actorID, id, genreID int64, add bool) error
	SetCollection(ctx context.Context, userID, id int64, add bool) error
	ChangeArtist(ctx context.Context, actorID, id, newArtistID int64) error
	Delete(ctx context.Context, actorID, id int64) error
	OpenMedia(ctx context.Context, owner, path string) (io.ReadCloser, error)
	AddComment(ctx context.Context, userID, trackID int64, text string) (*models.Comment, error)
	EditComment(ctx context.Context, actorID, commentID int64, text string) error
	DeleteComment(ctx context.Context, actorID, commentID int64) error
}

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
	Create(ctx context.Context, userID int64, userName, name, description, imageExt string, image io.Reader, genreIDs []int64) (*models.Playlist, error)
	Get(ctx context.Context, id int64) (*models.Playlist, error)
	List(ctx context.Context, limit, page int) ([]models.Playlist, error)
	Search(ctx context.Context, fragment string) ([]models.Playlist, error)
	ByGenre(ctx context.Context, genreID int64) ([]models.Playlist, error)
	UpdateMeta(ctx context.Context, actorID, id int64, name, description *string) error
	ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	SetGenre(ctx context.Context, actorID, id, genreID int64, add bool) error
	SetTrack(ctx context.Context, actorID, id, trackID int64, add bool) error
	SetCollection(ctx context.Context, userID, id int64, add bool) error
	Delete(ctx context.Context, actorID, id int64) error
}

// AlbumService coordinates album-related operations.
type AlbumService interface {
	Create(ctx context.Context, artistID int64, artistName string, up albums.Upload) (*models.Album, error)
	Get(ctx context.Context, id int64) (*models.Album, error)
	List(ctx context.Context, limit, page int) ([]models.Album, error)
	MostLiked(ctx context.Context) ([]models.Album, error)
	ByArtist(ctx context.Context, artistID int64) ([]models.Album, error)
	Search(ctx context.Context, fragment string) ([]models.Album, error)
	ByGenre(ctx context.Context, genreID int64) ([]models.Album, error)
	UpdateMeta(ctx context.Context, actorID, id int64, name, description *string) error
	ReplaceImage(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)
	SetGenre(ctx context.Context, actorID, id, genreID int64, add bool) error
	AttachTrack(ctx context.Context, actorID int64, actorName string, id, trackID int64) error
	DetachTrack(ctx context.Context, actorID int64, actorName string, id, trackID int64) error
	SetCollection(ctx context.Context, userID, id int64, add bool) error
	Delete(ctx context.Context, actorID, id int64) error
}

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, int64, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     UserService
	roles     RoleService
	genres    GenreService
	tracks    TrackService
	playlists PlaylistService
	albums    AlbumService
	tokens    TokenVerifier
}

// New configures a Server with the given services.
func New(
	users UserService,
	roles RoleService,
	genres GenreService,
	tracks TrackService,
	playlists PlaylistService,
	albums AlbumService,
	tokens TokenVerifier,
) *Server {
	return &Server{
		users:     users,
		roles:     roles,
		genres:    genres,
		tracks:    tracks,
		playlists: playlists,
		albums:    albums,
		tokens:    tokens,
	}
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/v1/me", s.handleMe)
	mux.HandleFunc("PATCH /api/v1/me", s.handleUpdateProfile)
	mux.HandleFunc("PUT /api/v1/me/avatar", s.handleSetAvatar)
	mux.HandleFunc("GET /api/v1/me/collection", s.handleOwnCollection)

	mux.HandleFunc("GET /api/v1/users", s.handleListUsers)
	mux.HandleFunc("GET /api/v1/users/search", s.handleSearchUsers)
	mux.HandleFunc("GET /api/v1/users/by-name/{username}", s.handleGetUserByName)
	mux.HandleFunc("GET /api/v1/users/{id}", s.handleGetUser)
	mux.HandleFunc("POST /api/v1/users/{id}/follow", s.handleFollow)
	mux.HandleFunc("DELETE /api/v1/users/{id}/follow", s.handleUnfollow)
	mux.HandleFunc("POST /api/v1/users/{id}/roles", s.handleGrantRole)
	mux.HandleFunc("DELETE /api/v1/users/{id}/roles/{role}", s.handleRevokeRole)
	mux.HandleFunc("PUT /api/v1/users/{id}/ban", s.handleSetBan)

	mux.HandleFunc("POST /api/v1/roles", s.handleCreateRole)
	mux.HandleFunc("GET /api/v1/roles", s.handleListRoles)
	mux.HandleFunc("GET /api/v1/roles/{name}", s.handleGetRole)

	mux.HandleFunc("POST /api/v1/genres", s.handleCreateGenre)
	mux.HandleFunc("GET /api/v1/genres", s.handleListGenres)
	mux.HandleFunc("GET /api/v1/genres/{id}", s.handleGetGenre)
	mux.HandleFunc("DELETE /api/v1/genres/{id}", s.handleDeleteGenre)
	mux.HandleFunc("GET /api/v1/genres/{id}/tracks", s.handleTracksByGenre)
	mux.HandleFunc("GET /api/v1/genres/{id}/playlists", s.handlePlaylistsByGenre)
	mux.HandleFunc("GET /api/v1/genres/{id}/albums", s.handleAlbumsByGenre)

	mux.HandleFunc("POST /api/v1/tracks", s.handleUploadTrack)
	mux.HandleFunc("GET /api/v1/tracks", s.handleListTracks)
	mux.HandleFunc("GET /api/v1/tracks/top", s.handleMostLikedTracks)
	mux.HandleFunc("GET /api/v1/tracks/popular", s.handleMostListenedTracks)
	mux.HandleFunc("GET /api/v1/tracks/search", s.handleSearchTracks)
	mux.HandleFunc("GET /api/v1/tracks/{id}", s.handleGetTrack)
	mux.HandleFunc("PATCH /api/v1/tracks/{id}", s.handleUpdateTrack)
	mux.HandleFunc("DELETE /api/v1/tracks/{id}", s.handleDeleteTrack)
	mux.HandleFunc("POST /api/v1/tracks/{id}/listen", s.handleListen)
	mux.HandleFunc("PUT /api/v1/tracks/{id}/audio", s.handleReplaceTrackAudio)
	mux.HandleFunc("PUT /api/v1/tracks/{id}/image", s.handleReplaceTrackImage)
	mux.HandleFunc("PUT /api/v1/tracks/{id}/artist", s.handleChangeTrackArtist)
	mux.HandleFunc("POST /api/v1/tracks/{id}/genres/{genreID}", s.handleTrackGenre(true))
	mux.HandleFunc("DELETE /api/v1/tracks/{id}/genres/{genreID}", s.handleTrackGenre(false))
	mux.HandleFunc("POST /api/v1/tracks/{id}/collection", s.handleTrackCollection(true))
	mux.HandleFunc("DELETE /api/v1/tracks/{id}/collection", s.handleTrackCollection(false))
	mux.HandleFunc("POST /api/v1/tracks/{id}/comments", s.handleAddComment)
	mux.HandleFunc("PATCH /api/v1/comments/{id}", s.handleEditComment)
	mux.HandleFunc("DELETE /api/v1/comments/{id}", s.handleDeleteComment)

	mux.HandleFunc("GET /api/v1/media/{owner}/{path...}", s.handleMedia)

	mux.HandleFunc("POST /api/v1/playlists", s.handleCreatePlaylist)
	mux.HandleFunc("GET /api/v1/playlists", s.handleListPlaylists)
	mux.HandleFunc("GET /api/v1/playlists/search", s.handleSearchPlaylists)
	mux.HandleFunc("GET /api/v1/playlists/{id}", s.handleGetPlaylist)
	mux.HandleFunc("PATCH /api/v1/playlists/{id}", s.handleUpdatePlaylist)
	mux.HandleFunc("DELETE /api/v1/playlists/{id}", s.handleDeletePlaylist)
	mux.HandleFunc("PUT /api/v1/playlists/{id}/image", s.handleReplacePlaylistImage)
	mux.HandleFunc("POST /api/v1/playlists/{id}/genres/{genreID}", s.handlePlaylistGenre(true))
	mux.HandleFunc("DELETE /api/v1/playlists/{id}/genres/{genreID}", s.handlePlaylistGenre(false))
	mux.HandleFunc("POST /api/v1/playlists/{id}/tracks/{trackID}", s.handlePlaylistTrack(true))
	mux.HandleFunc("DELETE /api/v1/playlists/{id}/tracks/{trackID}", s.handlePlaylistTrack(false))
	mux.HandleFunc("POST /api/v1/playlists/{id}/collection", s.handlePlaylistCollection(true))
	mux.HandleFunc("DELETE /api/v1/playlists/{id}/collection", s.handlePlaylistCollection(false))

	mux.HandleFunc("POST /api/v1/albums", s.handleCreateAlbum)
	mux.HandleFunc("GET /api/v1/albums", s.handleListAlbums)
	mux.HandleFunc("GET /api/v1/albums/top", s.handleMostLikedAlbums)
	mux.HandleFunc("GET /api/v1/albums/search", s.handleSearchAlbums)
	mux.HandleFunc("GET /api/v1/albums/by-artist/{artistID}", s.handleAlbumsByArtist)
	mux.HandleFunc("GET /api/v1/albums/{id}", s.handleGetAlbum)
	mux.HandleFunc("PATCH /api/v1/albums/{id}", s.handleUpdateAlbum)
	mux.HandleFunc("DELETE /api/v1/albums/{id}", s.handleDeleteAlbum)
	mux.HandleFunc("PUT /api/v1/albums/{id}/image", s.handleReplaceAlbumImage)
	mux.HandleFunc("POST /api/v1/albums/{id}/genres/{genreID}", s.handleAlbumGenre(true))
	mux.HandleFunc("DELETE /api/v1/albums/{id}/genres/{genreID}", s.handleAlbumGenre(false))
	mux.HandleFunc("POST /api/v1/albums/{id}/tracks/{trackID}", s.handleAlbumTrack(true))
	mux.HandleFunc("DELETE /api/v1/albums/{id}/tracks/{trackID}", s.handleAlbumTrack(false))
	mux.HandleFunc("POST /api/v1/albums/{id}/collection", s.handleAlbumCollection(true))
	mux.HandleFunc("DELETE /api/v1/albums/{id}/collection", s.handleAlbumCollection(false))

	return mux
}

// actor is the authenticated caller resolved from a bearer token.
type actor struct {
	id    int64
	name  string
	roles []string
}

func (a *actor) hasRole(role string) bool {
	for _, r := range a.roles {
		if r == role {
			return true
		}
	}
	return false
}

// authenticate resolves the request's bearer token into an actor.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*actor, bool) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return nil, false
	}
	claims, userID, err := s.tokens.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
		return nil, false
	}
	return &actor{id: userID, name: claims.Username, roles: claims.Roles}, true
}

// requireRole authenticates and additionally checks a role claim.
func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, role string) (*actor, bool) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return nil, false
	}
	if !a.hasRole(role) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "permission denied"})
		return nil, false
	}
	return a, true
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps store sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrSelfFollow):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrPermissionDenied),
		errors.Is(err, store.ErrUserBanned):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrRoleNotFound),
		errors.Is(err, store.ErrGenreNotFound),
		errors.Is(err, store.ErrTrackNotFound),
		errors.Is(err, store.ErrCommentNotFound),
		errors.Is(err, store.ErrPlaylistNotFound),
		errors.Is(err, store.ErrAlbumNotFound),
		errors.Is(err, store.ErrGenreNotAttached),
		errors.Is(err, store.ErrNotInCollection),
		errors.Is(err, store.ErrTrackNotInPlaylist),
		errors.Is(err, store.ErrTrackNotInAlbum),
		errors.Is(err, store.ErrRoleNotGranted),
		errors.Is(err, store.ErrNotFollowing):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrUserExists),
		errors.Is(err, store.ErrRoleExists),
		errors.Is(err, store.ErrGenreExists),
		errors.Is(err, store.ErrGenreAttached),
		errors.Is(err, store.ErrInCollection),
		errors.Is(err, store.ErrTrackInPlaylist),
		errors.Is(err, store.ErrTrackInAlbum),
		errors.Is(err, store.ErrTrackProtected),
		errors.Is(err, store.ErrRoleGranted),
		errors.Is(err, store.ErrBanUnchanged),
		errors.Is(err, store.ErrAlreadyFollows):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func pageParams(r *http.Request) (limit, page int) {
	query := r.URL.Query()
	limit, _ = strconv.Atoi(query.Get("limit"))
	page, _ = strconv.Atoi(query.Get("page"))
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}
	return limit, page
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
