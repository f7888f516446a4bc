package httpapi

import (
	"net/http"
	"path/filepath"
	"time"

	"trackwave/internal/models"
)

type signupRequest struct {
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Password string     `json:"password"`
	About    string     `json:"about"`
	Birth    *time.Time `json:"birth"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := s.users.Register(r.Context(), models.NewUser{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		About:    req.About,
		Birth:    req.Birth,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	user, err := s.users.Get(r.Context(), a.id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		About *string    `json:"about"`
		Birth *time.Time `json:"birth"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.users.UpdateProfile(r.Context(), a.id, req.About, req.Birth); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetAvatar(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer file.Close()

	path, err := s.users.SetAvatar(r.Context(), a.id, a.name, filepath.Ext(header.Filename), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Avatar string `json:"avatar"`
	}{Avatar: path})
}

func (s *Server) handleOwnCollection(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	collection, err := s.users.OwnCollection(r.Context(), a.id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)
	found, err := s.users.List(r.Context(), limit, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeUsers(w, found)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	found, err := s.users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeUsers(w, found)
}

func writeUsers(w http.ResponseWriter, found []models.User) {
	writeJSON(w, http.StatusOK, struct {
		Users []models.User `json:"users"`
	}{Users: found})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUserByName(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByName(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	s.handleFollowChange(w, r, true)
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	s.handleFollowChange(w, r, false)
}

func (s *Server) handleFollowChange(w http.ResponseWriter, r *http.Request, follow bool) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	var err error
	if follow {
		err = s.users.Follow(r.Context(), a.id, id)
	} else {
		err = s.users.Unfollow(r.Context(), a.id, id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.users.GrantRole(r.Context(), id, req.Role); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	if err := s.users.RevokeRole(r.Context(), id, r.PathValue("role")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetBan(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	var req struct {
		Banned bool   `json:"banned"`
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.users.SetBan(r.Context(), id, req.Banned, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
