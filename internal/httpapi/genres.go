package httpapi

import (
	"net/http"

	"trackwave/internal/models"
)

type nameRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}

	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := s.roles.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Roles []models.Role `json:"roles"`
	}{Roles: roles})
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.roles.GetByName(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}

	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	genre, err := s.genres.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, genre)
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.genres.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Genres []models.Genre `json:"genres"`
	}{Genres: genres})
}

func (s *Server) handleGetGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
		return
	}

	genre, err := s.genres.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, genre)
}

func (s *Server) handleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
		return
	}

	if err := s.genres.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTracksByGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
		return
	}

	found, err := s.tracks.ByGenre(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Tracks []models.Track `json:"tracks"`
	}{Tracks: found})
}

func (s *Server) handlePlaylistsByGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
		return
	}

	found, err := s.playlists.ByGenre(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Playlists []models.Playlist `json:"playlists"`
	}{Playlists: found})
}

func (s *Server) handleAlbumsByGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
		return
	}

	found, err := s.albums.ByGenre(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Albums []models.Album `json:"albums"`
	}{Albums: found})
}
