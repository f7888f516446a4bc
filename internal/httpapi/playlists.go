package httpapi

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"trackwave/internal/models"
)

func parseIDList(value string) ([]int64, bool) {
	if strings.TrimSpace(value) == "" {
		return nil, true
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart payload"})
		return
	}

	genreIDs, ok := parseIDList(r.FormValue("genreIds"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre ids"})
		return
	}

	image, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer image.Close()

	playlist, err := s.playlists.Create(r.Context(), a.id, a.name,
		r.FormValue("name"), r.FormValue("description"),
		filepath.Ext(header.Filename), image, genreIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)
	found, err := s.playlists.List(r.Context(), limit, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writePlaylists(w, found)
}

func (s *Server) handleSearchPlaylists(w http.ResponseWriter, r *http.Request) {
	found, err := s.playlists.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writePlaylists(w, found)
}

func writePlaylists(w http.ResponseWriter, found []models.Playlist) {
	writeJSON(w, http.StatusOK, struct {
		Playlists []models.Playlist `json:"playlists"`
	}{Playlists: found})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist id"})
		return
	}

	playlist, err := s.playlists.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist id"})
		return
	}

	var req metaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.playlists.UpdateMeta(r.Context(), a.id, id, req.Name, req.Description); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplacePlaylistImage(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist id"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer file.Close()

	path, err := s.playlists.ReplaceImage(r.Context(), a.id, a.name, id, filepath.Ext(header.Filename), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Path string `json:"path"`
	}{Path: path})
}

func (s *Server) handlePlaylistGenre(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist id"})
			return
		}
		genreID, ok := pathID(r, "genreID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
			return
		}

		if err := s.playlists.SetGenre(r.Context(), a.id, id, genreID, add); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handlePlaylistTrack(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist id"})
			return
		}
		trackID, ok := pathID(r, "trackID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
			return
		}

		if err := s.playlists.SetTrack(r.Context(), a.id, id, trackID, add); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handlePlaylistCollection(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist id"})
			return
		}

		if err := s.playlists.SetCollection(r.Context(), a.id, id, add); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid playlist id"})
		return
	}

	if err := s.playlists.Delete(r.Context(), a.id, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
