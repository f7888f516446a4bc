package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"trackwave/internal/app/albums"
	"trackwave/internal/models"
)

type albumTrackMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleCreateAlbum expects a multipart form: name, description, genreIds,
// one image file, a "tracks" JSON array of track metadata and one audio
// file per entry under the "audio" key, in the same order.
func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	a, ok := s.requireRole(w, r, models.RoleArtist)
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

	var metas []albumTrackMeta
	if raw := r.FormValue("tracks"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metas); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tracks payload"})
			return
		}
	}

	audioFiles := r.MultipartForm.File["audio"]
	if len(audioFiles) != len(metas) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("got %d audio files for %d tracks", len(audioFiles), len(metas)),
		})
		return
	}

	image, imageHeader, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer image.Close()

	up := albums.Upload{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		ImageExt:    filepath.Ext(imageHeader.Filename),
		Image:       image,
		GenreIDs:    genreIDs,
	}
	for i, meta := range metas {
		audio, err := audioFiles[i].Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable audio file"})
			return
		}
		defer audio.Close()
		up.Tracks = append(up.Tracks, albums.TrackUpload{
			Title:       meta.Title,
			Description: meta.Description,
			AudioExt:    filepath.Ext(audioFiles[i].Filename),
			Audio:       audio,
		})
	}

	album, err := s.albums.Create(r.Context(), a.id, a.name, up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, album)
}

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)
	found, err := s.albums.List(r.Context(), limit, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeAlbums(w, found)
}

func (s *Server) handleMostLikedAlbums(w http.ResponseWriter, r *http.Request) {
	found, err := s.albums.MostLiked(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeAlbums(w, found)
}

func (s *Server) handleSearchAlbums(w http.ResponseWriter, r *http.Request) {
	found, err := s.albums.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeAlbums(w, found)
}

func (s *Server) handleAlbumsByArtist(w http.ResponseWriter, r *http.Request) {
	artistID, ok := pathID(r, "artistID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid artist id"})
		return
	}

	found, err := s.albums.ByArtist(r.Context(), artistID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeAlbums(w, found)
}

func writeAlbums(w http.ResponseWriter, found []models.Album) {
	writeJSON(w, http.StatusOK, struct {
		Albums []models.Album `json:"albums"`
	}{Albums: found})
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
		return
	}

	album, err := s.albums.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
		return
	}

	var req metaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.albums.UpdateMeta(r.Context(), a.id, id, req.Name, req.Description); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceAlbumImage(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer file.Close()

	path, err := s.albums.ReplaceImage(r.Context(), a.id, a.name, id, filepath.Ext(header.Filename), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Path string `json:"path"`
	}{Path: path})
}

func (s *Server) handleAlbumGenre(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
			return
		}
		genreID, ok := pathID(r, "genreID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
			return
		}

		if err := s.albums.SetGenre(r.Context(), a.id, id, genreID, add); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleAlbumTrack(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
			return
		}
		trackID, ok := pathID(r, "trackID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
			return
		}

		var err error
		if add {
			err = s.albums.AttachTrack(r.Context(), a.id, a.name, id, trackID)
		} else {
			err = s.albums.DetachTrack(r.Context(), a.id, a.name, id, trackID)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleAlbumCollection(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
			return
		}

		if err := s.albums.SetCollection(r.Context(), a.id, id, add); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid album id"})
		return
	}

	if err := s.albums.Delete(r.Context(), a.id, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
