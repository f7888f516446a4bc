package httpapi

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"trackwave/internal/app/tracks"
	"trackwave/internal/models"
)

const maxUploadSize = 64 << 20

func (s *Server) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	a, ok := s.requireRole(w, r, models.RoleArtist)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart payload"})
		return
	}

	audio, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing audio file"})
		return
	}
	defer audio.Close()

	image, imageHeader, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer image.Close()

	track, err := s.tracks.Upload(r.Context(), a.id, a.name, tracks.Upload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		AudioExt:    filepath.Ext(audioHeader.Filename),
		Audio:       audio,
		ImageExt:    filepath.Ext(imageHeader.Filename),
		Image:       image,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)
	found, err := s.tracks.List(r.Context(), limit, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeTracks(w, found)
}

func (s *Server) handleMostLikedTracks(w http.ResponseWriter, r *http.Request) {
	found, err := s.tracks.MostLiked(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeTracks(w, found)
}

func (s *Server) handleMostListenedTracks(w http.ResponseWriter, r *http.Request) {
	found, err := s.tracks.MostListened(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeTracks(w, found)
}

func (s *Server) handleSearchTracks(w http.ResponseWriter, r *http.Request) {
	found, err := s.tracks.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeTracks(w, found)
}

func writeTracks(w http.ResponseWriter, found []models.Track) {
	writeJSON(w, http.StatusOK, struct {
		Tracks []models.Track `json:"tracks"`
	}{Tracks: found})
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	track, err := s.tracks.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	if err := s.tracks.Listen(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type metaRequest struct {
	Title       *string `json:"title"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	var req metaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.tracks.UpdateMeta(r.Context(), a.id, id, req.Title, req.Description); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceTrackAudio(w http.ResponseWriter, r *http.Request) {
	s.replaceTrackMedia(w, r, "audio", s.tracks.ReplaceAudio)
}

func (s *Server) handleReplaceTrackImage(w http.ResponseWriter, r *http.Request) {
	s.replaceTrackMedia(w, r, "image", s.tracks.ReplaceImage)
}

func (s *Server) replaceTrackMedia(w http.ResponseWriter, r *http.Request, field string,
	replace func(ctx context.Context, actorID int64, actorName string, id int64, ext string, content io.Reader) (string, error)) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + field + " file"})
		return
	}
	defer file.Close()

	path, err := replace(r.Context(), a.id, a.name, id, filepath.Ext(header.Filename), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Path string `json:"path"`
	}{Path: path})
}

func (s *Server) handleChangeTrackArtist(w http.ResponseWriter, r *http.Request) {
	a, ok := s.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	var req struct {
		ArtistID int64 `json:"artistId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.tracks.ChangeArtist(r.Context(), a.id, id, req.ArtistID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrackGenre(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
			return
		}
		genreID, ok := pathID(r, "genreID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid genre id"})
			return
		}

		if err := s.tracks.SetGenre(r.Context(), a.id, id, genreID, add); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleTrackCollection(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
			return
		}

		if err := s.tracks.SetCollection(r.Context(), a.id, id, add); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	if err := s.tracks.Delete(r.Context(), a.id, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	path := r.PathValue("path")

	media, err := s.tracks.OpenMedia(r.Context(), owner, path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "media not found"})
		return
	}
	defer media.Close()

	if ctype := mime.TypeByExtension(filepath.Ext(path)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	_, _ = io.Copy(w, media)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track id"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := s.tracks.AddComment(r.Context(), a.id, id, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleEditComment(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid comment id"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.tracks.EditComment(r.Context(), a.id, id, req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	a, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid comment id"})
		return
	}

	if err := s.tracks.DeleteComment(r.Context(), a.id, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
