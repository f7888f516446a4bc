package main

import (
	"net/http"
	"strings"

	"trackwave/internal/app/albums"
	"trackwave/internal/app/genres"
	"trackwave/internal/app/playlists"
	"trackwave/internal/app/roles"
	"trackwave/internal/app/tracks"
	"trackwave/internal/app/users"
	"trackwave/internal/auth"
	"trackwave/internal/blob"
	"trackwave/internal/httpapi"
	"trackwave/internal/middleware"
	"trackwave/internal/store"
)

func newHTTPHandler(cfg Config, dataStore *store.Store, blobStore *blob.Store) (http.Handler, error) {
	tokens, err := auth.NewManager(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	userSvc := users.New(dataStore, tokens, blobStore)
	roleSvc := roles.New(dataStore)
	genreSvc := genres.New(dataStore)
	trackSvc := tracks.New(dataStore, blobStore)
	playlistSvc := playlists.New(dataStore, blobStore)
	albumSvc := albums.New(dataStore, blobStore)

	handler := httpapi.New(userSvc, roleSvc, genreSvc, trackSvc, playlistSvc, albumSvc, tokens).Routes()
	handler = middleware.Recovery()(handler)
	handler = middleware.RequestLogging()(handler)
	return withCORS(cfg.AllowedOrigins, handler), nil
}

func withCORS(allowedOrigins []string, next http.Handler) http.Handler {
	originAllowed := func(origin string) bool {
		if len(allowedOrigins) == 0 || origin == "" {
			return false
		}
		for _, o := range allowedOrigins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
