package main

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"trackwave/internal/blob"
	"trackwave/internal/logging"
	"trackwave/internal/store"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})

	db, err := openDatabase(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	dataStore := store.New(db)

	blobStore, err := blob.New(cfg.MediaDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open media store")
	}

	if err := bootstrap(context.Background(), cfg, dataStore); err != nil {
		log.Fatal().Err(err).Msg("bootstrap")
	}

	handler, err := newHTTPHandler(cfg, dataStore, blobStore)
	if err != nil {
		log.Fatal().Err(err).Msg("build handler")
	}

	log.Info().Str("addr", cfg.Addr).Msg("API listening")
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
