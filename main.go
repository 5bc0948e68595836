package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/board"
	"github.com/robalobadob/concentration/internal/config"
	"github.com/robalobadob/concentration/internal/db"
	"github.com/robalobadob/concentration/internal/httpserver"
	"github.com/robalobadob/concentration/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	symbols, err := board.LoadSymbols(cfg.SymbolsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load symbols")
	}
	if err := board.Validate(cfg.BoardDimension, symbols); err != nil {
		log.Fatal().Err(err).Int("dimension", cfg.BoardDimension).Int("symbols", len(symbols)).Msg("bad default board")
	}

	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open db")
	}
	defer sqlDB.Close()
	if err := db.Migrate(sqlDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	srv := httpserver.New(mem, sqlDB, cfg, symbols)
	go srv.EvictLoop(ctx, cfg.SessionTTL, time.Minute)
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down, flushing results")
		srv.Close()
		_ = sqlDB.Close()
		os.Exit(0)
	}()

	log.Info().Str("port", cfg.Port).Int("symbols", len(symbols)).Msg("starting concentration server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
