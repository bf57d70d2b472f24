// main.go
//
// Entry point for the sliding puzzle.
//
//   slidepuzzle          same as "serve"
//   slidepuzzle serve    HTTP server with the browser front end
//   slidepuzzle play     terminal game on the same leaderboard
//
// Configuration comes from the environment (see internal/config); a .env file
// in the working directory is loaded first when present.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/slidepuzzle/internal/config"
	"github.com/robalobadob/slidepuzzle/internal/game"
	"github.com/robalobadob/slidepuzzle/internal/httpserver"
	"github.com/robalobadob/slidepuzzle/internal/kv"
	"github.com/robalobadob/slidepuzzle/internal/leaderboard"
	"github.com/robalobadob/slidepuzzle/internal/realtime"
	"github.com/robalobadob/slidepuzzle/internal/store"
	"github.com/robalobadob/slidepuzzle/internal/tui"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "slidepuzzle",
	Short: "3x3 sliding tile puzzle with a timed leaderboard",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, playCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openScores() (*kv.SQLite, *leaderboard.Board, error) {
	db, err := kv.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open leaderboard db: %w", err)
	}
	return db, leaderboard.New(db, cfg.LeaderboardKey, cfg.LeaderboardSize), nil
}

func serve(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UsingDevSecret() {
		log.Warn().Msg("JWT_SECRET not set, using development secret (ALLOW_DEV_SECRET=true)")
	}

	db, scores, err := openScores()
	if err != nil {
		return err
	}
	defer db.Close()

	var origins []string
	if cfg.ClientOrigin != "" {
		origins = append(origins, cfg.ClientOrigin)
	}
	hub := realtime.NewHub(origins...)
	go hub.Run(ctx)

	srv := httpserver.New(cfg, store.NewMemoryStore(), scores, hub)
	log.Info().Str("port", cfg.Port).Str("db", cfg.DBPath).Msg("starting slidepuzzle")
	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func play(ctx context.Context) error {
	// The terminal owns stdout/stderr while the program runs.
	zerolog.SetGlobalLevel(zerolog.Disabled)

	db, scores, err := openScores()
	if err != nil {
		return err
	}
	defer db.Close()

	return tui.Run(ctx, scores, game.Config{Size: cfg.PuzzleSize})
}
