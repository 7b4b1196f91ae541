package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-anki/anki/internal/config"
	"github.com/mcp-anki/anki/internal/logger"
	"github.com/mcp-anki/anki/internal/mcpserver"
	"github.com/mcp-anki/anki/internal/queue"
	"github.com/mcp-anki/anki/internal/repository"
	"github.com/mcp-anki/anki/internal/repository/sqlite"
	"github.com/mcp-anki/anki/internal/reviewuc"
	"github.com/mcp-anki/anki/internal/store"
	"github.com/mcp-anki/anki/internal/worker"
)

const (
	serverName    = "mcp-anki"
	serverVersion = "0.1.0"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Default().Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(false), // stdout is the JSON-RPC stdio transport; keep stderr plain
		logger.WithOutput(os.Stderr),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("mcp-anki starting")
	log.Info("===========================================")
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("media_dir=%s", cfg.MediaDir)
	log.Debug("readonly=%v", cfg.Readonly)
	log.Debug("log_level=%s", cfg.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Error("failed to create database directory: %v", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		log.Error("failed to create media directory: %v", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		db.Close()
	}()

	decks := sqlite.NewDeckRepository(db.DB)
	notes := sqlite.NewNoteRepository(db.DB)
	cards := sqlite.NewCardRepository(db.DB)
	reviews := sqlite.NewReviewRepository(db.DB)
	media := sqlite.NewMediaRepository(db.DB)

	queueBuilder := queue.NewBuilder(decks, cards, reviews)
	answerUC := &reviewuc.AnswerUseCase{Store: db, Decks: decks, Notes: notes, Cards: cards, Reviews: reviews}

	deps := mcpserver.Deps{
		Decks:    decks,
		Notes:    notes,
		Cards:    cards,
		Reviews:  reviews,
		Media:    media,
		Queue:    queueBuilder,
		Answer:   answerUC,
		Readonly: cfg.Readonly,
	}

	maintenance := worker.NewPool(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	maintenance.Start(ctx)
	go runDayRolloverSweep(ctx, maintenance, cards)

	mcpSrv, err := mcpserver.New(serverName, serverVersion, deps)
	if err != nil {
		log.Error("failed to build MCP server: %v", err)
		os.Exit(1)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("serving over stdio")
		serveErrCh <- server.ServeStdio(mcpSrv)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("received signal %v, initiating graceful shutdown", sig)
	case err := <-serveErrCh:
		if err != nil {
			log.Error("stdio server error: %v", err)
		}
		log.Info("stdio transport closed (client disconnected)")
	}

	log.Debug("stopping maintenance pool")
	cancel()
	maintenance.Stop()

	log.Info("===========================================")
	log.Info("mcp-anki stopped")
	log.Info("===========================================")
}

// runDayRolloverSweep submits the unbury-all job once per UTC day
// boundary, so buried cards return to circulation at the same cadence a
// human user's local Anki client would (spec §4.9's day rollover, §9's
// deck-hierarchy/queue design notes).
func runDayRolloverSweep(ctx context.Context, pool *worker.Pool, cards repository.CardRepository) {
	for {
		next := nextUTCMidnight(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			pool.Submit(queue.UnburyAllJob{Cards: cards})
		}
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, 1)
}
