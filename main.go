package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/arenalog/companion/internal/applog"
	"github.com/arenalog/companion/internal/httpsync"
	"github.com/arenalog/companion/internal/ipc"
	"github.com/arenalog/companion/internal/logwatch"
	"github.com/arenalog/companion/internal/playerdata"
	"github.com/arenalog/companion/internal/playerdb"
)

var (
	version   = "dev"
	commit    = "local"
	buildDate = "unknown"
)

func main() {
	var (
		playerID    = flag.String("player", os.Getenv("COMPANION_PLAYER_ID"), "stable player identifier")
		arenaID     = flag.String("arena-id", os.Getenv("COMPANION_ARENA_ID"), "Arena account id")
		displayName = flag.String("name", "", "player display name")
		dataDir     = flag.String("data-dir", defaultDataDir(), "directory holding per-player databases")
		logPath     = flag.String("log", os.Getenv("ARENA_LOG_PATH"), "path to the game client Player.log")
		apiURL      = flag.String("api", "https://mtgatool.com/api", "remote sync endpoint")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	applog.Init(*debug || os.Getenv("COMPANION_DEBUG") != "")
	slog.Info("arena companion", "version", version, "commit", commit, "built", buildDate)

	if *playerID == "" {
		fmt.Fprintln(os.Stderr, "a player id is required (-player or COMPANION_PLAYER_ID)")
		os.Exit(2)
	}
	if *logPath == "" {
		detected, err := logwatch.DefaultLogPath()
		if err != nil {
			slog.Warn("no log location configured or detected", "error", err)
		}
		*logPath = detected
	}

	var store playerdb.Store = playerdb.NewSQLiteStore(*dataDir)
	if err := store.Init(context.Background(), *playerID, *displayName); err != nil {
		slog.Warn("falling back to in-memory store", "error", err)
		store = playerdb.NewMemoryStore()
	}
	defer store.Close()

	bus := ipc.NewFanoutBus()
	bus.Subscribe(ipc.SurfaceRenderer, func(m ipc.Message) {
		slog.Debug("renderer update", "action", string(m.Action))
	})
	bus.Subscribe(ipc.SurfaceOverlay, func(m ipc.Message) {
		slog.Debug("overlay update", "action", string(m.Action))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := httpsync.NewQueue(httpsync.Config{BaseURL: *apiURL, Token: os.Getenv("COMPANION_API_TOKEN")})
	queue.Start(ctx)

	coord := playerdata.NewCoordinator(playerdata.CoordinatorConfig{
		Store:   store,
		Bus:     bus,
		LogPath: *logPath,
		StartWatch: func(path string) (func(), error) {
			return logwatch.StartWatching(path, logwatch.Config{
				OnNewLines: func(lines []string, startOffset, endOffset int64) {
					// Log parsing is a separate subsystem; here we only
					// surface that the tail is alive.
					slog.Debug("log lines", "count", len(lines), "from", startOffset, "to", endOffset)
				},
				OnError: func(err error) {
					slog.Warn("log watcher error", "error", err)
				},
			})
		},
	})

	acct := playerdata.Account{PlayerID: *playerID, ArenaID: *arenaID, DisplayName: *displayName}
	ext, err := coord.Load(ctx, acct)
	if err != nil {
		slog.Error("player data load failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := queue.Backfill(ctx, *arenaID, ext); err != nil {
			slog.Warn("remote backfill failed", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down")
	coord.Reset()
	cancel()
	if err := queue.Close(); err != nil {
		slog.Warn("sync queue shutdown", "error", err)
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("COMPANION_DATA_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "arena-companion")
}
