package playerdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arenalog/companion/internal/ipc"
	"github.com/arenalog/companion/internal/playerdb"
)

// Stage is the coordinator's position in the initialization sequence.
type Stage int

const (
	StageNotStarted Stage = iota
	StageStoreOpened
	StageRawDataFetched
	StageNormalized
	StagePublished
	StageWatcherArmed
	StageIdle
)

func (s Stage) String() string {
	switch s {
	case StageNotStarted:
		return "not-started"
	case StageStoreOpened:
		return "store-opened"
	case StageRawDataFetched:
		return "raw-data-fetched"
	case StageNormalized:
		return "normalized"
	case StagePublished:
		return "published"
	case StageWatcherArmed:
		return "watcher-armed"
	case StageIdle:
		return "idle"
	}
	return "unknown"
}

// WatchStarter starts the log watcher against the configured log location and
// returns a handle that stops it.
type WatchStarter func(path string) (stop func(), err error)

// Account identifies whose store to load.
type Account struct {
	PlayerID    string
	ArenaID     string
	DisplayName string
}

// Coordinator runs the full load sequence for one player: open store, read
// raw data, normalize, extract, publish, arm the log watcher. It may be
// invoked again on account switch; the watcher is armed at most once per
// process until Reset.
type Coordinator struct {
	store      playerdb.Store
	bus        ipc.Bus
	state      *State
	pub        *Publisher
	startWatch WatchStarter
	logPath    string

	mu           sync.Mutex
	stage        Stage
	watcherArmed bool
	stopWatch    func()
}

type CoordinatorConfig struct {
	Store      playerdb.Store
	Bus        ipc.Bus
	StartWatch WatchStarter
	LogPath    string
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	state := NewState()
	return &Coordinator{
		store:      cfg.Store,
		bus:        cfg.Bus,
		state:      state,
		pub:        NewPublisher(state, cfg.Bus, cfg.Store),
		startWatch: cfg.StartWatch,
		logPath:    cfg.LogPath,
	}
}

// State returns the in-process state mirror the coordinator publishes into.
func (c *Coordinator) State() *State {
	return c.state
}

// Publisher returns the publisher, for later incremental updates.
func (c *Coordinator) Publisher() *Publisher {
	return c.pub
}

func (c *Coordinator) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

func (c *Coordinator) setStage(s Stage) {
	c.mu.Lock()
	c.stage = s
	c.mu.Unlock()
	slog.Debug("load stage", "stage", s.String())
}

// Load runs the full sequence and returns the extracted snapshot so callers
// can forward it (e.g. to the remote sync queue). Only a store that cannot be
// opened or read is fatal; every per-domain failure downstream is logged and
// skipped.
func (c *Coordinator) Load(ctx context.Context, acct Account) (*Extracted, error) {
	slog.Info("loading player data", "player", acct.PlayerID)
	c.bus.Publish(ipc.ActionPopup, ipc.Popup{Text: "Loading player history...", Progress: 2}, ipc.ToRenderer)

	if err := c.store.Init(ctx, acct.PlayerID, acct.DisplayName); err != nil {
		return nil, fmt.Errorf("open player store: %w", err)
	}
	c.setStage(StageStoreOpened)
	c.bus.Publish(ipc.ActionSetPlayerDB, c.store.Path(), ipc.ToRenderer)
	slog.Info("player database", "path", c.store.Path())

	raw, err := c.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read player store: %w", err)
	}
	c.setStage(StageRawDataFetched)

	raw = NormalizeStore(raw)
	c.setStage(StageNormalized)

	ext := Extract(raw, acct.ArenaID)
	c.pub.PublishAll(ctx, ext)

	// Last-draft preview for the overlay is a best-effort side channel:
	// its error is deliberately discarded.
	_ = c.forwardLastDraft(ext)
	c.setStage(StagePublished)

	c.armWatcher()
	c.setStage(StageWatcherArmed)

	c.bus.Publish(ipc.ActionPopup, ipc.Popup{Text: "Player history loaded.", Time: 3000, Progress: -1}, ipc.ToRenderer)
	c.setStage(StageIdle)
	slog.Info("player data loaded", "counts", c.state.Counts())
	return ext, nil
}

// forwardLastDraft snapshots the most recently indexed draft and sends it to
// the overlay so an in-progress draft view can resume.
func (c *Coordinator) forwardLastDraft(ext *Extracted) error {
	if !ext.HasDrafts || len(ext.Drafts) == 0 {
		return nil
	}
	last := ext.Drafts[len(ext.Drafts)-1]
	if last == nil {
		return fmt.Errorf("last indexed draft is nil")
	}
	c.bus.Publish(ipc.ActionSetDraftCards, last, ipc.ToOverlay)
	return nil
}

// armWatcher starts the log watcher exactly once per process. Multi-account
// flows re-run Load while a watcher from the previous account may still be
// attached; a second watcher would double-process every log event.
func (c *Coordinator) armWatcher() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcherArmed {
		slog.Debug("log watcher already armed")
		return
	}
	if c.startWatch == nil {
		return
	}
	slog.Info("starting log watcher", "path", c.logPath)
	stop, err := c.startWatch(c.logPath)
	if err != nil {
		slog.Warn("failed to start log watcher", "path", c.logPath, "error", err)
		return
	}
	c.watcherArmed = true
	c.stopWatch = stop
}

// WatcherArmed reports whether a watcher is currently attached.
func (c *Coordinator) WatcherArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watcherArmed
}

// Reset tears down for multi-account re-entry: the watcher is stopped and the
// stage returns to NotStarted so a later Load can arm a fresh watcher.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	stop := c.stopWatch
	c.stopWatch = nil
	c.watcherArmed = false
	c.stage = StageNotStarted
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}
