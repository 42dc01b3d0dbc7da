package playerdata

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/arenalog/companion/internal/ipc"
	"github.com/arenalog/companion/internal/playerdb"
)

// recordingBus captures everything published, for assertions.
type recordingBus struct {
	mu   sync.Mutex
	msgs []recordedMsg
}

type recordedMsg struct {
	action  ipc.Action
	payload any
	aud     ipc.Audience
}

func (b *recordingBus) Publish(action ipc.Action, payload any, aud ipc.Audience) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, recordedMsg{action, payload, aud})
}

func (b *recordingBus) byAction(action ipc.Action) []recordedMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedMsg
	for _, m := range b.msgs {
		if m.action == action {
			out = append(out, m)
		}
	}
	return out
}

func testAccount() Account {
	return Account{PlayerID: "player-1", ArenaID: testArenaID, DisplayName: "Tester"}
}

func newTestCoordinator(store playerdb.Store, bus ipc.Bus, watch WatchStarter) *Coordinator {
	return NewCoordinator(CoordinatorConfig{
		Store:      store,
		Bus:        bus,
		StartWatch: watch,
		LogPath:    "Player.log",
	})
}

func TestLoadRunsThroughAllStages(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	store.Seed("courses_index", []string{"a", "b"})
	store.Seed("a", map[string]any{"id": "a", "date": 1609459200})
	// "b" is dangling on purpose.

	bus := &recordingBus{}
	coord := newTestCoordinator(store, bus, func(string) (func(), error) {
		return func() {}, nil
	})

	ext, err := coord.Load(context.Background(), testAccount())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if coord.Stage() != StageIdle {
		t.Fatalf("stage = %v, want idle", coord.Stage())
	}
	if len(ext.Events) != 1 || ext.Events[0].ID != "a" {
		t.Fatalf("events = %+v, want only 'a'", ext.Events)
	}
	if got := bus.byAction(ipc.ActionSetManyEvents); len(got) != 1 {
		t.Fatalf("events published %d times, want 1", len(got))
	}
	if got := bus.byAction(ipc.ActionSetPlayerDB); len(got) != 1 {
		t.Fatal("store location was not announced")
	}
}

func TestLoadWithoutDraftIndexSkipsPreview(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	bus := &recordingBus{}
	coord := newTestCoordinator(store, bus, nil)

	if _, err := coord.Load(context.Background(), testAccount()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if coord.Stage() != StageIdle {
		t.Fatalf("stage = %v, want idle", coord.Stage())
	}
	if got := bus.byAction(ipc.ActionSetDraftCards); len(got) != 0 {
		t.Fatalf("draft preview published %d times, want 0", len(got))
	}
}

func TestLoadForwardsLastDraftToOverlay(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	store.Seed("draft_index", []string{"dr1", "dr2"})
	store.Seed("dr1", map[string]any{"id": "dr1"})
	store.Seed("dr2", map[string]any{"id": "dr2"})

	bus := &recordingBus{}
	coord := newTestCoordinator(store, bus, nil)
	if _, err := coord.Load(context.Background(), testAccount()); err != nil {
		t.Fatalf("load: %v", err)
	}

	got := bus.byAction(ipc.ActionSetDraftCards)
	if len(got) != 1 {
		t.Fatalf("draft preview published %d times, want 1", len(got))
	}
	if got[0].aud != ipc.ToOverlay {
		t.Fatalf("draft preview audience = %+v, want overlay only", got[0].aud)
	}
	if last, ok := got[0].payload.(*Draft); !ok || last.ID != "dr2" {
		t.Fatalf("preview payload = %+v, want last indexed draft dr2", got[0].payload)
	}
}

func TestWatcherArmsExactlyOnceAcrossReloads(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	bus := &recordingBus{}

	var mu sync.Mutex
	starts := 0
	stops := 0
	coord := newTestCoordinator(store, bus, func(string) (func(), error) {
		mu.Lock()
		starts++
		mu.Unlock()
		return func() {
			mu.Lock()
			stops++
			mu.Unlock()
		}, nil
	})

	for i := 0; i < 2; i++ {
		if _, err := coord.Load(context.Background(), testAccount()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	mu.Lock()
	if starts != 1 {
		mu.Unlock()
		t.Fatalf("watcher started %d times, want 1", starts)
	}
	mu.Unlock()
	if !coord.WatcherArmed() {
		t.Fatal("watcher should be armed")
	}

	// Reset tears down and allows a fresh arm on the next load.
	coord.Reset()
	mu.Lock()
	if stops != 1 {
		mu.Unlock()
		t.Fatalf("watcher stopped %d times, want 1", stops)
	}
	mu.Unlock()
	if coord.Stage() != StageNotStarted {
		t.Fatalf("stage after reset = %v", coord.Stage())
	}

	if _, err := coord.Load(context.Background(), testAccount()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if starts != 2 {
		t.Fatalf("watcher started %d times after reset, want 2", starts)
	}
}

func TestLoadWritesCanonicalCardsBack(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	store.Seed("cards", map[string]any{
		"cards_time": map[string]any{"$$date": 1619827200000},
		"cards":      map[string]int{"101": 4},
	})

	bus := &recordingBus{}
	coord := newTestCoordinator(store, bus, nil)
	if _, err := coord.Load(context.Background(), testAccount()); err != nil {
		t.Fatalf("load: %v", err)
	}

	raw, err := store.FindAll(context.Background())
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	var blob CardsBlob
	if err := json.Unmarshal(raw["cards"], &blob); err != nil {
		t.Fatalf("decode written-back cards: %v", err)
	}
	ms, ok := blob.CardsTime.EpochMs()
	if !ok || ms != 1619827200000 {
		t.Fatalf("written-back cards_time = %d (ok=%v)", ms, ok)
	}
	if blob.Cards["101"] != 4 {
		t.Fatalf("written-back cards = %v", blob.Cards)
	}
}

func TestLoadRebroadcastsSettingsWithForcedRefresh(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	store.Seed("settings", map[string]any{"sound_priority": true})

	bus := &recordingBus{}
	coord := newTestCoordinator(store, bus, nil)
	if _, err := coord.Load(context.Background(), testAccount()); err != nil {
		t.Fatalf("load: %v", err)
	}

	got := bus.byAction(ipc.ActionSetSettings)
	if len(got) != 1 {
		t.Fatalf("settings published %d times, want 1 forced resync", len(got))
	}
	if got[0].aud != ipc.ToAllButBackground {
		t.Fatalf("settings audience = %+v, want all-but-background", got[0].aud)
	}
	merged, ok := got[0].payload.(map[string]any)
	if !ok || merged["sound_priority"] != true {
		t.Fatalf("settings payload = %+v", got[0].payload)
	}
}

func TestLoadFailsOnlyWhenStoreUnreadable(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	bus := &recordingBus{}
	coord := newTestCoordinator(store, bus, nil)

	// Empty player id makes Init fail: the only fatal case.
	if _, err := coord.Load(context.Background(), Account{}); err == nil {
		t.Fatal("expected fatal error when store cannot be opened")
	}

	// Broken domains are not fatal.
	store.Seed("courses_index", "not-a-list")
	store.Seed("seasonal", []int{1, 2, 3})
	if _, err := coord.Load(context.Background(), testAccount()); err != nil {
		t.Fatalf("load with broken domains: %v", err)
	}
	if coord.Stage() != StageIdle {
		t.Fatalf("stage = %v, want idle", coord.Stage())
	}
}
