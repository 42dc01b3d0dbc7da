package playerdata

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/arenalog/companion/internal/ipc"
	"github.com/arenalog/companion/internal/playerdb"
)

func TestSaveEconomyTransactionWritesEntityAndIndex(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	ctx := context.Background()
	if err := store.Init(ctx, "p1", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	bus := &recordingBus{}
	pub := NewPublisher(NewState(), bus, store)

	var enqueued []*EconomyTransaction
	tx := &EconomyTransaction{ID: "t1", Context: "Booster.Open", Delta: json.RawMessage(`{"gems":-200}`)}
	if err := pub.SaveEconomyTransaction(ctx, tx, func(e *EconomyTransaction) {
		enqueued = append(enqueued, e)
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var index []string
	if ok, err := store.Get(ctx, "", "economy_index", &index); err != nil || !ok {
		t.Fatalf("read index: ok=%v err=%v", ok, err)
	}
	if len(index) != 1 || index[0] != "t1" {
		t.Fatalf("index = %v, want [t1]", index)
	}
	var stored EconomyTransaction
	if ok, err := store.Get(ctx, "", "t1", &stored); err != nil || !ok {
		t.Fatalf("read entity: ok=%v err=%v", ok, err)
	}
	if stored.Context != "Booster.Open" {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.Date.IsZero() {
		t.Fatal("date was not canonicalized")
	}
	if got := bus.byAction(ipc.ActionSetManyEconomy); len(got) != 1 {
		t.Fatalf("economy published %d times, want 1", len(got))
	}
	if len(enqueued) != 1 || enqueued[0].ID != "t1" {
		t.Fatalf("enqueued = %+v", enqueued)
	}
}

func TestSaveEconomyTransactionDoesNotDuplicateIndex(t *testing.T) {
	t.Parallel()

	store := playerdb.NewMemoryStore()
	ctx := context.Background()
	if err := store.Init(ctx, "p1", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	pub := NewPublisher(NewState(), &recordingBus{}, store)

	first := &EconomyTransaction{ID: "t1", Context: "Quest.Completed", Delta: json.RawMessage(`{"gold":250}`)}
	if err := pub.SaveEconomyTransaction(ctx, first, nil); err != nil {
		t.Fatalf("first save: %v", err)
	}
	// A later re-save with a sparse record keeps the details already held.
	if err := pub.SaveEconomyTransaction(ctx, &EconomyTransaction{ID: "t1"}, nil); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var index []string
	if _, err := store.Get(ctx, "", "economy_index", &index); err != nil {
		t.Fatalf("read index: %v", err)
	}
	if len(index) != 1 {
		t.Fatalf("index = %v, want a single entry", index)
	}
	var stored EconomyTransaction
	if _, err := store.Get(ctx, "", "t1", &stored); err != nil {
		t.Fatalf("read entity: %v", err)
	}
	if stored.Context != "Quest.Completed" || stored.Delta == nil {
		t.Fatalf("re-save erased detail: %+v", stored)
	}
}

func TestSaveEconomyTransactionRequiresID(t *testing.T) {
	t.Parallel()

	pub := NewPublisher(NewState(), &recordingBus{}, playerdb.NewMemoryStore())
	if err := pub.SaveEconomyTransaction(context.Background(), &EconomyTransaction{}, nil); err == nil {
		t.Fatal("expected error for transaction without id")
	}
}
