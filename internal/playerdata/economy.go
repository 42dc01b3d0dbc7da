package playerdata

import (
	"context"
	"fmt"
	"time"

	"github.com/arenalog/companion/internal/ipc"
)

// SaveEconomyTransaction records one newly observed economy transaction: the
// entity row is written, the economy index is extended only when the ID is
// new, state and bus are updated, and the record is handed to enqueue for
// remote sync. Fields already stored for the same ID survive when the
// incoming record leaves them empty, so a re-save cannot erase detail an
// earlier client version captured.
func (p *Publisher) SaveEconomyTransaction(ctx context.Context, tx *EconomyTransaction, enqueue func(*EconomyTransaction)) error {
	if tx == nil || tx.ID == "" {
		return fmt.Errorf("economy transaction has no id")
	}
	tx.Date = canonISO(tx.Date, time.Now())

	p.state.mu.RLock()
	existing := p.state.Economy[tx.ID]
	p.state.mu.RUnlock()
	if existing != nil {
		if tx.Context == "" {
			tx.Context = existing.Context
		}
		if tx.Delta == nil {
			tx.Delta = existing.Delta
		}
		if existing.Archived {
			tx.Archived = true
		}
	}

	var index []string
	if _, err := p.store.Get(ctx, "", keyEconomyIndex, &index); err != nil {
		return fmt.Errorf("read economy index: %w", err)
	}
	known := false
	for _, id := range index {
		if id == tx.ID {
			known = true
			break
		}
	}
	if !known {
		index = append(index, tx.ID)
		if err := p.store.Upsert(ctx, "", keyEconomyIndex, index); err != nil {
			return fmt.Errorf("extend economy index: %w", err)
		}
	}
	if err := p.store.Upsert(ctx, "", tx.ID, tx); err != nil {
		return fmt.Errorf("write economy transaction: %w", err)
	}

	p.state.UpsertEconomy([]*EconomyTransaction{tx})
	p.bus.Publish(ipc.ActionSetManyEconomy, []*EconomyTransaction{tx}, ipc.ToRenderer)

	if enqueue != nil {
		enqueue(tx)
	}
	return nil
}
