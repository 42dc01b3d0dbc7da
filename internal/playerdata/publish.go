package playerdata

import (
	"context"
	"log/slog"

	"github.com/arenalog/companion/internal/ipc"
	"github.com/arenalog/companion/internal/playerdb"
)

// Publisher applies extracted domain values to the state mirror and announces
// each one on the bus, in a fixed domain order. Publishing a domain that was
// absent from the store is a no-op; a present-but-empty collection still
// publishes, so consumers can tell "nothing stored" from "nothing yet".
type Publisher struct {
	state *State
	bus   ipc.Bus
	store playerdb.Store
}

func NewPublisher(state *State, bus ipc.Bus, store playerdb.Store) *Publisher {
	return &Publisher{state: state, bus: bus, store: store}
}

// PublishAll emits the extracted domains in order. Order only matters for
// consumers reading state incrementally; no domain depends on another having
// been applied first.
func (p *Publisher) PublishAll(ctx context.Context, ext *Extracted) {
	if ext.Settings != nil {
		if tab, ok := ext.Settings["last_open_tab"]; ok {
			p.state.TopNav = tab
			p.bus.Publish(ipc.ActionSetTopNav, tab, ipc.ToRenderer)
		}
	}
	if ext.HasPrivateDecks {
		p.state.PrivateDecks = ext.PrivateDecks
		p.bus.Publish(ipc.ActionSetPrivateDecks, ext.PrivateDecks, ipc.ToRenderer)
	}
	if ext.HasRank {
		p.state.Rank = ext.Rank
		p.bus.Publish(ipc.ActionSetRank, ext.Rank, ipc.ToRenderer)
	}

	p.state.UpsertMatches(ext.Matches)
	p.bus.Publish(ipc.ActionSetManyMatches, ext.Matches, ipc.ToRenderer)

	if ext.HasEvents {
		p.state.UpsertEvents(ext.Events)
		p.bus.Publish(ipc.ActionSetManyEvents, ext.Events, ipc.ToRenderer)
	}
	if ext.HasDecks {
		p.state.UpsertDecks(ext.Decks)
		p.bus.Publish(ipc.ActionSetManyDecks, ext.Decks, ipc.ToRenderer)
	}
	if ext.HasDeckChanges {
		p.state.UpsertDeckChanges(ext.DeckChanges)
		p.bus.Publish(ipc.ActionSetManyDeckChanges, ext.DeckChanges, ipc.ToRenderer)
	}
	if ext.HasEconomy {
		p.state.UpsertEconomy(ext.Economy)
		p.bus.Publish(ipc.ActionSetManyEconomy, ext.Economy, ipc.ToRenderer)
	}
	if ext.HasDrafts {
		p.state.UpsertDrafts(ext.Drafts)
		p.bus.Publish(ipc.ActionSetManyDrafts, ext.Drafts, ipc.ToRenderer)
	}
	if ext.HasSeasonal {
		p.state.UpsertSeasonal(ext.Seasonal)
		p.bus.Publish(ipc.ActionSetManySeasonal, ext.Seasonal, ipc.ToRenderer)
	}

	if ext.Cards != nil {
		p.publishCards(ctx, ext.Cards)
	}

	if ext.HasTagColors {
		p.state.TagColors = ext.TagColors
		p.bus.Publish(ipc.ActionSetTagColors, ext.TagColors, ipc.ToRenderer)
	}
	if ext.HasDeckTags {
		p.state.DeckTags = ext.DeckTags
		p.bus.Publish(ipc.ActionSetDeckTags, ext.DeckTags, ipc.ToRenderer)
	}
	if ext.HasWindowBounds {
		p.state.WindowBounds = ext.WindowBounds
		p.bus.Publish(ipc.ActionSetBounds, ext.WindowBounds, ipc.ToRenderer)
	}

	// Settings consumers need a forced resync on first attach even when
	// nothing changed, independent of the extractor-driven update above.
	p.SyncSettings(ext.Settings, true)
}

// publishCards merges the stored cards blob into state and writes the merged
// result straight back under its own key. The read-modify-write keeps the
// stored shape canonical even when no new cards arrived this session.
func (p *Publisher) publishCards(ctx context.Context, incoming *CardsBlob) {
	merged := p.state.MergeCards(incoming)
	p.bus.Publish(ipc.ActionAddCardsFromStore, merged, ipc.ToRenderer)
	if err := p.store.Upsert(ctx, "", keyCards, merged); err != nil {
		slog.Warn("failed to write back canonical cards", "error", err)
	}
}

// SyncSettings overlays dirty settings onto the current ones and, when
// refresh is set, broadcasts the merged settings to every surface except the
// background process that owns them.
func (p *Publisher) SyncSettings(dirty map[string]any, refresh bool) {
	merged := p.state.MergeSettings(dirty)
	if refresh {
		p.bus.Publish(ipc.ActionSetSettings, merged, ipc.ToAllButBackground)
	}
}
