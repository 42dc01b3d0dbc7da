package playerdata

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/arenalog/companion/internal/deck"
	"github.com/arenalog/companion/internal/playerdb"
	"github.com/arenalog/companion/internal/timeutil"
)

// Extract derives one clean collection per data domain from the normalized
// raw store. Extractors are independent: a record or domain that fails to
// decode is logged and skipped without blocking the rest. Index entries whose
// entity is missing are dropped silently; partial writes from old crashes
// are expected, not a corruption signal.
func Extract(raw playerdb.RawStore, arenaID string) *Extracted {
	ext := &Extracted{}

	extractSettings(raw, ext)
	extractScalars(raw, ext)
	ext.Matches = extractMatches(raw, arenaID)
	ext.Events, ext.HasEvents = extractIndexed[Event](raw, keyCoursesIndex, "", canonEventDate)
	extractDecks(raw, ext)
	extractDeckChanges(raw, ext)
	ext.Economy, ext.HasEconomy = extractIndexed[EconomyTransaction](raw, keyEconomyIndex, "", canonEconomyDate)
	ext.Drafts, ext.HasDrafts = extractIndexed[Draft](raw, keyDraftIndex, "", nil)
	extractSeasonal(raw, ext)
	extractCards(raw, ext)

	return ext
}

func extractSettings(raw playerdb.RawStore, ext *Extracted) {
	var settings map[string]any
	present, err := raw.Entity(keySettings, &settings)
	if err != nil {
		slog.Warn("settings blob is unreadable", "error", err)
		return
	}
	if present {
		ext.Settings = settings
	}
}

func extractScalars(raw playerdb.RawStore, ext *Extracted) {
	if blob, ok := raw[keyPrivateDecks]; ok {
		ext.HasPrivateDecks = true
		ext.PrivateDecks = blob
	}
	if blob, ok := raw[keyRank]; ok {
		ext.HasRank = true
		ext.Rank = blob
	}
	if blob, ok := raw[keyWindowBounds]; ok {
		ext.HasWindowBounds = true
		ext.WindowBounds = blob
	}
	var colors map[string]string
	if present, err := raw.Entity(keyTagsColors, &colors); err != nil {
		slog.Warn("tag colors blob is unreadable", "error", err)
	} else if present {
		ext.HasTagColors = true
		ext.TagColors = colors
	}
	var tags map[string][]string
	if present, err := raw.Entity(keyDeckTags, &tags); err != nil {
		slog.Warn("deck tags blob is unreadable", "error", err)
	} else if present {
		ext.HasDeckTags = true
		ext.DeckTags = tags
	}
}

// extractMatches scans every top-level key for match records belonging to the
// given Arena account: the key either ends in the account ID or the embedded
// player user ID equals it. Records without a single game-stats entry are
// incomplete and skipped. Matches missing a deck hash get one computed here,
// once; a hash already present is never recomputed.
func extractMatches(raw playerdb.RawStore, arenaID string) []*Match {
	matches := make([]*Match, 0)
	if arenaID == "" {
		return matches
	}
	for id, blob := range raw {
		var m Match
		if err := json.Unmarshal(blob, &m); err != nil {
			continue
		}
		if !strings.HasSuffix(id, arenaID) && m.Player.UserID != arenaID {
			continue
		}
		if len(m.GameStats) == 0 {
			continue
		}
		if m.ID == "" {
			m.ID = id
		}
		if m.PlayerDeck != nil && m.PlayerDeckHash == "" {
			m.PlayerDeckHash = m.PlayerDeck.MainDeck.Hash()
		}
		m.Date = canonISO(m.Date, time.UnixMilli(0))
		matches = append(matches, &m)
	}
	return matches
}

// extractIndexed walks an index list, drops dangling IDs, decodes each entity
// and applies an optional canonicalization. Entities live at the top level
// unless scope names a sub-document holding them.
func extractIndexed[T any](raw playerdb.RawStore, indexKey, scope string, canon func(*T) bool) ([]*T, bool) {
	var index []string
	present, err := raw.Entity(indexKey, &index)
	if err != nil {
		slog.Warn("index is unreadable, skipping domain", "index", indexKey, "error", err)
		return nil, false
	}
	if !present {
		return nil, false
	}

	entities := raw
	if scope != "" {
		var sub map[string]json.RawMessage
		if present, err := raw.Entity(scope, &sub); err != nil || !present {
			slog.Warn("entity sub-document missing, skipping domain", "scope", scope, "error", err)
			return nil, false
		}
		entities = playerdb.RawStore(sub)
	}

	out := make([]*T, 0, len(index))
	for _, id := range index {
		blob, ok := entities[id]
		if !ok {
			continue
		}
		var entity T
		if err := json.Unmarshal(blob, &entity); err != nil {
			slog.Warn("skipping unreadable record", "index", indexKey, "id", id, "error", err)
			continue
		}
		setIDIfEmpty(&entity, id)
		if canon != nil && !canon(&entity) {
			slog.Warn("skipping record with unreadable date", "index", indexKey, "id", id)
			continue
		}
		out = append(out, &entity)
	}
	return out, true
}

func setIDIfEmpty(entity any, id string) {
	switch e := entity.(type) {
	case *Event:
		if e.ID == "" {
			e.ID = id
		}
	case *EconomyTransaction:
		if e.ID == "" {
			e.ID = id
		}
	case *Draft:
		if e.ID == "" {
			e.ID = id
		}
	case *deck.Change:
		if e.ID == "" {
			e.ID = id
		}
	}
}

func extractDecks(raw playerdb.RawStore, ext *Extracted) {
	var decks map[string]*deck.Deck
	present, err := raw.Entity(keyDecks, &decks)
	if err != nil {
		slog.Warn("decks blob is unreadable, skipping domain", "error", err)
		return
	}
	if !present {
		return
	}
	ext.HasDecks = true
	ext.Decks = make([]*deck.Deck, 0, len(decks))
	for id, d := range decks {
		if d == nil {
			continue
		}
		if d.ID == "" {
			d.ID = id
		}
		ext.Decks = append(ext.Decks, d)
	}
}

// Deck-change entities live inside the "deck_changes" sub-document, reached
// through their own index. The resulting deck of each change is derived by
// replaying the stored diff; its hash is cached on the record once computed.
func extractDeckChanges(raw playerdb.RawStore, ext *Extracted) {
	changes, present := extractIndexed[deck.Change](raw, keyDeckChangesIndex, keyDeckChanges, func(c *deck.Change) bool {
		if c.NewDeckHash == "" {
			c.NewDeckHash = deck.AfterChange(c).Hash()
		}
		c.Date = canonISO(c.Date, time.UnixMilli(0))
		return true
	})
	ext.DeckChanges = changes
	ext.HasDeckChanges = present
}

// Seasonal entries are stored as a map, not behind an index list. Entries
// missing a rank-update type are partially written and dropped.
func extractSeasonal(raw playerdb.RawStore, ext *Extracted) {
	var seasonal map[string]*SeasonalRank
	present, err := raw.Entity(keySeasonal, &seasonal)
	if err != nil {
		slog.Warn("seasonal blob is unreadable, skipping domain", "error", err)
		return
	}
	if !present {
		return
	}
	ext.HasSeasonal = true
	ext.Seasonal = make([]*SeasonalRank, 0, len(seasonal))
	for id, update := range seasonal {
		if update == nil || update.RankUpdateType == "" {
			continue
		}
		if update.ID == "" {
			update.ID = id
		}
		if ms, ok := update.Timestamp.EpochMs(); ok {
			update.Timestamp = timeutil.NewEpochMs(ms)
		}
		ext.Seasonal = append(ext.Seasonal, update)
	}
}

func extractCards(raw playerdb.RawStore, ext *Extracted) {
	var cards CardsBlob
	present, err := raw.Entity(keyCards, &cards)
	if err != nil {
		slog.Warn("cards blob is unreadable, skipping domain", "error", err)
		return
	}
	if !present {
		return
	}
	if ms, ok := cards.CardsTime.EpochMs(); ok {
		cards.CardsTime = timeutil.NewEpochMs(ms)
	}
	ext.Cards = &cards
}

func canonEventDate(e *Event) bool {
	ms, ok := e.Date.EpochMs()
	if !ok {
		return false
	}
	e.Date = timeutil.NewEpochMs(ms)
	return true
}

func canonEconomyDate(t *EconomyTransaction) bool {
	tm, ok := t.Date.Time()
	if !ok {
		return false
	}
	t.Date = timeutil.NewISO(tm)
	return true
}

// canonISO rewrites a date as a canonical ISO string, defaulting unreadable
// or absent values to def.
func canonISO(d timeutil.FlexDate, def time.Time) timeutil.FlexDate {
	if t, ok := d.Time(); ok {
		return timeutil.NewISO(t)
	}
	return timeutil.NewISO(def)
}
