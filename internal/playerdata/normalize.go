package playerdata

import (
	"encoding/json"
	"log/slog"

	"github.com/arenalog/companion/internal/deck"
	"github.com/arenalog/companion/internal/playerdb"
)

// NormalizeStore repairs malformed records in the raw store before
// extraction. Today that means one thing: every deck under "decks" leaves in
// the current quantity-list encoding. Some old draft decks were written in
// the legacy flat-ID encoding by a bad label handler that briefly shipped on
// stable; they are converted in place. Repair is best effort and never fails
// the load.
func NormalizeStore(raw playerdb.RawStore) playerdb.RawStore {
	decksRaw, ok := raw[keyDecks]
	if !ok {
		return raw
	}

	var decks map[string]json.RawMessage
	if err := json.Unmarshal(decksRaw, &decks); err != nil {
		slog.Warn("decks blob is unreadable, skipping normalization", "error", err)
		return raw
	}

	changed := false
	for id, blob := range decks {
		fixed, didFix := normalizeDeck(id, blob)
		if didFix {
			decks[id] = fixed
			changed = true
		}
	}
	if !changed {
		return raw
	}

	merged, err := json.Marshal(decks)
	if err != nil {
		slog.Warn("re-encoding normalized decks failed", "error", err)
		return raw
	}
	raw[keyDecks] = merged
	return raw
}

// normalizeDeck returns a repaired deck blob and whether a rewrite happened.
// The archived flag is copied from the stored record explicitly: the shape
// probe treats an empty card list as current-encoding, and a converted deck
// must never come back unarchived.
func normalizeDeck(id string, blob json.RawMessage) (json.RawMessage, bool) {
	var probe struct {
		MainDeck json.RawMessage `json:"mainDeck"`
		Archived bool            `json:"archived"`
	}
	if err := json.Unmarshal(blob, &probe); err != nil {
		slog.Warn("skipping unreadable deck", "deck", id, "error", err)
		return nil, false
	}

	variant, err := deck.DecodeCardList(probe.MainDeck)
	if err == nil && variant.Kind == deck.ListCurrent {
		return nil, false
	}

	slog.Info("converting legacy deck", "deck", id)

	var legacy deck.LegacyDeck
	if err := json.Unmarshal(blob, &legacy); err != nil {
		// Malformed beyond both encodings: fall back to an empty list so
		// the record stays loadable.
		legacy = deck.LegacyDeck{ID: id}
	}
	fixed := deck.ConvertLegacy(legacy)
	if fixed.ID == "" {
		fixed.ID = id
	}
	fixed.Archived = probe.Archived

	out, err := json.Marshal(&fixed)
	if err != nil {
		slog.Warn("re-encoding converted deck failed", "deck", id, "error", err)
		return nil, false
	}
	return out, true
}
