package playerdata

import (
	"encoding/json"
	"sync"

	"github.com/arenalog/companion/internal/deck"
)

// State is the in-process mirror of the player's data, fed exclusively by the
// publisher. Collections are keyed by ID with bulk-upsert semantics: same-ID
// entries are overwritten, new IDs inserted, nothing ever removed.
type State struct {
	mu sync.RWMutex

	PlayerDBPath string
	TopNav       any
	Settings     map[string]any
	PrivateDecks json.RawMessage
	Rank         json.RawMessage
	Matches      map[string]*Match
	Events       map[string]*Event
	Decks        map[string]*deck.Deck
	DeckChanges  map[string]*deck.Change
	Economy      map[string]*EconomyTransaction
	Drafts       map[string]*Draft
	Seasonal     map[string]*SeasonalRank
	Cards        *CardsBlob
	TagColors    map[string]string
	DeckTags     map[string][]string
	WindowBounds json.RawMessage
}

func NewState() *State {
	return &State{
		Settings:    make(map[string]any),
		Matches:     make(map[string]*Match),
		Events:      make(map[string]*Event),
		Decks:       make(map[string]*deck.Deck),
		DeckChanges: make(map[string]*deck.Change),
		Economy:     make(map[string]*EconomyTransaction),
		Drafts:      make(map[string]*Draft),
		Seasonal:    make(map[string]*SeasonalRank),
		TagColors:   make(map[string]string),
		DeckTags:    make(map[string][]string),
	}
}

func upsertAll[T any](dst map[string]*T, items []*T, id func(*T) string) {
	for _, item := range items {
		if item == nil {
			continue
		}
		if key := id(item); key != "" {
			dst[key] = item
		}
	}
}

func (s *State) UpsertMatches(items []*Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertAll(s.Matches, items, func(m *Match) string { return m.ID })
}

func (s *State) UpsertEvents(items []*Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertAll(s.Events, items, func(e *Event) string { return e.ID })
}

func (s *State) UpsertDecks(items []*deck.Deck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertAll(s.Decks, items, func(d *deck.Deck) string { return d.ID })
}

func (s *State) UpsertDeckChanges(items []*deck.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertAll(s.DeckChanges, items, func(c *deck.Change) string { return c.ID })
}

func (s *State) UpsertEconomy(items []*EconomyTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertAll(s.Economy, items, func(t *EconomyTransaction) string { return t.ID })
}

func (s *State) UpsertDrafts(items []*Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertAll(s.Drafts, items, func(d *Draft) string { return d.ID })
}

func (s *State) UpsertSeasonal(items []*SeasonalRank) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upsertAll(s.Seasonal, items, func(r *SeasonalRank) string { return r.ID })
}

// MergeSettings overlays dirty settings onto the current ones and returns the
// merged view.
func (s *State) MergeSettings(dirty map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Settings == nil {
		s.Settings = make(map[string]any)
	}
	for k, v := range dirty {
		s.Settings[k] = v
	}
	merged := make(map[string]any, len(s.Settings))
	for k, v := range s.Settings {
		merged[k] = v
	}
	return merged
}

// MergeCards folds an incoming cards blob into the state and returns the
// merged blob: incoming quantities win, cards only present before are kept.
func (s *State) MergeCards(incoming *CardsBlob) *CardsBlob {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Cards == nil {
		s.Cards = &CardsBlob{Cards: make(map[string]int)}
	}
	if s.Cards.Cards == nil {
		s.Cards.Cards = make(map[string]int)
	}
	if incoming != nil {
		if !incoming.CardsTime.IsZero() {
			s.Cards.CardsTime = incoming.CardsTime
		}
		if incoming.CardsBefore != nil {
			s.Cards.CardsBefore = incoming.CardsBefore
		}
		for id, qty := range incoming.Cards {
			s.Cards.Cards[id] = qty
		}
	}
	return s.Cards
}

// Counts returns collection sizes for diagnostics.
func (s *State) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"matches":      len(s.Matches),
		"events":       len(s.Events),
		"decks":        len(s.Decks),
		"deck_changes": len(s.DeckChanges),
		"economy":      len(s.Economy),
		"drafts":       len(s.Drafts),
		"seasonal":     len(s.Seasonal),
	}
}
