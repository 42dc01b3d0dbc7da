// Package ipc carries state updates from the background process to the
// surfaces that mirror them (renderer window, overlay window). Delivery is
// fire-and-forget: publishers never wait for, or learn about, consumers.
package ipc

import "sync"

// Action identifies the kind of state update being published.
type Action string

const (
	ActionSetPlayerDB        Action = "set_playerdb"
	ActionSetTopNav          Action = "set_topnav"
	ActionSetSettings        Action = "set_settings"
	ActionSetPrivateDecks    Action = "set_private_decks"
	ActionSetRank            Action = "set_rank"
	ActionSetManyMatches     Action = "set_many_matches"
	ActionSetManyEvents      Action = "set_many_events"
	ActionSetManyDecks       Action = "set_many_decks"
	ActionSetManyDeckChanges Action = "set_many_deck_changes"
	ActionSetManyEconomy     Action = "set_many_economy"
	ActionSetManyDrafts      Action = "set_many_drafts"
	ActionSetManySeasonal    Action = "set_many_seasonal"
	ActionAddCardsFromStore  Action = "add_cards_from_store"
	ActionSetTagColors       Action = "set_tag_colors"
	ActionSetDeckTags        Action = "set_deck_tags"
	ActionSetBounds          Action = "set_bounds"
	ActionSetDraftCards      Action = "set_draft_cards"
	ActionPopup              Action = "popup"
)

// Surface is one process/window that can receive updates.
type Surface int

const (
	SurfaceRenderer Surface = iota
	SurfaceOverlay
	SurfaceBackground
)

// Audience is the explicit recipient set for a published update.
type Audience struct {
	Renderer   bool
	Overlay    bool
	Background bool
}

var (
	ToRenderer         = Audience{Renderer: true}
	ToOverlay          = Audience{Overlay: true}
	ToAll              = Audience{Renderer: true, Overlay: true, Background: true}
	ToAllButBackground = Audience{Renderer: true, Overlay: true}
)

func (a Audience) includes(s Surface) bool {
	switch s {
	case SurfaceRenderer:
		return a.Renderer
	case SurfaceOverlay:
		return a.Overlay
	case SurfaceBackground:
		return a.Background
	}
	return false
}

// Message is one published update.
type Message struct {
	Action  Action
	Payload any
}

// Popup is the payload of ActionPopup status messages.
type Popup struct {
	Text     string `json:"text"`
	Time     int    `json:"time"`
	Progress int    `json:"progress,omitempty"`
}

// Bus is the state-update channel the pipeline publishes into.
type Bus interface {
	Publish(action Action, payload any, aud Audience)
}

// FanoutBus delivers messages synchronously to handlers subscribed per
// surface. It stands in for the real multi-process transport in a single
// process and in tests.
type FanoutBus struct {
	mu   sync.RWMutex
	subs map[Surface][]func(Message)
}

func NewFanoutBus() *FanoutBus {
	return &FanoutBus{subs: make(map[Surface][]func(Message))}
}

// Subscribe registers a handler for every message addressed to surface.
func (b *FanoutBus) Subscribe(surface Surface, fn func(Message)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[surface] = append(b.subs[surface], fn)
}

func (b *FanoutBus) Publish(action Action, payload any, aud Audience) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg := Message{Action: action, Payload: payload}
	for _, surface := range []Surface{SurfaceRenderer, SurfaceOverlay, SurfaceBackground} {
		if !aud.includes(surface) {
			continue
		}
		for _, fn := range b.subs[surface] {
			fn(msg)
		}
	}
}
