// Package playerdata is the player-data ingestion pipeline: it repairs the
// raw per-player store, extracts one clean collection per data domain, and
// publishes the result to the in-process state mirror and the IPC bus.
package playerdata

import (
	"encoding/json"

	"github.com/arenalog/companion/internal/deck"
	"github.com/arenalog/companion/internal/timeutil"
)

// Store keys addressed by the pipeline.
const (
	keySettings         = "settings"
	keyRank             = "rank"
	keyCards            = "cards"
	keyDecks            = "decks"
	keyPrivateDecks     = "private_decks"
	keyTagsColors       = "tags_colors"
	keyDeckTags         = "deck_tags"
	keyWindowBounds     = "windowBounds"
	keySeasonal         = "seasonal"
	keyCoursesIndex     = "courses_index"
	keyEconomyIndex     = "economy_index"
	keyDraftIndex       = "draft_index"
	keyDeckChanges      = "deck_changes"
	keyDeckChangesIndex = "deck_changes_index"
)

// MatchPlayer describes one seat of a match.
type MatchPlayer struct {
	UserID     string  `json:"userid"`
	Name       string  `json:"name,omitempty"`
	Rank       string  `json:"rank,omitempty"`
	Tier       int     `json:"tier,omitempty"`
	Percentile float64 `json:"percentile,omitempty"`
	Seat       int     `json:"seat,omitempty"`
	Win        int     `json:"win,omitempty"`
}

// Match is a completed match record. Only records with at least one game-stats
// entry count as complete matches; the per-game payloads stay undecoded.
type Match struct {
	ID             string            `json:"id"`
	Date           timeutil.FlexDate `json:"date"`
	EventID        string            `json:"eventId,omitempty"`
	Player         MatchPlayer       `json:"player"`
	Opponent       MatchPlayer       `json:"opponent,omitempty"`
	PlayerDeck     *deck.Deck        `json:"playerDeck,omitempty"`
	OppDeck        *deck.Deck        `json:"oppDeck,omitempty"`
	PlayerDeckHash string            `json:"playerDeckHash,omitempty"`
	GameStats      []json.RawMessage `json:"gameStats,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Archived       bool              `json:"archived,omitempty"`
}

// Event is one course (event entry) record.
type Event struct {
	ID                 string            `json:"id"`
	Date               timeutil.FlexDate `json:"date"`
	InternalEventName  string            `json:"InternalEventName,omitempty"`
	CourseDeck         *deck.Deck        `json:"CourseDeck,omitempty"`
	CurrentEventState  json.RawMessage   `json:"CurrentEventState,omitempty"`
	ModuleInstanceData json.RawMessage   `json:"ModuleInstanceData,omitempty"`
	Archived           bool              `json:"archived,omitempty"`
}

// EconomyTransaction is one economy (inventory delta) record.
type EconomyTransaction struct {
	ID       string            `json:"id"`
	Date     timeutil.FlexDate `json:"date"`
	Context  string            `json:"context,omitempty"`
	Delta    json.RawMessage   `json:"delta,omitempty"`
	Archived bool              `json:"archived,omitempty"`
}

// Draft is one draft record.
type Draft struct {
	ID           string          `json:"id"`
	DraftSet     string          `json:"draftSet,omitempty"`
	EventID      string          `json:"eventId,omitempty"`
	PickedCards  []int64         `json:"pickedCards,omitempty"`
	CurrentPack  json.RawMessage `json:"currentPack,omitempty"`
	PackNumber   int             `json:"packNumber,omitempty"`
	PickNumber   int             `json:"pickNumber,omitempty"`
	Archived     bool            `json:"archived,omitempty"`
}

// SeasonalRank is one seasonal rank-update record.
type SeasonalRank struct {
	ID             string            `json:"id"`
	Timestamp      timeutil.FlexDate `json:"timestamp"`
	RankUpdateType string            `json:"rankUpdateType,omitempty"`
	SeasonOrdinal  int               `json:"seasonOrdinal,omitempty"`
	OldClass       string            `json:"oldClass,omitempty"`
	NewClass       string            `json:"newClass,omitempty"`
	OldLevel       int               `json:"oldLevel,omitempty"`
	NewLevel       int               `json:"newLevel,omitempty"`
	OldStep        int               `json:"oldStep,omitempty"`
	NewStep        int               `json:"newStep,omitempty"`
}

// CardsBlob is the owned-cards inventory with its refresh timestamps.
type CardsBlob struct {
	CardsTime   timeutil.FlexDate `json:"cards_time"`
	CardsBefore map[string]int    `json:"cards_before,omitempty"`
	Cards       map[string]int    `json:"cards"`
}

// Extracted carries the per-domain values produced by one extraction run.
// A nil slice with its Has flag false means the domain was absent from the
// store, which publishes nothing; present-but-empty domains still publish.
type Extracted struct {
	Settings map[string]any

	HasPrivateDecks bool
	PrivateDecks    json.RawMessage

	HasRank bool
	Rank    json.RawMessage

	Matches []*Match

	HasEvents bool
	Events    []*Event

	HasDecks bool
	Decks    []*deck.Deck

	HasDeckChanges bool
	DeckChanges    []*deck.Change

	HasEconomy bool
	Economy    []*EconomyTransaction

	HasDrafts bool
	Drafts    []*Draft

	HasSeasonal bool
	Seasonal    []*SeasonalRank

	Cards *CardsBlob

	HasTagColors bool
	TagColors    map[string]string

	HasDeckTags bool
	DeckTags    map[string][]string

	HasWindowBounds bool
	WindowBounds    json.RawMessage
}
