// Package deck models stored decks and the two card-list encodings that
// coexist in historical player databases: the current quantity-tagged list
// and the legacy flat list of repeated card IDs.
package deck

import (
	"encoding/json"
	"fmt"

	"github.com/arenalog/companion/internal/timeutil"
)

// CardQuantity is one entry of a quantity-tagged card list.
type CardQuantity struct {
	ID       int64 `json:"id"`
	Quantity int64 `json:"quantity"`
}

// CardList is the current card-list encoding.
type CardList []CardQuantity

// TotalCards returns the number of physical cards in the list.
func (l CardList) TotalCards() int64 {
	var n int64
	for _, c := range l {
		n += c.Quantity
	}
	return n
}

// Deck is a stored deck record in the current encoding.
type Deck struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Format      string            `json:"format,omitempty"`
	Colors      []int             `json:"colors,omitempty"`
	DeckTileID  int64             `json:"deckTileId,omitempty"`
	MainDeck    CardList          `json:"mainDeck"`
	Sideboard   CardList          `json:"sideboard"`
	Commander   []int64           `json:"commandZoneGRPIds,omitempty"`
	Companion   int64             `json:"companionGRPId,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Custom      bool              `json:"custom,omitempty"`
	Archived    bool              `json:"archived,omitempty"`
	LastUpdated timeutil.FlexDate `json:"lastUpdated,omitempty"`
}

// LegacyDeck is a deck in the legacy encoding: card lists are flat sequences
// of card IDs, with quantity expressed by repetition.
type LegacyDeck struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Format      string            `json:"format,omitempty"`
	Colors      []int             `json:"colors,omitempty"`
	DeckTileID  int64             `json:"deckTileId,omitempty"`
	MainDeck    []int64           `json:"mainDeck"`
	Sideboard   []int64           `json:"sideboard"`
	Archived    bool              `json:"archived,omitempty"`
	LastUpdated timeutil.FlexDate `json:"lastUpdated,omitempty"`
}

// ListKind tags which card-list encoding a decode produced.
type ListKind int

const (
	ListCurrent ListKind = iota
	ListLegacy
)

// CardListVariant is the result of decoding a card list of unknown vintage.
// Exactly one of Current or Legacy is meaningful, selected by Kind.
type CardListVariant struct {
	Kind    ListKind
	Current CardList
	Legacy  []int64
}

// DecodeCardList attempts a strict decode into the current encoding and, on
// failure, into the legacy encoding. An empty list decodes as current: a
// zero-card deck carries no evidence of vintage and must not be rewritten.
func DecodeCardList(raw json.RawMessage) (CardListVariant, error) {
	var cur CardList
	if err := json.Unmarshal(raw, &cur); err == nil {
		return CardListVariant{Kind: ListCurrent, Current: cur}, nil
	}
	var legacy []int64
	if err := json.Unmarshal(raw, &legacy); err == nil {
		return CardListVariant{Kind: ListLegacy, Legacy: legacy}, nil
	}
	return CardListVariant{}, fmt.Errorf("card list matches neither encoding")
}

// Quantify converts a legacy flat ID list into a quantity-tagged list,
// grouping repetitions and preserving first-seen order.
func Quantify(ids []int64) CardList {
	index := make(map[int64]int, len(ids))
	list := make(CardList, 0, len(ids))
	for _, id := range ids {
		if i, ok := index[id]; ok {
			list[i].Quantity++
			continue
		}
		index[id] = len(list)
		list = append(list, CardQuantity{ID: id, Quantity: 1})
	}
	return list
}

// ConvertLegacy rebuilds a legacy deck in the current encoding. The archived
// flag is carried over by the caller, not defaulted here, so conversion can
// never unarchive a deck.
func ConvertLegacy(old LegacyDeck) Deck {
	return Deck{
		ID:          old.ID,
		Name:        old.Name,
		Description: old.Description,
		Format:      old.Format,
		Colors:      old.Colors,
		DeckTileID:  old.DeckTileID,
		MainDeck:    Quantify(old.MainDeck),
		Sideboard:   Quantify(old.Sideboard),
		LastUpdated: old.LastUpdated,
	}
}
