package deck

import "github.com/arenalog/companion/internal/timeutil"

// QuantityDelta is one line of a deck change: a signed adjustment to the
// quantity of a single card.
type QuantityDelta struct {
	ID       int64 `json:"id"`
	Quantity int64 `json:"quantity"`
}

// Change records an edit made to a deck: the card lists before the edit and
// the per-card adjustments applied to each. NewDeckHash is derived from the
// resulting main list and cached once computed.
type Change struct {
	ID           string            `json:"id"`
	DeckID       string            `json:"deckId"`
	Date         timeutil.FlexDate `json:"date"`
	ChangesMain  []QuantityDelta   `json:"changesMain"`
	ChangesSide  []QuantityDelta   `json:"changesSide"`
	PreviousMain CardList          `json:"previousMain"`
	PreviousSide CardList          `json:"previousSide"`
	NewDeckHash  string            `json:"newDeckHash,omitempty"`
}

// AfterChange applies the change's main-deck deltas to the prior main list
// and returns the resulting list. Entries adjusted to zero or below are
// removed; new cards are appended.
func AfterChange(c *Change) CardList {
	return applyDeltas(c.PreviousMain, c.ChangesMain)
}

func applyDeltas(prior CardList, deltas []QuantityDelta) CardList {
	index := make(map[int64]int, len(prior))
	result := make(CardList, len(prior))
	copy(result, prior)
	for i, card := range result {
		index[card.ID] = i
	}

	for _, d := range deltas {
		if i, ok := index[d.ID]; ok {
			result[i].Quantity += d.Quantity
			continue
		}
		if d.Quantity > 0 {
			index[d.ID] = len(result)
			result = append(result, CardQuantity{ID: d.ID, Quantity: d.Quantity})
		}
	}

	kept := result[:0]
	for _, card := range result {
		if card.Quantity > 0 {
			kept = append(kept, card)
		}
	}
	return kept
}
