package deck

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash computes a stable content digest of the list. The pairs are
// canonicalized by card ID before hashing, so two lists holding the same
// multiset of cards in different insertion order hash identically.
// Not cryptographic; used only to detect identical deck contents.
func (l CardList) Hash() string {
	pairs := make(CardList, len(l))
	copy(pairs, l)
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ID != pairs[j].ID {
			return pairs[i].ID < pairs[j].ID
		}
		return pairs[i].Quantity < pairs[j].Quantity
	})

	h := xxhash.New()
	buf := make([]byte, 0, 24)
	for _, c := range pairs {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, c.ID, 10)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, c.Quantity, 10)
		buf = append(buf, ';')
		_, _ = h.Write(buf)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
