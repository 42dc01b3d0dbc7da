// Package timeutil normalizes the heterogeneous timestamp encodings found in
// historical player databases. The same field may hold an ISO string, an epoch
// in seconds, an epoch in milliseconds, or a serialized native date, depending
// on which client version wrote the record.
package timeutil

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// EpochMsCutoff separates second- from millisecond-resolution epoch values.
// Bare numbers below the cutoff are treated as seconds and scaled by 1000;
// values at or above it are taken as milliseconds unchanged.
const EpochMsCutoff = int64(1_000_000_000_000)

// isoLayout matches the JavaScript Date.toISOString output that older
// client versions wrote into date fields.
const isoLayout = "2006-01-02T15:04:05.000Z"

// FlexDate holds a date value in whichever encoding the store had for it.
// It round-trips through JSON untouched until one of the coercion methods
// replaces it with a canonical representation.
type FlexDate struct {
	raw json.RawMessage
}

// nativeDate is the serialized form of a native date object
// ({"$$date": <epoch ms>}), as written by the document store.
type nativeDate struct {
	Date *int64 `json:"$$date"`
}

func (d *FlexDate) UnmarshalJSON(b []byte) error {
	d.raw = append(d.raw[:0], b...)
	return nil
}

func (d FlexDate) MarshalJSON() ([]byte, error) {
	if len(d.raw) == 0 {
		return []byte("null"), nil
	}
	return d.raw, nil
}

// IsZero reports whether no value was present.
func (d FlexDate) IsZero() bool {
	return len(d.raw) == 0 || bytes.Equal(d.raw, []byte("null"))
}

// NewEpochMs returns a FlexDate holding a canonical epoch-millisecond number.
func NewEpochMs(ms int64) FlexDate {
	return FlexDate{raw: json.RawMessage(strconv.FormatInt(ms, 10))}
}

// NewISO returns a FlexDate holding a canonical ISO 8601 string.
func NewISO(t time.Time) FlexDate {
	quoted := strconv.Quote(t.UTC().Format(isoLayout))
	return FlexDate{raw: json.RawMessage(quoted)}
}

// Time decodes the value into a time. Bare numbers are taken as epoch
// milliseconds, mirroring how every client version constructed dates from
// numeric match timestamps.
func (d FlexDate) Time() (time.Time, bool) {
	if d.IsZero() {
		return time.Time{}, false
	}
	if s, ok := d.str(); ok {
		return parseISO(s)
	}
	if ms, ok := d.native(); ok {
		return time.UnixMilli(ms).UTC(), true
	}
	if n, ok := d.num(); ok {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Time{}, false
}

// EpochMs decodes the value into epoch milliseconds, applying the
// seconds-vs-milliseconds cutoff to bare numbers. Strings and native dates
// carry their own resolution and bypass the heuristic.
func (d FlexDate) EpochMs() (int64, bool) {
	if d.IsZero() {
		return 0, false
	}
	if s, ok := d.str(); ok {
		t, ok := parseISO(s)
		if !ok {
			return 0, false
		}
		return t.UnixMilli(), true
	}
	if ms, ok := d.native(); ok {
		return ms, true
	}
	if n, ok := d.num(); ok {
		if n >= 0 && n < EpochMsCutoff {
			return n * 1000, true
		}
		return n, true
	}
	return 0, false
}

// ISO decodes the value and re-encodes it as an ISO 8601 string, falling
// back to def when the value is absent or unreadable.
func (d FlexDate) ISO(def time.Time) string {
	if t, ok := d.Time(); ok {
		return t.UTC().Format(isoLayout)
	}
	return def.UTC().Format(isoLayout)
}

func (d FlexDate) str() (string, bool) {
	var s string
	if err := json.Unmarshal(d.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (d FlexDate) num() (int64, bool) {
	var f float64
	if err := json.Unmarshal(d.raw, &f); err != nil {
		return 0, false
	}
	return int64(f), true
}

func (d FlexDate) native() (int64, bool) {
	var nd nativeDate
	if err := json.Unmarshal(d.raw, &nd); err != nil || nd.Date == nil {
		return 0, false
	}
	return *nd.Date, true
}

func parseISO(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	// Some very old records carry dates without an offset.
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
