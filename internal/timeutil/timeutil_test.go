package timeutil

import (
	"encoding/json"
	"testing"
	"time"
)

func flexFrom(t *testing.T, raw string) FlexDate {
	t.Helper()
	var d FlexDate
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return d
}

func TestEpochMsHeuristic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want int64
	}{
		{"seconds scaled", "1609459200", 1609459200000},
		{"millis unchanged", "1609459200000", 1609459200000},
		{"exactly at cutoff is millis", "1000000000000", 1000000000000},
		{"just below cutoff is seconds", "999999999999", 999999999999000},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := flexFrom(t, tc.raw).EpochMs()
			if !ok {
				t.Fatalf("EpochMs(%s) not ok", tc.raw)
			}
			if got != tc.want {
				t.Fatalf("EpochMs(%s) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestEpochMsStringAndNativeDateAgree(t *testing.T) {
	t.Parallel()

	fromString, ok := flexFrom(t, `"2021-05-01T00:00:00Z"`).EpochMs()
	if !ok {
		t.Fatal("string date not ok")
	}
	fromNative, ok := flexFrom(t, `{"$$date":1619827200000}`).EpochMs()
	if !ok {
		t.Fatal("native date not ok")
	}
	if fromString != fromNative {
		t.Fatalf("string %d != native %d", fromString, fromNative)
	}
	if fromString != 1619827200000 {
		t.Fatalf("epoch ms = %d, want 1619827200000", fromString)
	}
}

func TestISOFallsBackForUnreadableValues(t *testing.T) {
	t.Parallel()

	got := flexFrom(t, `"not a date"`).ISO(time.UnixMilli(0))
	if got != "1970-01-01T00:00:00.000Z" {
		t.Fatalf("ISO fallback = %q", got)
	}
}

func TestFlexDateRoundTripsUntouched(t *testing.T) {
	t.Parallel()

	d := flexFrom(t, `"2021-05-01T00:00:00.000Z"`)
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2021-05-01T00:00:00.000Z"` {
		t.Fatalf("round trip = %s", out)
	}
}

func TestZeroFlexDate(t *testing.T) {
	t.Parallel()

	var d FlexDate
	if !d.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	if _, ok := d.EpochMs(); ok {
		t.Fatal("zero value should not decode")
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("zero marshals to %s, want null", out)
	}
}

func TestNewISOFormat(t *testing.T) {
	t.Parallel()

	d := NewISO(time.Date(2021, 5, 1, 12, 30, 45, 0, time.UTC))
	out, _ := json.Marshal(d)
	if string(out) != `"2021-05-01T12:30:45.000Z"` {
		t.Fatalf("NewISO = %s", out)
	}
}
