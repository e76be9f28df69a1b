package utils

import (
	"testing"
	"time"
)

func TestNewObjectIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewObjectID()
		if len(id) != 24 {
			t.Fatalf("id %q has length %d, want 24", id, len(id))
		}
		for _, r := range id {
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
				t.Fatalf("id %q contains non-hex rune %q", id, r)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestTimestampFromIDRoundTrip(t *testing.T) {
	before := time.Now().Truncate(time.Second)
	id := NewObjectID()
	after := time.Now()

	ts := TimestampFromID(id)
	if ts.Before(before) || ts.After(after) {
		t.Errorf("TimestampFromID(%q) = %v, want between %v and %v", id, ts, before, after)
	}
}

func TestTimestampFromIDKnownValue(t *testing.T) {
	// 0x65000000 = 1694498816
	ts := TimestampFromID("65000000aaaaaaaaaaaaaaaa")
	if got := ts.Unix(); got != 0x65000000 {
		t.Errorf("Unix() = %d, want %d", got, 0x65000000)
	}
	if ts.Location() != time.UTC {
		t.Errorf("timestamp not in UTC: %v", ts)
	}
}

func TestTimestampFromIDMalformed(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	for _, id := range []string{"", "short", "zzzzzzzz0000000000000000", "GG000000aaaaaaaaaaaaaaaa"} {
		if got := TimestampFromID(id); !got.Equal(epoch) {
			t.Errorf("TimestampFromID(%q) = %v, want epoch", id, got)
		}
	}
}
