package whatsapp

import (
	"testing"
	"time"
)

func TestSeenSetExpiresAndStaysBounded(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	set := newSeenSet(time.Minute, 3)
	set.now = func() time.Time { return now }

	if set.Mark("a") {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !set.Mark("a") {
		t.Fatal("second sighting within ttl must be a duplicate")
	}
	if set.Mark("") {
		t.Fatal("empty ids are never duplicates")
	}

	now = now.Add(2 * time.Minute)
	if set.Mark("a") {
		t.Fatal("expired id must not be a duplicate")
	}

	set.Mark("b")
	set.Mark("c")
	set.Mark("d")
	if set.Len() > 3 {
		t.Fatalf("expected at most 3 entries, got %d", set.Len())
	}
}
