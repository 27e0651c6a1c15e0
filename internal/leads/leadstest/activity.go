package leadstest

import (
	"context"
	"sync"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
)

// ActivityLog records appended entries in memory.
type ActivityLog struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (l *ActivityLog) Append(_ context.Context, entry activity.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *ActivityLog) ListByLead(_ context.Context, leadID string) ([]activity.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]activity.Entry, 0)
	for _, entry := range l.entries {
		if entry.LeadID == leadID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Count returns how many entries of eventType were appended.
func (l *ActivityLog) Count(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, entry := range l.entries {
		if entry.EventType == eventType {
			n++
		}
	}
	return n
}

// Entries returns a copy of everything appended.
func (l *ActivityLog) Entries() []activity.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]activity.Entry(nil), l.entries...)
}
