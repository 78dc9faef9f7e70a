package models

import "time"

// Entry represents a cache entry.
type Entry struct {
	Value    any
	StoredAt time.Time
	TTL      time.Duration
}

// NewEntry creates a new Entry stored at the given time.
func NewEntry(value any, storedAt time.Time, ttl time.Duration) *Entry {
	return &Entry{
		Value:    value,
		StoredAt: storedAt,
		TTL:      ttl,
	}
}

// IsExpired reports whether the entry has outlived its TTL at now.
// An entry is still live at exactly StoredAt+TTL.
func (e *Entry) IsExpired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}
