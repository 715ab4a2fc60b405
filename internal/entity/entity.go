// Package entity defines the core entities used in the application.
package entity

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
)

// Item is one video to convert. Identity is ID; duplicates are processed independently.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (i Item) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", i.ID),
		slog.String("title", i.Title),
	)
}

// FailureReason classifies an unsuccessful conversion.
type FailureReason string

const (
	// ReasonDownloadFailed means the endpoint never returned a usable payload.
	ReasonDownloadFailed FailureReason = "download_failed"
	// ReasonMoveFailed means the payload arrived but could not be placed.
	ReasonMoveFailed FailureReason = "move_failed"
)

// Outcome is the result of converting one Item.
// A zero Reason means success and Path holds the placed file.
type Outcome struct {
	Item     Item
	Path     string
	Reason   FailureReason
	Err      error
	Attempts int
}

// OK reports whether the conversion succeeded.
func (o Outcome) OK() bool {
	return o.Reason == ""
}

// FailureRecord is an Item pending operator-gated retry.
type FailureRecord struct {
	Item   Item
	Reason FailureReason
	Err    error
	// Position is the index of the item in its batch, used to keep reports ordered.
	Position int
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (f FailureRecord) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", f.Item.ID),
		slog.String("title", f.Item.Title),
		slog.String("reason", string(f.Reason)),
	}

	if f.Err != nil {
		attrs = append(attrs, slog.String("error", f.Err.Error()))
	}

	return slog.GroupValue(attrs...)
}

// FailureSet accumulates failures reported by concurrent workers.
type FailureSet struct {
	mu      sync.Mutex
	records []FailureRecord
}

// Add appends a record. Safe for concurrent use.
func (s *FailureSet) Add(rec FailureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
}

// Len returns the number of records.
func (s *FailureSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Records returns a copy of the records ordered by batch position.
func (s *FailureSet) Records() []FailureRecord {
	s.mu.Lock()
	out := slices.Clone(s.records)
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b FailureRecord) int {
		return cmp.Compare(a.Position, b.Position)
	})

	return out
}

// Items returns the failed items in batch order.
func Items(records []FailureRecord) []Item {
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.Item)
	}

	return items
}
