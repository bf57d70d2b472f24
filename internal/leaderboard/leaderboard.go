// internal/leaderboard/leaderboard.go
//
// Top-K high-score table persisted as a JSON array under one key of a kv.Store.
//
// Persisted layout (one key, e.g. "puzzleScores"):
//
//	[{"name":"Ada","time":"01:05","raw":65}, ...]
//
// Rules:
//   - Records are kept sorted by raw seconds ascending; ties keep insertion order.
//   - After every insert the list is truncated to the configured size.
//   - A missing key or malformed payload reads as an empty leaderboard.

package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/slidepuzzle/internal/kv"
	"github.com/robalobadob/slidepuzzle/internal/timer"
)

const (
	// DefaultKey is the storage key of the canonical leaderboard.
	DefaultKey = "puzzleScores"
	// DefaultSize is how many records are kept.
	DefaultSize = 10
	// DefaultName replaces a blank player name.
	DefaultName = "Nameless Hero"
	// MaxNameLen caps player names, in runes.
	MaxNameLen = 24
)

// Record is one finished run.
type Record struct {
	Name string `json:"name"`
	Time string `json:"time"` // MM:SS as displayed when the run finished
	Raw  int    `json:"raw"`  // elapsed whole seconds; sort key
}

// Board reads and writes one leaderboard key.
type Board struct {
	store kv.Store
	key   string
	size  int
}

// New returns a Board for key (DefaultKey when empty) holding at most size
// records (DefaultSize when size <= 0).
func New(store kv.Store, key string, size int) *Board {
	if key == "" {
		key = DefaultKey
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Board{store: store, key: key, size: size}
}

// Key returns the storage key.
func (b *Board) Key() string { return b.key }

// Size returns the retention limit.
func (b *Board) Size() int { return b.size }

// WithKey returns a Board sharing store and size but writing to another key.
func (b *Board) WithKey(key string) *Board { return New(b.store, key, b.size) }

// List returns the stored records, best first and at most Size of them.
// Stored lists written by other clients may be unsorted or oversized.
func (b *Board) List(ctx context.Context) ([]Record, error) {
	raw, ok, err := b.store.Get(ctx, b.key)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Record{}, nil
	}
	var recs []Record
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		log.Warn().Err(err).Str("key", b.key).Msg("malformed leaderboard, treating as empty")
		return []Record{}, nil
	}
	if recs == nil {
		recs = []Record{}
	}
	sortRecords(recs)
	if len(recs) > b.size {
		recs = recs[:b.size]
	}
	return recs, nil
}

// sortRecords orders by raw seconds ascending, keeping stored order for ties.
func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Raw < recs[j].Raw })
}

// Submit inserts a finished run and persists the trimmed list.
// Returns the stored list and the 1-based rank of the new record, or rank 0
// when it did not make the cut.
func (b *Board) Submit(ctx context.Context, name string, elapsedSeconds int) ([]Record, int, error) {
	recs, err := b.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	rec := Record{Name: NormalizeName(name), Time: timer.Format(elapsedSeconds), Raw: elapsedSeconds}

	// Appended last, so a stable sort puts it after every equal time.
	recs = append(recs, rec)
	sortRecords(recs)
	rank := sort.Search(len(recs), func(i int) bool { return recs[i].Raw > rec.Raw })

	if len(recs) > b.size {
		recs = recs[:b.size]
	}
	if rank > len(recs) {
		rank = 0
	}

	buf, err := json.Marshal(recs)
	if err != nil {
		return nil, 0, fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := b.store.Set(ctx, b.key, string(buf)); err != nil {
		return nil, 0, fmt.Errorf("write leaderboard: %w", err)
	}
	return recs, rank, nil
}

// Clear removes every record.
func (b *Board) Clear(ctx context.Context) error {
	if err := b.store.Delete(ctx, b.key); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	return nil
}

// NormalizeName trims whitespace, substitutes DefaultName for blanks and caps
// the length at MaxNameLen runes.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		name = string([]rune(name)[:MaxNameLen])
	}
	return name
}
