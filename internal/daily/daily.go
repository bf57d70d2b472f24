// Package daily derives the shared "puzzle of the day": every player gets the
// same shuffle for a given UTC date, and the date scopes a separate leaderboard.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseDateKey validates a YYYY-MM-DD key.
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// Seed returns a deterministic shuffle seed for a date using HMAC(salt, YYYY-MM-DD).
func Seed(date time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes, sign bit cleared so the seed is non-negative
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

// LeaderboardKey scopes a base leaderboard key to one date.
func LeaderboardKey(base, date string) string {
	return base + ":daily:" + date
}
