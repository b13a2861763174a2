package domain

import (
	"strings"
	"time"
)

const storageKeyTimeLayout = "20060102T150405"

// NewStorageKey builds {compact UTC timestamp}_{random id}_{filename}. The
// timestamp prefix keeps keys time-ordered and the random id separates
// same-second uploads of the same file.
func NewStorageKey(now time.Time, randomID, filename string) string {
	return now.UTC().Format(storageKeyTimeLayout) + "_" + randomID + "_" + filename
}

// ParseStorageKey splits a key produced by NewStorageKey.
func ParseStorageKey(key string) (uploadedAt time.Time, randomID, filename string, ok bool) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 || parts[1] == "" {
		return time.Time{}, "", "", false
	}
	ts, err := time.ParseInLocation(storageKeyTimeLayout, parts[0], time.UTC)
	if err != nil {
		return time.Time{}, "", "", false
	}
	return ts, parts[1], parts[2], true
}
