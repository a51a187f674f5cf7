// Package kv is the flat string-keyed store every repository is built on.
// Backends are synchronous from the caller's point of view, keep one value per
// key and offer no multi-key transactions; Batch emulates a staged commit on
// top of any of them.
package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	// ErrQuotaExceeded is returned when a write would push the store past its capacity.
	ErrQuotaExceeded = errors.New("kv: storage quota exceeded")

	// ErrPartialCommit is returned when a batch failed and could not restore
	// every key it had already written.
	ErrPartialCommit = errors.New("kv: batch partially committed")
)

// Backend defines the primitive operations a key-value store must support.
type Backend interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every key currently stored.
	Keys(ctx context.Context) ([]string, error)
}

// WithPrefix returns the keys that start with prefix, sorted.
func WithPrefix(keys []string, prefix string) []string {
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
