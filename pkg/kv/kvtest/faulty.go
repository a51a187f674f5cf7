// Package kvtest provides Backend doubles for tests that need to simulate a
// store failing part-way through a multi-key operation.
package kvtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/anonto42/quill/pkg/kv"
)

// ErrInjected is the error returned by a tripped Faulty backend.
var ErrInjected = errors.New("kvtest: injected failure")

// Faulty wraps a Backend and fails writes on demand.
type Faulty struct {
	kv.Backend

	mu        sync.Mutex
	writes    int
	failAfter int
	failKeys  []string
	failReads bool
}

// NewFaulty wraps base. With no rules set it behaves like base.
func NewFaulty(base kv.Backend) *Faulty {
	return &Faulty{Backend: base, failAfter: -1}
}

// FailAfter lets n more writes succeed and fails every write after them.
// A negative n disables the rule.
func (f *Faulty) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = 0
	f.failAfter = n
}

// FailKeysWithPrefix fails every write to a key starting with one of prefixes.
func (f *Faulty) FailKeysWithPrefix(prefixes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failKeys = prefixes
}

// FailReads makes Get and Keys fail.
func (f *Faulty) FailReads(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = on
}

// Heal clears every rule.
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = -1
	f.failKeys = nil
	f.failReads = false
}

// Writes reports how many writes were attempted since the last FailAfter.
func (f *Faulty) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *Faulty) tripWrite(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failAfter >= 0 && f.writes > f.failAfter {
		return true
	}
	for _, p := range f.failKeys {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func (f *Faulty) readsFail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failReads
}

// Get reads through unless reads are failing.
func (f *Faulty) Get(ctx context.Context, key string) (string, bool, error) {
	if f.readsFail() {
		return "", false, ErrInjected
	}
	return f.Backend.Get(ctx, key)
}

// Keys reads through unless reads are failing.
func (f *Faulty) Keys(ctx context.Context) ([]string, error) {
	if f.readsFail() {
		return nil, ErrInjected
	}
	return f.Backend.Keys(ctx)
}

// Set writes through unless a rule trips.
func (f *Faulty) Set(ctx context.Context, key, value string) error {
	if f.tripWrite(key) {
		return ErrInjected
	}
	return f.Backend.Set(ctx, key, value)
}

// Remove deletes through unless a rule trips.
func (f *Faulty) Remove(ctx context.Context, key string) error {
	if f.tripWrite(key) {
		return ErrInjected
	}
	return f.Backend.Remove(ctx, key)
}
