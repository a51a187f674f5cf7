package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/anonto42/quill/pkg/kv"
)

// Clock returns the current time. Stored timestamps are UTC with millisecond
// precision, matching the ISO form the records are serialized in.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// IDGenerator mints time-derived ids that strictly increase within a process.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  Clock
}

// NewIDGenerator creates a generator reading time from now.
func NewIDGenerator(now Clock) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns the next id: the current Unix time in milliseconds, or one
// more than the previous id when the clock has not moved past it.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// Advance makes sure later ids sort after id. Ids that are not numeric are
// ignored.
func (g *IDGenerator) Advance(id string) {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if ms > g.last {
		g.last = ms
	}
}

// Option configures the stores built by NewStores.
type Option func(*settings)

type settings struct {
	now    Clock
	logger *slog.Logger
	ids    *IDGenerator
	mu     *sync.Mutex
}

// WithClock overrides the time source.
func WithClock(now Clock) Option {
	return func(s *settings) { s.now = now }
}

// WithLogger sets the logger used to report swallowed read failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithIDGenerator shares an id generator between stores.
func WithIDGenerator(ids *IDGenerator) Option {
	return func(s *settings) { s.ids = ids }
}

func newSettings(opts []Option) settings {
	s := settings{now: SystemClock}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ids == nil {
		s.ids = NewIDGenerator(s.now)
	}
	if s.mu == nil {
		s.mu = &sync.Mutex{}
	}
	return s
}

// readJSON decodes the blob under key into v. It reports false, nil when the
// key does not exist.
func readJSON(ctx context.Context, backend kv.Backend, key string, v any) (bool, error) {
	raw, ok, err := backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func writeJSON(ctx context.Context, backend kv.Backend, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := backend.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// Stores bundles the three repositories that share one backend. Their
// read-modify-write operations are serialized by one lock, so concurrent
// requests in the same process never overwrite each other's blobs.
type Stores struct {
	Backend       kv.Backend
	Content       *KVContentRepository
	Interactions  *KVInteractionRepository
	Notifications *KVNotificationRepository

	mu *sync.Mutex
}

// NewStores wires the repositories over backend.
func NewStores(backend kv.Backend, opts ...Option) *Stores {
	s := newSettings(opts)
	interactions := newKVInteractionRepository(backend, s)
	return &Stores{
		Backend:       backend,
		Content:       newKVContentRepository(backend, interactions, s),
		Interactions:  interactions,
		Notifications: newKVNotificationRepository(backend, s),
		mu:            s.mu,
	}
}

// Lock holds off every repository write until Unlock. Callers writing
// several collections at once use it; while it is held they must stick to
// the plain Replace, Put and Clear writes, which do not take the lock.
func (s *Stores) Lock() { s.mu.Lock() }

// Unlock releases Lock.
func (s *Stores) Unlock() { s.mu.Unlock() }
