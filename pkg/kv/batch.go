package kv

import (
	"context"
	"fmt"
)

type op struct {
	key    string
	value  string
	remove bool
}

type prior struct {
	key    string
	value  string
	exists bool
}

// Batch stages writes against a Backend and applies them together on Commit.
// Reads through a Batch observe the staged writes. A Batch is not safe for
// concurrent use.
type Batch struct {
	base    Backend
	ops     []op
	overlay map[string]op
}

// NewBatch creates an empty batch over base.
func NewBatch(base Backend) *Batch {
	return &Batch{base: base, overlay: make(map[string]op)}
}

var _ Backend = (*Batch)(nil)

// Get returns the staged value for key, falling back to the base store.
func (b *Batch) Get(ctx context.Context, key string) (string, bool, error) {
	if o, ok := b.overlay[key]; ok {
		if o.remove {
			return "", false, nil
		}
		return o.value, true, nil
	}
	return b.base.Get(ctx, key)
}

// Set stages a write.
func (b *Batch) Set(ctx context.Context, key, value string) error {
	b.stage(op{key: key, value: value})
	return nil
}

// Remove stages a delete.
func (b *Batch) Remove(ctx context.Context, key string) error {
	b.stage(op{key: key, remove: true})
	return nil
}

// Keys merges the base keys with the staged writes.
func (b *Batch) Keys(ctx context.Context) ([]string, error) {
	baseKeys, err := b.base.Keys(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(baseKeys))
	var keys []string
	for _, k := range baseKeys {
		seen[k] = true
		if o, ok := b.overlay[k]; ok && o.remove {
			continue
		}
		keys = append(keys, k)
	}
	for k, o := range b.overlay {
		if !o.remove && !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len reports the number of staged operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) stage(o op) {
	b.ops = append(b.ops, o)
	b.overlay[o.key] = o
}

// Commit applies the staged operations in the order they were recorded.
// Each key's previous value is captured before its first write; when an
// operation fails the keys already written are restored newest first. If the
// restore also fails the returned error wraps ErrPartialCommit.
func (b *Batch) Commit(ctx context.Context) error {
	defer b.reset()

	var undo []prior
	captured := make(map[string]bool)

	for _, o := range b.ops {
		first := !captured[o.key]
		var p prior
		if first {
			v, ok, err := b.base.Get(ctx, o.key)
			if err != nil {
				return b.fail(ctx, undo, fmt.Errorf("read %q: %w", o.key, err))
			}
			p = prior{key: o.key, value: v, exists: ok}
		}

		var err error
		if o.remove {
			err = b.base.Remove(ctx, o.key)
		} else {
			err = b.base.Set(ctx, o.key, o.value)
		}
		if err != nil {
			return b.fail(ctx, undo, fmt.Errorf("write %q: %w", o.key, err))
		}

		if first {
			undo = append(undo, p)
			captured[o.key] = true
		}
	}
	return nil
}

func (b *Batch) fail(ctx context.Context, undo []prior, cause error) error {
	for i := len(undo) - 1; i >= 0; i-- {
		p := undo[i]
		var err error
		if p.exists {
			err = b.base.Set(ctx, p.key, p.value)
		} else {
			err = b.base.Remove(ctx, p.key)
		}
		if err != nil {
			return fmt.Errorf("%w: %w (restore %q: %v)", ErrPartialCommit, cause, p.key, err)
		}
	}
	return cause
}

func (b *Batch) reset() {
	b.ops = nil
	b.overlay = make(map[string]op)
}
