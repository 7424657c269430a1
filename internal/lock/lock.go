// Package lock provides exclusive multi-key locks for ledger mutations.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrContention is returned when a key stays held by someone else past the
// locker's wait budget. Callers may retry the whole operation.
var ErrContention = errors.New("lock contention")

// Handle releases a set of held keys.
type Handle interface {
	Unlock(ctx context.Context) error
}

// Locker acquires every key or none of them. Keys are taken in sorted order
// so two lockers never wait on each other in a cycle.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (Handle, error)
}

// Key builds a lock key for an entity. An empty id yields an empty key,
// which Normalize drops.
func Key(kind, id string) string {
	if id == "" {
		return ""
	}
	return kind + ":" + id
}

func AccountKey(id string) string     { return Key("account", id) }
func CategoryKey(id string) string    { return Key("category", id) }
func TransactionKey(id string) string { return Key("transaction", id) }
func CreditKey(id string) string      { return Key("credit", id) }

// Normalize sorts keys and removes duplicates and empty keys.
func Normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Covers reports whether every key in want is in held.
func Covers(held, want []string) bool {
	set := make(map[string]struct{}, len(held))
	for _, k := range held {
		set[k] = struct{}{}
	}
	for _, k := range want {
		if k == "" {
			continue
		}
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

// maxAcquireAttempts bounds how often Acquire widens the lock set.
const maxAcquireAttempts = 3

// Acquire locks the keys collect reports, then runs collect again under the
// lock. When the entities involved changed in between, the lock set is
// widened and the cycle repeats. collect must only read.
func Acquire(ctx context.Context, l Locker, collect func(context.Context) ([]string, error)) (Handle, error) {
	keys, err := collect(ctx)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		keys = Normalize(keys)
		h, err := l.Lock(ctx, keys...)
		if err != nil {
			return nil, err
		}
		again, err := collect(ctx)
		if err != nil {
			Release(ctx, h)
			return nil, err
		}
		if Covers(keys, again) {
			return h, nil
		}
		Release(ctx, h)
		keys = append(keys, again...)
		slog.Debug("widening lock set", "attempt", attempt+1, "keys", len(keys))
	}
	return nil, fmt.Errorf("%w: referenced entities kept changing", ErrContention)
}

// Release unlocks h even when ctx is already cancelled.
func Release(ctx context.Context, h Handle) {
	if err := h.Unlock(context.WithoutCancel(ctx)); err != nil {
		slog.Error("failed to release locks", "error", err)
	}
}
