package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Keyed is an in-process Locker with one semaphore per key.
type Keyed struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyed returns a Keyed locker. A positive wait bounds how long Lock
// blocks on a single key before reporting ErrContention; zero waits until
// the context is done.
func NewKeyed(wait time.Duration) *Keyed {
	return &Keyed{wait: wait, slots: make(map[string]*slot)}
}

func (k *Keyed) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *Keyed) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if s, ok := k.slots[key]; ok {
		s.refs--
		if s.refs == 0 {
			delete(k.slots, key)
		}
	}
}

func (k *Keyed) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		k.mu.Lock()
		s := k.slots[keys[i]]
		k.mu.Unlock()
		<-s.ch
		k.unref(keys[i])
	}
}

func (k *Keyed) Lock(ctx context.Context, keys ...string) (Handle, error) {
	keys = Normalize(keys)
	held := make([]string, 0, len(keys))

	var timeout <-chan time.Time
	if k.wait > 0 {
		timer := time.NewTimer(k.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	for _, key := range keys {
		s := k.ref(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			k.unref(key)
			k.release(held)
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, ctx.Err())
		case <-timeout:
			k.unref(key)
			k.release(held)
			return nil, fmt.Errorf("%w: %s held for more than %s", ErrContention, key, k.wait)
		}
	}
	return &keyedHandle{locker: k, keys: held}, nil
}

type keyedHandle struct {
	locker *Keyed
	once   sync.Once
	keys   []string
}

func (h *keyedHandle) Unlock(context.Context) error {
	h.once.Do(func() { h.locker.release(h.keys) })
	return nil
}
