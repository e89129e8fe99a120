// Copyright 2019 Gregory Meyer
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use, copy,
// modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS
// BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN
// ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package channel implements a named, typed pub/sub channel and the
// callback fan-out on publish (spec.md §4.3), grounded on
// original_source/src/static_core.rs's Channel.
package channel

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/workerpool"
	"github.com/rs/zerolog"
)

type callbackEntry struct {
	id  uint64
	f   abi.SubscribeCallback
	arg unsafe.Pointer
}

// Channel fans a published message out to every currently-installed
// subscriber callback. A Channel's identity is its name plus message
// type; callers obtain one through a Registry rather than constructing
// it directly, except in tests.
//
// Go has no Arc/Weak reference counting, so the registry-recycling
// behaviour of static_core.rs's Channel (a fresh Channel silently
// replacing a fully-disconnected one under the same name) is modeled
// explicitly here with a counter and a flag instead of relying on drop order:
// refCount tracks live Publisher/Subscriber handles, and liveInRegistry
// records whether the Registry's current entry for this name still is
// this exact Channel. A Publisher whose Channel has fallen out of the
// registry (liveInRegistry false) gets ChannelDisconnected on publish,
// mirroring Publisher::publish's Arc::weak_count(&self.channel) == 0
// check.
type Channel struct {
	name           string
	msgType        uint64
	maxSubscribers *int

	mu        sync.RWMutex
	callbacks []callbackEntry
	nextID    uint64

	refCount       atomic.Int64
	liveInRegistry atomic.Bool

	pool *workerpool.Pool
}

// New constructs a standalone unbounded channel, bypassing the registry.
// Its liveInRegistry flag starts false, so a Publisher wrapping it will
// immediately see ChannelDisconnected on publish - this is intentional:
// channels not vended by a Registry are never "connected" in the
// spec's sense. Registry.GetOrCreate is the normal construction path.
func New(name string, msgType uint64, pool *workerpool.Pool) *Channel {
	return &Channel{
		name:      name,
		msgType:   msgType,
		callbacks: make([]callbackEntry, 0, 8),
		pool:      pool,
	}
}

// NewBounded is New with a maximum live subscriber count.
func NewBounded(name string, msgType uint64, maxSubscribers int, pool *workerpool.Pool) *Channel {
	c := New(name, msgType, pool)
	c.maxSubscribers = &maxSubscribers
	return c
}

// Name returns the channel's topic name.
func (c *Channel) Name() string { return c.name }

// MsgType returns the channel's message type discriminator.
func (c *Channel) MsgType() uint64 { return c.msgType }

// InsertCallback installs a subscriber callback, returning its id. Fails
// with ok=false if the channel is bounded and already at capacity.
//
// Rust's parking_lot upgradable read lets the full-check and the insert
// happen under one continuously-held lock; Go's sync.RWMutex has no
// upgrade operation, so a bounded channel takes the read lock to check
// capacity, releases it, then takes the write lock and rechecks before
// inserting (spec.md §9's resolution of the upgradable-lock Open
// Question).
func (c *Channel) InsertCallback(f abi.SubscribeCallback, arg unsafe.Pointer) (uint64, bool) {
	if c.maxSubscribers != nil {
		c.mu.RLock()
		full := len(c.callbacks) >= *c.maxSubscribers
		c.mu.RUnlock()
		if full {
			return 0, false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSubscribers != nil && len(c.callbacks) >= *c.maxSubscribers {
		return 0, false
	}

	id := c.nextID
	c.nextID++
	c.callbacks = append(c.callbacks, callbackEntry{id: id, f: f, arg: arg})
	return id, true
}

// RemoveCallback uninstalls the callback with the given id, returning
// whether it was present.
func (c *Channel) RemoveCallback(id uint64) bool {
	c.mu.RLock()
	found := false
	for _, e := range c.callbacks {
		if e.id == id {
			found = true
			break
		}
	}
	c.mu.RUnlock()
	if !found {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.callbacks {
		if e.id == id {
			c.callbacks = append(c.callbacks[:i], c.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// NumCallbacks reports the current number of installed subscriber
// callbacks. Intended for tests and diagnostics.
func (c *Channel) NumCallbacks() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.callbacks)
}

// Publish fans msg out to every currently-installed callback in parallel
// on the shared worker pool and blocks until every callback has run.
// Per-callback nonzero return codes are logged, not propagated or
// treated as fatal (static_core.rs's do_publish: "callback {:p} failed
// with errc {}" followed by continuing to the next callback).
func (c *Channel) Publish(msg abi.MsgView, log zerolog.Logger) {
	c.mu.RLock()
	cbs := make([]callbackEntry, len(c.callbacks))
	copy(cbs, c.callbacks)
	c.mu.RUnlock()

	tasks := make([]workerpool.Task, len(cbs))
	for i, cb := range cbs {
		cb := cb
		tasks[i] = func() {
			if code := abi.InvokeSubscribeCallback(cb.f, msg, cb.arg); code != 0 {
				log.Error().
					Str("channel", c.name).
					Uint64("callback_id", cb.id).
					Int("code", code).
					Msg("subscriber callback failed")
			}
		}
	}
	c.pool.SubmitAndWait(tasks)
}

// PublishNonblocking dispatches the fan-out and returns immediately; the
// read lock over the callback table is taken off the caller's goroutine,
// not the caller itself (static_core.rs's publish_nonblocking spawns the
// read-lock-then-dispatch closure via rayon::spawn).
//
// The outer dispatch runs on a bare goroutine rather than the shared
// pool, matching the fan-out idiom workerpool's package doc cites from
// streamspace's event_bus. c.Publish itself still fans the per-callback
// work out across the pool via SubmitAndWait; if this outer step were
// instead submitted as a pool task, that task would block inside
// SubmitAndWait waiting for a worker to pick up the very callbacks it
// just queued - with a single-worker pool it would be waiting on
// itself, deadlocking forever. A bare goroutine for the outer step
// sidesteps that re-entrancy: only genuine per-callback work ever
// occupies a pool worker.
func (c *Channel) PublishNonblocking(msg abi.MsgView, log zerolog.Logger) {
	go c.Publish(msg, log)
}
