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

package channel

import (
	"sync"

	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/Gregory-Meyer/srm/internal/workerpool"
)

// Registry maps topic names to their current Channel, recycling a name
// once every Publisher/Subscriber referencing its Channel has
// disconnected (spec.md §4.4), grounded on static_core.rs's
// Core::get_channel.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*Channel
	pool     *workerpool.Pool
}

// NewRegistry constructs an empty Registry. Every Channel it creates
// dispatches callback fan-out onto pool.
func NewRegistry(pool *workerpool.Pool) *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
		pool:     pool,
	}
}

// GetOrCreate resolves name to its current Channel, creating one on
// first use or after the previous Channel under this name has had every
// reference released. Returns ChannelTypeDiffers if name already names a
// live channel of a different msgType.
//
// This is get_channel's exact three-way branch, translated from
// Arc<Weak<Channel>> upgrade semantics to the explicit refCount +
// liveInRegistry bookkeeping described on Channel: occupied-and-alive
// (upgrade succeeds) -> type-check and hand out another reference;
// absent, or occupied-but-dead (upgrade fails, "all subscribers
// destroyed") -> create fresh and recycle the name.
func (r *Registry) GetOrCreate(name string, msgType uint64) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[name]; ok && ch.refCount.Load() > 0 {
		if ch.msgType != msgType {
			return nil, errs.ErrChannelTypeDiffers
		}
		ch.refCount.Add(1)
		return ch, nil
	} else if ok {
		ch.liveInRegistry.Store(false)
	}

	ch := New(name, msgType, r.pool)
	ch.refCount.Store(1)
	ch.liveInRegistry.Store(true)
	r.channels[name] = ch
	return ch, nil
}

// NumChannels reports the number of distinct names the registry has ever
// recorded (including names whose channel has since been fully
// recycled). Intended for tests and diagnostics.
func (r *Registry) NumChannels() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
