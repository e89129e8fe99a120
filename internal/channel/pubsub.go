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
	"unsafe"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/rs/zerolog"
)

// Publisher is a handle that may publish to one Channel, grounded on
// static_core.rs's Publisher{channel}. The Registry that produced the
// underlying Channel has already accounted for this handle's share of
// the channel's reference count (see Registry.GetOrCreate); Publisher
// itself only ever decrements, on Disconnect.
type Publisher struct {
	channel *Channel
}

// NewPublisher wraps an already-acquired Channel reference (typically
// returned by Registry.GetOrCreate) as a Publisher.
func NewPublisher(ch *Channel) *Publisher {
	return &Publisher{channel: ch}
}

// ChannelName returns the wrapped channel's topic name.
func (p *Publisher) ChannelName() string { return p.channel.Name() }

// ChannelType returns the wrapped channel's message type.
func (p *Publisher) ChannelType() uint64 { return p.channel.MsgType() }

// Publish fans msg out to every current subscriber and blocks until
// delivery completes. Returns ChannelDisconnected if the Registry has
// since recycled this name to a fresh Channel (static_core.rs checks
// Arc::weak_count(&self.channel) == 0 before calling through).
func (p *Publisher) Publish(msg abi.MsgView, log zerolog.Logger) error {
	if !p.channel.liveInRegistry.Load() {
		return errs.ErrChannelDisconnected
	}
	p.channel.Publish(msg, log)
	return nil
}

// PublishNonblocking is Publish, but returns as soon as the fan-out has
// been enqueued rather than waiting for delivery.
func (p *Publisher) PublishNonblocking(msg abi.MsgView, log zerolog.Logger) error {
	if !p.channel.liveInRegistry.Load() {
		return errs.ErrChannelDisconnected
	}
	p.channel.PublishNonblocking(msg, log)
	return nil
}

// Disconnect releases this handle's share of the channel's reference
// count. Idempotent calls beyond the first would under-count; callers
// (the Core Facade) must call it at most once per Publisher, matching
// the ABI's PublisherVtbl.disconnect being a one-shot teardown call.
func (p *Publisher) Disconnect() {
	p.channel.refCount.Add(-1)
}

// Subscriber is a handle holding one installed callback on a Channel,
// grounded on static_core.rs's Subscriber{channel, id}.
type Subscriber struct {
	channel *Channel
	id      uint64
}

// NewSubscriber installs f/arg as a callback on ch and wraps the result.
// Returns ChannelFull if ch is bounded and already at capacity
// (static_core.rs: Subscriber::new returns None -> ChannelFull).
func NewSubscriber(ch *Channel, f abi.SubscribeCallback, arg unsafe.Pointer) (*Subscriber, error) {
	id, ok := ch.InsertCallback(f, arg)
	if !ok {
		return nil, errs.ErrChannelFull
	}
	return &Subscriber{channel: ch, id: id}, nil
}

// ChannelName returns the wrapped channel's topic name.
func (s *Subscriber) ChannelName() string { return s.channel.Name() }

// ChannelType returns the wrapped channel's message type.
func (s *Subscriber) ChannelType() uint64 { return s.channel.MsgType() }

// Disconnect removes this subscriber's callback and releases its share
// of the channel's reference count (static_core.rs's Drop for
// Subscriber: "self.channel.remove_callback(self.id)").
func (s *Subscriber) Disconnect() {
	s.channel.RemoveCallback(s.id)
	s.channel.refCount.Add(-1)
}
