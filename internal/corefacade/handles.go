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

package corefacade

import (
	"unsafe"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/channel"
	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/rs/zerolog"
)

// subscriberHandle is what abi.RegisterSubscriber hides behind the opaque
// srm_subscriber pointer a plugin holds after subscribe() returns.
type subscriberHandle struct {
	sub     *channel.Subscriber
	release func()
}

func (s *subscriberHandle) ChannelName() string    { return s.sub.ChannelName() }
func (s *subscriberHandle) ChannelType() uint64     { return s.sub.ChannelType() }
func (s *subscriberHandle) GetErrMsg(err int) string { return errs.MessageFor(err) }

// Disconnect removes the callback from its channel and frees the handle.
// The plugin must not call back through this pointer afterward.
func (s *subscriberHandle) Disconnect() int {
	s.sub.Disconnect()
	s.release()
	return errs.CodeOK
}

// publisherHandle is the Publisher-side analogue of subscriberHandle.
type publisherHandle struct {
	pub     *channel.Publisher
	log     zerolog.Logger
	release func()
}

func (p *publisherHandle) ChannelName() string     { return p.pub.ChannelName() }
func (p *publisherHandle) ChannelType() uint64      { return p.pub.ChannelType() }
func (p *publisherHandle) GetErrMsg(err int) string { return errs.MessageFor(err) }

func (p *publisherHandle) Disconnect() int {
	p.pub.Disconnect()
	p.release()
	return errs.CodeOK
}

// Publish hands the plugin a fresh MsgBuilder to fill in, then publishes
// whatever segments it allocated (original_source/src/ffi/core.rs's
// Publisher::publish takes a fill-in-the-message callback rather than a
// ready-made buffer, so the host builds the message on the plugin's
// behalf instead of the plugin building one up front).
func (p *publisherHandle) Publish(fn abi.PublishFn, arg unsafe.Pointer) int {
	b := &msgBuilder{}
	ptr, release := abi.RegisterMsgBuilder(b)
	defer release()

	if code := abi.InvokePublishFn(fn, ptr, arg); code != 0 {
		return code
	}

	msg := b.view(p.pub.ChannelType())
	if err := p.pub.Publish(msg, p.log); err != nil {
		return errs.CodeFor(err)
	}
	return errs.CodeOK
}
