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

// Package corefacade implements the Core Facade (spec.md §4.6): the
// per-node view of the runtime a plugin receives at create() time and
// calls back through for the rest of its life. Grounded on
// original_source/src/static_core.rs's CoreInterface, which holds a
// Weak<Core> and asserts upgrade().is_some() on every method.
package corefacade

import (
	"unsafe"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/channel"
	"github.com/Gregory-Meyer/srm/internal/errs"
	"github.com/Gregory-Meyer/srm/internal/param"
	"github.com/Gregory-Meyer/srm/internal/weakref"
	"github.com/rs/zerolog"
)

// Controller is the subset of the Runtime Controller a Facade needs.
// Declared here, not imported from internal/runtime, so internal/runtime
// can import corefacade (to build one Facade per node) without a cycle.
type Controller interface {
	Registry() *channel.Registry
	Params() *param.Store
}

// Facade implements abi.CoreCallbacks for exactly one node. It holds a
// weak reference back to the owning Controller rather than a strong one:
// the Controller's node table strongly owns every Facade, so the reverse
// edge must be weak to avoid a strong cycle, matching static_core.rs's
// Weak<Core> field and its assert!(core.upgrade().is_some()) calls.
type Facade struct {
	controller *weakref.Weak[Controller]
	nodeName   string
	log        zerolog.Logger
}

// New constructs a Facade for the node named nodeName, weakly bound to
// controller, logging through log (already tagged with the node's name
// as its component field).
func New(controller *weakref.Weak[Controller], nodeName string, log zerolog.Logger) *Facade {
	return &Facade{controller: controller, nodeName: nodeName, log: log}
}

func (f *Facade) upgrade() Controller {
	return *f.controller.MustUpgrade()
}

// GetType identifies this Core implementation itself, not the node it
// serves - the node already knows its own type, since it was loaded
// under it (static_core.rs's CoreInterface::get_type returns its own
// fixed "srm::static_core::CoreInterface" string for the same reason).
func (f *Facade) GetType() string { return "srm/internal/corefacade.Facade" }

// GetErrMsg maps one of this package's own wire codes back to a message.
func (f *Facade) GetErrMsg(err int) string { return errs.MessageFor(err) }

func (f *Facade) Subscribe(msgType uint64, topic string, cb abi.SubscribeCallback, arg unsafe.Pointer) (unsafe.Pointer, int) {
	ch, err := f.upgrade().Registry().GetOrCreate(topic, msgType)
	if err != nil {
		return nil, errs.CodeFor(err)
	}

	sub, err := channel.NewSubscriber(ch, cb, arg)
	if err != nil {
		return nil, errs.CodeFor(err)
	}

	wrapper := &subscriberHandle{sub: sub}
	ptr, release := abi.RegisterSubscriber(wrapper)
	wrapper.release = release
	return ptr, errs.CodeOK
}

func (f *Facade) Advertise(msgType uint64, topic string) (unsafe.Pointer, int) {
	ch, err := f.upgrade().Registry().GetOrCreate(topic, msgType)
	if err != nil {
		return nil, errs.CodeFor(err)
	}

	pub := channel.NewPublisher(ch)
	wrapper := &publisherHandle{pub: pub, log: f.log}
	ptr, release := abi.RegisterPublisher(wrapper)
	wrapper.release = release
	return ptr, errs.CodeOK
}

func (f *Facade) LogError(msg string) { f.log.Error().Msg(msg) }
func (f *Facade) LogWarn(msg string)  { f.log.Warn().Msg(msg) }
func (f *Facade) LogInfo(msg string)  { f.log.Info().Msg(msg) }
func (f *Facade) LogDebug(msg string) { f.log.Debug().Msg(msg) }
func (f *Facade) LogTrace(msg string) { f.log.Trace().Msg(msg) }

func (f *Facade) ParamTypeInt(key string) (abi.ParamKind, int) {
	return abi.ParamKind(f.upgrade().Params().TypeOf(key)), errs.CodeOK
}

func (f *Facade) ParamSetInt(key string, v int64) int {
	return errs.CodeFor(f.upgrade().Params().SetInt(key, v))
}

func (f *Facade) ParamGetInt(key string) (int64, int) {
	v, err := f.upgrade().Params().GetInt(key)
	return v, errs.CodeFor(err)
}

func (f *Facade) ParamSwapInt(key string, v int64) (int64, int) {
	old, err := f.upgrade().Params().SwapInt(key, v)
	return old, errs.CodeFor(err)
}

func (f *Facade) ParamTypeBool(key string) (abi.ParamKind, int) {
	return abi.ParamKind(f.upgrade().Params().TypeOf(key)), errs.CodeOK
}

func (f *Facade) ParamSetBool(key string, v bool) int {
	return errs.CodeFor(f.upgrade().Params().SetBool(key, v))
}

func (f *Facade) ParamGetBool(key string) (bool, int) {
	v, err := f.upgrade().Params().GetBool(key)
	return v, errs.CodeFor(err)
}

func (f *Facade) ParamSwapBool(key string, v bool) (bool, int) {
	old, err := f.upgrade().Params().SwapBool(key, v)
	return old, errs.CodeFor(err)
}

func (f *Facade) ParamTypeReal(key string) (abi.ParamKind, int) {
	return abi.ParamKind(f.upgrade().Params().TypeOf(key)), errs.CodeOK
}

func (f *Facade) ParamSetReal(key string, v float64) int {
	return errs.CodeFor(f.upgrade().Params().SetReal(key, v))
}

func (f *Facade) ParamGetReal(key string) (float64, int) {
	v, err := f.upgrade().Params().GetReal(key)
	return v, errs.CodeFor(err)
}

func (f *Facade) ParamSwapReal(key string, v float64) (float64, int) {
	old, err := f.upgrade().Params().SwapReal(key, v)
	return old, errs.CodeFor(err)
}

func (f *Facade) ParamTypeString(key string) (abi.ParamKind, int) {
	return abi.ParamKind(f.upgrade().Params().TypeOf(key)), errs.CodeOK
}

func (f *Facade) ParamSetString(key string, v string) int {
	return errs.CodeFor(f.upgrade().Params().SetString(key, v))
}

func (f *Facade) ParamGetString(key string) (string, int) {
	v, err := f.upgrade().Params().GetString(key)
	return v, errs.CodeFor(err)
}

func (f *Facade) ParamSwapString(key string, v string) (string, int) {
	old, err := f.upgrade().Params().SwapString(key, v)
	return old, errs.CodeFor(err)
}
