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

// Package node owns one plugin-created node instance and drives its
// lifecycle through the node vtable (spec.md §4.2), grounded on
// original_source/src/node.rs.
package node

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/pluginloader"
)

// State is one of Node's lifecycle states (node.rs has no explicit state
// enum, tracking liveness via a nullable impl pointer instead; this port
// makes the states explicit for clarity at call sites that need to
// reject a second Start).
type State int32

const (
	Unstarted State = iota
	Running
	Destroyed
)

// ErrorCode pairs a nonzero plugin error code with its message, mirroring
// original_source/src/error_code.rs's ErrorCode (Display: "msg (code)").
type ErrorCode struct {
	Code int
	Msg  string
}

func (e *ErrorCode) Error() string {
	return fmt.Sprintf("%s (%d)", e.Msg, e.Code)
}

// Node wraps a plugin node instance and its vtable. All methods are safe
// to call from any goroutine: nodes are required to be internally
// thread-safe (spec.md §4.2).
type Node struct {
	plugin  *pluginloader.NodePlugin
	name    string
	implPtr unsafe.Pointer
	state   atomic.Int32
}

// New constructs an Unstarted node bound to plugin. name must already be
// known unique in the runtime by the caller.
func New(plugin *pluginloader.NodePlugin, name string) *Node {
	return &Node{plugin: plugin, name: name}
}

// Name returns the node's runtime-unique name.
func (n *Node) Name() string {
	return n.name
}

// Start invokes the plugin's create slot with the given Core view,
// transitioning Unstarted -> Running. May be called at most once.
func (n *Node) Start(core abi.CoreRef) error {
	if !n.state.CompareAndSwap(int32(Unstarted), int32(Running)) {
		panic("node: Start called more than once")
	}

	nameView := abi.NewStrView(n.name)
	defer abi.FreeStrView(nameView)

	impl, code := n.plugin.Vtbl().Create(core, nameView)
	if code != 0 {
		msg := n.plugin.Vtbl().GetErrMsg(nil, code).String()
		n.state.Store(int32(Unstarted))
		return &ErrorCode{Code: code, Msg: msg}
	}

	n.implPtr = impl
	return nil
}

// Run invokes the plugin's run slot. Blocks until the node exits.
func (n *Node) Run() error {
	code := n.plugin.Vtbl().Run(n.implPtr)
	return n.toResult(code)
}

// Stop invokes the plugin's stop slot. Must not block; may be called
// concurrently with Run from any goroutine.
func (n *Node) Stop() error {
	code := n.plugin.Vtbl().Stop(n.implPtr)
	return n.toResult(code)
}

// TypeName returns the plugin-reported type string for this node.
func (n *Node) TypeName() string {
	return n.plugin.Vtbl().GetType(n.implPtr).String()
}

// ErrMsg looks up the message for a nonzero error code returned by this
// node's plugin.
func (n *Node) ErrMsg(code int) string {
	if code == 0 {
		return ""
	}
	return n.plugin.Vtbl().GetErrMsg(n.implPtr, code).String()
}

// Destroy invokes the plugin's destroy slot. A nonzero return is fatal:
// it indicates a bug in the plugin's teardown, not a recoverable runtime
// condition, matching node.rs's Drop impl panicking on nonzero destroy.
func (n *Node) Destroy() {
	if State(n.state.Load()) != Running {
		return
	}

	code := n.plugin.Vtbl().Destroy(n.implPtr)
	n.state.Store(int32(Destroyed))
	if code != 0 {
		msg := n.ErrMsg(code)
		panic(fmt.Sprintf("couldn't destroy node %p: %s (%d)", n.implPtr, msg, code))
	}
	n.implPtr = nil
}

func (n *Node) toResult(code int) error {
	if code == 0 {
		return nil
	}
	return &ErrorCode{Code: code, Msg: n.ErrMsg(code)}
}
