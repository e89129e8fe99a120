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

// Package abi is the FFI Wrapper Layer: the cgo struct layouts, vtable
// shapes, and host<->library call trampolines that make up the plugin ABI
// described in spec.md §6. The struct field order and sizes here are load
// bearing - a plugin built with a different compiler must agree on them
// byte for byte. Everything that has to cross the boundary lives in this
// one file deliberately, so there is exactly one cgo preamble to keep
// consistent.
//
// Struct conventions (StrView's (ptr, len) pair, typed function-pointer
// vtables validated once at load time) are carried over from the
// teacher's abi/types.go, generalized from its HTTP request/response
// domain to this spec's pub/sub message domain. The host-side dlopen
// loading and the Core-side vtable-of-exported-functions are new: the
// teacher only ever shows a Go shared object being loaded by a foreign
// host, never a Go process loading a foreign shared object, so this half
// of the boundary has no direct precedent in the example pack.
package abi

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <stdint.h>
#include <stdbool.h>

typedef struct {
    const char *data;
    ptrdiff_t len;
} srm_str_view;

typedef uint64_t srm_word;

typedef struct {
    const srm_word *data;
    size_t word_count;
} srm_msg_segment_view;

typedef struct {
    const srm_msg_segment_view *segments;
    size_t num_segments;
    uint64_t msg_type;
} srm_msg_view;

typedef void srm_core;
typedef void srm_node_impl;
typedef void srm_publisher;
typedef void srm_subscriber;
typedef void srm_msg_builder;

// ---- plugin-supplied callback types (subscribe callback, publish fn) ----

typedef int (*srm_subscribe_callback_fn)(srm_msg_view msg, void *arg);
typedef int (*srm_publish_fn)(srm_msg_builder *builder, void *arg);

static int srm_call_subscribe_callback(srm_subscribe_callback_fn f, srm_msg_view msg, void *arg) {
    return f(msg, arg);
}

static int srm_call_publish_fn(srm_publish_fn f, srm_msg_builder *builder, void *arg) {
    return f(builder, arg);
}

// ---- core vtable (host-supplied) ----

typedef struct {
    uint64_t msg_type;
    srm_str_view topic;
    srm_subscribe_callback_fn callback;
    void *arg;
} srm_subscribe_params;

typedef struct {
    uint64_t msg_type;
    srm_str_view topic;
} srm_advertise_params;

typedef int (*srm_core_subscribe_fn)(srm_core *core, srm_subscribe_params params, srm_subscriber **out);
typedef int (*srm_core_advertise_fn)(srm_core *core, srm_advertise_params params, srm_publisher **out);
typedef srm_str_view (*srm_core_get_type_fn)(const srm_core *core);
typedef srm_str_view (*srm_core_get_err_msg_fn)(const srm_core *core, int err);
typedef int (*srm_core_log_fn)(srm_core *core, srm_str_view msg);

typedef int (*srm_param_type_fn)(srm_core *core, srm_str_view key, int *out_kind);
typedef int (*srm_param_seti_fn)(srm_core *core, srm_str_view key, int64_t value);
typedef int (*srm_param_geti_fn)(srm_core *core, srm_str_view key, int64_t *out);
typedef int (*srm_param_swapi_fn)(srm_core *core, srm_str_view key, int64_t value, int64_t *out_old);
typedef int (*srm_param_setb_fn)(srm_core *core, srm_str_view key, bool value);
typedef int (*srm_param_getb_fn)(srm_core *core, srm_str_view key, bool *out);
typedef int (*srm_param_swapb_fn)(srm_core *core, srm_str_view key, bool value, bool *out_old);
typedef int (*srm_param_setr_fn)(srm_core *core, srm_str_view key, double value);
typedef int (*srm_param_getr_fn)(srm_core *core, srm_str_view key, double *out);
typedef int (*srm_param_swapr_fn)(srm_core *core, srm_str_view key, double value, double *out_old);
typedef int (*srm_param_sets_fn)(srm_core *core, srm_str_view key, srm_str_view value);
typedef int (*srm_param_gets_fn)(srm_core *core, srm_str_view key, srm_str_view *out);
typedef int (*srm_param_swaps_fn)(srm_core *core, srm_str_view key, srm_str_view value, srm_str_view *out_old);

// ---- publisher / subscriber / message-builder vtbl slots (host-supplied) ----
//
// ffi/core.rs gives Publisher and Subscriber their own per-instance
// vtable (like Core's), generated generically per concrete type via
// core/mod.rs's srm_publisher_impl!/srm_subscriber_impl! macros. Go has
// no macros to generate that per-type dispatch, and there is exactly one
// Go-side Publisher/Subscriber/MsgBuilder shape in this runtime, so
// those operations are folded into the single process-wide Core vtbl
// instead of introducing three more per-instance (impl, vtbl) pairs.

typedef srm_str_view (*srm_publisher_get_name_fn)(srm_publisher *p);
typedef uint64_t (*srm_publisher_get_type_fn)(srm_publisher *p);
typedef int (*srm_publisher_publish_fn)(srm_publisher *p, srm_publish_fn fn, void *arg);
typedef int (*srm_publisher_disconnect_fn)(srm_publisher *p);
typedef srm_str_view (*srm_publisher_get_err_msg_fn)(srm_publisher *p, int err);

typedef srm_str_view (*srm_subscriber_get_name_fn)(srm_subscriber *s);
typedef uint64_t (*srm_subscriber_get_type_fn)(srm_subscriber *s);
typedef int (*srm_subscriber_disconnect_fn)(srm_subscriber *s);
typedef srm_str_view (*srm_subscriber_get_err_msg_fn)(srm_subscriber *s, int err);

typedef int (*srm_msg_builder_alloc_segment_fn)(srm_msg_builder *b, size_t min_words, srm_word **out_data, size_t *out_word_count);
typedef srm_str_view (*srm_msg_builder_get_err_msg_fn)(srm_msg_builder *b, int err);

static srm_str_view srm_core_call_publisher_get_name(srm_publisher_get_name_fn f, srm_publisher *p) {
    return f(p);
}

static uint64_t srm_core_call_publisher_get_type(srm_publisher_get_type_fn f, srm_publisher *p) {
    return f(p);
}

static int srm_core_call_publisher_publish(srm_publisher_publish_fn f, srm_publisher *p, srm_publish_fn fn, void *arg) {
    return f(p, fn, arg);
}

static int srm_core_call_publisher_disconnect(srm_publisher_disconnect_fn f, srm_publisher *p) {
    return f(p);
}

static srm_str_view srm_core_call_publisher_get_err_msg(srm_publisher_get_err_msg_fn f, srm_publisher *p, int err) {
    return f(p, err);
}

static srm_str_view srm_core_call_subscriber_get_name(srm_subscriber_get_name_fn f, srm_subscriber *s) {
    return f(s);
}

static uint64_t srm_core_call_subscriber_get_type(srm_subscriber_get_type_fn f, srm_subscriber *s) {
    return f(s);
}

static int srm_core_call_subscriber_disconnect(srm_subscriber_disconnect_fn f, srm_subscriber *s) {
    return f(s);
}

static srm_str_view srm_core_call_subscriber_get_err_msg(srm_subscriber_get_err_msg_fn f, srm_subscriber *s, int err) {
    return f(s, err);
}

static int srm_core_call_msg_builder_alloc_segment(srm_msg_builder_alloc_segment_fn f, srm_msg_builder *b, size_t min_words, srm_word **out_data, size_t *out_word_count) {
    return f(b, min_words, out_data, out_word_count);
}

static srm_str_view srm_core_call_msg_builder_get_err_msg(srm_msg_builder_get_err_msg_fn f, srm_msg_builder *b, int err) {
    return f(b, err);
}

typedef struct {
    srm_core_get_type_fn get_type;
    srm_core_subscribe_fn subscribe;
    srm_core_advertise_fn advertise;
    srm_core_get_err_msg_fn get_err_msg;

    srm_core_log_fn log_error;
    srm_core_log_fn log_warn;
    srm_core_log_fn log_info;
    srm_core_log_fn log_debug;
    srm_core_log_fn log_trace;

    srm_param_type_fn param_typei;
    srm_param_seti_fn param_seti;
    srm_param_geti_fn param_geti;
    srm_param_swapi_fn param_swapi;

    srm_param_type_fn param_typeb;
    srm_param_setb_fn param_setb;
    srm_param_getb_fn param_getb;
    srm_param_swapb_fn param_swapb;

    srm_param_type_fn param_typer;
    srm_param_setr_fn param_setr;
    srm_param_getr_fn param_getr;
    srm_param_swapr_fn param_swapr;

    srm_param_type_fn param_types;
    srm_param_sets_fn param_sets;
    srm_param_gets_fn param_gets;
    srm_param_swaps_fn param_swaps;

    srm_publisher_get_name_fn publisher_get_channel_name;
    srm_publisher_get_type_fn publisher_get_channel_type;
    srm_publisher_publish_fn publisher_publish;
    srm_publisher_disconnect_fn publisher_disconnect;
    srm_publisher_get_err_msg_fn publisher_get_err_msg;

    srm_subscriber_get_name_fn subscriber_get_channel_name;
    srm_subscriber_get_type_fn subscriber_get_channel_type;
    srm_subscriber_disconnect_fn subscriber_disconnect;
    srm_subscriber_get_err_msg_fn subscriber_get_err_msg;

    srm_msg_builder_alloc_segment_fn msg_builder_alloc_segment;
    srm_msg_builder_get_err_msg_fn msg_builder_get_err_msg;
} srm_core_vtbl;

// srm_core_ref is the fat pointer pair a node receives exactly once, at
// create() time: the opaque per-node core state plus the vtable used to
// call back into it. Every other host-supplied vtbl function only needs
// the opaque half (srm_core *), since the vtable itself is already known
// to whichever side is making the call.
typedef struct {
    srm_core *impl;
    const srm_core_vtbl *vtbl;
} srm_core_ref;

// ---- node vtable (plugin-supplied) ----

typedef int (*srm_node_create_fn)(srm_core_ref core, srm_str_view name, void **out_impl);
typedef int (*srm_node_destroy_fn)(srm_node_impl *impl);
typedef int (*srm_node_run_fn)(srm_node_impl *impl);
typedef int (*srm_node_stop_fn)(srm_node_impl *impl);
typedef srm_str_view (*srm_node_get_type_fn)(const srm_node_impl *impl);
typedef srm_str_view (*srm_node_get_err_msg_fn)(const srm_node_impl *impl, int err);

typedef struct {
    srm_node_create_fn create;
    srm_node_destroy_fn destroy;
    srm_node_run_fn run;
    srm_node_stop_fn stop;
    srm_node_get_type_fn get_type;
    srm_node_get_err_msg_fn get_err_msg;
} srm_node_vtbl;

typedef const srm_node_vtbl *(*srm_get_node_vtbl_fn)(void);

static int srm_call_create(srm_node_create_fn f, srm_core_ref core, srm_str_view name, void **out) {
    return f(core, name, out);
}

static int srm_call_destroy(srm_node_destroy_fn f, srm_node_impl *impl) {
    return f(impl);
}

static int srm_call_run(srm_node_run_fn f, srm_node_impl *impl) {
    return f(impl);
}

static int srm_call_stop(srm_node_stop_fn f, srm_node_impl *impl) {
    return f(impl);
}

static srm_str_view srm_call_get_type(srm_node_get_type_fn f, const srm_node_impl *impl) {
    return f(impl);
}

static srm_str_view srm_call_get_err_msg(srm_node_get_err_msg_fn f, const srm_node_impl *impl, int err) {
    return f(impl, err);
}

static const srm_node_vtbl *srm_call_get_vtbl(srm_get_node_vtbl_fn f) {
    return f();
}

static srm_str_view srm_core_call_get_type(srm_core_get_type_fn f, const srm_core *core) {
    return f(core);
}

static int srm_core_call_subscribe(srm_core_subscribe_fn f, srm_core *core, srm_subscribe_params p, srm_subscriber **out) {
    return f(core, p, out);
}

static int srm_core_call_advertise(srm_core_advertise_fn f, srm_core *core, srm_advertise_params p, srm_publisher **out) {
    return f(core, p, out);
}

static srm_str_view srm_core_call_get_err_msg(srm_core_get_err_msg_fn f, const srm_core *core, int err) {
    return f(core, err);
}

static int srm_core_call_log(srm_core_log_fn f, srm_core *core, srm_str_view msg) {
    return f(core, msg);
}

// ---- host-side Core vtbl: implemented by exported Go functions ----

extern srm_str_view srm_host_get_type(srm_core *core);
extern int srm_host_subscribe(srm_core *core, srm_subscribe_params params, srm_subscriber **out);
extern int srm_host_advertise(srm_core *core, srm_advertise_params params, srm_publisher **out);
extern srm_str_view srm_host_get_err_msg(srm_core *core, int err);

extern int srm_host_log_error(srm_core *core, srm_str_view msg);
extern int srm_host_log_warn(srm_core *core, srm_str_view msg);
extern int srm_host_log_info(srm_core *core, srm_str_view msg);
extern int srm_host_log_debug(srm_core *core, srm_str_view msg);
extern int srm_host_log_trace(srm_core *core, srm_str_view msg);

extern int srm_host_param_typei(srm_core *core, srm_str_view key, int *out_kind);
extern int srm_host_param_seti(srm_core *core, srm_str_view key, int64_t value);
extern int srm_host_param_geti(srm_core *core, srm_str_view key, int64_t *out);
extern int srm_host_param_swapi(srm_core *core, srm_str_view key, int64_t value, int64_t *out_old);

extern int srm_host_param_typeb(srm_core *core, srm_str_view key, int *out_kind);
extern int srm_host_param_setb(srm_core *core, srm_str_view key, bool value);
extern int srm_host_param_getb(srm_core *core, srm_str_view key, bool *out);
extern int srm_host_param_swapb(srm_core *core, srm_str_view key, bool value, bool *out_old);

extern int srm_host_param_typer(srm_core *core, srm_str_view key, int *out_kind);
extern int srm_host_param_setr(srm_core *core, srm_str_view key, double value);
extern int srm_host_param_getr(srm_core *core, srm_str_view key, double *out);
extern int srm_host_param_swapr(srm_core *core, srm_str_view key, double value, double *out_old);

extern int srm_host_param_types(srm_core *core, srm_str_view key, int *out_kind);
extern int srm_host_param_sets(srm_core *core, srm_str_view key, srm_str_view value);
extern int srm_host_param_gets(srm_core *core, srm_str_view key, srm_str_view *out);
extern int srm_host_param_swaps(srm_core *core, srm_str_view key, srm_str_view value, srm_str_view *out_old);

extern srm_str_view srm_host_publisher_get_channel_name(srm_publisher *p);
extern uint64_t srm_host_publisher_get_channel_type(srm_publisher *p);
extern int srm_host_publisher_publish(srm_publisher *p, srm_publish_fn fn, void *arg);
extern int srm_host_publisher_disconnect(srm_publisher *p);
extern srm_str_view srm_host_publisher_get_err_msg(srm_publisher *p, int err);

extern srm_str_view srm_host_subscriber_get_channel_name(srm_subscriber *s);
extern uint64_t srm_host_subscriber_get_channel_type(srm_subscriber *s);
extern int srm_host_subscriber_disconnect(srm_subscriber *s);
extern srm_str_view srm_host_subscriber_get_err_msg(srm_subscriber *s, int err);

extern int srm_host_msg_builder_alloc_segment(srm_msg_builder *b, size_t min_words, srm_word **out_data, size_t *out_word_count);
extern srm_str_view srm_host_msg_builder_get_err_msg(srm_msg_builder *b, int err);

// ---- dlopen/dlsym wrappers ----

static void *srm_dlopen(const char *path) {
    return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static void *srm_dlsym(void *handle, const char *name) {
    return dlsym(handle, name);
}

static const char *srm_dlerror(void) {
    return dlerror();
}
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"unsafe"
)

// Word is one 8-byte unit of a message segment.
type Word = uint64

// WordSize is the size in bytes of one Word, per spec.md §6.
const WordSize = 8

// SegmentAlignment is the required alignment, in bytes, of an allocated
// message segment (spec.md §6: "aligned to a 128-byte boundary").
const SegmentAlignment = 128

// SegmentWordMultiple is the required size granularity, in words, of an
// allocated message segment (spec.md §6: "sized to a multiple of 16
// words").
const SegmentWordMultiple = 16

// StrView is a borrowed, non-owning view of UTF-8 text crossing the ABI
// boundary: (const char*, ptrdiff_t len), exactly spec.md §6's StrView.
type StrView struct {
	Data unsafe.Pointer
	Len  int
}

func strViewFromC(v C.srm_str_view) StrView {
	return StrView{Data: unsafe.Pointer(v.data), Len: int(v.len)}
}

func (v StrView) toC() C.srm_str_view {
	return C.srm_str_view{data: (*C.char)(v.Data), len: C.ptrdiff_t(v.Len)}
}

// String copies the view into a Go string. Safe to call at any time; does
// not retain the underlying pointer.
func (v StrView) String() string {
	if v.Data == nil || v.Len <= 0 {
		return ""
	}
	return C.GoStringN((*C.char)(v.Data), C.int(v.Len))
}

// NewStrView allocates C memory holding s and returns a view over it. The
// caller owns the returned memory and must free it with FreeStrView once
// the callee is done with the view (mirrors the teacher's FromString/
// FromBytes allocate-and-copy pattern in abi/types.go).
func NewStrView(s string) StrView {
	if len(s) == 0 {
		return StrView{}
	}
	cstr := C.CString(s)
	return StrView{Data: unsafe.Pointer(cstr), Len: len(s)}
}

// FreeStrView releases memory obtained from NewStrView.
func FreeStrView(v StrView) {
	if v.Data != nil {
		C.free(v.Data)
	}
}

// MsgSegmentView is a borrowed view of one message segment: (const word*,
// word_count).
type MsgSegmentView struct {
	Data  unsafe.Pointer
	Words int
}

// Bytes returns the segment's words reinterpreted as a byte slice,
// without copying.
func (s MsgSegmentView) Bytes() []byte {
	if s.Data == nil || s.Words <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(s.Data), s.Words*WordSize)
}

func segmentViewFromC(v C.srm_msg_segment_view) MsgSegmentView {
	return MsgSegmentView{Data: unsafe.Pointer(v.data), Words: int(v.word_count)}
}

// MsgView is a borrowed view of an entire message: its segments plus the
// channel's message type discriminator.
type MsgView struct {
	Segments []MsgSegmentView
	MsgType  uint64
}

func msgViewFromC(v C.srm_msg_view) MsgView {
	if v.segments == nil || v.num_segments == 0 {
		return MsgView{MsgType: uint64(v.msg_type)}
	}

	n := int(v.num_segments)
	cSegs := unsafe.Slice(v.segments, n)
	segs := make([]MsgSegmentView, n)
	for i, cs := range cSegs {
		segs[i] = segmentViewFromC(cs)
	}
	return MsgView{Segments: segs, MsgType: uint64(v.msg_type)}
}

// Bytes concatenates every segment's bytes into a single owned slice.
func (m MsgView) Bytes() []byte {
	var total int
	for _, s := range m.Segments {
		total += s.Words * WordSize
	}
	out := make([]byte, 0, total)
	for _, s := range m.Segments {
		out = append(out, s.Bytes()...)
	}
	return out
}

// SubscribeCallback and PublishFn are the C function pointer types a
// plugin supplies to Subscribe and to a Publisher's message builder,
// respectively (spec.md §6).
type SubscribeCallback = C.srm_subscribe_callback_fn
type PublishFn = C.srm_publish_fn

// InvokePublishFn calls a plugin-supplied publish callback, handing it
// builder (an opaque srm_msg_builder pointer the plugin fills in via the
// msg_builder_alloc_segment Core vtbl slot) and its registered argument.
func InvokePublishFn(f PublishFn, builder unsafe.Pointer, arg unsafe.Pointer) int {
	return int(C.srm_call_publish_fn(f, builder, arg))
}

// InvokeSubscribeCallback calls a plugin-supplied subscribe callback with
// a message view and its registered argument, returning the plugin's
// error code.
func InvokeSubscribeCallback(f SubscribeCallback, msg MsgView, arg unsafe.Pointer) int {
	segs := make([]C.srm_msg_segment_view, len(msg.Segments))
	for i, s := range msg.Segments {
		segs[i] = C.srm_msg_segment_view{
			data:       (*C.srm_word)(s.Data),
			word_count: C.size_t(s.Words),
		}
	}

	var cv C.srm_msg_view
	cv.msg_type = C.uint64_t(msg.MsgType)
	if len(segs) > 0 {
		cv.segments = &segs[0]
		cv.num_segments = C.size_t(len(segs))
	}

	return int(C.srm_call_subscribe_callback(f, cv, arg))
}

// CoreVtblSlotNames lists every required Core vtable slot, in
// srm_core_vtbl field order: get_type, subscribe, advertise, get_err_msg,
// the five log levels, the typed parameter quartet for each of integer/
// boolean/real/string, and then the publisher, subscriber and
// message-builder slots folded into the same table.
var CoreVtblSlotNames = []string{
	"get_type", "subscribe", "advertise", "get_err_msg",
	"log_error", "log_warn", "log_info", "log_debug", "log_trace",
	"param_typei", "param_seti", "param_geti", "param_swapi",
	"param_typeb", "param_setb", "param_getb", "param_swapb",
	"param_typer", "param_setr", "param_getr", "param_swapr",
	"param_types", "param_sets", "param_gets", "param_swaps",
	"publisher_get_channel_name", "publisher_get_channel_type", "publisher_publish",
	"publisher_disconnect", "publisher_get_err_msg",
	"subscriber_get_channel_name", "subscriber_get_channel_type", "subscriber_disconnect",
	"subscriber_get_err_msg",
	"msg_builder_alloc_segment", "msg_builder_get_err_msg",
}

// Library is an opened, never-unloaded shared library handle, matching
// spec.md §4.1's "the loader holds each loaded library for its entire
// lifetime; unloading is not supported."
type Library struct {
	handle unsafe.Pointer
	path   string
}

// OpenLibrary dlopens path. Returns an error (not NoLibraryFound - that
// mapping is the plugin loader's job, since only it knows about the whole
// search path) on failure.
func OpenLibrary(path string) (*Library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.srm_dlopen(cpath)
	if handle == nil {
		return nil, errors.New(C.GoString(C.srm_dlerror()))
	}
	return &Library{handle: handle, path: path}, nil
}

// Path returns the filesystem path this library was opened from.
func (l *Library) Path() string {
	return l.path
}

func (l *Library) symbol(name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.srm_dlerror() // clear any pending error
	sym := C.srm_dlsym(l.handle, cname)
	if sym == nil {
		if errStr := C.srm_dlerror(); errStr != nil {
			return nil, errors.New(C.GoString(errStr))
		}
		return nil, errors.New("symbol not found")
	}
	return sym, nil
}

// GetVtblSymbolName is the well-known exported getter every plugin must
// provide (spec.md §6).
const GetVtblSymbolName = "srm_Node_get_vtbl"

// NodeVtbl is the raw (possibly null-slotted) node vtable returned by a
// plugin, mirroring original_source/src/node.rs's Vtbl once validated.
type NodeVtbl struct {
	raw *C.srm_node_vtbl
}

// NodeVtblSlotNames lists every required slot, in validation order,
// matching node_plugin.rs's NodePlugin::new check sequence exactly.
// MissingSlot checks the slots and reports their names in this same
// order.
var NodeVtblSlotNames = []string{"create", "destroy", "run", "stop", "get_type", "get_err_msg"}

// LoadNodeVtbl resolves and invokes the plugin's srm_Node_get_vtbl symbol,
// returning the raw (possibly containing null slots) vtable pointer. The
// caller (pluginloader) is responsible for null-checking every slot; this
// function only performs the symbol lookup and call.
func (l *Library) LoadNodeVtbl() (*NodeVtbl, error) {
	sym, err := l.symbol(GetVtblSymbolName)
	if err != nil {
		return nil, err
	}

	fn := C.srm_get_node_vtbl_fn(sym)
	raw := C.srm_call_get_vtbl(fn)
	if raw == nil {
		return nil, nil
	}
	return &NodeVtbl{raw: raw}, nil
}

// MissingSlot returns the name of the first null required slot, or "" if
// every slot is populated.
func (v *NodeVtbl) MissingSlot() string {
	switch {
	case v.raw.create == nil:
		return "create"
	case v.raw.destroy == nil:
		return "destroy"
	case v.raw.run == nil:
		return "run"
	case v.raw.stop == nil:
		return "stop"
	case v.raw.get_type == nil:
		return "get_type"
	case v.raw.get_err_msg == nil:
		return "get_err_msg"
	default:
		return ""
	}
}

// CoreRef is the fat pointer pair a node receives exactly once, at create
// time: the opaque per-node core state plus the vtable used to call back
// into it (original_source/src/ffi/core.rs's Core<'a>{impl_ptr, vptr}).
type CoreRef struct {
	Impl unsafe.Pointer
	Vtbl unsafe.Pointer
}

func (c CoreRef) toC() C.srm_core_ref {
	return C.srm_core_ref{
		impl: c.Impl,
		vtbl: (*C.srm_core_vtbl)(c.Vtbl),
	}
}

// Create invokes the plugin's create slot: (core, name, *out_impl) ->
// errcode.
func (v *NodeVtbl) Create(core CoreRef, name StrView) (unsafe.Pointer, int) {
	var out unsafe.Pointer
	nameC := name.toC()
	code := C.srm_call_create(v.raw.create, core.toC(), nameC, (*unsafe.Pointer)(&out))
	return out, int(code)
}

// Destroy invokes the plugin's destroy slot.
func (v *NodeVtbl) Destroy(impl unsafe.Pointer) int {
	return int(C.srm_call_destroy(v.raw.destroy, impl))
}

// Run invokes the plugin's run slot. Blocks until the node exits.
func (v *NodeVtbl) Run(impl unsafe.Pointer) int {
	return int(C.srm_call_run(v.raw.run, impl))
}

// Stop invokes the plugin's stop slot. Must not block.
func (v *NodeVtbl) Stop(impl unsafe.Pointer) int {
	return int(C.srm_call_stop(v.raw.stop, impl))
}

// GetType invokes the plugin's get_type slot.
func (v *NodeVtbl) GetType(impl unsafe.Pointer) StrView {
	return strViewFromC(C.srm_call_get_type(v.raw.get_type, impl))
}

// GetErrMsg invokes the plugin's get_err_msg slot.
func (v *NodeVtbl) GetErrMsg(impl unsafe.Pointer, err int) StrView {
	return strViewFromC(C.srm_call_get_err_msg(v.raw.get_err_msg, impl, C.int(err)))
}

// ParamKind mirrors the tag a param_type* slot writes back, one per
// Parameter Value variant (spec.md §3).
type ParamKind int32

const (
	ParamKindNone ParamKind = iota
	ParamKindInt
	ParamKindBool
	ParamKindReal
	ParamKindString
)

// CoreCallbacks is implemented by the host-side Core Facade
// (internal/corefacade). It lives here, rather than being referenced
// directly from cgo-exported functions by concrete type, so this package
// does not import corefacade (which itself imports abi to build the view
// it hands across the boundary).
type CoreCallbacks interface {
	GetType() string
	Subscribe(msgType uint64, topic string, cb SubscribeCallback, arg unsafe.Pointer) (unsafe.Pointer, int)
	Advertise(msgType uint64, topic string) (unsafe.Pointer, int)
	GetErrMsg(err int) string

	LogError(msg string)
	LogWarn(msg string)
	LogInfo(msg string)
	LogDebug(msg string)
	LogTrace(msg string)

	ParamTypeInt(key string) (ParamKind, int)
	ParamSetInt(key string, v int64) int
	ParamGetInt(key string) (int64, int)
	ParamSwapInt(key string, v int64) (int64, int)

	ParamTypeBool(key string) (ParamKind, int)
	ParamSetBool(key string, v bool) int
	ParamGetBool(key string) (bool, int)
	ParamSwapBool(key string, v bool) (bool, int)

	ParamTypeReal(key string) (ParamKind, int)
	ParamSetReal(key string, v float64) int
	ParamGetReal(key string) (float64, int)
	ParamSwapReal(key string, v float64) (float64, int)

	ParamTypeString(key string) (ParamKind, int)
	ParamSetString(key string, v string) int
	ParamGetString(key string) (string, int)
	ParamSwapString(key string, v string) (string, int)
}

// PublisherCallbacks is implemented by the host-side Publisher wrapper
// (internal/corefacade) and registered behind a cgo.Handle exactly like
// CoreCallbacks; the opaque srm_publisher pointer a plugin holds after
// advertise() is that handle disguised as a pointer.
type PublisherCallbacks interface {
	ChannelName() string
	ChannelType() uint64
	Publish(fn PublishFn, arg unsafe.Pointer) int
	Disconnect() int
	GetErrMsg(err int) string
}

// SubscriberCallbacks is implemented by the host-side Subscriber wrapper,
// registered the same way as PublisherCallbacks.
type SubscriberCallbacks interface {
	ChannelName() string
	ChannelType() uint64
	Disconnect() int
	GetErrMsg(err int) string
}

// MsgBuilderCallbacks is implemented by a short-lived, per-publish Go
// value that accumulates the segments a plugin allocates while filling in
// a message (original_source/src/ffi/msg.rs's MsgBuilder). AllocSegment
// returns a pointer to Words uint64s the plugin may write through, or a
// nil pointer and nonzero err on failure.
type MsgBuilderCallbacks interface {
	AllocSegment(minWords int) (data unsafe.Pointer, words int, err int)
	GetErrMsg(err int) string
}

// RegisterPublisher, RegisterSubscriber, and RegisterMsgBuilder hand back
// the opaque pointer-sized cookie to return across the ABI boundary for
// advertise()/subscribe()'s out-parameter and for a publish callback's
// builder argument, respectively. Release must be called once the plugin
// can no longer reach the handle (Publisher/Subscriber: at disconnect;
// MsgBuilder: once the publish callback returns).
func RegisterPublisher(cb PublisherCallbacks) (unsafe.Pointer, func()) {
	h := cgo.NewHandle(cb)
	return unsafe.Pointer(uintptr(h)), h.Delete
}

func RegisterSubscriber(cb SubscriberCallbacks) (unsafe.Pointer, func()) {
	h := cgo.NewHandle(cb)
	return unsafe.Pointer(uintptr(h)), h.Delete
}

func RegisterMsgBuilder(cb MsgBuilderCallbacks) (unsafe.Pointer, func()) {
	h := cgo.NewHandle(cb)
	return unsafe.Pointer(uintptr(h)), h.Delete
}

func publisherFor(p *C.srm_publisher) PublisherCallbacks {
	h := cgo.Handle(uintptr(unsafe.Pointer(p)))
	return h.Value().(PublisherCallbacks)
}

func subscriberFor(s *C.srm_subscriber) SubscriberCallbacks {
	h := cgo.Handle(uintptr(unsafe.Pointer(s)))
	return h.Value().(SubscriberCallbacks)
}

func msgBuilderFor(b *C.srm_msg_builder) MsgBuilderCallbacks {
	h := cgo.Handle(uintptr(unsafe.Pointer(b)))
	return h.Value().(MsgBuilderCallbacks)
}

// HostCore is the opaque (impl_ptr, vtbl_ptr) pair handed to a plugin's
// create() call, implemented by registering a CoreCallbacks behind a
// runtime/cgo.Handle. The handle value is carried as if it were a
// pointer purely as an opaque cookie - it is never dereferenced on the Go
// side as a Go pointer, only converted back to a cgo.Handle, which is the
// documented use of cgo.Handle for passing Go values through C.
type HostCore struct {
	handle cgo.Handle
}

// NewHostCore registers cb and returns a HostCore ready to be passed to
// NodeVtbl.Create.
func NewHostCore(cb CoreCallbacks) *HostCore {
	return &HostCore{handle: cgo.NewHandle(cb)}
}

// Ptr returns the opaque core pointer to pass as NodeVtbl.Create's core
// argument.
func (h *HostCore) Ptr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(h.handle))
}

// Vtbl returns the process-wide static Core vtable pointer; every node
// shares the same vtable, distinguished only by the opaque core pointer,
// exactly as the plugin side shares one vtable per plugin type.
func (h *HostCore) Vtbl() unsafe.Pointer {
	return unsafe.Pointer(&hostVtbl)
}

// Ref bundles Ptr and Vtbl into the fat pointer pair NodeVtbl.Create
// expects for its core argument.
func (h *HostCore) Ref() CoreRef {
	return CoreRef{Impl: h.Ptr(), Vtbl: h.Vtbl()}
}

// Release invalidates the handle once the owning node is destroyed. Must
// only be called after the plugin can no longer call back through this
// core (i.e. after destroy()).
func (h *HostCore) Release() {
	h.handle.Delete()
}

func callbacksFor(core *C.srm_core) CoreCallbacks {
	h := cgo.Handle(uintptr(unsafe.Pointer(core)))
	return h.Value().(CoreCallbacks)
}

var hostVtbl C.srm_core_vtbl

func init() {
	hostVtbl = C.srm_core_vtbl{
		get_type:    (*[0]byte)(C.srm_host_get_type),
		subscribe:   (*[0]byte)(C.srm_host_subscribe),
		advertise:   (*[0]byte)(C.srm_host_advertise),
		get_err_msg: (*[0]byte)(C.srm_host_get_err_msg),

		log_error: (*[0]byte)(C.srm_host_log_error),
		log_warn:  (*[0]byte)(C.srm_host_log_warn),
		log_info:  (*[0]byte)(C.srm_host_log_info),
		log_debug: (*[0]byte)(C.srm_host_log_debug),
		log_trace: (*[0]byte)(C.srm_host_log_trace),

		param_typei: (*[0]byte)(C.srm_host_param_typei),
		param_seti:  (*[0]byte)(C.srm_host_param_seti),
		param_geti:  (*[0]byte)(C.srm_host_param_geti),
		param_swapi: (*[0]byte)(C.srm_host_param_swapi),

		param_typeb: (*[0]byte)(C.srm_host_param_typeb),
		param_setb:  (*[0]byte)(C.srm_host_param_setb),
		param_getb:  (*[0]byte)(C.srm_host_param_getb),
		param_swapb: (*[0]byte)(C.srm_host_param_swapb),

		param_typer: (*[0]byte)(C.srm_host_param_typer),
		param_setr:  (*[0]byte)(C.srm_host_param_setr),
		param_getr:  (*[0]byte)(C.srm_host_param_getr),
		param_swapr: (*[0]byte)(C.srm_host_param_swapr),

		param_types: (*[0]byte)(C.srm_host_param_types),
		param_sets:  (*[0]byte)(C.srm_host_param_sets),
		param_gets:  (*[0]byte)(C.srm_host_param_gets),
		param_swaps: (*[0]byte)(C.srm_host_param_swaps),

		publisher_get_channel_name: (*[0]byte)(C.srm_host_publisher_get_channel_name),
		publisher_get_channel_type: (*[0]byte)(C.srm_host_publisher_get_channel_type),
		publisher_publish:          (*[0]byte)(C.srm_host_publisher_publish),
		publisher_disconnect:       (*[0]byte)(C.srm_host_publisher_disconnect),
		publisher_get_err_msg:      (*[0]byte)(C.srm_host_publisher_get_err_msg),

		subscriber_get_channel_name: (*[0]byte)(C.srm_host_subscriber_get_channel_name),
		subscriber_get_channel_type: (*[0]byte)(C.srm_host_subscriber_get_channel_type),
		subscriber_disconnect:       (*[0]byte)(C.srm_host_subscriber_disconnect),
		subscriber_get_err_msg:      (*[0]byte)(C.srm_host_subscriber_get_err_msg),

		msg_builder_alloc_segment: (*[0]byte)(C.srm_host_msg_builder_alloc_segment),
		msg_builder_get_err_msg:   (*[0]byte)(C.srm_host_msg_builder_get_err_msg),
	}
}

//export srm_host_get_type
func srm_host_get_type(core *C.srm_core) C.srm_str_view {
	return NewStrView(callbacksFor(core).GetType()).toC()
}

//export srm_host_get_err_msg
func srm_host_get_err_msg(core *C.srm_core, err C.int) C.srm_str_view {
	return NewStrView(callbacksFor(core).GetErrMsg(int(err))).toC()
}

//export srm_host_subscribe
func srm_host_subscribe(core *C.srm_core, params C.srm_subscribe_params, out **C.srm_subscriber) C.int {
	topic := strViewFromC(params.topic).String()
	ptr, code := callbacksFor(core).Subscribe(uint64(params.msg_type), topic, params.callback, unsafe.Pointer(params.arg))
	if code == 0 {
		*out = (*C.srm_subscriber)(ptr)
	}
	return C.int(code)
}

//export srm_host_advertise
func srm_host_advertise(core *C.srm_core, params C.srm_advertise_params, out **C.srm_publisher) C.int {
	topic := strViewFromC(params.topic).String()
	ptr, code := callbacksFor(core).Advertise(uint64(params.msg_type), topic)
	if code == 0 {
		*out = (*C.srm_publisher)(ptr)
	}
	return C.int(code)
}

//export srm_host_log_error
func srm_host_log_error(core *C.srm_core, msg C.srm_str_view) C.int {
	callbacksFor(core).LogError(strViewFromC(msg).String())
	return 0
}

//export srm_host_log_warn
func srm_host_log_warn(core *C.srm_core, msg C.srm_str_view) C.int {
	callbacksFor(core).LogWarn(strViewFromC(msg).String())
	return 0
}

//export srm_host_log_info
func srm_host_log_info(core *C.srm_core, msg C.srm_str_view) C.int {
	callbacksFor(core).LogInfo(strViewFromC(msg).String())
	return 0
}

//export srm_host_log_debug
func srm_host_log_debug(core *C.srm_core, msg C.srm_str_view) C.int {
	callbacksFor(core).LogDebug(strViewFromC(msg).String())
	return 0
}

//export srm_host_log_trace
func srm_host_log_trace(core *C.srm_core, msg C.srm_str_view) C.int {
	callbacksFor(core).LogTrace(strViewFromC(msg).String())
	return 0
}

//export srm_host_param_typei
func srm_host_param_typei(core *C.srm_core, key C.srm_str_view, outKind *C.int) C.int {
	kind, code := callbacksFor(core).ParamTypeInt(strViewFromC(key).String())
	*outKind = C.int(kind)
	return C.int(code)
}

//export srm_host_param_seti
func srm_host_param_seti(core *C.srm_core, key C.srm_str_view, value C.int64_t) C.int {
	return C.int(callbacksFor(core).ParamSetInt(strViewFromC(key).String(), int64(value)))
}

//export srm_host_param_geti
func srm_host_param_geti(core *C.srm_core, key C.srm_str_view, out *C.int64_t) C.int {
	v, code := callbacksFor(core).ParamGetInt(strViewFromC(key).String())
	*out = C.int64_t(v)
	return C.int(code)
}

//export srm_host_param_swapi
func srm_host_param_swapi(core *C.srm_core, key C.srm_str_view, value C.int64_t, outOld *C.int64_t) C.int {
	old, code := callbacksFor(core).ParamSwapInt(strViewFromC(key).String(), int64(value))
	*outOld = C.int64_t(old)
	return C.int(code)
}

//export srm_host_param_typeb
func srm_host_param_typeb(core *C.srm_core, key C.srm_str_view, outKind *C.int) C.int {
	kind, code := callbacksFor(core).ParamTypeBool(strViewFromC(key).String())
	*outKind = C.int(kind)
	return C.int(code)
}

//export srm_host_param_setb
func srm_host_param_setb(core *C.srm_core, key C.srm_str_view, value C.bool) C.int {
	return C.int(callbacksFor(core).ParamSetBool(strViewFromC(key).String(), bool(value)))
}

//export srm_host_param_getb
func srm_host_param_getb(core *C.srm_core, key C.srm_str_view, out *C.bool) C.int {
	v, code := callbacksFor(core).ParamGetBool(strViewFromC(key).String())
	*out = C.bool(v)
	return C.int(code)
}

//export srm_host_param_swapb
func srm_host_param_swapb(core *C.srm_core, key C.srm_str_view, value C.bool, outOld *C.bool) C.int {
	old, code := callbacksFor(core).ParamSwapBool(strViewFromC(key).String(), bool(value))
	*outOld = C.bool(old)
	return C.int(code)
}

//export srm_host_param_typer
func srm_host_param_typer(core *C.srm_core, key C.srm_str_view, outKind *C.int) C.int {
	kind, code := callbacksFor(core).ParamTypeReal(strViewFromC(key).String())
	*outKind = C.int(kind)
	return C.int(code)
}

//export srm_host_param_setr
func srm_host_param_setr(core *C.srm_core, key C.srm_str_view, value C.double) C.int {
	return C.int(callbacksFor(core).ParamSetReal(strViewFromC(key).String(), float64(value)))
}

//export srm_host_param_getr
func srm_host_param_getr(core *C.srm_core, key C.srm_str_view, out *C.double) C.int {
	v, code := callbacksFor(core).ParamGetReal(strViewFromC(key).String())
	*out = C.double(v)
	return C.int(code)
}

//export srm_host_param_swapr
func srm_host_param_swapr(core *C.srm_core, key C.srm_str_view, value C.double, outOld *C.double) C.int {
	old, code := callbacksFor(core).ParamSwapReal(strViewFromC(key).String(), float64(value))
	*outOld = C.double(old)
	return C.int(code)
}

//export srm_host_param_types
func srm_host_param_types(core *C.srm_core, key C.srm_str_view, outKind *C.int) C.int {
	kind, code := callbacksFor(core).ParamTypeString(strViewFromC(key).String())
	*outKind = C.int(kind)
	return C.int(code)
}

//export srm_host_param_sets
func srm_host_param_sets(core *C.srm_core, key C.srm_str_view, value C.srm_str_view) C.int {
	return C.int(callbacksFor(core).ParamSetString(strViewFromC(key).String(), strViewFromC(value).String()))
}

//export srm_host_param_gets
func srm_host_param_gets(core *C.srm_core, key C.srm_str_view, out *C.srm_str_view) C.int {
	v, code := callbacksFor(core).ParamGetString(strViewFromC(key).String())
	*out = NewStrView(v).toC()
	return C.int(code)
}

//export srm_host_param_swaps
func srm_host_param_swaps(core *C.srm_core, key C.srm_str_view, value C.srm_str_view, outOld *C.srm_str_view) C.int {
	old, code := callbacksFor(core).ParamSwapString(strViewFromC(key).String(), strViewFromC(value).String())
	*outOld = NewStrView(old).toC()
	return C.int(code)
}

//export srm_host_publisher_get_channel_name
func srm_host_publisher_get_channel_name(p *C.srm_publisher) C.srm_str_view {
	return NewStrView(publisherFor(p).ChannelName()).toC()
}

//export srm_host_publisher_get_channel_type
func srm_host_publisher_get_channel_type(p *C.srm_publisher) C.uint64_t {
	return C.uint64_t(publisherFor(p).ChannelType())
}

//export srm_host_publisher_publish
func srm_host_publisher_publish(p *C.srm_publisher, fn C.srm_publish_fn, arg unsafe.Pointer) C.int {
	return C.int(publisherFor(p).Publish(fn, arg))
}

//export srm_host_publisher_disconnect
func srm_host_publisher_disconnect(p *C.srm_publisher) C.int {
	return C.int(publisherFor(p).Disconnect())
}

//export srm_host_publisher_get_err_msg
func srm_host_publisher_get_err_msg(p *C.srm_publisher, err C.int) C.srm_str_view {
	return NewStrView(publisherFor(p).GetErrMsg(int(err))).toC()
}

//export srm_host_subscriber_get_channel_name
func srm_host_subscriber_get_channel_name(s *C.srm_subscriber) C.srm_str_view {
	return NewStrView(subscriberFor(s).ChannelName()).toC()
}

//export srm_host_subscriber_get_channel_type
func srm_host_subscriber_get_channel_type(s *C.srm_subscriber) C.uint64_t {
	return C.uint64_t(subscriberFor(s).ChannelType())
}

//export srm_host_subscriber_disconnect
func srm_host_subscriber_disconnect(s *C.srm_subscriber) C.int {
	return C.int(subscriberFor(s).Disconnect())
}

//export srm_host_subscriber_get_err_msg
func srm_host_subscriber_get_err_msg(s *C.srm_subscriber, err C.int) C.srm_str_view {
	return NewStrView(subscriberFor(s).GetErrMsg(int(err))).toC()
}

//export srm_host_msg_builder_alloc_segment
func srm_host_msg_builder_alloc_segment(b *C.srm_msg_builder, minWords C.size_t, outData **C.srm_word, outWordCount *C.size_t) C.int {
	data, words, code := msgBuilderFor(b).AllocSegment(int(minWords))
	if code == 0 {
		*outData = (*C.srm_word)(data)
		*outWordCount = C.size_t(words)
	}
	return C.int(code)
}

//export srm_host_msg_builder_get_err_msg
func srm_host_msg_builder_get_err_msg(b *C.srm_msg_builder, err C.int) C.srm_str_view {
	return NewStrView(msgBuilderFor(b).GetErrMsg(int(err))).toC()
}
