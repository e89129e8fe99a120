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
	"github.com/Gregory-Meyer/srm/internal/errs"
)

// segmentWordAlign is the segment size granularity spec.md §6 describes
// (sized to a multiple of 16 words). The true cache-line-aligned
// allocator spec.md §1 calls out as out of scope would own the actual
// 128-byte alignment; this stand-in only guarantees the word-count
// rounding, which is all the wire format itself depends on.
const segmentWordAlign = 16

func roundUpWords(n int) int {
	if n <= 0 {
		n = 1
	}
	if rem := n % segmentWordAlign; rem != 0 {
		n += segmentWordAlign - rem
	}
	return n
}

// msgBuilder accumulates the segments a plugin allocates while filling in
// one outgoing message (original_source/src/ffi/msg.rs's MsgBuilder). One
// is created per Publish call and discarded once that call returns.
type msgBuilder struct {
	segments [][]uint64
}

func (b *msgBuilder) AllocSegment(minWords int) (unsafe.Pointer, int, int) {
	n := roundUpWords(minWords)
	words := make([]uint64, n)
	b.segments = append(b.segments, words)
	return unsafe.Pointer(&words[0]), n, errs.CodeOK
}

func (b *msgBuilder) GetErrMsg(err int) string { return errs.MessageFor(err) }

func (b *msgBuilder) view(msgType uint64) abi.MsgView {
	segs := make([]abi.MsgSegmentView, len(b.segments))
	for i, words := range b.segments {
		segs[i] = abi.MsgSegmentView{Data: unsafe.Pointer(&words[0]), Words: len(words)}
	}
	return abi.MsgView{Segments: segs, MsgType: msgType}
}
