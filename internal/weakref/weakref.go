// Package weakref provides a minimal weak-reference primitive.
//
// Go has no analogue of Rust's Arc/Weak: the garbage collector will happily
// keep an object alive for as long as anything, anywhere, holds a pointer
// to it. The cycle-breaking ownership graph in spec.md §3 (Controller <-
// Facade, Facade <- Node Handle, Registry <- Channel) needs a reference
// that can report "my target is gone" without the target ever having a
// finalizer race. Weak models that with an explicit liveness flag set by
// the strong side's own release path, rather than by relying on GC
// finalization timing. Weak still holds an ordinary Go pointer, so the
// garbage collector keeps the target reachable while a Weak to it exists;
// only Upgrade reports it gone.
package weakref

import "sync/atomic"

// Weak is a non-owning reference to a *T whose strong owner may release it
// at any time. The zero value is not usable; construct with New.
type Weak[T any] struct {
	ptr   atomic.Pointer[T]
	alive atomic.Bool
}

// New returns a Weak pointing at target, initially alive.
func New[T any](target *T) *Weak[T] {
	w := &Weak[T]{}
	w.ptr.Store(target)
	w.alive.Store(true)
	return w
}

// Upgrade returns the target and true if it is still alive, or (nil,
// false) if the strong owner has released it.
func (w *Weak[T]) Upgrade() (*T, bool) {
	if !w.alive.Load() {
		return nil, false
	}
	return w.ptr.Load(), true
}

// MustUpgrade upgrades or panics. Use at call sites where spec.md asserts
// the weak reference must still be live and treats failure as a lifecycle
// bug rather than a recoverable error (e.g. Core Facade -> Controller).
func (w *Weak[T]) MustUpgrade() *T {
	v, ok := w.Upgrade()
	if !ok {
		panic("weakref: upgrade of a released reference")
	}
	return v
}

// Release marks the reference dead. Idempotent. Called by the strong
// owner's teardown path, never by the weak side.
func (w *Weak[T]) Release() {
	w.alive.Store(false)
}
