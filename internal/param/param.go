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

// Package param implements the shared, dotted-key Parameter Store
// (spec.md §4.5). It has no original_source counterpart - the store is
// an addition this port's spec introduces - so its concurrency shape is
// styled on the RWMutex-guarded-map idiom shown throughout the example
// pack (e.g. streamspace's internal/plugins/event_bus.go's subscribers
// map) rather than ported from a specific Rust file.
package param

import (
	"fmt"
	"sync"

	"github.com/Gregory-Meyer/srm/internal/abi"
	"github.com/Gregory-Meyer/srm/internal/errs"
)

// Kind identifies which variant of Value is populated. A key's Kind is
// fixed by its first assignment and cannot change afterward.
type Kind = abi.ParamKind

const (
	KindNone   = abi.ParamKindNone
	KindInt    = abi.ParamKindInt
	KindBool   = abi.ParamKindBool
	KindReal   = abi.ParamKindReal
	KindString = abi.ParamKindString
)

// cell holds one key's value behind its own mutex. Store's map mutex and
// a cell's own mutex nest in one direction only (map -> cell, never
// reversed), per spec.md §5's lock-nesting policy.
type cell struct {
	mu      sync.Mutex
	kind    Kind
	intV    int64
	boolV   bool
	realV   float64
	stringV string
}

// Store is the shared, dotted-key parameter table. The zero value is not
// usable; use New.
type Store struct {
	mu    sync.RWMutex
	cells map[string]*cell
}

// New constructs an empty Store.
func New() *Store {
	return &Store{cells: make(map[string]*cell)}
}

func (s *Store) cellFor(key string, create bool) *cell {
	s.mu.RLock()
	c, ok := s.cells[key]
	s.mu.RUnlock()
	if ok {
		return c
	}
	if !create {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cells[key]; ok {
		return c
	}
	c = &cell{}
	s.cells[key] = c
	return c
}

// TypeOf reports the Kind of key, or KindNone if it has never been set.
func (s *Store) TypeOf(key string) Kind {
	c := s.cellFor(key, false)
	if c == nil {
		return KindNone
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kind
}

func typeMismatch(key string, got, want Kind) error {
	return fmt.Errorf("%w: key %q has kind %d, not %d", errs.ErrParamTypeDiffers, key, got, want)
}

// SetInt assigns key to an integer value, fixing its kind on first use.
// Returns ParamTypeDiffers if key already holds a different kind.
func (s *Store) SetInt(key string, v int64) error {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindInt {
		return typeMismatch(key, c.kind, KindInt)
	}
	c.kind = KindInt
	c.intV = v
	return nil
}

// GetInt returns key's current integer value. Returns NoSuchParam if key
// was never set, ParamTypeDiffers if it holds a different kind.
func (s *Store) GetInt(key string) (int64, error) {
	c := s.cellFor(key, false)
	if c == nil {
		return 0, fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind == KindNone {
		return 0, fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	if c.kind != KindInt {
		return 0, typeMismatch(key, c.kind, KindInt)
	}
	return c.intV, nil
}

// SwapInt atomically assigns key to v and returns its previous value.
func (s *Store) SwapInt(key string, v int64) (int64, error) {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindInt {
		return 0, typeMismatch(key, c.kind, KindInt)
	}
	old := c.intV
	c.kind = KindInt
	c.intV = v
	return old, nil
}

// SetBool assigns key to a boolean value, fixing its kind on first use.
func (s *Store) SetBool(key string, v bool) error {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindBool {
		return typeMismatch(key, c.kind, KindBool)
	}
	c.kind = KindBool
	c.boolV = v
	return nil
}

// GetBool returns key's current boolean value.
func (s *Store) GetBool(key string) (bool, error) {
	c := s.cellFor(key, false)
	if c == nil {
		return false, fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind == KindNone {
		return false, fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	if c.kind != KindBool {
		return false, typeMismatch(key, c.kind, KindBool)
	}
	return c.boolV, nil
}

// SwapBool atomically assigns key to v and returns its previous value.
func (s *Store) SwapBool(key string, v bool) (bool, error) {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindBool {
		return false, typeMismatch(key, c.kind, KindBool)
	}
	old := c.boolV
	c.kind = KindBool
	c.boolV = v
	return old, nil
}

// SetReal assigns key to a floating-point value, fixing its kind on
// first use.
func (s *Store) SetReal(key string, v float64) error {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindReal {
		return typeMismatch(key, c.kind, KindReal)
	}
	c.kind = KindReal
	c.realV = v
	return nil
}

// GetReal returns key's current floating-point value.
func (s *Store) GetReal(key string) (float64, error) {
	c := s.cellFor(key, false)
	if c == nil {
		return 0, fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind == KindNone {
		return 0, fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	if c.kind != KindReal {
		return 0, typeMismatch(key, c.kind, KindReal)
	}
	return c.realV, nil
}

// SwapReal atomically assigns key to v and returns its previous value.
func (s *Store) SwapReal(key string, v float64) (float64, error) {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindReal {
		return 0, typeMismatch(key, c.kind, KindReal)
	}
	old := c.realV
	c.kind = KindReal
	c.realV = v
	return old, nil
}

// SetString assigns key to a string value, fixing its kind on first use.
func (s *Store) SetString(key string, v string) error {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindString {
		return typeMismatch(key, c.kind, KindString)
	}
	c.kind = KindString
	c.stringV = v
	return nil
}

// GetString returns key's current string value.
func (s *Store) GetString(key string) (string, error) {
	c := s.cellFor(key, false)
	if c == nil {
		return "", fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind == KindNone {
		return "", fmt.Errorf("%w: %q", errs.ErrNoSuchParam, key)
	}
	if c.kind != KindString {
		return "", typeMismatch(key, c.kind, KindString)
	}
	return c.stringV, nil
}

// SwapString atomically assigns key to v and returns its previous value.
func (s *Store) SwapString(key string, v string) (string, error) {
	c := s.cellFor(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kind != KindNone && c.kind != KindString {
		return "", typeMismatch(key, c.kind, KindString)
	}
	old := c.stringV
	c.kind = KindString
	c.stringV = v
	return old, nil
}
