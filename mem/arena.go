// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package mem implements an arena for transient allocations whose lifetimes
// end together, such as the scratch state of a single render-pass build.
package mem

import (
	"reflect"

	"golang.org/x/exp/constraints"
)

// Arena allocates values in per-type slabs. All values allocated from an
// arena are invalidated together by Reset; individual values are never
// freed. The zero Arena is not usable, use NewArena.
type Arena struct {
	pools map[reflect.Type]pool
}

// pool is implemented by slabPool[T] for each T allocated from the arena.
type pool interface {
	reset()
}

func NewArena() *Arena {
	return &Arena{pools: make(map[reflect.Type]pool)}
}

const slabSize = 256

type slabPool[T any] struct {
	slabs [][]T
	// off indexes into the last slab.
	off int
}

func (p *slabPool[T]) reset() {
	var zero T
	for _, s := range p.slabs {
		for i := range s {
			s[i] = zero
		}
	}
	if len(p.slabs) > 0 {
		p.slabs = p.slabs[:1]
	}
	p.off = 0
}

func getPool[T any](a *Arena) *slabPool[T] {
	key := reflect.TypeFor[T]()
	if p, ok := a.pools[key]; ok {
		return p.(*slabPool[T])
	}
	p := &slabPool[T]{}
	a.pools[key] = p
	return p
}

// New allocates a zero value of type T from the arena.
func New[T any](a *Arena) *T {
	p := getPool[T](a)
	if len(p.slabs) == 0 || p.off == len(p.slabs[len(p.slabs)-1]) {
		p.slabs = append(p.slabs, make([]T, slabSize))
		p.off = 0
	}
	s := p.slabs[len(p.slabs)-1]
	v := &s[p.off]
	p.off++
	return v
}

// Make allocates a copy of v from the arena.
func Make[T any](a *Arena, v T) *T {
	ptr := New[T](a)
	*ptr = v
	return ptr
}

// NewSlice allocates a slice with the given length and capacity. Slices with
// small capacities share slabs; larger ones get dedicated backing arrays that
// still follow the arena's lifetime.
func NewSlice[T ~[]E, E any](a *Arena, length, capacity int) T {
	if capacity == 0 {
		return nil
	}
	p := getPool[E](a)
	if capacity > slabSize/4 {
		return make(T, length, capacity)
	}
	if len(p.slabs) == 0 || p.off+capacity > len(p.slabs[len(p.slabs)-1]) {
		p.slabs = append(p.slabs, make([]E, slabSize))
		p.off = 0
	}
	s := p.slabs[len(p.slabs)-1]
	out := s[p.off : p.off+length : p.off+capacity]
	p.off += capacity
	return T(out)
}

// MakeSlice allocates a copy of values from the arena.
func MakeSlice[T ~[]E, E any](a *Arena, values T) T {
	out := NewSlice[T](a, len(values), len(values))
	copy(out, values)
	return out
}

// Varargs allocates a copy of its arguments from the arena.
func Varargs[E any](a *Arena, values ...E) []E {
	return MakeSlice(a, values)
}

// Append appends data to s, growing from the arena when capacity runs out.
func Append[T ~[]E, E any](a *Arena, s T, data ...E) T {
	if len(s)+len(data) > cap(s) {
		s = growSlice(a, s, len(s)+len(data))
	}
	return append(s, data...)
}

// Grow grows s's capacity to hold at least n more elements.
func Grow[T ~[]E, E any](a *Arena, s T, n int) T {
	if len(s)+n > cap(s) {
		s = growSlice(a, s, len(s)+n)
	}
	return s
}

func growSlice[T ~[]E, E any](a *Arena, s T, need int) T {
	newCap := 2 * cap(s)
	if newCap < need {
		newCap = need
	}
	if newCap < 8 {
		newCap = 8
	}
	out := NewSlice[T](a, len(s), newCap)
	copy(out, s)
	return out
}

// AlignUp rounds v up to the next multiple of to. to has to be a power of
// two.
func AlignUp[T constraints.Integer](v, to T) T {
	return (v + to - 1) &^ (to - 1)
}

// Reset invalidates all values allocated from the arena and recycles their
// memory. Values are zeroed so that pointers they held can be collected.
func (a *Arena) Reset() {
	for _, p := range a.pools {
		p.reset()
	}
}
