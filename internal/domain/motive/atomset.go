// Package motive implements the value types the query engine operates on:
// persistent atom sets, motives, the per-structure motive context and the
// proximity tree used by spatial joins.
package motive

import (
	"github.com/benbjohnson/immutable"
	"github.com/turtacn/motivequery/internal/domain/structure"
)

var idComparer = immutable.NewComparer[int](0)

// AtomSet is a persistent set of atoms keyed by atom id.  Unions share
// structure with their inputs.  The hash is independent of insertion order
// and is maintained incrementally, so two sets with the same members always
// hash alike.
type AtomSet struct {
	m    *immutable.SortedMap[int, *structure.Atom]
	hash uint64
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func atomHash(id int) uint64 { return mix(uint64(id)) }

// NewAtomSet builds a set from atoms.  Duplicates are ignored.
func NewAtomSet(atoms ...*structure.Atom) AtomSet {
	if len(atoms) == 0 {
		return AtomSet{}
	}
	b := immutable.NewSortedMapBuilder[int, *structure.Atom](idComparer)
	var h uint64
	for _, a := range atoms {
		if _, dup := b.Get(a.ID); dup {
			continue
		}
		b.Set(a.ID, a)
		h += atomHash(a.ID)
	}
	return AtomSet{m: b.Map(), hash: h}
}

// Len returns the number of atoms.
func (s AtomSet) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// IsEmpty reports whether the set has no atoms.
func (s AtomSet) IsEmpty() bool { return s.Len() == 0 }

// Hash returns the order-independent hash of the member ids.
func (s AtomSet) Hash() uint64 { return s.hash }

// Has reports whether the atom with the given id is a member.
func (s AtomSet) Has(id int) bool {
	if s.m == nil {
		return false
	}
	_, ok := s.m.Get(id)
	return ok
}

// Contains reports whether a is a member.
func (s AtomSet) Contains(a *structure.Atom) bool { return s.Has(a.ID) }

// Add returns a set that also contains a.
func (s AtomSet) Add(a *structure.Atom) AtomSet {
	if s.Has(a.ID) {
		return s
	}
	m := s.m
	if m == nil {
		m = immutable.NewSortedMap[int, *structure.Atom](idComparer)
	}
	return AtomSet{m: m.Set(a.ID, a), hash: s.hash + atomHash(a.ID)}
}

// Union returns the set of atoms in s or o.  The smaller set is inserted
// into the larger one.
func (s AtomSet) Union(o AtomSet) AtomSet {
	if s.Len() < o.Len() {
		s, o = o, s
	}
	if o.Len() == 0 {
		return s
	}
	out := s
	o.Each(func(a *structure.Atom) bool {
		out = out.Add(a)
		return true
	})
	return out
}

// Intersects reports whether s and o share at least one atom.
func (s AtomSet) Intersects(o AtomSet) bool {
	if s.Len() > o.Len() {
		s, o = o, s
	}
	found := false
	s.Each(func(a *structure.Atom) bool {
		if o.Has(a.ID) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Equal reports whether s and o have the same members.
func (s AtomSet) Equal(o AtomSet) bool {
	if s.hash != o.hash || s.Len() != o.Len() {
		return false
	}
	if s.Len() == 0 || s.m == o.m {
		return true
	}
	si, oi := s.m.Iterator(), o.m.Iterator()
	for !si.Done() {
		k1, _, _ := si.Next()
		k2, _, _ := oi.Next()
		if k1 != k2 {
			return false
		}
	}
	return true
}

// Each calls fn for every atom in ascending id order until fn returns false.
func (s AtomSet) Each(fn func(a *structure.Atom) bool) {
	if s.m == nil {
		return
	}
	it := s.m.Iterator()
	for !it.Done() {
		_, a, _ := it.Next()
		if !fn(a) {
			return
		}
	}
}

// Atoms returns the members ordered by id.
func (s AtomSet) Atoms() []*structure.Atom {
	out := make([]*structure.Atom, 0, s.Len())
	s.Each(func(a *structure.Atom) bool {
		out = append(out, a)
		return true
	})
	return out
}

// IDs returns the member ids in ascending order.
func (s AtomSet) IDs() []int {
	out := make([]int, 0, s.Len())
	s.Each(func(a *structure.Atom) bool {
		out = append(out, a.ID)
		return true
	})
	return out
}

// Min returns the atom with the smallest id.
func (s AtomSet) Min() (*structure.Atom, bool) {
	if s.Len() == 0 {
		return nil, false
	}
	it := s.m.Iterator()
	_, a, ok := it.Next()
	return a, ok
}
