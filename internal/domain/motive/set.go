package motive

// Set is a hash set of motives compared by membership.
type Set struct {
	buckets map[uint64][]*Motive
	n       int
}

// NewSet returns an empty set.
func NewSet() *Set { return &Set{buckets: make(map[uint64][]*Motive)} }

// Add inserts m and reports whether it was not present.
func (s *Set) Add(m *Motive) bool {
	h := m.Hash()
	for _, o := range s.buckets[h] {
		if o.Equal(m) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], m)
	s.n++
	return true
}

// Has reports whether a motive equal to m is present.
func (s *Set) Has(m *Motive) bool {
	for _, o := range s.buckets[m.Hash()] {
		if o.Equal(m) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct motives.
func (s *Set) Len() int { return s.n }

// Unique filters a motive stream down to distinct motives, keeping first
// occurrences.  With named duplicates enabled a repeated motive is let
// through once more when it carries a name not yet seen.
type Unique struct {
	seen       *Set
	names      map[int]struct{}
	namedDupes bool
}

// NewUnique returns a filter; namedDuplicates selects the name-preserving
// mode.
func NewUnique(namedDuplicates bool) *Unique {
	return &Unique{seen: NewSet(), names: make(map[int]struct{}), namedDupes: namedDuplicates}
}

// Accept reports whether m should be emitted.
func (u *Unique) Accept(m *Motive) bool {
	if u.seen.Add(m) {
		if name, ok := m.Name(); ok && u.namedDupes {
			u.names[name] = struct{}{}
		}
		return true
	}
	if !u.namedDupes {
		return false
	}
	name, ok := m.Name()
	if !ok {
		return false
	}
	if _, dup := u.names[name]; dup {
		return false
	}
	u.names[name] = struct{}{}
	return true
}

// Distinct returns the first occurrence of every distinct motive in ms.
func Distinct(ms []*Motive) []*Motive {
	u := NewUnique(false)
	out := ms[:0:0]
	for _, m := range ms {
		if u.Accept(m) {
			out = append(out, m)
		}
	}
	return out
}
