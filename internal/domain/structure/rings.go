package structure

import (
	"sort"
	"strings"
)

// MaxRingSize is the largest ring the perception searches for.
const MaxRingSize = 8

// Ring is a chordless cycle of bonded atoms.  Atoms are sorted by id; the
// fingerprint is derived from the cyclic element order.
type Ring struct {
	Atoms       []*Atom
	Fingerprint string
}

// RingSet holds every perceived ring of a structure indexed by fingerprint.
type RingSet struct {
	all           []*Ring
	byFingerprint map[string][]*Ring
}

// All returns the rings in discovery order.
func (rs *RingSet) All() []*Ring { return rs.all }

// Len returns the number of rings.
func (rs *RingSet) Len() int { return len(rs.all) }

// ByFingerprint returns the rings matching fp (case-insensitive).
func (rs *RingSet) ByFingerprint(fp string) []*Ring {
	return rs.byFingerprint[strings.ToUpper(fp)]
}

func newRingSet(rings []*Ring) *RingSet {
	rs := &RingSet{all: rings, byFingerprint: make(map[string][]*Ring)}
	for _, r := range rings {
		key := strings.ToUpper(r.Fingerprint)
		rs.byFingerprint[key] = append(rs.byFingerprint[key], r)
	}
	return rs
}

// perceiveRings enumerates chordless cycles of 3..MaxRingSize atoms.  Each
// cycle is rooted at its smallest atom id and walked in the direction of the
// smaller second atom, so every ring is found exactly once.
func perceiveRings(s *Structure) *RingSet {
	var rings []*Ring
	path := make([]*Atom, 0, MaxRingSize)

	var extend func()
	extend = func() {
		root, last := path[0], path[len(path)-1]
		for _, w := range s.Neighbours(last) {
			if w.ID <= root.ID || onPath(path, w) || hasChord(s, path, w) {
				continue
			}
			if s.AreBonded(w, root) {
				if len(path) >= 2 && path[1].ID < w.ID {
					cycle := append(append([]*Atom(nil), path...), w)
					rings = append(rings, newRing(cycle))
				}
				continue
			}
			if len(path)+1 < MaxRingSize {
				path = append(path, w)
				extend()
				path = path[:len(path)-1]
			}
		}
	}

	for _, root := range s.Atoms {
		path = append(path[:0], root)
		for _, n := range s.Neighbours(root) {
			if n.ID <= root.ID {
				continue
			}
			path = append(path[:1], n)
			extend()
		}
	}
	return newRingSet(rings)
}

func onPath(path []*Atom, a *Atom) bool {
	for _, p := range path {
		if p.ID == a.ID {
			return true
		}
	}
	return false
}

// hasChord reports whether w is bonded to any interior path atom other than
// the last one.
func hasChord(s *Structure, path []*Atom, w *Atom) bool {
	for _, p := range path[1 : len(path)-1] {
		if s.AreBonded(p, w) {
			return true
		}
	}
	return false
}

func newRing(cycle []*Atom) *Ring {
	elements := make([]string, len(cycle))
	for i, a := range cycle {
		elements[i] = a.Element
	}
	atoms := append([]*Atom(nil), cycle...)
	sort.Slice(atoms, func(i, j int) bool { return atoms[i].ID < atoms[j].ID })
	return &Ring{Atoms: atoms, Fingerprint: Fingerprint(elements)}
}

// Fingerprint returns the canonical form of a cyclic element sequence: the
// lexicographically smallest rotation of either the sequence or its
// reverse, concatenated.
func Fingerprint(elements []string) string {
	n := len(elements)
	if n == 0 {
		return ""
	}
	reversed := make([]string, n)
	for i, e := range elements {
		reversed[n-1-i] = e
	}
	rn, rr := minimalRotation(elements), minimalRotation(reversed)

	useReversed := true
	for i := 0; i < n; i++ {
		c := strings.Compare(elements[(i+rn)%n], reversed[(i+rr)%n])
		if c < 0 {
			useReversed = false
			break
		}
		if c > 0 {
			break
		}
	}
	src, rot := reversed, rr
	if !useReversed {
		src, rot = elements, rn
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(src[(i+rot)%n])
	}
	return sb.String()
}

// minimalRotation returns the start index of the lexicographically least
// rotation of xs.
func minimalRotation(xs []string) int {
	n := len(xs)
	best := 0
	for cand := 1; cand < n; cand++ {
		for k := 0; k < n; k++ {
			c := strings.Compare(xs[(cand+k)%n], xs[(best+k)%n])
			if c < 0 {
				best = cand
				break
			}
			if c > 0 {
				break
			}
		}
	}
	return best
}
