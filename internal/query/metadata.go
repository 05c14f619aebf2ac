package query

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

const dateLayout = "2006-01-02"

var metadataValues = map[string]func(*structure.Metadata) any{
	"title":            func(m *structure.Metadata) any { return emptyAsNil(m.Title) },
	"experimentmethod": func(m *structure.Metadata) any { return emptyAsNil(m.ExperimentMethod) },
	"polymertype":      func(m *structure.Metadata) any { return emptyAsNil(m.PolymerType) },
	"proteinstoichiometry": func(m *structure.Metadata) any {
		return emptyAsNil(m.ProteinStoichiometry)
	},
	"weight": func(m *structure.Metadata) any {
		if m.WeightKDa == 0 {
			return nil
		}
		return m.WeightKDa
	},
	"resolution": func(m *structure.Metadata) any {
		if m.Resolution == nil {
			return nil
		}
		return *m.Resolution
	},
	"releasedate": func(m *structure.Metadata) any {
		if m.Released == nil {
			return nil
		}
		return m.Released.Format(dateLayout)
	},
	"latestrevisiondate": func(m *structure.Metadata) any {
		if m.LatestRevision == nil {
			return nil
		}
		return m.LatestRevision.Format(dateLayout)
	},
}

var metadataLists = map[string]func(*structure.Metadata) []string{
	"authors":             func(m *structure.Metadata) []string { return m.Authors },
	"keywords":            func(m *structure.Metadata) []string { return m.Keywords },
	"entitysources":       func(m *structure.Metadata) []string { return m.EntitySources },
	"ecnumbers":           func(m *structure.Metadata) []string { return m.ECNumbers },
	"originorganisms":     func(m *structure.Metadata) []string { return m.OriginOrganisms },
	"originorganismids":   func(m *structure.Metadata) []string { return m.OriginOrganismIDs },
	"originorganismgenus": func(m *structure.Metadata) []string { return m.OriginOrganismGenus },
	"hostorganisms":       func(m *structure.Metadata) []string { return m.HostOrganisms },
	"hostorganismids":     func(m *structure.Metadata) []string { return m.HostOrganismIDs },
	"hostorganismgenus":   func(m *structure.Metadata) []string { return m.HostOrganismGenus },
}

func emptyAsNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// MetadataNames returns the properties Metadata can read.
func MetadataNames() []string {
	out := make([]string, 0, len(metadataValues))
	for k := range metadataValues {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MetadataListNames returns the list properties HasAll and HasAny accept.
func MetadataListNames() []string {
	out := make([]string, 0, len(metadataLists))
	for k := range metadataLists {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Metadata reads a header property of the structure a motive belongs to.
// Missing metadata yields nothing.
type Metadata struct {
	m    Scalar
	name string
	get  func(*structure.Metadata) any
}

// NewMetadata builds Metadata[m, "name"].
func NewMetadata(m Scalar, name string) (*Metadata, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	get, ok := metadataValues[key]
	if !ok {
		if list, isList := metadataLists[key]; isList {
			get = func(md *structure.Metadata) any { return strings.Join(list(md), "; ") }
		} else {
			return nil, errors.InvalidConfig("'%s' is not a known metadata property.", name)
		}
	}
	return &Metadata{m: m, name: key, get: get}, nil
}

func (q *Metadata) Signature() string {
	return "Metadata[" + q.m.Signature() + ", " + quote(q.name) + "]"
}
func (q *Metadata) Children() []Node { return []Node{q.m} }

func (q *Metadata) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	md := m.Context().Structure.Metadata
	if md == nil {
		return nil, nil
	}
	return q.get(md), nil
}

// HasMetadata tests a list property of the structure header for whole-word
// occurrences of every (HasAll) or any (HasAny) of the given values.
// Matching ignores case.
type HasMetadata struct {
	matchAny bool
	prop     string
	m        Scalar
	values   []string
	get      func(*structure.Metadata) []string
}

// NewHasMetadata builds HasAll<Prop>[m, "v", ...] or HasAny<Prop>[m, "v", ...].
// prop is one of MetadataListNames, matched ignoring case.
func NewHasMetadata(prop string, matchAny bool, m Scalar, values ...string) (*HasMetadata, error) {
	get, ok := metadataLists[strings.ToLower(strings.TrimSpace(prop))]
	if !ok {
		return nil, errors.InvalidConfig("'%s' is not a known metadata list property.", prop)
	}
	return &HasMetadata{matchAny: matchAny, prop: strings.TrimSpace(prop), m: m, values: values, get: get}, nil
}

func (q *HasMetadata) Signature() string {
	mode := "All"
	if q.matchAny {
		mode = "Any"
	}
	vs := make([]string, len(q.values))
	for i, v := range q.values {
		vs[i] = quote(v)
	}
	args := append([]string{q.m.Signature()}, vs...)
	return "Has" + mode + q.prop + "[" + strings.Join(args, ", ") + "]"
}
func (q *HasMetadata) Children() []Node { return []Node{q.m} }

func (q *HasMetadata) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	md := m.Context().Structure.Metadata
	if md == nil {
		return false, nil
	}
	props := q.get(md)
	for _, v := range q.values {
		found := false
		for _, p := range props {
			if containsWord(p, v) {
				found = true
				break
			}
		}
		if found && q.matchAny {
			return true, nil
		}
		if !found && !q.matchAny {
			return false, nil
		}
	}
	return !q.matchAny, nil
}

// containsWord reports whether word occurs in s, ignoring case, with no
// letter or digit directly before or after it.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	ls, lw := strings.ToLower(s), strings.ToLower(word)
	for from := 0; from <= len(ls)-len(lw); {
		i := strings.Index(ls[from:], lw)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(lw)
		if boundaryBefore(ls, start) && boundaryAfter(ls, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(ls[start:])
		from = start + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
