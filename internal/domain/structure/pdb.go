package structure

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/pkg/errors"
)

// PDBOptions tunes ReadPDB.
type PDBOptions struct {
	// InferBonds adds distance-based covalent bonds to the CONECT records.
	InferBonds bool
}

// DefaultPDBOptions infers bonds, since most PDB entries carry CONECT
// records for ligands only.
var DefaultPDBOptions = PDBOptions{InferBonds: true}

// column returns the 1-based inclusive column range [from, to] of line,
// clipped to its length.
func column(line string, from, to int) string {
	if from > len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from-1 : to]
}

func trimmed(line string, from, to int) string { return strings.TrimSpace(column(line, from, to)) }

func insertionAt(line string, col int) rune {
	c := column(line, col, col)
	if c == "" || c == " " {
		return ' '
	}
	return rune(c[0])
}

type pdbReader struct {
	id       string
	lineNo   int
	builder  *Builder
	meta     Metadata
	hasMeta  bool
	compnd   strings.Builder
	source   strings.Builder
	title    strings.Builder
	keywords strings.Builder
	authors  strings.Builder
	revDates []time.Time
}

// ReadPDB parses the first model of a PDB file.  When id is empty the
// HEADER id code is used.
func ReadPDB(r io.Reader, id string, opts PDBOptions) (*Structure, error) {
	pr := &pdbReader{id: id}
	pr.builder = NewBuilder(id).InferBonds(opts.InferBonds)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		pr.lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		record := strings.TrimSpace(column(line, 1, 6))
		var err error
		switch record {
		case "ATOM", "HETATM":
			err = pr.atom(line, record == "HETATM")
		case "CONECT":
			err = pr.conect(line)
		case "HELIX":
			pr.helix(line)
		case "SHEET":
			pr.sheet(line)
		case "MODRES":
			pr.modres(line)
		case "HEADER":
			pr.header(line)
		case "TITLE":
			appendText(&pr.title, column(line, 11, 80))
		case "KEYWDS":
			appendText(&pr.keywords, column(line, 11, 79))
		case "AUTHOR":
			appendText(&pr.authors, column(line, 11, 79))
		case "EXPDTA":
			pr.hasMeta = true
			pr.meta.ExperimentMethod = strings.ToUpper(trimmed(line, 11, 79))
		case "REMARK":
			pr.remark(line)
		case "REVDAT":
			pr.revdat(line)
		case "COMPND":
			appendText(&pr.compnd, column(line, 11, 80))
		case "SOURCE":
			appendText(&pr.source, column(line, 11, 79))
		case "ENDMDL", "END":
			return pr.finish()
		}
		if err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStructureParse, "structure %q: read failed", pr.id)
	}
	return pr.finish()
}

func (pr *pdbReader) parseErr(format string, args ...interface{}) error {
	args = append([]interface{}{pr.id, pr.lineNo}, args...)
	return errors.Newf(errors.ErrCodeStructureParse, "structure %q line %d: "+format, args...)
}

func (pr *pdbReader) atom(line string, het bool) error {
	alt := column(line, 17, 17)
	if alt != "" && alt != " " && alt != "A" && alt != "1" {
		return nil
	}
	serial, err := strconv.Atoi(trimmed(line, 7, 11))
	if err != nil {
		return pr.parseErr("invalid atom serial %q", column(line, 7, 11))
	}
	var xyz [3]float64
	for i, from := range []int{31, 39, 47} {
		v, err := strconv.ParseFloat(trimmed(line, from, from+7), 64)
		if err != nil {
			return pr.parseErr("invalid coordinate %q", column(line, from, from+7))
		}
		xyz[i] = v
	}
	resSeq, err := strconv.Atoi(trimmed(line, 23, 26))
	if err != nil {
		return pr.parseErr("invalid residue number %q", column(line, 23, 26))
	}
	name := trimmed(line, 13, 16)
	element := trimmed(line, 77, 78)
	if element == "" {
		element = elementFromName(column(line, 13, 16))
	}
	pr.builder.AddAtom(Atom{
		ID:            serial,
		Element:       element,
		Name:          name,
		Position:      spatial.V(xyz[0], xyz[1], xyz[2]),
		ResidueName:   trimmed(line, 18, 20),
		ResidueNumber: resSeq,
		Chain:         trimmed(line, 22, 22),
		InsertionCode: insertionAt(line, 27),
		HetAtom:       het,
	})
	return nil
}

// elementFromName guesses the element from a raw 4-column atom name.
func elementFromName(raw string) string {
	s := strings.TrimLeftFunc(raw, func(r rune) bool { return unicode.IsDigit(r) || r == ' ' })
	if s == "" {
		return ""
	}
	if len(raw) == 4 && raw[0] != ' ' && !unicode.IsDigit(rune(raw[0])) && len(s) >= 2 && unicode.IsLetter(rune(s[1])) {
		return s[:2]
	}
	return s[:1]
}

func (pr *pdbReader) conect(line string) error {
	from, err := strconv.Atoi(trimmed(line, 7, 11))
	if err != nil {
		return pr.parseErr("invalid CONECT serial %q", column(line, 7, 11))
	}
	for _, c := range []int{12, 17, 22, 27} {
		field := trimmed(line, c, c+4)
		if field == "" {
			continue
		}
		to, err := strconv.Atoi(field)
		if err != nil {
			return pr.parseErr("invalid CONECT partner %q", field)
		}
		if to != from {
			pr.builder.AddBond(from, to)
		}
	}
	return nil
}

func (pr *pdbReader) residueAt(line string, chainCol, seqFrom, seqTo, insCol int) (ResidueIdentifier, bool) {
	n, err := strconv.Atoi(trimmed(line, seqFrom, seqTo))
	if err != nil {
		return ResidueIdentifier{}, false
	}
	return NewResidueIdentifier(n, trimmed(line, chainCol, chainCol), insertionAt(line, insCol)), true
}

func (pr *pdbReader) helix(line string) {
	start, ok1 := pr.residueAt(line, 20, 22, 25, 26)
	end, ok2 := pr.residueAt(line, 32, 34, 37, 38)
	if ok1 && ok2 {
		pr.builder.AddHelix(start, end)
	}
}

func (pr *pdbReader) sheet(line string) {
	start, ok1 := pr.residueAt(line, 22, 23, 26, 27)
	end, ok2 := pr.residueAt(line, 33, 34, 37, 38)
	if ok1 && ok2 {
		pr.builder.AddSheet(start, end)
	}
}

func (pr *pdbReader) modres(line string) {
	id, ok := pr.residueAt(line, 17, 19, 22, 23)
	if ok {
		pr.builder.MarkModified(id, trimmed(line, 25, 27))
	}
}

func (pr *pdbReader) header(line string) {
	if pr.id == "" {
		pr.id = trimmed(line, 63, 66)
		pr.builder.id = pr.id
	}
}

func (pr *pdbReader) remark(line string) {
	if trimmed(line, 8, 10) != "2" {
		return
	}
	text := trimmed(line, 12, 80)
	if !strings.HasPrefix(text, "RESOLUTION.") {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(text, "RESOLUTION."))
	if len(fields) == 0 {
		return
	}
	if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
		pr.hasMeta = true
		pr.meta.Resolution = &v
	}
}

func (pr *pdbReader) revdat(line string) {
	if t, err := time.Parse("02-Jan-06", trimmed(line, 14, 22)); err == nil {
		pr.revDates = append(pr.revDates, t)
	}
}

func appendText(sb *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString(text)
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// specification returns the values of key in a "KEY: value;" block.
func specification(block, key string) []string {
	var out []string
	for _, entry := range strings.Split(block, ";") {
		k, v, ok := strings.Cut(entry, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), key) {
			continue
		}
		out = append(out, splitList(v, ",")...)
	}
	return out
}

func genus(organisms []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, o := range organisms {
		f := strings.Fields(o)
		if len(f) == 0 {
			continue
		}
		g := strings.ToUpper(f[0])
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

func (pr *pdbReader) finish() (*Structure, error) {
	m := &pr.meta
	if pr.title.Len() > 0 {
		m.Title = pr.title.String()
		pr.hasMeta = true
	}
	if pr.keywords.Len() > 0 {
		m.Keywords = splitList(pr.keywords.String(), ",")
		pr.hasMeta = true
	}
	if pr.authors.Len() > 0 {
		m.Authors = splitList(pr.authors.String(), ",")
		pr.hasMeta = true
	}
	if pr.compnd.Len() > 0 {
		m.ECNumbers = specification(pr.compnd.String(), "EC")
		pr.hasMeta = true
	}
	if pr.source.Len() > 0 {
		src := pr.source.String()
		m.OriginOrganisms = specification(src, "ORGANISM_SCIENTIFIC")
		m.OriginOrganismIDs = specification(src, "ORGANISM_TAXID")
		m.OriginOrganismGenus = genus(m.OriginOrganisms)
		m.HostOrganisms = specification(src, "EXPRESSION_SYSTEM")
		m.HostOrganismIDs = specification(src, "EXPRESSION_SYSTEM_TAXID")
		m.HostOrganismGenus = genus(m.HostOrganisms)
		pr.hasMeta = true
	}
	if len(pr.revDates) > 0 {
		first, last := pr.revDates[0], pr.revDates[0]
		for _, t := range pr.revDates[1:] {
			if t.Before(first) {
				first = t
			}
			if t.After(last) {
				last = t
			}
		}
		m.Released, m.LatestRevision = &first, &last
		pr.hasMeta = true
	}
	if pr.hasMeta {
		pr.builder.SetMetadata(m)
	}
	return pr.builder.Build()
}
