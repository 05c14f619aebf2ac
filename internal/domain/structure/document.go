package structure

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is the YAML/JSON serialisation of a structure.  JSON documents
// are read through the YAML decoder.
type Document struct {
	ID          string                 `yaml:"id"`
	InferBonds  bool                   `yaml:"infer_bonds"`
	Atoms       []DocumentAtom         `yaml:"atoms"`
	Bonds       [][2]int               `yaml:"bonds"`
	Helices     []DocumentRange        `yaml:"helices"`
	Sheets      []DocumentRange        `yaml:"sheets"`
	Modified    map[string]string      `yaml:"modified"`
	Metadata    *Metadata              `yaml:"metadata"`
	Descriptors map[string]any         `yaml:"descriptors"`
	Properties  map[string]map[int]any `yaml:"atom_properties"`
}

// DocumentAtom is one atom entry of a Document.
type DocumentAtom struct {
	ID        int        `yaml:"id"`
	Element   string     `yaml:"element"`
	Name      string     `yaml:"name"`
	Position  [3]float64 `yaml:"position"`
	Residue   string     `yaml:"residue"`
	Number    int        `yaml:"number"`
	Chain     string     `yaml:"chain"`
	Insertion string     `yaml:"insertion"`
	Het       bool       `yaml:"het"`
}

// DocumentRange is a residue range given as two residue identifier strings.
type DocumentRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ReadDocument decodes a YAML or JSON structure document.
func ReadDocument(r io.Reader) (*Structure, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "structure document: decode failed")
	}
	return doc.Build()
}

// Build converts the document into a Structure.
func (d *Document) Build() (*Structure, error) {
	b := NewBuilder(d.ID).InferBonds(d.InferBonds).SetMetadata(d.Metadata)
	for _, a := range d.Atoms {
		ins := ' '
		if a.Insertion != "" {
			ins = rune(a.Insertion[0])
		}
		b.AddAtom(Atom{
			ID:            a.ID,
			Element:       a.Element,
			Name:          a.Name,
			Position:      vec(a.Position),
			ResidueName:   a.Residue,
			ResidueNumber: a.Number,
			Chain:         a.Chain,
			InsertionCode: ins,
			HetAtom:       a.Het,
		})
	}
	for _, bd := range d.Bonds {
		b.AddBond(bd[0], bd[1])
	}
	for id, parent := range d.Modified {
		rid, err := ParseResidueIdentifier(id)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStructureInvalid, "structure document: modified residue")
		}
		b.MarkModified(rid, parent)
	}
	for _, rng := range d.Helices {
		start, end, err := rng.parse()
		if err != nil {
			return nil, err
		}
		b.AddHelix(start, end)
	}
	for _, rng := range d.Sheets {
		start, end, err := rng.parse()
		if err != nil {
			return nil, err
		}
		b.AddSheet(start, end)
	}
	for name, v := range d.Descriptors {
		b.SetDescriptor(name, v)
	}
	for name, values := range d.Properties {
		for atomID, v := range values {
			b.SetAtomProperty(name, atomID, v)
		}
	}
	return b.Build()
}

func (r DocumentRange) parse() (ResidueIdentifier, ResidueIdentifier, error) {
	start, err := ParseResidueIdentifier(r.Start)
	if err != nil {
		return ResidueIdentifier{}, ResidueIdentifier{}, errors.Wrap(err, errors.ErrCodeStructureInvalid, "structure document: range start")
	}
	end, err := ParseResidueIdentifier(r.End)
	if err != nil {
		return ResidueIdentifier{}, ResidueIdentifier{}, errors.Wrap(err, errors.ErrCodeStructureInvalid, "structure document: range end")
	}
	return start, end, nil
}

// LoadFile reads a structure, choosing the format from the file extension:
// .pdb/.ent for PDB, .yaml/.yml/.json for documents.
func LoadFile(path string) (*Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStructureParse, "structure: cannot read %s", path)
	}
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	switch ext {
	case ".pdb", ".ent":
		s, err := ReadPDB(bytes.NewReader(data), "", DefaultPDBOptions)
		if err != nil {
			return nil, err
		}
		if s.ID == "" {
			s.ID = stem
		}
		return s, nil
	case ".yaml", ".yml", ".json":
		s, err := ReadDocument(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if s.ID == "" {
			s.ID = stem
		}
		return s, nil
	default:
		return nil, errors.Newf(errors.ErrCodeStructureFormat, "structure: unsupported file format %q", ext)
	}
}

func vec(p [3]float64) spatial.Vec3 { return spatial.V(p[0], p[1], p[2]) }
