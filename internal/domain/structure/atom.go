// Package structure provides the read-only molecular model queried by the
// motive engine: atoms, bonds, residues, chains, secondary structure
// elements, rings and PDB metadata, plus the readers that build it.
package structure

import (
	"fmt"
	"strings"

	"github.com/turtacn/motivequery/internal/domain/spatial"
)

// ─────────────────────────────────────────────────────────────────────────────
// Atom
// ─────────────────────────────────────────────────────────────────────────────

// Atom is a single atom of a structure.  IDs are unique within a structure.
type Atom struct {
	ID            int          `json:"id" yaml:"id"`
	Element       string       `json:"element" yaml:"element"`
	Name          string       `json:"name" yaml:"name"`
	Position      spatial.Vec3 `json:"position" yaml:"position"`
	ResidueName   string       `json:"residue_name" yaml:"residue_name"`
	ResidueNumber int          `json:"residue_number" yaml:"residue_number"`
	Chain         string       `json:"chain,omitempty" yaml:"chain,omitempty"`
	InsertionCode rune         `json:"insertion_code,omitempty" yaml:"insertion_code,omitempty"`
	HetAtom       bool         `json:"het_atom,omitempty" yaml:"het_atom,omitempty"`
}

// ResidueID returns the identifier of the residue the atom belongs to.
func (a *Atom) ResidueID() ResidueIdentifier {
	return NewResidueIdentifier(a.ResidueNumber, a.Chain, a.InsertionCode)
}

// IsWater reports whether the atom belongs to a water residue.
func (a *Atom) IsWater() bool { return IsWaterName(a.ResidueName) }

func (a *Atom) String() string {
	return fmt.Sprintf("%s %d %s %s", a.Element, a.ID, a.Name, a.ResidueID())
}

// NormalizeElement canonicalises an element symbol: first letter upper case,
// the rest lower case ("FE" → "Fe").
func NormalizeElement(symbol string) string {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Bond is an undirected covalent bond between two atoms, stored with A < B.
type Bond struct {
	A int `json:"a" yaml:"a"`
	B int `json:"b" yaml:"b"`
}

// NewBond returns the canonical bond between atom ids a and b.
func NewBond(a, b int) Bond {
	if a > b {
		a, b = b, a
	}
	return Bond{A: a, B: b}
}

// ─────────────────────────────────────────────────────────────────────────────
// Covalent radii
// ─────────────────────────────────────────────────────────────────────────────

// covalentRadii in Å for elements whose bonds are inferred from geometry.
// Metals are left out; their coordination bonds must be stated explicitly.
var covalentRadii = map[string]float64{
	"H":  0.31,
	"B":  0.84,
	"C":  0.76,
	"N":  0.71,
	"O":  0.66,
	"F":  0.57,
	"Si": 1.11,
	"P":  1.07,
	"S":  1.05,
	"Cl": 1.02,
	"Se": 1.20,
	"Br": 1.20,
	"I":  1.39,
}

// CovalentRadius returns the covalent radius of element and whether bonds to
// it may be inferred from distances.
func CovalentRadius(element string) (float64, bool) {
	r, ok := covalentRadii[NormalizeElement(element)]
	return r, ok
}

// vdwRadii in Å, used by the cavity detector.
var vdwRadii = map[string]float64{
	"H":  1.10,
	"C":  1.70,
	"N":  1.55,
	"O":  1.52,
	"F":  1.47,
	"P":  1.80,
	"S":  1.80,
	"Cl": 1.75,
	"Se": 1.90,
	"Br": 1.85,
	"I":  1.98,
	"Fe": 1.94,
	"Zn": 1.39,
	"Mg": 1.73,
	"Ca": 2.31,
	"Na": 2.27,
	"K":  2.75,
}

// DefaultVdWRadius is used for elements missing from the table.
const DefaultVdWRadius = 1.6

// VdWRadius returns the van der Waals radius of element.
func VdWRadius(element string) float64 {
	if r, ok := vdwRadii[NormalizeElement(element)]; ok {
		return r
	}
	return DefaultVdWRadius
}
