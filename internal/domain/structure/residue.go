package structure

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/motivequery/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// ResidueIdentifier
// ─────────────────────────────────────────────────────────────────────────────

// ResidueIdentifier uniquely identifies a residue within a structure.  An
// absent insertion code is stored as ' '.
type ResidueIdentifier struct {
	Chain         string `json:"chain"`
	Number        int    `json:"number"`
	InsertionCode rune   `json:"insertion_code"`
}

// NewResidueIdentifier builds an identifier, normalising blank chains and
// insertion codes.
func NewResidueIdentifier(number int, chain string, insertion rune) ResidueIdentifier {
	if strings.TrimSpace(chain) == "" {
		chain = ""
	}
	if insertion == 0 {
		insertion = ' '
	}
	return ResidueIdentifier{Chain: chain, Number: number, InsertionCode: insertion}
}

// String renders the identifier as "NUMBER [CHAIN] [i:INSERTION]".
func (r ResidueIdentifier) String() string {
	noChain := r.Chain == ""
	noIns := r.InsertionCode == ' ' || r.InsertionCode == 0
	switch {
	case noChain && noIns:
		return strconv.Itoa(r.Number)
	case noChain:
		return fmt.Sprintf("%d i:%c", r.Number, r.InsertionCode)
	case noIns:
		return fmt.Sprintf("%d %s", r.Number, r.Chain)
	default:
		return fmt.Sprintf("%d %s i:%c", r.Number, r.Chain, r.InsertionCode)
	}
}

// Compare orders identifiers by chain (ordinal), number and insertion code.
func (r ResidueIdentifier) Compare(o ResidueIdentifier) int {
	if r.Chain != o.Chain {
		return strings.Compare(r.Chain, o.Chain)
	}
	if r.Number != o.Number {
		if r.Number < o.Number {
			return -1
		}
		return 1
	}
	switch {
	case r.InsertionCode < o.InsertionCode:
		return -1
	case r.InsertionCode > o.InsertionCode:
		return 1
	}
	return 0
}

var chainPattern = regexp.MustCompile(`^[_,.;:"&<>()/{}'` + "`" + `~!@#$%A-Za-z0-9*|+-]+$`)

func invalidResidueID(value string) error {
	return errors.InvalidConfig(
		"'%s' is not a valid residue identifier. The format is 'NUMBER [CHAIN] [i:INSERTIONCODE]' (parameters in [] are optional, for example '175 i:12' or '143 B').", value)
}

// ParseResidueIdentifier parses "NUMBER [CHAIN] [i:INSERTION]", for example
// "175 i:A" or "143 B".
func ParseResidueIdentifier(value string) (ResidueIdentifier, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 || len(fields) > 3 {
		return ResidueIdentifier{}, invalidResidueID(value)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 || strings.HasPrefix(fields[0], "+") {
		return ResidueIdentifier{}, invalidResidueID(value)
	}

	chain, ins := "", ' '
	rest := fields[1:]
	if len(rest) > 0 && isInsertionField(rest[len(rest)-1]) {
		ins = rune(rest[len(rest)-1][2])
		rest = rest[:len(rest)-1]
	}
	switch len(rest) {
	case 0:
	case 1:
		if !chainPattern.MatchString(rest[0]) || strings.HasPrefix(rest[0], "i:") {
			return ResidueIdentifier{}, invalidResidueID(value)
		}
		chain = rest[0]
	default:
		return ResidueIdentifier{}, invalidResidueID(value)
	}
	return NewResidueIdentifier(n, chain, ins), nil
}

func isInsertionField(f string) bool {
	if len(f) != 3 || !strings.HasPrefix(f, "i:") {
		return false
	}
	c := f[2]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ─────────────────────────────────────────────────────────────────────────────
// Residue
// ─────────────────────────────────────────────────────────────────────────────

// SecondaryType is the secondary structure a residue participates in.
type SecondaryType int

const (
	SecondaryUnknown SecondaryType = iota
	SecondarySheet
	SecondaryHelix
)

// Residue is a group of atoms sharing a residue identifier.
type Residue struct {
	Identifier    ResidueIdentifier
	Name          string
	Atoms         []*Atom
	ModifiedFrom  string
	SecondaryType SecondaryType
}

func (r *Residue) IsAmino() bool      { return IsAminoName(r.Name) }
func (r *Residue) IsNucleotide() bool { return IsNucleotideName(r.Name) }
func (r *Residue) IsWater() bool      { return IsWaterName(r.Name) }
func (r *Residue) IsModified() bool   { return r.ModifiedFrom != "" }
func (r *Residue) ChargeType() ChargeType {
	return ChargeTypeOf(r.Name)
}

// IsHet reports whether the residue was read from HETATM records.
func (r *Residue) IsHet() bool { return len(r.Atoms) > 0 && r.Atoms[0].HetAtom }

// ShortName is the one-letter amino code, or the first letter of the name
// for anything else.
func (r *Residue) ShortName() string {
	if s, ok := aminoShortNames[strings.ToUpper(r.Name)]; ok {
		return s
	}
	if r.Name == "" {
		return "X"
	}
	return r.Name[:1]
}

func (r *Residue) String() string { return r.Name + " " + r.Identifier.String() }

// ─────────────────────────────────────────────────────────────────────────────
// Residue name tables
// ─────────────────────────────────────────────────────────────────────────────

// ChargeType classifies amino acid side chains.
type ChargeType int

const (
	ChargeUnknown ChargeType = iota
	ChargePositive
	ChargeNegative
	ChargeAromatic
	ChargePolar
	ChargeNonPolar
)

var chargeTypeNames = map[ChargeType]string{
	ChargeUnknown:  "Unknown",
	ChargePositive: "Positive",
	ChargeNegative: "Negative",
	ChargeAromatic: "Aromatic",
	ChargePolar:    "Polar",
	ChargeNonPolar: "NonPolar",
}

func (c ChargeType) String() string {
	if s, ok := chargeTypeNames[c]; ok {
		return s
	}
	return "Unknown"
}

// ParseChargeType resolves a charge type name case-insensitively.
func ParseChargeType(s string) (ChargeType, bool) {
	for c, name := range chargeTypeNames {
		if strings.EqualFold(name, s) {
			return c, true
		}
	}
	return ChargeUnknown, false
}

var aminoCharges = map[string]ChargeType{
	"LYS": ChargePositive, "ARG": ChargePositive, "HIS": ChargePositive,
	"ASP": ChargeNegative, "GLU": ChargeNegative,
	"PHE": ChargeAromatic, "TYR": ChargeAromatic, "TRP": ChargeAromatic,
	"CYS": ChargePolar, "SER": ChargePolar, "THR": ChargePolar, "ASN": ChargePolar, "GLN": ChargePolar,
	"MET": ChargeNonPolar, "LEU": ChargeNonPolar, "VAL": ChargeNonPolar, "ILE": ChargeNonPolar,
	"ALA": ChargeNonPolar, "GLY": ChargeNonPolar, "PRO": ChargeNonPolar,
}

var aminoShortNames = map[string]string{
	"ALA": "A", "ARG": "R", "ASN": "N", "ASP": "D", "CYS": "C",
	"GLN": "Q", "GLU": "E", "GLY": "G", "HIS": "H", "ILE": "I",
	"LEU": "L", "LYS": "K", "MET": "M", "PHE": "F", "PRO": "P",
	"SER": "S", "THR": "T", "TRP": "W", "TYR": "Y", "VAL": "V",
}

var nucleotideShortNames = map[string]string{
	"A": "A", "C": "C", "G": "G", "T": "T", "U": "U",
	"DA": "A", "DC": "C", "DG": "G", "DT": "T", "DU": "U",
}

// ChargeTypeOf returns the charge class of the residue name.
func ChargeTypeOf(name string) ChargeType { return aminoCharges[strings.ToUpper(name)] }

// IsAminoName reports whether name is one of the 20 standard amino acids.
func IsAminoName(name string) bool {
	_, ok := aminoShortNames[strings.ToUpper(name)]
	return ok
}

// IsNucleotideName reports whether name is a standard (deoxy)nucleotide.
func IsNucleotideName(name string) bool {
	_, ok := nucleotideShortNames[strings.ToUpper(name)]
	return ok
}

// IsWaterName reports whether name denotes water.
func IsWaterName(name string) bool { return strings.EqualFold(name, "HOH") }

// ShortAminoName returns the one-letter code, or name itself when it is not
// an amino acid.
func ShortAminoName(name string) string {
	if s, ok := aminoShortNames[strings.ToUpper(name)]; ok {
		return s
	}
	return name
}

// ShortNucleotideName returns the one-letter code, or name itself when it is
// not a nucleotide.
func ShortNucleotideName(name string) string {
	if s, ok := nucleotideShortNames[strings.ToUpper(name)]; ok {
		return s
	}
	return name
}

// AminoNames lists the standard amino acid names.
func AminoNames() []string {
	return []string{"ALA", "ARG", "ASP", "CYS", "GLN", "GLU", "GLY", "HIS", "ILE", "LEU",
		"LYS", "MET", "PHE", "PRO", "SER", "THR", "TRP", "TYR", "VAL", "ASN"}
}
