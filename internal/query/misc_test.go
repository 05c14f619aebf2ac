package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/testutil"
	"github.com/turtacn/motivequery/pkg/errors"
)

// annotated returns a four residue chain GLY-LYS-ASP-SER with a helix over
// residues 1-2, a sheet strand over 3-4, header metadata and a few
// properties.
func annotated(t *testing.T) *structure.Structure {
	f := testutil.NewFixture("2ANN")
	var prev int
	for i, name := range []string{"GLY", "LYS", "ASP", "SER"} {
		atoms := f.Linear(name, i+1, "B", spatial.V(6*float64(i), 0, 0), "N", "C", "C", "O")
		if prev != 0 {
			f.Bond(prev, atoms[0])
		}
		prev = atoms[2]
	}
	resolution := 1.8
	released := time.Date(2019, 3, 6, 0, 0, 0, 0, time.UTC)
	b := f.Builder()
	b.AddHelix(structure.NewResidueIdentifier(1, "B", ' '), structure.NewResidueIdentifier(2, "B", ' '))
	b.AddSheet(structure.NewResidueIdentifier(3, "B", ' '), structure.NewResidueIdentifier(4, "B", ' '))
	b.SetMetadata(&structure.Metadata{
		Title:      "Crystal structure of a kinase domain",
		Released:   &released,
		Resolution: &resolution,
		Keywords:   []string{"TRANSFERASE, KINASE", "ATP-binding"},
		Authors:    []string{"Smith, J.", "Novak, P."},
	})
	b.SetDescriptor("Mass", float32(12.5))
	b.SetAtomProperty("charge", 2, int64(-1))
	return f.Build(t)
}

func TestRegexMotive(t *testing.T) {
	t.Parallel()
	s := annotated(t)

	ms := run(t, s, query.NewRegexMotive(query.NewValue("k.s?"), query.AminoChain))
	assert.Equal(t, [][]int{{5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}}, ids(ms))

	assert.Empty(t, run(t, s, query.NewRegexMotive(query.NewValue("W+"), query.AminoChain)))
	assert.Empty(t, run(t, s, query.NewRegexMotive(query.NewValue("x*"), query.AminoChain)), "empty matches are skipped")
	assert.Empty(t, run(t, s, query.NewRegexMotive(query.NewValue("A"), query.NucleotideChain)))

	_, err := query.Matches(s, query.NewRegexMotive(query.NewValue("(["), query.AminoChain))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
	_, err = query.ParseChainKind("Protein")
	assert.Error(t, err)
}

func TestAminoSequenceAndSimilarity(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	whole := query.NewInputAsPattern()
	residue := func(name string) query.Scalar {
		return query.NewToMotive(query.NewResidueSet([]string{name}, false))
	}

	assert.Equal(t, "AKD", eval(t, s, query.NewAminoSequenceString(whole)))
	assert.Equal(t, 1.0, eval(t, s, query.NewMotiveSimilarity(query.AtomJaccard, residue("ALA"), residue("LYS"))))
	assert.InDelta(t, 2.0/14.0, eval(t, s, query.NewMotiveSimilarity(query.AtomJaccard, residue("ALA"), residue("BNZ"))), 1e-12)
	assert.Equal(t, 0.0, eval(t, s, query.NewMotiveSimilarity(query.ResidueJaccard, residue("ALA"), residue("LYS"))))

	kind, err := query.ParseSimilarityKind("residuejaccard")
	require.NoError(t, err)
	assert.Equal(t, query.ResidueJaccard, kind)
}

func TestPropertiesAndDescriptors(t *testing.T) {
	t.Parallel()
	s := annotated(t)
	atom := func(id int) query.Scalar { return query.NewToMotive(query.NewAtomIds([]int{id}, false)) }

	assert.Equal(t, -1, eval(t, s, query.NewAtomProperty(atom(2), "Charge")))
	assert.Nil(t, eval(t, s, query.NewAtomProperty(atom(3), "charge")))
	assert.Nil(t, eval(t, s, query.NewAtomProperty(query.NewToMotive(query.NewAtomIds([]int{2, 3}, false)), "charge")))

	assert.Equal(t, 12.5, eval(t, s, query.NewDescriptor("mass", query.NewInputAsPattern())))
	assert.Nil(t, eval(t, s, query.NewDescriptor("volume", query.NewInputAsPattern())))
	_, err := query.Evaluate(s, query.NewDescriptor("mass", atom(2)))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryRuntime))
}

func TestElementViews(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	backbone := query.NewAtomIds([]int{3, 4, 5, 6}, false)

	assert.Equal(t, [][]int{{3}, {4}, {5}, {6}}, ids(run(t, s, query.NewToElements(query.AtomElements, backbone))))
	assert.Equal(t, [][]int{{3, 4}, {5, 6}}, ids(run(t, s, query.NewToElements(query.ResidueElements, backbone))))

	oxygens := run(t, s, query.NewGroupedAtoms("o"))
	assert.Equal(t, [][]int{{4, 8, 12, 13}}, ids(oxygens))
	assert.Len(t, run(t, s, query.NewGroupedAtoms()), 4, "N, C, O and H")

	chains := run(t, s, query.NewChains())
	require.Len(t, chains, 1)
	assert.Equal(t, len(s.Atoms), chains[0].Len())
	assert.Empty(t, run(t, s, query.NewChains("Z")))
}

func TestSecondaryElement(t *testing.T) {
	t.Parallel()
	s := annotated(t)

	helix := must[*query.SecondaryElement](t)(query.NewSecondaryElement("helix"))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7, 8}}, ids(run(t, s, helix)))
	sheet := must[*query.SecondaryElement](t)(query.NewSecondaryElement("Sheet"))
	assert.Equal(t, [][]int{{9, 10, 11, 12, 13, 14, 15, 16}}, ids(run(t, s, sheet)))

	_, err := query.NewSecondaryElement("turn")
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
}

func TestCommonAtoms(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	f := testutil.NewFixture("3ALA")
	f.Linear("ALA", 1, "A", spatial.V(0, 0, 0), "N", "C", "C", "O")
	f.Add(testutil.AtomSpec{Element: "S", Residue: "LYS", Number: 2, Chain: "A", Pos: spatial.V(6, 0, 0)})
	other := f.Build(t)

	ms := run(t, s, query.NewCommonAtoms("3ala"), query.WithEnvironment(other))
	assert.Equal(t, [][]int{{1, 2, 3, 4}}, ids(ms))

	_, err := query.Matches(s, query.NewCommonAtoms("3ALA"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryUnknownStruct))
}

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := annotated(t)
	whole := query.NewInputAsPattern()
	meta := func(name string) query.Scalar { return must[*query.Metadata](t)(query.NewMetadata(whole, name)) }
	has := func(prop string, matchAny bool, values ...string) query.Scalar {
		return must[*query.HasMetadata](t)(query.NewHasMetadata(prop, matchAny, whole, values...))
	}

	assert.Equal(t, 1.8, eval(t, s, meta("Resolution")))
	assert.Equal(t, "2019-03-06", eval(t, s, meta("releasedate")))
	assert.Equal(t, "TRANSFERASE, KINASE; ATP-binding", eval(t, s, meta("keywords")))
	assert.Nil(t, eval(t, s, meta("ExperimentMethod")))
	assert.Nil(t, eval(t, s, meta("weight")))

	assert.Equal(t, true, eval(t, s, has("Keywords", false, "kinase", "atp")))
	assert.Equal(t, false, eval(t, s, has("Keywords", false, "kinase", "bind")))
	assert.Equal(t, true, eval(t, s, has("Keywords", true, "gpcr", "Kinase")))
	assert.Equal(t, true, eval(t, s, has("Authors", true, "novak")))
	assert.Equal(t, true, eval(t, s, has("Keywords", false)))
	assert.Equal(t, false, eval(t, s, has("Keywords", true)))

	bare := testutil.Tripeptide(t)
	assert.Nil(t, eval(t, bare, meta("title")))
	assert.Equal(t, false, eval(t, bare, has("Keywords", false, "kinase")))

	_, err := query.NewMetadata(whole, "colour")
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
	_, err = query.NewHasMetadata("Title", true, whole, "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
	assert.Contains(t, query.MetadataListNames(), "ecnumbers")
	assert.Contains(t, query.MetadataNames(), "resolution")
}
