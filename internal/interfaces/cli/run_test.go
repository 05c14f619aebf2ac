package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/internal/application/batch"
	"github.com/turtacn/motivequery/pkg/errors"
)

const lysineDoc = `
id: 1LYS
atoms:
  - {id: 1, element: N, name: N, position: [0, 0, 0], residue: LYS, number: 1, chain: A}
  - {id: 2, element: C, name: CA, position: [1.5, 0, 0], residue: LYS, number: 1, chain: A}
  - {id: 3, element: O, name: O, position: [9, 0, 0], residue: HOH, number: 2, chain: A, het: true}
bonds: [[1, 2]]
`

const lysineQuery = "op: ResidueSet\nargs: [LYS]\n"

func TestRunCmd_Text(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", lysineQuery)
	s := writeFile(t, dir, "1lys.yaml", lysineDoc)

	out, _, err := execute(t, "", "run", "-q", q, s)
	require.NoError(t, err)
	assert.Contains(t, out, "1LYS: 1 match(es)")
	assert.Contains(t, out, "[1 2]")
	assert.Contains(t, out, "succeeded=1 failed=0")
}

func TestRunCmd_JSON(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", lysineQuery)
	s := writeFile(t, dir, "1lys.yaml", lysineDoc)

	out, _, err := execute(t, "", "-o", "json", "run", "--query", q, s)
	require.NoError(t, err)

	var res batch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Items, 1)
	assert.Equal(t, batch.StatusOK, res.Items[0].Status)
	assert.Equal(t, [][]int{{1, 2}}, res.Items[0].Motives)
}

func TestRunCmd_Table(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", "op: Plus\nargs: [1, 2]\n")
	s := writeFile(t, dir, "1lys.yaml", lysineDoc)

	out, _, err := execute(t, "", "-o", "table", "run", "-q", q, s, "missing.pdb")
	require.NoError(t, err)
	assert.Contains(t, out, "STRUCTURE")
	assert.Contains(t, out, "1LYS")
	assert.Contains(t, out, "missing.pdb")
	assert.Contains(t, out, "failed")
}

func TestRunCmd_AllFailed(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", lysineQuery)

	out, _, err := execute(t, "", "run", "-q", q, "nope.pdb")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBatchFailed))
	assert.Contains(t, out, "nope.pdb: failed")
}

func TestRunCmd_BadQuery(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", "op: Teleport\n")
	s := writeFile(t, dir, "1lys.yaml", lysineDoc)

	_, _, err := execute(t, "", "run", "-q", q, s)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryDecode))
}

func TestRunCmd_RequiresQuery(t *testing.T) {
	_, _, err := execute(t, "", "run", "x.pdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestRunCmd_Environment(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", "op: StructureMotive\nargs: [1LYS]\n")
	env := writeFile(t, dir, "env.yaml", lysineDoc)
	s := writeFile(t, dir, "other.yaml", strings.Replace(lysineDoc, "1LYS", "2OTH", 1))

	out, _, err := execute(t, "", "run", "-q", q, "--env", env, s)
	require.NoError(t, err)
	assert.Contains(t, out, "2OTH:")
	assert.Contains(t, out, "succeeded=1")
}

func TestRunCmd_Store(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := fmt.Sprintf("log:\n  level: error\nredis:\n  addr: %s\n", mr.Addr())

	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", lysineQuery)
	s := writeFile(t, dir, "1lys.yaml", lysineDoc)

	out, _, err := execute(t, cfg, "run", "--store", "-q", q, s)
	require.NoError(t, err)
	assert.Contains(t, out, "cached=0")
	assert.NotEmpty(t, mr.Keys())

	out, _, err = execute(t, cfg, "run", "--store", "-q", q, s)
	require.NoError(t, err)
	assert.Contains(t, out, "cached=1")
}

func TestRunCmd_StoreUnavailable(t *testing.T) {
	cfg := "log:\n  level: error\nredis:\n  addr: 127.0.0.1:1\n  dial_timeout: 100ms\n"
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", lysineQuery)
	s := writeFile(t, dir, "1lys.yaml", lysineDoc)

	out, _, err := execute(t, cfg, "run", "--store", "-q", q, s)
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded=1")
}

func TestSignatureCmd(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", lysineQuery)

	out, _, err := execute(t, "", "signature", q)
	require.NoError(t, err)
	assert.Contains(t, out, "LYS")

	out, _, err = execute(t, "", "-o", "json", "signature", q)
	require.NoError(t, err)
	var views []signatureView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "sequence", views[0].Kind)
	assert.Equal(t, q, views[0].File)
}

func TestSignatureCmd_Stdin(t *testing.T) {
	path := writeFile(t, t.TempDir(), "motiveq.yaml", "log:\n  level: error\n")
	cmd := NewRootCommand()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("{op: Plus, args: [1, 2]}"))
	cmd.SetArgs([]string{"--config", path, "-o", "table", "signature", "-"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "scalar")
}

func TestOpsCmd(t *testing.T) {
	out, _, err := execute(t, "", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "near\n")
	assert.Contains(t, out, "residueset\n")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "nil", formatValue(nil))
	assert.Equal(t, "[1 2]", formatValue([]int{1, 2}))
	assert.Equal(t, `(1.5, "a", [3])`, formatValue([]any{1.5, "a", []int{3}}))
	assert.Equal(t, "[1] [2] ... 1 more", formatMotives([][]int{{1}, {2}, {3}}, 2))
	assert.Equal(t, "7", formatValue(7))
}
