package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/querytree"
)

// signatureView is the canonical text of one decoded query.
type signatureView struct {
	File      string `json:"file"`
	Signature string `json:"signature"`
	Kind      string `json:"kind"`
}

func (v signatureView) String() string { return v.Signature }

type signatureList []signatureView

func (l signatureList) TableHeaders() []string { return []string{"File", "Kind", "Signature"} }

func (l signatureList) TableRows() [][]string {
	rows := make([][]string, len(l))
	for i, v := range l {
		rows[i] = []string{v.File, v.Kind, v.Signature}
	}
	return rows
}

func (l signatureList) String() string {
	lines := make([]string, len(l))
	for i, v := range l {
		lines[i] = v.Signature
	}
	return strings.Join(lines, "\n")
}

// NewSignatureCmd creates the signature command.  A "-" argument reads the
// query from stdin.
func NewSignatureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signature FILE...",
		Short: "Print the canonical signature of query tree files",
		Long: "Decode query tree files and print their canonical signatures.  Two queries\n" +
			"with the same signature always produce the same matches.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make(signatureList, 0, len(args))
			for _, path := range args {
				var (
					q   query.Node
					err error
				)
				if path == "-" {
					q, err = querytree.Decode(cmd.InOrStdin())
				} else {
					q, err = querytree.LoadFile(path)
				}
				if err != nil {
					return err
				}
				out = append(out, signatureView{File: path, Signature: q.Signature(), Kind: kindOf(q)})
			}
			return PrintResult(cmd, out)
		},
	}
}

func kindOf(q query.Node) string {
	if _, ok := q.(query.Sequence); ok {
		return "sequence"
	}
	return "scalar"
}

// NewOpsCmd creates the ops command listing every operator name the query
// tree decoder accepts.
func NewOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operators available in query tree files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, opList(querytree.Ops()))
		},
	}
}

type opList []string

func (l opList) String() string { return strings.Join(l, "\n") }
