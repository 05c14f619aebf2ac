// Package querytree decodes query trees written as YAML documents.
//
// Every node is a mapping with an op name, positional args and named
// opts:
//
//	op: Near
//	opts: {distance: 4}
//	args:
//	  - {op: AtomSet, args: [C]}
//	  - {op: ResidueSet, args: [HIS]}
//
// Parenthesised parts of a node signature are opts and bracketed parts are
// args.  Plain scalars stand for literal values and plain lists for List
// nodes.  Opt names ignore case, underscores and dashes.  YAML anchors can
// share a subtree between several places.
package querytree

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/pkg/errors"
)

const maxDepth = 512

// Decode reads one query tree from r.
func Decode(r io.Reader) (query.Node, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeQueryDecode, "querytree: empty document")
		}
		return nil, errors.Wrap(err, errors.ErrCodeQueryDecode, "querytree: invalid YAML")
	}
	n := &root
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) != 1 {
			return nil, failf(n, "expected exactly one query per document")
		}
		n = n.Content[0]
	}
	d := &decoder{}
	return d.node(n)
}

// DecodeString reads one query tree from a string.
func DecodeString(s string) (query.Node, error) {
	return Decode(strings.NewReader(s))
}

// DecodeSequence reads a query tree whose root yields motives.
func DecodeSequence(r io.Reader) (query.Sequence, error) {
	n, err := Decode(r)
	if err != nil {
		return nil, err
	}
	q, ok := n.(query.Sequence)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeQueryDecode, "querytree: %s does not yield motives", n.Signature())
	}
	return q, nil
}

// LoadFile decodes the query tree stored at path.
func LoadFile(path string) (query.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeQueryDecode, "querytree: cannot read %s", path)
	}
	return Decode(bytes.NewReader(data))
}

type decoder struct {
	depth int
}

func failf(n *yaml.Node, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeQueryDecode, "querytree: line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// node decodes any query node.  Scalars become literal values and lists
// become List nodes.
func (d *decoder) node(n *yaml.Node) (query.Node, error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > maxDepth {
		return nil, failf(n, "query tree nested deeper than %d levels", maxDepth)
	}

	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := literal(n)
		if err != nil {
			return nil, err
		}
		return query.NewValue(v), nil
	case yaml.SequenceNode:
		items := make([]query.Node, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := d.node(c)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return query.NewList(items...), nil
	case yaml.MappingNode:
		e, err := parseExpr(n)
		if err != nil {
			return nil, err
		}
		b, err := lookup(e)
		if err != nil {
			return nil, err
		}
		q, err := b(d, e)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeQueryDecode) {
				return nil, err
			}
			return nil, errors.Wrapf(err, errors.ErrCodeQueryDecode, "querytree: line %d: %s", n.Line, e.op)
		}
		if err := e.finish(); err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, failf(n, "unexpected YAML node")
}

func (d *decoder) sequence(n *yaml.Node) (query.Sequence, error) {
	q, err := d.node(n)
	if err != nil {
		return nil, err
	}
	s, ok := q.(query.Sequence)
	if !ok {
		return nil, failf(n, "%s does not yield motives", q.Signature())
	}
	return s, nil
}

func (d *decoder) scalar(n *yaml.Node) (query.Scalar, error) {
	q, err := d.node(n)
	if err != nil {
		return nil, err
	}
	s, ok := q.(query.Scalar)
	if !ok {
		return nil, failf(n, "%s does not yield a value", q.Signature())
	}
	return s, nil
}

func (d *decoder) lambda(n *yaml.Node) (*query.Lambda, error) {
	q, err := d.node(n)
	if err != nil {
		return nil, err
	}
	l, ok := q.(*query.Lambda)
	if !ok {
		return nil, failf(n, "%s is not a Lambda", q.Signature())
	}
	return l, nil
}

func literal(n *yaml.Node) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, failf(n, "bad literal %q", n.Value)
	}
	return v, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Expressions
// ─────────────────────────────────────────────────────────────────────────────

type expr struct {
	op   string
	node *yaml.Node
	args []*yaml.Node
	opts map[string]*yaml.Node
	used map[string]bool
}

func parseExpr(n *yaml.Node) (*expr, error) {
	e := &expr{node: n, opts: map[string]*yaml.Node{}, used: map[string]bool{}}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		switch key.Value {
		case "op":
			if val.Kind != yaml.ScalarNode {
				return nil, failf(val, "op must be a name")
			}
			e.op = strings.TrimSpace(val.Value)
		case "args":
			if val.Kind == yaml.SequenceNode {
				e.args = make([]*yaml.Node, len(val.Content))
				for j, c := range val.Content {
					e.args[j] = resolve(c)
				}
			} else {
				e.args = []*yaml.Node{val}
			}
		case "opts":
			if val.Kind != yaml.MappingNode {
				return nil, failf(val, "opts must be a mapping")
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				e.opts[optKey(val.Content[j].Value)] = resolve(val.Content[j+1])
			}
		default:
			return nil, failf(key, "unknown key %q", key.Value)
		}
	}
	if e.op == "" {
		return nil, failf(n, "node without op")
	}
	return e, nil
}

func optKey(s string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(s)))
}

// finish rejects opts no builder asked for.
func (e *expr) finish() error {
	for k, v := range e.opts {
		if !e.used[k] {
			return failf(v, "%s does not take the option %q", e.op, k)
		}
	}
	return nil
}

// arity checks the argument count; hi < 0 means no upper bound.
func (e *expr) arity(lo, hi int) error {
	n := len(e.args)
	switch {
	case lo == hi && n != lo:
		return failf(e.node, "%s takes %d argument(s), got %d", e.op, lo, n)
	case n < lo:
		return failf(e.node, "%s takes at least %d argument(s), got %d", e.op, lo, n)
	case hi >= 0 && n > hi:
		return failf(e.node, "%s takes at most %d argument(s), got %d", e.op, hi, n)
	}
	return nil
}

func (e *expr) str(i int) (string, error) {
	n := e.args[i]
	if n.Kind != yaml.ScalarNode {
		return "", failf(n, "%s: argument %d must be a plain value", e.op, i+1)
	}
	return n.Value, nil
}

// strs flattens the args from index i on into strings; nested lists are
// allowed so that [C, N] and [[C, N]] mean the same.
func (e *expr) strs(i int) ([]string, error) {
	var out []string
	for _, n := range e.args[i:] {
		switch n.Kind {
		case yaml.ScalarNode:
			out = append(out, n.Value)
		case yaml.SequenceNode:
			for _, c := range n.Content {
				c = resolve(c)
				if c.Kind != yaml.ScalarNode {
					return nil, failf(c, "%s: expected a plain value", e.op)
				}
				out = append(out, c.Value)
			}
		default:
			return nil, failf(n, "%s: expected plain values", e.op)
		}
	}
	return out, nil
}

func (e *expr) integer(i int) (int, error) {
	var v int
	if err := e.args[i].Decode(&v); err != nil {
		return 0, failf(e.args[i], "%s: argument %d must be an integer", e.op, i+1)
	}
	return v, nil
}

func (e *expr) ints(i int) ([]int, error) {
	ss, err := e.strs(i)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(ss))
	for j, s := range ss {
		var v int
		if _, err := fmt.Sscan(s, &v); err != nil {
			return nil, failf(e.node, "%s: %q is not an integer", e.op, s)
		}
		out[j] = v
	}
	return out, nil
}

func (e *expr) opt(name string) (*yaml.Node, bool) {
	k := optKey(name)
	n, ok := e.opts[k]
	if ok {
		e.used[k] = true
	}
	return n, ok
}

func (e *expr) optFloat(name string, def float64) (float64, error) {
	n, ok := e.opt(name)
	if !ok {
		return def, nil
	}
	var v float64
	if err := n.Decode(&v); err != nil {
		return 0, failf(n, "%s: option %s must be a number", e.op, name)
	}
	return v, nil
}

func (e *expr) reqFloat(name string) (float64, error) {
	if _, ok := e.opts[optKey(name)]; !ok {
		return 0, failf(e.node, "%s: option %s is required", e.op, name)
	}
	return e.optFloat(name, 0)
}

func (e *expr) optInt(name string, def int) (int, error) {
	n, ok := e.opt(name)
	if !ok {
		return def, nil
	}
	var v int
	if err := n.Decode(&v); err != nil {
		return 0, failf(n, "%s: option %s must be an integer", e.op, name)
	}
	return v, nil
}

func (e *expr) optBool(name string) (bool, error) {
	n, ok := e.opt(name)
	if !ok {
		return false, nil
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		return false, failf(n, "%s: option %s must be true or false", e.op, name)
	}
	return v, nil
}

func (e *expr) optString(name, def string) (string, error) {
	n, ok := e.opt(name)
	if !ok {
		return def, nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", failf(n, "%s: option %s must be a plain value", e.op, name)
	}
	return n.Value, nil
}

func (e *expr) optMatrix(name string) ([][]float64, error) {
	n, ok := e.opt(name)
	if !ok {
		return nil, failf(e.node, "%s: option %s is required", e.op, name)
	}
	var m [][]float64
	if err := n.Decode(&m); err != nil {
		return nil, failf(n, "%s: option %s must be a list of number rows", e.op, name)
	}
	return m, nil
}
