package query

import (
	"math"
	"strconv"
	"strings"
)

// Canonical signature helpers.  Every node renders through these so that
// the same tree always produces the same text.

// call renders name[arg1,arg2].
func call(name string, args ...string) string {
	return name + "[" + strings.Join(args, ",") + "]"
}

// callOpts renders name(opt1,opt2)[arg1,arg2].
func callOpts(name string, opts []string, args ...string) string {
	return name + "(" + strings.Join(opts, ",") + ")[" + strings.Join(args, ",") + "]"
}

// option renders name=value.
func option(name string, value any) string {
	return name + "=" + formatValue(value)
}

// fixed renders v with exactly digits decimals.
func fixed(v float64, digits int) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', digits, 64)
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// formatValue renders a literal the way Value nodes print it.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return formatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case string:
		return x
	case interface{ String() string }:
		return x.String()
	}
	return ""
}

func quote(s string) string { return `"` + s + `"` }

func signatures[T Node](qs []T) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Signature()
	}
	return out
}
