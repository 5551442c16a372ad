// Package debug contains helpers producing human readable dumps of internal
// structures. Output is meant for people, never for machines.
package debug

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
)

// TreeWriter accumulates indented lines.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

// Line writes formatted line at requested depth.
func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label and quoted text value, empty values are left as is.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Value writes arbitrary decoded value (maps, slices, scalars). Map keys are
// written in natural order so dumps are stable and easy to scan.
func (tw TreeWriter) Value(depth int, label string, v any) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			tw.Line(depth, "%s: {}", label)
			return
		}
		tw.Line(depth, "%s:", label)
		keys := slices.Collect(maps.Keys(val))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			tw.Value(depth+1, k, val[k])
		}
	case []any:
		if len(val) == 0 {
			tw.Line(depth, "%s: []", label)
			return
		}
		tw.Line(depth, "%s: [%d]", label, len(val))
		for i, item := range val {
			tw.Value(depth+1, "["+strconv.Itoa(i)+"]", item)
		}
	case string:
		tw.TextBlock(depth, label, val)
	case nil:
		tw.Line(depth, "%s: null", label)
	default:
		tw.Line(depth, "%s: %v", label, val)
	}
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
