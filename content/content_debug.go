package content

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/utils/debug"
)

type treeWriter struct {
	*debug.TreeWriter
}

func (tw treeWriter) block(depth, index int, b *source.Block) {
	tw.Line(depth, "Block[%d] name=%q inner=%d", index, b.Name, len(b.InnerBlocks))
	if len(b.Attributes) > 0 {
		keys := slices.Collect(maps.Keys(b.Attributes))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			tw.Line(depth+1, "Attr[%q] = %v", k, b.Attributes[k])
		}
	}
	if b.InnerHTML != "" {
		tw.TextBlock(depth+1, "innerHTML", b.InnerHTML)
	}
	for i := range b.InnerBlocks {
		tw.block(depth+1, i, &b.InnerBlocks[i])
	}
}

// String returns a readable dump of the prepared document: source blocks,
// canonical tree and import diagnostics. It exists solely for manual
// inspection during debugging.
func (c *Content) String() string {
	if c == nil {
		return "<nil Content>"
	}

	tw := treeWriter{debug.NewTreeWriter()}
	tw.Line(0, "Content source=%q kind=%s run=%s", c.SrcName, c.Kind, c.RunID)
	tw.Line(1, "hash=%s", c.Hash)

	if len(c.Blocks) > 0 {
		tw.Line(0, "Source blocks: %d (%d total)", len(c.Blocks), source.Count(c.Blocks))
		for i := range c.Blocks {
			tw.block(1, i, &c.Blocks[i])
		}
	}
	out := tw.String()

	out += "\n" + canonical.Dump(c.Nodes)
	if c.Import != nil {
		out += "\n" + c.Import.String()
	}
	return out
}
