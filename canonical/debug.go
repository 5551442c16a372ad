package canonical

import (
	"github.com/theGeekist/edgepress-sub001/utils/debug"
)

type treeWriter struct {
	*debug.TreeWriter
}

// String returns a readable tree of the node and its descendants. It exists
// solely for manual inspection during debugging.
func (n *Node) String() string {
	if n == nil {
		return "<nil Node>"
	}
	return treeWriter{debug.NewTreeWriter()}.node(0, n, -1).String()
}

// Dump returns readable tree of a list of root nodes.
func Dump(nodes []Node) string {
	tw := treeWriter{debug.NewTreeWriter()}
	tw.Line(0, "Nodes: %d", len(nodes))
	for i := range nodes {
		tw.node(1, &nodes[i], i)
	}
	return tw.String()
}

func (tw treeWriter) node(depth int, n *Node, index int) treeWriter {
	if index >= 0 {
		tw.Line(depth, "Node[%d] id=%q kind=%q lossiness=%s", index, n.ID, n.BlockKind, n.Lossiness)
	} else {
		tw.Line(depth, "Node id=%q kind=%q lossiness=%s", n.ID, n.BlockKind, n.Lossiness)
	}
	tw.Line(depth+1, "schema=%d source=%d", n.SchemaVersion, n.SourceSchemaVersion)
	if len(n.Props) > 0 {
		tw.Value(depth+1, "Props", n.Props)
	}
	if len(n.Origin) > 0 {
		tw.Value(depth+1, "Origin", n.Origin)
	}
	if len(n.Children) > 0 {
		tw.Line(depth+1, "Children: %d", len(n.Children))
		for i := range n.Children {
			tw.node(depth+2, &n.Children[i], i)
		}
	}
	return tw
}
