// Package canonical defines the renderer agnostic intermediate representation
// of a document: a tree of versioned nodes with deterministic normal form.
package canonical

import (
	"errors"
	"strings"
)

// SchemaVersion is the version of canonical node shape produced by this
// package.
const SchemaVersion = 1

// ErrInvalidNode is returned when raw value could not be turned into a node.
var ErrInvalidNode = errors.New("invalid canonical node")

// Lossiness tells how complete the conversion of a node was.
type Lossiness string

const (
	// LossinessNone - node was converted without losing anything.
	LossinessNone Lossiness = "none"
	// LossinessPartial - some of the source attributes could not be mapped.
	LossinessPartial Lossiness = "partial"
	// LossinessFallback - node is an opaque wrapper of unrecognized source.
	LossinessFallback Lossiness = "fallback"
)

func (l Lossiness) IsValid() bool {
	switch l {
	case LossinessNone, LossinessPartial, LossinessFallback:
		return true
	}
	return false
}

func (l Lossiness) String() string {
	return string(l)
}

// ParseLossiness returns lossiness for valid values and LossinessNone for
// everything else.
func ParseLossiness(v any) Lossiness {
	if s, ok := v.(string); ok {
		if l := Lossiness(s); l.IsValid() {
			return l
		}
	}
	if l, ok := v.(Lossiness); ok && l.IsValid() {
		return l
	}
	return LossinessNone
}

// Origin keys set by import transforms and the unknown node factory.
const (
	OriginBlockName     = "blockName"
	OriginAttributes    = "attributes"
	OriginInnerHTML     = "innerHTML"
	OriginInnerContent  = "innerContent"
	OriginUnknownFields = "unknownFields"
)

// Node is a single element of canonical tree. Fields are declared in
// lexical order of their JSON names so encoded struct has sorted keys just
// like encoded maps do.
type Node struct {
	BlockKind           string         `json:"blockKind"`
	Children            []Node         `json:"children"`
	ID                  string         `json:"id"`
	Lossiness           Lossiness      `json:"lossiness"`
	Origin              map[string]any `json:"origin"`
	Props               map[string]any `json:"props"`
	SchemaVersion       int            `json:"schemaVersion"`
	SourceSchemaVersion int            `json:"sourceSchemaVersion"`
}

// Prop returns property value, nil when absent.
func (n *Node) Prop(name string) any {
	if n == nil || n.Props == nil {
		return nil
	}
	return n.Props[name]
}

// PropString returns property value when it is a string.
func (n *Node) PropString(name string) string {
	s, _ := n.Prop(name).(string)
	return s
}

// PropBool returns property value when it is a boolean.
func (n *Node) PropBool(name string) bool {
	b, _ := n.Prop(name).(bool)
	return b
}

// OriginBlockName returns name of the source block node was imported from.
func (n *Node) OriginBlockName() string {
	if n == nil || n.Origin == nil {
		return ""
	}
	s, _ := n.Origin[OriginBlockName].(string)
	return s
}

// IsUnknown reports whether node was produced by the unknown node factory.
func (n *Node) IsUnknown() bool {
	return n != nil && strings.HasSuffix(n.BlockKind, "/"+unknownKind)
}

// Walk visits node and its descendants in pre-order. Visiting stops when fn
// returns false for a node, its children are skipped.
func (n *Node) Walk(fn func(path []string, node *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path []string, fn func(path []string, node *Node) bool) {
	path = append(path[:len(path):len(path)], n.ID)
	if !fn(path, n) {
		return
	}
	for i := range n.Children {
		n.Children[i].walk(path, fn)
	}
}

// PathID returns deterministic id derived from node position in the tree.
func PathID(path []string) string {
	if len(path) == 0 {
		return "node-root"
	}
	return "node-" + strings.Join(path, ".")
}
