package canonical

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

const (
	fieldSchemaVersion       = "schemaVersion"
	fieldSourceSchemaVersion = "sourceSchemaVersion"
	fieldID                  = "id"
	fieldBlockKind           = "blockKind"
	fieldProps               = "props"
	fieldChildren            = "children"
	fieldOrigin              = "origin"
	fieldLossiness           = "lossiness"
)

// Normalize produces normal form of raw node. Raw node is either Node,
// *Node or map[string]any as obtained from decoding JSON. Path is position of
// the node in the tree (child indexes) and is used to derive id when node
// does not have one. Normalize is idempotent and does not modify its input.
func Normalize(raw any, path []string) (Node, error) {
	switch val := raw.(type) {
	case Node:
		return normalizeNode(&val, path)
	case *Node:
		if val == nil {
			return Node{}, fmt.Errorf("%w at %s: nil node", ErrInvalidNode, PathID(path))
		}
		return normalizeNode(val, path)
	case map[string]any:
		if val == nil {
			return Node{}, fmt.Errorf("%w at %s: nil object", ErrInvalidNode, PathID(path))
		}
		return normalizeMap(val, path)
	default:
		return Node{}, fmt.Errorf("%w at %s: expected object, got %T", ErrInvalidNode, PathID(path), raw)
	}
}

// NormalizeAll normalizes list of root nodes, root i gets path ["i"].
func NormalizeAll[T any](raw []T) ([]Node, error) {
	nodes := make([]Node, 0, len(raw))
	for i, r := range raw {
		n, err := Normalize(r, []string{strconv.Itoa(i)})
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func normalizeNode(in *Node, path []string) (Node, error) {
	if strings.TrimSpace(in.BlockKind) == "" {
		return Node{}, fmt.Errorf("%w at %s: missing blockKind", ErrInvalidNode, PathID(path))
	}

	out := Node{
		SchemaVersion:       SchemaVersion,
		SourceSchemaVersion: in.SourceSchemaVersion,
		ID:                  in.ID,
		BlockKind:           in.BlockKind,
		Props:               canonicalizeMap(in.Props),
		Origin:              canonicalizeMap(in.Origin),
		Lossiness:           ParseLossiness(string(in.Lossiness)),
	}
	if out.SourceSchemaVersion <= 0 {
		out.SourceSchemaVersion = SchemaVersion
	}
	if out.ID == "" {
		out.ID = PathID(path)
	}

	children, err := normalizeChildren(in.Children, path)
	if err != nil {
		return Node{}, err
	}
	out.Children = children
	return out, nil
}

func normalizeMap(in map[string]any, path []string) (Node, error) {
	kind, _ := in[fieldBlockKind].(string)
	if strings.TrimSpace(kind) == "" {
		return Node{}, fmt.Errorf("%w at %s: missing or non-string blockKind", ErrInvalidNode, PathID(path))
	}

	out := Node{
		SchemaVersion:       SchemaVersion,
		SourceSchemaVersion: SchemaVersion,
		BlockKind:           kind,
		Lossiness:           ParseLossiness(in[fieldLossiness]),
	}
	// values of known fields which cannot be used are kept, not dropped
	unknown := make(map[string]any)

	if raw, present := in[fieldSourceSchemaVersion]; present && raw != nil {
		if v, ok := intValue(raw); ok && v > 0 {
			out.SourceSchemaVersion = v
		} else {
			unknown[fieldSourceSchemaVersion] = raw
		}
	}

	out.ID = PathID(path)
	switch id := in[fieldID].(type) {
	case nil:
	case string:
		if id != "" {
			out.ID = id
		}
	default:
		unknown[fieldID] = id
	}

	rawChildren := in[fieldChildren]
	if !isChildList(rawChildren) {
		unknown[fieldChildren] = rawChildren
		rawChildren = nil
	}

	for k, v := range in {
		switch k {
		case fieldSchemaVersion, fieldSourceSchemaVersion, fieldID, fieldBlockKind, fieldLossiness, fieldChildren:
		case fieldProps, fieldOrigin:
			if _, ok := v.(map[string]any); !ok && v != nil {
				unknown[k] = v
			}
		default:
			unknown[k] = v
		}
	}

	props, _ := in[fieldProps].(map[string]any)
	out.Props = canonicalizeMap(props)

	origin, _ := in[fieldOrigin].(map[string]any)
	out.Origin = mergeUnknownFields(canonicalizeMap(origin), unknown)

	children, err := normalizeChildren(rawChildren, path)
	if err != nil {
		return Node{}, err
	}
	out.Children = children
	return out, nil
}

// mergeUnknownFields adds fields to origin.unknownFields, keys already present
// are kept unless fields carries a newer value for them.
func mergeUnknownFields(origin, fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return origin
	}

	merged := make(map[string]any)
	switch existing := origin[OriginUnknownFields].(type) {
	case nil:
	case map[string]any:
		maps.Copy(merged, existing)
	default:
		merged[OriginUnknownFields] = existing
	}
	for k, v := range fields {
		merged[k] = Canonicalize(v)
	}
	origin[OriginUnknownFields] = merged
	return origin
}

func isChildList(raw any) bool {
	switch raw.(type) {
	case nil, []Node, []*Node, []map[string]any, []any:
		return true
	}
	return false
}

func normalizeChildren(raw any, path []string) ([]Node, error) {
	var items []any
	switch val := raw.(type) {
	case nil:
		return []Node{}, nil
	case []Node:
		items = make([]any, len(val))
		for i := range val {
			items[i] = &val[i]
		}
	case []*Node:
		items = make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
	case []map[string]any:
		items = make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
	case []any:
		items = val
	default:
		return nil, fmt.Errorf("%w at %s: children must be an array, got %T", ErrInvalidNode, PathID(path), raw)
	}

	children := make([]Node, 0, len(items))
	for i, item := range items {
		child, err := Normalize(item, childPath(path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func childPath(path []string, i int) []string {
	res := make([]string, len(path)+1)
	copy(res, path)
	res[len(path)] = strconv.Itoa(i)
	return res
}
