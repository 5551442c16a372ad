package canonical

const unknownKind = "unknown"

// UnknownInput carries raw source fragments to preserve inside unknown node.
type UnknownInput struct {
	SourceBlockName string
	Attributes      map[string]any
	InnerHTML       string
	InnerContent    []any
	// InnerBlocks are nested raw source blocks, kept as opaque data.
	InnerBlocks any
	Reason      string
}

// NewUnknownNode wraps unrecognized source block. It never fails: raw
// attributes, markup and nested blocks are kept verbatim in props so nothing
// is lost, structure of the subtree is.
func NewUnknownNode(namespace string, in UnknownInput) Node {
	if namespace == "" {
		namespace = "ep"
	}

	attrs := canonicalizeMap(in.Attributes)
	innerContent := Canonicalize(in.InnerContent)
	if innerContent == nil {
		innerContent = []any{}
	}
	innerBlocks := Canonicalize(in.InnerBlocks)
	if innerBlocks == nil {
		innerBlocks = []any{}
	}

	return Node{
		SchemaVersion:       SchemaVersion,
		SourceSchemaVersion: SchemaVersion,
		BlockKind:           namespace + "/" + unknownKind,
		Props: map[string]any{
			"blockName":    in.SourceBlockName,
			"attributes":   attrs,
			"innerHTML":    in.InnerHTML,
			"innerContent": innerContent,
			"innerBlocks":  innerBlocks,
			"reason":       in.Reason,
		},
		Children: []Node{},
		Origin: map[string]any{
			OriginBlockName: in.SourceBlockName,
		},
		Lossiness: LossinessFallback,
	}
}
