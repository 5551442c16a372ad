package registry

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/source"
)

// ImportOutcome is result of importing single source block. TransformID is
// empty when no transform matched. Err is set when matched transform failed,
// Node is unknown node in that case.
type ImportOutcome struct {
	Node        canonical.Node
	TransformID string
	Lossiness   canonical.Lossiness
	Err         error
}

// ApplyImportTransform resolves and runs import transform for block. It
// never fails: unmatched or failed blocks are wrapped into unknown nodes.
// Children of the block are not imported.
func ApplyImportTransform(reg *ImportRegistry, namespace string, block *source.Block, ctx *Context) ImportOutcome {
	t, ok := reg.Resolve(block.Name, block, ctx)
	if !ok {
		return ImportOutcome{
			Node:      canonical.NewUnknownNode(namespace, unknownInput(block, "no import transform matched "+quoteName(block.Name))),
			Lossiness: canonical.LossinessFallback,
		}
	}

	node, err := callToCanonical(t, block, ctx)
	if err == nil && strings.TrimSpace(node.BlockKind) == "" {
		err = fmt.Errorf("import transform %q produced node without blockKind: %w", t.ID, canonical.ErrInvalidNode)
	}
	if err != nil {
		ctx.Logger().Debug("Import transform failed", zap.String("transform", t.ID), zap.String("block", block.Name), zap.Error(err))
		return ImportOutcome{
			Node:        canonical.NewUnknownNode(namespace, unknownInput(block, err.Error())),
			TransformID: t.ID,
			Lossiness:   canonical.LossinessFallback,
			Err:         err,
		}
	}

	node.Lossiness = canonical.ParseLossiness(string(node.Lossiness))
	if node.Origin == nil {
		node.Origin = make(map[string]any)
	}
	if _, ok := node.Origin[canonical.OriginBlockName]; !ok {
		node.Origin[canonical.OriginBlockName] = block.Name
	}
	return ImportOutcome{Node: node, TransformID: t.ID, Lossiness: node.Lossiness}
}

func callToCanonical(t ImportTransform, block *source.Block, ctx *Context) (node canonical.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import transform %q panicked: %v", t.ID, r)
		}
	}()
	return t.ToCanonical(block, ctx)
}

func unknownInput(block *source.Block, reason string) canonical.UnknownInput {
	return canonical.UnknownInput{
		SourceBlockName: block.Name,
		Attributes:      block.Attributes,
		InnerHTML:       block.InnerHTML,
		InnerContent:    block.InnerContent,
		InnerBlocks:     block.InnerBlocks,
		Reason:          reason,
	}
}

func quoteName(name string) string {
	if name == "" {
		return "for unnamed block"
	}
	return fmt.Sprintf("for %q", name)
}

// RenderOutcome is result of rendering single node. RendererID is empty and
// Output nil when no renderer matched on any degraded target.
type RenderOutcome struct {
	Output     any
	RendererID string
	TargetUsed common.Target
	Err        error
}

// ApplyRenderer resolves renderer for node and invokes it with resolved
// target.
func ApplyRenderer(reg *RendererRegistry, node *canonical.Node, target common.Target, ctx *Context) RenderOutcome {
	rn, used, ok := reg.Resolve(node, target, ctx)
	if !ok {
		return RenderOutcome{}
	}

	out, err := callRender(rn, node, used, ctx)
	if err != nil {
		ctx.Logger().Debug("Renderer failed", zap.String("renderer", rn.ID), zap.String("node", node.ID), zap.Error(err))
		return RenderOutcome{RendererID: rn.ID, TargetUsed: used, Err: err}
	}
	return RenderOutcome{Output: out, RendererID: rn.ID, TargetUsed: used}
}

func callRender(rn Renderer, node *canonical.Node, target common.Target, ctx *Context) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer %q panicked: %v", rn.ID, r)
		}
	}()
	return rn.Render(node, target, ctx)
}

// Origin builds standard provenance map for node imported from block.
func Origin(block *source.Block) map[string]any {
	origin := map[string]any{
		canonical.OriginBlockName:    block.Name,
		canonical.OriginAttributes:   block.Attributes,
		canonical.OriginInnerHTML:    block.InnerHTML,
		canonical.OriginInnerContent: block.InnerContent,
	}
	if block.Attributes == nil {
		origin[canonical.OriginAttributes] = map[string]any{}
	}
	if block.InnerContent == nil {
		origin[canonical.OriginInnerContent] = []any{}
	}
	return origin
}
