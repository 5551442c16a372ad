// Package pipeline drives import (source tree to canonical tree) and render
// (canonical tree to target output) passes.
package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/diagnostics"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
)

// DefaultNamespace is used for unknown node kinds when Options does not
// specify one.
const DefaultNamespace = "ep"

type Options struct {
	// Namespace of canonical block kinds, unknown nodes get "<ns>/unknown".
	Namespace string
}

// Pipeline is safe for concurrent use as long as registries are not modified
// while passes run.
type Pipeline struct {
	imports   *registry.ImportRegistry
	renderers *registry.RendererRegistry
	namespace string
	log       *zap.Logger
}

// ImportResult is outcome of import pass.
type ImportResult struct {
	Nodes       []canonical.Node
	Diagnostics *diagnostics.Report
}

// RenderResult is outcome of render pass. Output is string for markup
// targets and []any of per-root view-models for editor.
type RenderResult struct {
	Target      common.Target
	Output      any
	Diagnostics *diagnostics.Report
}

// HTML returns output of markup pass, empty string for editor pass.
func (r *RenderResult) HTML() string {
	s, _ := r.Output.(string)
	return s
}

// ConvertResult combines both passes. Import and render diagnostics are kept
// apart, lossiness of import is not a property of rendering.
type ConvertResult struct {
	Nodes             []canonical.Node
	Output            any
	ImportDiagnostics *diagnostics.Report
	RenderDiagnostics *diagnostics.Report
}

func New(imports *registry.ImportRegistry, renderers *registry.RendererRegistry, opts Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if imports == nil {
		imports = registry.NewImportRegistry(log)
	}
	if renderers == nil {
		renderers = registry.NewRendererRegistry(log)
	}
	ns := strings.Trim(strings.TrimSpace(opts.Namespace), "/")
	if ns == "" {
		ns = DefaultNamespace
	}
	return &Pipeline{
		imports:   imports,
		renderers: renderers,
		namespace: ns,
		log:       log.Named("pipeline"),
	}
}

func (p *Pipeline) Imports() *registry.ImportRegistry {
	return p.imports
}

func (p *Pipeline) Renderers() *registry.RendererRegistry {
	return p.renderers
}

func (p *Pipeline) Namespace() string {
	return p.namespace
}

// context makes sure every rule gets usable context with logger.
func (p *Pipeline) context(ctx *registry.Context) *registry.Context {
	ctx = ctx.WithRenderedChildren(nil)
	if ctx.Log == nil {
		ctx.Log = p.log
	}
	return ctx
}

// ImportTree converts source blocks into canonical tree. Malformed content
// never fails the pass, it degrades into unknown nodes. Error is returned only
// when resulting node could not be normalized which means misbehaving
// transform.
func (p *Pipeline) ImportTree(blocks []source.Block, ctx *registry.Context) (*ImportResult, error) {
	ctx = p.context(ctx)
	report := diagnostics.New()

	nodes := make([]canonical.Node, 0, len(blocks))
	for i := range blocks {
		node, err := p.importNode(&blocks[i], []string{strconv.Itoa(i)}, nil, ctx, report)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	report.Sort()

	p.log.Debug("Import done",
		zap.Int("roots", len(nodes)),
		zap.Int("transformed", report.Count(diagnostics.StatusTransformed)),
		zap.Int("partial", report.Count(diagnostics.StatusPartial)),
		zap.Int("fallback", report.Count(diagnostics.StatusFallback)))

	return &ImportResult{Nodes: nodes, Diagnostics: report}, nil
}

func (p *Pipeline) importNode(block *source.Block, path, chain []string, ctx *registry.Context, report *diagnostics.Report) (canonical.Node, error) {
	out := registry.ApplyImportTransform(p.imports, p.namespace, block, ctx)
	node := out.Node

	// final id is needed for children diagnostics before node is normalized
	if node.ID == "" {
		node.ID = canonical.PathID(path)
	}
	chain = append(chain[:len(chain):len(chain)], node.ID)

	// children are imported regardless of what happened to the parent
	children := make([]canonical.Node, 0, len(node.Children)+len(block.InnerBlocks))
	children = append(children, node.Children...)
	for j := range block.InnerBlocks {
		child, err := p.importNode(&block.InnerBlocks[j], childPath(path, len(children)), chain, ctx, report)
		if err != nil {
			return canonical.Node{}, err
		}
		children = append(children, child)
	}
	node.Children = children

	normalized, err := canonical.Normalize(node, path)
	if err != nil {
		return canonical.Node{}, fmt.Errorf("import of %q produced invalid node: %w", block.Name, err)
	}

	item := diagnostics.Item{
		NodePath:        chain,
		OriginBlockName: block.Name,
		TransformID:     out.TransformID,
		Lossiness:       normalized.Lossiness,
		Status:          diagnostics.StatusFromLossiness(normalized.Lossiness),
	}
	switch {
	case out.Err != nil:
		item.Code = diagnostics.CodeTransformFailed
		item.Message = out.Err.Error()
	case out.TransformID == "":
		item.Code = diagnostics.CodeNoTransform
		item.Message = normalized.PropString("reason")
	}
	report.Add(item)

	return normalized, nil
}

// RenderTree produces target output for canonical nodes. Missing or failing
// renderers never fail the pass, they are reported as unsupported.
func (p *Pipeline) RenderTree(nodes []canonical.Node, target common.Target, ctx *registry.Context) (*RenderResult, error) {
	target, err := common.ParseTarget(string(target))
	if err != nil {
		return nil, fmt.Errorf("unable to render: %w", err)
	}
	ctx = p.context(ctx)
	report := diagnostics.New()

	outputs := make([]any, 0, len(nodes))
	for i := range nodes {
		outputs = append(outputs, p.renderNode(&nodes[i], nil, target, ctx, report))
	}
	report.Sort()

	res := &RenderResult{Target: target, Diagnostics: report}
	if target.Markup() {
		res.Output = joinMarkup(outputs)
	} else {
		res.Output = outputs
	}

	p.log.Debug("Render done",
		zap.Stringer("target", target),
		zap.Int("roots", len(nodes)),
		zap.Int("unsupported", report.Count(diagnostics.StatusUnsupported)))

	return res, nil
}

func (p *Pipeline) renderNode(node *canonical.Node, chain []string, target common.Target, ctx *registry.Context, report *diagnostics.Report) any {
	chain = append(chain[:len(chain):len(chain)], node.ID)

	rendered := make([]any, 0, len(node.Children))
	for i := range node.Children {
		rendered = append(rendered, p.renderNode(&node.Children[i], chain, target, ctx, report))
	}

	out := registry.ApplyRenderer(p.renderers, node, target, ctx.WithRenderedChildren(rendered))

	item := diagnostics.Item{
		NodePath:        chain,
		OriginBlockName: node.OriginBlockName(),
		RendererID:      out.RendererID,
		Lossiness:       node.Lossiness,
		Status:          diagnostics.StatusFromLossiness(node.Lossiness),
	}
	output := out.Output
	switch {
	case out.RendererID == "":
		item.Status = diagnostics.StatusUnsupported
		item.Code = diagnostics.CodeRendererMissing
		item.Message = fmt.Sprintf("no renderer for %q on target %s", node.BlockKind, target)
		output = missingOutput(node, target, rendered)
	case out.Err != nil:
		item.Status = diagnostics.StatusUnsupported
		item.Code = diagnostics.CodeRendererFailed
		item.Message = out.Err.Error()
		output = missingOutput(node, target, rendered)
	case target.Markup():
		if _, ok := output.(string); !ok && output != nil {
			item.Status = diagnostics.StatusUnsupported
			item.Code = diagnostics.CodeRendererFailed
			item.Message = fmt.Sprintf("renderer returned %T for markup target %s", output, target)
			output = missingOutput(node, target, rendered)
		}
	}
	if out.TargetUsed != "" && out.TargetUsed != target && item.Message == "" {
		item.Message = "rendered for " + out.TargetUsed.String()
	}
	report.Add(item)

	return output
}

// missingOutput is contribution of node nobody could render: nothing for
// markup targets and inert placeholder for editor.
func missingOutput(node *canonical.Node, target common.Target, rendered []any) any {
	if target.Markup() {
		return ""
	}
	vm := registry.ViewModel{
		Kind:      registry.KindPlaceholder,
		ID:        node.ID,
		BlockKind: node.BlockKind,
		Children:  rendered,
	}
	if name := node.OriginBlockName(); name != "" {
		vm.Props = map[string]any{"blockName": name}
	}
	return vm
}

func joinMarkup(outputs []any) string {
	var sb strings.Builder
	for _, o := range outputs {
		if s, ok := o.(string); ok {
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// Convert imports blocks and renders resulting tree for target.
func (p *Pipeline) Convert(blocks []source.Block, target common.Target, ctx *registry.Context) (*ConvertResult, error) {
	imported, err := p.ImportTree(blocks, ctx)
	if err != nil {
		return nil, err
	}
	rendered, err := p.RenderTree(imported.Nodes, target, ctx)
	if err != nil {
		return nil, err
	}
	return &ConvertResult{
		Nodes:             imported.Nodes,
		Output:            rendered.Output,
		ImportDiagnostics: imported.Diagnostics,
		RenderDiagnostics: rendered.Diagnostics,
	}, nil
}

func childPath(path []string, i int) []string {
	res := make([]string, len(path)+1)
	copy(res, path)
	res[len(path)] = strconv.Itoa(i)
	return res
}
