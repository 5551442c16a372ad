// Package packs provides import transforms and renderers for the common
// WordPress block families. Every pack is plain data registered into
// registries, nothing in the pipeline knows about particular blocks.
package packs

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/style"
)

type Options struct {
	// Namespace of produced block kinds and rule ids, "ep" when empty.
	Namespace string
	// HeadingAnchors generates anchors for headings which do not have one.
	HeadingAnchors bool
	// SanitizeHTML cleans raw HTML blocks on preview and publish.
	SanitizeHTML bool
}

func (o Options) ns() string {
	if ns := strings.Trim(strings.TrimSpace(o.Namespace), "/"); ns != "" {
		return ns
	}
	return "ep"
}

func (o Options) kind(name string) string {
	return o.ns() + "/" + name
}

func (o Options) id(parts ...string) string {
	return o.ns() + "." + strings.Join(parts, ".")
}

// Pack is a named set of rules for one block family.
type Pack struct {
	Name      string
	Imports   []registry.ImportTransform
	Renderers []registry.Renderer
}

// All returns every pack in registration order.
func All(opts Options) []Pack {
	return []Pack{
		Paragraph(opts),
		Image(opts),
		Layout(opts),
		Content(opts),
		HTML(opts),
	}
}

// Select returns packs with requested names in registration order, all
// packs when no names are given.
func Select(opts Options, names ...string) ([]Pack, error) {
	all := All(opts)
	if len(names) == 0 {
		return all, nil
	}
	for _, name := range names {
		if !slices.ContainsFunc(all, func(p Pack) bool { return p.Name == name }) {
			return nil, fmt.Errorf("unknown mapping pack %q", name)
		}
	}
	return slices.DeleteFunc(all, func(p Pack) bool { return !slices.Contains(names, p.Name) }), nil
}

// Register adds all packs to registries. Every valid rule is registered even
// when some are rejected, errors are combined.
func Register(imports *registry.ImportRegistry, renderers *registry.RendererRegistry, opts Options) error {
	return RegisterPacks(imports, renderers, All(opts))
}

func RegisterPacks(imports *registry.ImportRegistry, renderers *registry.RendererRegistry, packs []Pack) (err error) {
	for _, p := range packs {
		err = multierr.Append(err, imports.RegisterPack(p.Imports))
		err = multierr.Append(err, renderers.RegisterPack(p.Renderers))
	}
	return err
}

var (
	markupTargets = []common.Target{common.TargetPreview, common.TargetPublish}
	editorTarget  = []common.Target{common.TargetEditor}
)

// editorView builds view-model with non-empty props only.
func editorView(kind string, node *canonical.Node, ctx *registry.Context, props map[string]any) registry.ViewModel {
	clean := make(map[string]any, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val == "" {
				continue
			}
		}
		clean[k] = v
	}
	var children []any
	if ctx != nil {
		children = slices.Clone(ctx.RenderedChildren)
	}
	if children == nil {
		children = []any{}
	}
	return registry.ViewModel{
		Kind:      kind,
		ID:        node.ID,
		BlockKind: node.BlockKind,
		Props:     clean,
		Children:  children,
	}
}

// unmapped returns sorted names of block attributes not listed in known.
func unmapped(block *source.Block, known ...string) []string {
	var res []string
	for name := range block.Attributes {
		if !slices.Contains(known, name) {
			res = append(res, name)
		}
	}
	slices.Sort(res)
	return res
}

// lossinessFor reports partial conversion when some attributes were left
// behind. Those are still available in node origin.
func lossinessFor(props map[string]any, rest []string) canonical.Lossiness {
	if len(rest) == 0 {
		return canonical.LossinessNone
	}
	list := make([]any, len(rest))
	for i, r := range rest {
		list[i] = r
	}
	props["unmappedAttributes"] = list
	return canonical.LossinessPartial
}

// newNode starts canonical node for block with standard provenance.
func newNode(kind string, block *source.Block, props map[string]any, rest []string) canonical.Node {
	return canonical.Node{
		BlockKind: kind,
		Props:     props,
		Origin:    registry.Origin(block),
		Lossiness: lossinessFor(props, rest),
	}
}

// textAlign reads alignment from any of the places editor versions keep it.
func textAlign(block *source.Block) style.Value {
	for _, raw := range []any{
		block.AttrPath("style", "typography", "textAlign"),
		block.Attr("textAlign"),
		block.Attr("align"),
	} {
		if v := styleValue(raw); !v.IsEmpty() {
			return v
		}
	}
	return style.Value{}
}

// styleValue parses attribute into Style Value, plain strings become
// literals.
func styleValue(raw any) style.Value {
	v := style.Parse(raw)
	if v.Kind() == style.KindBare {
		return style.Literal(v.Literal())
	}
	return v
}

func themeOf(ctx *registry.Context) *style.Theme {
	if ctx == nil {
		return nil
	}
	return ctx.Theme
}

// propValue reads Style Value stored in canonical props.
func propValue(node *canonical.Node, name string) style.Value {
	return style.Parse(node.Prop(name))
}

// propInt reads integer prop stored as json.Number.
func propInt(node *canonical.Node, name string) (int, bool) {
	switch v := node.Prop(name).(type) {
	case int:
		return v, true
	case json.Number:
		i, err := strconv.Atoi(v.String())
		return i, err == nil
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	}
	return 0, false
}

// attrString returns attribute as string, numbers are formatted.
func attrString(block *source.Block, name string) string {
	switch v := block.Attr(name).(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// classNames splits className attribute (or prop) keeping order.
func classNames(v any) []string {
	s, _ := v.(string)
	return strings.Fields(s)
}
