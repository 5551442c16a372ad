package packs

import (
	"slices"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/markup"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/style"
)

var (
	layoutVariants = map[string]string{
		"core/group":   "group",
		"core/columns": "columns",
		"core/column":  "column",
	}
	containerTags      = []string{"div", "section", "main", "article", "aside", "header", "footer"}
	justifications     = []string{"left", "center", "right", "space-between", "stretch"}
	verticalAlignments = []string{"top", "center", "bottom", "stretch", "space-between"}
	paddingSides       = []string{"top", "right", "bottom", "left"}
)

var layoutAttrs = []string{
	"align", "anchor", "backgroundColor", "className", "fontSize", "isStackedOnMobile",
	"layout", "style", "tagName", "textColor", "verticalAlignment", "width",
}

// Layout pack turns group, columns and column blocks into layout containers.
// Container children are regular canonical nodes, spacing is kept as Style
// Values and resolved against theme when rendered.
func Layout(opts Options) Pack {
	kind := opts.kind("layout-container")
	names := make([]string, 0, len(layoutVariants))
	for name := range layoutVariants {
		names = append(names, name)
	}
	slices.Sort(names)

	return Pack{
		Name: "layout",
		Imports: []registry.ImportTransform{{
			ID:               opts.id("layout"),
			SourceBlockNames: names,
			ToCanonical: func(block *source.Block, _ *registry.Context) (canonical.Node, error) {
				return importLayout(kind, block), nil
			},
		}},
		Renderers: []registry.Renderer{
			{
				ID:         opts.id("layout", "html"),
				BlockKinds: []string{kind},
				Targets:    markupTargets,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					return renderLayout(node, ctx), nil
				},
			},
			{
				ID:         opts.id("layout", "editor"),
				BlockKinds: []string{kind},
				Targets:    editorTarget,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					return editorView("layout-container", node, ctx, map[string]any{
						"variant":        node.PropString("variant"),
						"tagName":        containerTag(node),
						"layoutType":     node.PropString("layoutType"),
						"orientation":    node.PropString("orientation"),
						"gap":            style.ResolveSpacing(propValue(node, "gap"), themeOf(ctx)),
						"justifyContent": style.ResolveEnum(propValue(node, "justifyContent"), justifications, ""),
						"width":          style.ResolveSpacing(propValue(node, "width"), themeOf(ctx)),
					}), nil
				},
			},
		},
	}
}

func importLayout(kind string, block *source.Block) canonical.Node {
	variant := layoutVariants[block.Name]
	if variant == "" {
		variant = "group"
	}
	props := map[string]any{"variant": variant}
	set := func(name string, v style.Value) {
		if !v.IsEmpty() {
			props[name] = v
		}
	}

	if tag := block.AttrString("tagName"); tag != "" {
		props["tagName"] = tag
	}
	if t, ok := block.AttrPath("layout", "type").(string); ok && t != "" {
		props["layoutType"] = t
	}
	if o, ok := block.AttrPath("layout", "orientation").(string); ok && o != "" {
		props["orientation"] = o
	}
	set("justifyContent", styleValue(block.AttrPath("layout", "justifyContent")))
	set("verticalAlignment", styleValue(block.Attr("verticalAlignment")))
	set("align", styleValue(block.Attr("align")))
	set("width", styleValue(block.Attr("width")))

	// blockGap is either single value or {top, left}, containers lay children
	// out horizontally so left wins
	switch gap := block.AttrPath("style", "spacing", "blockGap").(type) {
	case map[string]any:
		if v := style.Parse(gap["left"]); !v.IsEmpty() {
			set("gap", v)
		} else {
			set("gap", style.Parse(gap["top"]))
		}
	default:
		set("gap", style.Parse(gap))
	}

	if padding, ok := block.AttrPath("style", "spacing", "padding").(map[string]any); ok {
		sides := map[string]any{}
		for _, side := range paddingSides {
			if v := style.Parse(padding[side]); !v.IsEmpty() {
				sides[side] = v
			}
		}
		if len(sides) > 0 {
			props["padding"] = sides
		}
	}

	if anchor := block.AttrString("anchor"); anchor != "" {
		props["anchor"] = anchor
	}
	if cls := block.AttrString("className"); cls != "" {
		props["className"] = cls
	}
	colorProps(block, props)

	return newNode(kind, block, props, unmapped(block, layoutAttrs...))
}

func containerTag(node *canonical.Node) string {
	if tag := node.PropString("tagName"); slices.Contains(containerTags, tag) {
		return tag
	}
	return "div"
}

func renderLayout(node *canonical.Node, ctx *registry.Context) string {
	theme := themeOf(ctx)
	variant := node.PropString("variant")
	if variant == "" {
		variant = "group"
	}

	el := markup.New(containerTag(node)).Class("wp-block-" + variant)
	if align := style.ResolveEnum(propValue(node, "align"), blockAlignments, ""); align != "" {
		el.Class("align" + align)
	}

	switch layout := node.PropString("layoutType"); {
	case variant == "columns" || layout == "flex":
		el.Class("is-layout-flex")
	case layout == "constrained" || layout == "grid":
		el.Class("is-layout-" + layout)
	}
	if node.PropString("orientation") == "vertical" {
		el.Class("is-vertical")
	}
	if j := style.ResolveEnum(propValue(node, "justifyContent"), justifications, ""); j != "" {
		el.Class("is-content-justification-" + j)
	}
	if va := style.ResolveEnum(propValue(node, "verticalAlignment"), verticalAlignments, ""); va != "" {
		if variant == "columns" {
			el.Class("are-vertically-aligned-" + va)
		} else {
			el.Class("is-vertically-aligned-" + va)
		}
	}
	applyColors(el, node, theme)
	el.Class(classNames(node.Prop("className"))...)
	el.Attr("id", node.PropString("anchor"))

	if variant == "column" {
		el.Style("flex-basis", style.ResolveSpacing(propValue(node, "width"), theme))
	}
	if padding, ok := node.Prop("padding").(map[string]any); ok {
		for _, side := range paddingSides {
			el.Style("padding-"+side, style.ResolveSpacing(style.Parse(padding[side]), theme))
		}
	}
	el.Style("gap", style.ResolveSpacing(propValue(node, "gap"), theme))

	return el.Raw(ctx.ChildrenHTML()).String()
}
