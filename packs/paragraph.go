package packs

import (
	"strings"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/markup"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/style"
)

var (
	textAlignments = []string{"left", "center", "right", "justify"}
	directions     = []string{"ltr", "rtl"}
)

var paragraphAttrs = []string{
	"align", "anchor", "backgroundColor", "className", "content", "direction",
	"dropCap", "fontSize", "style", "textAlign", "textColor",
}

// Paragraph pack handles core/paragraph.
func Paragraph(opts Options) Pack {
	kind := opts.kind("paragraph")
	return Pack{
		Name: "paragraph",
		Imports: []registry.ImportTransform{{
			ID:               opts.id("paragraph"),
			SourceBlockNames: []string{"core/paragraph"},
			ToCanonical: func(block *source.Block, _ *registry.Context) (canonical.Node, error) {
				return importParagraph(kind, block), nil
			},
		}},
		Renderers: []registry.Renderer{
			{
				ID:         opts.id("paragraph", "html"),
				BlockKinds: []string{kind},
				Targets:    markupTargets,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					return renderParagraph(node, ctx), nil
				},
			},
			{
				ID:         opts.id("paragraph", "editor"),
				BlockKinds: []string{kind},
				Targets:    editorTarget,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					return editorView("paragraph", node, ctx, map[string]any{
						"content":   node.PropString("content"),
						"dropCap":   node.PropBool("dropCap"),
						"direction": style.ResolveEnum(propValue(node, "direction"), directions, ""),
						"textAlign": style.ResolveEnum(propValue(node, "textAlign"), textAlignments, ""),
						"anchor":    node.PropString("anchor"),
					}), nil
				},
			},
		},
	}
}

func importParagraph(kind string, block *source.Block) canonical.Node {
	content := block.AttrString("content")
	anchor := block.AttrString("anchor")
	if content == "" {
		if p, ok := markup.FindElement(block.InnerHTML, "p"); ok {
			content = p.InnerHTML
			if anchor == "" {
				anchor = p.Attrs["id"]
			}
		} else {
			content = strings.TrimSpace(block.InnerHTML)
		}
	}
	if normalized, err := markup.NormalizeFragment(content, "p"); err == nil {
		content = normalized
	}

	props := map[string]any{
		"content": content,
		"dropCap": block.AttrBool("dropCap"),
	}
	if align := textAlign(block); !align.IsEmpty() {
		props["textAlign"] = align
	}
	if dir := block.AttrString("direction"); dir != "" {
		props["direction"] = dir
	}
	if anchor != "" {
		props["anchor"] = anchor
	}
	if cls := block.AttrString("className"); cls != "" {
		props["className"] = cls
	}
	colorProps(block, props)

	return newNode(kind, block, props, unmapped(block, paragraphAttrs...))
}

// colorProps reads preset (textColor="vivid-red") and custom
// (style.color.text="#fff") colors and font size.
func colorProps(block *source.Block, props map[string]any) {
	pick := func(prop, preset, namespace string, custom ...string) {
		if name := block.AttrString(preset); name != "" {
			props[prop] = style.Ref(namespace + "." + name)
			return
		}
		if v := styleValue(block.AttrPath(custom...)); !v.IsEmpty() {
			props[prop] = v
		}
	}
	pick("textColor", "textColor", "color", "style", "color", "text")
	pick("backgroundColor", "backgroundColor", "color", "style", "color", "background")
	pick("fontSize", "fontSize", "font-size", "style", "typography", "fontSize")
}

// applyColors adds WordPress color and font size classes for presets and
// inline styles for custom values.
func applyColors(el *markup.Element, node *canonical.Node, theme *style.Theme) {
	if v := propValue(node, "textColor"); !v.IsEmpty() {
		el.Class("has-text-color")
		if v.Kind() == style.KindRef {
			el.Class("has-" + style.ResolveEnum(v, nil, "") + "-color")
		} else {
			el.Style("color", style.ResolveSpacing(v, theme))
		}
	}
	if v := propValue(node, "backgroundColor"); !v.IsEmpty() {
		el.Class("has-background")
		if v.Kind() == style.KindRef {
			el.Class("has-" + style.ResolveEnum(v, nil, "") + "-background-color")
		} else {
			el.Style("background-color", style.ResolveSpacing(v, theme))
		}
	}
	if v := propValue(node, "fontSize"); !v.IsEmpty() {
		if v.Kind() == style.KindRef {
			el.Class("has-" + style.ResolveEnum(v, nil, "") + "-font-size")
		} else {
			el.Style("font-size", style.ResolveSpacing(v, theme))
		}
	}
}

func renderParagraph(node *canonical.Node, ctx *registry.Context) string {
	el := markup.New("p")
	if node.PropBool("dropCap") {
		el.Class("has-drop-cap")
	}
	if align := style.ResolveEnum(propValue(node, "textAlign"), textAlignments, ""); align != "" {
		el.Class("has-text-align-" + align)
	}
	applyColors(el, node, themeOf(ctx))
	el.Class(classNames(node.Prop("className"))...)
	el.Attr("id", node.PropString("anchor"))
	el.Attr("dir", style.ResolveEnum(propValue(node, "direction"), directions, ""))
	return el.Raw(node.PropString("content")).String()
}
