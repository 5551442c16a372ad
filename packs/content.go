package packs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/css"
	"github.com/theGeekist/edgepress-sub001/markup"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/style"
)

var (
	headingAttrs = []string{
		"align", "anchor", "backgroundColor", "className", "content", "fontSize",
		"level", "style", "textAlign", "textColor",
	}
	quoteAttrs     = []string{"align", "anchor", "className", "citation", "style", "textAlign", "value"}
	spacerAttrs    = []string{"height", "style", "width"}
	separatorAttrs = []string{"backgroundColor", "className", "opacity", "style", "tagName"}
	embedAttrs     = []string{
		"align", "allowResponsive", "caption", "className", "previewable",
		"providerNameSlug", "responsive", "type", "url",
	}
	headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}
)

const legacyEmbedPrefix = "core-embed/"

// Content pack handles heading, quote, spacer, separator and embed blocks.
// Embeds are rendered as links on preview so previews never load third
// party players.
func Content(opts Options) Pack {
	var (
		heading   = opts.kind("heading")
		quote     = opts.kind("quote")
		spacer    = opts.kind("spacer")
		separator = opts.kind("separator")
		embed     = opts.kind("embed")
	)
	transform := func(name string, kind string, fn func(string, *source.Block, *registry.Context) canonical.Node) registry.ImportTransform {
		return registry.ImportTransform{
			ID:               opts.id(name),
			SourceBlockNames: []string{"core/" + name},
			ToCanonical: func(block *source.Block, ctx *registry.Context) (canonical.Node, error) {
				return fn(kind, block, ctx), nil
			},
		}
	}
	html := func(name string, kinds []string, targets []common.Target, fn func(*canonical.Node, *registry.Context) (string, error)) registry.Renderer {
		return registry.Renderer{
			ID:         opts.id(name),
			BlockKinds: kinds,
			Targets:    targets,
			Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
				return fn(node, ctx)
			},
		}
	}

	importHeadingNode := func(kind string, block *source.Block, _ *registry.Context) canonical.Node {
		return importHeading(kind, block, opts.HeadingAnchors)
	}

	embedImport := transform("embed", embed, importEmbed)
	// legacy embeds are named after provider (core-embed/youtube)
	embedImport.SourceBlockNames = nil
	embedImport.CanHandle = func(name string, _ *source.Block, _ *registry.Context) bool {
		return name == "core/embed" || strings.HasPrefix(name, legacyEmbedPrefix)
	}

	return Pack{
		Name: "content",
		Imports: []registry.ImportTransform{
			transform("heading", heading, importHeadingNode),
			transform("quote", quote, importQuote),
			transform("spacer", spacer, importSpacer),
			transform("separator", separator, importSeparator),
			embedImport,
		},
		Renderers: []registry.Renderer{
			html("heading.html", []string{heading}, markupTargets, renderHeading),
			html("quote.html", []string{quote}, markupTargets, renderQuote),
			html("spacer.html", []string{spacer}, markupTargets, renderSpacer),
			html("separator.html", []string{separator}, markupTargets, renderSeparator),
			html("embed.html", []string{embed}, []common.Target{common.TargetPublish}, renderEmbed),
			html("embed.preview", []string{embed}, []common.Target{common.TargetPreview}, renderEmbedPreview),
			{
				ID:         opts.id("content", "editor"),
				BlockKinds: []string{heading, quote, spacer, separator},
				Targets:    editorTarget,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					return contentView(node, ctx), nil
				},
			},
		},
	}
}

func importHeading(kind string, block *source.Block, anchors bool) canonical.Node {
	content := block.AttrString("content")
	anchor := block.AttrString("anchor")
	level, _ := strconv.Atoi(attrString(block, "level"))

	if h, ok := markup.FindElement(block.InnerHTML, headingTags...); ok {
		if content == "" {
			content = h.InnerHTML
		}
		if anchor == "" {
			anchor = h.Attrs["id"]
		}
		if level == 0 {
			level = int(h.Tag[1] - '0')
		}
	}
	if normalized, err := markup.NormalizeFragment(content, "h2"); err == nil {
		content = normalized
	}
	if level < 1 || level > 6 {
		level = 2
	}
	if anchor == "" && anchors {
		anchor = slug.Make(markup.Text(content))
	}

	props := map[string]any{
		"content": content,
		"level":   level,
	}
	if anchor != "" {
		props["anchor"] = anchor
	}
	if align := textAlign(block); !align.IsEmpty() {
		props["textAlign"] = align
	}
	if cls := block.AttrString("className"); cls != "" {
		props["className"] = cls
	}
	colorProps(block, props)

	return newNode(kind, block, props, unmapped(block, headingAttrs...))
}

func headingLevel(node *canonical.Node) int {
	if level, ok := propInt(node, "level"); ok && level >= 1 && level <= 6 {
		return level
	}
	return 2
}

func renderHeading(node *canonical.Node, ctx *registry.Context) (string, error) {
	el := markup.New("h" + strconv.Itoa(headingLevel(node))).Class("wp-block-heading")
	if align := style.ResolveEnum(propValue(node, "textAlign"), textAlignments, ""); align != "" {
		el.Class("has-text-align-" + align)
	}
	applyColors(el, node, themeOf(ctx))
	el.Class(classNames(node.Prop("className"))...)
	el.Attr("id", node.PropString("anchor"))
	return el.Raw(node.PropString("content")).String(), nil
}

func importQuote(kind string, block *source.Block, _ *registry.Context) canonical.Node {
	citation := block.AttrString("citation")
	if citation == "" {
		if c, ok := markup.FindElement(block.InnerHTML, "cite"); ok {
			citation = strings.TrimSpace(c.InnerHTML)
		}
	}

	props := map[string]any{}
	if citation != "" {
		props["citation"] = citation
	}
	// before inner blocks quote text was kept in attribute
	if value := block.AttrString("value"); value != "" {
		props["value"] = value
	}
	if align := textAlign(block); !align.IsEmpty() {
		props["textAlign"] = align
	}
	if anchor := block.AttrString("anchor"); anchor != "" {
		props["anchor"] = anchor
	}
	if cls := block.AttrString("className"); cls != "" {
		props["className"] = cls
	}
	return newNode(kind, block, props, unmapped(block, quoteAttrs...))
}

func renderQuote(node *canonical.Node, ctx *registry.Context) (string, error) {
	el := markup.New("blockquote").Class("wp-block-quote")
	if align := style.ResolveEnum(propValue(node, "textAlign"), textAlignments, ""); align != "" {
		el.Class("has-text-align-" + align)
	}
	el.Class(classNames(node.Prop("className"))...)
	el.Attr("id", node.PropString("anchor"))
	el.Raw(node.PropString("value")).Raw(ctx.ChildrenHTML())
	if citation := node.PropString("citation"); citation != "" {
		el.Child(markup.New("cite").Raw(citation))
	}
	return el.String(), nil
}

func importSpacer(kind string, block *source.Block, ctx *registry.Context) canonical.Node {
	props := map[string]any{}

	height := spacerSize(block.Attr("height"))
	if height.IsEmpty() {
		// very old spacers only have inline style
		if div, ok := markup.FindElement(block.InnerHTML, "div"); ok {
			decls := css.NewParser(ctx.Logger()).ParseInline(div.Attrs["style"])
			if v, ok := decls.Get("height"); ok {
				height = spacerSize(v.Raw)
			}
		}
	}
	if height.IsEmpty() {
		height = style.Literal("100px")
	}
	props["height"] = height
	if width := spacerSize(block.Attr("width")); !width.IsEmpty() {
		props["width"] = width
	}
	return newNode(kind, block, props, unmapped(block, spacerAttrs...))
}

// spacerSize reads spacer dimension, plain numbers are pixels.
func spacerSize(raw any) style.Value {
	switch v := raw.(type) {
	case json.Number:
		return style.Literal(v.String() + "px")
	case float64:
		return style.Literal(strconv.FormatFloat(v, 'f', -1, 64) + "px")
	case int:
		return style.Literal(strconv.Itoa(v) + "px")
	case string:
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return style.Literal(strings.TrimSpace(v) + "px")
		}
	}
	return styleValue(raw)
}

func renderSpacer(node *canonical.Node, ctx *registry.Context) (string, error) {
	theme := themeOf(ctx)
	el := markup.New("div").Class("wp-block-spacer").BoolAttr("aria-hidden", true)
	el.Style("height", style.ResolveSpacing(propValue(node, "height"), theme))
	el.Style("width", style.ResolveSpacing(propValue(node, "width"), theme))
	return el.String(), nil
}

func importSeparator(kind string, block *source.Block, _ *registry.Context) canonical.Node {
	props := map[string]any{}
	if cls := block.AttrString("className"); cls != "" {
		props["className"] = cls
	}
	opacity := block.AttrString("opacity")
	if opacity == "" {
		opacity = "alpha-channel"
	}
	props["opacity"] = opacity
	colorProps(block, props)
	return newNode(kind, block, props, unmapped(block, separatorAttrs...))
}

func renderSeparator(node *canonical.Node, ctx *registry.Context) (string, error) {
	el := markup.New("hr").Class("wp-block-separator")
	switch node.PropString("opacity") {
	case "css":
		el.Class("has-css-opacity")
	default:
		el.Class("has-alpha-channel-opacity")
	}
	applyColors(el, node, themeOf(ctx))
	el.Class(classNames(node.Prop("className"))...)
	return el.String(), nil
}

func importEmbed(kind string, block *source.Block, _ *registry.Context) canonical.Node {
	url := block.AttrString("url")
	if url == "" {
		if wrapper, ok := markup.FindElement(block.InnerHTML, "div"); ok {
			url = markup.Text(wrapper.InnerHTML)
		}
	}
	provider := block.AttrString("providerNameSlug")
	if provider == "" {
		provider, _ = strings.CutPrefix(block.Name, legacyEmbedPrefix)
		if provider == block.Name {
			provider = ""
		}
	}
	caption := block.AttrString("caption")
	if caption == "" {
		if fc, ok := markup.FindElement(block.InnerHTML, "figcaption"); ok {
			caption = strings.TrimSpace(fc.InnerHTML)
		}
	}

	props := map[string]any{}
	for name, value := range map[string]string{
		"url":       url,
		"provider":  provider,
		"type":      block.AttrString("type"),
		"caption":   caption,
		"className": block.AttrString("className"),
	} {
		if value != "" {
			props[name] = value
		}
	}
	if align := styleValue(block.Attr("align")); !align.IsEmpty() {
		props["align"] = align
	}

	node := newNode(kind, block, props, unmapped(block, embedAttrs...))
	if url == "" {
		node.Lossiness = canonical.LossinessPartial
	}
	return node
}

func embedFigure(node *canonical.Node) *markup.Element {
	fig := markup.New("figure").Class("wp-block-embed")
	if t := node.PropString("type"); t != "" {
		fig.Class("is-type-" + t)
	}
	if p := node.PropString("provider"); p != "" {
		fig.Class("is-provider-"+p, "wp-block-embed-"+p)
	}
	if align := style.ResolveEnum(propValue(node, "align"), blockAlignments, ""); align != "" {
		fig.Class("align" + align)
	}
	fig.Class(classNames(node.Prop("className"))...)
	return fig
}

func embedCaption(fig *markup.Element, node *canonical.Node) string {
	if caption := node.PropString("caption"); caption != "" {
		fig.Child(markup.New("figcaption").Class("wp-element-caption").Raw(caption))
	}
	return fig.String()
}

func renderEmbed(node *canonical.Node, _ *registry.Context) (string, error) {
	url := node.PropString("url")
	if url == "" {
		return "", fmt.Errorf("embed has no url")
	}
	fig := embedFigure(node)
	fig.Child(markup.New("div").Class("wp-block-embed__wrapper").Text(url))
	return embedCaption(fig, node), nil
}

func renderEmbedPreview(node *canonical.Node, _ *registry.Context) (string, error) {
	url := node.PropString("url")
	if url == "" {
		return "", fmt.Errorf("embed has no url")
	}
	label := node.PropString("provider")
	if label == "" {
		label = url
	}
	fig := embedFigure(node).Class("is-preview")
	fig.Child(markup.New("a").Class("wp-block-embed__link").Attr("href", url).Attr("rel", "noopener").Text(label))
	return embedCaption(fig, node), nil
}

// contentView is editor view-model of simple content blocks, kind is the
// block kind without namespace.
func contentView(node *canonical.Node, ctx *registry.Context) registry.ViewModel {
	kind := node.BlockKind
	if i := strings.LastIndexByte(kind, '/'); i >= 0 {
		kind = kind[i+1:]
	}
	theme := themeOf(ctx)

	props := map[string]any{}
	switch kind {
	case "heading":
		props["level"] = headingLevel(node)
		props["content"] = node.PropString("content")
		props["anchor"] = node.PropString("anchor")
		props["textAlign"] = style.ResolveEnum(propValue(node, "textAlign"), textAlignments, "")
	case "quote":
		props["citation"] = node.PropString("citation")
		props["value"] = node.PropString("value")
	case "spacer":
		props["height"] = style.ResolveSpacing(propValue(node, "height"), theme)
		props["width"] = style.ResolveSpacing(propValue(node, "width"), theme)
	case "separator":
		props["opacity"] = node.PropString("opacity")
		props["className"] = node.PropString("className")
	}
	return editorView(kind, node, ctx, props)
}
