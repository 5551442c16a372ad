package packs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/markup"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/style"
)

var blockAlignments = []string{"left", "center", "right", "wide", "full"}

var imageAttrs = []string{
	"align", "alt", "aspectRatio", "caption", "className", "height", "href",
	"id", "lightbox", "linkDestination", "linkTarget", "rel", "scale",
	"sizeSlug", "title", "url", "width",
}

// Image pack handles core/image. Images reference media library by id, url
// and alt missing in the source are looked up through context media resolver
// at render time.
func Image(opts Options) Pack {
	kind := opts.kind("image")
	return Pack{
		Name: "image",
		Imports: []registry.ImportTransform{{
			ID:               opts.id("image"),
			SourceBlockNames: []string{"core/image"},
			ToCanonical: func(block *source.Block, _ *registry.Context) (canonical.Node, error) {
				return importImage(kind, block), nil
			},
		}},
		Renderers: []registry.Renderer{
			{
				ID:         opts.id("image", "html"),
				BlockKinds: []string{kind},
				Targets:    markupTargets,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					return renderImage(node, ctx)
				},
			},
			{
				ID:         opts.id("image", "editor"),
				BlockKinds: []string{kind},
				Targets:    editorTarget,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					img := resolveImage(node, ctx)
					return editorView("image", node, ctx, map[string]any{
						"mediaId": img.mediaID,
						"url":     img.url,
						"alt":     img.alt,
						"caption": node.PropString("caption"),
						"href":    node.PropString("href"),
						"width":   positive(img.width),
						"height":  positive(img.height),
					}), nil
				},
			},
		},
	}
}

func importImage(kind string, block *source.Block) canonical.Node {
	props := map[string]any{}
	set := func(name, value string) {
		if value != "" {
			props[name] = value
		}
	}

	mediaID := attrString(block, "id")
	url := block.AttrString("url")
	alt := block.AttrString("alt")
	caption := block.AttrString("caption")
	href := block.AttrString("href")

	if img, ok := markup.FindElement(block.InnerHTML, "img"); ok {
		if url == "" {
			url = img.Attrs["src"]
		}
		if alt == "" {
			alt = img.Attrs["alt"]
		}
		if mediaID == "" {
			for _, c := range img.Classes() {
				if id, ok := strings.CutPrefix(c, "wp-image-"); ok {
					mediaID = id
				}
			}
		}
	}
	if caption == "" {
		if fc, ok := markup.FindElement(block.InnerHTML, "figcaption"); ok {
			caption = strings.TrimSpace(fc.InnerHTML)
		}
	}
	if href == "" {
		if a, ok := markup.FindElement(block.InnerHTML, "a"); ok {
			href = a.Attrs["href"]
		}
	}

	set("mediaId", mediaID)
	set("url", url)
	set("alt", alt)
	set("caption", caption)
	set("href", href)
	set("sizeSlug", block.AttrString("sizeSlug"))
	set("className", block.AttrString("className"))
	if align := styleValue(block.Attr("align")); !align.IsEmpty() {
		props["align"] = align
	}
	for _, dim := range []string{"width", "height"} {
		if v := attrString(block, dim); v != "" {
			props[dim] = v
		}
	}

	node := newNode(kind, block, props, unmapped(block, imageAttrs...))
	if mediaID == "" && url == "" {
		node.Lossiness = canonical.LossinessPartial
	}
	return node
}

type resolvedImage struct {
	mediaID       string
	url, alt      string
	width, height int
}

// resolveImage fills what node does not know from media resolver.
func resolveImage(node *canonical.Node, ctx *registry.Context) resolvedImage {
	img := resolvedImage{
		mediaID: node.PropString("mediaId"),
		url:     node.PropString("url"),
		alt:     node.PropString("alt"),
		width:   dimension(node.Prop("width")),
		height:  dimension(node.Prop("height")),
	}
	if img.mediaID == "" {
		return img
	}
	asset, ok := ctx.ResolveMedia(img.mediaID)
	if !ok {
		return img
	}
	if img.url == "" {
		img.url = asset.URL
	}
	if img.alt == "" {
		img.alt = asset.Alt
	}
	if img.width == 0 && img.height == 0 {
		img.width, img.height = asset.Width, asset.Height
	}
	return img
}

func renderImage(node *canonical.Node, ctx *registry.Context) (string, error) {
	img := resolveImage(node, ctx)
	if img.url == "" {
		if img.mediaID != "" {
			return "", fmt.Errorf("image media %q could not be resolved", img.mediaID)
		}
		return "", fmt.Errorf("image has neither url nor media id")
	}

	el := markup.New("img")
	if img.mediaID != "" {
		el.Class("wp-image-" + img.mediaID)
	}
	el.Attr("src", img.url).Attr("alt", img.alt)
	if img.width > 0 {
		el.Attr("width", strconv.Itoa(img.width))
	}
	if img.height > 0 {
		el.Attr("height", strconv.Itoa(img.height))
	}

	fig := markup.New("figure").Class("wp-block-image")
	if size := node.PropString("sizeSlug"); size != "" {
		fig.Class("size-" + size)
	}
	if align := style.ResolveEnum(propValue(node, "align"), blockAlignments, ""); align != "" {
		fig.Class("align" + align)
	}
	fig.Class(classNames(node.Prop("className"))...)

	if href := node.PropString("href"); href != "" {
		fig.Child(markup.New("a").Attr("href", href).Child(el))
	} else {
		fig.Child(el)
	}
	if caption := node.PropString("caption"); caption != "" {
		fig.Child(markup.New("figcaption").Class("wp-element-caption").Raw(caption))
	}
	return fig.String(), nil
}

func dimension(v any) int {
	var s string
	switch val := v.(type) {
	case string:
		s = strings.TrimSuffix(strings.TrimSpace(val), "px")
	case json.Number:
		s = val.String()
	default:
		return 0
	}
	if i, err := strconv.Atoi(s); err == nil && i > 0 {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int(f)
	}
	return 0
}

func positive(i int) any {
	if i <= 0 {
		return nil
	}
	return i
}
