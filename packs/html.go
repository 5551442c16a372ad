package packs

import (
	"strings"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/markup"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
)

// HTML pack keeps custom HTML blocks and freeform (classic editor) markup as
// is. Markup may be sanitized when rendered for preview or publish.
func HTML(opts Options) Pack {
	kind := opts.kind("html")
	return Pack{
		Name: "html",
		Imports: []registry.ImportTransform{{
			ID:               opts.id("html"),
			SourceBlockNames: []string{"core/html", source.FreeformName},
			ToCanonical: func(block *source.Block, _ *registry.Context) (canonical.Node, error) {
				content := block.AttrString("content")
				if content == "" {
					content = strings.TrimSpace(block.InnerHTML)
				}
				format := "html"
				if block.Name == source.FreeformName {
					format = "freeform"
				}
				props := map[string]any{"content": content, "format": format}
				return newNode(kind, block, props, unmapped(block, "content")), nil
			},
		}},
		Renderers: []registry.Renderer{
			{
				ID:         opts.id("html", "html"),
				BlockKinds: []string{kind},
				Targets:    markupTargets,
				Render: func(node *canonical.Node, _ common.Target, _ *registry.Context) (any, error) {
					content := node.PropString("content")
					if opts.SanitizeHTML {
						content = markup.Sanitize(content)
					}
					return content, nil
				},
			},
			{
				ID:         opts.id("html", "editor"),
				BlockKinds: []string{kind},
				Targets:    editorTarget,
				Render: func(node *canonical.Node, _ common.Target, ctx *registry.Context) (any, error) {
					return editorView("html", node, ctx, map[string]any{
						"content": node.PropString("content"),
						"format":  node.PropString("format"),
					}), nil
				},
			},
		},
	}
}
