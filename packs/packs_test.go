package packs

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/style"
)

type harness struct {
	imports   *registry.ImportRegistry
	renderers *registry.RendererRegistry
	opts      Options
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	log := zaptest.NewLogger(t)
	h := &harness{
		imports:   registry.NewImportRegistry(log),
		renderers: registry.NewRendererRegistry(log),
		opts:      opts,
	}
	if err := Register(h.imports, h.renderers, opts); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return h
}

// importBlock imports single block without children and normalizes it.
func (h *harness) importBlock(t *testing.T, block source.Block) (canonical.Node, registry.ImportOutcome) {
	t.Helper()

	out := registry.ApplyImportTransform(h.imports, h.opts.ns(), &block, &registry.Context{})
	node, err := canonical.Normalize(out.Node, []string{"0"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return node, out
}

func (h *harness) render(t *testing.T, node canonical.Node, target common.Target, ctx *registry.Context) registry.RenderOutcome {
	t.Helper()

	if ctx == nil {
		ctx = &registry.Context{}
	}
	return registry.ApplyRenderer(h.renderers, &node, target, ctx)
}

func (h *harness) html(t *testing.T, block source.Block, ctx *registry.Context) string {
	t.Helper()

	node, _ := h.importBlock(t, block)
	out := h.render(t, node, common.TargetPublish, ctx)
	if out.Err != nil {
		t.Fatalf("render %s: %v", node.BlockKind, out.Err)
	}
	s, _ := out.Output.(string)
	return s
}

func TestRegister_Duplicate(t *testing.T) {
	h := newHarness(t, Options{})
	err := Register(h.imports, h.renderers, Options{})
	if !errors.Is(err, registry.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	// different namespace does not collide
	if err := Register(h.imports, h.renderers, Options{Namespace: "acme/"}); err != nil {
		t.Fatalf("Register(acme): %v", err)
	}
	if _, ok := h.imports.ByID("acme.paragraph"); !ok {
		t.Error("namespaced transform not registered")
	}
}

func TestAll_Names(t *testing.T) {
	var names []string
	for _, p := range All(Options{}) {
		names = append(names, p.Name)
		if len(p.Imports) == 0 || len(p.Renderers) == 0 {
			t.Errorf("pack %s is empty", p.Name)
		}
	}
	want := []string{"paragraph", "image", "layout", "content", "html"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("packs = %v, want %v", names, want)
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		request []string
		want    []string
		wantErr bool
	}{
		{"all", nil, []string{"paragraph", "image", "layout", "content", "html"}, false},
		{"registration_order", []string{"html", "paragraph"}, []string{"paragraph", "html"}, false},
		{"unknown", []string{"paragraph", "gallery"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(Options{}, tt.request...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select() error = %v, wantErr %v", err, tt.wantErr)
			}
			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("Select() = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestParagraph(t *testing.T) {
	h := newHarness(t, Options{})

	tests := []struct {
		name  string
		block source.Block
		want  string
	}{
		{
			name:  "plain",
			block: source.Block{Name: "core/paragraph", InnerHTML: "<p>Plain &amp; simple</p>"},
			want:  `<p>Plain &amp; simple</p>`,
		},
		{
			name: "legacy_align_and_anchor",
			block: source.Block{
				Name:       "core/paragraph",
				Attributes: map[string]any{"align": "center"},
				InnerHTML:  `<p id="intro">Hi</p>`,
			},
			want: `<p class="has-text-align-center" id="intro">Hi</p>`,
		},
		{
			name: "preset_colors",
			block: source.Block{
				Name:       "core/paragraph",
				Attributes: map[string]any{"textColor": "vivid-red", "fontSize": "large", "className": "lead"},
				InnerHTML:  `<p>Hi</p>`,
			},
			want: `<p class="has-text-color has-vivid-red-color has-large-font-size lead">Hi</p>`,
		},
		{
			name: "custom_colors",
			block: source.Block{
				Name: "core/paragraph",
				Attributes: map[string]any{
					"style": map[string]any{"color": map[string]any{"background": "#000"}},
				},
				InnerHTML: `<p>Hi</p>`,
			},
			want: `<p class="has-background" style="background-color:#000">Hi</p>`,
		},
		{
			name: "invalid_direction",
			block: source.Block{
				Name:       "core/paragraph",
				Attributes: map[string]any{"direction": "up", "content": "From attribute"},
			},
			want: `<p>From attribute</p>`,
		},
		{
			name:  "unbalanced_markup",
			block: source.Block{Name: "core/paragraph", InnerHTML: "<p>open <strong>bold</p>"},
			want:  `<p>open <strong>bold</strong></p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.html(t, tt.block, nil); got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestParagraph_Lossiness(t *testing.T) {
	h := newHarness(t, Options{})

	node, out := h.importBlock(t, source.Block{
		Name:       "core/paragraph",
		Attributes: map[string]any{"placeholder": "Type...", "metadata": map[string]any{"name": "x"}},
		InnerHTML:  "<p>x</p>",
	})
	if out.Lossiness != canonical.LossinessPartial || node.Lossiness != canonical.LossinessPartial {
		t.Errorf("lossiness = %q", node.Lossiness)
	}
	if got := node.Prop("unmappedAttributes"); !reflect.DeepEqual(got, []any{"metadata", "placeholder"}) {
		t.Errorf("unmappedAttributes = %#v", got)
	}
	// nothing is lost, attributes are kept in origin
	attrs, _ := node.Origin[canonical.OriginAttributes].(map[string]any)
	if attrs["placeholder"] != "Type..." {
		t.Errorf("origin attributes = %#v", node.Origin)
	}
}

func TestParagraph_Editor(t *testing.T) {
	h := newHarness(t, Options{})

	node, _ := h.importBlock(t, source.Block{
		Name:       "core/paragraph",
		Attributes: map[string]any{"dropCap": true, "textAlign": "right"},
		InnerHTML:  "<p>x</p>",
	})
	out := h.render(t, node, common.TargetEditor, nil)
	vm, ok := out.Output.(registry.ViewModel)
	if !ok || out.TargetUsed != common.TargetEditor {
		t.Fatalf("unexpected outcome %+v", out)
	}
	want := map[string]any{"content": "x", "dropCap": true, "textAlign": "right"}
	if vm.Kind != "paragraph" || !reflect.DeepEqual(vm.Props, want) {
		t.Errorf("view-model = %#v", vm)
	}
}

func TestImage(t *testing.T) {
	h := newHarness(t, Options{})

	t.Run("inline_url_caption_link", func(t *testing.T) {
		block := source.Block{
			Name:       "core/image",
			Attributes: map[string]any{"id": json.Number("5"), "sizeSlug": "large", "align": "wide"},
			InnerHTML:  `<figure class="wp-block-image"><a href="/full.jpg"><img src="/a.jpg" alt="A" class="wp-image-5"/></a><figcaption class="wp-element-caption">Cap <em>tion</em></figcaption></figure>`,
		}
		want := `<figure class="wp-block-image size-large alignwide"><a href="/full.jpg"><img class="wp-image-5" src="/a.jpg" alt="A"/></a><figcaption class="wp-element-caption">Cap <em>tion</em></figcaption></figure>`
		if got := h.html(t, block, nil); got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})

	t.Run("media_id_from_class", func(t *testing.T) {
		node, _ := h.importBlock(t, source.Block{
			Name:      "core/image",
			InnerHTML: `<figure><img class="wp-image-99"/></figure>`,
		})
		if node.PropString("mediaId") != "99" {
			t.Errorf("mediaId = %q", node.PropString("mediaId"))
		}
	})

	t.Run("media_dimensions", func(t *testing.T) {
		ctx := &registry.Context{Media: registry.MediaResolverFunc(func(id string) (registry.MediaAsset, bool) {
			return registry.MediaAsset{URL: "/m/" + id + ".png", Width: 640, Height: 480}, true
		})}
		block := source.Block{Name: "core/image", Attributes: map[string]any{"id": json.Number("3"), "alt": "local"}}
		want := `<figure class="wp-block-image"><img class="wp-image-3" src="/m/3.png" alt="local" width="640" height="480"/></figure>`
		if got := h.html(t, block, ctx); got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})

	t.Run("nothing_to_show", func(t *testing.T) {
		node, _ := h.importBlock(t, source.Block{Name: "core/image"})
		if node.Lossiness != canonical.LossinessPartial {
			t.Errorf("lossiness = %q", node.Lossiness)
		}
		if out := h.render(t, node, common.TargetPublish, nil); out.Err == nil {
			t.Error("expected render error")
		}
	})
}

func TestLayout(t *testing.T) {
	h := newHarness(t, Options{})
	theme := style.NewTheme("t", map[string]string{"spacing.30": "1rem"})

	columns := source.Block{
		Name: "core/columns",
		Attributes: map[string]any{
			"verticalAlignment": "center",
			"style": map[string]any{
				"spacing": map[string]any{
					"blockGap": map[string]any{"top": "2rem", "left": "var:preset|spacing|30"},
					"padding":  map[string]any{"top": "var:preset|spacing|30", "left": "4px"},
				},
			},
		},
	}
	node, out := h.importBlock(t, columns)
	if out.Lossiness != canonical.LossinessNone || node.PropString("variant") != "columns" {
		t.Fatalf("unexpected node %s", node.String())
	}

	ctx := &registry.Context{Theme: theme, RenderedChildren: []any{"<div>1</div>", "<div>2</div>"}}
	res := h.render(t, node, common.TargetPublish, ctx)
	want := `<div class="wp-block-columns is-layout-flex are-vertically-aligned-center" style="padding-top:1rem;padding-left:4px;gap:1rem"><div>1</div><div>2</div></div>`
	if res.Output != want {
		t.Errorf("got  %q\nwant %q", res.Output, want)
	}

	t.Run("column_width", func(t *testing.T) {
		node, _ := h.importBlock(t, source.Block{Name: "core/column", Attributes: map[string]any{"width": "33.33%"}})
		res := h.render(t, node, common.TargetPublish, nil)
		if want := `<div class="wp-block-column" style="flex-basis:33.33%"></div>`; res.Output != want {
			t.Errorf("got  %q\nwant %q", res.Output, want)
		}
	})

	t.Run("group_tag_and_flex", func(t *testing.T) {
		node, _ := h.importBlock(t, source.Block{Name: "core/group", Attributes: map[string]any{
			"tagName": "section",
			"layout":  map[string]any{"type": "flex", "orientation": "vertical", "justifyContent": "center"},
		}})
		res := h.render(t, node, common.TargetPublish, nil)
		if want := `<section class="wp-block-group is-layout-flex is-vertical is-content-justification-center"></section>`; res.Output != want {
			t.Errorf("got  %q\nwant %q", res.Output, want)
		}
	})

	t.Run("invalid_tag", func(t *testing.T) {
		node, _ := h.importBlock(t, source.Block{Name: "core/group", Attributes: map[string]any{"tagName": "script"}})
		res := h.render(t, node, common.TargetPublish, nil)
		if !strings.HasPrefix(res.Output.(string), "<div ") {
			t.Errorf("got %q", res.Output)
		}
	})

	t.Run("editor", func(t *testing.T) {
		res := h.render(t, node, common.TargetEditor, &registry.Context{Theme: theme})
		vm, ok := res.Output.(registry.ViewModel)
		if !ok || vm.Kind != "layout-container" || vm.Props["gap"] != "1rem" || vm.Props["variant"] != "columns" {
			t.Errorf("view-model = %#v", res.Output)
		}
	})
}

func TestHeading(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		block source.Block
		want  string
	}{
		{
			name:  "level_from_markup",
			block: source.Block{Name: "core/heading", InnerHTML: `<h3 class="wp-block-heading">Title</h3>`},
			want:  `<h3 class="wp-block-heading">Title</h3>`,
		},
		{
			name: "level_attribute_and_anchor",
			block: source.Block{
				Name:       "core/heading",
				Attributes: map[string]any{"level": json.Number("4"), "textAlign": "center"},
				InnerHTML:  `<h4 id="keep">Title</h4>`,
			},
			want: `<h4 class="wp-block-heading has-text-align-center" id="keep">Title</h4>`,
		},
		{
			name:  "generated_anchor",
			opts:  Options{HeadingAnchors: true},
			block: source.Block{Name: "core/heading", InnerHTML: `<h2>Hello <em>Big</em> World</h2>`},
			want:  `<h2 class="wp-block-heading" id="hello-big-world">Hello <em>Big</em> World</h2>`,
		},
		{
			name:  "bad_level",
			block: source.Block{Name: "core/heading", Attributes: map[string]any{"level": json.Number("9"), "content": "X"}},
			want:  `<h2 class="wp-block-heading">X</h2>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.opts)
			if got := h.html(t, tt.block, nil); got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	h := newHarness(t, Options{})

	node, _ := h.importBlock(t, source.Block{
		Name:      "core/quote",
		InnerHTML: `<blockquote class="wp-block-quote"><cite>Someone</cite></blockquote>`,
	})
	ctx := &registry.Context{RenderedChildren: []any{"<p>Quoted</p>"}}
	res := h.render(t, node, common.TargetPublish, ctx)
	if want := `<blockquote class="wp-block-quote"><p>Quoted</p><cite>Someone</cite></blockquote>`; res.Output != want {
		t.Errorf("got  %q\nwant %q", res.Output, want)
	}
}

func TestSpacer(t *testing.T) {
	h := newHarness(t, Options{})
	theme := style.NewTheme("t", map[string]string{"spacing.50": "3rem"})

	tests := []struct {
		name  string
		block source.Block
		want  string
	}{
		{
			name:  "number",
			block: source.Block{Name: "core/spacer", Attributes: map[string]any{"height": json.Number("40")}},
			want:  `<div class="wp-block-spacer" aria-hidden="true" style="height:40px"></div>`,
		},
		{
			name:  "preset",
			block: source.Block{Name: "core/spacer", Attributes: map[string]any{"height": "var:preset|spacing|50"}},
			want:  `<div class="wp-block-spacer" aria-hidden="true" style="height:3rem"></div>`,
		},
		{
			name:  "inline_style",
			block: source.Block{Name: "core/spacer", InnerHTML: `<div style="height:25px" aria-hidden="true" class="wp-block-spacer"></div>`},
			want:  `<div class="wp-block-spacer" aria-hidden="true" style="height:25px"></div>`,
		},
		{
			name:  "default",
			block: source.Block{Name: "core/spacer"},
			want:  `<div class="wp-block-spacer" aria-hidden="true" style="height:100px"></div>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.html(t, tt.block, &registry.Context{Theme: theme}); got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}

	// import keeps reference, theme is applied only when rendering
	node, _ := h.importBlock(t, tests[1].block)
	if got := node.Prop("height"); !reflect.DeepEqual(got, map[string]any{"ref": "spacing.50"}) {
		t.Errorf("height prop = %#v", got)
	}
}

func TestSeparator(t *testing.T) {
	h := newHarness(t, Options{})
	got := h.html(t, source.Block{Name: "core/separator", Attributes: map[string]any{"className": "is-style-wide"}}, nil)
	if want := `<hr class="wp-block-separator has-alpha-channel-opacity is-style-wide"/>`; got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestEmbed(t *testing.T) {
	h := newHarness(t, Options{})

	block := source.Block{
		Name:       "core/embed",
		Attributes: map[string]any{"url": "https://youtu.be/x", "type": "video", "providerNameSlug": "youtube"},
	}
	node, _ := h.importBlock(t, block)

	publish := h.render(t, node, common.TargetPublish, nil)
	if want := `<figure class="wp-block-embed is-type-video is-provider-youtube wp-block-embed-youtube"><div class="wp-block-embed__wrapper">https://youtu.be/x</div></figure>`; publish.Output != want {
		t.Errorf("publish got  %q\nwant %q", publish.Output, want)
	}

	preview := h.render(t, node, common.TargetPreview, nil)
	if !strings.Contains(preview.Output.(string), `<a class="wp-block-embed__link" href="https://youtu.be/x" rel="noopener">youtube</a>`) {
		t.Errorf("preview got %q", preview.Output)
	}

	// no editor renderer for embeds, editor degrades to preview
	editor := h.render(t, node, common.TargetEditor, nil)
	if editor.TargetUsed != common.TargetPreview || editor.RendererID != "ep.embed.preview" {
		t.Errorf("editor outcome = %+v", editor)
	}

	t.Run("legacy", func(t *testing.T) {
		node, out := h.importBlock(t, source.Block{
			Name:      "core-embed/vimeo",
			InnerHTML: `<figure class="wp-block-embed"><div class="wp-block-embed__wrapper">https://vimeo.com/1</div></figure>`,
		})
		if out.TransformID != "ep.embed" || node.PropString("provider") != "vimeo" || node.PropString("url") != "https://vimeo.com/1" {
			t.Errorf("unexpected node %s", node.String())
		}
	})
}

func TestHTML(t *testing.T) {
	block := source.Block{Name: "core/html", InnerHTML: `<div class="x" onclick="evil()">ok<script>alert(1)</script></div>`}

	raw := newHarness(t, Options{}).html(t, block, nil)
	if raw != block.InnerHTML {
		t.Errorf("raw got %q", raw)
	}

	clean := newHarness(t, Options{SanitizeHTML: true}).html(t, block, nil)
	if strings.Contains(clean, "script") || strings.Contains(clean, "onclick") || !strings.Contains(clean, `class="x"`) {
		t.Errorf("sanitized got %q", clean)
	}

	h := newHarness(t, Options{})
	node, _ := h.importBlock(t, source.Block{Name: source.FreeformName, InnerHTML: "<p>classic</p>\n"})
	if node.BlockKind != "ep/html" || node.PropString("format") != "freeform" || node.PropString("content") != "<p>classic</p>" {
		t.Errorf("unexpected node %s", node.String())
	}
}
