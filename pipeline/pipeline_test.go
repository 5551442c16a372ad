package pipeline

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/diagnostics"
	"github.com/theGeekist/edgepress-sub001/packs"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/style"
)

func newDefaultPipeline(t *testing.T) *Pipeline {
	t.Helper()

	log := zaptest.NewLogger(t)
	imports := registry.NewImportRegistry(log)
	renderers := registry.NewRendererRegistry(log)
	if err := packs.Register(imports, renderers, packs.Options{}); err != nil {
		t.Fatalf("packs.Register: %v", err)
	}
	return New(imports, renderers, Options{}, log)
}

func paragraphBlock() source.Block {
	return source.Block{
		Name: "core/paragraph",
		Attributes: map[string]any{
			"dropCap":   true,
			"direction": "rtl",
			"style": map[string]any{
				"typography": map[string]any{"textAlign": "left"},
			},
		},
		InnerHTML:    "<p>Hello <em>world</em></p>",
		InnerContent: []any{"<p>Hello <em>world</em></p>"},
	}
}

func simpleParagraph(text string) source.Block {
	html := "<p>" + text + "</p>"
	return source.Block{Name: "core/paragraph", InnerHTML: html, InnerContent: []any{html}}
}

func TestConvert_ParagraphPublish(t *testing.T) {
	p := newDefaultPipeline(t)

	res, err := p.Convert([]source.Block{paragraphBlock()}, common.TargetPublish, &registry.Context{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	want := `<p class="has-drop-cap has-text-align-left" dir="rtl">Hello <em>world</em></p>`
	if res.Output != want {
		t.Errorf("Output = %q\nwant    %q", res.Output, want)
	}

	if len(res.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(res.Nodes))
	}
	node := res.Nodes[0]
	if node.BlockKind != "ep/paragraph" || node.ID != "node-0" || node.Lossiness != canonical.LossinessNone {
		t.Errorf("unexpected node %s", node.String())
	}
	// Style Value stays unresolved in canonical tree
	if got := node.Prop("textAlign"); !reflect.DeepEqual(got, map[string]any{"value": "left"}) {
		t.Errorf("textAlign prop = %#v", got)
	}
	if res.ImportDiagnostics.Count(diagnostics.StatusTransformed) != 1 {
		t.Errorf("import counts = %v", res.ImportDiagnostics.Counts)
	}
	if res.RenderDiagnostics.Items[0].RendererID != "ep.paragraph.html" {
		t.Errorf("render item = %+v", res.RenderDiagnostics.Items[0])
	}
}

func TestConvert_ImageMediaResolver(t *testing.T) {
	p := newDefaultPipeline(t)

	block := source.Block{
		Name:       "core/image",
		Attributes: map[string]any{"id": json.Number("42")},
		InnerHTML:  `<figure class="wp-block-image"><img alt=""/></figure>`,
	}
	ctx := &registry.Context{
		Media: registry.MediaManifest{
			"42": {URL: "https://cdn.example/hero.jpg", Alt: "hero alt"},
		},
	}

	res, err := p.Convert([]source.Block{block}, common.TargetPublish, ctx)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	out, _ := res.Output.(string)
	for _, want := range []string{`src="https://cdn.example/hero.jpg"`, `alt="hero alt"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
	if want := `<figure class="wp-block-image"><img class="wp-image-42" src="https://cdn.example/hero.jpg" alt="hero alt"/></figure>`; out != want {
		t.Errorf("Output = %q\nwant    %q", out, want)
	}

	// canonical tree references media, it does not embed resolved asset
	node := res.Nodes[0]
	if node.PropString("mediaId") != "42" || node.Prop("url") != nil || node.Prop("alt") != nil {
		t.Errorf("unexpected props %#v", node.Props)
	}
}

func TestConvert_ImageUnresolvedMedia(t *testing.T) {
	p := newDefaultPipeline(t)

	block := source.Block{Name: "core/image", Attributes: map[string]any{"id": json.Number("7")}}
	res, err := p.Convert([]source.Block{block}, common.TargetPublish, &registry.Context{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Output != "" {
		t.Errorf("Output = %q, want empty", res.Output)
	}
	item := res.RenderDiagnostics.Items[0]
	if item.Status != diagnostics.StatusUnsupported || item.Code != diagnostics.CodeRendererFailed || item.RendererID != "ep.image.html" {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestConvert_UnknownBlockEditor(t *testing.T) {
	p := newDefaultPipeline(t)

	block := source.Block{
		Name:         "acme/widget",
		Attributes:   map[string]any{"mode": "dark"},
		InnerHTML:    `<div class="widget">w</div>`,
		InnerContent: []any{`<div class="widget">w</div>`},
	}

	res, err := p.Convert([]source.Block{block}, common.TargetEditor, &registry.Context{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	node := res.Nodes[0]
	if !strings.HasSuffix(node.BlockKind, "/unknown") || node.Lossiness != canonical.LossinessFallback {
		t.Errorf("unexpected node %s", node.String())
	}
	if node.PropString("innerHTML") != block.InnerHTML {
		t.Errorf("raw markup lost: %#v", node.Props)
	}

	if got := res.ImportDiagnostics.Count(diagnostics.StatusFallback); got != 1 {
		t.Errorf("import fallback count = %d, want 1", got)
	}
	if item := res.ImportDiagnostics.Items[0]; item.Code != diagnostics.CodeNoTransform || item.TransformID != "" || item.OriginBlockName != "acme/widget" {
		t.Errorf("unexpected import item %+v", item)
	}
	if got := res.RenderDiagnostics.Count(diagnostics.StatusUnsupported); got != 1 {
		t.Errorf("render unsupported count = %d, want 1", got)
	}
	if item := res.RenderDiagnostics.Items[0]; item.Code != diagnostics.CodeRendererMissing || item.Lossiness != canonical.LossinessFallback {
		t.Errorf("unexpected render item %+v", item)
	}

	out, ok := res.Output.([]any)
	if !ok || len(out) != 1 {
		t.Fatalf("Output = %#v", res.Output)
	}
	want := registry.ViewModel{
		Kind:      registry.KindPlaceholder,
		ID:        "node-0",
		BlockKind: "ep/unknown",
		Props:     map[string]any{"blockName": "acme/widget"},
		Children:  []any{},
	}
	if !reflect.DeepEqual(out[0], want) {
		t.Errorf("placeholder = %#v\nwant        %#v", out[0], want)
	}
}

func TestConvert_UnknownBlockPublish(t *testing.T) {
	p := newDefaultPipeline(t)

	blocks := []source.Block{
		simpleParagraph("before"),
		{Name: "acme/widget", InnerHTML: "<div>w</div>"},
		simpleParagraph("after"),
	}
	res, err := p.Convert(blocks, common.TargetPublish, nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if want := "<p>before</p><p>after</p>"; res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}
	if res.RenderDiagnostics.Count(diagnostics.StatusUnsupported) != 1 || res.RenderDiagnostics.Count(diagnostics.StatusTransformed) != 2 {
		t.Errorf("render counts = %v", res.RenderDiagnostics.Counts)
	}
}

func TestImportTree_Nested(t *testing.T) {
	p := newDefaultPipeline(t)

	group := source.Block{
		Name: "core/group",
		Attributes: map[string]any{
			"layout": map[string]any{"type": "constrained"},
			"style": map[string]any{
				"spacing": map[string]any{"blockGap": "var:preset|spacing|50"},
			},
		},
		InnerBlocks: []source.Block{
			simpleParagraph("a"),
			{Name: "acme/widget", InnerHTML: "<div>w</div>"},
			simpleParagraph("b"),
		},
		InnerContent: []any{`<div class="wp-block-group">`, nil, nil, nil, `</div>`},
	}

	res, err := p.ImportTree([]source.Block{group, simpleParagraph("tail")}, nil)
	if err != nil {
		t.Fatalf("ImportTree: %v", err)
	}

	var ids []string
	for i := range res.Nodes {
		res.Nodes[i].Walk(func(path []string, n *canonical.Node) bool {
			ids = append(ids, strings.Join(path, "/"))
			return true
		})
	}
	wantIDs := []string{"node-0", "node-0/node-0.0", "node-0/node-0.1", "node-0/node-0.2", "node-1"}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Errorf("ids = %v, want %v", ids, wantIDs)
	}

	var paths []string
	for _, item := range res.Diagnostics.Items {
		paths = append(paths, strings.Join(item.NodePath, "/"))
	}
	if !reflect.DeepEqual(paths, wantIDs) {
		t.Errorf("diagnostic paths = %v, want %v", paths, wantIDs)
	}

	wantCounts := map[diagnostics.Status]int{
		diagnostics.StatusTransformed: 4,
		diagnostics.StatusPartial:     0,
		diagnostics.StatusFallback:    1,
		diagnostics.StatusUnsupported: 0,
	}
	if !reflect.DeepEqual(res.Diagnostics.Counts, wantCounts) {
		t.Errorf("counts = %v, want %v", res.Diagnostics.Counts, wantCounts)
	}

	if got := res.Nodes[0].Prop("gap"); !reflect.DeepEqual(got, map[string]any{"ref": "spacing.50"}) {
		t.Errorf("gap prop = %#v", got)
	}

	t.Run("publish", func(t *testing.T) {
		rendered, err := p.RenderTree(res.Nodes, common.TargetPublish, nil)
		if err != nil {
			t.Fatalf("RenderTree: %v", err)
		}
		want := `<div class="wp-block-group is-layout-constrained" style="gap:var(--wp--preset--spacing--50)"><p>a</p><p>b</p></div><p>tail</p>`
		if rendered.HTML() != want {
			t.Errorf("Output = %q\nwant    %q", rendered.HTML(), want)
		}
	})

	t.Run("publish_with_theme", func(t *testing.T) {
		ctx := &registry.Context{Theme: style.NewTheme("test", map[string]string{"spacing.50": "1.5rem"})}
		rendered, err := p.RenderTree(res.Nodes[:1], common.TargetPublish, ctx)
		if err != nil {
			t.Fatalf("RenderTree: %v", err)
		}
		if !strings.Contains(rendered.HTML(), `style="gap:1.5rem"`) {
			t.Errorf("theme token not applied: %q", rendered.HTML())
		}
	})

	t.Run("editor", func(t *testing.T) {
		rendered, err := p.RenderTree(res.Nodes[:1], common.TargetEditor, nil)
		if err != nil {
			t.Fatalf("RenderTree: %v", err)
		}
		out := rendered.Output.([]any)
		vm, ok := out[0].(registry.ViewModel)
		if !ok || vm.Kind != "layout-container" || len(vm.Children) != 3 {
			t.Fatalf("unexpected view-model %#v", out[0])
		}
		if child, ok := vm.Children[1].(registry.ViewModel); !ok || child.Kind != registry.KindPlaceholder {
			t.Errorf("unknown child = %#v", vm.Children[1])
		}
		if child, ok := vm.Children[0].(registry.ViewModel); !ok || child.Kind != "paragraph" || child.Props["content"] != "a" {
			t.Errorf("paragraph child = %#v", vm.Children[0])
		}
	})
}

func TestImportTree_TieBreak(t *testing.T) {
	log := zaptest.NewLogger(t)
	imports := registry.NewImportRegistry(log)
	for _, id := range []string{"z.transform", "a.transform"} {
		kind := "ep/" + strings.TrimSuffix(id, ".transform")
		if _, err := imports.Register(registry.ImportTransform{
			ID:               id,
			SourceBlockNames: []string{"core/paragraph"},
			ToCanonical: func(*source.Block, *registry.Context) (canonical.Node, error) {
				return canonical.Node{BlockKind: kind}, nil
			},
		}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	p := New(imports, nil, Options{}, log)

	res, err := p.ImportTree([]source.Block{simpleParagraph("x")}, nil)
	if err != nil {
		t.Fatalf("ImportTree: %v", err)
	}
	if res.Nodes[0].BlockKind != "ep/a" || res.Diagnostics.Items[0].TransformID != "a.transform" {
		t.Errorf("unexpected winner %q / %+v", res.Nodes[0].BlockKind, res.Diagnostics.Items[0])
	}
}

func TestImportTree_FailingTransform(t *testing.T) {
	log := zaptest.NewLogger(t)
	imports := registry.NewImportRegistry(log)
	if _, err := imports.Register(registry.ImportTransform{
		ID: "ep.broken",
		ToCanonical: func(*source.Block, *registry.Context) (canonical.Node, error) {
			return canonical.Node{}, errors.New("unsupported attributes")
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := New(imports, nil, Options{Namespace: "acme"}, log)

	block := simpleParagraph("x")
	block.InnerBlocks = []source.Block{simpleParagraph("child")}
	res, err := p.ImportTree([]source.Block{block}, nil)
	if err != nil {
		t.Fatalf("ImportTree: %v", err)
	}

	node := res.Nodes[0]
	if node.BlockKind != "acme/unknown" || len(node.Children) != 1 {
		t.Errorf("unexpected node %s", node.String())
	}
	if res.Diagnostics.Count(diagnostics.StatusFallback) != 2 {
		t.Errorf("counts = %v", res.Diagnostics.Counts)
	}
	item := res.Diagnostics.Items[0]
	if item.Code != diagnostics.CodeTransformFailed || item.TransformID != "ep.broken" || !strings.Contains(item.Message, "unsupported attributes") {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestRenderTree_TargetDegradation(t *testing.T) {
	log := zaptest.NewLogger(t)
	renderers := registry.NewRendererRegistry(log)
	var used []common.Target
	if _, err := renderers.Register(registry.Renderer{
		ID:         "preview.paragraph",
		BlockKinds: []string{"ep/paragraph"},
		Targets:    []common.Target{common.TargetPreview},
		Render: func(node *canonical.Node, target common.Target, ctx *registry.Context) (any, error) {
			used = append(used, target)
			return "<p>" + node.PropString("content") + "</p>", nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := New(nil, renderers, Options{}, log)

	nodes, err := canonical.NormalizeAll([]map[string]any{
		{"blockKind": "ep/paragraph", "props": map[string]any{"content": "x"}},
	})
	if err != nil {
		t.Fatalf("NormalizeAll: %v", err)
	}

	res, err := p.RenderTree(nodes, common.TargetEditor, nil)
	if err != nil {
		t.Fatalf("RenderTree: %v", err)
	}
	if !reflect.DeepEqual(used, []common.Target{common.TargetPreview}) {
		t.Errorf("renderer invoked with %v", used)
	}
	if !reflect.DeepEqual(res.Output, []any{"<p>x</p>"}) {
		t.Errorf("Output = %#v", res.Output)
	}
	item := res.Diagnostics.Items[0]
	if item.RendererID != "preview.paragraph" || item.Status != diagnostics.StatusTransformed {
		t.Errorf("unexpected item %+v", item)
	}

	if _, err := p.RenderTree(nodes, common.TargetPublish, nil); err != nil {
		t.Fatalf("RenderTree: %v", err)
	}
	if len(used) != 1 {
		t.Error("publish must not degrade to preview")
	}
}

func TestRenderTree_InvalidTarget(t *testing.T) {
	p := New(nil, nil, Options{}, nil)
	if _, err := p.RenderTree(nil, common.Target("print"), nil); err == nil {
		t.Error("expected error")
	}
}

func TestImportTree_RoundTrip(t *testing.T) {
	p := newDefaultPipeline(t)

	blocks, err := source.ParseMarkupString(`<!-- wp:heading {"level":3} -->
<h3 class="wp-block-heading">Title</h3>
<!-- /wp:heading -->
<!-- wp:group {"layout":{"type":"flex"}} --><div class="wp-block-group"><!-- wp:paragraph {"dropCap":true} --><p class="has-drop-cap">Lead</p><!-- /wp:paragraph --><!-- wp:separator /--></div><!-- /wp:group -->
<!-- wp:acme/widget {"size":1.5} --><div>w</div><!-- /wp:acme/widget -->`)
	if err != nil {
		t.Fatalf("ParseMarkupString: %v", err)
	}

	res, err := p.ImportTree(blocks, nil)
	if err != nil {
		t.Fatalf("ImportTree: %v", err)
	}

	data, err := canonical.Encode(res.Nodes)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := canonical.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	normalized, err := canonical.NormalizeAll(res.Nodes)
	if err != nil {
		t.Fatalf("NormalizeAll: %v", err)
	}
	if !reflect.DeepEqual(decoded, normalized) {
		t.Errorf("round trip mismatch\n%s\n%s", canonical.Dump(decoded), canonical.Dump(normalized))
	}

	// identical input gives identical canonical bytes and diagnostics
	again, err := p.ImportTree(blocks, nil)
	if err != nil {
		t.Fatalf("ImportTree: %v", err)
	}
	data2, _ := canonical.Encode(again.Nodes)
	if string(data) != string(data2) {
		t.Error("canonical output is not deterministic")
	}
	d1, _ := json.Marshal(res.Diagnostics)
	d2, _ := json.Marshal(again.Diagnostics)
	if string(d1) != string(d2) {
		t.Error("diagnostics are not deterministic")
	}
}
