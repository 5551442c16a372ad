package content

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/config"
	"github.com/theGeekist/edgepress-sub001/diagnostics"
	"github.com/theGeekist/edgepress-sub001/state"
)

func setupTestContext(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	if err := env.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return ctx, env
}

const samplePost = `<!-- wp:paragraph {"dropCap":true} -->
<p class="has-drop-cap">Hello</p>
<!-- /wp:paragraph -->

<!-- wp:group -->
<div class="wp-block-group"><!-- wp:paragraph --><p>inner</p><!-- /wp:paragraph --></div>
<!-- /wp:group -->

<!-- wp:acme/widget /-->`

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		file string
		from common.InputFmt
		data string
		want Kind
	}{
		{"json_ext", "post.json", common.InputFmtBlocks, "", KindJSON},
		{"yaml_ext", "post.yaml", common.InputFmtBlocks, "", KindYAML},
		{"yml_ext_upper", "POST.YML", common.InputFmtBlocks, "", KindYAML},
		{"html_ext", "post.html", common.InputFmtBlocks, "[not json]", KindMarkup},
		{"canonical_ext", "post.canonical.json", common.InputFmtBlocks, "", KindCanonical},
		{"canonical_requested", "post.json", common.InputFmtCanonical, "", KindCanonical},
		{"sniff_json", "post", common.InputFmtBlocks, "  \n[{}]", KindJSON},
		{"sniff_canonical", "post.json", common.InputFmtBlocks, `[{"blockKind":"ep/paragraph","schemaVersion":1}]`, KindCanonical},
		{"sniff_markup", "post", common.InputFmtBlocks, "<!-- wp:paragraph -->", KindMarkup},
		{"empty", "post", common.InputFmtBlocks, "", KindMarkup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.file, tt.from, []byte(tt.data)); got != tt.want {
				t.Errorf("DetectKind() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPrepare_Markup(t *testing.T) {
	ctx, _ := setupTestContext(t)

	c, err := Prepare(ctx, strings.NewReader(samplePost), "posts/hello.html", common.InputFmtBlocks, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if c.Kind != KindMarkup {
		t.Errorf("Kind = %s, want markup", c.Kind)
	}
	if c.RunID == uuid.Nil || c.RunID.Version() != 7 {
		t.Errorf("RunID = %s, want v7 uuid", c.RunID)
	}
	if len(c.Nodes) != 3 {
		t.Fatalf("expected 3 root nodes, got %d\n%s", len(c.Nodes), canonical.Dump(c.Nodes))
	}

	kinds := []string{c.Nodes[0].BlockKind, c.Nodes[1].BlockKind, c.Nodes[2].BlockKind}
	if strings.Join(kinds, ",") != "ep/paragraph,ep/layout-container,ep/unknown" {
		t.Errorf("kinds = %v", kinds)
	}
	if len(c.Nodes[1].Children) != 1 || c.Nodes[1].Children[0].ID != "node-1.0" {
		t.Errorf("group children = %+v", c.Nodes[1].Children)
	}

	if c.Import == nil {
		t.Fatal("Import diagnostics missing")
	}
	if c.Import.Len() != 4 {
		t.Errorf("expected 4 import items, got %d", c.Import.Len())
	}
	if c.Import.Count(diagnostics.StatusFallback) != 1 {
		t.Errorf("fallback = %d, want 1", c.Import.Count(diagnostics.StatusFallback))
	}

	want, err := canonical.Hash(c.Nodes)
	if err != nil {
		t.Fatal(err)
	}
	if c.Hash != want || len(c.Hash) != 64 {
		t.Errorf("Hash = %q, want %q", c.Hash, want)
	}
	if c.WorkDir != "" {
		t.Errorf("WorkDir should be empty without report, got %q", c.WorkDir)
	}
}

func TestPrepare_JSONAndYAML(t *testing.T) {
	ctx, _ := setupTestContext(t)
	log := zaptest.NewLogger(t)

	jsonSrc := `[{"blockName":"core/heading","attrs":{"level":3},"innerHTML":"<h3>Title</h3>","innerContent":["<h3>Title</h3>"],"innerBlocks":[]}]`
	yamlSrc := `- blockName: core/heading
  attrs:
    level: 3
  innerHTML: <h3>Title</h3>
`
	fromJSON, err := Prepare(ctx, strings.NewReader(jsonSrc), "a.json", common.InputFmtBlocks, log)
	if err != nil {
		t.Fatalf("Prepare(json) error = %v", err)
	}
	fromYAML, err := Prepare(ctx, strings.NewReader(yamlSrc), "a.yaml", common.InputFmtBlocks, log)
	if err != nil {
		t.Fatalf("Prepare(yaml) error = %v", err)
	}

	for _, c := range []*Content{fromJSON, fromYAML} {
		if len(c.Nodes) != 1 || c.Nodes[0].BlockKind != "ep/heading" {
			t.Fatalf("%s: unexpected nodes\n%s", c.Kind, canonical.Dump(c.Nodes))
		}
		if got := c.Nodes[0].PropString("content"); got != "Title" {
			t.Errorf("%s: content = %q", c.Kind, got)
		}
	}
	if fromJSON.Nodes[0].Prop("level") == nil || fromYAML.Nodes[0].Prop("level") == nil {
		t.Error("heading level missing")
	}
}

func TestPrepare_Canonical(t *testing.T) {
	ctx, _ := setupTestContext(t)
	log := zaptest.NewLogger(t)

	first, err := Prepare(ctx, strings.NewReader(samplePost), "hello.html", common.InputFmtBlocks, log)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	encoded, err := canonical.Encode(first.Nodes)
	if err != nil {
		t.Fatal(err)
	}

	second, err := Prepare(ctx, bytes.NewReader(encoded), "hello.canonical.json", common.InputFmtBlocks, log)
	if err != nil {
		t.Fatalf("Prepare(canonical) error = %v", err)
	}
	if second.Kind != KindCanonical {
		t.Errorf("Kind = %s, want canonical", second.Kind)
	}
	if second.Import != nil || len(second.Blocks) != 0 {
		t.Error("canonical source must not be imported")
	}
	if second.Hash != first.Hash {
		t.Errorf("hash changed after round trip: %s != %s", second.Hash, first.Hash)
	}
	if second.RunID == first.RunID {
		t.Error("every preparation should get its own run id")
	}
}

func TestPrepare_Charset(t *testing.T) {
	ctx, _ := setupTestContext(t)

	src := `<meta charset="windows-1251"><!-- wp:paragraph --><p>Привет</p><!-- /wp:paragraph -->`
	encoded, err := charmap.Windows1251.NewEncoder().String(src)
	if err != nil {
		t.Fatal(err)
	}

	c, err := Prepare(ctx, strings.NewReader(encoded), "legacy.html", common.InputFmtBlocks, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(c.Nodes) != 2 {
		t.Fatalf("expected freeform and paragraph, got\n%s", canonical.Dump(c.Nodes))
	}
	if got := c.Nodes[1].PropString("content"); got != "Привет" {
		t.Errorf("content = %q, want Привет", got)
	}
}

func TestPrepare_Errors(t *testing.T) {
	ctx, _ := setupTestContext(t)
	log := zaptest.NewLogger(t)

	tests := []struct {
		name string
		file string
		data string
	}{
		{"bad_json", "a.json", `[{"blockName":`},
		{"json_not_array", "a.json", `{"blockName":"core/paragraph"}`},
		{"bad_yaml", "a.yaml", "- blockName: [\n"},
		{"yaml_unknown_field", "a.yaml", "- blockName: core/paragraph\n  color: red\n"},
		{"bad_canonical", "a.canonical.json", `[{"blockKind":""}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Prepare(ctx, strings.NewReader(tt.data), tt.file, common.InputFmtBlocks, log); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	t.Run("canceled_context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := Prepare(cctx, strings.NewReader(samplePost), "a.html", common.InputFmtBlocks, log); err == nil {
			t.Error("expected error for canceled context")
		}
	})

	t.Run("no_pipeline", func(t *testing.T) {
		bare := state.ContextWithEnv(context.Background())
		if _, err := Prepare(bare, strings.NewReader(samplePost), "a.html", common.InputFmtBlocks, log); err == nil {
			t.Error("expected error without pipeline")
		}
	})
}

func TestPrepare_ReportArtifacts(t *testing.T) {
	ctx, env := setupTestContext(t)
	rpt, err := (&config.ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}).Prepare()
	if err != nil {
		t.Fatal(err)
	}
	env.Rpt = rpt

	c, err := Prepare(ctx, strings.NewReader(samplePost), "posts/hello.html", common.InputFmtBlocks, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if c.WorkDir == "" {
		t.Fatal("WorkDir not created for report")
	}
	for _, name := range []string{"hello.html", "hello.html_canonical.json", "hello.html_prepared", "hello.html_import.json"} {
		if _, err := os.Stat(filepath.Join(c.WorkDir, name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(c.WorkDir, "hello.html_canonical.json"))
	if err != nil {
		t.Fatal(err)
	}
	nodes, err := canonical.Decode(data)
	if err != nil {
		t.Fatalf("stored canonical tree is not decodable: %v", err)
	}
	if h, _ := canonical.Hash(nodes); h != c.Hash {
		t.Error("stored canonical tree differs from prepared one")
	}

	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(c.WorkDir); !os.IsNotExist(err) {
		t.Errorf("WorkDir should be removed with report, stat err = %v", err)
	}
}

func TestContent_String(t *testing.T) {
	ctx, _ := setupTestContext(t)

	c, err := Prepare(ctx, strings.NewReader(`<!-- wp:image {"id":7,"sizeSlug":"large","align":"wide"} --><figure class="wp-block-image"><img src="a.jpg"/></figure><!-- /wp:image -->`), "img.html", common.InputFmtBlocks, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	out := c.String()
	for _, want := range []string{`source="img.html"`, "kind=markup", `name="core/image"`, `Attr["align"]`, "Nodes: 1", "Report items=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() misses %q:\n%s", want, out)
		}
	}
	// attributes are listed in natural order
	if strings.Index(out, `Attr["align"]`) > strings.Index(out, `Attr["id"]`) {
		t.Errorf("attributes are not sorted:\n%s", out)
	}

	var nilContent *Content
	if nilContent.String() != "<nil Content>" {
		t.Error("nil Content String() mismatch")
	}
}
