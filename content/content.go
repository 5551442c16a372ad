package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/diagnostics"
	"github.com/theGeekist/edgepress-sub001/misc"
	"github.com/theGeekist/edgepress-sub001/source"
	"github.com/theGeekist/edgepress-sub001/state"
)

// Kind is the physical form of a source document.
type Kind int

const (
	KindMarkup Kind = iota
	KindJSON
	KindYAML
	KindCanonical
)

func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "markup"
	case KindJSON:
		return "json"
	case KindYAML:
		return "yaml"
	case KindCanonical:
		return "canonical"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// CanonicalExt marks files holding persisted canonical trees.
const CanonicalExt = ".canonical.json"

// DetectKind decides how document should be decoded. Requested input format
// and file name come first, content is looked at only when extension is not
// decisive.
func DetectKind(name string, from common.InputFmt, data []byte) Kind {
	lname := strings.ToLower(name)
	if from == common.InputFmtCanonical || strings.HasSuffix(lname, CanonicalExt) {
		return KindCanonical
	}
	switch filepath.Ext(lname) {
	case ".json":
		return jsonKind(data)
	case ".yaml", ".yml":
		return KindYAML
	case ".html", ".htm", ".txt":
		return KindMarkup
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return jsonKind(data)
	}
	return KindMarkup
}

// jsonKind tells persisted canonical tree from block list, only canonical
// nodes carry schema version.
func jsonKind(data []byte) Kind {
	if bytes.Contains(data, []byte(`"schemaVersion"`)) && bytes.Contains(data, []byte(`"blockKind"`)) {
		return KindCanonical
	}
	return KindJSON
}

// Content is a single source document decoded and imported into canonical
// tree.
type Content struct {
	SrcName string
	RunID   uuid.UUID
	Kind    Kind
	// Blocks is empty when source already was canonical tree.
	Blocks []source.Block
	Nodes  []canonical.Node
	Hash   string
	// Import is nil when source already was canonical tree.
	Import  *diagnostics.Report
	WorkDir string
}

func decode(kind Kind, data []byte) ([]source.Block, []canonical.Node, error) {
	switch kind {
	case KindJSON:
		blocks, err := source.DecodeJSON(data)
		return blocks, nil, err
	case KindYAML:
		blocks, err := source.DecodeYAML(data)
		return blocks, nil, err
	case KindCanonical:
		nodes, err := canonical.Decode(data)
		return nil, nodes, err
	default:
		// post content may declare its own charset, default is UTF-8
		r, err := charset.NewReader(bytes.NewReader(data), "text/html")
		if err != nil {
			return nil, nil, fmt.Errorf("unable to determine source charset: %w", err)
		}
		blocks, err := source.ParseMarkup(r)
		return blocks, nil, err
	}
}

// Prepare reads, decodes and imports source document. Reader is expected to
// be already stripped of byte order mark.
func Prepare(ctx context.Context, r io.Reader, srcName string, from common.InputFmt, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)
	if env.Pipeline == nil {
		return nil, errors.New("pipeline is not initialized")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read source: %w", err)
	}

	c := &Content{SrcName: srcName, Kind: DetectKind(srcName, from, data)}
	if c.RunID, err = uuid.NewV7(); err != nil {
		return nil, fmt.Errorf("unable to generate run id: %w", err)
	}

	c.Blocks, c.Nodes, err = decode(c.Kind, data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s source: %w", c.Kind, err)
	}
	log.Debug("Source decoded",
		zap.String("source", srcName), zap.Stringer("kind", c.Kind),
		zap.Int("blocks", source.Count(c.Blocks)), zap.Int("nodes", len(c.Nodes)))

	if c.Kind != KindCanonical {
		res, err := env.Pipeline.ImportTree(c.Blocks, env.RegistryContext(c.values()))
		if err != nil {
			return nil, fmt.Errorf("unable to import source: %w", err)
		}
		c.Nodes, c.Import = res.Nodes, res.Diagnostics

		if n := c.Import.Count(diagnostics.StatusFallback); n > 0 {
			log.Warn("Some blocks were not recognized", zap.String("source", srcName), zap.Int("count", n))
		}
	}

	if c.Hash, err = canonical.Hash(c.Nodes); err != nil {
		return nil, fmt.Errorf("unable to hash canonical tree: %w", err)
	}

	if env.Rpt != nil {
		if err := c.saveArtifacts(env, data); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// values are available to every rule through registry context.
func (c *Content) values() map[string]any {
	return map[string]any{
		"source": c.SrcName,
		"runId":  c.RunID.String(),
	}
}

// saveArtifacts keeps source and intermediate forms for debug report.
func (c *Content) saveArtifacts(env *state.LocalEnv, data []byte) error {
	dir, err := os.MkdirTemp("", misc.GetAppName()+"-")
	if err != nil {
		return fmt.Errorf("unable to create temporary directory: %w", err)
	}
	c.WorkDir = dir
	env.Rpt.StoreWorkDir(fmt.Sprintf("%s-%s", misc.GetAppName(), c.RunID), dir)

	base := filepath.Base(c.SrcName)
	encoded, err := canonical.EncodeIndent(c.Nodes)
	if err != nil {
		return fmt.Errorf("unable to encode canonical tree for debugging: %w", err)
	}

	files := map[string][]byte{
		base:                     data,
		base + "_canonical.json": encoded,
		base + "_prepared":       []byte(c.String()),
	}
	if c.Import != nil {
		if files[base+"_import.json"], err = json.MarshalIndent(c.Import, "", "  "); err != nil {
			return fmt.Errorf("unable to encode import diagnostics for debugging: %w", err)
		}
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			return fmt.Errorf("unable to write %s for debugging: %w", name, err)
		}
	}
	return nil
}
