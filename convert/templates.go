package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/config"
	"github.com/theGeekist/edgepress-sub001/content"
	"github.com/theGeekist/edgepress-sub001/markup"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context string
	// Name is source file base name without extension.
	Name string
	// Source is source path relative to the processed directory or archive.
	Source string
	Format string
	Target string
	Ext    string
	Title  string
	Hash   string
	RunID  string
	Blocks int
}

// documentTitle returns text of the first heading in document order.
func documentTitle(nodes []canonical.Node) string {
	var title string
	for i := range nodes {
		nodes[i].Walk(func(_ []string, n *canonical.Node) bool {
			if title == "" && strings.HasSuffix(n.BlockKind, "/heading") {
				title = strings.TrimSpace(markup.Text(n.PropString("content")))
			}
			return title == ""
		})
		if title != "" {
			break
		}
	}
	return title
}

func baseName(src string) string {
	base := filepath.Base(src)
	if lower := strings.ToLower(base); strings.HasSuffix(lower, content.CanonicalExt) {
		return base[:len(base)-len(content.CanonicalExt)]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func expandTemplate(c *content.Content, name config.TemplateFieldName, field string, format common.OutputFmt) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	target, _ := format.Target()
	values := Values{
		Context: string(name),
		Name:    baseName(c.SrcName),
		Source:  filepath.ToSlash(c.SrcName),
		Format:  format.String(),
		Target:  target.String(),
		Ext:     format.Ext(),
		Title:   documentTitle(c.Nodes),
		Hash:    c.Hash,
		RunID:   c.RunID.String(),
		Blocks:  len(c.Nodes),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
