// Package registry keeps pluggable import transforms and renderers and
// resolves which of them handles a given block or node.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/source"
)

var (
	ErrMissingID      = errors.New("registry entry has no id")
	ErrMissingHandler = errors.New("registry entry has no handler")
	ErrDuplicateID    = errors.New("registry entry id is already registered")
	ErrInvalidTarget  = errors.New("registry entry has invalid target")
)

// ImportTransform converts source block into provisional canonical node.
// Empty SourceBlockNames matches any block. Nil CanHandle accepts everything.
// Children of the block are imported by the pipeline and must not be
// converted by the transform.
type ImportTransform struct {
	ID               string
	Priority         int
	SourceBlockNames []string
	CanHandle        func(name string, block *source.Block, ctx *Context) bool
	ToCanonical      func(block *source.Block, ctx *Context) (canonical.Node, error)
}

func (t ImportTransform) entryID() string    { return t.ID }
func (t ImportTransform) entryPriority() int { return t.Priority }

func (t ImportTransform) clone() ImportTransform {
	t.SourceBlockNames = slices.Clone(t.SourceBlockNames)
	return t
}

func (t ImportTransform) validate() (ImportTransform, error) {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		return t, ErrMissingID
	}
	if t.ToCanonical == nil {
		return t, fmt.Errorf("import transform %q: %w", t.ID, ErrMissingHandler)
	}
	t.SourceBlockNames = normalizeNames(t.SourceBlockNames)
	return t, nil
}

func (t ImportTransform) matches(name string) bool {
	return len(t.SourceBlockNames) == 0 || slices.Contains(t.SourceBlockNames, name)
}

// Renderer produces target output for canonical node: string markup for
// preview and publish, ViewModel (or any JSON friendly value) for editor.
// Empty BlockKinds matches any node, empty Targets matches any target.
// Render receives target actually resolved which may differ from requested
// one.
type Renderer struct {
	ID         string
	Priority   int
	BlockKinds []string
	Targets    []common.Target
	CanHandle  func(node *canonical.Node, target common.Target, ctx *Context) bool
	Render     func(node *canonical.Node, target common.Target, ctx *Context) (any, error)
}

func (r Renderer) entryID() string    { return r.ID }
func (r Renderer) entryPriority() int { return r.Priority }

func (r Renderer) clone() Renderer {
	r.BlockKinds = slices.Clone(r.BlockKinds)
	r.Targets = slices.Clone(r.Targets)
	return r
}

func (r Renderer) validate() (Renderer, error) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return r, ErrMissingID
	}
	if r.Render == nil {
		return r, fmt.Errorf("renderer %q: %w", r.ID, ErrMissingHandler)
	}
	r.BlockKinds = normalizeNames(r.BlockKinds)

	targets := make([]common.Target, 0, len(r.Targets))
	for _, t := range r.Targets {
		parsed, err := common.ParseTarget(string(t))
		if err != nil {
			return r, fmt.Errorf("renderer %q: %w %q", r.ID, ErrInvalidTarget, t)
		}
		targets = append(targets, parsed)
	}
	slices.Sort(targets)
	r.Targets = slices.Compact(targets)
	return r, nil
}

func (r Renderer) matches(kind string, target common.Target) bool {
	return (len(r.BlockKinds) == 0 || slices.Contains(r.BlockKinds, kind)) &&
		(len(r.Targets) == 0 || slices.Contains(r.Targets, target))
}

// normalizeNames trims, de-duplicates and sorts match list.
func normalizeNames(names []string) []string {
	res := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			res = append(res, n)
		}
	}
	slices.Sort(res)
	return slices.Compact(res)
}
