package registry

import (
	"strings"

	"go.uber.org/zap"

	"github.com/theGeekist/edgepress-sub001/style"
)

// Context is threaded through every resolve and apply call. It is the only
// way for external data (media assets, theme tokens) to reach transforms and
// renderers.
type Context struct {
	Media  MediaResolver
	Theme  *style.Theme
	Values map[string]any
	// RenderedChildren holds outputs of node children during render pass,
	// strings for markup targets and view-models for editor.
	RenderedChildren []any
	Log              *zap.Logger
}

// Logger returns context logger or no-op logger.
func (c *Context) Logger() *zap.Logger {
	if c == nil || c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// Value returns free-form context value.
func (c *Context) Value(key string) any {
	if c == nil || c.Values == nil {
		return nil
	}
	return c.Values[key]
}

// WithRenderedChildren returns shallow copy of context carrying children
// outputs. Values map is shared with the receiver and must be treated as
// read-only. Nil context is treated as empty one.
func (c *Context) WithRenderedChildren(children []any) *Context {
	var res Context
	if c != nil {
		res = *c
	}
	res.RenderedChildren = children
	return &res
}

// ChildrenHTML concatenates markup of rendered children.
func (c *Context) ChildrenHTML() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, ch := range c.RenderedChildren {
		if s, ok := ch.(string); ok {
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// ResolveMedia looks asset up using context media resolver.
func (c *Context) ResolveMedia(id string) (MediaAsset, bool) {
	if c == nil || c.Media == nil || id == "" {
		return MediaAsset{}, false
	}
	return c.Media.ResolveMedia(id)
}

// ViewModel is editor target output for a single node.
type ViewModel struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	BlockKind string         `json:"blockKind"`
	Props     map[string]any `json:"props,omitempty"`
	Children  []any          `json:"children"`
}

// KindPlaceholder is view-model kind for nodes nobody knows how to render.
const KindPlaceholder = "placeholder"
