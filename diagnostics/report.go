// Package diagnostics accumulates per node outcomes of a pipeline pass.
package diagnostics

import (
	"slices"
	"strings"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/utils/debug"
)

// Status is outcome of processing a single node.
type Status string

const (
	StatusTransformed Status = "transformed"
	StatusPartial     Status = "partial"
	StatusFallback    Status = "fallback"
	StatusUnsupported Status = "unsupported"
)

// Statuses returns all known statuses.
func Statuses() []Status {
	return []Status{StatusTransformed, StatusPartial, StatusFallback, StatusUnsupported}
}

func (s Status) IsValid() bool {
	return slices.Contains(Statuses(), s)
}

// StatusFromLossiness maps node lossiness to outcome status.
func StatusFromLossiness(l canonical.Lossiness) Status {
	switch l {
	case canonical.LossinessFallback:
		return StatusFallback
	case canonical.LossinessPartial:
		return StatusPartial
	default:
		return StatusTransformed
	}
}

// Codes used by the pipeline.
const (
	CodeRendererMissing = "RENDERER_MISSING"
	CodeRendererFailed  = "RENDERER_FAILED"
	CodeTransformFailed = "TRANSFORM_FAILED"
	CodeNoTransform     = "NO_TRANSFORM"
)

// Item describes outcome for a single node. NodePath is chain of node ids
// from the root.
type Item struct {
	NodePath        []string            `json:"nodePath"`
	OriginBlockName string              `json:"originBlockName,omitempty"`
	TransformID     string              `json:"transformId,omitempty"`
	RendererID      string              `json:"rendererId,omitempty"`
	Lossiness       canonical.Lossiness `json:"lossiness"`
	Status          Status              `json:"status"`
	Code            string              `json:"code,omitempty"`
	Message         string              `json:"message,omitempty"`
}

// RuleID returns id of the rule which produced the item, transform id for
// import items and renderer id for render items.
func (i Item) RuleID() string {
	if i.TransformID != "" {
		return i.TransformID
	}
	return i.RendererID
}

func (i Item) path() string {
	return strings.Join(i.NodePath, "/")
}

// Report is created per pipeline pass and is not safe for concurrent use.
type Report struct {
	Items  []Item         `json:"items"`
	Counts map[Status]int `json:"counts"`
}

// New creates empty report, all counters are present and zero.
func New() *Report {
	r := &Report{
		Items:  []Item{},
		Counts: make(map[Status]int, 4),
	}
	for _, s := range Statuses() {
		r.Counts[s] = 0
	}
	return r
}

// Add normalizes item and appends it to the report, unknown status becomes
// transformed, unknown lossiness becomes none. Returns the same report.
func (r *Report) Add(item Item) *Report {
	if !item.Status.IsValid() {
		item.Status = StatusTransformed
	}
	if !item.Lossiness.IsValid() {
		item.Lossiness = canonical.LossinessNone
	}
	item.NodePath = slices.Clone(item.NodePath)
	if item.NodePath == nil {
		item.NodePath = []string{}
	}

	r.Items = append(r.Items, item)
	r.Counts[item.Status]++
	return r
}

// Sort orders items by joined node path, then by rule id. Sort is stable so
// identical input always produces identical report.
func (r *Report) Sort() *Report {
	slices.SortStableFunc(r.Items, func(a, b Item) int {
		if c := strings.Compare(a.path(), b.path()); c != 0 {
			return c
		}
		return strings.Compare(a.RuleID(), b.RuleID())
	})
	return r
}

func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// Count returns number of items with given status.
func (r *Report) Count(s Status) int {
	if r == nil {
		return 0
	}
	return r.Counts[s]
}

// Filter returns items with requested status in report order.
func (r *Report) Filter(s Status) []Item {
	if r == nil {
		return nil
	}
	var res []Item
	for _, item := range r.Items {
		if item.Status == s {
			res = append(res, item)
		}
	}
	return res
}

// String returns a readable dump of the report for debugging.
func (r *Report) String() string {
	if r == nil {
		return "<nil Report>"
	}
	tw := debug.NewTreeWriter()
	tw.Line(0, "Report items=%d", len(r.Items))
	for _, s := range Statuses() {
		tw.Line(1, "%s=%d", s, r.Counts[s])
	}
	for i, item := range r.Items {
		tw.Line(1, "Item[%d] %s status=%s lossiness=%s", i, item.path(), item.Status, item.Lossiness)
		if item.OriginBlockName != "" {
			tw.Line(2, "origin=%q", item.OriginBlockName)
		}
		if item.TransformID != "" {
			tw.Line(2, "transform=%q", item.TransformID)
		}
		if item.RendererID != "" {
			tw.Line(2, "renderer=%q", item.RendererID)
		}
		if item.Code != "" {
			tw.Line(2, "code=%s", item.Code)
		}
		if item.Message != "" {
			tw.TextBlock(2, "message", item.Message)
		}
	}
	return tw.String()
}
