// Package common keeps enumerations shared by the pipeline, configuration and
// command line so none of those has to import the others just for a name.
package common

//go:generate go tool go-enum --names --nocase

// Kind of output a render pass produces.
// ENUM(editor, preview, publish)
type Target string

// Markup reports whether target produces a markup string rather than
// structured view-models.
func (t Target) Markup() bool {
	return t == TargetPreview || t == TargetPublish
}

// Degradation returns ordered list of targets to try when looking for a
// renderer for t. Targets degrade towards publish, publish never degrades.
func (t Target) Degradation() []Target {
	switch t {
	case TargetEditor:
		return []Target{TargetEditor, TargetPreview, TargetPublish}
	case TargetPreview:
		return []Target{TargetPreview, TargetPublish}
	case TargetPublish:
		return []Target{TargetPublish}
	default:
		return nil
	}
}

// Specification of requested output type.
// ENUM(canonical, editor, preview, publish)
type OutputFmt int

// Target returns render target for the format. Canonical output does not
// render anything and returns false.
func (o OutputFmt) Target() (Target, bool) {
	switch o {
	case OutputFmtEditor:
		return TargetEditor, true
	case OutputFmtPreview:
		return TargetPreview, true
	case OutputFmtPublish:
		return TargetPublish, true
	default:
		return "", false
	}
}

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtCanonical:
		return ".canonical.json"
	case OutputFmtEditor:
		return ".editor.json"
	case OutputFmtPreview:
		return ".preview.html"
	case OutputFmtPublish:
		return ".html"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// Specification of input document kind.
// ENUM(blocks, canonical)
type InputFmt int
