// Package style implements themable style values kept inside canonical
// props. A value either references a theme token, carries a literal or is
// empty. References are resolved only when rendering so canonical documents
// never depend on a particular theme.
package style

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind tells which form the value has.
type Kind int

const (
	KindEmpty Kind = iota
	KindRef
	KindLiteral
	// KindBare is an untagged string as found in source attributes. It
	// resolves the same way as literal but keeps its shape in canonical form.
	KindBare
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRef:
		return "ref"
	case KindLiteral:
		return "literal"
	case KindBare:
		return "bare"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

const (
	refKey   = "ref"
	valueKey = "value"

	presetPrefix    = "var:preset|"
	customPrefix    = "var:custom|"
	cssPresetPrefix = "--wp--preset--"
	cssCustomPrefix = "--wp--custom--"
	customNamespace = "custom"
)

// Value is a tagged union of token reference, literal and empty value. Zero
// value is empty.
type Value struct {
	kind Kind
	s    string
}

// Ref creates token reference, path uses dots as separators ("spacing.50").
func Ref(path string) Value {
	if path = strings.TrimSpace(path); path == "" {
		return Value{}
	}
	return Value{kind: KindRef, s: path}
}

// Literal creates literal value.
func Literal(v string) Value {
	if v == "" {
		return Value{}
	}
	return Value{kind: KindLiteral, s: v}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// RefPath returns token path for references and empty string otherwise.
func (v Value) RefPath() string {
	if v.kind != KindRef {
		return ""
	}
	return v.s
}

// Literal returns literal (or bare) string and empty string otherwise.
func (v Value) Literal() string {
	if v.kind != KindLiteral && v.kind != KindBare {
		return ""
	}
	return v.s
}

// CanonicalValue returns plain representation stored in canonical props:
// {"ref": path}, {"value": literal}, bare string or nil.
func (v Value) CanonicalValue() any {
	switch v.kind {
	case KindRef:
		return map[string]any{refKey: v.s}
	case KindLiteral:
		return map[string]any{valueKey: v.s}
	case KindBare:
		return v.s
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.CanonicalValue())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unable to decode style value: %w", err)
	}
	*v = Parse(raw)
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindRef:
		return "ref(" + v.s + ")"
	case KindLiteral:
		return "value(" + v.s + ")"
	case KindBare:
		return strconv.Quote(v.s)
	default:
		return "<empty>"
	}
}

// Parse builds Value from whatever was found in source attributes or
// canonical props. WordPress preset shorthand ("var:preset|spacing|50") and
// preset custom properties ("var(--wp--preset--spacing--50)") become
// references. Anything it does not understand is empty.
func Parse(raw any) Value {
	switch val := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return val
	case *Value:
		if val == nil {
			return Value{}
		}
		return *val
	case map[string]any:
		if ref, ok := val[refKey].(string); ok && ref != "" {
			return Ref(ref)
		}
		if lit, ok := scalarString(val[valueKey]); ok {
			return Literal(lit)
		}
		return Value{}
	case string:
		return parseString(val)
	default:
		if s, ok := scalarString(val); ok {
			return parseString(s)
		}
		return Value{}
	}
}

func parseString(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	if v, ok := FromPreset(s); ok {
		return v
	}
	if inner, ok := strings.CutPrefix(s, "var("); ok {
		if name, ok := strings.CutSuffix(inner, ")"); ok {
			if path, ok := TokenFromCustomProperty(strings.TrimSpace(name)); ok {
				return Ref(path)
			}
		}
	}
	return Value{kind: KindBare, s: s}
}

// FromPreset converts WordPress shorthand "var:preset|spacing|50" into
// reference "spacing.50" and "var:custom|gap|small" into "custom.gap.small".
func FromPreset(s string) (Value, bool) {
	if rest, ok := strings.CutPrefix(s, presetPrefix); ok {
		return refFromSegments(strings.Split(rest, "|"))
	}
	if rest, ok := strings.CutPrefix(s, customPrefix); ok {
		return refFromSegments(append([]string{customNamespace}, strings.Split(rest, "|")...))
	}
	return Value{}, false
}

func refFromSegments(segments []string) (Value, bool) {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return Value{}, false
	}
	return Ref(strings.Join(parts, ".")), true
}

// CustomProperty returns CSS custom property name for token path.
func CustomProperty(path string) string {
	if rest, ok := strings.CutPrefix(path, customNamespace+"."); ok {
		return cssCustomPrefix + strings.ReplaceAll(rest, ".", "--")
	}
	return cssPresetPrefix + strings.ReplaceAll(path, ".", "--")
}

// TokenFromCustomProperty is the reverse of CustomProperty.
func TokenFromCustomProperty(name string) (string, bool) {
	if rest, ok := strings.CutPrefix(name, cssPresetPrefix); ok && rest != "" {
		return strings.ReplaceAll(rest, "--", "."), true
	}
	if rest, ok := strings.CutPrefix(name, cssCustomPrefix); ok && rest != "" {
		return customNamespace + "." + strings.ReplaceAll(rest, "--", "."), true
	}
	return "", false
}

func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case json.Number:
		return val.String(), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}
