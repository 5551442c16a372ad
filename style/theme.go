package style

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/theGeekist/edgepress-sub001/css"
)

// Theme is a flat set of design tokens ("spacing.50" => "1.5rem") references
// are resolved against. Nil theme is valid and knows no tokens.
type Theme struct {
	Name   string
	tokens map[string]string
}

// NewTheme creates theme from token map, map is copied.
func NewTheme(name string, tokens map[string]string) *Theme {
	t := &Theme{Name: name, tokens: make(map[string]string, len(tokens))}
	maps.Copy(t.tokens, tokens)
	return t
}

// Lookup returns token value.
func (t *Theme) Lookup(path string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.tokens[path]
	return v, ok
}

func (t *Theme) Len() int {
	if t == nil {
		return 0
	}
	return len(t.tokens)
}

// Tokens returns sorted list of known token paths.
func (t *Theme) Tokens() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.tokens))
}

// Merge returns new theme with tokens of other added on top of t.
func (t *Theme) Merge(other *Theme) *Theme {
	res := NewTheme("", nil)
	if t != nil {
		res.Name = t.Name
		maps.Copy(res.tokens, t.tokens)
	}
	if other != nil {
		if res.Name == "" {
			res.Name = other.Name
		}
		maps.Copy(res.tokens, other.tokens)
	}
	return res
}

type themeFile struct {
	Name   string         `yaml:"name"`
	Tokens map[string]any `yaml:"tokens"`
}

// LoadThemeYAML reads theme tokens from YAML document. Tokens may be nested,
// nested keys are joined with dots:
//
//	name: default
//	tokens:
//	  spacing:
//	    "50": 1.5rem
func LoadThemeYAML(data []byte) (*Theme, error) {
	var tf themeFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("failed to decode theme: %w", err)
	}

	t := NewTheme(tf.Name, nil)
	if err := flattenTokens("", tf.Tokens, t.tokens); err != nil {
		return nil, err
	}
	return t, nil
}

func flattenTokens(prefix string, in map[string]any, out map[string]string) error {
	for k, v := range in {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flattenTokens(path, val, out); err != nil {
				return err
			}
		case map[any]any:
			// mapping with non-string keys (spacing: {50: 1rem})
			nested := make(map[string]any, len(val))
			for nk, nv := range val {
				nested[fmt.Sprint(nk)] = nv
			}
			if err := flattenTokens(path, nested, out); err != nil {
				return err
			}
		case string:
			out[path] = val
		case int:
			out[path] = strconv.Itoa(val)
		case float64:
			out[path] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[path] = strconv.FormatBool(val)
		default:
			return fmt.Errorf("theme token %q has unsupported value type %T", path, v)
		}
	}
	return nil
}

// ThemeFromStylesheet collects WordPress preset and custom properties
// (--wp--preset--spacing--50, --wp--custom--gap) declared in stylesheet.
// Other custom properties are ignored.
func ThemeFromStylesheet(name string, data []byte, log *zap.Logger) *Theme {
	sheet := css.NewParser(log).Parse(data, name)

	t := NewTheme(name, nil)
	for prop, value := range sheet.CustomPropertyMap() {
		if path, ok := TokenFromCustomProperty(prop); ok && value != "" {
			t.tokens[path] = value
		}
	}
	return t
}
