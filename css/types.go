package css

import (
	"strings"
	"unicode"
)

// Value represents a parsed CSS property value.
type Value struct {
	Raw     string  // Original CSS value string (e.g., "1.2em", "bold", "#ff0000")
	Value   float64 // Numeric value if applicable
	Unit    string  // Unit if applicable: "em", "px", "%", "rem", etc.
	Keyword string  // Keyword if applicable: "bold", "center", function call, etc.
}

// IsNumeric returns true if the value has a numeric component.
// This includes explicit zero values like "0" or "0px".
func (v Value) IsNumeric() bool {
	if v.Unit != "" {
		return true
	}
	if v.Value != 0 && v.Keyword == "" {
		return true
	}
	if v.Raw != "" && v.Keyword == "" {
		firstChar := rune(v.Raw[0])
		if unicode.IsDigit(firstChar) || firstChar == '.' || firstChar == '-' || firstChar == '+' {
			return true
		}
	}
	return false
}

// IsKeyword returns true if the value is a keyword (no numeric component).
func (v Value) IsKeyword() bool {
	return v.Keyword != "" && v.Unit == ""
}

// Declaration is a single "property: value" pair.
type Declaration struct {
	Property  string
	Value     Value
	Important bool
}

func (d Declaration) String() string {
	s := d.Property + ":" + d.Value.Raw
	if d.Important {
		s += " !important"
	}
	return s
}

// Declarations is an ordered declaration list as found in a style attribute
// or inside a rule block.
type Declarations []Declaration

// Get returns the last declaration for the property, later declarations win
// as they do in browsers.
func (ds Declarations) Get(property string) (Value, bool) {
	property = strings.ToLower(property)
	for i := len(ds) - 1; i >= 0; i-- {
		if ds[i].Property == property {
			return ds[i].Value, true
		}
	}
	return Value{}, false
}

// String formats declarations back into inline style attribute form.
func (ds Declarations) String() string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		if d.Property == "" || d.Value.Raw == "" {
			continue
		}
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ";")
}

// Rule represents a single CSS ruleset.
type Rule struct {
	Selectors    []string
	Declarations Declarations
}

// CustomProperty is a "--name: value" declaration with the selector it was
// declared under.
type CustomProperty struct {
	Selector string
	Name     string
	Value    string
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules            []Rule
	CustomProperties []CustomProperty // in source order, @media blocks included
	Warnings         []string
}

// CustomPropertyMap flattens custom properties into name => value, later
// declarations win.
func (s *Stylesheet) CustomPropertyMap() map[string]string {
	res := make(map[string]string, len(s.CustomProperties))
	for _, cp := range s.CustomProperties {
		res[cp.Name] = cp.Value
	}
	return res
}

// RulesBySelector returns all rules having selector.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var res []Rule
	for _, r := range s.Rules {
		for _, sel := range r.Selectors {
			if sel == selector {
				res = append(res, r)
				break
			}
		}
	}
	return res
}
