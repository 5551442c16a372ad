package style

import (
	"slices"
	"strings"
)

// ResolveEnum resolves value against a closed set of allowed keywords. A
// reference resolves to the last segment of its token path ("textAlign.left"
// gives "left"), literal and bare values resolve to themselves. When result is
// not allowed (empty allowed list permits anything) fallback is returned.
func ResolveEnum(v Value, allowed []string, fallback string) string {
	var candidate string
	switch v.kind {
	case KindRef:
		candidate = v.s
		if i := strings.LastIndexByte(candidate, '.'); i >= 0 {
			candidate = candidate[i+1:]
		}
	case KindLiteral, KindBare:
		candidate = v.s
	default:
		return fallback
	}
	if candidate == "" {
		return fallback
	}
	if len(allowed) > 0 && !slices.Contains(allowed, candidate) {
		return fallback
	}
	return candidate
}

// ResolveSpacing resolves value into CSS length. References are looked up in
// theme first and when theme does not know the token, CSS custom property
// reference is produced so the value still works with theme stylesheet loaded
// by the page.
func ResolveSpacing(v Value, theme *Theme) string {
	switch v.kind {
	case KindRef:
		if resolved, ok := theme.Lookup(v.s); ok {
			return resolved
		}
		return "var(" + CustomProperty(v.s) + ")"
	case KindLiteral, KindBare:
		return v.s
	default:
		return ""
	}
}
