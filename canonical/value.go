package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Canonicaler is implemented by types which have their own plain
// representation inside canonical props (style values for example).
type Canonicaler interface {
	CanonicalValue() any
}

// Canonicalize converts arbitrary value into canonical value domain: nil,
// bool, string, json.Number, []any and map[string]any. Numbers are formatted
// the way encoding/json does it so canonical values survive JSON round trip
// unchanged. Result never shares maps or slices with v.
func Canonicalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return val
	case string:
		return strings.ToValidUTF8(val, "\uFFFD")
	case json.Number:
		return val
	case Canonicaler:
		return Canonicalize(val.CanonicalValue())
	case map[string]any:
		if val == nil {
			return nil
		}
		entries := make([]mapEntry, 0, len(val))
		for k, item := range val {
			entries = append(entries, mapEntry{raw: k, value: item})
		}
		return canonicalEntries(entries)
	case []any:
		if val == nil {
			return nil
		}
		res := make([]any, len(val))
		for i, item := range val {
			res[i] = Canonicalize(item)
		}
		return res
	case int:
		return json.Number(strconv.FormatInt(int64(val), 10))
	case int8:
		return json.Number(strconv.FormatInt(int64(val), 10))
	case int16:
		return json.Number(strconv.FormatInt(int64(val), 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(val), 10))
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case uint:
		return json.Number(strconv.FormatUint(uint64(val), 10))
	case uint8:
		return json.Number(strconv.FormatUint(uint64(val), 10))
	case uint16:
		return json.Number(strconv.FormatUint(uint64(val), 10))
	case uint32:
		return json.Number(strconv.FormatUint(uint64(val), 10))
	case uint64:
		return json.Number(strconv.FormatUint(val, 10))
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	}
	return canonicalizeReflect(reflect.ValueOf(v))
}

// canonicalizeMap is Canonicalize for maps which always returns a map.
func canonicalizeMap(m map[string]any) map[string]any {
	res, _ := Canonicalize(m).(map[string]any)
	if res == nil {
		res = map[string]any{}
	}
	return res
}

func canonicalizeReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Canonicalize(rv.Elem().Interface())
	case reflect.String:
		return strings.ToValidUTF8(rv.String(), "\uFFFD")
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return json.Number(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return json.Number(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		entries := make([]mapEntry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.Interface && !k.IsNil() {
				k = k.Elem()
			}
			entries = append(entries, mapEntry{raw: mapKey(k), keyType: k.Type().String(), value: iter.Value().Interface()})
		}
		return canonicalEntries(entries)
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte encodes as base64 string
			return viaJSON(rv.Interface())
		}
		fallthrough
	case reflect.Array:
		res := make([]any, rv.Len())
		for i := range rv.Len() {
			res[i] = Canonicalize(rv.Index(i).Interface())
		}
		return res
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil
	default:
		return viaJSON(rv.Interface())
	}
}

type mapEntry struct {
	raw     string
	keyType string
	value   any
}

// canonicalEntries builds canonical map. Keys are repaired to valid UTF-8 and
// different keys may end up the same: the one which did not need repair
// wins, otherwise the smallest raw key (then key type) wins. Result never
// depends on map iteration order.
func canonicalEntries(entries []mapEntry) map[string]any {
	keys := make([]string, len(entries))
	for i := range entries {
		keys[i] = strings.ToValidUTF8(entries[i].raw, "\uFFFD")
	}
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		ea, eb := entries[a], entries[b]
		if ca, cb := keys[a] == ea.raw, keys[b] == eb.raw; ca != cb {
			if ca {
				return -1
			}
			return 1
		}
		if c := strings.Compare(ea.raw, eb.raw); c != 0 {
			return c
		}
		return strings.Compare(ea.keyType, eb.keyType)
	})

	res := make(map[string]any, len(entries))
	for _, i := range order {
		if _, taken := res[keys[i]]; taken {
			continue
		}
		res[keys[i]] = Canonicalize(entries[i].value)
	}
	return res
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if tm, ok := k.Interface().(fmt.Stringer); ok {
		return tm.String()
	}
	return fmt.Sprint(k.Interface())
}

// viaJSON canonicalizes structs and other values by letting them encode
// themselves.
func viaJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var res any
	if err := dec.Decode(&res); err != nil {
		return nil
	}
	return Canonicalize(res)
}

// formatFloat mirrors encoding/json float formatting, NaN and infinities have
// no JSON representation and become nil.
func formatFloat(f float64, bits int) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}

	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) || bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	b := strconv.AppendFloat(nil, f, format, -1, bits)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return json.Number(b)
}

// intValue extracts integer from canonical or plain numeric value.
func intValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return int(val), true
		}
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
