package canonical

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Encode normalizes nodes and serializes them as JSON array. Keys of all
// objects are sorted so equal trees produce identical bytes.
func Encode[T any](nodes []T) ([]byte, error) {
	return encode(nodes, "")
}

// EncodeIndent is Encode with indented output for people.
func EncodeIndent[T any](nodes []T) ([]byte, error) {
	return encode(nodes, "  ")
}

func encode[T any](raw []T, indent string) ([]byte, error) {
	nodes, err := NormalizeAll(raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(nodes); err != nil {
		return nil, fmt.Errorf("unable to encode canonical nodes: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Decode parses JSON array of nodes and returns them in normal form. Numbers
// are kept as json.Number.
func Decode(data []byte) ([]Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unable to decode canonical nodes: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("unable to decode canonical nodes: unexpected data after array")
	}
	return NormalizeAll(raw)
}

// Hash returns hex encoded BLAKE3 digest of encoded normal form.
func Hash[T any](nodes []T) (string, error) {
	data, err := Encode(nodes)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
