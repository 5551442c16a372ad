// Package source models blocks produced by the external block editor and
// reads them from JSON, YAML or serialized block markup.
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FreeformName is the name given to HTML found outside of any block.
const FreeformName = "core/freeform"

// Block is a single source block in the shape produced by WordPress block
// parser. InnerContent holds markup chunks with nil in place of every inner
// block.
type Block struct {
	Name         string         `json:"blockName" yaml:"blockName"`
	Attributes   map[string]any `json:"attrs" yaml:"attrs"`
	InnerHTML    string         `json:"innerHTML" yaml:"innerHTML"`
	InnerContent []any          `json:"innerContent" yaml:"innerContent"`
	InnerBlocks  []Block        `json:"innerBlocks" yaml:"innerBlocks"`
}

// Attr returns attribute value, nil when absent.
func (b *Block) Attr(name string) any {
	if b == nil || b.Attributes == nil {
		return nil
	}
	return b.Attributes[name]
}

// AttrString returns attribute value when it is a string.
func (b *Block) AttrString(name string) string {
	s, _ := b.Attr(name).(string)
	return s
}

// AttrBool returns attribute value when it is a boolean.
func (b *Block) AttrBool(name string) bool {
	v, _ := b.Attr(name).(bool)
	return v
}

// AttrPath descends into nested attribute maps ("style", "typography",
// "textAlign").
func (b *Block) AttrPath(names ...string) any {
	if b == nil || len(names) == 0 {
		return nil
	}
	var cur any = b.Attributes
	for _, name := range names {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[name]
	}
	return cur
}

// DecodeJSON reads JSON array of blocks. Numbers in attributes are kept as
// json.Number.
func DecodeJSON(data []byte) ([]Block, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var blocks []Block
	if err := dec.Decode(&blocks); err != nil {
		return nil, fmt.Errorf("unable to decode blocks: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("unable to decode blocks: unexpected data after array")
	}
	return Clean(blocks), nil
}

// DecodeYAML reads YAML sequence of blocks using the same field names as JSON.
func DecodeYAML(data []byte) ([]Block, error) {
	var blocks []Block

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&blocks); err != nil {
		return nil, fmt.Errorf("unable to decode blocks: %w", err)
	}
	return Clean(blocks), nil
}

// Clean names unnamed blocks carrying markup as freeform and drops unnamed
// whitespace-only blocks the way the editor does when it saves a post.
func Clean(blocks []Block) []Block {
	res := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Name == "" {
			if strings.TrimSpace(b.InnerHTML) == "" && len(b.InnerBlocks) == 0 {
				continue
			}
			b.Name = FreeformName
		}
		if len(b.InnerBlocks) > 0 {
			b.InnerBlocks = Clean(b.InnerBlocks)
		}
		res = append(res, b)
	}
	return res
}

// Count returns number of blocks including nested ones.
func Count(blocks []Block) int {
	n := len(blocks)
	for i := range blocks {
		n += Count(blocks[i].InnerBlocks)
	}
	return n
}
