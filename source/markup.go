package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Block delimiters are HTML comments:
//
//	<!-- wp:paragraph {"dropCap":true} --> ... <!-- /wp:paragraph -->
//	<!-- wp:separator /-->
var delimiterRe = regexp.MustCompile(`(?s)^(/)?wp:([a-z][a-z0-9_-]*(?:/[a-z][a-z0-9_-]*)?)\s*(\{.*?\})?\s*(/)?$`)

type delimiterKind int

const (
	delimiterOpen delimiterKind = iota
	delimiterClose
	delimiterVoid
)

type delimiter struct {
	kind  delimiterKind
	name  string
	attrs map[string]any
}

func parseDelimiter(comment string) (delimiter, bool) {
	m := delimiterRe.FindStringSubmatch(strings.TrimSpace(comment))
	if m == nil {
		return delimiter{}, false
	}

	d := delimiter{kind: delimiterOpen, name: m[2]}
	if !strings.Contains(d.name, "/") {
		d.name = "core/" + d.name
	}
	switch {
	case m[1] != "" && (m[3] != "" || m[4] != ""):
		// closer can not have attributes or be void
		return delimiter{}, false
	case m[1] != "":
		d.kind = delimiterClose
	case m[4] != "":
		d.kind = delimiterVoid
	}

	if m[3] != "" {
		dec := json.NewDecoder(strings.NewReader(m[3]))
		dec.UseNumber()
		if err := dec.Decode(&d.attrs); err != nil {
			return delimiter{}, false
		}
	}
	return d, true
}

type frame struct {
	block Block
	chunk strings.Builder
}

func (f *frame) text(s string) {
	f.chunk.WriteString(s)
	f.block.InnerHTML += s
}

func (f *frame) flush() {
	if f.chunk.Len() > 0 {
		f.block.InnerContent = append(f.block.InnerContent, f.chunk.String())
		f.chunk.Reset()
	}
}

func (f *frame) child(b Block) {
	f.flush()
	f.block.InnerContent = append(f.block.InnerContent, nil)
	f.block.InnerBlocks = append(f.block.InnerBlocks, b)
}

func (f *frame) finish() Block {
	f.flush()
	if f.block.InnerContent == nil {
		f.block.InnerContent = []any{}
	}
	if f.block.InnerBlocks == nil {
		f.block.InnerBlocks = []Block{}
	}
	if f.block.Attributes == nil {
		f.block.Attributes = map[string]any{}
	}
	return f.block
}

// ParseMarkup parses serialized block markup as stored in post content.
// Markup outside of any block becomes freeform block, unclosed blocks are
// closed at the end of input.
func ParseMarkup(r io.Reader) ([]Block, error) {
	var (
		blocks   []Block
		stack    []*frame
		freeform strings.Builder
	)

	flushFreeform := func() {
		if s := freeform.String(); strings.TrimSpace(s) != "" {
			blocks = append(blocks, Block{
				Name:         FreeformName,
				Attributes:   map[string]any{},
				InnerHTML:    s,
				InnerContent: []any{s},
				InnerBlocks:  []Block{},
			})
		}
		freeform.Reset()
	}
	emit := func(b Block) {
		if len(stack) == 0 {
			blocks = append(blocks, b)
			return
		}
		stack[len(stack)-1].child(b)
	}
	text := func(s string) {
		if len(stack) == 0 {
			freeform.WriteString(s)
			return
		}
		stack[len(stack)-1].text(s)
	}

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to tokenize block markup: %w", err)
			}
			break
		}
		raw := string(z.Raw())

		if tt != html.CommentToken {
			text(raw)
			continue
		}
		// delimiter is read from raw comment, attributes must not be unescaped
		d, ok := parseDelimiter(strings.TrimSuffix(strings.TrimPrefix(raw, "<!--"), "-->"))
		if !ok {
			text(raw)
			continue
		}

		switch d.kind {
		case delimiterOpen:
			if len(stack) == 0 {
				flushFreeform()
			}
			stack = append(stack, &frame{block: Block{Name: d.name, Attributes: d.attrs}})
		case delimiterVoid:
			if len(stack) == 0 {
				flushFreeform()
			}
			f := &frame{block: Block{Name: d.name, Attributes: d.attrs}}
			emit(f.finish())
		case delimiterClose:
			if len(stack) == 0 || stack[len(stack)-1].block.Name != d.name {
				// stray closer is kept as markup
				text(raw)
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			emit(top.finish())
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		emit(top.finish())
	}
	flushFreeform()

	if blocks == nil {
		blocks = []Block{}
	}
	return blocks, nil
}

// ParseMarkupString is ParseMarkup for in-memory content.
func ParseMarkupString(s string) ([]Block, error) {
	return ParseMarkup(strings.NewReader(s))
}
