package markup

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parseFragment(s, context string) ([]*html.Node, error) {
	if context == "" {
		context = "body"
	}
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     context,
		DataAtom: atom.Lookup([]byte(context)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to parse html fragment: %w", err)
	}
	return nodes, nil
}

func render(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("unable to render html fragment: %w", err)
		}
	}
	return buf.String(), nil
}

// NormalizeFragment parses markup as content of context element (for
// example "p") and serializes it back, fixing unbalanced tags and entity
// escaping.
func NormalizeFragment(s, context string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	nodes, err := parseFragment(s, context)
	if err != nil {
		return "", err
	}
	return render(nodes)
}

// Found describes element located in a fragment.
type Found struct {
	Tag       string
	Attrs     map[string]string
	InnerHTML string
}

// Classes returns class attribute split into names.
func (f *Found) Classes() []string {
	return strings.Fields(f.Attrs["class"])
}

// FindElement returns first element with one of the tags (document order,
// depth first) in the fragment.
func FindElement(fragment string, tags ...string) (*Found, bool) {
	if strings.TrimSpace(fragment) == "" {
		return nil, false
	}
	nodes, err := parseFragment(fragment, "body")
	if err != nil {
		return nil, false
	}

	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode {
			for _, t := range tags {
				if strings.EqualFold(n.Data, t) {
					return n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if res := find(c); res != nil {
				return res
			}
		}
		return nil
	}

	for _, n := range nodes {
		el := find(n)
		if el == nil {
			continue
		}
		f := &Found{Tag: el.Data, Attrs: make(map[string]string, len(el.Attr))}
		for _, a := range el.Attr {
			f.Attrs[a.Key] = a.Val
		}
		var children []*html.Node
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		inner, err := render(children)
		if err != nil {
			return nil, false
		}
		f.InnerHTML = inner
		return f, true
	}
	return nil, false
}

// Text returns text content of the fragment with whitespace collapsed.
func Text(fragment string) string {
	nodes, err := parseFragment(fragment, "body")
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

var ugcPolicy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	return p
})

// Sanitize removes scripts, event handlers and other unsafe markup keeping
// the usual user generated content elements.
func Sanitize(fragment string) string {
	return ugcPolicy().Sanitize(fragment)
}
