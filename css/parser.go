package css

import (
	"bytes"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses theme stylesheets and inline style attributes.
type Parser struct {
	log *zap.Logger
}

func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css")}
}

// Parse reads stylesheet. Rulesets nested in @media, @supports and @layer
// are kept, other block @-rules are dropped. Name is only used in logs.
func (p *Parser) Parse(data []byte, name ...string) *Stylesheet {
	r := &sheetReader{
		log:   p.log,
		lexer: css.NewParser(parse.NewInput(bytes.NewReader(data)), false),
		sheet: &Stylesheet{},
	}
	if len(name) > 0 && len(name[0]) > 0 {
		r.log = r.log.With(zap.String("source", name[0]))
	}
	r.log.Debug("Parsing stylesheet", zap.Int("bytes", len(data)))
	r.readBlock(css.ErrorGrammar)
	return r.sheet
}

// ParseInline parses value of a style attribute.
func (p *Parser) ParseInline(style string) Declarations {
	if len(strings.TrimSpace(style)) == 0 {
		return nil
	}
	lexer := css.NewParser(parse.NewInput(strings.NewReader(style)), true)

	var decls Declarations
	for {
		gt, _, data := lexer.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := lexer.Err(); err != nil && err.Error() != "EOF" {
				p.log.Debug("Bad style attribute", zap.String("style", style), zap.Error(err))
			}
			return decls
		case css.DeclarationGrammar:
			if d, ok := newDeclaration(data, lexer.Values()); ok {
				decls = append(decls, d)
			}
		case css.CustomPropertyGrammar:
			v := joinTokens(lexer.Values())
			decls = append(decls, Declaration{Property: string(data), Value: Value{Raw: v, Keyword: v}})
		}
	}
}

type sheetReader struct {
	log   *zap.Logger
	lexer *css.Parser
	sheet *Stylesheet
}

// readBlock consumes grammar items until "end" (or until input is
// exhausted). Top level and conditional @-rule bodies are read the same way.
func (r *sheetReader) readBlock(end css.GrammarType) {
	for {
		gt, _, data := r.lexer.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := r.lexer.Err(); err != nil && err.Error() != "EOF" {
				r.log.Debug("Stylesheet error", zap.Error(err))
				r.sheet.Warnings = append(r.sheet.Warnings, err.Error())
			}
			return
		case end:
			return
		case css.BeginAtRuleGrammar:
			name := strings.ToLower(string(data))
			if conditionalAtRules[name] {
				r.readBlock(css.EndAtRuleGrammar)
				continue
			}
			r.log.Debug("Dropping @-rule", zap.String("rule", name))
			r.skip()
		case css.AtRuleGrammar:
			r.log.Debug("Dropping @-rule", zap.ByteString("rule", data))
		case css.BeginRulesetGrammar:
			r.readRuleset(selectorList(data, r.lexer.Values()))
		}
	}
}

var conditionalAtRules = map[string]bool{"@media": true, "@supports": true, "@layer": true}

func (r *sheetReader) readRuleset(selectors []string) {
	rule := Rule{Selectors: selectors}
	defer func() {
		if len(rule.Declarations) > 0 {
			r.sheet.Rules = append(r.sheet.Rules, rule)
		}
	}()
	for {
		gt, _, data := r.lexer.Next()
		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return
		case css.DeclarationGrammar:
			if d, ok := newDeclaration(data, r.lexer.Values()); ok {
				rule.Declarations = append(rule.Declarations, d)
			}
		case css.CustomPropertyGrammar:
			v := joinTokens(r.lexer.Values())
			for _, sel := range selectors {
				r.sheet.CustomProperties = append(r.sheet.CustomProperties, CustomProperty{Selector: sel, Name: string(data), Value: v})
			}
		}
	}
}

// skip drops the rest of the current block including nested blocks.
func (r *sheetReader) skip() {
	for depth := 1; depth > 0; {
		switch gt, _, _ := r.lexer.Next(); gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

func newDeclaration(name []byte, tokens []css.Token) (Declaration, bool) {
	d := Declaration{Property: strings.ToLower(string(bytes.TrimSpace(name)))}
	if len(d.Property) == 0 {
		return d, false
	}
	tokens, d.Important = cutImportant(tokens)
	d.Value = tokensValue(tokens)
	return d, len(d.Value.Raw) > 0
}

// selectorList splits ruleset prelude on commas and normalizes whitespace.
func selectorList(data []byte, values []css.Token) []string {
	prelude := string(data)
	for _, v := range values {
		prelude += string(v.Data)
	}
	var res []string
	for sel := range strings.SplitSeq(prelude, ",") {
		if sel = strings.Join(strings.Fields(sel), " "); len(sel) > 0 {
			res = append(res, sel)
		}
	}
	return res
}

func trimSpaceTokens(tokens []css.Token) []css.Token {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// cutImportant removes trailing "! important".
func cutImportant(tokens []css.Token) ([]css.Token, bool) {
	i := len(tokens) - 1
	for i >= 0 && tokens[i].TokenType == css.WhitespaceToken {
		i--
	}
	if i < 1 || tokens[i].TokenType != css.IdentToken || !parse.EqualFold(tokens[i].Data, []byte("important")) {
		return tokens, false
	}
	i--
	for i >= 0 && tokens[i].TokenType == css.WhitespaceToken {
		i--
	}
	if i < 0 || tokens[i].TokenType != css.DelimToken || tokens[i].Data[0] != '!' {
		return tokens, false
	}
	return tokens[:i], true
}

// tokensValue builds Value out of declaration tokens. Single token values get
// number, unit or keyword split out, anything longer (functions, shorthands)
// is kept as keyword.
func tokensValue(tokens []css.Token) Value {
	tokens = trimSpaceTokens(tokens)
	if len(tokens) == 0 {
		return Value{}
	}

	var sb strings.Builder
	space := false
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.Write(t.Data)
	}
	val := Value{Raw: sb.String()}
	if len(tokens) > 1 {
		val.Keyword = val.Raw
		return val
	}

	t := tokens[0]
	switch t.TokenType {
	case css.DimensionToken:
		val.Value, val.Unit = splitDimension(t.Data)
	case css.PercentageToken:
		val.Value, _ = strconv.ParseFloat(string(t.Data[:len(t.Data)-1]), 64)
		val.Unit = "%"
	case css.NumberToken:
		val.Value, _ = strconv.ParseFloat(string(t.Data), 64)
	case css.IdentToken:
		val.Keyword = strings.ToLower(val.Raw)
	case css.StringToken:
		val.Keyword = unquote(val.Raw)
	case css.HashToken:
		val.Keyword = val.Raw
	}
	return val
}

func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// splitDimension splits "1.5em" into 1.5 and "em".
func splitDimension(b []byte) (float64, string) {
	n := parse.Number(b)
	if n == 0 {
		return 0, ""
	}
	num, _ := strconv.ParseFloat(string(b[:n]), 64)
	return num, strings.ToLower(string(b[n:]))
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
