package output

import (
	"strings"

	"github.com/lexandro/ff/attr"
)

// shorthand placeholders and the file attributes they stand for.
var shorthands = map[string]string{
	"":   "path",
	"/":  "name",
	"//": "dir",
	".":  "pathx",
	"/.": "namex",
	"..": "ext",
}

type segment struct {
	literal     string
	attribute   attr.Attribute
	placeholder bool
}

type token struct {
	segments    []segment
	placeholder bool
}

// Template is a parsed exec command line: literal text with {} style
// placeholders. Doubled braces are literal braces. A template without any
// placeholder gets an implicit trailing {}.
type Template struct {
	tokens []token
}

// ParseTemplate parses and resolves the command arguments. Unknown
// attribute placeholders are rejected here, before any walking starts.
func ParseTemplate(args []string, reg *attr.Registry) (*Template, error) {
	t := &Template{}
	hasPlaceholder := false
	for _, arg := range args {
		tok, err := parseToken(arg, reg)
		if err != nil {
			return nil, err
		}
		hasPlaceholder = hasPlaceholder || tok.placeholder
		t.tokens = append(t.tokens, tok)
	}

	if !hasPlaceholder {
		tok, _ := parseToken("{}", reg)
		t.tokens = append(t.tokens, tok)
	}
	return t, nil
}

func parseToken(arg string, reg *attr.Registry) (token, error) {
	var tok token
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			tok.segments = append(tok.segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(arg); {
		switch {
		case strings.HasPrefix(arg[i:], "{{"):
			literal.WriteByte('{')
			i += 2
		case strings.HasPrefix(arg[i:], "}}"):
			literal.WriteByte('}')
			i += 2
		case arg[i] == '{':
			end := strings.IndexByte(arg[i:], '}')
			if end < 0 {
				literal.WriteByte('{')
				i++
				continue
			}
			name := arg[i+1 : i+end]
			if mapped, ok := shorthands[name]; ok {
				name = mapped
			}
			a, err := reg.Resolve(name)
			if err != nil {
				return token{}, err
			}
			flush()
			tok.segments = append(tok.segments, segment{attribute: a, placeholder: true})
			tok.placeholder = true
			i += end + 1
		default:
			literal.WriteByte(arg[i])
			i++
		}
	}
	flush()
	return tok, nil
}

// Expand renders all tokens for one entry. Missing attribute values expand
// to the empty string.
func (t *Template) Expand(ctx *attr.Context) []string {
	args := make([]string, 0, len(t.tokens))
	for _, tok := range t.tokens {
		args = append(args, expandToken(tok, ctx))
	}
	return args
}

func expandToken(tok token, ctx *attr.Context) string {
	var b strings.Builder
	for _, seg := range tok.segments {
		if !seg.placeholder {
			b.WriteString(seg.literal)
			continue
		}
		if v, ok := ctx.Get(seg.attribute); ok {
			b.WriteString(v.Plain())
		}
	}
	return b.String()
}

// SplitBatch separates the fixed command head from the per-entry part for
// batch execution: the head is every leading token without a placeholder,
// the remainder is expanded once per entry and concatenated.
func (t *Template) SplitBatch() (head []string, repeat *Template) {
	i := 0
	for i < len(t.tokens) && !t.tokens[i].placeholder {
		head = append(head, tokenLiteral(t.tokens[i]))
		i++
	}
	return head, &Template{tokens: t.tokens[i:]}
}

func tokenLiteral(tok token) string {
	var b strings.Builder
	for _, seg := range tok.segments {
		b.WriteString(seg.literal)
	}
	return b.String()
}
