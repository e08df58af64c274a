package expr

import (
	"regexp"
	"strings"

	"github.com/lexandro/ff/types"
)

// testRegex splits a test token into attribute, operator, optional file
// reference and value. The operator alternation is ordered so that the
// two-character operators win over their one-character prefixes.
var testRegex = regexp.MustCompile(
	`^\s*((?:\w+\.)?\w+?)\s*` +
		`(>=|<=|\+=|-=|=|\+|-|>|<|:|~|%)` +
		`(\{(?:\w+\.)?\w+\}|\{\})?` +
		`\s*(.+)\s*$`)

// ParseOptions configures the treatment of bare tokens without an
// operator. The defaults rewrite `pattern` to `file.name~pattern`.
type ParseOptions struct {
	DefaultAttribute string
	DefaultOperator  types.Operator
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.DefaultAttribute == "" {
		o.DefaultAttribute = "name"
	}
	if o.DefaultOperator == "" {
		o.DefaultOperator = types.OpRegex
	}
	return o
}

// Parse builds the expression tree from a list of tokens. Tokens are
// either test strings, the keywords and/or/not, or the grouping tokens
// ( ) and their aliases {{ }}. Adjacent tests are connected with an
// implicit "and"; precedence is not > and > or.
func Parse(tokens []string, opts ParseOptions) (Node, error) {
	p := &parser{tokens: tokens, opts: opts.withDefaults()}

	root, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if len(p.tokens) > 0 {
		return nil, &SyntaxError{Msg: "superfluous closing bracket " + p.tokens[0]}
	}
	return normalize(root), nil
}

type parser struct {
	tokens []string
	opts   ParseOptions
}

func isOpening(token string) bool { return token == "(" || token == "{{" }
func isClosing(token string) bool { return token == ")" || token == "}}" }

func (p *parser) pop() string {
	token := p.tokens[0]
	p.tokens = p.tokens[1:]
	return token
}

// parseSequence consumes tokens up to a closing bracket or the end and
// returns an Or of Ands.
func (p *parser) parseSequence() (*Or, error) {
	or := &Or{Children: []Node{&And{}}}
	current := func() *And { return or.Children[len(or.Children)-1].(*And) }

	for len(p.tokens) > 0 {
		token := p.pop()

		switch {
		case isOpening(token):
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			current().Children = append(current().Children, sub)

		case isClosing(token):
			if len(current().Children) == 0 {
				return nil, &SyntaxError{Msg: "empty expression"}
			}
			// Leave the bracket for parseGroup to consume.
			p.tokens = append([]string{token}, p.tokens...)
			return or, nil

		case strings.EqualFold(token, "and"):
			// Implicit; adjacent tests are already conjoined.

		case strings.EqualFold(token, "or"):
			or.Children = append(or.Children, &And{})

		case strings.EqualFold(token, "not"):
			child, err := p.parseNegated()
			if err != nil {
				return nil, err
			}
			current().Children = append(current().Children, child)

		default:
			test, err := p.parseTest(token)
			if err != nil {
				return nil, err
			}
			current().Children = append(current().Children, test)
		}
	}

	return or, nil
}

// parseGroup parses a bracketed sub sequence including its closing token.
func (p *parser) parseGroup() (Node, error) {
	sub, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if len(p.tokens) == 0 {
		return nil, &SyntaxError{Msg: "incomplete sub sequence"}
	}
	p.pop()
	return sub, nil
}

func (p *parser) parseNegated() (Node, error) {
	if len(p.tokens) == 0 {
		return nil, &SyntaxError{Msg: "premature end of expression after 'not'"}
	}

	next := p.tokens[0]
	switch {
	case isOpening(next):
		p.pop()
		sub, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return &Not{Child: sub}, nil

	case isClosing(next),
		strings.EqualFold(next, "and"),
		strings.EqualFold(next, "or"),
		strings.EqualFold(next, "not"):
		return nil, &SyntaxError{Msg: "unexpected token " + next + " after 'not'"}

	default:
		test, err := p.parseTest(p.pop())
		if err != nil {
			return nil, err
		}
		return &Not{Child: test}, nil
	}
}

// parseTest splits a single test token. A token that does not look like
// attribute-operator-value is rewritten using the default attribute and
// operator, so a bare `pattern` becomes `name~pattern`.
func (p *parser) parseTest(token string) (*Test, error) {
	match := testRegex.FindStringSubmatch(token)
	if match == nil {
		return &Test{
			Attr:  p.opts.DefaultAttribute,
			Op:    p.opts.DefaultOperator,
			Value: token,
			Raw:   token,
		}, nil
	}

	op := types.Operator(strings.NewReplacer(">", "+", "<", "-").Replace(match[2]))

	test := &Test{
		Attr:  match[1],
		Op:    op,
		Value: strings.TrimSpace(match[4]),
		Raw:   token,
	}
	if match[3] != "" {
		test.HasRef = true
		test.Ref = strings.Trim(match[3], "{}")
	}
	return test, nil
}

// normalize collapses single-child conjunctions and disjunctions and
// drops empty branches produced by a trailing "or". A completely empty
// expression normalizes to nil.
func normalize(n Node) Node {
	switch n := n.(type) {
	case *And:
		children := make([]Node, 0, len(n.Children))
		for _, c := range n.Children {
			if c = normalize(c); c != nil {
				children = append(children, c)
			}
		}
		switch len(children) {
		case 0:
			return nil
		case 1:
			return children[0]
		}
		return &And{Children: children}
	case *Or:
		children := make([]Node, 0, len(n.Children))
		for _, c := range n.Children {
			if c = normalize(c); c != nil {
				children = append(children, c)
			}
		}
		switch len(children) {
		case 0:
			return nil
		case 1:
			return children[0]
		}
		return &Or{Children: children}
	case *Not:
		return &Not{Child: normalize(n.Child)}
	default:
		return n
	}
}
