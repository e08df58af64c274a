package expr

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/ignore"
	"github.com/lexandro/ff/types"
)

// Case handling modes for string comparisons.
const (
	CaseSmart       = "smart"
	CaseSensitive   = "sensitive"
	CaseInsensitive = "insensitive"
)

// BindOptions carries the settings that influence how tests are compiled.
type BindOptions struct {
	// Case is one of the Case* constants. Smart ignores case when the
	// pattern contains no upper-case characters.
	Case string
	// SI selects base 1000 for bare size units.
	SI bool
	// Follow resolves symlinks when stating reference files.
	Follow bool
	// Store is consulted when a file reference needs a cacheable attribute.
	Store  attr.Store
	Logger *slog.Logger
}

// Expr is a compiled expression ready for evaluation. An empty expression
// matches every entry.
type Expr struct {
	root boundNode
}

// Empty reports whether the expression contains no tests.
func (x *Expr) Empty() bool { return x == nil || x.root == nil }

// Eval applies the expression to the entry behind the context.
func (x *Expr) Eval(ctx *attr.Context) bool {
	if x.Empty() {
		return true
	}
	return x.root.eval(ctx)
}

// Bind compiles a parsed expression against the registry: attribute names
// are resolved, operators checked against the attribute types, values
// parsed and patterns compiled. Conjunctions and disjunctions are reordered
// so that cheap tests run before expensive ones.
func Bind(node Node, reg *attr.Registry, opts BindOptions) (*Expr, error) {
	if node == nil {
		return &Expr{}, nil
	}

	b := &binder{reg: reg, opts: opts}
	root, err := b.bind(node)
	if err != nil {
		return nil, err
	}
	reorder(root)
	return &Expr{root: root}, nil
}

// Excluder is a flat disjunction of tests applied to every entry before the
// main expression. An empty excluder excludes nothing.
type Excluder struct {
	root boundNode
}

// Match reports whether the entry is excluded.
func (x *Excluder) Match(ctx *attr.Context) bool {
	if x == nil || x.root == nil {
		return false
	}
	return x.root.eval(ctx)
}

// BindExcluder compiles exclusion tokens. Bare tokens without an operator
// are treated as gitignore-style patterns against the file name.
func BindExcluder(tokens []string, reg *attr.Registry, opts BindOptions) (*Excluder, error) {
	if len(tokens) == 0 {
		return &Excluder{}, nil
	}

	popts := ParseOptions{DefaultAttribute: "name", DefaultOperator: types.OpGlob}
	b := &binder{reg: reg, opts: opts}

	or := &boundOr{}
	for _, token := range tokens {
		node, err := Parse([]string{token}, popts)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		bound, err := b.bind(node)
		if err != nil {
			return nil, err
		}
		or.children = append(or.children, bound)
	}
	sort.SliceStable(or.children, func(i, j int) bool {
		return or.children[i].cost() < or.children[j].cost()
	})
	return &Excluder{root: or}, nil
}

// boundNode is an element of the compiled expression tree.
type boundNode interface {
	eval(ctx *attr.Context) bool
	cost() int
}

type boundAnd struct{ children []boundNode }

func (n *boundAnd) eval(ctx *attr.Context) bool {
	for _, c := range n.children {
		if !c.eval(ctx) {
			return false
		}
	}
	return true
}

type boundOr struct{ children []boundNode }

func (n *boundOr) eval(ctx *attr.Context) bool {
	for _, c := range n.children {
		if c.eval(ctx) {
			return true
		}
	}
	return false
}

type boundNot struct{ child boundNode }

func (n *boundNot) eval(ctx *attr.Context) bool { return !n.child.eval(ctx) }
func (n *boundNot) cost() int                   { return n.child.cost() }

// The cost of a composite is the cost of its most expensive branch.
func (n *boundAnd) cost() int { return maxCost(n.children) }
func (n *boundOr) cost() int  { return maxCost(n.children) }

func maxCost(children []boundNode) int {
	cost := 0
	for _, c := range children {
		if c := c.cost(); c > cost {
			cost = c
		}
	}
	return cost
}

// reorder sorts the children of every conjunction and disjunction by
// ascending cost. The sort is stable, so equally priced tests keep the
// order they were written in.
func reorder(n boundNode) {
	switch n := n.(type) {
	case *boundAnd:
		for _, c := range n.children {
			reorder(c)
		}
		sort.SliceStable(n.children, func(i, j int) bool {
			return n.children[i].cost() < n.children[j].cost()
		})
	case *boundOr:
		for _, c := range n.children {
			reorder(c)
		}
		sort.SliceStable(n.children, func(i, j int) bool {
			return n.children[i].cost() < n.children[j].cost()
		})
	case *boundNot:
		reorder(n.child)
	}
}

type binder struct {
	reg  *attr.Registry
	opts BindOptions
}

func (b *binder) bind(n Node) (boundNode, error) {
	switch n := n.(type) {
	case *Test:
		return b.bindTest(n)
	case *And:
		children, err := b.bindChildren(n.Children)
		if err != nil {
			return nil, err
		}
		return &boundAnd{children: children}, nil
	case *Or:
		children, err := b.bindChildren(n.Children)
		if err != nil {
			return nil, err
		}
		return &boundOr{children: children}, nil
	case *Not:
		child, err := b.bind(n.Child)
		if err != nil {
			return nil, err
		}
		return &boundNot{child: child}, nil
	default:
		return nil, &SyntaxError{Msg: fmt.Sprintf("unexpected node %T", n)}
	}
}

func (b *binder) bindChildren(nodes []Node) ([]boundNode, error) {
	children := make([]boundNode, 0, len(nodes))
	for _, n := range nodes {
		c, err := b.bind(n)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

func (b *binder) bindTest(t *Test) (boundNode, error) {
	a, err := b.reg.Resolve(t.Attr)
	if err != nil {
		return nil, err
	}
	typ := b.reg.Type(a)
	if !typ.Supports(t.Op) {
		return nil, &TestError{Test: t.Raw,
			Msg: fmt.Sprintf("type %s does not support operator %q", typ.Kind, t.Op)}
	}

	value := t.Value
	var refValue *types.Value
	if t.HasRef {
		v, err := b.resolveReference(t, typ)
		if err != nil {
			return nil, err
		}
		refValue = &v
		value = v.Plain()
	}

	bt := &boundTest{attribute: a, op: t.Op, typ: typ}
	if desc, ok := b.reg.Descriptor(a); ok {
		bt.price = desc.Cost
	}

	switch {
	case typ.Kind == types.Mode:
		if refValue != nil {
			bt.num = refValue.Num
		} else {
			n, err := types.ParseMode(value)
			if err != nil {
				return nil, &TestError{Test: t.Raw, Msg: err.Error()}
			}
			bt.num = n
		}

	case typ.StringType:
		bt.ignoreCase = b.foldCase(value)
		switch t.Op {
		case types.OpEq, types.OpContains:
			bt.needle = value
			if bt.ignoreCase {
				bt.needle = strings.ToLower(value)
			}
		case types.OpRegex:
			pattern := value
			if bt.ignoreCase {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, &TestError{Test: t.Raw,
					Msg: "invalid regular expression: " + err.Error()}
			}
			bt.re = re
		case types.OpGlob:
			src := value
			if bt.ignoreCase {
				src = strings.ToLower(src)
			}
			glob, err := ignore.CompilePattern(src)
			if err != nil {
				return nil, &TestError{Test: t.Raw, Msg: err.Error()}
			}
			bt.glob = glob

			// An anchored pattern on name or path can only ever match
			// relative to a start directory, so the test is moved to the
			// relpath attribute.
			if glob.Anchored && a.Plugin == "file" && (a.Name == "name" || a.Name == "path") {
				bt.attribute = attr.Attribute{Plugin: "file", Name: "relpath"}
				if b.opts.Logger != nil {
					b.opts.Logger.Warn("anchored pattern matched against relpath",
						"attribute", a.String(), "pattern", t.Value)
				}
			}
		}

	default:
		var v types.Value
		if refValue != nil {
			v = *refValue
		} else {
			v, err = typ.Parse(value, b.opts.SI)
			if err != nil {
				return nil, &TestError{Test: t.Raw, Msg: err.Error()}
			}
		}
		switch typ.Kind.Family() {
		case types.FamilyNumber:
			bt.num = v.Num
		case types.FamilyBoolean:
			bt.boolean = v.Bool
		default:
			bt.needle = v.Str
		}
	}

	return bt, nil
}

// foldCase decides case-insensitivity for one pattern.
func (b *binder) foldCase(value string) bool {
	switch b.opts.Case {
	case CaseInsensitive:
		return true
	case CaseSensitive:
		return false
	default:
		return strings.ToLower(value) == value
	}
}

// resolveReference reads the comparison value off a reference file. The
// referenced attribute must be comparable to the test's attribute.
func (b *binder) resolveReference(t *Test, typ *types.Type) (types.Value, error) {
	name := t.Ref
	if name == "" {
		name = t.Attr
	}
	refAttr, err := b.reg.Resolve(name)
	if err != nil {
		return types.Value{}, err
	}
	refType := b.reg.Type(refAttr)
	if refType.Kind.Family() != typ.Kind.Family() {
		return types.Value{}, &TestError{Test: t.Raw,
			Msg: fmt.Sprintf("reference attribute %s (%s) is not comparable to type %s",
				refAttr, refType.Kind, typ.Kind)}
	}

	entry, err := attr.NewReferenceEntry(t.Value, b.opts.Follow)
	if err != nil {
		return types.Value{}, &ReferenceError{Path: t.Value, Err: err}
	}
	ctx := attr.NewContext(entry, b.reg, b.opts.Store)
	v, ok, err := ctx.GetError(refAttr)
	if err != nil {
		return types.Value{}, err
	}
	if !ok {
		return types.Value{}, &ReferenceError{Path: t.Value,
			Err: fmt.Errorf("attribute %s not available", refAttr)}
	}
	return v, nil
}

// boundTest is one compiled comparison.
type boundTest struct {
	attribute attr.Attribute
	op        types.Operator
	typ       *types.Type
	price     int

	needle     string
	ignoreCase bool
	re         *regexp.Regexp
	glob       *ignore.Pattern
	num        int64
	boolean    bool
}

func (bt *boundTest) cost() int { return bt.price }

// eval fetches the attribute and applies the comparison. An entry that does
// not provide the attribute never matches.
func (bt *boundTest) eval(ctx *attr.Context) bool {
	v, ok := ctx.Get(bt.attribute)
	if !ok {
		return false
	}

	if bt.typ.Kind == types.Mode {
		switch bt.op {
		case types.OpEq:
			return v.Num == bt.num
		case types.OpContains:
			return v.Num&bt.num == bt.num
		case types.OpRegex:
			return v.Num&bt.num != 0
		}
		return false
	}

	switch bt.typ.Kind.Family() {
	case types.FamilyNumber:
		switch bt.op {
		case types.OpEq:
			return v.Num == bt.num
		case types.OpGT:
			return v.Num > bt.num
		case types.OpLT:
			return v.Num < bt.num
		case types.OpGE:
			return v.Num >= bt.num
		case types.OpLE:
			return v.Num <= bt.num
		}
		return false
	case types.FamilyBoolean:
		return v.Bool == bt.boolean
	}

	if bt.typ.Kind == types.Strings {
		for _, s := range v.List {
			if bt.matchString(s, ctx.Entry.IsDir()) {
				return true
			}
		}
		return false
	}
	return bt.matchString(v.Str, ctx.Entry.IsDir())
}

func (bt *boundTest) matchString(s string, isDir bool) bool {
	switch bt.op {
	case types.OpEq:
		if bt.ignoreCase {
			s = strings.ToLower(s)
		}
		return s == bt.needle
	case types.OpContains:
		if bt.ignoreCase {
			s = strings.ToLower(s)
		}
		return strings.Contains(s, bt.needle)
	case types.OpRegex:
		return bt.re.MatchString(s)
	case types.OpGlob:
		if bt.ignoreCase {
			s = strings.ToLower(s)
		}
		return bt.glob.Matches(s, isDir)
	}
	return false
}
