package expr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/builtin"
)

func testRegistry(t *testing.T) *attr.Registry {
	t.Helper()
	reg := attr.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func fileContext(t *testing.T, reg *attr.Registry, name, content string) *attr.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, err := attr.NewReferenceEntry(path, false)
	if err != nil {
		t.Fatalf("NewReferenceEntry: %v", err)
	}
	return attr.NewContext(e, reg, nil)
}

func mustBind(t *testing.T, reg *attr.Registry, opts BindOptions, tokens ...string) *Expr {
	t.Helper()
	node, err := Parse(tokens, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse(%v): %v", tokens, err)
	}
	x, err := Bind(node, reg, opts)
	if err != nil {
		t.Fatalf("Bind(%v): %v", tokens, err)
	}
	return x
}

func Test_Bind_EmptyExpressionMatchesEverything(t *testing.T) {
	reg := testRegistry(t)
	x := mustBind(t, reg, BindOptions{})
	if !x.Empty() {
		t.Error("expression should be empty")
	}
	if !x.Eval(fileContext(t, reg, "anything.txt", "x")) {
		t.Error("empty expression must match")
	}
}

func Test_Bind_RegexSmartCase(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "README.md", "x")

	// All-lowercase pattern ignores case.
	if !mustBind(t, reg, BindOptions{}, "name~readme").Eval(ctx) {
		t.Error("smart case should match README.md")
	}
	// A pattern with upper-case characters is case sensitive.
	if mustBind(t, reg, BindOptions{}, "name~Readme").Eval(ctx) {
		t.Error("mixed-case pattern must not match README.md")
	}
	if !mustBind(t, reg, BindOptions{}, "name~README").Eval(ctx) {
		t.Error("exact-case pattern should match")
	}
}

func Test_Bind_CaseModes(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "README.md", "x")

	if mustBind(t, reg, BindOptions{Case: CaseSensitive}, "name~readme").Eval(ctx) {
		t.Error("sensitive mode must not match")
	}
	if !mustBind(t, reg, BindOptions{Case: CaseInsensitive}, "name~ReAdMe").Eval(ctx) {
		t.Error("insensitive mode should match")
	}
}

func Test_Bind_SizeComparisons(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "five.txt", "12345")

	cases := map[string]bool{
		"size=5":  true,
		"size+4":  true,
		"size+5":  false,
		"size+=5": true,
		"size-6":  true,
		"size-=4": false,
	}
	for token, want := range cases {
		if got := mustBind(t, reg, BindOptions{}, token).Eval(ctx); got != want {
			t.Errorf("%q = %v, want %v", token, got, want)
		}
	}
}

func Test_Bind_TypeEquality(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "a.txt", "x")

	if !mustBind(t, reg, BindOptions{}, "type=f").Eval(ctx) {
		t.Error("type=f should match a regular file")
	}
	if mustBind(t, reg, BindOptions{}, "type=d").Eval(ctx) {
		t.Error("type=d must not match a regular file")
	}
}

func Test_Bind_BooleanAndContains(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "notes.txt", "hello")

	if !mustBind(t, reg, BindOptions{}, "empty=no").Eval(ctx) {
		t.Error("empty=no should match")
	}
	if !mustBind(t, reg, BindOptions{}, "name:ote").Eval(ctx) {
		t.Error("substring should match")
	}
	if mustBind(t, reg, BindOptions{}, "name:xyz").Eval(ctx) {
		t.Error("missing substring must not match")
	}
}

func Test_Bind_GlobOperator(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "app.log", "x")

	if !mustBind(t, reg, BindOptions{}, "name%*.log").Eval(ctx) {
		t.Error("glob should match")
	}
	if mustBind(t, reg, BindOptions{}, "name%*.txt").Eval(ctx) {
		t.Error("glob must not match")
	}
}

func Test_Bind_BooleanLogic(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "app.log", "x")

	if !mustBind(t, reg, BindOptions{}, "name%*.log", "or", "name%*.txt").Eval(ctx) {
		t.Error("or should match")
	}
	if mustBind(t, reg, BindOptions{}, "name%*.log", "name%*.txt").Eval(ctx) {
		t.Error("and must not match")
	}
	if mustBind(t, reg, BindOptions{}, "not", "name%*.log").Eval(ctx) {
		t.Error("not should invert")
	}
}

func Test_Bind_UnsupportedOperator(t *testing.T) {
	reg := testRegistry(t)
	node, err := Parse([]string{"size~5"}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Bind(node, reg, BindOptions{})
	var testErr *TestError
	if !errors.As(err, &testErr) {
		t.Errorf("expected TestError, got %v", err)
	}
}

func Test_Bind_UnknownAttribute(t *testing.T) {
	reg := testRegistry(t)
	node, err := Parse([]string{"bogus=1"}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Bind(node, reg, BindOptions{})
	var attrErr *attr.AttributeError
	if !errors.As(err, &attrErr) {
		t.Errorf("expected AttributeError, got %v", err)
	}
}

func Test_Bind_InvalidValue(t *testing.T) {
	reg := testRegistry(t)
	node, err := Parse([]string{"size=oodles"}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Bind(node, reg, BindOptions{})
	var testErr *TestError
	if !errors.As(err, &testErr) {
		t.Errorf("expected TestError, got %v", err)
	}
}

func Test_Bind_FileReference(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref")
	if err := os.WriteFile(ref, []byte("123"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx := fileContext(t, reg, "big.txt", "123456")
	if !mustBind(t, reg, BindOptions{}, "size+{}"+ref).Eval(ctx) {
		t.Error("6 bytes should be bigger than the 3-byte reference")
	}

	small := fileContext(t, reg, "small.txt", "1")
	if mustBind(t, reg, BindOptions{}, "size+{}"+ref).Eval(small) {
		t.Error("1 byte is not bigger than the reference")
	}
}

func Test_Bind_MissingReferenceFile(t *testing.T) {
	reg := testRegistry(t)
	node, err := Parse([]string{"size+{}/no/such/file"}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Bind(node, reg, BindOptions{})
	var refErr *ReferenceError
	if !errors.As(err, &refErr) {
		t.Errorf("expected ReferenceError, got %v", err)
	}
}

func Test_Bind_IncompatibleReferenceAttribute(t *testing.T) {
	reg := testRegistry(t)
	node, err := Parse([]string{"size+{file.name}/tmp"}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Bind(node, reg, BindOptions{})
	var testErr *TestError
	if !errors.As(err, &testErr) {
		t.Errorf("string and size are not comparable, got %v", err)
	}
}

func Test_Bind_ReordersByCost(t *testing.T) {
	reg := testRegistry(t)

	// empty (cost 10) is written first but must run after name (cost 0).
	node, err := Parse([]string{"empty=no", "name~x"}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	x, err := Bind(node, reg, BindOptions{})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	and, ok := x.root.(*boundAnd)
	if !ok {
		t.Fatalf("root = %T", x.root)
	}
	first, ok := and.children[0].(*boundTest)
	if !ok {
		t.Fatalf("child = %T", and.children[0])
	}
	if first.attribute.Name != "name" {
		t.Errorf("cheap test should run first, got %s", first.attribute)
	}
}

func Test_Bind_ReorderPreservesResult(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "data.log", "content")

	a := mustBind(t, reg, BindOptions{}, "empty=no", "name%*.log")
	b := mustBind(t, reg, BindOptions{}, "name%*.log", "empty=no")
	ctx2 := fileContext(t, reg, "data.log", "content")
	if a.Eval(ctx) != b.Eval(ctx2) {
		t.Error("reordering must not change the result")
	}
}

func Test_Bind_AnchoredGlobUsesRelpath(t *testing.T) {
	reg := testRegistry(t)
	node, err := Parse([]string{"name%/sub/*.txt"}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	x, err := Bind(node, reg, BindOptions{})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	test, ok := x.root.(*boundTest)
	if !ok {
		t.Fatalf("root = %T", x.root)
	}
	if test.attribute != (attr.Attribute{Plugin: "file", Name: "relpath"}) {
		t.Errorf("anchored glob should bind to relpath, got %s", test.attribute)
	}
}

func Test_Bind_ModeTests(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "script")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, err := attr.NewReferenceEntry(path, false)
	if err != nil {
		t.Fatalf("NewReferenceEntry: %v", err)
	}
	ctx := attr.NewContext(e, reg, nil)

	if !mustBind(t, reg, BindOptions{}, "perm=755").Eval(ctx) {
		t.Error("perm=755 should match")
	}
	if !mustBind(t, reg, BindOptions{}, "perm:u+x").Eval(ctx) {
		t.Error("perm:u+x should match (all bits present)")
	}
	if mustBind(t, reg, BindOptions{}, "perm:222").Eval(ctx) {
		t.Error("perm:222 requires write bits for everyone")
	}
	if !mustBind(t, reg, BindOptions{}, "perm~002").Eval(ctx) {
		t.Error("perm~002 matches any overlapping bit")
	}
}

func Test_BindExcluder_Defaults(t *testing.T) {
	reg := testRegistry(t)

	excluder, err := BindExcluder([]string{"*.log", "size+1M"}, reg, BindOptions{})
	if err != nil {
		t.Fatalf("BindExcluder: %v", err)
	}

	if !excluder.Match(fileContext(t, reg, "app.log", "x")) {
		t.Error("bare token should act as a name glob")
	}
	if excluder.Match(fileContext(t, reg, "app.txt", "x")) {
		t.Error("app.txt is not excluded")
	}
}

func Test_BindExcluder_EmptyExcludesNothing(t *testing.T) {
	reg := testRegistry(t)
	excluder, err := BindExcluder(nil, reg, BindOptions{})
	if err != nil {
		t.Fatalf("BindExcluder: %v", err)
	}
	if excluder.Match(fileContext(t, reg, "a.txt", "x")) {
		t.Error("empty excluder must not match")
	}
}

func Test_Bind_MissingAttributeEvaluatesFalse(t *testing.T) {
	reg := testRegistry(t)
	ctx := fileContext(t, reg, "plain.txt", "x")

	// link has no value for regular files.
	if mustBind(t, reg, BindOptions{}, "link~x").Eval(ctx) {
		t.Error("missing attribute must evaluate false")
	}
	if !mustBind(t, reg, BindOptions{}, "not", "link~x").Eval(ctx) {
		t.Error("not over a missing attribute is true")
	}
}
