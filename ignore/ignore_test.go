package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func Test_Ruleset_MatchesBelowItsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n")

	rs, err := LoadRuleset(dir, ".gitignore")
	if err != nil {
		t.Fatalf("LoadRuleset: %v", err)
	}

	match := rs.Match(filepath.Join(dir, "app.log"), false)
	if match == nil || !match.Ignore() {
		t.Error("app.log should be ignored")
	}
	if match := rs.Match(filepath.Join(dir, "app.txt"), false); match != nil {
		t.Error("app.txt should not match any rule")
	}
	if match := rs.Match("/elsewhere/app.log", false); match != nil {
		t.Error("paths outside the ruleset directory should not match")
	}
}

func Test_Stack_LastMatchWins(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n")
	writeFile(t, filepath.Join(sub, ".gitignore"), "!keep.log\n")

	top, err := LoadRuleset(dir, ".gitignore")
	if err != nil {
		t.Fatalf("LoadRuleset: %v", err)
	}
	inner, err := LoadRuleset(sub, ".gitignore")
	if err != nil {
		t.Fatalf("LoadRuleset: %v", err)
	}

	stack := NewStack(top).Push(inner)

	ignored, source := stack.Match(filepath.Join(sub, "app.log"), false)
	if !ignored {
		t.Error("app.log should be ignored")
	}
	if source != filepath.Join(dir, ".gitignore") {
		t.Errorf("winning source = %q", source)
	}

	ignored, source = stack.Match(filepath.Join(sub, "keep.log"), false)
	if ignored {
		t.Error("keep.log is negated by the deeper ignore file")
	}
	if source != "" {
		t.Errorf("negated match should have no source, got %q", source)
	}
}

func Test_Stack_PushDoesNotMutate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n")

	rs, err := LoadRuleset(dir, ".gitignore")
	if err != nil {
		t.Fatalf("LoadRuleset: %v", err)
	}

	base := NewStack()
	grown := base.Push(rs)
	if base.Len() != 0 {
		t.Error("Push must not modify the original stack")
	}
	if grown.Len() != 1 {
		t.Errorf("grown stack has %d rule sets", grown.Len())
	}
}

func Test_FindParents_CollectsAncestors(t *testing.T) {
	dir := t.TempDir()
	child := filepath.Join(dir, "a", "b")
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	stack := FindParents(child, DefaultNames)
	if stack.Len() == 0 {
		t.Fatal("expected at least the tempdir ignore file")
	}

	ignored, _ := stack.Match(filepath.Join(child, "x.log"), false)
	if !ignored {
		t.Error("x.log should be ignored by the ancestor rules")
	}
}

func Test_IsIgnoreFile_DefaultNames(t *testing.T) {
	if !IsIgnoreFile(".gitignore", DefaultNames) {
		t.Error(".gitignore is an ignore file")
	}
	if IsIgnoreFile("README", DefaultNames) {
		t.Error("README is not an ignore file")
	}
}

func Test_CompilePattern_BasenameMatch(t *testing.T) {
	p, err := CompilePattern("*.log")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if p.Anchored {
		t.Error("*.log is not anchored")
	}
	if !p.Matches("dir/sub/app.log", false) {
		t.Error("basename match failed")
	}
	if p.Matches("dir/sub/app.txt", false) {
		t.Error("app.txt must not match")
	}
}

func Test_CompilePattern_AnchoredMatch(t *testing.T) {
	p, err := CompilePattern("/src/*.go")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if !p.Anchored {
		t.Error("pattern with slash should be anchored")
	}
	if !p.Matches("src/main.go", false) {
		t.Error("relative value should match the anchored pattern")
	}
	// A leading slash in the value is irrelevant for anchoring.
	if !p.Matches("/src/main.go", false) {
		t.Error("absolute value should match the anchored pattern")
	}
	if p.Matches("other/src/main.go", false) {
		t.Error("anchored pattern must match from the start")
	}
}

func Test_CompilePattern_DirOnly(t *testing.T) {
	p, err := CompilePattern("build/")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if !p.Matches("build", true) {
		t.Error("directory should match")
	}
	if p.Matches("build", false) {
		t.Error("file must not match a dir-only pattern")
	}
}

func Test_CompilePattern_Negation(t *testing.T) {
	p, err := CompilePattern("!*.log")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if p.Matches("app.log", false) {
		t.Error("negated pattern inverts the match")
	}
	if !p.Matches("app.txt", false) {
		t.Error("negated pattern matches everything else")
	}
}

func Test_CompilePattern_DoublestarAndInvalid(t *testing.T) {
	p, err := CompilePattern("/a/**/c.txt")
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	if !p.Matches("a/b/b2/c.txt", false) {
		t.Error("** should span directories")
	}

	if _, err := CompilePattern("a[b"); err == nil {
		t.Error("invalid glob should be rejected")
	}
}
