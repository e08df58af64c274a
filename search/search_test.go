package search

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fixture builds the sample tree:
//
//	foo            4 bytes
//	baz            10 bytes
//	BAR            symlink to foo
//	.hidden        1 byte
//	dir/
//	dir/dir/
//	dir/dir/empty  0 bytes
//	dir/empty_dir/
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write("foo", "foo\n")
	write("baz", "foobarbaz\n")
	write(".hidden", "x")
	write(filepath.Join("dir", "dir", "empty"), "")
	if err := os.MkdirAll(filepath.Join(root, "dir", "empty_dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink("foo", filepath.Join(root, "BAR")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	return root
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runSearch runs one search over the configured directories and returns the
// exit code and captured stdout.
func runSearch(t *testing.T, cfg Config) (int, string) {
	t.Helper()

	var buf bytes.Buffer
	cfg.Stdout = &buf
	cfg.NoCache = true
	cfg.Logger = quietLogger()

	code, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return code, buf.String()
}

// rels strips the root prefix off every output line.
func rels(root, out string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, strings.TrimPrefix(line, root+string(filepath.Separator)))
	}
	return lines
}

func Test_Run_SortedListing(t *testing.T) {
	root := fixture(t)

	code, out := runSearch(t, Config{
		Directories: []string{root},
		HideHidden:  true,
		Sort:        true,
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}

	want := []string{
		"BAR", "baz", "dir",
		filepath.Join("dir", "dir"),
		filepath.Join("dir", "dir", "empty"),
		filepath.Join("dir", "empty_dir"),
		"foo",
	}
	got := rels(root, out)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func Test_Run_ExpressionFiltersFiles(t *testing.T) {
	root := fixture(t)

	code, out := runSearch(t, Config{
		Directories: []string{root},
		Tests:       []string{"type=f", "size=0"},
		Sort:        true,
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}

	got := rels(root, out)
	if len(got) != 1 || got[0] != filepath.Join("dir", "dir", "empty") {
		t.Errorf("got %v", got)
	}
}

func Test_Run_JSONOutput(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("xy"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	code, out := runSearch(t, Config{
		Directories: []string{root},
		Tests:       []string{"type=f"},
		JSON:        true,
		Output:      "name,size",
		Sort:        true,
		SortFields:  "name",
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}

	want := `[{"name":"a.txt","size":1},{"name":"b.txt","size":2}]` + "\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func Test_Run_Count(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("xy"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	code, out := runSearch(t, Config{
		Directories: []string{root},
		Tests:       []string{"type=f"},
		Count:       true,
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}

	want := "size=3\ntype[file]=2\n_total=2\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func Test_Run_FailWithoutMatches(t *testing.T) {
	root := fixture(t)

	code, out := runSearch(t, Config{
		Directories: []string{root},
		Tests:       []string{"name=does-not-exist"},
		Fail:        true,
	})
	if code != ExitNoMatches {
		t.Errorf("exit = %d, want %d", code, ExitNoMatches)
	}
	if out != "" {
		t.Errorf("output = %q", out)
	}
}

func Test_Run_LimitSelectsPage(t *testing.T) {
	root := fixture(t)

	code, out := runSearch(t, Config{
		Directories: []string{root},
		HideHidden:  true,
		Sort:        true,
		Limit:       "2,1",
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}

	want := []string{"dir", filepath.Join("dir", "dir")}
	got := rels(root, out)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func Test_Run_FirstOnly(t *testing.T) {
	root := fixture(t)

	code, out := runSearch(t, Config{
		Directories: []string{root},
		HideHidden:  true,
		Sort:        true,
		FirstOnly:   true,
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}
	got := rels(root, out)
	if len(got) != 1 || got[0] != "BAR" {
		t.Errorf("got %v", got)
	}
}

func Test_Run_Excludes(t *testing.T) {
	root := fixture(t)

	code, out := runSearch(t, Config{
		Directories: []string{root},
		HideHidden:  true,
		Excludes:    []string{"dir"},
		Sort:        true,
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}

	want := []string{"BAR", "baz", "foo"}
	got := rels(root, out)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func Test_Run_IgnoreFiles(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		".gitignore": "*.log\n",
		"app.log":    "x",
		"app.txt":    "x",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	code, out := runSearch(t, Config{
		Directories: []string{root},
		HideHidden:  true,
		HideIgnored: true,
		Sort:        true,
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}

	got := rels(root, out)
	if len(got) != 1 || got[0] != "app.txt" {
		t.Errorf("got %v", got)
	}
}

func Test_Run_ExitCodeClassification(t *testing.T) {
	root := t.TempDir()

	run := func(cfg Config) int {
		cfg.Directories = []string{root}
		cfg.NoCache = true
		cfg.Logger = quietLogger()
		cfg.Stdout = io.Discard
		code, _ := Run(context.Background(), cfg)
		return code
	}

	if code := run(Config{Tests: []string{"not"}}); code != ExitExpression {
		t.Errorf("syntax error exit = %d, want %d", code, ExitExpression)
	}
	if code := run(Config{Tests: []string{"bogus=1"}}); code != ExitAttribute {
		t.Errorf("unknown attribute exit = %d, want %d", code, ExitAttribute)
	}
	if code := run(Config{Depths: []string{"x"}}); code != ExitUsage {
		t.Errorf("bad depth exit = %d, want %d", code, ExitUsage)
	}
	if code := run(Config{JSON: true, JSONLines: true}); code != ExitUsage {
		t.Errorf("conflicting modes exit = %d, want %d", code, ExitUsage)
	}
	if code := run(Config{NoCache: true, CleanCache: true}); code != ExitUsage {
		t.Errorf("cache conflict exit = %d, want %d", code, ExitUsage)
	}
	if code := run(Config{Count: true, Limit: "0:5"}); code != ExitUsage {
		t.Errorf("count with limit exit = %d, want %d", code, ExitUsage)
	}
	if code := run(Config{Count: true, FirstOnly: true}); code != ExitUsage {
		t.Errorf("count with -1 exit = %d, want %d", code, ExitUsage)
	}
}

func Test_Run_ExecBatch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	code, _ := runSearch(t, Config{
		Directories: []string{root},
		Tests:       []string{"type=f"},
		ExecBatch:   []string{"true"},
	})
	if code != ExitOK {
		t.Fatalf("exit = %d", code)
	}
}

func Test_Run_InterruptedSearchExitsNonzero(t *testing.T) {
	root := fixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	code, err := Run(ctx, Config{
		Directories: []string{root},
		NoCache:     true,
		Logger:      quietLogger(),
		Stdout:      &buf,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != ExitWalk {
		t.Errorf("interrupted run exited %d, want %d", code, ExitWalk)
	}
}

func Test_Run_SubprocessFailure(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	code, _ := runSearch(t, Config{
		Directories: []string{root},
		Tests:       []string{"type=f"},
		Exec:        []string{"false"},
	})
	if code != ExitSubprocess {
		t.Errorf("exit = %d, want %d", code, ExitSubprocess)
	}
}
