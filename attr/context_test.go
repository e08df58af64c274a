package attr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/ff/types"
)

// fakeStore is an in-memory Store honoring the (mtime, size) invariant.
type fakeStore struct {
	records map[string]storeRec
	puts    int
}

type storeRec struct {
	mtime int64
	size  int64
	v     types.Value
	isErr bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]storeRec)}
}

func (s *fakeStore) Get(path string, mtimeNs, size int64, attribute string) (types.Value, bool, bool) {
	rec, ok := s.records[path+"\x00"+attribute]
	if !ok || rec.mtime != mtimeNs || rec.size != size {
		return types.Value{}, false, false
	}
	return rec.v, rec.isErr, true
}

func (s *fakeStore) Put(path string, mtimeNs, size int64, attribute string, v types.Value, isErr bool) {
	s.puts++
	s.records[path+"\x00"+attribute] = storeRec{mtime: mtimeNs, size: size, v: v, isErr: isErr}
}

func tempEntry(t *testing.T, content string) *Entry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, err := NewReferenceEntry(path, false)
	if err != nil {
		t.Fatalf("NewReferenceEntry: %v", err)
	}
	return e
}

func Test_Context_FileNamespaceShortcut(t *testing.T) {
	e := tempEntry(t, "hello")
	reg := NewRegistry()
	ctx := NewContext(e, reg, nil)

	v, ok := ctx.Get(Attribute{Plugin: "file", Name: "name"})
	if !ok || v.Str != "sample.txt" {
		t.Errorf("file.name = %v, %v", v, ok)
	}
	v, ok = ctx.Get(Attribute{Plugin: "file", Name: "size"})
	if !ok || v.Num != 5 {
		t.Errorf("file.size = %v, %v", v, ok)
	}
}

func Test_Context_ProviderRunsOncePerEntry(t *testing.T) {
	e := tempEntry(t, "x")
	reg := NewRegistry()

	runs := 0
	reg.Register(&fakeProvider{
		name: "img",
		descs: []Descriptor{
			{Name: "width", Kind: types.Number},
			{Name: "height", Kind: types.Number},
		},
		process: func(e *Entry, ctx *Context) error {
			runs++
			ctx.Set(Attribute{Plugin: "img", Name: "width"}, types.Num(640))
			ctx.Set(Attribute{Plugin: "img", Name: "height"}, types.Num(480))
			return nil
		},
	})

	ctx := NewContext(e, reg, nil)
	if v, ok := ctx.Get(Attribute{Plugin: "img", Name: "width"}); !ok || v.Num != 640 {
		t.Errorf("width = %v, %v", v, ok)
	}
	if v, ok := ctx.Get(Attribute{Plugin: "img", Name: "height"}); !ok || v.Num != 480 {
		t.Errorf("height = %v, %v", v, ok)
	}
	if runs != 1 {
		t.Errorf("Process ran %d times, want 1", runs)
	}
}

func Test_Context_MissingValueIsMemoized(t *testing.T) {
	e := tempEntry(t, "x")
	reg := NewRegistry()

	runs := 0
	reg.Register(&fakeProvider{
		name:  "img",
		descs: []Descriptor{{Name: "width", Kind: types.Number}},
		process: func(e *Entry, ctx *Context) error {
			runs++
			return nil // provides nothing for this entry
		},
	})

	ctx := NewContext(e, reg, nil)
	a := Attribute{Plugin: "img", Name: "width"}
	if _, ok := ctx.Get(a); ok {
		t.Error("width should be missing")
	}
	if _, ok := ctx.Get(a); ok {
		t.Error("width should still be missing")
	}
	if runs != 1 {
		t.Errorf("Process ran %d times, want 1", runs)
	}
}

func Test_Context_CacheableWritesThrough(t *testing.T) {
	e := tempEntry(t, "x")
	reg := NewRegistry()
	store := newFakeStore()

	runs := 0
	reg.Register(&fakeProvider{
		name:  "hash",
		descs: []Descriptor{{Name: "md5", Kind: types.String, Cacheable: true}},
		process: func(e *Entry, ctx *Context) error {
			runs++
			ctx.Set(Attribute{Plugin: "hash", Name: "md5"}, types.Str("abc"))
			return nil
		},
	})

	a := Attribute{Plugin: "hash", Name: "md5"}

	ctx := NewContext(e, reg, store)
	if v, ok := ctx.Get(a); !ok || v.Str != "abc" {
		t.Fatalf("md5 = %v, %v", v, ok)
	}
	if store.puts != 1 {
		t.Errorf("store received %d puts, want 1", store.puts)
	}

	// A fresh context over the same entry is served from the store.
	ctx2 := NewContext(e, reg, store)
	if v, ok := ctx2.Get(a); !ok || v.Str != "abc" {
		t.Errorf("cached md5 = %v, %v", v, ok)
	}
	if runs != 1 {
		t.Errorf("Process ran %d times, want 1", runs)
	}
}

func Test_Context_GetErrorSurfacesInitFailure(t *testing.T) {
	e := tempEntry(t, "x")
	reg := NewRegistry()
	reg.Register(&fakeProvider{
		name:    "broken",
		initErr: errors.New("no database"),
		descs:   []Descriptor{{Name: "x", Kind: types.String}},
	})

	ctx := NewContext(e, reg, nil)
	_, _, err := ctx.GetError(Attribute{Plugin: "broken", Name: "x"})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("expected ProviderError, got %v", err)
	}
}

func Test_Entry_FileAttributes(t *testing.T) {
	e := tempEntry(t, "hello")

	cases := map[string]string{
		"name":  "sample.txt",
		"ext":   "txt",
		"namex": "sample",
		"type":  "file",
	}
	for name, want := range cases {
		v, err := e.Attribute(name)
		if err != nil {
			t.Fatalf("Attribute(%s): %v", name, err)
		}
		if v.Str != want {
			t.Errorf("%s = %q, want %q", name, v.Str, want)
		}
	}

	if v, _ := e.Attribute("size"); v.Num != 5 {
		t.Errorf("size = %d", v.Num)
	}
	if v, _ := e.Attribute("hide"); v.Bool {
		t.Error("sample.txt is not hidden")
	}
	if v, _ := e.Attribute("empty"); v.Bool {
		t.Error("file with content is not empty")
	}
	if v, _ := e.Attribute("text"); !v.Bool {
		t.Error("plain text file should report text=true")
	}
	if _, err := e.Attribute("link"); !errors.Is(err, ErrNoValue) {
		t.Errorf("link on a regular file should have no value, got %v", err)
	}
}

func Test_Entry_Depth(t *testing.T) {
	dir := t.TempDir()
	start, err := NewStartDir(dir, false)
	if err != nil {
		t.Fatalf("NewStartDir: %v", err)
	}
	path := filepath.Join(dir, "a", "b", "c.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}

	e := NewEntry(start, "a/b/c.txt", info, nil)
	if e.Depth() != 2 {
		t.Errorf("depth = %d, want 2", e.Depth())
	}
	if v, _ := e.Attribute("empty"); !v.Bool {
		t.Error("zero-byte file should be empty")
	}
}

func Test_Entry_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink("target", link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	dangling := filepath.Join(dir, "dangling")
	if err := os.Symlink("nowhere", dangling); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	e, err := NewReferenceEntry(link, false)
	if err != nil {
		t.Fatalf("NewReferenceEntry: %v", err)
	}
	if !e.IsSymlink() {
		t.Fatal("link should be a symlink")
	}
	if v, _ := e.Attribute("link"); v.Str != "target" {
		t.Errorf("link = %q", v.Str)
	}
	if v, _ := e.Attribute("broken"); v.Bool {
		t.Error("link is not broken")
	}
	if v, _ := e.Attribute("size"); v.Num != 0 {
		t.Errorf("symlinks report size 0, got %d", v.Num)
	}

	d, err := NewReferenceEntry(dangling, false)
	if err != nil {
		t.Fatalf("NewReferenceEntry: %v", err)
	}
	if v, _ := d.Attribute("broken"); !v.Bool {
		t.Error("dangling link should be broken")
	}
}

func Test_Entry_FollowedSymlinkIsFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink("target", link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	e, err := NewReferenceEntry(link, true)
	if err != nil {
		t.Fatalf("NewReferenceEntry: %v", err)
	}
	if !e.IsFile() {
		t.Error("followed symlink should report the target's type")
	}
	if v, _ := e.Attribute("size"); v.Num != 4 {
		t.Errorf("size = %d, want 4", v.Num)
	}
}
