// Package walk traverses the start directories in parallel and feeds the
// entries that pass exclusion, depth limits and the search expression to a
// callback. Directories are units of work distributed over a bounded pool
// of workers.
package walk

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/expr"
	"github.com/lexandro/ff/ignore"
)

// Options configures a Walker.
type Options struct {
	// Workers is the pool size, defaulting to GOMAXPROCS.
	Workers int
	// Follow resolves symlinks when stating entries and descends into
	// symlinked directories.
	Follow bool
	// OneFilesystem stops descent at filesystem boundaries.
	OneFilesystem bool
	// Depths limits which entries are reported. An empty list reports all.
	Depths Depths
	// IgnoreNames are the ignore file names to collect while walking, nil
	// to skip ignore handling entirely.
	IgnoreNames []string
	// NoParentIgnore skips ignore files in the ancestors of the start
	// directories.
	NoParentIgnore bool
	Logger         *slog.Logger
}

// Walker runs the traversal. Emit is called concurrently from the worker
// goroutines; the receiver must be safe for concurrent use.
type Walker struct {
	opts     Options
	reg      *attr.Registry
	store    attr.Store
	matcher  *expr.Expr
	excluder *expr.Excluder
	emit     func(*attr.Context)

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []*task
	pending int

	visited *xsync.MapOf[devino, struct{}]
	failed  atomic.Bool
	halted  atomic.Bool
}

type devino struct {
	dev uint64
	ino uint64
}

// task is one directory to scan.
type task struct {
	start   *attr.StartDir
	rel     string
	ignores *ignore.Stack
}

// New builds a Walker. matcher and excluder may be empty but not nil.
func New(opts Options, reg *attr.Registry, store attr.Store,
	matcher *expr.Expr, excluder *expr.Excluder, emit func(*attr.Context)) *Walker {

	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &Walker{
		opts:     opts,
		reg:      reg,
		store:    store,
		matcher:  matcher,
		excluder: excluder,
		emit:     emit,
		visited:  xsync.NewMapOf[devino, struct{}](),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Halt makes the walker drain its queue without scanning further
// directories. Used when a subprocess failure aborts the search.
func (w *Walker) Halt() {
	w.halted.Store(true)
	w.cond.Broadcast()
}

// Failed reports whether any directory could not be read.
func (w *Walker) Failed() bool { return w.failed.Load() }

// Walk runs the traversal over the start directories and blocks until all
// workers are done or the context is canceled.
func (w *Walker) Walk(ctx context.Context, starts []*attr.StartDir) {
	for _, start := range starts {
		ignores := ignore.NewStack()
		if w.opts.IgnoreNames != nil && !w.opts.NoParentIgnore {
			ignores = ignore.FindParents(start.Root, w.opts.IgnoreNames)
		}
		w.push(&task{start: start, rel: "", ignores: ignores})
	}

	stop := context.AfterFunc(ctx, func() { w.Halt() })
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.worker()
		}()
	}
	wg.Wait()
}

func (w *Walker) push(t *task) {
	w.mu.Lock()
	w.tasks = append(w.tasks, t)
	w.pending++
	w.mu.Unlock()
	w.cond.Signal()
}

// pop blocks until a task is available or the traversal is complete.
func (w *Walker) pop() *task {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		if len(w.tasks) > 0 {
			t := w.tasks[0]
			w.tasks = w.tasks[1:]
			return t
		}
		if w.pending == 0 {
			return nil
		}
		w.cond.Wait()
	}
}

// done marks one task finished and wakes the workers when the queue ran
// dry, so they can exit.
func (w *Walker) done() {
	w.mu.Lock()
	w.pending--
	finished := w.pending == 0
	w.mu.Unlock()
	if finished {
		w.cond.Broadcast()
	}
}

func (w *Walker) worker() {
	for {
		t := w.pop()
		if t == nil {
			return
		}
		if !w.halted.Load() {
			w.runTask(t)
		}
		w.done()
	}
}

// runTask shields the pool from panics in provider code; a panicking task
// marks the walk as failed but the other workers keep going.
func (w *Walker) runTask(t *task) {
	defer func() {
		if r := recover(); r != nil {
			w.opts.Logger.Error("walker failure", "dir", t.rel, "panic", r)
			w.failed.Store(true)
		}
	}()
	w.scan(t)
}

// scan processes one directory: collect its ignore files, build entries,
// apply exclusion and the expression, and enqueue subdirectories.
func (w *Walker) scan(t *task) {
	dir := t.start.Root
	if t.rel != "" {
		dir = filepath.Join(t.start.Root, t.rel)
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories are skipped, not fatal.
		w.opts.Logger.Debug("unable to read directory", "path", dir, "error", err)
		return
	}

	ignores := t.ignores
	if w.opts.IgnoreNames != nil {
		absDir := filepath.Join(t.start.AbsRoot, t.rel)
		for _, name := range w.opts.IgnoreNames {
			if !containsName(dirents, name) {
				continue
			}
			rs, err := ignore.LoadRuleset(absDir, name)
			if err != nil {
				w.opts.Logger.Warn("unable to read ignore file",
					"path", filepath.Join(absDir, name), "error", err)
				continue
			}
			ignores = ignores.Push(rs)
		}
	}

	for _, dirent := range dirents {
		if w.halted.Load() {
			return
		}

		rel := path.Join(t.rel, dirent.Name())
		entryPath := filepath.Join(t.start.Root, rel)

		info, err := stat(entryPath, dirent, w.opts.Follow)
		if err != nil {
			w.opts.Logger.Debug("unable to stat", "path", entryPath, "error", err)
			continue
		}

		entry := attr.NewEntry(t.start, rel, info, ignores)
		ctx := attr.NewContext(entry, w.reg, w.store)

		if w.excluder.Match(ctx) {
			continue
		}

		depth := entry.Depth()
		if entry.IsDir() && w.descend(entry, depth) {
			if w.markVisited(entry) {
				w.push(&task{start: t.start, rel: rel, ignores: ignores})
			}
		}

		if !w.opts.Depths.Match(depth) {
			continue
		}
		if w.matcher.Eval(ctx) {
			w.emit(ctx)
		}
	}
}

func (w *Walker) descend(entry *attr.Entry, depth int) bool {
	if !w.opts.Depths.Descend(depth) {
		return false
	}
	if w.opts.OneFilesystem && entry.Dev != entry.Start.Device {
		return false
	}
	return true
}

// markVisited guards against symlink loops when following links. Without
// -L every directory is reached exactly once and the check is skipped.
func (w *Walker) markVisited(entry *attr.Entry) bool {
	if !w.opts.Follow {
		return true
	}
	_, loaded := w.visited.LoadOrStore(devino{dev: entry.Dev, ino: entry.Inode}, struct{}{})
	return !loaded
}

// stat prefers the type information already present in the dirent and only
// calls out to the filesystem when needed. With follow enabled symlinks are
// resolved; a broken link falls back to the link itself.
func stat(path string, dirent os.DirEntry, follow bool) (os.FileInfo, error) {
	if follow {
		info, err := os.Stat(path)
		if err == nil {
			return info, nil
		}
		return os.Lstat(path)
	}
	return dirent.Info()
}

func containsName(dirents []os.DirEntry, name string) bool {
	for _, d := range dirents {
		if d.Name() == name {
			return true
		}
	}
	return false
}
