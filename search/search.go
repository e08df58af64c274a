package search

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/builtin"
	"github.com/lexandro/ff/cache"
	"github.com/lexandro/ff/expr"
	"github.com/lexandro/ff/ignore"
	"github.com/lexandro/ff/output"
	"github.com/lexandro/ff/walk"
)

// failer is implemented by the exec sinks.
type failer interface {
	Failed() bool
}

// Run performs one search. The returned exit code follows the table in
// errors.go; err carries the message for fatal failures.
func Run(ctx context.Context, cfg Config) (int, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	reg := attr.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		return ExitCode(err), err
	}
	if err := attr.LoadPlugins(reg, cfg.PluginDirs); err != nil {
		return ExitCode(err), err
	}
	if err := reg.CheckDependencies(); err != nil {
		return ExitCode(err), err
	}

	store, db, err := openCache(cfg, logger)
	if err != nil {
		return ExitCode(err), err
	}
	if db != nil {
		defer func() {
			logger.Debug("cache statistics", "hits", db.Hits(), "misses", db.Misses())
			db.Close()
		}()
	}

	if cfg.CleanCache {
		return cleanCache(db, logger)
	}

	depths, err := walk.ParseDepths(cfg.Depths)
	if err != nil {
		return ExitUsage, usagef("%v", err)
	}

	bindOpts := expr.BindOptions{
		Case:   cfg.Case,
		SI:     cfg.SI,
		Follow: cfg.Follow,
		Store:  store,
		Logger: logger,
	}

	excludes := cfg.Excludes
	if cfg.HideHidden {
		excludes = append(excludes, "hide=yes")
	}
	if cfg.HideIgnored {
		excludes = append(excludes, "ignored=yes")
	}
	excluder, err := expr.BindExcluder(excludes, reg, bindOpts)
	if err != nil {
		return ExitCode(err), err
	}

	node, err := expr.Parse(cfg.Tests, expr.ParseOptions{})
	if err != nil {
		return ExitCode(err), err
	}
	matcher, err := expr.Bind(node, reg, bindOpts)
	if err != nil {
		return ExitCode(err), err
	}

	var walker *walk.Walker
	halt := func() {
		if walker != nil {
			walker.Halt()
		}
	}

	sink, failers, err := buildSink(cfg, reg, stdout, halt, logger)
	if err != nil {
		return ExitCode(err), err
	}

	dirs := cfg.Directories
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	starts := make([]*attr.StartDir, 0, len(dirs))
	for _, dir := range dirs {
		if cfg.Absolute {
			if abs, err := filepath.Abs(dir); err == nil {
				dir = abs
			}
		}
		start, err := attr.NewStartDir(dir, cfg.Follow)
		if err != nil {
			return ExitUsage, usagef("invalid search directory %q: %v", dir, err)
		}
		starts = append(starts, start)
	}

	ignoreNames := cfg.IgnoreFiles
	if ignoreNames == nil {
		ignoreNames = ignore.DefaultNames
	}

	matched := xsync.NewCounter()
	walker = walk.New(walk.Options{
		Workers:        cfg.Workers,
		Follow:         cfg.Follow,
		OneFilesystem:  cfg.OneFilesystem,
		Depths:         depths,
		IgnoreNames:    ignoreNames,
		NoParentIgnore: cfg.NoParentIgnore,
		Logger:         logger,
	}, reg, store, matcher, excluder, func(c *attr.Context) {
		matched.Inc()
		sink.Accept(c)
	})

	walker.Walk(ctx, starts)
	if err := sink.Close(); err != nil {
		return ExitWalk, err
	}

	for _, f := range failers {
		if f.Failed() {
			return ExitSubprocess, nil
		}
	}
	// An interrupt halts the walk mid-flight; the partial result must not
	// look like a successful search.
	if ctx.Err() != nil {
		return ExitWalk, nil
	}
	if walker.Failed() {
		return ExitWalk, nil
	}
	if cfg.Fail && matched.Value() == 0 {
		return ExitNoMatches, nil
	}
	return ExitOK, nil
}

// openCache opens the configured cache, unless disabled. Failure to open is
// not fatal, the search continues without a cache.
func openCache(cfg Config, logger *slog.Logger) (attr.Store, *cache.Cache, error) {
	if cfg.NoCache {
		if cfg.CleanCache {
			return nil, nil, usagef("--clean-cache conflicts with --no-cache")
		}
		return nil, nil, nil
	}

	path := cfg.CachePath
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			logger.Warn("unable to locate cache directory", "error", err)
			return nil, nil, nil
		}
		path = filepath.Join(dir, "ff.db")
	}

	db, err := cache.Open(path)
	if err != nil {
		logger.Warn("unable to open cache", "path", path, "error", err)
		return nil, nil, nil
	}
	return db, db, nil
}

func cleanCache(db *cache.Cache, logger *slog.Logger) (int, error) {
	if db == nil {
		return ExitUsage, usagef("no cache to clean")
	}
	removed, err := db.Clean()
	if err != nil {
		return ExitUsage, err
	}
	logger.Info("cache cleaned", "removed", removed)
	if removed > 0 {
		if err := db.Vacuum(); err != nil {
			return ExitUsage, err
		}
	}
	return ExitOK, nil
}

// buildSink assembles the output pipeline for the configured mode and wraps
// it with the sorting and limiting stage when needed.
func buildSink(cfg Config, reg *attr.Registry, stdout io.Writer,
	halt func(), logger *slog.Logger) (output.Sink, []failer, error) {

	if len(cfg.Exec) > 0 && len(cfg.ExecBatch) > 0 {
		return nil, nil, usagef("-x and -X are mutually exclusive")
	}
	execMode := len(cfg.Exec) > 0 || len(cfg.ExecBatch) > 0
	if execMode && (cfg.JSON || cfg.JSONLines || cfg.Count) {
		return nil, nil, usagef("-x/-X cannot be combined with --json or --count")
	}
	if cfg.JSON && cfg.JSONLines {
		return nil, nil, usagef("--json and --jsonl are mutually exclusive")
	}

	var limit *output.Limit
	if cfg.FirstOnly {
		limit = output.FirstOnly()
	} else if cfg.Limit != "" {
		var err error
		limit, err = output.ParseLimit(cfg.Limit)
		if err != nil {
			return nil, nil, usagef("%v", err)
		}
	}
	if limit != nil && cfg.Count {
		return nil, nil, usagef("--limit cannot be combined with --count")
	}
	if limit != nil && !cfg.Sort {
		logger.Warn("--limit without --sort selects from an unstable order")
	}

	var sink output.Sink
	var failers []failer

	switch {
	case cfg.Count:
		list := cfg.CountFields
		if list == "" {
			list = "size,type"
		}
		fields, err := output.ParseFields(list, reg)
		if err != nil {
			return nil, nil, err
		}
		count, err := output.NewCount(stdout, fields, cfg.JSON)
		if err != nil {
			return nil, nil, usagef("%v", err)
		}
		// Counting is order-independent, sorting and limiting do not apply.
		return count, nil, nil

	case execMode:
		opts := output.ExecOptions{
			Workers: cfg.Workers,
			Halt:    cfg.Halt,
			OnHalt:  halt,
			Logger:  logger,
		}
		if len(cfg.Exec) > 0 {
			opts.Args = cfg.Exec
			e, err := output.NewExec(opts, reg)
			if err != nil {
				return nil, nil, err
			}
			sink = e
			failers = append(failers, e)
		} else {
			opts.Args = cfg.ExecBatch
			e, err := output.NewExecBatch(opts, reg)
			if err != nil {
				return nil, nil, err
			}
			sink = e
			failers = append(failers, e)
		}

	default:
		list := cfg.Output
		if cfg.Verbose {
			list = verboseFields
		}
		if list == "" {
			list = "path"
		}
		fields, err := output.ParseFields(list, reg)
		if err != nil {
			return nil, nil, err
		}

		switch {
		case cfg.JSON:
			sink = output.NewJSONArray(stdout, fields)
		case cfg.JSONLines:
			sink = output.NewJSONLines(stdout, fields)
		default:
			sink = output.NewRecord(stdout, output.RecordOptions{
				Fields:  fields,
				Sep:     cfg.Sep,
				Null:    cfg.Null,
				All:     cfg.All,
				SI:      cfg.SI,
				Palette: palette(cfg),
			})
		}
	}

	if cfg.Sort || limit != nil {
		var keys []output.Field
		if cfg.Sort {
			list := cfg.SortFields
			if list == "" {
				list = "path"
			}
			var err error
			keys, err = output.ParseFields(list, reg)
			if err != nil {
				return nil, nil, err
			}
		}
		sink = output.NewSorter(sink, keys, cfg.Reverse, limit)
	}
	return sink, failers, nil
}

func palette(cfg Config) *output.Palette {
	switch cfg.Color {
	case "always":
		return output.ParsePalette(os.Getenv("LS_COLORS"))
	case "never", "":
		return nil
	}

	// auto
	if os.Getenv("NO_COLOR") != "" {
		return nil
	}
	f, ok := cfg.Stdout.(*os.File)
	if cfg.Stdout == nil {
		f, ok = os.Stdout, true
	}
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return output.ParsePalette(os.Getenv("LS_COLORS"))
}
