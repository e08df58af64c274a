package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/shlex"
	"github.com/urfave/cli/v2"

	"github.com/lexandro/ff/search"
)

const version = "0.2.0"

// stringList is a repeatable CLI flag that keeps its values verbatim,
// without comma splitting.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ", ") }
func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	os.Exit(run(os.Args))
}

func run(argv []string) int {
	args, execArgs, batchArgs, err := prepare(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ff: %v\n", err)
		return search.ExitUsage
	}

	exitCode := search.ExitOK
	excludes := &stringList{}
	directories := &stringList{}

	// -v belongs to --verbose; keep --version long-only so the flag set
	// does not register "v" twice.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	app := &cli.App{
		Name:      "ff",
		Usage:     "Find files in the filesystem",
		Version:   version,
		ArgsUsage: "[<test/directory>...]",
		HideHelp:  true,
		Flags: []cli.Flag{
			// Global options
			&cli.StringFlag{Name: "cache", Usage: "Location of the metadata cache, the default is ~/.cache/ff.db."},
			&cli.BoolFlag{Name: "no-cache", Usage: "Do not use the metadata cache."},
			&cli.BoolFlag{Name: "clean-cache", Usage: "Remove stale entries from the metadata cache."},
			&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Usage: "Number of parallel jobs for searching and executing, default is the number of CPU cores."},
			&cli.GenericFlag{Name: "directory", Aliases: []string{"D"}, Value: directories, Usage: "Search entries in this path, may be given multiple times."},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "Log level: debug|info|warn|error."},

			// Commands
			&cli.BoolFlag{Name: "help-all", Hidden: true},
			&cli.BoolFlag{Name: "help-full", Usage: "Show the full help including all options."},
			&cli.StringFlag{Name: "help-plugin", Hidden: true},
			&cli.BoolFlag{Name: "help-attributes", Usage: "Show the available attributes for searching, sorting and output."},
			&cli.BoolFlag{Name: "help-plugins", Usage: "Show the available plugins."},
			&cli.BoolFlag{Name: "help-types", Usage: "Show the available attribute types."},

			// Search options
			&cli.GenericFlag{Name: "exclude", Aliases: []string{"e"}, Value: excludes, Usage: "Exclude entries that match the given test."},
			&cli.BoolFlag{Name: "hide", Aliases: []string{"H"}, Usage: "Do not show hidden files and directories."},
			&cli.BoolFlag{Name: "ignore", Aliases: []string{"I"}, Usage: "Do not show files that are excluded by ignore files."},
			&cli.BoolFlag{Name: "no-parent-ignore", Usage: "Do not read ignore files from parent directories."},
			&cli.StringFlag{Name: "ignore-files", Usage: "Comma-separated list of recognized ignore file names."},
			&cli.StringSliceFlag{Name: "depth", Aliases: []string{"d"}, Usage: "Show only entries at depth levels within the given ranges."},
			&cli.StringFlag{Name: "case", Aliases: []string{"c"}, Value: "smart", Usage: "How to treat the case of text attributes (smart, ignore or sensitive)."},
			&cli.BoolFlag{Name: "follow", Aliases: []string{"L"}, Usage: "Follow symbolic links."},
			&cli.BoolFlag{Name: "one-file-system", Aliases: []string{"mount", "xdev"}, Usage: "Do not descend into different file systems."},

			// Output options
			&cli.StringFlag{Name: "halt", Value: "never", Usage: "When to stop after a failing -x command: never, soon or now."},
			&cli.StringFlag{Name: "color", Aliases: []string{"C"}, Value: "auto", Usage: "When to use colors: never, auto or always."},
			&cli.BoolFlag{Name: "absolute-path", Aliases: []string{"a"}, Usage: "Show absolute instead of relative paths."},
			&cli.BoolFlag{Name: "print0", Aliases: []string{"0"}, Usage: "Separate results by the null character."},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Produce output similar to ls -l."},
			&cli.BoolFlag{Name: "sort", Aliases: []string{"S"}, Usage: "Sort entries by path or any other attribute."},
			&cli.StringFlag{Name: "sort-by", Hidden: true},
			&cli.BoolFlag{Name: "reverse", Aliases: []string{"R"}, Usage: "Reverse the sort order."},
			&cli.BoolFlag{Name: "count", Usage: "Print statistics about the counted attributes instead of the results."},
			&cli.StringFlag{Name: "count-by", Hidden: true},
			&cli.StringFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Limit the result list: '<start>:<stop>' or '<pagesize>,<page>'."},
			&cli.BoolFlag{Name: "1", Usage: "Print only the first entry."},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Print entries using a comma-separated attribute list, 'file' stands for all file attributes."},
			&cli.StringFlag{Name: "sep", Value: " ", Usage: "Separate output attributes by this string."},
			&cli.BoolFlag{Name: "all", Usage: "Show entries even when some output attributes have no value."},
			&cli.BoolFlag{Name: "json", Usage: "Produce one JSON array of objects."},
			&cli.BoolFlag{Name: "jsonl", Aliases: []string{"ndjson"}, Usage: "Produce one JSON object per line."},
			&cli.BoolFlag{Name: "fail", Usage: "Exit with status 1 when there are no results."},
			&cli.BoolFlag{Name: "si", Usage: "Use base 1000 instead of base 1024 for sizes."},
		},
		Action: func(c *cli.Context) error {
			exitCode = action(c, *excludes, *directories, execArgs, batchArgs)
			return nil
		},
	}

	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "ff: %v\n", err)
		return search.ExitUsage
	}
	return exitCode
}

// prepare splices FF_OPTIONS into the argument list and extracts the parts
// the flag parser cannot express: the -x/-X command templates, which take
// the remainder of the line, and the optional values of -S, --count and -h.
func prepare(argv []string) (args, execArgs, batchArgs []string, err error) {
	args = []string{argv[0]}
	if env := os.Getenv("FF_OPTIONS"); env != "" {
		opts, err := shlex.Split(env)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid FF_OPTIONS: %w", err)
		}
		args = append(args, opts...)
	}
	args = append(args, argv[1:]...)

	out := args[:1:1]
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		optional := func(long string) {
			if i+1 < len(rest) && !strings.HasPrefix(rest[i+1], "-") {
				out = append(out, long+"="+rest[i+1])
				i++
			}
		}

		switch tok {
		case "-x", "--exec":
			return out, rest[i+1:], nil, nil
		case "-X", "--exec-batch":
			return out, nil, rest[i+1:], nil
		case "-S", "--sort":
			out = append(out, "--sort")
			optional("--sort-by")
		case "--count":
			out = append(out, "--count")
			optional("--count-by")
		case "-h", "--help":
			out = append(out, "--help-all")
			optional("--help-plugin")
		default:
			out = append(out, tok)
		}
	}
	return out, nil, nil, nil
}

func action(c *cli.Context, excludes, directories, execArgs, batchArgs []string) int {
	logger := setupLogger(c.String("log-level"))
	slog.SetDefault(logger)

	pluginDirs := filepath.SplitList(os.Getenv("FF_PLUGIN_DIRS"))

	if code, done := runHelp(c, pluginDirs); done {
		return code
	}

	tests, dirs := splitArguments(c.Args().Slice())
	dirs = append(dirs, directories...)

	var ignoreFiles []string
	if c.IsSet("ignore-files") {
		for _, name := range strings.Split(c.String("ignore-files"), ",") {
			if name = strings.TrimSpace(name); name != "" {
				ignoreFiles = append(ignoreFiles, name)
			}
		}
	}

	cfg := search.Config{
		Directories:    dirs,
		Tests:          tests,
		Excludes:       excludes,
		HideHidden:     c.Bool("hide"),
		HideIgnored:    c.Bool("ignore"),
		IgnoreFiles:    ignoreFiles,
		NoParentIgnore: c.Bool("no-parent-ignore"),
		Depths:         c.StringSlice("depth"),
		Case:           caseMode(c.String("case")),
		Follow:         c.Bool("follow"),
		OneFilesystem:  c.Bool("one-file-system"),
		Workers:        c.Int("jobs"),
		Absolute:       c.Bool("absolute-path"),
		SI:             c.Bool("si"),
		Output:         c.String("output"),
		Verbose:        c.Bool("verbose"),
		Sep:            c.String("sep"),
		All:            c.Bool("all"),
		Null:           c.Bool("print0"),
		JSON:           c.Bool("json"),
		JSONLines:      c.Bool("jsonl"),
		Count:          c.Bool("count"),
		CountFields:    c.String("count-by"),
		Sort:           c.Bool("sort"),
		SortFields:     c.String("sort-by"),
		Reverse:        c.Bool("reverse"),
		Limit:          c.String("limit"),
		FirstOnly:      c.Bool("1"),
		Fail:           c.Bool("fail"),
		Color:          c.String("color"),
		Exec:           execArgs,
		ExecBatch:      batchArgs,
		Halt:           c.String("halt"),
		CachePath:      c.String("cache"),
		NoCache:        c.Bool("no-cache"),
		CleanCache:     c.Bool("clean-cache"),
		PluginDirs:     pluginDirs,
		Logger:         logger,
		Stdout:         os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := search.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ff: %v\n", err)
	}
	return code
}

// splitArguments discriminates positional arguments: a token that contains
// a slash and names an existing filesystem entry is a search directory,
// everything else is a test.
func splitArguments(args []string) (tests, dirs []string) {
	for _, arg := range args {
		if strings.Contains(arg, "/") {
			if _, err := os.Lstat(arg); err == nil {
				dirs = append(dirs, arg)
				continue
			}
		}
		tests = append(tests, arg)
	}
	return tests, dirs
}

// caseMode maps the CLI spelling to the evaluator's case constants.
func caseMode(mode string) string {
	switch mode {
	case "ignore":
		return "insensitive"
	default:
		return mode
	}
}

// setupLogger creates an slog.Logger writing to stderr.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
