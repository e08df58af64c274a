package search

import (
	"io"
	"log/slog"
)

// Config is the fully parsed invocation, populated by the CLI layer or by
// programmatic users.
type Config struct {
	// Directories to search, default is the current directory.
	Directories []string
	// Tests is the tokenized search expression.
	Tests []string

	// Excludes are -e tests; bare tokens are name globs.
	Excludes []string
	// HideHidden (-H) excludes hidden entries.
	HideHidden bool
	// HideIgnored (-I) excludes entries matched by ignore files.
	HideIgnored bool
	// IgnoreFiles overrides the recognized ignore file names.
	IgnoreFiles    []string
	NoParentIgnore bool

	// Depths are raw -d range arguments.
	Depths []string
	// Case is smart, ignore or sensitive.
	Case          string
	Follow        bool
	OneFilesystem bool
	// Workers is the pool size for walking and -x, default GOMAXPROCS.
	Workers int
	// Absolute shows absolute instead of relative paths.
	Absolute bool
	SI       bool

	// Output is the -o attribute list, default "path".
	Output string
	// Verbose selects the ls -l style field set.
	Verbose bool
	Sep     string
	All     bool
	// Null terminates records with NUL (-0).
	Null bool
	// JSON and JSONLines select the JSON output modes.
	JSON      bool
	JSONLines bool
	// Count enables counting; CountFields is its attribute list.
	Count       bool
	CountFields string
	// Sort enables sorting; SortFields is its attribute list.
	Sort       bool
	SortFields string
	Reverse    bool
	// Limit is the raw -l argument, FirstOnly the -1 flag.
	Limit     string
	FirstOnly bool
	Fail      bool
	// Color is never, auto or always.
	Color string

	// Exec and ExecBatch are the -x / -X command templates.
	Exec      []string
	ExecBatch []string
	Halt      string

	// CachePath overrides the cache location, NoCache disables the cache
	// and CleanCache prunes stale records instead of searching.
	CachePath  string
	NoCache    bool
	CleanCache bool
	// PluginDirs are scanned for loadable provider plugins.
	PluginDirs []string

	Logger *slog.Logger
	Stdout io.Writer
}

// verboseFields is the field list behind -v, resembling ls -l.
const verboseFields = "mode:h,links,user,group,size:h,time:h,path"
