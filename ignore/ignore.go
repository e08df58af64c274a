package ignore

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"
)

// DefaultNames are the recognized ignore file names, checked in this order
// within one directory.
var DefaultNames = []string{".gitignore", ".ignore", ".fdignore", ".ffignore"}

// Ruleset holds the compiled rules of a single ignore file.
type Ruleset struct {
	// Dir is the absolute directory the ignore file lives in. Its rules
	// apply to paths below this directory.
	Dir string
	// Path is the absolute path of the ignore file itself.
	Path string

	matcher gitignore.GitIgnore
}

// LoadRuleset reads and compiles one ignore file. dir must be absolute.
func LoadRuleset(dir, name string) (*Ruleset, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return &Ruleset{
		Dir:     dir,
		Path:    path,
		matcher: gitignore.New(f, dir, nil),
	}, nil
}

// Match matches an absolute path against the rule set. It returns the
// match result, or nil if no rule applies or the path is outside Dir.
func (r *Ruleset) Match(abspath string, isDir bool) gitignore.Match {
	prefix := r.Dir
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(abspath, prefix) {
		return nil
	}
	return r.matcher.Relative(abspath[len(prefix):], isDir)
}

// Stack is an ordered list of rule sets, one per ancestor directory that
// contained an ignore file. Rule sets closer to the entry override earlier
// ones, per gitignore semantics. Stacks are immutable; Push returns a new
// stack sharing the underlying storage.
type Stack struct {
	rules []*Ruleset
}

// NewStack returns a stack over the given rule sets.
func NewStack(rules ...*Ruleset) *Stack {
	return &Stack{rules: rules}
}

// Push returns a new stack with rs appended.
func (s *Stack) Push(rs *Ruleset) *Stack {
	rules := make([]*Ruleset, len(s.rules), len(s.rules)+1)
	copy(rules, s.rules)
	return &Stack{rules: append(rules, rs)}
}

// Len returns the number of rule sets on the stack.
func (s *Stack) Len() int { return len(s.rules) }

// Match reports whether the absolute path is ignored and, if so, the path
// of the ignore file containing the winning rule. Rule sets are evaluated
// in stack order; the last rule set with a matching rule wins, and a
// negated rule ("!pattern") un-ignores the path.
func (s *Stack) Match(abspath string, isDir bool) (bool, string) {
	ignored := false
	source := ""
	for _, rs := range s.rules {
		match := rs.Match(abspath, isDir)
		if match == nil {
			continue
		}
		ignored = match.Ignore()
		if ignored {
			source = rs.Path
		} else {
			source = ""
		}
	}
	return ignored, source
}

// FindParents collects ignore files from the parent directories of dir,
// from the filesystem root downwards, so that deeper files end up later on
// the stack. dir itself is not inspected; the walker handles it when it
// scans the directory. Unreadable ignore files are skipped.
func FindParents(dir string, names []string) *Stack {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return NewStack()
	}

	var parents []string
	for p := filepath.Dir(abs); ; p = filepath.Dir(p) {
		parents = append([]string{p}, parents...)
		if p == filepath.Dir(p) {
			break
		}
	}

	stack := NewStack()
	for _, parent := range parents {
		for _, name := range names {
			if _, err := os.Stat(filepath.Join(parent, name)); err != nil {
				continue
			}
			rs, err := LoadRuleset(parent, name)
			if err != nil {
				continue
			}
			stack = stack.Push(rs)
		}
	}
	return stack
}

// IsIgnoreFile reports whether name is one of the recognized ignore file
// names.
func IsIgnoreFile(name string, names []string) bool {
	for _, n := range names {
		if name == n {
			return true
		}
	}
	return false
}
