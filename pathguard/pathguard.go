package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vaonis-tools/instrument-auth/interfaces"
)

// Guard validates paths against a fixed set of allowed root directories.
type Guard struct {
	roots []string
}

// New creates a guard for the given roots. Each root is canonicalized on a
// best-effort basis; roots that cannot be resolved at all are dropped.
func New(roots ...string) *Guard {
	g := &Guard{}
	for _, root := range roots {
		resolved, err := canonicalize(root)
		if err != nil {
			continue
		}
		g.roots = append(g.roots, resolved)
	}
	return g
}

// Default creates a guard covering the conventional trusted directories:
// current working directory, user home, system temp directory, the running
// executable's directory, and the detected repository root. Directories that
// cannot be determined are skipped rather than failing guard construction.
func Default() *Guard {
	var roots []string
	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd)
		roots = append(roots, FindRepoRoot(cwd))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, home)
	}
	roots = append(roots, os.TempDir())
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	return New(roots...)
}

// Roots returns the canonicalized allowed roots.
func (g *Guard) Roots() []string {
	out := make([]string, len(g.roots))
	copy(out, g.roots)
	return out
}

// Normalize canonicalizes path and verifies it lies beneath one of the
// allowed roots. It returns the canonical path on success and
// interfaces.ErrPathOutsideRoots otherwise. The target does not need to
// exist; symlinks in the longest existing ancestor are resolved so a link
// cannot smuggle the path outside the root set.
func (g *Guard) Normalize(path string) (string, error) {
	resolved, err := canonicalize(path)
	if err != nil {
		return "", fmt.Errorf("cannot canonicalize %s: %w", path, err)
	}
	for _, root := range g.roots {
		if isWithin(root, resolved) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s", interfaces.ErrPathOutsideRoots, resolved)
}

// FindRepoRoot ascends from start looking for a directory containing a .git
// entry or a go.mod file and returns the first match. If nothing matches it
// returns start unchanged; if start is empty the current working directory is
// used.
func FindRepoRoot(start string) string {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "."
		}
		start = cwd
	}
	dir := start
	for {
		if pathExists(filepath.Join(dir, ".git")) || pathExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// canonicalize makes path absolute, expands a leading ~, and resolves
// symlinks in the longest existing prefix. The non-existing tail is appended
// after lexical cleaning, so paths that have not been created yet still
// normalize deterministically.
func canonicalize(path string) (string, error) {
	path = expandHome(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	prefix := abs
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(prefix)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		parent := filepath.Dir(prefix)
		if parent == prefix {
			return abs, nil
		}
		tail = append([]string{filepath.Base(prefix)}, tail...)
		prefix = parent
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
