package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExtensions lists the source file extensions scanned by default.
var DefaultExtensions = []string{".py"}

// DefaultIgnoreDirs lists directory names that are never descended into.
var DefaultIgnoreDirs = []string{
	".git", ".hg", ".svn",
	"__pycache__", ".mypy_cache", ".pytest_cache", ".tox",
	"venv", ".venv", "env",
	".idea", ".vscode",
	"node_modules", "dist", "build",
}

// stateDir is the tool's own state directory; it is always skipped.
const stateDir = ".umbra"

// SourceFile is one discovered source file. RelPath (platform separators) is its identity.
type SourceFile struct {
	RelPath string
	AbsPath string
}

// Result is the outcome of one scan.
type Result struct {
	Root  string
	Files []SourceFile

	// RootMissing is set when the root does not exist or is not a directory.
	RootMissing bool

	// Truncated is set when MaxFiles stopped the walk early.
	Truncated bool
}

// Options configure discovery.
type Options struct {
	Extensions       []string
	IgnoreDirs       []string
	IgnorePatterns   []string
	RespectGitignore bool
	MaxDepth         int // 0 means unlimited
	MaxFiles         int // 0 means unlimited
}

// DefaultOptions returns the built-in extension and ignore sets.
func DefaultOptions() Options {
	return Options{
		Extensions: append([]string(nil), DefaultExtensions...),
		IgnoreDirs: append([]string(nil), DefaultIgnoreDirs...),
	}
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Scanner discovers source files under a root directory.
type Scanner struct {
	extensions     map[string]bool
	ignoreDirs     map[string]bool
	ignorePatterns []compiledPattern
	gitignore      bool
	maxDepth       int
	maxFiles       int
}

// New creates a scanner. Empty Extensions or IgnoreDirs fall back to the defaults.
func New(opts Options) (*Scanner, error) {
	s := &Scanner{
		extensions: make(map[string]bool),
		ignoreDirs: make(map[string]bool),
		gitignore:  opts.RespectGitignore,
		maxDepth:   opts.MaxDepth,
		maxFiles:   opts.MaxFiles,
	}

	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.extensions[ext] = true
	}

	ignoreDirs := opts.IgnoreDirs
	if len(ignoreDirs) == 0 {
		ignoreDirs = DefaultIgnoreDirs
	}
	for _, dir := range ignoreDirs {
		s.ignoreDirs[dir] = true
	}
	s.ignoreDirs[stateDir] = true

	for _, pattern := range opts.IgnorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		s.ignorePatterns = append(s.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return s, nil
}

// Scan walks root and returns matching files in lexical path order. Ignored
// directories are pruned, symlinked directories are not followed, and a
// missing root yields an empty result with RootMissing set and no error.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	result := &Result{Root: root, Files: []SourceFile{}}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.RootMissing = true
			return result, nil
		}
		return nil, fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		result.RootMissing = true
		return result, nil
	}

	var gi *ignore.GitIgnore
	if s.gitignore {
		gi = loadGitignore(absRoot)
	}

	errStop := errors.New("stop walk")
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			log.Printf("Warning: skipping %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		slashPath := filepath.ToSlash(relPath)

		if d.IsDir() {
			if s.ignoreDirs[d.Name()] || s.shouldIgnore(slashPath) {
				return fs.SkipDir
			}
			if gi != nil && gi.MatchesPath(slashPath+"/") {
				return fs.SkipDir
			}
			if s.maxDepth > 0 && strings.Count(slashPath, "/")+1 > s.maxDepth {
				return fs.SkipDir
			}
			return nil
		}

		if !s.extensions[filepath.Ext(d.Name())] {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if s.shouldIgnore(slashPath) || (gi != nil && gi.MatchesPath(slashPath)) {
			return nil
		}

		if s.maxFiles > 0 && len(result.Files) >= s.maxFiles {
			result.Truncated = true
			return errStop
		}
		result.Files = append(result.Files, SourceFile{RelPath: relPath, AbsPath: path})
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}

	sort.SliceStable(result.Files, func(i, j int) bool {
		return result.Files[i].RelPath < result.Files[j].RelPath
	})
	return result, nil
}

// shouldIgnore checks if a path matches any ignore pattern.
func (s *Scanner) shouldIgnore(relPath string) bool {
	if s.matchesAnyPattern(relPath) {
		return true
	}
	// "vendor" should match pattern "vendor/**"
	return s.matchesAnyPattern(relPath + "/**")
}

// matchesAnyPattern checks if a path matches any ignore pattern. Root-level
// paths also match patterns with a leading "**/" removed.
func (s *Scanner) matchesAnyPattern(path string) bool {
	for _, cp := range s.ignorePatterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	if !strings.Contains(path, "/") {
		for _, cp := range s.ignorePatterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil && simplifiedGlob.Match(path) {
					return true
				}
			}
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		log.Printf("Warning: failed to read %s: %v", path, err)
		return nil
	}
	return gi
}
