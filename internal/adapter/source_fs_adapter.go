// Package adapter contains infrastructure collaborators for the tracelift CLI.
package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	m "github.com/mouse-blink/tracelift/internal/model"
)

const (
	luaExt       = ".lua"
	hookedSuffix = ".hooked"
)

// SourceFSAdapter abstracts filesystem access for the pipeline so the
// workflow logic can be tested without touching the disk.
type SourceFSAdapter interface {
	// Get collects Lua sources from files, directories and "dir/..." roots.
	Get(roots []m.Path) ([]m.Source, error)

	// Walk traverses root. When recursive is false sub-directories are skipped.
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	ReadFile(path m.Path) ([]byte, error)

	// HashFile returns the SHA-256 fingerprint of the file at path.
	HashFile(path m.Path) (string, error)

	FileInfo(path m.Path) (os.FileInfo, error)

	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// HookedPath returns the sibling path of the instrumented variant.
	HookedPath(path m.Path) m.Path
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter backs SourceFSAdapter with the local disk.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Get loads every Lua source under the roots once, skipping instrumented
// siblings. A root naming a single file is loaded whatever its extension.
func (a *LocalSourceFSAdapter) Get(roots []m.Path) ([]m.Source, error) {
	if len(roots) == 0 {
		return []m.Source{}, nil
	}

	seen := make(map[m.Path]struct{})

	var sources []m.Source

	add := func(src m.Source) {
		if _, exists := seen[src.Origin]; exists {
			return
		}

		seen[src.Origin] = struct{}{}
		sources = append(sources, src)
	}

	for _, root := range roots {
		rootPath, recursive, err := normalizeRootPath(string(root))
		if err != nil {
			return nil, err
		}

		info, err := a.FileInfo(m.Path(rootPath))
		if err != nil {
			return nil, fmt.Errorf("root path error: %w", err)
		}

		if !info.IsDir() {
			src, err := a.load(rootPath)
			if err != nil {
				return nil, err
			}

			add(src)

			continue
		}

		err = a.Walk(m.Path(rootPath), recursive, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() || !isScript(path) {
				return nil
			}

			src, err := a.load(path)
			if err != nil {
				return err
			}

			add(src)

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return sources, nil
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	return os.WriteFile(string(path), content, perm)
}

// HookedPath maps "dir/name.lua" to "dir/name.hooked.lua".
func (a *LocalSourceFSAdapter) HookedPath(path m.Path) m.Path {
	p := string(path)
	ext := filepath.Ext(p)

	if ext == "" {
		ext = luaExt
	}

	return m.Path(strings.TrimSuffix(p, filepath.Ext(p)) + hookedSuffix + ext)
}

func (a *LocalSourceFSAdapter) load(path string) (m.Source, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return m.Source{}, err
	}

	content, err := a.ReadFile(m.Path(absPath))
	if err != nil {
		return m.Source{}, err
	}

	return m.Source{
		Origin:  m.Path(absPath),
		Hash:    fmt.Sprintf("%x", sha256.Sum256(content)),
		Content: content,
	}, nil
}

func isScript(path string) bool {
	return filepath.Ext(path) == luaExt && !strings.HasSuffix(path, hookedSuffix+luaExt)
}

func normalizeRootPath(root string) (string, bool, error) {
	rootStr, recursive := parseRootPath(root)

	if strings.HasPrefix(rootStr, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, err
		}

		suffix := strings.TrimPrefix(rootStr, "~")
		suffix = strings.TrimPrefix(suffix, string(os.PathSeparator))
		rootStr = filepath.Join(home, suffix)
	}

	if rootStr == "" {
		rootStr = "."
	}

	abs, err := filepath.Abs(rootStr)
	if err != nil {
		return "", false, err
	}

	return abs, recursive, nil
}

func parseRootPath(rootStr string) (path string, recursive bool) {
	if strings.HasSuffix(rootStr, "/...") {
		return strings.TrimSuffix(rootStr, "/..."), true
	}

	if rootStr == "..." {
		return ".", true
	}

	return rootStr, false
}
