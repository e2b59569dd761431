package adapter

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/tracelift/internal/model"
)

func TestLocalSourceFSAdapter_Walk(t *testing.T) {
	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "main.lua"), "print('hm')\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		writeTestFile(t, filepath.Join(nestedDir, "child.lua"), "print(1)\n")

		var visited []string
		err := adapter.Walk(m.Path(root), false, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		require.NoError(t, err)

		for _, forbidden := range []string{nestedDir, filepath.Join(nestedDir, "child.lua")} {
			assert.Falsef(t, containsPath(visited, forbidden), "Walk() unexpectedly visited %s when recursive is false", forbidden)
		}

		assert.True(t, containsPath(visited, filepath.Join(root, "main.lua")), "Walk() did not visit top-level file")
	})

	t.Run("recursive visits nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		child := filepath.Join(nestedDir, "child.lua")
		writeTestFile(t, child, "print(1)\n")

		var visited []string
		err := adapter.Walk(m.Path(root), true, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		require.NoError(t, err)

		assert.True(t, containsPath(visited, child), "Walk() did not visit nested file when recursive")
	})
}

func TestLocalSourceFSAdapter_ReadFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	path := filepath.Join(t.TempDir(), "main.lua")
	content := "local v28 = 1\nreturn v28\n"
	writeTestFile(t, path, content)

	got, err := adapter.ReadFile(m.Path(path))
	require.NoError(t, err)

	assert.Equal(t, content, string(got))
}

func TestLocalSourceFSAdapter_HashFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	path := filepath.Join(t.TempDir(), "main.lua")
	content := []byte("print('hm')\n")
	writeTestBytes(t, path, content)

	hash, err := adapter.HashFile(m.Path(path))
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(content)), hash)

	_, err = adapter.HashFile(m.Path(filepath.Join(t.TempDir(), "missing.lua")))
	assert.Error(t, err)
}

func TestLocalSourceFSAdapter_WriteFileAndFileInfo(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	path := filepath.Join(t.TempDir(), "out.hooked.lua")
	require.NoError(t, adapter.WriteFile(m.Path(path), []byte("x"), 0o600))

	info, err := adapter.FileInfo(m.Path(path))
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Size())
}

func TestLocalSourceFSAdapter_HookedPath(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	assert.Equal(t, m.Path("/tmp/a/sample.hooked.lua"), adapter.HookedPath("/tmp/a/sample.lua"))
	assert.Equal(t, m.Path("/tmp/a/sample.hooked.txt"), adapter.HookedPath("/tmp/a/sample.txt"))
	assert.Equal(t, m.Path("/tmp/a/sample.hooked.lua"), adapter.HookedPath("/tmp/a/sample"))
}

func TestLocalSourceFSAdapter_Get(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	t.Run("directory is non-recursive and skips hooked files", func(t *testing.T) {
		root := t.TempDir()
		mainPath := filepath.Join(root, "main.lua")
		writeTestFile(t, mainPath, "print('hm')\n")
		writeTestFile(t, filepath.Join(root, "main.hooked.lua"), "-- instrumented\n")
		writeTestFile(t, filepath.Join(root, "notes.txt"), "not lua\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		writeTestFile(t, filepath.Join(nestedDir, "child.lua"), "print(1)\n")

		sources, err := adapter.Get([]m.Path{m.Path(root)})
		require.NoError(t, err)

		require.Len(t, sources, 1)
		assert.Equal(t, m.Path(mainPath), sources[0].Origin)
		assert.Equal(t, "print('hm')\n", sources[0].Text())
		assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte("print('hm')\n"))), sources[0].Hash)
	})

	t.Run("recursive suffix includes nested", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "main.lua"), "print(1)\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		child := filepath.Join(nestedDir, "child.lua")
		writeTestFile(t, child, "print(2)\n")

		sources, err := adapter.Get([]m.Path{m.Path(root + "/...")})
		require.NoError(t, err)

		require.Len(t, sources, 2)
		assert.NotNil(t, findSource(sources, child))
	})

	t.Run("dot selects current directory", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "here.lua"), "print(1)\n")

		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(root))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		sources, err := adapter.Get([]m.Path{"."})
		require.NoError(t, err)

		require.Len(t, sources, 1)
		assert.Equal(t, "here.lua", filepath.Base(string(sources[0].Origin)))
	})

	t.Run("tilde expands home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		path := filepath.Join(home, "home.lua")
		writeTestFile(t, path, "print(1)\n")

		sources, err := adapter.Get([]m.Path{"~"})
		require.NoError(t, err)

		assert.NotNil(t, findSource(sources, path))
	})

	t.Run("file root is loaded whatever its extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "payload.txt")
		writeTestFile(t, path, "return 1\n")

		sources, err := adapter.Get([]m.Path{m.Path(path)})
		require.NoError(t, err)
		require.Len(t, sources, 1)
	})

	t.Run("duplicate roots are de-duplicated", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "main.lua")
		writeTestFile(t, path, "print(1)\n")

		sources, err := adapter.Get([]m.Path{m.Path(root), m.Path(path), m.Path(root + "/...")})
		require.NoError(t, err)
		assert.Len(t, sources, 1)
	})

	t.Run("returns error for missing root", func(t *testing.T) {
		_, err := adapter.Get([]m.Path{"/path/does/not/exist"})
		assert.Error(t, err)
	})

	t.Run("no roots yields empty list", func(t *testing.T) {
		sources, err := adapter.Get(nil)
		require.NoError(t, err)
		assert.Empty(t, sources)
	})
}

func TestParseRootPath(t *testing.T) {
	tests := []struct {
		in        string
		path      string
		recursive bool
	}{
		{in: "./...", path: ".", recursive: true},
		{in: "...", path: ".", recursive: true},
		{in: "scripts/...", path: "scripts", recursive: true},
		{in: "scripts", path: "scripts"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path, recursive := parseRootPath(tt.in)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.recursive, recursive)
		})
	}
}

func findSource(sources []m.Source, path string) *m.Source {
	for i := range sources {
		if string(sources[i].Origin) == path {
			return &sources[i]
		}
	}

	return nil
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	writeTestBytes(t, path, []byte(content))
}

func writeTestBytes(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}

	return false
}
