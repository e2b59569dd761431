package adapter

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

func requireShell(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func shellAdapter() *LocalRuntimeAdapter {
	return NewLocalRuntimeAdapter(config.RuntimeConfig{Interpreters: []string{"sh"}}, zap.NewNop())
}

func writeScript(t *testing.T, body string) m.Path {
	t.Helper()

	path := filepath.Join(t.TempDir(), "script.sh")
	writeTestFile(t, path, body)

	return m.Path(path)
}

func TestLocalRuntimeAdapter_ExecuteCapturesStdout(t *testing.T) {
	requireShell(t)

	script := writeScript(t, "printf '1\\t3\\thello\\n'\nprintf 'chatter\\n'\n")

	res, err := shellAdapter().Execute(context.Background(), script, 10*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "1\t3\thello\nchatter\n", string(res.Stdout))
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, strings.HasSuffix(res.Interpreter, "sh"))
}

func TestLocalRuntimeAdapter_ExecuteTimeoutKills(t *testing.T) {
	requireShell(t)

	script := writeScript(t, "printf 'started\\n'\nexec sleep 5\n")

	start := time.Now()
	res, err := shellAdapter().Execute(context.Background(), script, 200*time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionTimeout)
	assert.NotErrorIs(t, err, ErrExecutionFailed)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Equal(t, "started\n", string(res.Stdout))
}

func TestLocalRuntimeAdapter_ExecuteFailure(t *testing.T) {
	requireShell(t)

	script := writeScript(t, "echo partial\necho 'lua: boom' >&2\nexit 3\n")

	res, err := shellAdapter().Execute(context.Background(), script, 10*time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.Contains(t, err.Error(), "lua: boom")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", string(res.Stdout))
}

func TestLocalRuntimeAdapter_NoInterpreter(t *testing.T) {
	a := NewLocalRuntimeAdapter(config.RuntimeConfig{Interpreters: []string{"lua9.9", "luajit9"}}, zap.NewNop())
	a.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	_, err := a.Execute(context.Background(), "x.lua", time.Second)

	assert.ErrorIs(t, err, ErrRuntimeNotFound)
}

func TestLocalRuntimeAdapter_ProbeSelectsWorkingInterpreter(t *testing.T) {
	requireShell(t)

	sh, err := exec.LookPath("sh")
	require.NoError(t, err)

	a := NewLocalRuntimeAdapter(config.RuntimeConfig{
		Interpreters: []string{"broken", "sh"},
		ProbeArgs:    []string{"-c", "exit 0"},
		ProbeTimeout: 5 * time.Second,
	}, zap.NewNop())

	lookups := 0
	a.lookPath = func(name string) (string, error) {
		lookups++

		if name == "broken" {
			return "/nonexistent/broken", nil
		}

		return exec.LookPath(name)
	}

	got, err := a.Interpreter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sh, got)

	again, err := a.Interpreter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 2, lookups, "resolution is cached")
}

func TestLimitedBuffer(t *testing.T) {
	b := limitedBuffer{limit: 4}

	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = b.Write([]byte("gh"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "abcd", b.String())
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "lua: x.lua:1: boom", firstLine([]byte("\nlua: x.lua:1: boom\nstack traceback:\n")))
	assert.Empty(t, firstLine(nil))
}
