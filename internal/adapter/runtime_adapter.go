package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

const (
	maxCapturedOutput = 64 * 1024 * 1024
	killGrace         = 500 * time.Millisecond
)

var (
	// ErrRuntimeNotFound is returned when no configured interpreter is usable.
	ErrRuntimeNotFound = errors.New("no lua runtime found")
	// ErrExecutionTimeout is returned when a run exceeded its deadline and was killed.
	ErrExecutionTimeout = errors.New("execution timed out")
	// ErrExecutionFailed is returned when a run exited abnormally.
	ErrExecutionFailed = errors.New("execution failed")
)

// ExecResult is what an instrumented run left behind. Stdout is kept even
// when the run failed so callers can show partial traces.
type ExecResult struct {
	Interpreter string
	Stdout      []byte
	Stderr      []byte
	ExitCode    int
	Duration    time.Duration
}

// RuntimeAdapter runs a script with an external interpreter.
type RuntimeAdapter interface {
	Interpreter(ctx context.Context) (string, error)
	Execute(ctx context.Context, script m.Path, timeout time.Duration) (ExecResult, error)
}

// LocalRuntimeAdapter executes scripts with an interpreter found on PATH.
type LocalRuntimeAdapter struct {
	candidates   []string
	args         []string
	probeArgs    []string
	probeTimeout time.Duration
	lookPath     func(string) (string, error)
	logger       *zap.Logger

	mu       sync.Mutex
	resolved string
}

// NewLocalRuntimeAdapter creates an adapter from the runtime section.
func NewLocalRuntimeAdapter(cfg config.RuntimeConfig, logger *zap.Logger) *LocalRuntimeAdapter {
	return &LocalRuntimeAdapter{
		candidates:   cfg.Interpreters,
		args:         cfg.Args,
		probeArgs:    cfg.ProbeArgs,
		probeTimeout: cfg.ProbeTimeout,
		lookPath:     exec.LookPath,
		logger:       logger,
	}
}

// Interpreter returns the first candidate that is installed and answers the
// probe. The answer is cached for the adapter's lifetime.
func (a *LocalRuntimeAdapter) Interpreter(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resolved != "" {
		return a.resolved, nil
	}

	for _, name := range a.candidates {
		path, err := a.lookPath(name)
		if err != nil {
			continue
		}

		if err := a.probe(ctx, path); err != nil {
			a.logger.Debug("interpreter probe failed", zap.String("interpreter", path), zap.Error(err))
			continue
		}

		a.resolved = path
		a.logger.Debug("interpreter selected", zap.String("interpreter", path))

		return path, nil
	}

	return "", fmt.Errorf("%w: tried %v", ErrRuntimeNotFound, a.candidates)
}

func (a *LocalRuntimeAdapter) probe(ctx context.Context, path string) error {
	if len(a.probeArgs) == 0 {
		return nil
	}

	timeout := a.probeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, a.probeArgs...)
	cmd.WaitDelay = killGrace

	return cmd.Run()
}

// Execute runs script under the deadline. On expiry the process is killed
// and ErrExecutionTimeout is returned together with whatever was captured.
func (a *LocalRuntimeAdapter) Execute(ctx context.Context, script m.Path, timeout time.Duration) (ExecResult, error) {
	interp, err := a.Interpreter(ctx)
	if err != nil {
		return ExecResult{}, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append(append([]string{}, a.args...), string(script))

	var stdout, stderr limitedBuffer

	stdout.limit = maxCapturedOutput
	stderr.limit = maxCapturedOutput

	cmd := exec.CommandContext(ctx, interp, args...)
	cmd.Dir = filepath.Dir(string(script))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGrace

	start := time.Now()
	runErr := cmd.Run()

	res := ExecResult{
		Interpreter: interp,
		Stdout:      stdout.Bytes(),
		Stderr:      stderr.Bytes(),
		ExitCode:    cmd.ProcessState.ExitCode(),
		Duration:    time.Since(start),
	}

	a.logger.Debug("execution finished",
		zap.String("script", string(script)),
		zap.Int("exit_code", res.ExitCode),
		zap.Int("stdout_bytes", len(res.Stdout)),
		zap.Duration("duration", res.Duration))

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%w after %s", ErrExecutionTimeout, timeout)
	case runErr != nil:
		return res, fmt.Errorf("%w: %w: %s", ErrExecutionFailed, runErr, firstLine(res.Stderr))
	}

	return res, nil
}

// limitedBuffer drops writes beyond limit but reports them as written so
// the child never blocks on a full pipe.
type limitedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.Len()
	if room > 0 {
		if len(p) > room {
			_, _ = b.Buffer.Write(p[:room])
		} else {
			_, _ = b.Buffer.Write(p)
		}
	}

	return len(p), nil
}

func firstLine(b []byte) string {
	line, _, _ := bytes.Cut(bytes.TrimSpace(b), []byte("\n"))

	return string(line)
}
