package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/adapter"
	mockAdapter "github.com/mouse-blink/tracelift/internal/adapter/mocks"
	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

const (
	samplePath m.Path = "/work/sample.lua"
	hookedPath m.Path = "/work/sample.hooked.lua"
)

const beaconTrace = "[tracelift] hooked v28\n" +
	"1\t0\tBEACON\tstring\tprint\targ1\t1\t0.010\n" +
	"2\t1\t7\tconstant\tv28\tcomponent2\t1\t0.011\n"

type analyzerFixture struct {
	fs      *mockAdapter.MockSourceFSAdapter
	runtime *mockAdapter.MockRuntimeAdapter
	cfg     *config.Config
	an      Analyzer
}

func newAnalyzerFixture(t *testing.T) analyzerFixture {
	t.Helper()

	f := analyzerFixture{
		fs:      mockAdapter.NewMockSourceFSAdapter(t),
		runtime: mockAdapter.NewMockRuntimeAdapter(t),
		cfg:     config.Default(),
	}
	f.an = NewAnalyzer(f.cfg, f.fs, f.runtime, zap.NewNop())

	return f
}

func (f analyzerFixture) expectInstrumentedWrite() {
	f.fs.On("HookedPath", samplePath).Return(hookedPath)
	f.fs.On("WriteFile", hookedPath, mock.MatchedBy(func(b []byte) bool {
		return strings.Contains(string(b), "-- tracelift instrumentation ")
	}), os.FileMode(0o600)).Return(nil)
}

func sampleSource() m.Source {
	return m.Source{Origin: samplePath, Content: []byte(vmScript)}
}

func TestAnalyzer_Success(t *testing.T) {
	f := newAnalyzerFixture(t)
	f.expectInstrumentedWrite()
	f.runtime.On("Execute", mock.Anything, hookedPath, 2*time.Second).
		Return(adapter.ExecResult{Stdout: []byte(beaconTrace), Duration: time.Millisecond}, nil)

	report := f.an.Analyze(context.Background(), sampleSource(), AnalyzeOptions{Timeout: 2 * time.Second})

	assert.Equal(t, m.OutcomeSuccess, report.Outcome)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, samplePath, report.Source)
	assert.Equal(t, hookedPath, report.Instrumented)
	assert.Empty(t, report.ExecutionError)
	assert.Equal(t, "vm_launch", report.Plan.AnchorName)
	assert.Contains(t, report.Detection.Matched, "vm_functions")

	best, ok := report.Best()
	require.True(t, ok)
	assert.Equal(t, `print("BEACON")`, best.Text)

	assert.Equal(t, m.Stats{
		Strings:      1,
		Constants:    1,
		Entries:      2,
		FinalStrings: 1,
		SkippedLines: 1,
	}, report.Stats)
	assert.Len(t, report.TraceTail, 2)
	assert.GreaterOrEqual(t, report.Duration, time.Duration(0))
}

func TestAnalyzer_DefaultTimeoutFromConfig(t *testing.T) {
	f := newAnalyzerFixture(t)
	f.expectInstrumentedWrite()
	f.runtime.On("Execute", mock.Anything, hookedPath, f.cfg.Runtime.Timeout).
		Return(adapter.ExecResult{}, nil)

	report := f.an.Analyze(context.Background(), sampleSource(), AnalyzeOptions{})

	assert.Equal(t, m.OutcomeInconclusive, report.Outcome)
	assert.Empty(t, report.Candidates)
	assert.NotNil(t, report.Candidates)
}

func TestAnalyzer_ExecutionFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome m.Outcome
	}{
		{"timeout", fmt.Errorf("%w after 2s", adapter.ErrExecutionTimeout), m.OutcomeTimeout},
		{"crash", fmt.Errorf("%w: lua: attempt to call a nil value", adapter.ErrExecutionFailed), m.OutcomeStaticOnly},
		{"no runtime", adapter.ErrRuntimeNotFound, m.OutcomeStaticOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAnalyzerFixture(t)
			f.expectInstrumentedWrite()
			f.runtime.On("Execute", mock.Anything, hookedPath, mock.Anything).
				Return(adapter.ExecResult{Stdout: []byte(beaconTrace)}, tt.err)

			report := f.an.Analyze(context.Background(), sampleSource(), AnalyzeOptions{})

			assert.Equal(t, tt.outcome, report.Outcome)
			assert.Equal(t, tt.err.Error(), report.ExecutionError)
			assert.Empty(t, report.Candidates, "a partial trace yields no candidates")
			assert.Len(t, report.TraceTail, 2, "the partial trace is kept for inspection")
			assert.Equal(t, 1, report.Stats.Strings)
		})
	}
}

func TestAnalyzer_StaticOnlySkipsExecution(t *testing.T) {
	f := newAnalyzerFixture(t)

	src := m.Source{Origin: samplePath, Content: []byte(`local s = "68656c6c6f20776f726c64"` + "\nprint(s)\n")}

	report := f.an.Analyze(context.Background(), src, AnalyzeOptions{StaticOnly: true})

	assert.Equal(t, m.OutcomeStaticOnly, report.Outcome)
	assert.Empty(t, report.Instrumented)
	assert.Equal(t, []string{"hello world"}, values(report.StaticStrings))
	f.runtime.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzer_InputUnreadable(t *testing.T) {
	f := newAnalyzerFixture(t)
	f.fs.On("ReadFile", m.Path("/work/missing.lua")).Return(nil, os.ErrNotExist)

	report := f.an.Analyze(context.Background(), m.Source{Origin: "/work/missing.lua"}, AnalyzeOptions{})

	assert.Equal(t, m.OutcomeInputError, report.Outcome)
	assert.Contains(t, report.ExecutionError, "input unreadable")
	assert.Equal(t, 1, report.Outcome.ExitCode())
}

func TestAnalyzer_LoadsContentLazily(t *testing.T) {
	f := newAnalyzerFixture(t)
	f.fs.On("ReadFile", samplePath).Return([]byte(vmScript), nil)

	report := f.an.Analyze(context.Background(), m.Source{Origin: samplePath}, AnalyzeOptions{StaticOnly: true})

	assert.Equal(t, m.OutcomeStaticOnly, report.Outcome)
	assert.Equal(t, "vm_launch", report.Plan.AnchorName)
}

func TestAnalyzer_WriteFailureDegradesToStatic(t *testing.T) {
	f := newAnalyzerFixture(t)
	f.fs.On("HookedPath", samplePath).Return(hookedPath)
	f.fs.On("WriteFile", hookedPath, mock.Anything, mock.Anything).Return(errors.New("read-only file system"))

	report := f.an.Analyze(context.Background(), sampleSource(), AnalyzeOptions{})

	assert.Equal(t, m.OutcomeStaticOnly, report.Outcome)
	assert.Contains(t, report.ExecutionError, "read-only file system")
	assert.Empty(t, report.Instrumented)
}

func TestAnalyzer_AnalyzeTrace(t *testing.T) {
	f := newAnalyzerFixture(t)

	report, err := f.an.AnalyzeTrace(strings.NewReader(beaconTrace))
	require.NoError(t, err)

	assert.Equal(t, m.OutcomeSuccess, report.Outcome)
	assert.Equal(t, "BEACON", report.Candidates[0].Literal)
	assert.Equal(t, 2, report.Stats.Entries)

	empty, err := f.an.AnalyzeTrace(strings.NewReader("banner only\n"))
	require.NoError(t, err)
	assert.Equal(t, m.OutcomeInconclusive, empty.Outcome)
	assert.Equal(t, 1, empty.Stats.SkippedLines)

	_, err = f.an.AnalyzeTrace(iotest.ErrReader(errors.New("pipe closed")))
	assert.ErrorIs(t, err, ErrInputUnreadable)
}

func TestTail(t *testing.T) {
	entries := make([]m.TraceEntry, 15)
	for i := range entries {
		entries[i].Depth = i
	}

	got := tail(entries, traceTailSize)
	require.Len(t, got, traceTailSize)
	assert.Equal(t, 5, got[0].Depth)

	assert.Len(t, tail(entries[:3], traceTailSize), 3)
}
