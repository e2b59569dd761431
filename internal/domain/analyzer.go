package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/adapter"
	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

const traceTailSize = 10

// AnalyzeOptions tunes a single analysis.
type AnalyzeOptions struct {
	// Timeout overrides the configured runtime deadline when positive.
	Timeout time.Duration
	// StaticOnly skips instrumentation output and execution.
	StaticOnly bool
}

// Analyzer runs the whole pipeline on one source. It never fails: every
// problem is folded into the report outcome.
type Analyzer interface {
	Analyze(ctx context.Context, source m.Source, opts AnalyzeOptions) m.Report
	// AnalyzeTrace reconstructs from a trace captured elsewhere.
	AnalyzeTrace(r io.Reader) (m.Report, error)
}

type analyzer struct {
	cfg           *config.Config
	fs            adapter.SourceFSAdapter
	runtime       adapter.RuntimeAdapter
	detector      Detector
	injector      Injector
	decoder       Decoder
	parser        TraceParser
	reconstructor Reconstructor
	logger        *zap.Logger
	now           func() time.Time
}

// NewAnalyzer wires the pipeline components. Components are stateless
// between calls; each analysis gets its own TraceStore.
func NewAnalyzer(cfg *config.Config, fs adapter.SourceFSAdapter, runtime adapter.RuntimeAdapter, logger *zap.Logger) Analyzer {
	return &analyzer{
		cfg:           cfg,
		fs:            fs,
		runtime:       runtime,
		detector:      NewDetector(cfg, logger),
		injector:      NewInjector(cfg, logger),
		decoder:       NewDecoder(logger),
		parser:        NewTraceParser(cfg, logger),
		reconstructor: NewReconstructor(cfg, logger),
		logger:        logger,
		now:           time.Now,
	}
}

func (a *analyzer) Analyze(ctx context.Context, source m.Source, opts AnalyzeOptions) m.Report {
	started := a.now()
	report := m.Report{
		ID:         uuid.NewString(),
		Source:     source.Origin,
		Candidates: []m.Candidate{},
		Started:    started,
	}
	log := a.logger.With(zap.String("input", string(source.Origin)), zap.String("report", report.ID))

	text, err := a.load(source)
	if err != nil {
		log.Error("input unreadable", zap.Error(err))
		report.Outcome = m.OutcomeInputError
		report.ExecutionError = err.Error()

		return a.finish(report, started)
	}

	report.Detection = a.detector.Detect(text)
	log.Debug("detected",
		zap.String("scheme", string(report.Detection.Scheme)),
		zap.Float64("confidence", report.Detection.Confidence))

	instrumented, plan := a.injector.Inject(text, a.cfg.Targets(report.Detection.Scheme))
	report.Plan = plan
	report.StaticStrings = a.decoder.Extract(text)

	if opts.StaticOnly {
		report.Outcome = m.OutcomeStaticOnly
		return a.finish(report, started)
	}

	hooked := a.fs.HookedPath(source.Origin)
	if err := a.fs.WriteFile(hooked, []byte(instrumented), 0o600); err != nil {
		log.Warn("cannot write instrumented script", zap.Error(err))
		report.Outcome = m.OutcomeStaticOnly
		report.ExecutionError = fmt.Sprintf("write %s: %v", hooked, err)

		return a.finish(report, started)
	}

	report.Instrumented = hooked

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = a.cfg.Runtime.Timeout
	}

	res, execErr := a.runtime.Execute(ctx, hooked, timeout)

	trace, err := a.parser.Parse(bytes.NewReader(res.Stdout))
	if err != nil {
		log.Warn("trace unreadable", zap.Error(err))
	}

	report.Stats = a.stats(trace)
	report.TraceTail = tail(trace.Entries, traceTailSize)

	if execErr != nil {
		report.ExecutionError = execErr.Error()
		report.Outcome = m.OutcomeStaticOnly

		if errors.Is(execErr, adapter.ErrExecutionTimeout) {
			report.Outcome = m.OutcomeTimeout
		}

		log.Warn("execution did not complete",
			zap.String("outcome", string(report.Outcome)),
			zap.Int("entries", len(trace.Entries)),
			zap.Error(execErr))

		return a.finish(report, started)
	}

	report.Candidates = a.reconstructor.Reconstruct(trace)
	report.Outcome = outcomeFor(report.Candidates)

	log.Info("analysis complete",
		zap.String("outcome", string(report.Outcome)),
		zap.Int("entries", len(trace.Entries)),
		zap.Int("candidates", len(report.Candidates)),
		zap.Duration("runtime", res.Duration))

	return a.finish(report, started)
}

func (a *analyzer) AnalyzeTrace(r io.Reader) (m.Report, error) {
	started := a.now()

	trace, err := a.parser.Parse(r)
	if err != nil {
		return m.Report{}, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}

	report := m.Report{
		ID:         uuid.NewString(),
		Candidates: a.reconstructor.Reconstruct(trace),
		Stats:      a.stats(trace),
		TraceTail:  tail(trace.Entries, traceTailSize),
		Started:    started,
	}
	report.Outcome = outcomeFor(report.Candidates)

	return a.finish(report, started), nil
}

func (a *analyzer) load(source m.Source) (string, error) {
	if source.Content != nil {
		return source.Text(), nil
	}

	if source.Origin == "" {
		return "", fmt.Errorf("%w: no input path", ErrInputUnreadable)
	}

	content, err := a.fs.ReadFile(source.Origin)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}

	return string(content), nil
}

// stats ingests the capture lines into a fresh store, one per analysis.
func (a *analyzer) stats(trace m.Trace) m.Stats {
	store := NewTraceStore(a.logger)
	store.Ingest(trace.Entries)
	counts := store.Counts()

	return m.Stats{
		Strings:         counts[m.KindString],
		Functions:       counts[m.KindFunction],
		Constants:       counts[m.KindConstant],
		Instructions:    counts[m.KindInstruction],
		Entries:         len(trace.Entries),
		FinalStrings:    len(trace.FinalStrings),
		ReadableStrings: len(trace.ReadableStrings),
		SkippedLines:    trace.Skipped,
	}
}

func (a *analyzer) finish(report m.Report, started time.Time) m.Report {
	report.Duration = a.now().Sub(started)

	return report
}

func outcomeFor(candidates []m.Candidate) m.Outcome {
	if len(candidates) == 0 {
		return m.OutcomeInconclusive
	}

	return m.OutcomeSuccess
}

func tail(entries []m.TraceEntry, n int) []m.TraceEntry {
	if len(entries) <= n {
		return entries
	}

	return entries[len(entries)-n:]
}
