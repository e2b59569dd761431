package domain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/tracelift/internal/adapter"
	"github.com/mouse-blink/tracelift/internal/config"
	"github.com/mouse-blink/tracelift/internal/controller"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// StdinPath selects standard input as the trace source.
const StdinPath m.Path = "-"

// DetectArgs holds the inputs of a fingerprint-only pass.
type DetectArgs struct {
	Paths []m.Path
}

// InjectArgs holds the inputs of an instrumentation-only pass.
type InjectArgs struct {
	Paths []m.Path
}

// TraceArgs names a trace captured outside tracelift.
type TraceArgs struct {
	Path  m.Path
	Stdin io.Reader
	Save  bool
}

// RunArgs holds the inputs of a full analysis of one or more sources.
type RunArgs struct {
	Paths    []m.Path
	Parallel int
	Options  AnalyzeOptions
}

// WatchArgs re-runs the analysis of a single file whenever it changes.
type WatchArgs struct {
	Path    m.Path
	Options AnalyzeOptions
}

// ViewArgs names a saved report.
type ViewArgs struct {
	Path m.Path
}

// Workflow drives the pipeline on behalf of the CLI commands.
type Workflow interface {
	Detect(args DetectArgs) error
	Inject(args InjectArgs) error
	Trace(args TraceArgs) (m.Report, error)
	Run(ctx context.Context, args RunArgs) ([]m.Report, error)
	Watch(ctx context.Context, args WatchArgs) error
	View(args ViewArgs) error
}

type workflow struct {
	cfg         *config.Config
	fsAdapter   adapter.SourceFSAdapter
	reportStore adapter.ReportStore
	watcher     adapter.Watcher
	ui          controller.UI
	analyzer    Analyzer
	detector    Detector
	injector    Injector
	logger      *zap.Logger
}

// NewWorkflow creates a new Workflow instance with the provided adapters.
func NewWorkflow(
	cfg *config.Config,
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	watcher adapter.Watcher,
	ui controller.UI,
	analyzer Analyzer,
	logger *zap.Logger,
) Workflow {
	return &workflow{
		cfg:         cfg,
		fsAdapter:   fsAdapter,
		reportStore: reportStore,
		watcher:     watcher,
		ui:          ui,
		analyzer:    analyzer,
		detector:    NewDetector(cfg, logger),
		injector:    NewInjector(cfg, logger),
		logger:      logger,
	}
}

func (w *workflow) Detect(args DetectArgs) error {
	sources, err := w.sources(args.Paths)
	if err != nil {
		return err
	}

	if err := w.ui.Start(controller.WithReportMode()); err != nil {
		return fmt.Errorf("failed to start UI: %w", err)
	}
	defer w.ui.Close()

	for _, source := range sources {
		w.ui.DisplayDetection(source.Origin, w.detector.Detect(source.Text()))
	}

	return nil
}

func (w *workflow) Inject(args InjectArgs) error {
	sources, err := w.sources(args.Paths)
	if err != nil {
		return err
	}

	if err := w.ui.Start(controller.WithReportMode()); err != nil {
		return fmt.Errorf("failed to start UI: %w", err)
	}
	defer w.ui.Close()

	for _, source := range sources {
		text := source.Text()
		result := w.detector.Detect(text)
		instrumented, plan := w.injector.Inject(text, w.cfg.Targets(result.Scheme))

		hooked := w.fsAdapter.HookedPath(source.Origin)
		if err := w.fsAdapter.WriteFile(hooked, []byte(instrumented), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", hooked, err)
		}

		w.ui.DisplayInjection(source.Origin, hooked, plan)
	}

	return nil
}

func (w *workflow) Trace(args TraceArgs) (m.Report, error) {
	var r io.Reader

	if args.Path == StdinPath || args.Path == "" {
		if args.Stdin == nil {
			return m.Report{}, fmt.Errorf("%w: no trace input", ErrInputUnreadable)
		}

		r = args.Stdin
	} else {
		data, err := w.fsAdapter.ReadFile(args.Path)
		if err != nil {
			return m.Report{}, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
		}

		r = bytes.NewReader(data)
	}

	report, err := w.analyzer.AnalyzeTrace(r)
	if err != nil {
		return m.Report{}, err
	}

	if args.Path != StdinPath {
		report.Source = args.Path
	}

	if args.Save {
		if _, err := w.reportStore.Save(report); err != nil {
			w.logger.Warn("report not saved", zap.Error(err))
		}
	}

	if err := w.ui.Start(controller.WithReportMode()); err != nil {
		return report, fmt.Errorf("failed to start UI: %w", err)
	}
	defer w.ui.Close()

	return report, w.ui.DisplayReport(report)
}

func (w *workflow) Run(ctx context.Context, args RunArgs) ([]m.Report, error) {
	sources, err := w.sources(args.Paths)
	if err != nil {
		return nil, err
	}

	parallel := args.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	if err := w.ui.Start(controller.WithRunMode()); err != nil {
		return nil, fmt.Errorf("failed to start UI: %w", err)
	}

	defer func() {
		w.ui.Close()
		w.ui.Wait()
	}()

	w.ui.DisplayRunInfo(len(sources), parallel)

	reports := make([]m.Report, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			reports[i] = w.analyze(gctx, source, args.Options)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	if _, err := w.sources([]m.Path{args.Path}); err != nil {
		return err
	}

	if err := w.ui.Start(controller.WithReportMode()); err != nil {
		return fmt.Errorf("failed to start UI: %w", err)
	}
	defer w.ui.Close()

	var mu sync.Mutex

	rerun := func(path m.Path) {
		mu.Lock()
		defer mu.Unlock()

		sources, err := w.fsAdapter.Get([]m.Path{path})
		if err != nil || len(sources) == 0 {
			w.logger.Warn("watched file unreadable", zap.String("input", string(path)), zap.Error(err))
			return
		}

		w.analyze(ctx, sources[0], args.Options)
	}

	rerun(args.Path)

	if err := w.watcher.Watch(ctx, args.Path, rerun); err != nil {
		return fmt.Errorf("failed to watch %s: %w", args.Path, err)
	}

	return nil
}

func (w *workflow) View(args ViewArgs) error {
	report, err := w.reportStore.Load(args.Path)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	if err := w.ui.Start(controller.WithReportMode()); err != nil {
		return fmt.Errorf("failed to start UI: %w", err)
	}
	defer w.ui.Close()

	return w.ui.DisplayReport(report)
}

// analyze runs one source through the pipeline, saves and displays it.
func (w *workflow) analyze(ctx context.Context, source m.Source, opts AnalyzeOptions) m.Report {
	w.ui.DisplayAnalysisStarted(source.Origin)

	report := w.analyzer.Analyze(ctx, source, opts)

	saved, err := w.reportStore.Save(report)
	if err != nil {
		w.logger.Warn("report not saved", zap.String("input", string(source.Origin)), zap.Error(err))
	}

	w.ui.DisplayAnalysisCompleted(report, saved)

	return report
}

func (w *workflow) sources(paths []m.Path) ([]m.Source, error) {
	if len(paths) == 0 {
		paths = []m.Path{"."}
	}

	sources, err := w.fsAdapter.Get(paths)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no lua sources under %v", ErrInputUnreadable, paths)
	}

	return sources, nil
}
