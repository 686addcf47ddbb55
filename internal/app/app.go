// Package app implements the application layer for knit.
package app

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/knit/internal/adapters/emit" //nolint:depguard // Wired in app layer
	"go.trai.ch/knit/internal/build"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/knit/internal/engine/collector"
	"go.trai.ch/knit/internal/engine/diagnostics"
	"go.trai.ch/knit/internal/engine/resolver"
	"go.trai.ch/knit/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// StdoutPath is the output path that writes the emitted source to stdout.
const StdoutPath = "-"

// App represents the main application logic.
type App struct {
	source    ports.DeclarationSource
	logger    ports.Logger
	store     ports.OutputStore
	hasher    ports.Hasher
	verifier  ports.Verifier
	watcher   ports.Watcher
	emitters  *emit.Registry
	telemetry ports.Telemetry
	metrics   ports.Metrics
	scheduler *scheduler.Scheduler
	collector *collector.Collector

	stdout      io.Writer
	diagnostics io.Writer
}

// New creates a new App instance.
func New(
	source ports.DeclarationSource,
	log ports.Logger,
	store ports.OutputStore,
	hasher ports.Hasher,
	verifier ports.Verifier,
	watcher ports.Watcher,
	emitters *emit.Registry,
	telemetry ports.Telemetry,
	metrics ports.Metrics,
	sched *scheduler.Scheduler,
) *App {
	return &App{
		source:      source,
		logger:      log,
		store:       store,
		hasher:      hasher,
		verifier:    verifier,
		watcher:     watcher,
		emitters:    emitters,
		telemetry:   telemetry,
		metrics:     metrics,
		scheduler:   sched,
		collector:   collector.New(),
		stdout:      os.Stdout,
		diagnostics: os.Stderr,
	}
}

// WithOutput redirects emitted source written to stdout and rendered diagnostics.
func (a *App) WithOutput(stdout, diagnostics io.Writer) *App {
	a.stdout = stdout
	a.diagnostics = diagnostics
	return a
}

// RunOptions configuration for the Resolve and Check methods.
type RunOptions struct {
	// Out is the file the emitted source is written to. Empty means next to the manifest,
	// StdoutPath means stdout.
	Out string
	// Format names the emitter, defaulting to emit.FormatGo.
	Format string
	// Force emits even when the manifest did not change since the last run.
	Force bool
	// Jobs bounds the number of call sites resolved in parallel; zero means one per CPU.
	Jobs int
	// Metrics is the textfile the run's metrics are written to. Empty disables the export.
	Metrics string
}

// Resolve resolves every call site of the unit described by manifest and emits the result.
// Nothing is emitted when any diagnostic is an error.
func (a *App) Resolve(ctx context.Context, manifest string, opts RunOptions) error {
	defer a.flushMetrics(opts.Metrics)

	_, err := a.resolve(ctx, manifest, opts)
	return err
}

// Watch resolves like Resolve and resolves again whenever one of the unit's manifests
// changes, until ctx is done. Failed runs are logged and do not stop watching.
func (a *App) Watch(ctx context.Context, manifest string, opts RunOptions) error {
	sources := []string{manifest}
	for {
		unit, err := a.resolve(ctx, manifest, opts)
		a.flushMetrics(opts.Metrics)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			a.logger.Error(err)
		}
		if unit != nil && len(unit.Sources) > 0 {
			sources = unit.Sources
		}

		a.logger.Info(fmt.Sprintf("watching %d manifests for changes", len(sources)))
		changed, err := a.watcher.Wait(ctx, sources)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, "failed to watch manifests")
		}
		a.logger.Info(fmt.Sprintf("%s changed", strings.Join(changed, ", ")))
	}
}

// resolve returns the loaded unit, if any, alongside the outcome of the run.
func (a *App) resolve(ctx context.Context, manifest string, opts RunOptions) (unit *domain.Unit, err error) {
	unit, err = a.source.Load(ctx, manifest)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load declarations")
	}

	format := cmp.Or(opts.Format, emit.FormatGo)
	emitter, err := a.emitters.Get(format)
	if err != nil {
		return unit, err
	}
	out := cmp.Or(opts.Out, defaultOutput(unit, format))

	ctx, vertex := a.telemetry.Record(ctx, unit.Name, ports.WithGroup(unit.Name))

	inputHash, err := a.hasher.ComputeInputHash(unit.Sources, map[string]string{
		"format":  format,
		"out":     out,
		"version": build.Version,
	})
	if err != nil {
		vertex.Complete(err)
		return unit, zerr.Wrap(err, "failed to fingerprint manifest")
	}

	if !opts.Force && out != StdoutPath && a.upToDate(unit.Name, inputHash, out) {
		a.logger.Info(fmt.Sprintf("%s is up to date", out))
		vertex.Cached()
		return unit, nil
	}
	defer func() { vertex.Complete(err) }()

	reporter, results, err := a.analyze(ctx, unit, opts.Jobs)
	if err != nil {
		return unit, err
	}
	if err := reporter.Err(unit.Name); err != nil {
		return unit, err
	}

	data, err := emitter.Emit(ctx, unit, results)
	if err != nil {
		return unit, zerr.Wrap(err, "failed to emit bindings")
	}

	if out == StdoutPath {
		_, err = a.stdout.Write(data)
		return unit, err
	}

	if err := writeOutput(out, data); err != nil {
		return unit, err
	}
	if err := a.store.Put(domain.OutputRecord{
		Unit:       unit.Name,
		InputHash:  inputHash,
		OutputHash: a.hasher.ComputeContentHash(data),
		Format:     format,
		OutputPath: out,
		Timestamp:  time.Now(),
	}); err != nil {
		return unit, zerr.Wrap(err, "failed to store output record")
	}

	a.logger.Info(fmt.Sprintf("resolved %d call sites of %s into %s", len(results), unit.Name, out))
	return unit, nil
}

// Check resolves every call site of the unit described by manifest and reports the
// diagnostics without emitting anything.
func (a *App) Check(ctx context.Context, manifest string, opts RunOptions) (err error) {
	defer a.flushMetrics(opts.Metrics)

	unit, err := a.source.Load(ctx, manifest)
	if err != nil {
		return zerr.Wrap(err, "failed to load declarations")
	}

	ctx, vertex := a.telemetry.Record(ctx, unit.Name, ports.WithGroup(unit.Name))
	defer func() { vertex.Complete(err) }()

	reporter, results, err := a.analyze(ctx, unit, opts.Jobs)
	if err != nil {
		return err
	}
	if err := reporter.Err(unit.Name); err != nil {
		return err
	}

	errs, warnings := reporter.Counts()
	a.logger.Info(fmt.Sprintf("%s: %d call sites, %d errors, %d warnings", unit.Name, len(results), errs, warnings))
	return nil
}

func (a *App) analyze(
	ctx context.Context,
	unit *domain.Unit,
	jobs int,
) (*diagnostics.Reporter, []domain.Resolution, error) {
	col, err := a.collector.Collect(unit)
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "failed to collect candidates"), "unit", unit.Name)
	}

	reporter := diagnostics.NewReporter()
	reporter.Add(col.Diagnostics...)

	a.logger.Debug(fmt.Sprintf("collected %d candidates and %d call sites", col.Pool.Len(), len(col.Sites)))

	results, err := a.scheduler.Run(ctx, resolver.New(unit.Types, col), col.Sites, jobs)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "resolution interrupted")
	}
	for _, res := range results {
		reporter.AddResolution(res)
	}

	for _, d := range reporter.Diagnostics() {
		a.metrics.ObserveDiagnostic(d.Kind.String(), d.Severity.String())
	}
	if err := reporter.Render(a.diagnostics); err != nil {
		return nil, nil, zerr.Wrap(err, "failed to render diagnostics")
	}
	return reporter, results, nil
}

func (a *App) upToDate(unit, inputHash, out string) bool {
	rec, err := a.store.Get(unit)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("ignoring output record of %s: %v", unit, err))
		return false
	}
	if rec == nil || rec.InputHash != inputHash || rec.OutputPath != out {
		return false
	}
	ok, err := a.verifier.VerifyOutputs(".", []string{out})
	return err == nil && ok
}

func (a *App) flushMetrics(path string) {
	if path == "" {
		return
	}
	if err := a.metrics.Flush(path); err != nil {
		a.logger.Warn(fmt.Sprintf("failed to write metrics: %v", err))
	}
}

func defaultOutput(unit *domain.Unit, format string) string {
	dir := "."
	if len(unit.Sources) > 0 {
		dir = filepath.Dir(unit.Sources[0])
	}
	return filepath.Join(dir, unit.Name+"_knit"+emit.Extension(format))
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", path)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write output"), "path", path)
	}
	return nil
}
