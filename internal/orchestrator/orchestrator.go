// Package orchestrator turns a set of selected job ids into a sequence of
// build-and-checkpoint actions over the job registry.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/annotation-tables/internal/jobs"
	"github.com/JakeFAU/annotation-tables/internal/metrics"
)

// Clock supplies timestamps for job timings.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// ReportSink receives the report of every run that started, whether it
// succeeded or not. Sink failures are logged and never fail the run.
type ReportSink interface {
	Consume(ctx context.Context, report Report) error
}

// Config carries the process-wide defaults applied to requests that leave them empty.
type Config struct {
	DefaultOutputDir string
	DefaultRefGenome string
}

// Request is one invocation's selection.
type Request struct {
	// Selected holds job ids; order and duplicates are irrelevant.
	Selected  []string
	OutputDir string
	RefGenome string
}

// PlannedJob is one entry of a dry-run plan.
type PlannedJob struct {
	ID         string
	OutputPath string
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the clock used for timings.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithIDGenerator sets the run ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithTracerProvider traces runs with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithSinks appends report sinks.
func WithSinks(sinks ...ReportSink) Option {
	return func(o *Orchestrator) {
		for _, s := range sinks {
			if s != nil {
				o.sinks = append(o.sinks, s)
			}
		}
	}
}

// Orchestrator runs selected jobs sequentially in registration order.
type Orchestrator struct {
	registry *jobs.Registry
	cfg      Config
	logger   *zap.Logger
	clock    Clock
	ids      IDGenerator
	sinks    []ReportSink
	tracer   trace.Tracer
}

const tracerName = "github.com/JakeFAU/annotation-tables/internal/orchestrator"

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type noIDs struct{}

func (noIDs) NewID() (string, error) { return "", nil }

// New builds an Orchestrator over registry.
func New(registry *jobs.Registry, cfg Config, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, fmt.Errorf("job registry is required")
	}
	if strings.TrimSpace(cfg.DefaultOutputDir) == "" {
		return nil, fmt.Errorf("default output directory is required")
	}
	if strings.TrimSpace(cfg.DefaultRefGenome) == "" {
		return nil, fmt.Errorf("default reference genome is required")
	}
	o := &Orchestrator{
		registry: registry,
		cfg:      cfg,
		logger:   zap.NewNop(),
		clock:    wallClock{},
		ids:      noIDs{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Plan resolves the request into the ordered list of jobs Run would execute.
func (o *Orchestrator) Plan(req Request) ([]PlannedJob, error) {
	req = o.normalize(req)
	selected, err := o.validate(req.Selected)
	if err != nil {
		return nil, err
	}
	var plan []PlannedJob
	for _, id := range o.registry.IDs() {
		if _, ok := selected[id]; !ok {
			continue
		}
		spec, err := o.registry.Resolve(id)
		if err != nil {
			return nil, err
		}
		plan = append(plan, PlannedJob{ID: id, OutputPath: jobs.OutputPath(spec, req.OutputDir, req.RefGenome)})
	}
	return plan, nil
}

// Run builds and checkpoints every selected job, stopping at the first
// failure. Artifacts committed before a failure are kept. An unknown id
// fails the request before any job starts.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Report, error) {
	req = o.normalize(req)
	plan, err := o.Plan(req)
	if err != nil {
		return Report{}, err
	}

	runID, err := o.ids.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("generate run id: %w", err)
	}
	report := Report{
		RunID:     runID,
		OutputDir: req.OutputDir,
		RefGenome: req.RefGenome,
		StartedAt: o.clock.Now(),
	}
	for _, p := range plan {
		report.Selected = append(report.Selected, p.ID)
	}
	ctx, span := o.tracer.Start(ctx, "mktables.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.StringSlice("jobs", report.Selected),
		attribute.String("ref_genome", req.RefGenome),
	))
	defer span.End()
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("starting table build run",
		zap.Strings("jobs", report.Selected),
		zap.String("output_dir", req.OutputDir),
		zap.String("ref_genome", req.RefGenome),
	)

	var runErr error
	for _, p := range plan {
		result, err := o.runJob(ctx, logger, p)
		report.Jobs = append(report.Jobs, result)
		if err != nil {
			runErr = err
			break
		}
	}
	report.FinishedAt = o.clock.Now()

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "table build run failed")
		metrics.ObserveRun(metrics.OutcomeFailed)
		logger.Error("table build run failed", zap.Strings("succeeded", report.Succeeded()), zap.Error(runErr))
	} else {
		metrics.ObserveRun(metrics.OutcomeSucceeded)
		logger.Info("table build run finished", zap.Int("jobs", len(report.Jobs)))
	}
	o.publish(ctx, logger, report)
	return report, runErr
}

func (o *Orchestrator) runJob(ctx context.Context, logger *zap.Logger, p PlannedJob) (JobResult, error) {
	spec, err := o.registry.Resolve(p.ID)
	if err != nil {
		return JobResult{ID: p.ID, Outcome: OutcomeFailed, OutputPath: p.OutputPath, Error: err.Error()}, err
	}
	ctx, span := o.tracer.Start(ctx, "table.build", trace.WithAttributes(
		attribute.String("job", p.ID),
		attribute.String("output_path", p.OutputPath),
	))
	defer span.End()
	logger = logger.With(zap.String("job", p.ID), zap.String("path", p.OutputPath))
	started := o.clock.Now()
	result := JobResult{ID: p.ID, OutputPath: p.OutputPath, StartedAt: started}

	fail := func(err error) (JobResult, error) {
		finished := o.clock.Now()
		result.Outcome = OutcomeFailed
		result.Elapsed = finished.Sub(started)
		result.Error = err.Error()
		metrics.ObserveJob(p.ID, metrics.OutcomeFailed, result.Elapsed, finished)
		span.RecordError(err)
		span.SetStatus(codes.Error, "table build job failed")
		logger.Error("table build job failed", zap.Duration("elapsed", result.Elapsed), zap.Error(err))
		return result, err
	}

	logger.Info("building table")
	handle, err := spec.Builder(ctx)
	if err != nil {
		return fail(&BuilderError{Job: p.ID, Err: err})
	}
	if handle == nil {
		return fail(&BuilderError{Job: p.ID, Err: fmt.Errorf("builder returned no table")})
	}
	// overwrite is unconditional: every run is a full rebuild.
	if err := handle.Checkpoint(ctx, p.OutputPath, true); err != nil {
		return fail(&PersistenceError{Job: p.ID, Path: p.OutputPath, Err: err})
	}

	finished := o.clock.Now()
	result.Outcome = OutcomeSucceeded
	result.Elapsed = finished.Sub(started)
	metrics.ObserveJob(p.ID, metrics.OutcomeSucceeded, result.Elapsed, finished)
	logger.Info("table build job succeeded", zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (o *Orchestrator) publish(ctx context.Context, logger *zap.Logger, report Report) {
	for _, sink := range o.sinks {
		if err := sink.Consume(ctx, report); err != nil {
			logger.Warn("report sink failed", zap.String("sink", fmt.Sprintf("%T", sink)), zap.Error(err))
		}
	}
}

func (o *Orchestrator) normalize(req Request) Request {
	if strings.TrimSpace(req.OutputDir) == "" {
		req.OutputDir = o.cfg.DefaultOutputDir
	}
	if strings.TrimSpace(req.RefGenome) == "" {
		req.RefGenome = o.cfg.DefaultRefGenome
	}
	return req
}

// validate rejects unknown ids and returns the selection as a set.
func (o *Orchestrator) validate(selected []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, err := o.registry.Resolve(id); err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return set, nil
}
