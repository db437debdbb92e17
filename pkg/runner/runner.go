// Package runner implements the top-level scheduling loop: it cycles
// through enabled kinds, interleaves the SFTP and local-directory pollers
// on configured multiples of the cycle, and honours shutdown signals.
package runner

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/metrics"
	"github.com/ingestkit/tipline/pkg/processor"
	"github.com/ingestkit/tipline/pkg/source"
	"github.com/ingestkit/tipline/pkg/store"
)

// Store is the persistence interface the runner needs directly; Processor
// and the pollers hold their own narrower sub-interfaces.
type Store interface {
	store.WorkItemStore
}

// Config controls cycle cadence and batching.
type Config struct {
	// Kinds lists the enabled kind abbreviations in the order they're
	// processed each cycle.
	Kinds []string

	TipsPerTypePerCycle int
	CycleSleep          time.Duration
	SFTPEveryNCycles    int
	CSVEveryNCycles     int
	SFTPEnabled         bool

	// Parallel dispatches one Processor per kind concurrently instead of
	// the default single-threaded cooperative loop.
	Parallel bool
}

// ApplyDefaults fills unset fields with their production defaults.
func (c *Config) ApplyDefaults() {
	if c.TipsPerTypePerCycle == 0 {
		c.TipsPerTypePerCycle = 10
	}
	if c.CycleSleep == 0 {
		c.CycleSleep = 60 * time.Second
	}
	if c.SFTPEveryNCycles == 0 {
		c.SFTPEveryNCycles = 6
	}
	if c.CSVEveryNCycles == 0 {
		c.CSVEveryNCycles = 5
	}
}

// Stats accumulates per-kind processed/error counts across the runner's
// lifetime, reported on shutdown.
type Stats struct {
	Processed map[string]int
	Errors    map[string]int
}

func newStats(kinds []string) *Stats {
	s := &Stats{Processed: map[string]int{}, Errors: map[string]int{}}
	for _, k := range kinds {
		s.Processed[k] = 0
		s.Errors[k] = 0
	}
	return s
}

// Runner is the ContinuousRunner: it owns the cycle loop and delegates
// each TIP to a Processor and each poll to a source.Puller/LocalDirPoller.
type Runner struct {
	store       Store
	processor   *processor.Processor
	schemas     map[string]*fieldmapper.KindSchema
	sftpPuller  *source.Puller
	localPoller *source.LocalDirPoller
	cfg         Config
	stats       *Stats
	metrics     metrics.RunnerMetrics
}

// New creates a Runner. sftpPuller may be nil when SFTP polling is disabled.
func New(st Store, proc *processor.Processor, schemas map[string]*fieldmapper.KindSchema, sftpPuller *source.Puller, localPoller *source.LocalDirPoller, cfg Config) *Runner {
	cfg.ApplyDefaults()
	return &Runner{
		store:       st,
		processor:   proc,
		schemas:     schemas,
		sftpPuller:  sftpPuller,
		localPoller: localPoller,
		cfg:         cfg,
		stats:       newStats(cfg.Kinds),
	}
}

// SetMetrics attaches optional instrumentation. Safe to call with nil.
func (r *Runner) SetMetrics(m metrics.RunnerMetrics) {
	r.metrics = m
}

// Run executes the cycle loop until ctx is cancelled. Cancellation is
// treated as a graceful-shutdown request: the in-flight TIP is allowed to
// finish, no new TIP or poll is started, and Run returns nil. A second,
// harder cancellation (os.Exit from the caller's signal handler) is the
// command layer's responsibility, not this loop's.
func (r *Runner) Run(ctx context.Context) error {
	cycle := 0
	for {
		if ctx.Err() != nil {
			break
		}
		cycle++
		r.runCycle(ctx, cycle)
		if ctx.Err() != nil {
			break
		}
		if !r.interruptibleSleep(ctx, r.cfg.CycleSleep) {
			break
		}
	}
	r.logSummary(cycle)
	return nil
}

func (r *Runner) runCycle(ctx context.Context, cycle int) {
	ctx, span := telemetry.StartCycleSpan(ctx, cycle)
	defer span.End()
	start := time.Now()
	logger.InfoCtx(ctx, "cycle started", logger.Cycle(cycle))

	if r.sftpPuller != nil && r.cfg.SFTPEnabled && cycle%r.cfg.SFTPEveryNCycles == 0 {
		if _, err := r.sftpPuller.PollOnce(ctx); err != nil {
			logger.ErrorCtx(ctx, "sftp poll failed", logger.Cycle(cycle), logger.Err(err))
		}
	}

	if r.localPoller != nil && cycle%r.cfg.CSVEveryNCycles == 0 {
		if _, err := r.localPoller.PollOnce(ctx); err != nil {
			logger.ErrorCtx(ctx, "local csv import failed", logger.Cycle(cycle), logger.Err(err))
		}
	}

	if ctx.Err() != nil {
		return
	}

	if r.cfg.Parallel {
		r.runKindsParallel(ctx)
	} else {
		r.runKindsSequential(ctx)
	}

	r.refreshQueueDepth(ctx)
	metrics.ObserveCycle(r.metrics, time.Since(start))
	logger.InfoCtx(ctx, "cycle completed", logger.Cycle(cycle), logger.DurationMs(float64(time.Since(start).Milliseconds())))
}

// refreshQueueDepth recomputes the per-(kind, status) backlog gauge. It is
// a no-op when metrics are disabled, so the count query is skipped.
func (r *Runner) refreshQueueDepth(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	counts, err := r.store.CountWorkItemsByKindAndStatus(ctx)
	if err != nil {
		logger.WarnCtx(ctx, "failed to refresh queue depth metrics", logger.Err(err))
		return
	}
	for kind, byStatus := range counts {
		for status, n := range byStatus {
			metrics.SetQueueDepth(r.metrics, kind, status, n)
		}
	}
}

func (r *Runner) runKindsSequential(ctx context.Context) {
	for _, kind := range r.cfg.Kinds {
		if ctx.Err() != nil {
			return
		}
		r.runKind(ctx, kind)
	}
}

// runKindsParallel dispatches one batch per kind concurrently. Store
// writes and circuit-breaker state are shared across goroutines and must
// already be safe for concurrent use (see pkg/store, pkg/breaker).
func (r *Runner) runKindsParallel(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, kind := range r.cfg.Kinds {
		kind := kind
		g.Go(func() error {
			r.runKind(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) runKind(ctx context.Context, kind string) {
	schema, ok := r.schemas[kind]
	if !ok {
		logger.WarnCtx(ctx, "no kind schema configured, skipping", logger.Kind(kind))
		return
	}

	items, err := r.store.ListEligibleWorkItems(ctx, kind, r.cfg.TipsPerTypePerCycle, time.Now())
	if err != nil {
		logger.ErrorCtx(ctx, "listing eligible work items failed", logger.Kind(kind), logger.Err(err))
		return
	}
	if len(items) == 0 {
		return
	}

	processed, failed := 0, 0
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		outcome := r.processor.Process(ctx, schema, item)
		switch outcome {
		case processor.OutcomeComplete, processor.OutcomePartial:
			processed++
		case processor.OutcomePermanentFail:
			failed++
		}
	}

	r.stats.Processed[kind] += processed
	r.stats.Errors[kind] += failed
	logger.InfoCtx(ctx, "kind batch completed", logger.Kind(kind), logger.Processed(processed), logger.Failed(failed))
}

// interruptibleSleep sleeps for d in 1-second increments, returning false
// as soon as ctx is cancelled so the caller can exit without waiting out
// the rest of the interval.
func (r *Runner) interruptibleSleep(ctx context.Context, d time.Duration) bool {
	remaining := d
	for remaining > 0 {
		wait := time.Second
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
			remaining -= wait
		}
	}
	return true
}

func (r *Runner) logSummary(cycles int) {
	totalProcessed, totalErrors := 0, 0
	for _, kind := range r.cfg.Kinds {
		logger.InfoCtx(context.Background(), "kind summary",
			logger.Kind(kind), logger.Processed(r.stats.Processed[kind]), logger.Failed(r.stats.Errors[kind]))
		totalProcessed += r.stats.Processed[kind]
		totalErrors += r.stats.Errors[kind]
	}
	logger.InfoCtx(context.Background(), "runner stopped",
		logger.Cycle(cycles), logger.Processed(totalProcessed), logger.Failed(totalErrors))
}
