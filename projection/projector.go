package projection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/common"
	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/stats"
	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/temporal"
	"github.com/Ursinus-CS476-F2020/LoopDitty/logging"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection/config"
)

// ErrCancelled is reported by Task.Wait for a task stopped before it
// finished, either by Cancel, by its context, or by a newer task.
var ErrCancelled = errors.New("projection cancelled")

// Projector starts projection tasks. It is safe for concurrent use; tasks
// share no mutable state.
type Projector struct {
	cfg        *config.Config
	compositor *Compositor
	joint      *JointNormalizer
	embedder   *temporal.Embedder
	logger     logging.Logger
	metrics    *Metrics
	supersede  bool

	generation atomic.Uint64

	mu     sync.Mutex
	latest *Task
}

// Option configures a Projector
type Option func(*Projector)

// WithLogger sets the logger tasks derive their loggers from
func WithLogger(logger logging.Logger) Option {
	return func(p *Projector) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records task and stage metrics
func WithMetrics(m *Metrics) Option {
	return func(p *Projector) {
		p.metrics = m
	}
}

// WithSupersede overrides cfg.Pipeline.Supersede
func WithSupersede(supersede bool) Option {
	return func(p *Projector) {
		p.supersede = supersede
	}
}

// NewProjector creates a projector. A nil cfg uses config.DefaultConfig.
func NewProjector(cfg *config.Config, opts ...Option) *Projector {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	p := &Projector{
		cfg:        cfg,
		compositor: NewCompositor(cfg.Normalization.FeatureFallbackMethod()),
		joint:      NewJointNormalizer(cfg.Normalization.JointFallbackMethod()),
		embedder:   temporal.NewEmbedder(),
		logger: logging.WithFields(logging.Fields{
			"component": "projector",
		}),
		supersede: cfg.Pipeline.Supersede,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Latest returns the generation of the most recently started task, or 0.
func (p *Projector) Latest() uint64 {
	return p.generation.Load()
}

// IsLatest reports whether gen belongs to the most recently started task.
// Callers discard results of older generations.
func (p *Projector) IsLatest(gen uint64) bool {
	return gen != 0 && gen == p.generation.Load()
}

// Project starts a task for req on a new goroutine and returns immediately.
// The task stops early when ctx is done. req must not be modified until the
// task has finished.
func (p *Projector) Project(ctx context.Context, req *Request) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:     uuid.NewString(),
		queue:  newEventQueue(),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	p.mu.Lock()
	t.Generation = p.generation.Add(1)
	previous := p.latest
	p.latest = t
	p.mu.Unlock()

	if p.supersede && previous != nil {
		previous.Cancel()
	}

	seed := p.cfg.PCA.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	exec := &run{
		projector: p,
		task:      t,
		req:       req,
		seed:      seed,
		logger: p.logger.WithFields(logging.Fields{
			"generation":    t.Generation,
			"invocation_id": t.ID,
		}),
	}
	if p.metrics != nil {
		p.metrics.InFlight.Inc()
	}
	go exec.execute(taskCtx)
	return t
}

// Task is the handle of one running projection
type Task struct {
	Generation uint64
	ID         string

	queue    *eventQueue
	pumpOnce sync.Once
	events   chan Event
	done     chan struct{}
	cancel   context.CancelFunc
	result   [][]float64
	err      error
}

// Events returns the task's event stream in emission order. The channel is
// closed after the done event. Events queue up until read, so a caller that
// only needs the result may ignore the stream.
func (t *Task) Events() <-chan Event {
	t.pumpOnce.Do(func() {
		t.events = make(chan Event)
		go t.queue.pump(t.events)
	})
	return t.events
}

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the task at the next stage boundary. It is safe to call
// more than once and after the task finished.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes or ctx is done. It returns the point
// cloud, or ErrCancelled with an empty result for a cancelled task.
func (t *Task) Wait(ctx context.Context) ([][]float64, error) {
	select {
	case <-t.done:
		return t.result, t.err
	default:
	}
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run is the state of one task execution
type run struct {
	projector *Projector
	task      *Task
	req       *Request
	seed      uint64
	logger    logging.Logger
}

func (r *run) emit(e Event) {
	e.Generation = r.task.Generation
	e.ID = r.task.ID
	r.task.queue.push(e)
}

func (r *run) Progress(label string) {
	r.logger.Debug("Projection stage", logging.Fields{"label": label})
	r.emit(Event{Type: EventProgress, Label: label})
}

func (r *run) Warning(message string) {
	r.logger.Warn(message)
	if m := r.projector.metrics; m != nil {
		m.Warnings.Inc()
	}
	r.emit(Event{Type: EventWarning, Message: message})
}

func (r *run) Debug(message string) {
	r.logger.Debug(message)
	r.emit(Event{Type: EventDebug, Message: message})
}

func (r *run) observe(stage string, start time.Time) {
	if m := r.projector.metrics; m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (r *run) execute(ctx context.Context) {
	defer r.task.cancel()

	result, err := r.pipeline(ctx)
	status := StatusDone
	if err != nil {
		status = StatusCancelled
		result = [][]float64{}
		r.Warning("Projection cancelled before completion")
		err = fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	r.task.result = result
	r.task.err = err
	rows, cols := common.Dims(result)
	r.logger.Info("Projection finished", logging.Fields{
		"status": status,
		"rows":   rows,
		"cols":   cols,
	})
	if m := r.projector.metrics; m != nil {
		m.Projections.WithLabelValues(status).Inc()
		m.InFlight.Dec()
	}

	r.emit(Event{Type: EventDone, Result: result})
	r.task.queue.close()
	close(r.task.done)
}

// pipeline runs the four stages in order, checking ctx between stages.
func (r *run) pipeline(ctx context.Context) ([][]float64, error) {
	p := r.projector
	req := r.req
	if req == nil {
		req = &Request{}
	}

	// Step 1: normalize, weight and concatenate features
	start := time.Now()
	X := p.compositor.Compose(req.Features, req.Weights, req.FeatureNormName, r)
	r.observe(StageCompose, start)
	rows, cols := common.Dims(X)
	r.Debug(fmt.Sprintf("Composite matrix is %d x %d", rows, cols))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 2: sliding-window embedding
	start = time.Now()
	X = r.embed(X, req.WindowConfig)
	r.observe(StageEmbed, start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 3: joint normalization
	r.Progress("Normalizing Joint Embedding")
	start = time.Now()
	X = p.joint.Normalize(X, req.JointNormName, r)
	r.observe(StageJointNorm, start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 4: PCA, skipped when there are already few enough dimensions
	r.Progress("Computing PCA")
	pca := stats.NewPCAWithParams(stats.PCAParams{
		TargetDim:  p.cfg.PCA.TargetDim,
		Iterations: p.cfg.PCA.Iterations,
		Seed:       r.seed,
	})
	_, cols = common.Dims(X)
	if pca.Skips(cols) {
		r.Debug(fmt.Sprintf("Skipping PCA: %d dimensions", cols))
		return X, nil
	}
	r.Debug(fmt.Sprintf("PCA seed %d, %d iterations", r.seed, p.cfg.PCA.Iterations))
	start = time.Now()
	X, err := pca.ReduceContext(ctx, X)
	r.observe(StagePCA, start)
	return X, err
}

func (r *run) embed(X [][]float64, wc WindowConfig) [][]float64 {
	if wc.Length <= 1 {
		return X
	}

	e := r.projector.embedder
	mode := wc.Mode()
	frames := len(X)
	switch mode {
	case temporal.ModeNone:
		r.Warning(fmt.Sprintf("Window length %d requested without delay embedding, mean or stdev; skipping windowing", wc.Length))
		return X
	case temporal.DelayEmbedding:
		r.Progress("Computing Delay Embedding")
		X = e.DelayEmbed(X, wc.Length)
	case temporal.RunningMean:
		r.Progress("Computing Window Means")
		X = e.WindowMean(X, wc.Length)
	case temporal.RunningStdev:
		r.Progress("Computing Window Standard Deviations")
		X = e.WindowStdev(X, wc.Length, nil)
	case temporal.RunningMeanStdev:
		r.Progress("Computing Window Means")
		means := e.WindowMean(X, wc.Length)
		r.Progress("Computing Window Standard Deviations")
		X = common.HConcat(means, e.WindowStdev(X, wc.Length, means))
	}

	if frames > 0 && len(X) == 0 {
		r.Warning(fmt.Sprintf("Window length %d exceeds the %d available frames; result is empty", wc.Length, frames))
	}
	return X
}
