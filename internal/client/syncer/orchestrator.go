package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"golang.org/x/sync/errgroup"
)

var ErrDuplicateHandler = errors.New("handler already registered")

const (
	PhasePull = "pull"
	PhasePush = "push"
)

// TypeResult is a handler's result within one phase.
type TypeResult struct {
	Type   models.DataType
	Result Result
}

// Report is the outcome of SyncAll. Pulls and Pushes follow registration
// order.
type Report struct {
	Success  bool
	Pulls    []TypeResult
	Pushes   []TypeResult
	Cleaned  int64
	Duration time.Duration
}

// Errors flattens every error line, pulls first.
func (r Report) Errors() []string {
	var out []string
	for _, phase := range [][]TypeResult{r.Pulls, r.Pushes} {
		for _, tr := range phase {
			out = append(out, tr.Result.Errors...)
		}
	}
	return out
}

type Orchestrator struct {
	mu       sync.Mutex
	handlers []Handler
	byType   map[models.DataType]Handler
	queue    *queue.Queue
	recorder Recorder
	workers  int
	logger   logging.Logger
}

// NewOrchestrator runs at most workers handlers at once within a phase;
// values below 1 mean sequential.
func NewOrchestrator(q *queue.Queue, recorder Recorder, workers int, logger logging.Logger) *Orchestrator {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Orchestrator{
		byType:   map[models.DataType]Handler{},
		queue:    q,
		recorder: recorder,
		workers:  max(workers, 1),
		logger:   logger.With("module", "orchestrator"),
	}
}

func (o *Orchestrator) Register(h Handler) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := h.DataType()
	if _, ok := o.byType[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, t)
	}
	o.byType[t] = h
	o.handlers = append(o.handlers, h)
	return nil
}

func (o *Orchestrator) snapshot() []Handler {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Handler(nil), o.handlers...)
}

// SyncAll pulls every type, then pushes every type, then drops delivered
// journal entries past retention. One failing handler never stops the
// others.
func (o *Orchestrator) SyncAll(ctx context.Context) Report {
	start := time.Now()
	handlers := o.snapshot()

	report := Report{Success: true}
	report.Pulls = o.phase(ctx, PhasePull, handlers, Handler.PullFromRemote)
	report.Pushes = o.phase(ctx, PhasePush, handlers, Handler.PushToRemote)

	for _, trs := range [][]TypeResult{report.Pulls, report.Pushes} {
		for _, tr := range trs {
			report.Success = report.Success && tr.Result.Success
		}
	}

	// local only, so it runs after cancellation too
	report.Cleaned = o.Cleanup(context.WithoutCancel(ctx))
	report.Duration = time.Since(start)

	o.recorder.ObserveRun(report.Success, report.Duration)
	o.logger.Info(ctx, "sync finished", "success", report.Success,
		"errors", len(report.Errors()), "duration", report.Duration)
	return report
}

// Cleanup drops delivered journal entries past retention. It needs no
// network and is safe to call while offline.
func (o *Orchestrator) Cleanup(ctx context.Context) int64 {
	n, err := o.queue.Cleanup(ctx)
	if err != nil {
		o.logger.Warn(ctx, "queue cleanup failed", "error", err)
	}
	return n
}

// Backoff is the wait the scheduler keeps after n failed runs in a row.
func (o *Orchestrator) Backoff(n int) time.Duration {
	return o.queue.Backoff(n)
}

func (o *Orchestrator) phase(ctx context.Context, phase string, handlers []Handler, run func(Handler, context.Context) Result) []TypeResult {
	out := make([]TypeResult, len(handlers))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, h := range handlers {
		out[i].Type = h.DataType()
		if ctx.Err() != nil {
			out[i].Result = Failed(cancelledMessage)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				out[i].Result = Failed(cancelledMessage)
				return nil
			}
			start := time.Now()
			r := run(h, ctx)
			o.recorder.ObserveHandler(phase, h.DataType(), r, time.Since(start))
			out[i].Result = r
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// SyncEntity routes a single-record sync to the type's handler.
func (o *Orchestrator) SyncEntity(ctx context.Context, t models.DataType, id string) Result {
	o.mu.Lock()
	h, ok := o.byType[t]
	o.mu.Unlock()
	if !ok {
		return Failed(fmt.Sprintf("no handler for %s", t))
	}

	start := time.Now()
	r := h.SyncEntity(ctx, id)
	o.recorder.ObserveHandler("entity", t, r, time.Since(start))
	return r
}
