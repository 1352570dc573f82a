package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/logging"
)

var ErrInvalidInterval = errors.New("sync interval must be positive")

type entityRequest struct {
	t  models.DataType
	id string
}

// Scheduler runs SyncAll periodically while online and serves on-demand
// requests between ticks. Requests made offline are dropped; the next full
// sync picks the changes up. Offline ticks only clean up the journal.
//
// After a failed run the periodic ticks back off following the queue's
// retry policy; TriggerAll and entity requests are not held back.
type Scheduler struct {
	orch     *Orchestrator
	network  Network
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time

	failures  int
	notBefore time.Time

	kick     chan struct{}
	requests chan entityRequest
	reports  func(Report)
}

func NewScheduler(orch *Orchestrator, network Network, interval time.Duration, logger logging.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidInterval, interval)
	}
	return &Scheduler{
		orch:     orch,
		network:  network,
		interval: interval,
		logger:   logger.With("module", "scheduler"),
		now:      time.Now,
		kick:     make(chan struct{}, 1),
		requests: make(chan entityRequest, 64),
	}, nil
}

// OnReport registers fn to receive every full sync report. Call before Run.
func (s *Scheduler) OnReport(fn func(Report)) {
	s.reports = fn
}

// TriggerAll asks for a full sync as soon as possible.
func (s *Scheduler) TriggerAll() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Request asks to reconcile one record now. It reports false when the
// request buffer is full.
func (s *Scheduler) Request(t models.DataType, id string) bool {
	select {
	case s.requests <- entityRequest{t: t, id: id}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) online() bool {
	return s.network == nil || s.network.Online()
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.online() && s.now().Before(s.notBefore) {
		s.logger.Debug(ctx, "backing off after failed sync", "until", s.notBefore, "failures", s.failures)
		return
	}
	s.syncAll(ctx)
}

func (s *Scheduler) syncAll(ctx context.Context) {
	if !s.online() {
		n := s.orch.Cleanup(ctx)
		s.logger.Debug(ctx, "offline, sync skipped", "cleaned", n)
		return
	}
	r := s.orch.SyncAll(ctx)
	if r.Success {
		s.failures = 0
		s.notBefore = time.Time{}
	} else if ctx.Err() == nil {
		s.failures++
		s.notBefore = s.now().Add(s.orch.Backoff(s.failures))
	}
	if s.reports != nil {
		s.reports(r)
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.kick:
			s.syncAll(ctx)
		case req := <-s.requests:
			if !s.online() {
				continue
			}
			r := s.orch.SyncEntity(ctx, req.t, req.id)
			if !r.Success {
				s.logger.Warn(ctx, "entity sync failed", "type", req.t, "id", req.id, "errors", r.Errors)
			}
		case <-ctx.Done():
			return
		}
	}
}
