package application

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
)

// finalFlushTimeout bounds the save performed after the run context ends.
const finalFlushTimeout = 10 * time.Second

// Runner drives the periodic tick and the inbound source until ctx ends.
type Runner struct {
	scheduler   *Scheduler
	dispatcher  *Dispatcher
	persistence *Persistence
	source      ports.InboundSource
	resetter    ports.OffsetResetter
	interval    time.Duration
	logger      *log.Logger
}

type RunnerConfig struct {
	Scheduler   *Scheduler
	Dispatcher  *Dispatcher
	Persistence *Persistence
	Source      ports.InboundSource
	// Resetter is optional; it is called after a tick with send failures.
	Resetter     ports.OffsetResetter
	TickInterval time.Duration
	Logger       *log.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Runner{
		scheduler:   cfg.Scheduler,
		dispatcher:  cfg.Dispatcher,
		persistence: cfg.Persistence,
		source:      cfg.Source,
		resetter:    cfg.Resetter,
		interval:    interval,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled or the inbound source stops. The state
// is written at most once per tick and once more on the way out; inbound
// events only mark it dirty.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- r.source.Run(ctx, r.handle)
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-sourceDone:
			sourceDone = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				runErr = err
			}
			r.logger.Printf("Inbound source stopped")
			break loop
		case <-ticker.C:
			r.tick(ctx)
		}
	}

	cancel()
	if sourceDone != nil {
		if err := <-sourceDone; err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Printf("Inbound source: %v", err)
		}
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer flushCancel()
	if _, err := r.persistence.Flush(flushCtx); err != nil {
		r.logger.Printf("Final save failed: %v", err)
		runErr = errors.Join(runErr, err)
	}

	return runErr
}

func (r *Runner) tick(ctx context.Context) {
	if err := r.scheduler.Tick(ctx); err != nil {
		r.logger.Printf("Tick: %v", err)
		r.recover(err)
	}
	r.flush(ctx)
}

func (r *Runner) handle(ctx context.Context, event ports.Inbound) {
	if err := r.dispatcher.Handle(ctx, event); err != nil {
		r.recover(err)
	}
}

func (r *Runner) recover(err error) {
	if r.resetter != nil && errors.Is(err, domain.ErrTransport) {
		r.resetter.ResetOffset()
	}
}

func (r *Runner) flush(ctx context.Context) {
	if _, err := r.persistence.Flush(ctx); err != nil {
		r.logger.Printf("Save failed, will retry: %v", err)
	}
}
