// Package outbox queues outbound messages and sends them from one worker,
// in order and at a bounded rate.
package outbox

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
	"github.com/eapache/queue"
)

type message struct {
	to   domain.UserID
	text string
}

type Options struct {
	// SendTimeout bounds each delivery. Zero means no bound beyond ctx.
	SendTimeout time.Duration
	// Pace is the minimum gap between two deliveries.
	Pace time.Duration
	// OnFailure receives a *domain.TransportError for every failed delivery.
	OnFailure func(error)
	Logger    *log.Logger
}

type Outbox struct {
	next ports.Notifier
	opts Options

	mu      sync.Mutex
	pending *queue.Queue
	wake    chan struct{}
}

var _ ports.Notifier = (*Outbox)(nil)

func New(next ports.Notifier, opts Options) *Outbox {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	return &Outbox{
		next:    next,
		opts:    opts,
		pending: queue.New(),
		wake:    make(chan struct{}, 1),
	}
}

// Send enqueues the message and returns at once. Failures surface through
// Options.OnFailure.
func (o *Outbox) Send(ctx context.Context, to domain.UserID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	o.pending.Add(message{to: to, text: text})
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}

	return nil
}

func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.pending.Length()
}

// Run delivers queued messages until ctx ends. Messages still queued at that
// point are dropped.
func (o *Outbox) Run(ctx context.Context) error {
	var last time.Time
	for {
		msg, ok := o.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return o.stop(ctx)
			case <-o.wake:
				continue
			}
		}

		if wait := o.opts.Pace - time.Since(last); !last.IsZero() && wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return o.stop(ctx)
			case <-timer.C:
			}
		}

		o.deliver(ctx, msg)
		last = time.Now()
	}
}

func (o *Outbox) pop() (message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending.Length() == 0 {
		return message{}, false
	}

	return o.pending.Remove().(message), true
}

func (o *Outbox) deliver(ctx context.Context, msg message) {
	sendCtx := ctx
	if o.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, o.opts.SendTimeout)
		defer cancel()
	}

	if err := o.next.Send(sendCtx, msg.to, msg.text); err != nil {
		failure := &domain.TransportError{Recipient: msg.to, Err: err}
		o.opts.Logger.Printf("Outbox: %v", failure)
		if o.opts.OnFailure != nil {
			o.opts.OnFailure(failure)
		}
	}
}

func (o *Outbox) stop(ctx context.Context) error {
	if dropped := o.Pending(); dropped > 0 {
		o.opts.Logger.Printf("Outbox: dropping %d undelivered message(s)", dropped)
	}

	return ctx.Err()
}
