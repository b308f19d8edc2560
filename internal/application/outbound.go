package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
)

type Message struct {
	To   domain.UserID
	Text string
}

// outbox collects messages while the coordinator lock is held; they are
// delivered once it is released.
type outbox struct {
	messages []Message
}

func (o *outbox) send(to domain.UserID, format string, args ...any) {
	o.messages = append(o.messages, Message{To: to, Text: fmt.Sprintf(format, args...)})
}

func (o *outbox) broadcast(recipients []domain.UserID, except domain.UserID, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	for _, to := range recipients {
		if to == except {
			continue
		}
		o.messages = append(o.messages, Message{To: to, Text: text})
	}
}

// deliver sends every message with its own timeout. A failed recipient does
// not stop the others; the failures are joined into the returned error.
func deliver(ctx context.Context, notifier ports.Notifier, timeout time.Duration, messages []Message) error {
	var errs []error
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, &domain.TransportError{Recipient: msg.To, Err: err})
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		err := notifier.Send(sendCtx, msg.To, msg.Text)
		cancel()
		if err != nil {
			errs = append(errs, &domain.TransportError{Recipient: msg.To, Err: err})
		}
	}

	return errors.Join(errs...)
}
