package ports

import (
	"context"

	"github.com/bnema/lonewatch/internal/domain"
)

// Inbound is one event from the chat transport.
type Inbound struct {
	Sender domain.UserID
	Text   string
	// DisplayName is the sender's profile name when the transport knows it.
	DisplayName string
	// Removed is set when the sender blocked the bot or left the chat.
	Removed bool
}

type InboundHandler func(ctx context.Context, event Inbound)

// InboundSource delivers events one at a time until ctx ends or the source
// is exhausted.
type InboundSource interface {
	Run(ctx context.Context, handle InboundHandler) error
}
