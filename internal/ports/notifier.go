package ports

import (
	"context"

	"github.com/bnema/lonewatch/internal/domain"
)

// Notifier delivers one text message to one user.
type Notifier interface {
	Send(ctx context.Context, to domain.UserID, text string) error
}

// OffsetResetter is implemented by transports that can recover from send
// failures by discarding their inbound backlog.
type OffsetResetter interface {
	ResetOffset()
}
