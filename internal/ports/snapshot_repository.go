package ports

import (
	"context"

	"github.com/bnema/lonewatch/internal/domain"
)

type SnapshotRepository interface {
	// Load returns an empty snapshot when nothing was saved yet.
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
}
