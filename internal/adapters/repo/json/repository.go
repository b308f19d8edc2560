package json

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bnema/lonewatch/internal/adapters/repo/document"
	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
)

const tempFilePattern = ".lonewatch-*.json.tmp"

// Repository stores the snapshot as a JSON document.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SnapshotRepository = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	path, err := document.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	return &Repository{path: path, mu: document.LockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := document.ReadFile(r.path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(data) == 0 {
		return document.Document{}.ToSnapshot()
	}

	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot file: %w", err)
	}

	return doc.ToSnapshot()
}

func (r *Repository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(document.FromSnapshot(snapshot), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return document.WriteFile(r.path, data, tempFilePattern)
}
