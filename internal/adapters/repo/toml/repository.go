package toml

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/lonewatch/internal/adapters/repo/document"
	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const tempFilePattern = ".lonewatch-*.toml.tmp"

// Repository stores the snapshot as a versioned TOML document.
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

	file, err := r.readSchema()
	if err != nil {
		return domain.Snapshot{}, err
	}

	return file.document().ToSnapshot()
}

func (r *Repository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := toSchema(document.FromSnapshot(snapshot))
	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode snapshot file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return document.WriteFile(r.path, data, tempFilePattern)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := document.ReadFile(r.path)
	if err != nil {
		return fileSchema{}, err
	}

	var file fileSchema
	if len(data) == 0 {
		file.applyDefaults()
		return file, nil
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode snapshot file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}
