package application

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
)

// Persistence moves state between the coordinator and a snapshot repository.
type Persistence struct {
	repo   ports.SnapshotRepository
	coord  *Coordinator
	logger *log.Logger
}

func NewPersistence(repo ports.SnapshotRepository, coord *Coordinator, logger *log.Logger) *Persistence {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Persistence{repo: repo, coord: coord, logger: logger}
}

// Restore loads the saved snapshot into the coordinator. A failed load is
// logged and leaves an empty state in place; the returned error only reports
// it.
func (p *Persistence) Restore(ctx context.Context) (domain.RestoreReport, error) {
	snapshot, err := p.repo.Load(ctx)
	if err != nil {
		p.logger.Printf("Failed to load saved state, starting empty: %v", err)
		p.coord.Replace(domain.NewState())
		return domain.RestoreReport{}, fmt.Errorf("%w: load: %w", domain.ErrPersistence, err)
	}

	state, report := domain.RestoreState(snapshot)
	p.coord.Replace(state)

	for _, owner := range report.OrphanSessions {
		p.logger.Printf("Dropped session of unknown user %s", owner)
	}
	for _, id := range report.UnknownSupervisors {
		p.logger.Printf("Dropped supervisor %s: not a known user", id)
	}
	for owner, ids := range report.DanglingSupervisors {
		p.logger.Printf("Dropped %d unregistered supervisor(s) from session %s", len(ids), owner)
	}
	p.logger.Printf("Restored %d user(s), %d supervisor(s), %d session(s)",
		state.Directory.Len(), state.Registry.Len(), state.Sessions.Len())

	return report, nil
}

// Flush saves the state when it changed since the last successful flush. It
// reports whether a write happened.
func (p *Persistence) Flush(ctx context.Context) (bool, error) {
	snapshot, generation, dirty := p.coord.pendingSnapshot()
	if !dirty {
		return false, nil
	}

	if err := p.repo.Save(ctx, snapshot); err != nil {
		return false, fmt.Errorf("%w: save: %w", domain.ErrPersistence, err)
	}
	p.coord.markClean(generation)

	return true, nil
}
