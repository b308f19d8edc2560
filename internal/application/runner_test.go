package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	events []ports.Inbound
}

func (s scriptedSource) Run(ctx context.Context, handle ports.InboundHandler) error {
	for _, event := range s.events {
		if err := ctx.Err(); err != nil {
			return err
		}
		handle(ctx, event)
	}
	return nil
}

type memoryRepository struct {
	mu    sync.Mutex
	saves []domain.Snapshot
}

func (r *memoryRepository) Load(context.Context) (domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.saves) == 0 {
		return domain.Snapshot{}, nil
	}
	return r.saves[len(r.saves)-1], nil
}

func (r *memoryRepository) Save(_ context.Context, snapshot domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves = append(r.saves, snapshot)
	return nil
}

type countingResetter struct {
	mu    sync.Mutex
	calls int
}

func (r *countingResetter) ResetOffset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func newTestRunner(h *harness, source ports.InboundSource, repo ports.SnapshotRepository, resetter ports.OffsetResetter) *Runner {
	return NewRunner(RunnerConfig{
		Scheduler:    h.scheduler,
		Dispatcher:   h.dispatcher,
		Persistence:  NewPersistence(repo, h.coord, nil),
		Source:       source,
		Resetter:     resetter,
		TickInterval: time.Hour,
	})
}

func TestRunnerSavesOnlyOnShutdownWithoutTicks(t *testing.T) {
	h := newHarness(t)
	repo := &memoryRepository{}
	source := scriptedSource{events: []ports.Inbound{
		{Sender: sam, Text: "/supervise", DisplayName: "Sam"},
		{Sender: worker, Text: "/begin", DisplayName: "Wendy Worker"},
		{Sender: worker, Text: "/200"},
		{Sender: worker, Text: "/okay"},
	}}

	require.NoError(t, newTestRunner(h, source, repo, nil).Run(context.Background()))

	require.Len(t, repo.saves, 1)
	saved := repo.saves[0]
	assert.Equal(t, []domain.UserID{sam}, saved.Supervisors)
	require.Len(t, saved.Sessions, 1)
	assert.Equal(t, []domain.UserID{sam}, saved.Sessions[0].Supervisors)
	assert.False(t, h.coord.Dirty())
}

func TestRunnerWritesOncePerDirtyTick(t *testing.T) {
	h := newHarness(t)
	repo := &memoryRepository{}
	runner := newTestRunner(h, scriptedSource{}, repo, nil)
	ctx := context.Background()

	runner.handle(ctx, ports.Inbound{Sender: worker, Text: "/begin", DisplayName: "Wendy Worker"})
	runner.handle(ctx, ports.Inbound{Sender: sam, Text: "/supervise", DisplayName: "Sam"})
	assert.Empty(t, repo.saves)
	assert.True(t, h.coord.Dirty())

	runner.tick(ctx)
	require.Len(t, repo.saves, 1)
	assert.False(t, h.coord.Dirty())

	runner.tick(ctx)
	assert.Len(t, repo.saves, 1)

	runner.handle(ctx, ports.Inbound{Sender: worker, Text: "/okay"})
	assert.Len(t, repo.saves, 1)

	runner.tick(ctx)
	assert.Len(t, repo.saves, 2)
}

func TestRunnerResetsOffsetAfterTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.notifier.fail = map[domain.UserID]error{worker: errors.New("chat not found")}
	resetter := &countingResetter{}
	source := scriptedSource{events: []ports.Inbound{{Sender: worker, Text: "/begin"}}}

	require.NoError(t, newTestRunner(h, source, &memoryRepository{}, resetter).Run(context.Background()))

	assert.Equal(t, 1, resetter.calls)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := sourceFunc(func(ctx context.Context, _ ports.InboundHandler) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.NoError(t, newTestRunner(h, blocking, &memoryRepository{}, nil).Run(ctx))
}

type sourceFunc func(ctx context.Context, handle ports.InboundHandler) error

func (f sourceFunc) Run(ctx context.Context, handle ports.InboundHandler) error {
	return f(ctx, handle)
}
