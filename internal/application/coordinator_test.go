package application

import (
	"testing"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorDirtyTracksGenerations(t *testing.T) {
	coord := NewCoordinator(nil)
	assert.False(t, coord.Dirty())

	coord.Update(func(*domain.State) bool { return false })
	assert.False(t, coord.Dirty())

	coord.Update(func(state *domain.State) bool {
		_, created := state.Directory.EnsureUser(worker)
		return created
	})
	require.True(t, coord.Dirty())

	snapshot, generation, dirty := coord.pendingSnapshot()
	require.True(t, dirty)
	assert.Len(t, snapshot.Users, 1)

	coord.Update(func(state *domain.State) bool {
		_, created := state.Directory.EnsureUser(sam)
		return created
	})
	assert.False(t, coord.markClean(generation))
	assert.True(t, coord.Dirty())

	_, generation, _ = coord.pendingSnapshot()
	assert.True(t, coord.markClean(generation))
	assert.False(t, coord.Dirty())
}

func TestCoordinatorReplaceIsClean(t *testing.T) {
	coord := NewCoordinator(nil)
	coord.Update(func(state *domain.State) bool {
		state.Directory.EnsureUser(worker)
		return true
	})

	restored := domain.NewState()
	restored.Directory.EnsureUser(sam)
	coord.Replace(restored)

	assert.False(t, coord.Dirty())
	coord.View(func(state *domain.State) {
		assert.True(t, state.Directory.Has(sam))
		assert.False(t, state.Directory.Has(worker))
	})
}
