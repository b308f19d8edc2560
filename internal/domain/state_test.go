package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 15, 30, 0, time.UTC)

func newTestState(t *testing.T, users ...UserID) *State {
	t.Helper()

	state := NewState()
	for _, id := range users {
		state.Directory.EnsureUser(id)
		_, err := state.Directory.SetName(id, "user-"+id.String())
		require.NoError(t, err)
	}

	return state
}

func assertSupervisorsRegistered(t *testing.T, state *State) {
	t.Helper()

	for _, session := range state.Sessions.Sessions() {
		for _, id := range session.Supervisors.IDs() {
			assert.True(t, state.Registry.IsSupervisor(id), "session %s references unregistered %s", session.Owner, id)
		}
	}
	assert.NoError(t, state.Validate())
}

func TestStateRegisterRequiresKnownUser(t *testing.T) {
	state := newTestState(t, 1)

	already, err := state.Register(1)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = state.Register(1)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, []UserID{1}, state.Registry.IDs())

	_, err = state.Register(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStateUnregisterClearsEverySessionReference(t *testing.T) {
	state := newTestState(t, 1, 2, 10, 11)
	for _, sup := range []UserID{10, 11} {
		_, err := state.Register(sup)
		require.NoError(t, err)
	}
	for _, owner := range []UserID{1, 2} {
		_, err := state.Sessions.Begin(owner, testNow)
		require.NoError(t, err)
	}

	for _, link := range [][2]UserID{{1, 10}, {2, 10}, {2, 11}} {
		added, err := state.AddSupervisor(link[0], link[1])
		require.NoError(t, err)
		require.True(t, added)
	}

	result, err := state.Unregister(10)
	require.NoError(t, err)

	assert.Equal(t, []UserID{1, 2}, result.Affected)
	assert.Equal(t, []UserID{1}, result.Unsupervised)
	assert.False(t, state.Registry.IsSupervisor(10))
	assert.Empty(t, state.Sessions.Supervising(10))
	assertSupervisorsRegistered(t, state)

	_, err = state.Unregister(10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStateAddSupervisorRejectsUnregistered(t *testing.T) {
	state := newTestState(t, 1, 2)
	_, err := state.Sessions.Begin(1, testNow)
	require.NoError(t, err)

	_, err = state.AddSupervisor(1, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = state.Register(2)
	require.NoError(t, err)

	added, err := state.AddSupervisor(1, 2)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = state.AddSupervisor(1, 2)
	require.NoError(t, err)
	assert.False(t, added)

	names, err := state.SupervisorNames(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2"}, names)
}

func TestStateRemoveUserCascades(t *testing.T) {
	state := newTestState(t, 1, 2, 3)
	_, err := state.Register(2)
	require.NoError(t, err)
	_, err = state.Register(3)
	require.NoError(t, err)

	_, err = state.Sessions.Begin(1, testNow)
	require.NoError(t, err)
	_, err = state.Sessions.Begin(2, testNow)
	require.NoError(t, err)
	_, err = state.AddSupervisor(1, 2)
	require.NoError(t, err)
	_, err = state.AddSupervisor(2, 3)
	require.NoError(t, err)

	removal := state.RemoveUser(2)

	assert.Equal(t, "user-2", removal.User.Label())
	assert.True(t, removal.EndedSession)
	assert.Equal(t, []UserID{3}, removal.EndedSupervisors)
	assert.True(t, removal.WasSupervisor)
	assert.Equal(t, []UserID{1}, removal.Unregistered.Unsupervised)
	assert.False(t, state.Directory.Has(2))
	assert.False(t, state.Sessions.Has(2))
	assertSupervisorsRegistered(t, state)

	missing := state.RemoveUser(42)
	assert.False(t, missing.EndedSession)
	assert.False(t, missing.WasSupervisor)
}

func TestSnapshotRoundTrip(t *testing.T) {
	state := newTestState(t, 3, 1, 2)
	_, err := state.Register(2)
	require.NoError(t, err)
	_, err = state.Register(1)
	require.NoError(t, err)

	_, err = state.Sessions.Begin(3, testNow)
	require.NoError(t, err)
	_, err = state.Sessions.Begin(1, testNow.Add(time.Minute))
	require.NoError(t, err)
	_, err = state.AddSupervisor(3, 2)
	require.NoError(t, err)
	_, err = state.AddSupervisor(3, 1)
	require.NoError(t, err)
	_, err = state.Sessions.RecordMiss(3)
	require.NoError(t, err)

	snapshot := state.Snapshot()
	restored, report := RestoreState(snapshot)

	assert.True(t, report.Empty())
	assert.Equal(t, snapshot, restored.Snapshot())

	names, err := restored.SupervisorNames(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2", "user-1"}, names)
}

func TestRestoreStateDropsOrphansAndDanglingReferences(t *testing.T) {
	snapshot := Snapshot{
		Users:       []User{{ID: 1, DisplayName: "Ada"}, {ID: 2, DisplayName: "Bo"}},
		Supervisors: []UserID{2, 7},
		Sessions: []SessionRecord{
			{Owner: 1, LastAck: testNow, Supervisors: []UserID{2, 5}},
			{Owner: 9, LastAck: testNow},
		},
	}

	state, report := RestoreState(snapshot)

	assert.Equal(t, []UserID{9}, report.OrphanSessions)
	assert.Equal(t, []UserID{7}, report.UnknownSupervisors)
	assert.Equal(t, map[UserID][]UserID{1: {5}}, report.DanglingSupervisors)

	session, err := state.Sessions.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []UserID{2}, session.Supervisors.IDs())
	assert.Equal(t, testNow, session.StartedAt)
	assertSupervisorsRegistered(t, state)
}
