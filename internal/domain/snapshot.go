package domain

import (
	"cmp"
	"slices"
	"time"
)

// Snapshot is the durable form of State.
type Snapshot struct {
	Users       []User
	Supervisors []UserID
	Sessions    []SessionRecord
}

type SessionRecord struct {
	Owner       UserID
	StartedAt   time.Time
	LastAck     time.Time
	Missed      uint
	Supervisors []UserID
}

// RestoreReport lists what was discarded while rebuilding a State.
type RestoreReport struct {
	OrphanSessions      []UserID
	UnknownSupervisors  []UserID
	DanglingSupervisors map[UserID][]UserID
}

func (r RestoreReport) Empty() bool {
	return len(r.OrphanSessions) == 0 && len(r.UnknownSupervisors) == 0 && len(r.DanglingSupervisors) == 0
}

// Snapshot orders users and sessions by id so equal states encode equally.
func (s *State) Snapshot() Snapshot {
	users := s.Directory.Users()
	slices.SortFunc(users, func(a, b User) int { return cmp.Compare(a.ID, b.ID) })

	sessions := make([]SessionRecord, 0, s.Sessions.Len())
	for _, session := range s.Sessions.Sessions() {
		sessions = append(sessions, SessionRecord{
			Owner:       session.Owner,
			StartedAt:   session.StartedAt,
			LastAck:     session.LastAck,
			Missed:      session.Missed,
			Supervisors: session.Supervisors.IDs(),
		})
	}
	slices.SortFunc(sessions, func(a, b SessionRecord) int { return cmp.Compare(a.Owner, b.Owner) })

	return Snapshot{
		Users:       users,
		Supervisors: s.Registry.IDs(),
		Sessions:    sessions,
	}
}

// RestoreState rebuilds a State, dropping sessions whose owner is unknown and
// supervisor references that would break the registry subset invariant.
func RestoreState(snapshot Snapshot) (*State, RestoreReport) {
	state := NewState()
	report := RestoreReport{}

	for _, user := range snapshot.Users {
		state.Directory.EnsureUser(user.ID)
		_, _ = state.Directory.SetName(user.ID, user.DisplayName)
	}

	for _, id := range snapshot.Supervisors {
		if !state.Directory.Has(id) {
			report.UnknownSupervisors = append(report.UnknownSupervisors, id)
			continue
		}
		state.Registry.Register(id)
	}

	records := slices.Clone(snapshot.Sessions)
	slices.SortStableFunc(records, func(a, b SessionRecord) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Owner, b.Owner)
	})

	for _, record := range records {
		if !state.Directory.Has(record.Owner) || state.Sessions.Has(record.Owner) {
			report.OrphanSessions = append(report.OrphanSessions, record.Owner)
			continue
		}

		session := &Session{
			Owner:     record.Owner,
			StartedAt: Stamp(record.StartedAt),
			LastAck:   Stamp(record.LastAck),
			Missed:    record.Missed,
		}
		if record.StartedAt.IsZero() {
			session.StartedAt = session.LastAck
		}
		for _, id := range record.Supervisors {
			if !state.Registry.IsSupervisor(id) {
				if report.DanglingSupervisors == nil {
					report.DanglingSupervisors = map[UserID][]UserID{}
				}
				report.DanglingSupervisors[record.Owner] = append(report.DanglingSupervisors[record.Owner], id)
				continue
			}
			session.Supervisors.Add(id)
		}
		state.Sessions.insert(session)
	}

	return state, report
}
