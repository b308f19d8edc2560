package domain

import (
	"slices"
	"time"
)

// Session is one active monitoring period for a worker.
type Session struct {
	Owner       UserID
	StartedAt   time.Time
	LastAck     time.Time
	Missed      uint
	Supervisors IDSet
}

func (s Session) clone() Session {
	s.Supervisors = s.Supervisors.clone()
	return s
}

// Stamp normalizes a wall-clock instant to the precision the snapshot keeps.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// SessionStore holds at most one session per owner, in begin order.
type SessionStore struct {
	sessions map[UserID]*Session
	order    []UserID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[UserID]*Session{}}
}

func (s *SessionStore) Begin(owner UserID, now time.Time) (Session, error) {
	if _, ok := s.sessions[owner]; ok {
		return Session{}, ErrAlreadyActive
	}

	now = Stamp(now)
	session := &Session{Owner: owner, StartedAt: now, LastAck: now}
	s.insert(session)
	return session.clone(), nil
}

// End removes the session and returns the supervisors that were watching it.
func (s *SessionStore) End(owner UserID) ([]UserID, error) {
	session, ok := s.sessions[owner]
	if !ok {
		return nil, sessionNotFound(owner)
	}

	delete(s.sessions, owner)
	if i := slices.Index(s.order, owner); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}

	return session.Supervisors.IDs(), nil
}

// Acknowledge resets the missed counter and returns its previous value.
func (s *SessionStore) Acknowledge(owner UserID, now time.Time) (uint, error) {
	session, ok := s.sessions[owner]
	if !ok {
		return 0, sessionNotFound(owner)
	}

	previous := session.Missed
	session.Missed = 0
	session.LastAck = Stamp(now)
	return previous, nil
}

// RecordMiss counts one unanswered prompt and returns the new count.
func (s *SessionStore) RecordMiss(owner UserID) (uint, error) {
	session, ok := s.sessions[owner]
	if !ok {
		return 0, sessionNotFound(owner)
	}

	session.Missed++
	return session.Missed, nil
}

// AddSupervisor does not consult the registry; State.AddSupervisor does.
func (s *SessionStore) AddSupervisor(owner, supervisor UserID) (bool, error) {
	session, ok := s.sessions[owner]
	if !ok {
		return false, sessionNotFound(owner)
	}

	return session.Supervisors.Add(supervisor), nil
}

func (s *SessionStore) RemoveSupervisor(owner, supervisor UserID) (bool, error) {
	session, ok := s.sessions[owner]
	if !ok {
		return false, sessionNotFound(owner)
	}

	return session.Supervisors.Remove(supervisor), nil
}

// RemoveSupervisorEverywhere returns the owners whose sessions referenced supervisor.
func (s *SessionStore) RemoveSupervisorEverywhere(supervisor UserID) []UserID {
	var owners []UserID
	for _, owner := range s.order {
		if s.sessions[owner].Supervisors.Remove(supervisor) {
			owners = append(owners, owner)
		}
	}

	return owners
}

// Supervising lists the owners whose sessions include supervisor.
func (s *SessionStore) Supervising(supervisor UserID) []UserID {
	var owners []UserID
	for _, owner := range s.order {
		if s.sessions[owner].Supervisors.Contains(supervisor) {
			owners = append(owners, owner)
		}
	}

	return owners
}

func (s *SessionStore) Get(owner UserID) (Session, error) {
	session, ok := s.sessions[owner]
	if !ok {
		return Session{}, sessionNotFound(owner)
	}

	return session.clone(), nil
}

func (s *SessionStore) Has(owner UserID) bool {
	_, ok := s.sessions[owner]
	return ok
}

// Sessions returns copies in begin order.
func (s *SessionStore) Sessions() []Session {
	sessions := make([]Session, 0, len(s.order))
	for _, owner := range s.order {
		sessions = append(sessions, s.sessions[owner].clone())
	}

	return sessions
}

func (s *SessionStore) Len() int {
	return len(s.order)
}

func (s *SessionStore) insert(session *Session) {
	s.sessions[session.Owner] = session
	s.order = append(s.order, session.Owner)
}
