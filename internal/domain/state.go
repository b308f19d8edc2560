package domain

import (
	"errors"
	"fmt"
)

// State is the aggregate of Directory, Registry and SessionStore. Operations
// that touch more than one of them live here so each runs as one step.
type State struct {
	Directory *Directory
	Registry  *Registry
	Sessions  *SessionStore
}

func NewState() *State {
	return &State{
		Directory: NewDirectory(),
		Registry:  NewRegistry(),
		Sessions:  NewSessionStore(),
	}
}

// Register adds a known user to the supervisor set.
func (s *State) Register(id UserID) (alreadyRegistered bool, err error) {
	if !s.Directory.Has(id) {
		return false, userNotFound(id)
	}

	return s.Registry.Register(id), nil
}

type UnregisterResult struct {
	// Affected lists owners whose sessions lost the supervisor.
	Affected []UserID
	// Unsupervised is the subset of Affected left with no supervisor.
	Unsupervised []UserID
}

// Unregister drops id from the registry and from every session in one step.
func (s *State) Unregister(id UserID) (UnregisterResult, error) {
	if !s.Registry.remove(id) {
		return UnregisterResult{}, fmt.Errorf("supervisor %s: %w", id, ErrNotFound)
	}

	result := UnregisterResult{Affected: s.Sessions.RemoveSupervisorEverywhere(id)}
	for _, owner := range result.Affected {
		if s.Sessions.sessions[owner].Supervisors.Len() == 0 {
			result.Unsupervised = append(result.Unsupervised, owner)
		}
	}

	return result, nil
}

// AddSupervisor attaches a registered supervisor to owner's session.
func (s *State) AddSupervisor(owner, supervisor UserID) (bool, error) {
	if !s.Registry.IsSupervisor(supervisor) {
		return false, fmt.Errorf("supervisor %s: %w", supervisor, ErrNotFound)
	}

	return s.Sessions.AddSupervisor(owner, supervisor)
}

// SupervisorNames lists the display names of owner's supervisors in the
// order they joined.
func (s *State) SupervisorNames(owner UserID) ([]string, error) {
	session, err := s.Sessions.Get(owner)
	if err != nil {
		return nil, err
	}

	return s.Directory.Labels(session.Supervisors.IDs()), nil
}

type Removal struct {
	User User
	// EndedSupervisors is set when the user owned a session; it holds the
	// supervisors of that session.
	EndedSupervisors []UserID
	EndedSession     bool
	WasSupervisor    bool
	Unregistered     UnregisterResult
}

// RemoveUser deletes the user, ends their session and drops them from the
// supervisor set. Unknown ids return a zero Removal.
func (s *State) RemoveUser(id UserID) Removal {
	user, err := s.Directory.User(id)
	if err != nil {
		return Removal{User: User{ID: id}}
	}

	removal := Removal{User: user}
	if supervisors, err := s.Sessions.End(id); err == nil {
		removal.EndedSession = true
		removal.EndedSupervisors = supervisors
	}
	if result, err := s.Unregister(id); err == nil {
		removal.WasSupervisor = true
		removal.Unregistered = result
	}
	s.Directory.remove(id)

	return removal
}

// Validate reports every broken reference between the three stores.
func (s *State) Validate() error {
	var errs []error
	for _, id := range s.Registry.IDs() {
		if !s.Directory.Has(id) {
			errs = append(errs, fmt.Errorf("supervisor %s is not a known user", id))
		}
	}
	for _, session := range s.Sessions.Sessions() {
		if !s.Directory.Has(session.Owner) {
			errs = append(errs, fmt.Errorf("session owner %s is not a known user", session.Owner))
		}
		for _, id := range session.Supervisors.IDs() {
			if !s.Registry.IsSupervisor(id) {
				errs = append(errs, fmt.Errorf("session %s references unregistered supervisor %s", session.Owner, id))
			}
		}
	}

	return errors.Join(errs...)
}
