package application

import (
	"time"

	"github.com/bnema/lonewatch/internal/domain"
)

type UserStatus struct {
	ID         domain.UserID `json:"id"`
	Name       string        `json:"name"`
	Supervisor bool          `json:"supervisor"`
}

type SessionStatus struct {
	Owner     UserStatus `json:"owner"`
	StartedAt time.Time  `json:"startedAt"`
	LastAck   time.Time  `json:"lastAck"`
	// Silence is the time since the last acknowledgement.
	Silence time.Duration `json:"silence"`
	Missed  uint          `json:"missed"`
	// NextLevel is the escalation the next prompt will take.
	NextLevel   string       `json:"nextLevel"`
	NextPrompt  time.Time    `json:"nextPrompt"`
	Supervisors []UserStatus `json:"supervisors"`
}

type StatusReport struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Sessions    []SessionStatus `json:"sessions"`
	Supervisors []UserStatus    `json:"supervisors"`
	Users       []UserStatus    `json:"users"`
}

// BuildStatusReport summarizes a saved snapshot as of now. The next prompt
// is estimated from the saved acknowledgement, as after a restart.
func BuildStatusReport(snapshot domain.Snapshot, settings Settings, now time.Time) StatusReport {
	state, _ := domain.RestoreState(snapshot)
	userStatus := func(id domain.UserID) UserStatus {
		return UserStatus{
			ID:         id,
			Name:       state.Directory.Label(id),
			Supervisor: state.Registry.IsSupervisor(id),
		}
	}

	report := StatusReport{
		GeneratedAt: now,
		Sessions:    []SessionStatus{},
		Supervisors: []UserStatus{},
		Users:       []UserStatus{},
	}

	for _, session := range state.Sessions.Sessions() {
		ids := session.Supervisors.IDs()
		supervisors := make([]UserStatus, 0, len(ids))
		for _, id := range ids {
			supervisors = append(supervisors, userStatus(id))
		}

		silence := now.Sub(session.LastAck)
		if silence < 0 {
			silence = 0
		}

		report.Sessions = append(report.Sessions, SessionStatus{
			Owner:       userStatus(session.Owner),
			StartedAt:   session.StartedAt,
			LastAck:     session.LastAck,
			Silence:     silence,
			Missed:      session.Missed,
			NextLevel:   domain.LevelFor(session.Missed, len(ids), settings.AlertThreshold).String(),
			NextPrompt:  settings.firstFire(session.LastAck, now),
			Supervisors: supervisors,
		})
	}
	for _, id := range state.Registry.IDs() {
		report.Supervisors = append(report.Supervisors, userStatus(id))
	}
	for _, user := range state.Directory.Users() {
		report.Users = append(report.Users, userStatus(user.ID))
	}

	return report
}
