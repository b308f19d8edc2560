// Package document holds the on-disk snapshot layout shared by the file
// repositories, and the atomic write they all use.
package document

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
)

type Document struct {
	Users       map[string]string  `json:"users" toml:"users"`
	Supervisors []int64            `json:"supervisors" toml:"supervisors"`
	Sessions    map[string]Session `json:"sessions" toml:"sessions"`
}

type Session struct {
	// LastAck and StartedAt are Unix seconds.
	LastAck     int64   `json:"lastAck" toml:"lastAck"`
	Missed      uint    `json:"missed" toml:"missed"`
	Supervisors []int64 `json:"supervisors" toml:"supervisors"`
	StartedAt   *int64  `json:"startedAt,omitempty" toml:"startedAt,omitempty"`
}

func FromSnapshot(snapshot domain.Snapshot) Document {
	doc := Document{
		Users:       make(map[string]string, len(snapshot.Users)),
		Supervisors: toInts(snapshot.Supervisors),
		Sessions:    make(map[string]Session, len(snapshot.Sessions)),
	}

	for _, user := range snapshot.Users {
		doc.Users[user.ID.String()] = user.DisplayName
	}
	for _, record := range snapshot.Sessions {
		session := Session{
			LastAck:     record.LastAck.Unix(),
			Missed:      record.Missed,
			Supervisors: toInts(record.Supervisors),
		}
		if !record.StartedAt.IsZero() {
			started := record.StartedAt.Unix()
			session.StartedAt = &started
		}
		doc.Sessions[record.Owner.String()] = session
	}

	return doc
}

// ToSnapshot rejects keys that are not user ids. Users and sessions come
// back in ascending id order.
func (d Document) ToSnapshot() (domain.Snapshot, error) {
	snapshot := domain.Snapshot{
		Users:       make([]domain.User, 0, len(d.Users)),
		Supervisors: make([]domain.UserID, 0, len(d.Supervisors)),
		Sessions:    make([]domain.SessionRecord, 0, len(d.Sessions)),
	}

	for raw, name := range d.Users {
		id, err := parseKey(raw)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("users: %w", err)
		}
		snapshot.Users = append(snapshot.Users, domain.User{ID: id, DisplayName: name})
	}
	slices.SortFunc(snapshot.Users, func(a, b domain.User) int { return cmp.Compare(a.ID, b.ID) })

	for _, id := range d.Supervisors {
		snapshot.Supervisors = append(snapshot.Supervisors, domain.UserID(id))
	}

	for raw, session := range d.Sessions {
		owner, err := parseKey(raw)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("sessions: %w", err)
		}

		record := domain.SessionRecord{
			Owner:       owner,
			LastAck:     time.Unix(session.LastAck, 0).UTC(),
			Missed:      session.Missed,
			Supervisors: make([]domain.UserID, 0, len(session.Supervisors)),
		}
		if session.StartedAt != nil {
			record.StartedAt = time.Unix(*session.StartedAt, 0).UTC()
		}
		for _, id := range session.Supervisors {
			record.Supervisors = append(record.Supervisors, domain.UserID(id))
		}
		snapshot.Sessions = append(snapshot.Sessions, record)
	}
	slices.SortFunc(snapshot.Sessions, func(a, b domain.SessionRecord) int { return cmp.Compare(a.Owner, b.Owner) })

	return snapshot, nil
}

func parseKey(raw string) (domain.UserID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}

	return domain.UserID(id), nil
}

func toInts(ids []domain.UserID) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}

	return out
}
