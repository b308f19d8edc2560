package application

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
)

// fireWindow is how late a tick may be and still fire the grid point it
// missed.
const fireWindow = time.Minute

// slot tracks the next fire time of one session. It is recomputed whenever
// the session's LastAck moves.
type slot struct {
	ack  time.Time
	next time.Time
}

// Scheduler prompts silent workers and escalates to their supervisors.
type Scheduler struct {
	coord    *Coordinator
	notifier ports.Notifier
	clock    ports.Clock
	settings Settings
	logger   *log.Logger

	mu    sync.Mutex
	slots map[domain.UserID]slot
}

func NewScheduler(coord *Coordinator, notifier ports.Notifier, clock ports.Clock, settings Settings, logger *log.Logger) *Scheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Scheduler{
		coord:    coord,
		notifier: notifier,
		clock:    clock,
		settings: settings,
		logger:   logger,
		slots:    map[domain.UserID]slot{},
	}
}

// Tick evaluates every session once. Messages are built under the
// coordinator lock and sent after it is released; send failures are joined
// into the returned error and do not stop the remaining sends.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var out outbox

	s.coord.Update(func(state *domain.State) bool {
		changed := false
		live := make(map[domain.UserID]struct{}, state.Sessions.Len())

		for _, session := range state.Sessions.Sessions() {
			live[session.Owner] = struct{}{}

			current, ok := s.slots[session.Owner]
			if !ok || !current.ack.Equal(session.LastAck) {
				current = slot{ack: session.LastAck, next: s.settings.firstFire(session.LastAck, now)}
			}
			// A tick later than fireWindow past its point skips it and
			// rejoins the grid.
			if now.Sub(current.next) >= fireWindow {
				current.next = s.settings.firstFire(session.LastAck, now)
			}
			if now.Before(current.next) {
				s.slots[session.Owner] = current
				continue
			}

			s.escalate(state, session, &out)
			if _, err := state.Sessions.RecordMiss(session.Owner); err == nil {
				changed = true
			}
			current.next = s.settings.nextAfter(session.LastAck, now)
			s.slots[session.Owner] = current
		}

		for owner := range s.slots {
			if _, ok := live[owner]; !ok {
				delete(s.slots, owner)
			}
		}

		return changed
	})

	return deliver(ctx, s.notifier, s.settings.SendTimeout, out.messages)
}

// NextFire reports when owner is due next, as of the last tick.
func (s *Scheduler) NextFire(owner domain.UserID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.slots[owner]
	return current.next, ok
}

func (s *Scheduler) escalate(state *domain.State, session domain.Session, out *outbox) {
	owner := session.Owner
	name := state.Directory.Label(owner)
	supervisors := session.Supervisors.IDs()

	switch level := domain.LevelFor(session.Missed, len(supervisors), s.settings.AlertThreshold); level {
	case domain.LevelPrompt:
		out.send(owner, "💚 Are you /okay?")
	case domain.LevelReminder:
		out.send(owner, "🧡 Are you /okay?")
	case domain.LevelAlert:
		out.send(owner, "❤️ Alert sent to supervisors! Are you /okay?")
		for _, id := range supervisors {
			out.send(id, "⚠️ ALERT: %s has not responded! Send %s to handle.", name, handleLink(owner))
			s.logger.Printf("ALERT for user %s sent to %s", name, state.Directory.Label(id))
		}
	case domain.LevelUnsupervised:
		out.send(owner, "❤️ Are you /okay?")
		s.logger.Printf("User %s has not responded and has no supervisors", name)
	default:
		s.logger.Printf("Unexpected escalation level %s for %s", level, name)
	}
}

// firstFire picks the next fire time for a session seen for the first time
// since ack. A grid point passed less than fireWindow ago is still due.
func (s Settings) firstFire(ack, now time.Time) time.Time {
	base := ack.Add(s.NotifyInterval)
	if now.Before(base) {
		return base
	}

	steps := int64(now.Sub(base) / s.RepeatInterval)
	last := base.Add(time.Duration(steps) * s.RepeatInterval)
	if now.Sub(last) < fireWindow {
		return last
	}

	return last.Add(s.RepeatInterval)
}

// nextAfter returns the first grid point strictly after now.
func (s Settings) nextAfter(ack, now time.Time) time.Time {
	base := ack.Add(s.NotifyInterval)
	if now.Before(base) {
		return base
	}

	steps := int64(now.Sub(base)/s.RepeatInterval) + 1
	return base.Add(time.Duration(steps) * s.RepeatInterval)
}
