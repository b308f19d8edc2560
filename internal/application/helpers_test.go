package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 2, 9, 15, 30, 0, time.UTC)

const (
	worker domain.UserID = 100
	sam    domain.UserID = 200
	sue    domain.UserID = 300
	victor domain.UserID = 400
)

var testNames = map[domain.UserID]string{
	worker: "Wendy Worker",
	sam:    "Sam",
	sue:    "Sue",
	victor: "Victor",
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier keeps every delivered message and fails sends to the
// recipients listed in fail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Message
	fail map[domain.UserID]error
}

func (n *recordingNotifier) Send(_ context.Context, to domain.UserID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.fail[to]; err != nil {
		return err
	}
	n.sent = append(n.sent, Message{To: to, Text: text})
	return nil
}

func (n *recordingNotifier) to(id domain.UserID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var texts []string
	for _, msg := range n.sent {
		if msg.To == id {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func (n *recordingNotifier) recipients() []domain.UserID {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]domain.UserID, 0, len(n.sent))
	for _, msg := range n.sent {
		ids = append(ids, msg.To)
	}
	return ids
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type harness struct {
	coord      *Coordinator
	notifier   *recordingNotifier
	clock      *manualClock
	settings   Settings
	dispatcher *Dispatcher
	scheduler  *Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		coord:    NewCoordinator(nil),
		notifier: &recordingNotifier{},
		clock:    &manualClock{now: baseTime},
		settings: DefaultSettings(),
	}
	h.dispatcher = NewDispatcher(h.coord, h.notifier, h.clock, h.settings, nil)
	h.scheduler = NewScheduler(h.coord, h.notifier, h.clock, h.settings, nil)
	return h
}

func (h *harness) send(from domain.UserID, text string) error {
	return h.dispatcher.Handle(context.Background(), ports.Inbound{
		Sender:      from,
		Text:        text,
		DisplayName: testNames[from],
	})
}

// mustSend runs each command and clears the recorded replies afterwards.
func (h *harness) mustSend(t *testing.T, commands ...string) {
	t.Helper()

	for _, command := range commands {
		from, text, ok := splitCommand(command)
		require.True(t, ok, "bad command %q", command)
		require.NoError(t, h.send(from, text), command)
	}
	h.notifier.reset()
}

func splitCommand(command string) (domain.UserID, string, bool) {
	for id, name := range testNames {
		if text, ok := strings.CutPrefix(command, name+": "); ok {
			return id, text, true
		}
	}
	return 0, "", false
}

func (h *harness) session(t *testing.T, owner domain.UserID) domain.Session {
	t.Helper()

	var (
		session domain.Session
		err     error
	)
	h.coord.View(func(state *domain.State) {
		session, err = state.Sessions.Get(owner)
	})
	require.NoError(t, err)
	return session
}

func (h *harness) setMissed(t *testing.T, owner domain.UserID, missed int) {
	t.Helper()

	h.coord.Update(func(state *domain.State) bool {
		for range missed {
			_, err := state.Sessions.RecordMiss(owner)
			require.NoError(t, err)
		}
		return missed > 0
	})
}
