package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type delivered struct {
	to   domain.UserID
	text string
	at   time.Time
}

type recorder struct {
	mu   sync.Mutex
	sent []delivered
	done chan struct{}
	want int
}

func newRecorder(want int) *recorder {
	return &recorder{done: make(chan struct{}), want: want}
}

func (r *recorder) Send(_ context.Context, to domain.UserID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, delivered{to: to, text: text, at: time.Now()})
	if len(r.sent) == r.want {
		close(r.done)
	}
	return nil
}

func runOutbox(t *testing.T, box *Outbox) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		assert.ErrorIs(t, box.Run(ctx), context.Canceled)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return cancel
}

func TestOutboxDeliversInOrderWithPace(t *testing.T) {
	rec := newRecorder(3)
	box := New(rec, Options{Pace: 20 * time.Millisecond})

	for i, text := range []string{"one", "two", "three"} {
		require.NoError(t, box.Send(context.Background(), domain.UserID(i+1), text))
	}
	runOutbox(t, box)

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages were not delivered")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.sent, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{rec.sent[0].text, rec.sent[1].text, rec.sent[2].text})
	assert.Equal(t, domain.UserID(3), rec.sent[2].to)
	assert.GreaterOrEqual(t, rec.sent[2].at.Sub(rec.sent[0].at), 40*time.Millisecond)
	assert.Zero(t, box.Pending())
}

func TestOutboxReportsFailuresAndContinues(t *testing.T) {
	blocked := errors.New("Forbidden: bot was blocked by the user")
	next := mocks.NewMockNotifier(t)
	next.EXPECT().Send(mock.Anything, domain.UserID(1), "first").Return(blocked).Once()
	next.EXPECT().Send(mock.Anything, domain.UserID(2), "second").Return(nil).Once()

	failures := make(chan error, 1)
	delivered := make(chan struct{})
	next.EXPECT().Send(mock.Anything, domain.UserID(3), "third").RunAndReturn(func(context.Context, domain.UserID, string) error {
		close(delivered)
		return nil
	}).Once()

	box := New(next, Options{SendTimeout: time.Second, OnFailure: func(err error) { failures <- err }})
	require.NoError(t, box.Send(context.Background(), 1, "first"))
	require.NoError(t, box.Send(context.Background(), 2, "second"))
	require.NoError(t, box.Send(context.Background(), 3, "third"))
	runOutbox(t, box)

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("queue stalled after a failure")
	}

	err := <-failures
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, blocked)
	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, domain.UserID(1), transportErr.Recipient)
}

func TestOutboxSendAfterStartWakesWorker(t *testing.T) {
	rec := newRecorder(1)
	box := New(rec, Options{})
	runOutbox(t, box)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, box.Send(context.Background(), 9, "late"))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not wake up")
	}
}

func TestOutboxRejectsCancelledSend(t *testing.T) {
	box := New(newRecorder(1), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, box.Send(ctx, 1, "never"), context.Canceled)
	assert.Zero(t, box.Pending())
}
