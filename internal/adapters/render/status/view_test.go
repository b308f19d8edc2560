package status

import (
	"testing"
	"time"

	"github.com/bnema/lonewatch/internal/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wendy = application.UserStatus{ID: 100, Name: "Wendy Worker"}
	sam   = application.UserStatus{ID: 200, Name: "Sam", Supervisor: true}
	sue   = application.UserStatus{ID: 300, Name: "Sue", Supervisor: true}
)

func TestRenderSupervisedSession(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	output, err := Render(application.StatusReport{
		GeneratedAt: now,
		Sessions: []application.SessionStatus{
			{
				Owner:       wendy,
				LastAck:     now.Add(-44 * time.Minute),
				Silence:     44 * time.Minute,
				Missed:      2,
				NextLevel:   "reminder",
				NextPrompt:  now.Add(2 * time.Minute),
				Supervisors: []application.UserStatus{sam, sue},
			},
		},
		Supervisors: []application.UserStatus{sam, sue},
		Users:       []application.UserStatus{wendy, sam, sue},
	}, RenderOptions{Now: now, AlertThreshold: 3})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 1  supervisors: 2  users: 3")
	assert.Contains(t, output, "Wendy Worker (100)")
	assert.Contains(t, output, "silent for 44m (last ack 09:16)")
	assert.Contains(t, output, "2/3")
	assert.Contains(t, output, "next: reminder in 2m (10:02)")
	assert.Contains(t, output, "supervisors: Sam, Sue")
	assert.NotContains(t, output, "[alerting]")
}

func TestRenderMarksAlertingAndUnsupervised(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	output, err := Render(application.StatusReport{
		Sessions: []application.SessionStatus{
			{
				Owner:      wendy,
				LastAck:    now.Add(-26 * time.Hour),
				Silence:    26 * time.Hour,
				Missed:     9,
				NextLevel:  "unsupervised",
				NextPrompt: now,
			},
		},
	}, RenderOptions{Now: now, AlertThreshold: 3})

	require.NoError(t, err)
	assert.Contains(t, output, "silent for 26h00m (last ack 08:00 on 01 Mar)")
	assert.Contains(t, output, "[alerting]")
	assert.Contains(t, output, "next: unsupervised due now")
	assert.Contains(t, output, "no one supervising")
	assert.Contains(t, output, "No supervisors registered.")
}

func TestRenderEmptyReport(t *testing.T) {
	output, err := Render(application.StatusReport{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 0  supervisors: 0  users: 0")
	assert.Contains(t, output, "No active monitoring sessions.")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "under a minute", formatDuration(20*time.Second))
	assert.Equal(t, "3m", formatDuration(3*time.Minute))
	assert.Equal(t, "1h05m", formatDuration(65*time.Minute))
}
