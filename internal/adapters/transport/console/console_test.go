package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bnema/lonewatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want ports.Inbound
		skip bool
	}{
		{line: "100 /begin", want: ports.Inbound{Sender: 100, Text: "/begin"}},
		{line: "100 /start | Wendy Worker", want: ports.Inbound{Sender: 100, Text: "/start", DisplayName: "Wendy Worker"}},
		{line: "  -5 /okay  ", want: ports.Inbound{Sender: -5, Text: "/okay"}},
		{line: "100 !removed", want: ports.Inbound{Sender: 100, Removed: true}},
		{line: "", skip: true},
		{line: "# comment", skip: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, skip, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.skip, skip)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineRejectsMalformed(t *testing.T) {
	for _, line := range []string{"alice /begin", "100", "100   | Name"} {
		t.Run(line, func(t *testing.T) {
			_, _, err := ParseLine(line)
			assert.ErrorIs(t, err, ErrMalformedLine)
		})
	}
}

func TestSourceRunStopsAtEOF(t *testing.T) {
	input := strings.NewReader("100 /start | Wendy\nnot a line\n\n200 /supervise\n")
	var events []ports.Inbound

	err := NewSource(input, nil).Run(context.Background(), func(_ context.Context, event ports.Inbound) {
		events = append(events, event)
	})

	require.NoError(t, err)
	assert.Equal(t, []ports.Inbound{
		{Sender: 100, Text: "/start", DisplayName: "Wendy"},
		{Sender: 200, Text: "/supervise"},
	}, events)
}

func TestNotifierWritesIndentedLines(t *testing.T) {
	var out bytes.Buffer
	notifier := NewNotifier(&out)

	require.NoError(t, notifier.Send(context.Background(), 100, "Users:\nSam (200)"))

	assert.Equal(t, "-> 100: Users:\n   Sam (200)\n", out.String())
}
