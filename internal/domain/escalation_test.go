package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name        string
		missed      uint
		supervisors int
		want        Level
	}{
		{name: "first prompt", missed: 0, supervisors: 2, want: LevelPrompt},
		{name: "first prompt unsupervised", missed: 0, supervisors: 0, want: LevelPrompt},
		{name: "reminder", missed: 1, supervisors: 1, want: LevelReminder},
		{name: "last reminder", missed: 2, supervisors: 0, want: LevelReminder},
		{name: "alert at threshold", missed: 3, supervisors: 1, want: LevelAlert},
		{name: "alert keeps repeating", missed: 40, supervisors: 3, want: LevelAlert},
		{name: "nobody to alert", missed: 3, supervisors: 0, want: LevelUnsupervised},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFor(tt.missed, tt.supervisors, 3))
		})
	}
}

func TestParseUserID(t *testing.T) {
	id, err := ParseUserID("5111001928")
	assert.NoError(t, err)
	assert.Equal(t, UserID(5111001928), id)

	id, err = ParseUserID("-1001")
	assert.NoError(t, err)
	assert.Equal(t, UserID(-1001), id)

	_, err = ParseUserID("abc")
	assert.Error(t, err)
}
