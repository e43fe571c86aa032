package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepGate_Satisfied(t *testing.T) {
	gate := StepGate{}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		elapsed  time.Duration
		required time.Duration
		want     bool
	}{
		{"instant request rejected", 0, 5 * time.Second, false},
		{"one second short rejected", 4 * time.Second, 5 * time.Second, false},
		{"exact boundary accepted", 5 * time.Second, 5 * time.Second, true},
		{"well past accepted", time.Minute, 5 * time.Second, true},
		{"zero requirement always satisfied", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := start.Add(tt.elapsed)
			assert.Equal(t, tt.want, gate.Satisfied(start, tt.required, now))
		})
	}
}

func TestStepGate_Remaining(t *testing.T) {
	gate := StepGate{}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 5*time.Second, gate.Remaining(start, 5*time.Second, start))
	assert.Equal(t, 2*time.Second, gate.Remaining(start, 5*time.Second, start.Add(3*time.Second)))
	assert.Equal(t, time.Duration(0), gate.Remaining(start, 5*time.Second, start.Add(10*time.Second)))
}

func TestStepGate_ClockAnchoredToServerTime(t *testing.T) {
	gate := StepGate{}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Whatever elapsed time a client claims, only the stored server
	// timestamp decides. A request arriving immediately is rejected.
	assert.False(t, gate.Satisfied(start, 5*time.Second, start.Add(time.Millisecond)))
}
