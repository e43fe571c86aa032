package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkStepComplete_TracksOrderedSet(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := &ClickSession{
		Status:         SessionPending,
		StepStartedAt:  start,
		LastActivityAt: start,
	}

	session.MarkStepComplete(0, start.Add(5*time.Second))
	session.MarkStepComplete(1, start.Add(10*time.Second))
	session.MarkStepComplete(2, start.Add(15*time.Second))

	assert.Equal(t, 3, session.CurrentStep)
	assert.Equal(t, []int{0, 1, 2}, session.CompletedStepIndices())
	assert.Equal(t, SessionInProgress, session.Status)
	assert.Equal(t, 15, session.TimeSpentSeconds)
}

func TestTouch_CapsSilentGaps(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := &ClickSession{LastActivityAt: start}

	// A ten minute silence counts as one capped interval, not engagement
	session.Touch(start.Add(10 * time.Minute))

	assert.Equal(t, 60, session.TimeSpentSeconds)
	assert.Equal(t, start.Add(10*time.Minute), session.LastActivityAt)
}

func TestSessionStatus_Terminal(t *testing.T) {
	assert.False(t, SessionPending.IsTerminal())
	assert.False(t, SessionInProgress.IsTerminal())
	assert.True(t, SessionCompleted.IsTerminal())
	assert.True(t, SessionExpired.IsTerminal())
	assert.True(t, SessionAbandoned.IsTerminal())
}

func TestIsExpiredAt(t *testing.T) {
	now := time.Now()
	session := &ClickSession{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, session.IsExpiredAt(now))
	assert.True(t, session.IsExpiredAt(now.Add(2*time.Minute)))
}

func TestDeviceSnapshot_HashStableAndDistinct(t *testing.T) {
	a := DeviceSnapshot{DeviceID: "device-1", Fingerprint: "fp-1"}
	b := DeviceSnapshot{DeviceID: "device-1", Fingerprint: "fp-1"}
	c := DeviceSnapshot{DeviceID: "device-2", Fingerprint: "fp-1"}

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)

	// IP and user agent are volatile and must not shift the dedup key
	d := DeviceSnapshot{DeviceID: "device-1", Fingerprint: "fp-1", IP: "10.0.0.9", UserAgent: "other"}
	assert.Equal(t, a.Hash(), d.Hash())
}

func TestLink_Eligibility(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		link Link
		want bool
	}{
		{"active without expiry", Link{IsActive: true}, true},
		{"active before expiry", Link{IsActive: true, ExpiresAt: &future}, true},
		{"active past expiry", Link{IsActive: true, ExpiresAt: &past}, false},
		{"inactive", Link{IsActive: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.link.IsEligible(now))
		})
	}
}
