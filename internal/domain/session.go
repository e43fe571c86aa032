package domain

import (
	"strconv"
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a click session
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"     // Created, zero steps done
	SessionInProgress SessionStatus = "in_progress" // At least one step done
	SessionCompleted  SessionStatus = "completed"   // All steps done, dwell satisfied
	SessionExpired    SessionStatus = "expired"     // Timed out before completion
	SessionAbandoned  SessionStatus = "abandoned"   // Idle past the abandonment cutoff, swept
)

// IsTerminal reports whether no further mutation is accepted in this state
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionExpired || s == SessionAbandoned
}

// ClickSession represents one visitor's attempt to engage with a link.
// The server-side timestamps are the only timing source of truth; nothing
// the client reports about elapsed time is trusted.
type ClickSession struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	LinkID           uint          `gorm:"index;not null" json:"link_id"`
	Token            string        `gorm:"uniqueIndex;not null;size:64" json:"token"`
	Status           SessionStatus `gorm:"size:16;index;default:'pending'" json:"status"`
	CurrentStep      int           `gorm:"default:0" json:"current_step"`
	CompletedSteps   string        `gorm:"size:255" json:"completed_steps"` // Comma-joined ascending indices
	TimeSpentSeconds int           `gorm:"default:0" json:"time_spent_seconds"`
	StepStartedAt    time.Time     `json:"step_started_at"` // When the current step became current
	StartedAt        time.Time     `gorm:"autoCreateTime" json:"started_at"`
	LastActivityAt   time.Time     `json:"last_activity_at"`
	ExpiresAt        time.Time     `gorm:"index" json:"expires_at"`

	EarningsAmount    float64 `gorm:"default:0" json:"earnings_amount"`
	IsDuplicateAccess bool    `gorm:"default:false" json:"is_duplicate_access"`
	RequirementsMet   bool    `gorm:"default:false" json:"requirements_met"`

	// Device snapshot captured at open time
	DeviceHash  string `gorm:"size:64;index" json:"device_hash"`
	IPAddress   string `gorm:"size:45" json:"-"`
	UserAgent   string `gorm:"size:512" json:"-"`
	Fingerprint string `gorm:"size:128" json:"-"`
	Referrer    string `gorm:"size:512" json:"-"`
	Country     string `gorm:"size:2" json:"-"`
}

// TableName specifies the table name for GORM
func (ClickSession) TableName() string {
	return "click_sessions"
}

// IsExpiredAt checks the session against its expiry timestamp
func (s *ClickSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// maxAccrualGap caps how much wall time a single activity event may add to
// time_spent_seconds. Long silent gaps count as absence, not engagement.
const maxAccrualGap = 60 * time.Second

// Touch accrues server-observed activity time and stamps last activity
func (s *ClickSession) Touch(now time.Time) {
	gap := now.Sub(s.LastActivityAt)
	if gap > maxAccrualGap {
		gap = maxAccrualGap
	}
	if gap > 0 {
		s.TimeSpentSeconds += int(gap.Seconds())
	}
	s.LastActivityAt = now
}

// MarkStepComplete appends a step index and advances the cursor.
// Callers must have validated ordering and dwell already.
func (s *ClickSession) MarkStepComplete(stepIndex int, now time.Time) {
	if s.CompletedSteps == "" {
		s.CompletedSteps = strconv.Itoa(stepIndex)
	} else {
		s.CompletedSteps += "," + strconv.Itoa(stepIndex)
	}
	s.CurrentStep = stepIndex + 1
	s.Touch(now)
	s.StepStartedAt = now
	s.Status = SessionInProgress
}

// CompletedStepIndices parses the stored step set back into indices
func (s *ClickSession) CompletedStepIndices() []int {
	if s.CompletedSteps == "" {
		return nil
	}
	parts := strings.Split(s.CompletedSteps, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// OpenSessionRequest is the payload for opening a gated session
type OpenSessionRequest struct {
	ShortCode   string `json:"short_code" binding:"required"`
	DeviceID    string `json:"device_id" binding:"required"`
	Fingerprint string `json:"fingerprint,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	Country     string `json:"country,omitempty"`
}

// OpenSessionResponse tells the client what it must do to complete the session
type OpenSessionResponse struct {
	SessionToken    string    `json:"session_token"`
	RequiredSteps   int       `json:"required_steps"`
	StepDurations   []int     `json:"step_durations"` // Seconds per step, index-aligned
	ExpiresAt       time.Time `json:"expires_at"`
	DuplicateAccess bool      `json:"duplicate_access"`
}

// AdvanceStepRequest is the payload for completing one gated step
type AdvanceStepRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
	StepIndex    *int   `json:"step_index" binding:"required"` // Pointer so index 0 binds
}

// AdvanceStepResponse reports progress after a successful step advance
type AdvanceStepResponse struct {
	Accepted    bool `json:"accepted"`
	CurrentStep int  `json:"current_step"`
	StepsLeft   int  `json:"steps_left"`
}

// HeartbeatRequest is the payload for the session keepalive
type HeartbeatRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// CompleteSessionRequest is the payload for finishing a session
type CompleteSessionRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// CompleteSessionResponse carries the crediting outcome
type CompleteSessionResponse struct {
	CreditedAmount float64 `json:"credited_amount"`
	Duplicate      bool    `json:"duplicate"`
	TargetURL      string  `json:"target_url"`
}
