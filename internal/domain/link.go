package domain

import (
	"time"
)

// Link represents a monetizable short URL mapping
// This is the core domain entity that sessions and earnings hang off
type Link struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AccountID       uint       `gorm:"index;not null" json:"account_id"`
	ShortCode       string     `gorm:"uniqueIndex;not null;size:12" json:"short_code"`
	TargetURL       string     `gorm:"not null;type:text" json:"target_url"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ExpiresAt       *time.Time `gorm:"index" json:"expires_at,omitempty"` // Nullable for non-expiring links
	IsActive        bool       `gorm:"default:true;index" json:"is_active"`
	DirectMode      bool       `gorm:"default:false" json:"direct_mode"` // Skip step gating, redirect immediately
	StepCount       int        `gorm:"default:3" json:"step_count"`
	PreviewDuration int        `gorm:"default:10" json:"preview_duration"` // Minimum dwell per step, seconds
	EarningRate     float64    `gorm:"default:0" json:"earning_rate"`      // Flat payout per credited session
	ClickCount      int64      `gorm:"default:0" json:"click_count"`
	LastClickedAt   *time.Time `json:"last_clicked_at,omitempty"`
	CreatorIP       string     `gorm:"size:45" json:"-"` // IPv6 max length, not exposed in JSON
	CustomAlias     bool       `gorm:"default:false" json:"custom_alias"`
}

// TableName specifies the table name for GORM
func (Link) TableName() string {
	return "links"
}

// IsExpired checks if the link has passed its expiry timestamp
func (l *Link) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false // Never expires
	}
	return time.Now().After(*l.ExpiresAt)
}

// IsEligible reports whether the link may open new sessions at the given time
func (l *Link) IsEligible(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return false
	}
	return true
}

// StepDuration returns the configured per-step dwell requirement
func (l *Link) StepDuration() time.Duration {
	return time.Duration(l.PreviewDuration) * time.Second
}

// LinkStats represents aggregated engagement statistics for a link
type LinkStats struct {
	ShortCode        string     `json:"short_code"`
	TargetURL        string     `json:"target_url"`
	TotalClicks      int64      `json:"total_clicks"`
	CreditedSessions int64      `json:"credited_sessions"`
	TotalEarnings    float64    `json:"total_earnings"`
	CreatedAt        time.Time  `json:"created_at"`
	LastClickedAt    *time.Time `json:"last_clicked_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	IsActive         bool       `json:"is_active"`
}

// CreateLinkRequest represents the request payload for registering a link
type CreateLinkRequest struct {
	URL             string  `json:"url" binding:"required"`
	AccountID       uint    `json:"account_id" binding:"required"`
	CustomAlias     string  `json:"custom_alias,omitempty"`
	ExpiryDays      int     `json:"expiry_days,omitempty"`
	DirectMode      bool    `json:"direct_mode,omitempty"`
	StepCount       int     `json:"step_count,omitempty"`
	PreviewDuration int     `json:"preview_duration,omitempty"` // Seconds per step
	EarningRate     float64 `json:"earning_rate,omitempty"`
}

// CreateLinkResponse represents the response after registering a link
type CreateLinkResponse struct {
	ShortCode       string     `json:"short_code"`
	ShortURL        string     `json:"short_url"`
	TargetURL       string     `json:"target_url"`
	DirectMode      bool       `json:"direct_mode"`
	StepCount       int        `json:"step_count"`
	PreviewDuration int        `json:"preview_duration"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// ResolveResponse is the public view of a link returned by the resolve endpoint
type ResolveResponse struct {
	ShortCode       string `json:"short_code"`
	TargetURL       string `json:"target_url,omitempty"` // Only populated for direct-mode links
	DirectMode      bool   `json:"direct_mode"`
	StepCount       int    `json:"step_count"`
	PreviewDuration int    `json:"preview_duration"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
