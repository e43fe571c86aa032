package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DeviceLinkAccess is the durable cross-session memory of a device's history
// with a specific link. At most one row exists per (device_hash, link_id) pair;
// EarningsCredited is a one-way latch and is never reset once set.
type DeviceLinkAccess struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	LinkID     *uint  `gorm:"uniqueIndex:ux_device_link" json:"link_id,omitempty"` // Nullable for link-agnostic tracking
	DeviceHash string `gorm:"size:64;not null;uniqueIndex:ux_device_link" json:"device_hash"`
	DeviceID   string `gorm:"size:128" json:"device_id"` // Raw client-supplied id, untrusted hint only

	IPAddress   string `gorm:"size:45" json:"-"`
	UserAgent   string `gorm:"size:512" json:"-"`
	Fingerprint string `gorm:"size:128" json:"-"`

	EarningsCredited bool    `gorm:"default:false" json:"earnings_credited"`
	EarningsAmount   float64 `gorm:"default:0" json:"earnings_amount"`
	AccessCount      int64   `gorm:"default:0" json:"access_count"`

	FirstAccessAt time.Time  `gorm:"autoCreateTime" json:"first_access_at"`
	LastAccessAt  time.Time  `json:"last_access_at"`
	LastIP        string     `gorm:"size:45" json:"-"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (DeviceLinkAccess) TableName() string {
	return "device_link_accesses"
}

// DeviceSnapshot is the validated device identity payload captured when a
// session opens. Every field except DeviceID is optional; the canonical dedup
// key is the derived hash, never the raw id.
type DeviceSnapshot struct {
	DeviceID    string
	Fingerprint string
	IP          string
	UserAgent   string
	Referrer    string
	Country     string
}

// Hash derives the stable device hash used as the dedup key.
// SHA-256 over the client device id and fingerprint keeps the raw id out of
// the key space while staying stable across sessions from the same device.
func (s DeviceSnapshot) Hash() string {
	h := sha256.New()
	h.Write([]byte(s.DeviceID))
	h.Write([]byte{0})
	h.Write([]byte(s.Fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Classification is the ledger's verdict on a device/link pair
type Classification int

const (
	ClassFresh Classification = iota
	ClassDuplicate
)

// String returns a log-friendly name for the classification
func (c Classification) String() string {
	if c == ClassDuplicate {
		return "duplicate"
	}
	return "fresh"
}
