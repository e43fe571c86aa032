package repository

import (
	"context"
	"time"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
)

// LinkRepository defines the contract for link data access.
// This interface allows swapping implementations without touching business
// logic - following Dependency Inversion Principle.
type LinkRepository interface {
	// Create stores a new link record
	Create(ctx context.Context, link *domain.Link) error

	// FindByShortCode retrieves a link by its short code regardless of
	// active state so callers can distinguish inactive from missing
	FindByShortCode(ctx context.Context, shortCode string) (*domain.Link, error)

	// FindByID retrieves a link by primary key
	FindByID(ctx context.Context, id uint) (*domain.Link, error)

	// ExistsByShortCode checks if a short code exists without fetching data
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)

	// Deactivate soft-deletes a link by clearing is_active
	Deactivate(ctx context.Context, shortCode string) error

	// RecordClick atomically increments click_count and stamps last_clicked_at.
	// This prevents race conditions with concurrent visits.
	RecordClick(ctx context.Context, linkID uint) error

	// DeactivateExpired soft-deletes all links past their expiry (sweep job)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// GetStats retrieves aggregate engagement statistics for a link
	GetStats(ctx context.Context, shortCode string) (*domain.LinkStats, error)
}

// SessionRepository defines the contract for click-session data access
type SessionRepository interface {
	// Create stores a freshly opened session
	Create(ctx context.Context, session *domain.ClickSession) error

	// FindByToken retrieves a session by its opaque token
	FindByToken(ctx context.Context, token string) (*domain.ClickSession, error)

	// Update persists step progress and crediting outcome
	Update(ctx context.Context, session *domain.ClickSession) error

	// MarkExpired transitions a single session to expired if it is still
	// in a non-terminal state (lazy expiry path)
	MarkExpired(ctx context.Context, token string) error

	// ExpireStale transitions every non-terminal session past its expiry
	// to expired (eager sweep path); returns the number of rows touched
	ExpireStale(ctx context.Context, now time.Time) (int64, error)

	// AbandonIdle transitions non-terminal sessions with no activity since
	// the cutoff to abandoned
	AbandonIdle(ctx context.Context, cutoff time.Time) (int64, error)

	// HasActiveFromIP reports whether an unexpired session exists for the
	// link from the given IP with a matching fingerprint but a different
	// device hash. Used by the ledger's IP correlation heuristic.
	HasActiveFromIP(ctx context.Context, linkID uint, ip, fingerprint, excludeDeviceHash string, now time.Time) (bool, error)
}

// DeviceAccessRepository defines the contract for the device fingerprint ledger
type DeviceAccessRepository interface {
	// FindByDeviceAndLink retrieves the row for a (device_hash, link) pair.
	// Returns (nil, nil) when the device has no history with the link.
	FindByDeviceAndLink(ctx context.Context, deviceHash string, linkID uint) (*domain.DeviceLinkAccess, error)

	// Upsert creates the row on first contact or increments access_count
	// and refreshes last-seen fields on repeat contact
	Upsert(ctx context.Context, access *domain.DeviceLinkAccess) error

	// LatchEarningsCredited atomically flips earnings_credited from false to
	// true and adds the credited amount. Returns true only for the one caller
	// that performed the transition; false means the latch was already set.
	LatchEarningsCredited(ctx context.Context, deviceHash string, linkID uint, amount float64) (bool, error)
}
