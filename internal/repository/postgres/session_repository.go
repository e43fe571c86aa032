package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/repository"
)

// sessionRepository implements the SessionRepository interface for PostgreSQL
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a freshly opened session
func (r *sessionRepository) Create(ctx context.Context, session *domain.ClickSession) error {
	result := r.db.WithContext(ctx).Create(session)
	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}
	return nil
}

// FindByToken retrieves a session by its opaque token
func (r *sessionRepository) FindByToken(ctx context.Context, token string) (*domain.ClickSession, error) {
	var session domain.ClickSession

	result := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&session)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &session, nil
}

// Update persists the full session row
func (r *sessionRepository) Update(ctx context.Context, session *domain.ClickSession) error {
	result := r.db.WithContext(ctx).Save(session)
	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

// MarkExpired transitions one session to expired if still non-terminal.
// The status guard keeps a late call from clobbering a completed session.
func (r *sessionRepository) MarkExpired(ctx context.Context, token string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ClickSession{}).
		Where("token = ? AND status IN ?", token,
			[]domain.SessionStatus{domain.SessionPending, domain.SessionInProgress}).
		Update("status", domain.SessionExpired)

	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}

	return nil
}

// ExpireStale transitions every non-terminal session past its expiry
func (r *sessionRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.ClickSession{}).
		Where("status IN ? AND expires_at < ?",
			[]domain.SessionStatus{domain.SessionPending, domain.SessionInProgress}, now).
		Update("status", domain.SessionExpired)

	if result.Error != nil {
		return 0, domain.NewInternalError(result.Error)
	}

	return result.RowsAffected, nil
}

// AbandonIdle transitions non-terminal sessions with no activity since the
// cutoff to abandoned. A soft terminal reached only by this sweep.
func (r *sessionRepository) AbandonIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.ClickSession{}).
		Where("status IN ? AND last_activity_at < ?",
			[]domain.SessionStatus{domain.SessionPending, domain.SessionInProgress}, cutoff).
		Update("status", domain.SessionAbandoned)

	if result.Error != nil {
		return 0, domain.NewInternalError(result.Error)
	}

	return result.RowsAffected, nil
}

// HasActiveFromIP reports whether an unexpired session exists for the link
// from the same IP with a matching fingerprint but a different device hash
func (r *sessionRepository) HasActiveFromIP(ctx context.Context, linkID uint, ip, fingerprint, excludeDeviceHash string, now time.Time) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).
		Model(&domain.ClickSession{}).
		Where("link_id = ? AND ip_address = ? AND fingerprint = ? AND device_hash <> ? AND expires_at > ? AND status IN ?",
			linkID, ip, fingerprint, excludeDeviceHash, now,
			[]domain.SessionStatus{domain.SessionPending, domain.SessionInProgress}).
		Count(&count)

	if result.Error != nil {
		return false, domain.NewInternalError(result.Error)
	}

	return count > 0, nil
}
