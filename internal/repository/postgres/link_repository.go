package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/repository"
)

// linkRepository implements the LinkRepository interface for PostgreSQL
type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new PostgreSQL link repository
func NewLinkRepository(db *gorm.DB) repository.LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts a new link record into the database
func (r *linkRepository) Create(ctx context.Context, link *domain.Link) error {
	result := r.db.WithContext(ctx).Create(link)
	if result.Error != nil {
		// Check for unique constraint violation (duplicate short code)
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrShortCodeTaken
		}
		return domain.NewInternalError(result.Error)
	}
	return nil
}

// FindByShortCode retrieves a link by its short code.
// Inactive links are returned too; eligibility is the registry's call.
func (r *linkRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Link, error) {
	var link domain.Link

	result := r.db.WithContext(ctx).
		Where("short_code = ?", shortCode).
		First(&link)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &link, nil
}

// FindByID retrieves a link by primary key
func (r *linkRepository) FindByID(ctx context.Context, id uint) (*domain.Link, error) {
	var link domain.Link

	result := r.db.WithContext(ctx).First(&link, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &link, nil
}

// ExistsByShortCode checks if a short code exists without loading the record
func (r *linkRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).
		Model(&domain.Link{}).
		Where("short_code = ?", shortCode).
		Count(&count)

	if result.Error != nil {
		return false, domain.NewInternalError(result.Error)
	}

	return count > 0, nil
}

// Deactivate soft-deletes a link by setting is_active to false.
// The row is preserved because earning history references it.
func (r *linkRepository) Deactivate(ctx context.Context, shortCode string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Link{}).
		Where("short_code = ? AND is_active = ?", shortCode, true).
		Update("is_active", false)

	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrLinkNotFound
	}

	return nil
}

// RecordClick atomically increments the click counter.
// Uses a SQL-level increment to avoid a SELECT-then-UPDATE race.
func (r *linkRepository) RecordClick(ctx context.Context, linkID uint) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&domain.Link{}).
		Where("id = ? AND is_active = ?", linkID, true).
		Updates(map[string]interface{}{
			"click_count":     gorm.Expr("click_count + ?", 1),
			"last_clicked_at": now,
		})

	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrLinkNotFound
	}

	return nil
}

// DeactivateExpired soft-deletes all links past their expiry date.
// Called periodically by the sweep job.
func (r *linkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Link{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		Update("is_active", false)

	if result.Error != nil {
		return 0, domain.NewInternalError(result.Error)
	}

	return result.RowsAffected, nil
}

// GetStats retrieves aggregate engagement statistics for a link.
// Credited-session and earnings totals come from the device ledger so they
// reflect what was actually paid, not what sessions attempted.
func (r *linkRepository) GetStats(ctx context.Context, shortCode string) (*domain.LinkStats, error) {
	var link domain.Link

	result := r.db.WithContext(ctx).
		Where("short_code = ?", shortCode).
		First(&link)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	var agg struct {
		CreditedSessions int64
		TotalEarnings    float64
	}

	result = r.db.WithContext(ctx).
		Model(&domain.DeviceLinkAccess{}).
		Select("COUNT(*) AS credited_sessions, COALESCE(SUM(earnings_amount), 0) AS total_earnings").
		Where("link_id = ? AND earnings_credited = ?", link.ID, true).
		Scan(&agg)

	if result.Error != nil {
		return nil, domain.NewInternalError(result.Error)
	}

	return &domain.LinkStats{
		ShortCode:        link.ShortCode,
		TargetURL:        link.TargetURL,
		TotalClicks:      link.ClickCount,
		CreditedSessions: agg.CreditedSessions,
		TotalEarnings:    agg.TotalEarnings,
		CreatedAt:        link.CreatedAt,
		LastClickedAt:    link.LastClickedAt,
		ExpiresAt:        link.ExpiresAt,
		IsActive:         link.IsActive,
	}, nil
}
