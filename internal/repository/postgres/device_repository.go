package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/repository"
)

// deviceAccessRepository implements DeviceAccessRepository for PostgreSQL
type deviceAccessRepository struct {
	db *gorm.DB
}

// NewDeviceAccessRepository creates a new PostgreSQL device ledger repository
func NewDeviceAccessRepository(db *gorm.DB) repository.DeviceAccessRepository {
	return &deviceAccessRepository{db: db}
}

// FindByDeviceAndLink retrieves the ledger row for a (device_hash, link) pair.
// A nil result with nil error means the device has no history with this link.
func (r *deviceAccessRepository) FindByDeviceAndLink(ctx context.Context, deviceHash string, linkID uint) (*domain.DeviceLinkAccess, error) {
	var access domain.DeviceLinkAccess

	result := r.db.WithContext(ctx).
		Where("device_hash = ? AND link_id = ?", deviceHash, linkID).
		First(&access)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &access, nil
}

// Upsert creates the ledger row on first contact or bumps access_count and
// last-seen fields on repeat contact. Single statement, no read-modify-write.
func (r *deviceAccessRepository) Upsert(ctx context.Context, access *domain.DeviceLinkAccess) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "device_hash"}, {Name: "link_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"access_count":   gorm.Expr("device_link_accesses.access_count + 1"),
				"last_access_at": access.LastAccessAt,
				"last_ip":        access.LastIP,
				"ip_address":     access.IPAddress,
				"user_agent":     access.UserAgent,
				"fingerprint":    access.Fingerprint,
			}),
		}).
		Create(access)

	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}

	return nil
}

// LatchEarningsCredited flips earnings_credited from false to true in a single
// conditional UPDATE. RowsAffected tells the caller whether it won the latch;
// a racing second caller matches zero rows and is never double-credited.
func (r *deviceAccessRepository) LatchEarningsCredited(ctx context.Context, deviceHash string, linkID uint, amount float64) (bool, error) {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&domain.DeviceLinkAccess{}).
		Where("device_hash = ? AND link_id = ? AND earnings_credited = ?", deviceHash, linkID, false).
		Updates(map[string]interface{}{
			"earnings_credited": true,
			"earnings_amount":   gorm.Expr("earnings_amount + ?", amount),
			"completed_at":      now,
		})

	if result.Error != nil {
		return false, domain.NewInternalError(result.Error)
	}

	return result.RowsAffected > 0, nil
}
