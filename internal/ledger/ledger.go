// Package ledger is the durable memory of which devices have engaged with
// which links. It classifies visits as fresh or duplicate and owns the
// one-way crediting latch.
package ledger

import (
	"context"
	"time"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/config"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/repository"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
)

// Ledger defines the device fingerprint ledger operations
type Ledger interface {
	// Classify decides whether a device's visit to a link is fresh or a
	// duplicate. The verdict is advisory; the latch is the source of truth.
	Classify(ctx context.Context, link *domain.Link, deviceHash string, snapshot domain.DeviceSnapshot) (domain.Classification, error)

	// RecordAccess upserts the device/link row, bumping access_count and
	// last-seen fields. Called on every session open, duplicates included.
	RecordAccess(ctx context.Context, link *domain.Link, deviceHash string, snapshot domain.DeviceSnapshot) error

	// LatchEarningsCredited performs the one-way credited transition.
	// Returns true only for the single caller that won the latch.
	LatchEarningsCredited(ctx context.Context, linkID uint, deviceHash string, amount float64) (bool, error)
}

// deviceLedger implements the Ledger interface
type deviceLedger struct {
	devices  repository.DeviceAccessRepository
	sessions repository.SessionRepository
	cfg      *config.Config
	logger   *logger.Logger
}

// NewLedger creates a device ledger with dependencies injected
func NewLedger(
	devices repository.DeviceAccessRepository,
	sessions repository.SessionRepository,
	cfg *config.Config,
	logger *logger.Logger,
) Ledger {
	return &deviceLedger{
		devices:  devices,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Classify looks up the device's history with the link. A device whose
// earnings were already credited is a duplicate. When the IP correlation
// heuristic is enabled, a matching fingerprint arriving from the same IP
// under a different device hash is flagged too.
func (l *deviceLedger) Classify(ctx context.Context, link *domain.Link, deviceHash string, snapshot domain.DeviceSnapshot) (domain.Classification, error) {
	access, err := l.devices.FindByDeviceAndLink(ctx, deviceHash, link.ID)
	if err != nil {
		return domain.ClassFresh, err
	}

	if access != nil && access.EarningsCredited {
		l.logger.Info("Device classified duplicate",
			"link_id", link.ID,
			"device_hash", deviceHash,
			"access_count", access.AccessCount,
		)
		return domain.ClassDuplicate, nil
	}

	// Policy tunable: same IP, matching fingerprint, different device hash
	// usually means a spoofed device id on a second tab or script.
	if l.cfg.IPFingerprintHeuristic && snapshot.IP != "" && snapshot.Fingerprint != "" {
		shared, err := l.sessions.HasActiveFromIP(ctx, link.ID, snapshot.IP, snapshot.Fingerprint, deviceHash, time.Now())
		if err != nil {
			return domain.ClassFresh, err
		}
		if shared {
			l.logger.Info("Device classified duplicate by IP correlation",
				"link_id", link.ID,
				"device_hash", deviceHash,
				"ip", snapshot.IP,
			)
			return domain.ClassDuplicate, nil
		}
	}

	return domain.ClassFresh, nil
}

// RecordAccess upserts the device/link ledger row for this visit
func (l *deviceLedger) RecordAccess(ctx context.Context, link *domain.Link, deviceHash string, snapshot domain.DeviceSnapshot) error {
	now := time.Now()
	linkID := link.ID

	access := &domain.DeviceLinkAccess{
		LinkID:       &linkID,
		DeviceHash:   deviceHash,
		DeviceID:     snapshot.DeviceID,
		IPAddress:    snapshot.IP,
		UserAgent:    snapshot.UserAgent,
		Fingerprint:  snapshot.Fingerprint,
		AccessCount:  1,
		LastAccessAt: now,
		LastIP:       snapshot.IP,
	}

	if err := l.devices.Upsert(ctx, access); err != nil {
		l.logger.Error("Failed to record device access",
			"error", err,
			"link_id", link.ID,
			"device_hash", deviceHash,
		)
		return err
	}

	return nil
}

// LatchEarningsCredited delegates to the storage-level conditional update
func (l *deviceLedger) LatchEarningsCredited(ctx context.Context, linkID uint, deviceHash string, amount float64) (bool, error) {
	latched, err := l.devices.LatchEarningsCredited(ctx, deviceHash, linkID, amount)
	if err != nil {
		return false, err
	}

	if latched {
		l.logger.Info("Earnings latch acquired",
			"link_id", linkID,
			"device_hash", deviceHash,
			"amount", amount,
		)
	}

	return latched, nil
}
