package session

import (
	"context"
	"time"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/config"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/repository"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
)

// Sweeper eagerly transitions stale sessions to their terminal states and
// deactivates links past their expiry. No request path waits on it; the
// same expiry is also checked lazily on every state-changing call.
type Sweeper struct {
	sessions repository.SessionRepository
	links    repository.LinkRepository
	cfg      *config.Config
	logger   *logger.Logger
}

// NewSweeper creates a sweeper over the session and link stores
func NewSweeper(
	sessions repository.SessionRepository,
	links repository.LinkRepository,
	cfg *config.Config,
	logger *logger.Logger,
) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		links:    links,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start runs the sweep loop until the context is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("Expiry sweeper started", "interval", s.cfg.SweepInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass
func (s *Sweeper) RunOnce(ctx context.Context) {
	now := time.Now()

	expired, err := s.sessions.ExpireStale(ctx, now)
	if err != nil {
		s.logger.Error("Failed to expire stale sessions", "error", err)
	} else if expired > 0 {
		s.logger.Info("Expired stale sessions", "count", expired)
	}

	abandoned, err := s.sessions.AbandonIdle(ctx, now.Add(-s.cfg.AbandonAfter))
	if err != nil {
		s.logger.Error("Failed to abandon idle sessions", "error", err)
	} else if abandoned > 0 {
		s.logger.Info("Abandoned idle sessions", "count", abandoned)
	}

	deactivated, err := s.links.DeactivateExpired(ctx, now)
	if err != nil {
		s.logger.Error("Failed to deactivate expired links", "error", err)
	} else if deactivated > 0 {
		s.logger.Info("Deactivated expired links", "count", deactivated)
	}
}
