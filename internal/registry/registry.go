// Package registry owns link records: short-code resolution, click counters
// and activation state. It is the entry point of every visit.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/cache"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/config"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/repository"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/shortener"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/validator"
)

// Registry defines the link registry operations
type Registry interface {
	// CreateLink registers a new monetizable short link
	CreateLink(ctx context.Context, req *domain.CreateLinkRequest, clientIP string) (*domain.CreateLinkResponse, error)

	// Resolve maps a short code to its link record. Returns ErrLinkNotFound,
	// ErrLinkExpired or ErrLinkInactive for unavailable codes. Read-only.
	Resolve(ctx context.Context, shortCode string) (*domain.Link, error)

	// RecordClick bumps the link's click counter; called once per visit
	RecordClick(ctx context.Context, linkID uint) error

	// GetLinkInfo returns the full link record for management surfaces
	GetLinkInfo(ctx context.Context, shortCode string) (*domain.Link, error)

	// DeactivateLink soft-deletes a link and drops it from cache
	DeactivateLink(ctx context.Context, shortCode string) error

	// GetStats returns aggregate engagement statistics
	GetStats(ctx context.Context, shortCode string) (*domain.LinkStats, error)
}

// linkRegistry implements the Registry interface
type linkRegistry struct {
	repo      repository.LinkRepository
	cache     cache.Cache
	cfg       *config.Config
	logger    *logger.Logger
	generator *shortener.CodeGenerator
}

// NewRegistry creates a new link registry with dependencies injected
func NewRegistry(
	repo repository.LinkRepository,
	cache cache.Cache,
	cfg *config.Config,
	logger *logger.Logger,
) Registry {
	return &linkRegistry{
		repo:      repo,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		generator: shortener.NewCodeGenerator(cfg.ShortCodeLength),
	}
}

// CreateLink registers a new short link with validation and step defaults
func (r *linkRegistry) CreateLink(ctx context.Context, req *domain.CreateLinkRequest, clientIP string) (*domain.CreateLinkResponse, error) {
	// Step 1: Validate the target URL
	if err := validator.ValidateURL(req.URL); err != nil {
		r.logger.Warn("Invalid target URL provided", "url", req.URL, "error", err)
		return nil, domain.NewValidationError("Invalid URL format")
	}

	// Step 2: Normalize URL (add https:// if missing, remove trailing slash)
	normalizedURL := validator.NormalizeURL(req.URL)

	// Step 3: Generate or validate custom short code
	var shortCode string
	if req.CustomAlias != "" {
		if !validator.ValidateShortCode(req.CustomAlias) {
			return nil, domain.NewValidationError("Custom alias contains invalid characters")
		}

		exists, err := r.repo.ExistsByShortCode(ctx, req.CustomAlias)
		if err != nil {
			r.logger.Error("Failed to check short code existence", "error", err)
			return nil, domain.NewInternalError(err)
		}
		if exists {
			return nil, domain.ErrShortCodeTaken
		}

		shortCode = req.CustomAlias
	} else {
		var err error
		shortCode, err = r.generateUniqueShortCode(ctx)
		if err != nil {
			r.logger.Error("Failed to generate short code", "error", err)
			return nil, domain.NewInternalError(err)
		}
	}

	// Step 4: Calculate expiration date if specified
	var expiresAt *time.Time
	if req.ExpiryDays > 0 {
		expiry := time.Now().AddDate(0, 0, req.ExpiryDays)
		expiresAt = &expiry
	}

	// Step 5: Apply policy defaults for gating configuration
	stepCount := req.StepCount
	if stepCount <= 0 {
		stepCount = r.cfg.DefaultStepCount
	}
	previewDuration := req.PreviewDuration
	if previewDuration <= 0 {
		previewDuration = r.cfg.DefaultPreviewDuration
	}
	earningRate := req.EarningRate
	if earningRate <= 0 {
		earningRate = r.cfg.DefaultEarningRate
	}

	link := &domain.Link{
		AccountID:       req.AccountID,
		ShortCode:       shortCode,
		TargetURL:       normalizedURL,
		ExpiresAt:       expiresAt,
		IsActive:        true,
		DirectMode:      req.DirectMode,
		StepCount:       stepCount,
		PreviewDuration: previewDuration,
		EarningRate:     earningRate,
		CreatorIP:       clientIP,
		CustomAlias:     req.CustomAlias != "",
	}

	// Step 6: Save to database
	if err := r.repo.Create(ctx, link); err != nil {
		r.logger.Error("Failed to create link", "error", err, "short_code", shortCode)
		return nil, err
	}

	// Step 7: Cache for fast resolution
	r.cacheLink(ctx, link)

	r.logger.Info("Link registered",
		"short_code", shortCode,
		"target_url", normalizedURL,
		"direct_mode", link.DirectMode,
		"steps", link.StepCount,
	)

	return &domain.CreateLinkResponse{
		ShortCode:       link.ShortCode,
		ShortURL:        fmt.Sprintf("%s/%s", r.cfg.BaseURL, link.ShortCode),
		TargetURL:       link.TargetURL,
		DirectMode:      link.DirectMode,
		StepCount:       link.StepCount,
		PreviewDuration: link.PreviewDuration,
		CreatedAt:       link.CreatedAt,
		ExpiresAt:       link.ExpiresAt,
	}, nil
}

// Resolve maps a short code to its link record using cache-aside.
// Only eligibility-positive links are cached, so a cache hit still needs
// the time-based expiry check but never hides a deactivation.
func (r *linkRegistry) Resolve(ctx context.Context, shortCode string) (*domain.Link, error) {
	now := time.Now()

	// Fast path: cached link record
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey(shortCode)); err == nil && cached != "" {
			var link domain.Link
			if err := json.Unmarshal([]byte(cached), &link); err == nil {
				if link.ExpiresAt != nil && !now.Before(*link.ExpiresAt) {
					return nil, domain.ErrLinkExpired
				}
				r.logger.Debug("Cache hit", "short_code", shortCode)
				return &link, nil
			}
		}
	}

	// Cache miss or no cache - query database
	link, err := r.repo.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	if !link.IsActive {
		return nil, domain.ErrLinkInactive
	}

	if link.ExpiresAt != nil && !now.Before(*link.ExpiresAt) {
		return nil, domain.ErrLinkExpired
	}

	r.cacheLink(ctx, link)

	return link, nil
}

// RecordClick increments the aggregate click counter for a visit
func (r *linkRegistry) RecordClick(ctx context.Context, linkID uint) error {
	if err := r.repo.RecordClick(ctx, linkID); err != nil {
		r.logger.Error("Failed to record click", "error", err, "link_id", linkID)
		return err
	}
	return nil
}

// GetLinkInfo returns the full link record
func (r *linkRegistry) GetLinkInfo(ctx context.Context, shortCode string) (*domain.Link, error) {
	return r.repo.FindByShortCode(ctx, shortCode)
}

// DeactivateLink soft-deletes a link and invalidates its cache entry
func (r *linkRegistry) DeactivateLink(ctx context.Context, shortCode string) error {
	if err := r.repo.Deactivate(ctx, shortCode); err != nil {
		r.logger.Error("Failed to deactivate link", "error", err, "short_code", shortCode)
		return err
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, cacheKey(shortCode)); err != nil {
			r.logger.Warn("Failed to delete link from cache", "error", err, "short_code", shortCode)
		}
	}

	r.logger.Info("Link deactivated", "short_code", shortCode)
	return nil
}

// GetStats returns aggregate engagement statistics
func (r *linkRegistry) GetStats(ctx context.Context, shortCode string) (*domain.LinkStats, error) {
	return r.repo.GetStats(ctx, shortCode)
}

// generateUniqueShortCode generates a short code and ensures it's unique
// Implements collision handling with retry logic
func (r *linkRegistry) generateUniqueShortCode(ctx context.Context) (string, error) {
	const maxRetries = 5

	for i := 0; i < maxRetries; i++ {
		shortCode := r.generator.Generate()

		exists, err := r.repo.ExistsByShortCode(ctx, shortCode)
		if err != nil {
			return "", err
		}

		if !exists {
			return shortCode, nil
		}

		r.logger.Warn("Short code collision detected, retrying",
			"short_code", shortCode,
			"attempt", i+1,
		)
	}

	return "", fmt.Errorf("failed to generate unique short code after %d attempts", maxRetries)
}

// cacheLink stores the serialized link record; failures are logged, not fatal
func (r *linkRegistry) cacheLink(ctx context.Context, link *domain.Link) {
	if r.cache == nil {
		return
	}

	payload, err := json.Marshal(link)
	if err != nil {
		return
	}

	if err := r.cache.Set(ctx, cacheKey(link.ShortCode), string(payload), r.cfg.CacheTTL); err != nil {
		r.logger.Warn("Failed to cache link", "error", err, "short_code", link.ShortCode)
	}
}

func cacheKey(shortCode string) string {
	return "link:" + shortCode
}
