// Package session implements the per-visit state machine: open, gated step
// advances, heartbeats and the completion handoff to the crediting engine.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/config"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/earnings"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/ledger"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/registry"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/repository"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/shortener"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/validator"
)

// Engine defines the session state machine operations
type Engine interface {
	// Open creates a fresh pending session for a gated link
	Open(ctx context.Context, req *domain.OpenSessionRequest, clientIP string) (*domain.OpenSessionResponse, error)

	// AdvanceStep validates ordering and dwell, then records one step
	AdvanceStep(ctx context.Context, token string, stepIndex int) (*domain.AdvanceStepResponse, error)

	// Heartbeat accrues dwell time for a live session
	Heartbeat(ctx context.Context, token string) error

	// Complete finishes the session and triggers the crediting decision.
	// Idempotent by token: re-invocation returns the prior outcome.
	Complete(ctx context.Context, token string) (*domain.CompleteSessionResponse, error)
}

// sessionEngine implements the Engine interface
type sessionEngine struct {
	sessions repository.SessionRepository
	links    repository.LinkRepository
	registry registry.Registry
	ledger   ledger.Ledger
	earnings earnings.Engine
	gate     StepGate
	cfg      *config.Config
	logger   *logger.Logger
}

// NewEngine creates a session engine with dependencies injected
func NewEngine(
	sessions repository.SessionRepository,
	links repository.LinkRepository,
	reg registry.Registry,
	ledger ledger.Ledger,
	earnings earnings.Engine,
	cfg *config.Config,
	logger *logger.Logger,
) Engine {
	return &sessionEngine{
		sessions: sessions,
		links:    links,
		registry: reg,
		ledger:   ledger,
		earnings: earnings,
		cfg:      cfg,
		logger:   logger,
	}
}

// Open creates a pending session after resolving and click-counting the link.
// The visit is pre-classified against the device ledger; a duplicate still
// gets a session (the visitor may browse) but is flagged from the start.
func (e *sessionEngine) Open(ctx context.Context, req *domain.OpenSessionRequest, clientIP string) (*domain.OpenSessionResponse, error) {
	snapshot, err := buildSnapshot(req, clientIP)
	if err != nil {
		return nil, err
	}

	link, err := e.registry.Resolve(ctx, req.ShortCode)
	if err != nil {
		if errors.Is(err, domain.ErrLinkInactive) || errors.Is(err, domain.ErrLinkExpired) {
			return nil, domain.ErrLinkUnavailable
		}
		return nil, err
	}

	if link.DirectMode {
		return nil, domain.NewValidationError("Link is not step-gated")
	}

	// One click per visit; a counter failure must not block the visitor
	if err := e.registry.RecordClick(ctx, link.ID); err != nil {
		e.logger.Warn("Click not recorded for visit", "error", err, "short_code", link.ShortCode)
	}

	deviceHash := snapshot.Hash()

	class, err := e.ledger.Classify(ctx, link, deviceHash, snapshot)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.RecordAccess(ctx, link, deviceHash, snapshot); err != nil {
		return nil, err
	}

	token, err := shortener.NewSessionToken()
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	now := time.Now()
	session := &domain.ClickSession{
		LinkID:            link.ID,
		Token:             token,
		Status:            domain.SessionPending,
		CurrentStep:       0,
		StepStartedAt:     now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(e.cfg.SessionWindow),
		IsDuplicateAccess: class == domain.ClassDuplicate,
		DeviceHash:        deviceHash,
		IPAddress:         snapshot.IP,
		UserAgent:         snapshot.UserAgent,
		Fingerprint:       snapshot.Fingerprint,
		Referrer:          snapshot.Referrer,
		Country:           snapshot.Country,
	}

	if err := e.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	e.logger.Info("Session opened",
		"token", token,
		"short_code", link.ShortCode,
		"device_hash", deviceHash,
		"classification", class.String(),
	)

	durations := make([]int, link.StepCount)
	for i := range durations {
		durations[i] = link.PreviewDuration
	}

	return &domain.OpenSessionResponse{
		SessionToken:    token,
		RequiredSteps:   link.StepCount,
		StepDurations:   durations,
		ExpiresAt:       session.ExpiresAt,
		DuplicateAccess: session.IsDuplicateAccess,
	}, nil
}

// AdvanceStep records one gated step. Only the exact current index is
// accepted and only after the server-side dwell clock is satisfied.
func (e *sessionEngine) AdvanceStep(ctx context.Context, token string, stepIndex int) (*domain.AdvanceStepResponse, error) {
	now := time.Now()

	session, err := e.loadMutable(ctx, token, now)
	if err != nil {
		return nil, err
	}

	link, err := e.links.FindByID(ctx, session.LinkID)
	if err != nil {
		return nil, err
	}

	if stepIndex != session.CurrentStep || stepIndex >= link.StepCount {
		return nil, domain.ErrStepOutOfOrder
	}

	if !e.gate.Satisfied(session.StepStartedAt, link.StepDuration(), now) {
		return nil, domain.ErrDwellNotSatisfied
	}

	session.MarkStepComplete(stepIndex, now)

	if err := e.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	e.logger.Debug("Step advanced",
		"token", token,
		"step", stepIndex,
		"current_step", session.CurrentStep,
	)

	return &domain.AdvanceStepResponse{
		Accepted:    true,
		CurrentStep: session.CurrentStep,
		StepsLeft:   link.StepCount - session.CurrentStep,
	}, nil
}

// Heartbeat accrues activity time for a live session
func (e *sessionEngine) Heartbeat(ctx context.Context, token string) error {
	now := time.Now()

	session, err := e.loadMutable(ctx, token, now)
	if err != nil {
		return err
	}

	session.Touch(now)

	return e.sessions.Update(ctx, session)
}

// Complete transitions the session to completed and resolves crediting in the
// same persist, so a completed session never lacks a crediting outcome.
func (e *sessionEngine) Complete(ctx context.Context, token string) (*domain.CompleteSessionResponse, error) {
	now := time.Now()

	session, err := e.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	// Idempotent by token: a completed session replays its prior outcome
	if session.Status == domain.SessionCompleted {
		return e.priorOutcome(ctx, session)
	}

	if session.Status == domain.SessionExpired || session.IsExpiredAt(now) {
		if session.Status != domain.SessionExpired {
			if err := e.sessions.MarkExpired(ctx, token); err != nil {
				e.logger.Error("Failed to mark session expired", "error", err, "token", token)
			}
		}
		return nil, domain.ErrSessionExpired
	}

	if session.Status == domain.SessionAbandoned {
		return nil, domain.ErrSessionTerminal
	}

	link, err := e.links.FindByID(ctx, session.LinkID)
	if err != nil {
		return nil, err
	}

	if session.CurrentStep != link.StepCount {
		return nil, domain.ErrSessionNotComplete
	}

	session.Touch(now)
	session.RequirementsMet = true
	session.Status = domain.SessionCompleted

	result, err := e.earnings.Credit(ctx, session, link)
	if err != nil {
		return nil, err
	}

	if err := e.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	switch result.Reason {
	case earnings.RejectionAlreadyCredited:
		return nil, domain.ErrAlreadyCredited
	case earnings.RejectionLinkUnavailable:
		return nil, domain.ErrLinkUnavailable
	}

	e.logger.Info("Session completed",
		"token", token,
		"short_code", link.ShortCode,
		"credited", result.Credited,
		"amount", result.Amount,
	)

	return &domain.CompleteSessionResponse{
		CreditedAmount: result.Amount,
		Duplicate:      false,
		TargetURL:      link.TargetURL,
	}, nil
}

// priorOutcome replays the stored result of an already-completed session
func (e *sessionEngine) priorOutcome(ctx context.Context, session *domain.ClickSession) (*domain.CompleteSessionResponse, error) {
	if session.IsDuplicateAccess {
		return nil, domain.ErrAlreadyCredited
	}
	if session.EarningsAmount == 0 && !session.RequirementsMet {
		return nil, domain.ErrSessionNotComplete
	}
	if session.EarningsAmount == 0 && session.RequirementsMet {
		// Completed but rejected because the link went away mid-session
		return nil, domain.ErrLinkUnavailable
	}

	link, err := e.links.FindByID(ctx, session.LinkID)
	if err != nil {
		return nil, err
	}

	return &domain.CompleteSessionResponse{
		CreditedAmount: session.EarningsAmount,
		Duplicate:      false,
		TargetURL:      link.TargetURL,
	}, nil
}

// loadMutable fetches a session and enforces lazy expiry plus terminal-state
// protection for the step-advance and heartbeat paths
func (e *sessionEngine) loadMutable(ctx context.Context, token string, now time.Time) (*domain.ClickSession, error) {
	session, err := e.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.Status == domain.SessionExpired {
		return nil, domain.ErrSessionExpired
	}

	if session.Status.IsTerminal() {
		return nil, domain.ErrSessionTerminal
	}

	if session.IsExpiredAt(now) {
		if err := e.sessions.MarkExpired(ctx, token); err != nil {
			e.logger.Error("Failed to mark session expired", "error", err, "token", token)
		}
		return nil, domain.ErrSessionExpired
	}

	return session, nil
}

// buildSnapshot validates the open payload into a typed device snapshot.
// The server-observed client IP wins over anything the client claims.
func buildSnapshot(req *domain.OpenSessionRequest, clientIP string) (domain.DeviceSnapshot, error) {
	if err := validator.ValidateDeviceID(req.DeviceID); err != nil {
		return domain.DeviceSnapshot{}, domain.NewValidationError(err.Error())
	}
	if err := validator.ValidateFingerprint(req.Fingerprint); err != nil {
		return domain.DeviceSnapshot{}, domain.NewValidationError(err.Error())
	}
	if err := validator.ValidateIP(clientIP); err != nil {
		return domain.DeviceSnapshot{}, domain.NewValidationError(err.Error())
	}
	if err := validator.ValidateCountry(req.Country); err != nil {
		return domain.DeviceSnapshot{}, domain.NewValidationError(err.Error())
	}

	return domain.DeviceSnapshot{
		DeviceID:    req.DeviceID,
		Fingerprint: req.Fingerprint,
		IP:          clientIP,
		UserAgent:   req.UserAgent,
		Referrer:    req.Referrer,
		Country:     req.Country,
	}, nil
}
