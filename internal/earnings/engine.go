// Package earnings converts completed, non-duplicate sessions into credited
// payouts, exactly once per device/link pair.
package earnings

import (
	"context"
	"time"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/ledger"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
)

// Rejection names why a completed session earned nothing
type Rejection string

const (
	RejectionNone            Rejection = ""
	RejectionAlreadyCredited Rejection = "already_credited"
	RejectionLinkUnavailable Rejection = "link_unavailable"
)

// Result is the outcome of a single crediting decision
type Result struct {
	Credited bool
	Amount   float64
	Reason   Rejection
}

// Engine decides whether a completed session earns a payout
type Engine interface {
	// Credit runs the atomic crediting decision for a completed session.
	// It mutates the session's earnings fields; the caller persists them.
	Credit(ctx context.Context, session *domain.ClickSession, link *domain.Link) (*Result, error)
}

// creditingEngine implements the Engine interface
type creditingEngine struct {
	ledger ledger.Ledger
	logger *logger.Logger
}

// NewEngine creates a crediting engine backed by the device ledger
func NewEngine(ledger ledger.Ledger, logger *logger.Logger) Engine {
	return &creditingEngine{
		ledger: ledger,
		logger: logger,
	}
}

// latchRetries bounds retries of the latch statement on storage errors.
// A definitive true/false latch outcome is never retried.
const latchRetries = 3

// Credit performs the crediting algorithm:
// classify, then latch, then pay. The latch decides races; the classify
// result only short-circuits the obvious duplicate before touching it.
func (e *creditingEngine) Credit(ctx context.Context, session *domain.ClickSession, link *domain.Link) (*Result, error) {
	if session.Status != domain.SessionCompleted || !session.RequirementsMet {
		return nil, domain.ErrSessionNotComplete
	}

	// Link deactivated between session open and completion: no credit
	if !link.IsEligible(time.Now()) {
		session.EarningsAmount = 0
		e.logger.Warn("Link became unavailable before crediting",
			"link_id", link.ID,
			"token", session.Token,
		)
		return &Result{Credited: false, Reason: RejectionLinkUnavailable}, nil
	}

	snapshot := domain.DeviceSnapshot{
		DeviceID:    "",
		Fingerprint: session.Fingerprint,
		IP:          session.IPAddress,
		UserAgent:   session.UserAgent,
	}

	class, err := e.ledger.Classify(ctx, link, session.DeviceHash, snapshot)
	if err != nil {
		return nil, err
	}

	if class == domain.ClassDuplicate {
		session.IsDuplicateAccess = true
		session.EarningsAmount = 0
		return &Result{Credited: false, Reason: RejectionAlreadyCredited}, nil
	}

	// Flat-rate model: full completion pays the link's rate, nothing partial
	amount := link.EarningRate

	latched, err := e.latchWithRetry(ctx, link.ID, session.DeviceHash, amount)
	if err != nil {
		return nil, err
	}

	if !latched {
		// A racing completion won the latch first; this one is a duplicate
		// retroactively, regardless of what the pre-check said.
		session.IsDuplicateAccess = true
		session.EarningsAmount = 0
		return &Result{Credited: false, Reason: RejectionAlreadyCredited}, nil
	}

	session.EarningsAmount = amount

	e.logger.Info("Session credited",
		"token", session.Token,
		"link_id", link.ID,
		"device_hash", session.DeviceHash,
		"amount", amount,
	)

	return &Result{Credited: true, Amount: amount}, nil
}

// latchWithRetry retries the latch statement on storage errors only.
// The conditional update itself resolves contention in one round trip.
func (e *creditingEngine) latchWithRetry(ctx context.Context, linkID uint, deviceHash string, amount float64) (bool, error) {
	var lastErr error

	for attempt := 0; attempt < latchRetries; attempt++ {
		latched, err := e.ledger.LatchEarningsCredited(ctx, linkID, deviceHash, amount)
		if err == nil {
			return latched, nil
		}

		lastErr = err
		e.logger.Warn("Earnings latch attempt failed, retrying",
			"link_id", linkID,
			"device_hash", deviceHash,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return false, lastErr
}
