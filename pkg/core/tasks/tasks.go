// Package tasks implements the task-claim lifecycle: workers reserve a slice
// of hang/remove work on a campaign zone, start it, finish it via poster
// logs, or lose it to expiry.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

// ClaimTTL is how long a claim may sit untouched in claimed status before a
// sweep releases it back to the pool.
const ClaimTTL = 24 * time.Hour

var (
	ErrClaimExpired   = errors.New("task claim has expired")
	ErrClaimNotActive = errors.New("task claim is not active")
)

// ClaimStore is the persistence interface for task claims
type ClaimStore interface {
	GetClaim(ctx context.Context, id string) (*model.TaskClaim, error)
	InsertClaim(ctx context.Context, claim model.TaskClaim) error
	UpdateClaim(ctx context.Context, claim model.TaskClaim) error
	ExpireStaleClaims(ctx context.Context, cutoff time.Time) ([]model.TaskClaim, error)
}

// ClaimTaskParams describes the work a worker is reserving
type ClaimTaskParams struct {
	CampaignID     string
	ZoneID         string
	WorkerID       string
	Type           model.ActionType
	PosterCount    int
	PricePerPoster float64
}

// ClaimTask reserves work for a worker. The claim starts in claimed status
// and expires after ClaimTTL unless the worker starts it.
func ClaimTask(ctx context.Context, store ClaimStore, logger *zap.Logger, params ClaimTaskParams) (*model.TaskClaim, error) {
	if !params.Type.IsValid() {
		return nil, fmt.Errorf("invalid action type %q", params.Type)
	}
	if params.PosterCount <= 0 {
		return nil, fmt.Errorf("poster count must be positive, got %d", params.PosterCount)
	}
	if params.PricePerPoster < 0 {
		return nil, fmt.Errorf("price per poster must not be negative, got %v", params.PricePerPoster)
	}

	now := time.Now().UTC()
	claim := model.TaskClaim{
		ID:               uuid.New().String(),
		CampaignID:       params.CampaignID,
		ZoneID:           params.ZoneID,
		WorkerID:         params.WorkerID,
		Type:             params.Type,
		PosterCount:      params.PosterCount,
		Status:           model.ClaimStatusClaimed,
		ClaimedAt:        now,
		ExpiresAt:        now.Add(ClaimTTL),
		PricePerPoster:   params.PricePerPoster,
		SettlementStatus: model.SettlementUnsettled,
	}

	if err := store.InsertClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to insert task claim: %w", err)
	}

	logger.Info("Task claimed",
		zap.String("claim_id", claim.ID),
		zap.String("campaign_id", claim.CampaignID),
		zap.String("zone_id", claim.ZoneID),
		zap.String("worker_id", claim.WorkerID),
		zap.String("type", string(claim.Type)),
		zap.Int("poster_count", claim.PosterCount),
		zap.Time("expires_at", claim.ExpiresAt))
	return &claim, nil
}

// StartTask moves a claim from claimed to in_progress. Starting stops the
// expiry clock; an already expired claim cannot be started.
func StartTask(ctx context.Context, store ClaimStore, logger *zap.Logger, claimID string) (*model.TaskClaim, error) {
	claim, err := store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task claim: %w", err)
	}

	if claim.Status != model.ClaimStatusClaimed {
		return nil, fmt.Errorf("cannot start claim in status %q: %w", claim.Status, ErrClaimNotActive)
	}

	now := time.Now().UTC()
	if now.After(claim.ExpiresAt) {
		return nil, ErrClaimExpired
	}

	claim.Status = model.ClaimStatusInProgress
	claim.StartedAt = &now

	if err := store.UpdateClaim(ctx, *claim); err != nil {
		return nil, fmt.Errorf("failed to update task claim: %w", err)
	}

	logger.Info("Task started",
		zap.String("claim_id", claim.ID),
		zap.String("worker_id", claim.WorkerID))
	return claim, nil
}

// CancelTask releases a claimed or in_progress claim. Completed, expired and
// already cancelled claims cannot be cancelled.
func CancelTask(ctx context.Context, store ClaimStore, logger *zap.Logger, claimID string) (*model.TaskClaim, error) {
	claim, err := store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task claim: %w", err)
	}

	if claim.Status != model.ClaimStatusClaimed && claim.Status != model.ClaimStatusInProgress {
		return nil, fmt.Errorf("cannot cancel claim in status %q: %w", claim.Status, ErrClaimNotActive)
	}

	claim.Status = model.ClaimStatusCancelled

	if err := store.UpdateClaim(ctx, *claim); err != nil {
		return nil, fmt.Errorf("failed to update task claim: %w", err)
	}

	logger.Info("Task cancelled",
		zap.String("claim_id", claim.ID),
		zap.String("worker_id", claim.WorkerID),
		zap.Int("posters_completed", claim.PostersCompleted))
	return claim, nil
}

// ExpireStaleClaims sweeps claims that sat in claimed status past their
// expiry and returns how many were released. In-progress claims are never
// expired; starting the work stops the clock.
func ExpireStaleClaims(ctx context.Context, store ClaimStore, logger *zap.Logger) (int, error) {
	expired, err := store.ExpireStaleClaims(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale claims: %w", err)
	}

	for _, claim := range expired {
		logger.Info("Task claim expired",
			zap.String("claim_id", claim.ID),
			zap.String("worker_id", claim.WorkerID),
			zap.Time("expired_at", claim.ExpiresAt))
	}
	return len(expired), nil
}

// ApplyOfflineDelta optimistically bumps a claim's local counters after a
// poster log went to the offline queue. The authoritative counters are
// untouched; Reconcile folds them back in once the server commit lands.
func ApplyOfflineDelta(claim *model.TaskClaim, pricePerPoster float64) {
	claim.LocalOnlyPosters++
	claim.LocalOnlyEarnings += pricePerPoster
}

// Reconcile replaces a claim's counters with the authoritative server row and
// clears the reconciliation-pending deltas.
func Reconcile(claim *model.TaskClaim, authoritative model.TaskClaim) {
	claim.PostersCompleted = authoritative.PostersCompleted
	claim.Earnings = authoritative.Earnings
	claim.Status = authoritative.Status
	claim.CompletedAt = authoritative.CompletedAt
	claim.SettlementStatus = authoritative.SettlementStatus
	claim.LocalOnlyPosters = 0
	claim.LocalOnlyEarnings = 0
}

// DisplayedCount is the poster count a worker should see: authoritative plus
// any not-yet-reconciled offline increments.
func DisplayedCount(claim model.TaskClaim) int {
	return claim.PostersCompleted + claim.LocalOnlyPosters
}

// DisplayedEarnings mirrors DisplayedCount for earnings
func DisplayedEarnings(claim model.TaskClaim) float64 {
	return claim.Earnings + claim.LocalOnlyEarnings
}
