package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

// RecordPosterLog is the atomic commit: one transaction inserts the log row,
// bumps the claim counters and flips the claim status. Implements the
// pipeline's Committer port for deployments talking to the database directly.
func (db *DB) RecordPosterLog(ctx context.Context, params model.RecordPosterLogParams) (model.CommitResult, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the claim row so concurrent commits serialize on the counters
	var (
		posterCount      int
		postersCompleted int
		status           model.ClaimStatus
		pricePerPoster   float64
	)
	err = tx.QueryRow(ctx, `
		SELECT poster_count, posters_completed, status, price_per_poster
		FROM task_claims
		WHERE id = $1
		FOR UPDATE
	`, params.TaskClaimID).Scan(&posterCount, &postersCompleted, &status, &pricePerPoster)
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to lock task claim %s: %w", params.TaskClaimID, err)
	}

	if status != model.ClaimStatusClaimed && status != model.ClaimStatusInProgress {
		return model.CommitResult{}, fmt.Errorf("task claim %s is not active (status %s)", params.TaskClaimID, status)
	}

	logID := uuid.New().String()
	violations := params.RuleViolations
	if violations == nil {
		violations = []string{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO poster_logs (
			id, task_claim_id, campaign_id, worker_id, type,
			latitude, longitude, photo_url, address, notes, rule_violations
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		logID, params.TaskClaimID, params.CampaignID, params.WorkerID, params.Type,
		params.Latitude, params.Longitude, params.PhotoURL, params.Address,
		params.Notes, violations,
	)
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to insert poster log: %w", err)
	}

	newCount := postersCompleted + 1
	newEarnings := float64(newCount) * pricePerPoster
	isComplete := newCount >= posterCount

	newStatus := model.ClaimStatusInProgress
	var completedAt *time.Time
	if isComplete {
		newStatus = model.ClaimStatusCompleted
		now := time.Now().UTC()
		completedAt = &now
	}

	_, err = tx.Exec(ctx, `
		UPDATE task_claims
		SET posters_completed = $2,
		    earnings = $3,
		    status = $4,
		    started_at = COALESCE(started_at, NOW()),
		    completed_at = COALESCE(completed_at, $5)
		WHERE id = $1
	`, params.TaskClaimID, newCount, newEarnings, newStatus, completedAt)
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to update claim counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.CommitResult{}, fmt.Errorf("failed to commit poster log: %w", err)
	}

	return model.CommitResult{
		LogID:       logID,
		NewCount:    newCount,
		NewEarnings: newEarnings,
		IsComplete:  isComplete,
		Status:      string(newStatus),
	}, nil
}

// GetClaimLogs retrieves the poster logs recorded against a claim
func (db *DB) GetClaimLogs(ctx context.Context, taskClaimID string) ([]model.PosterLog, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, task_claim_id, campaign_id, worker_id, type, latitude,
		       longitude, photo_url, COALESCE(address, ''), COALESCE(notes, ''),
		       rule_violations, verified, created_at
		FROM poster_logs
		WHERE task_claim_id = $1
		ORDER BY created_at
	`, taskClaimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query poster logs: %w", err)
	}
	defer rows.Close()

	var logs []model.PosterLog
	for rows.Next() {
		var l model.PosterLog
		if err := rows.Scan(
			&l.ID, &l.TaskClaimID, &l.CampaignID, &l.WorkerID, &l.Type,
			&l.Latitude, &l.Longitude, &l.PhotoURL, &l.Address, &l.Notes,
			&l.RuleViolations, &l.Verified, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poster log: %w", err)
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating poster logs: %w", err)
	}
	return logs, nil
}
