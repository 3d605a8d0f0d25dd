package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

const claimColumns = `
	id, campaign_id, zone_id, worker_id, type, poster_count, posters_completed,
	status, claimed_at, started_at, completed_at, expires_at, price_per_poster,
	earnings, settlement_status
`

// GetClaim retrieves a single task claim by ID
func (db *DB) GetClaim(ctx context.Context, id string) (*model.TaskClaim, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT `+claimColumns+`
		FROM task_claims
		WHERE id = $1
	`, id)

	var c model.TaskClaim
	err := row.Scan(
		&c.ID, &c.CampaignID, &c.ZoneID, &c.WorkerID, &c.Type,
		&c.PosterCount, &c.PostersCompleted, &c.Status, &c.ClaimedAt,
		&c.StartedAt, &c.CompletedAt, &c.ExpiresAt, &c.PricePerPoster,
		&c.Earnings, &c.SettlementStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task claim %s: %w", id, err)
	}
	return &c, nil
}

// GetWorkerClaims retrieves all claims for a worker, newest first
func (db *DB) GetWorkerClaims(ctx context.Context, workerID string) ([]model.TaskClaim, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+claimColumns+`
		FROM task_claims
		WHERE worker_id = $1
		ORDER BY claimed_at DESC
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query worker claims: %w", err)
	}
	defer rows.Close()

	var claims []model.TaskClaim
	for rows.Next() {
		var c model.TaskClaim
		if err := rows.Scan(
			&c.ID, &c.CampaignID, &c.ZoneID, &c.WorkerID, &c.Type,
			&c.PosterCount, &c.PostersCompleted, &c.Status, &c.ClaimedAt,
			&c.StartedAt, &c.CompletedAt, &c.ExpiresAt, &c.PricePerPoster,
			&c.Earnings, &c.SettlementStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task claim: %w", err)
		}
		claims = append(claims, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task claims: %w", err)
	}
	return claims, nil
}

// InsertClaim inserts a new task claim
func (db *DB) InsertClaim(ctx context.Context, c model.TaskClaim) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO task_claims (
			id, campaign_id, zone_id, worker_id, type, poster_count,
			posters_completed, status, claimed_at, expires_at,
			price_per_poster, earnings, settlement_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		c.ID, c.CampaignID, c.ZoneID, c.WorkerID, c.Type, c.PosterCount,
		c.PostersCompleted, c.Status, c.ClaimedAt, c.ExpiresAt,
		c.PricePerPoster, c.Earnings, c.SettlementStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task claim: %w", err)
	}
	return nil
}

// UpdateClaim updates the mutable fields of a task claim
func (db *DB) UpdateClaim(ctx context.Context, c model.TaskClaim) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE task_claims
		SET status = $2,
		    posters_completed = $3,
		    started_at = $4,
		    completed_at = $5,
		    earnings = $6,
		    settlement_status = $7
		WHERE id = $1
	`,
		c.ID, c.Status, c.PostersCompleted, c.StartedAt, c.CompletedAt,
		c.Earnings, c.SettlementStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update task claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task claim %s not found", c.ID)
	}
	return nil
}

// ExpireStaleClaims flips claimed rows past their expiry to expired and
// returns the released claims. In-progress claims are untouched.
func (db *DB) ExpireStaleClaims(ctx context.Context, cutoff time.Time) ([]model.TaskClaim, error) {
	rows, err := db.pool.Query(ctx, `
		UPDATE task_claims
		SET status = 'expired'
		WHERE status = 'claimed' AND expires_at < $1
		RETURNING `+claimColumns,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to expire stale claims: %w", err)
	}
	defer rows.Close()

	var expired []model.TaskClaim
	for rows.Next() {
		var c model.TaskClaim
		if err := rows.Scan(
			&c.ID, &c.CampaignID, &c.ZoneID, &c.WorkerID, &c.Type,
			&c.PosterCount, &c.PostersCompleted, &c.Status, &c.ClaimedAt,
			&c.StartedAt, &c.CompletedAt, &c.ExpiresAt, &c.PricePerPoster,
			&c.Earnings, &c.SettlementStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expired claim: %w", err)
		}
		expired = append(expired, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired claims: %w", err)
	}
	return expired, nil
}
