package model

import "time"

// ActionType distinguishes hanging a poster from taking one down
type ActionType string

const (
	ActionHang   ActionType = "hang"
	ActionRemove ActionType = "remove"
)

func (a ActionType) IsValid() bool {
	return a == ActionHang || a == ActionRemove
}

// ClaimStatus is the lifecycle state of a task claim
type ClaimStatus string

const (
	ClaimStatusClaimed    ClaimStatus = "claimed"
	ClaimStatusInProgress ClaimStatus = "in_progress"
	ClaimStatusCompleted  ClaimStatus = "completed"
	ClaimStatusExpired    ClaimStatus = "expired"
	ClaimStatusCancelled  ClaimStatus = "cancelled"
)

// SettlementStatus tracks payout bookkeeping on a completed claim
type SettlementStatus string

const (
	SettlementUnsettled     SettlementStatus = "unsettled"
	SettlementMarkedSettled SettlementStatus = "marked_settled"
	SettlementPaid          SettlementStatus = "paid"
)

// Rule violation flags attached to a poster log at creation time
const (
	ViolationOutsideZone = "outside_zone"
	ViolationOutsideTime = "outside_time"
)

// TaskClaim is a worker's reservation of a slice of hang/remove work on a
// campaign zone. Counters are owned by the server-side atomic commit; the
// LocalOnly fields hold optimistic increments from the offline upload path
// until an authoritative refresh reconciles them.
type TaskClaim struct {
	ID               string           `json:"id"`
	CampaignID       string           `json:"campaign_id"`
	ZoneID           string           `json:"zone_id"`
	WorkerID         string           `json:"worker_id"`
	Type             ActionType       `json:"type"`
	PosterCount      int              `json:"poster_count"`
	PostersCompleted int              `json:"posters_completed"`
	Status           ClaimStatus      `json:"status"`
	ClaimedAt        time.Time        `json:"claimed_at"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	ExpiresAt        time.Time        `json:"expires_at"`
	PricePerPoster   float64          `json:"price_per_poster"`
	Earnings         float64          `json:"earnings"`
	SettlementStatus SettlementStatus `json:"settlement_status"`

	// Reconciliation-pending deltas from offline poster logs. Never persisted
	// server-side; cleared when authoritative counters are re-fetched.
	LocalOnlyPosters  int     `json:"local_only_posters,omitempty"`
	LocalOnlyEarnings float64 `json:"local_only_earnings,omitempty"`
}

// PosterLog is the immutable evidentiary record of one physical poster action
type PosterLog struct {
	ID             string     `json:"id"`
	TaskClaimID    string     `json:"task_claim_id"`
	CampaignID     string     `json:"campaign_id"`
	WorkerID       string     `json:"worker_id"`
	Type           ActionType `json:"type"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	PhotoURL       string     `json:"photo_url"`
	Address        string     `json:"address,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	RuleViolations []string   `json:"rule_violations"`
	Verified       bool       `json:"verified"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RecordPosterLogParams are the parameters of the atomic record_poster_log
// remote commit. JSON keys follow the server RPC contract.
type RecordPosterLogParams struct {
	TaskClaimID    string   `json:"p_task_claim_id"`
	CampaignID     string   `json:"p_campaign_id"`
	WorkerID       string   `json:"p_worker_id"`
	Type           string   `json:"p_type"`
	Latitude       float64  `json:"p_latitude"`
	Longitude      float64  `json:"p_longitude"`
	PhotoURL       string   `json:"p_photo_url"`
	Address        *string  `json:"p_address"`
	Notes          *string  `json:"p_notes"`
	RuleViolations []string `json:"p_rule_violations"`
}

// CommitResult is the server response to a successful record_poster_log call
type CommitResult struct {
	LogID       string  `json:"log_id"`
	NewCount    int     `json:"new_count"`
	NewEarnings float64 `json:"new_earnings"`
	IsComplete  bool    `json:"is_complete"`
	Status      string  `json:"status"`
}

// PendingPosterLog is a durable queue entry for a poster log that could not
// be committed synchronously. PhotoURI points at the locally cached photo;
// RetryCount only ever increases.
type PendingPosterLog struct {
	ID         string                `json:"id"`
	PhotoURI   string                `json:"photo_uri"`
	Params     RecordPosterLogParams `json:"rpc_params"`
	CreatedAt  time.Time             `json:"created_at"`
	RetryCount int                   `json:"retry_count"`
}
