package models

import "time"

// BountyStatus is the lifecycle state of a bounty. Closed is terminal.
type BountyStatus string

const (
	BountyStatusOpen   BountyStatus = "open"
	BountyStatusClosed BountyStatus = "closed"
)

// PayoutStatus tracks the settlement of a closed bounty's reward.
type PayoutStatus string

const (
	PayoutStatusNone    PayoutStatus = ""
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// Bounty is a reward-bearing task posted by a creator.
// Records live in the "bounties" collection in insertion order.
type Bounty struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug,omitempty"`
	Description string       `json:"description"`
	Reward      float64      `json:"reward"` // fixed at creation
	Deadline    time.Time    `json:"deadline"`
	Creator     string       `json:"creator"`
	Status      BountyStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`

	// Set once, when the bounty closes.
	Winner              string     `json:"winner,omitempty"`
	WinningSubmissionID string     `json:"winning_submission_id,omitempty"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`

	PayoutStatus   PayoutStatus `json:"payout_status,omitempty"`
	PayoutRef      string       `json:"payout_ref,omitempty"`
	PayoutError    string       `json:"payout_error,omitempty"`
	PayoutAttempts int          `json:"payout_attempts,omitempty"`
}

// IsOpen reports whether the bounty still accepts a winner.
func (b *Bounty) IsOpen() bool {
	return b.Status == BountyStatusOpen
}

// AutoResolveAt is the moment the bounty becomes eligible for automatic winner selection.
func (b *Bounty) AutoResolveAt(grace time.Duration) time.Time {
	return b.Deadline.Add(grace)
}
