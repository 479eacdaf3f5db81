package models

import "time"

// Submission is a contributor's candidate solution for a bounty.
// Records live in the "submissions" collection in insertion order.
type Submission struct {
	ID          string    `json:"id"`
	BountyID    string    `json:"bounty_id"`
	Submitter   string    `json:"submitter"`
	Link        string    `json:"link"`
	Comment     string    `json:"comment,omitempty"`
	Approved    bool      `json:"approved"`
	SubmittedAt time.Time `json:"submitted_at"`
}
