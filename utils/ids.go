// utils/ids.go
package utils

import "github.com/google/uuid"

const (
	BountyIDPrefix     = "bounty-"
	SubmissionIDPrefix = "sub-"
)

// NewID returns prefix followed by a random (v4) UUID. With 122 random bits a
// collision within one store's lifetime is negligible, so ids are not checked
// against existing records.
func NewID(prefix string) string {
	return prefix + uuid.NewString()
}

func NewBountyID() string {
	return NewID(BountyIDPrefix)
}

func NewSubmissionID() string {
	return NewID(SubmissionIDPrefix)
}
