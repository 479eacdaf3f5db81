package services

import (
	"errors"
	"fmt"
)

// Expected outcomes of engine operations. Callers match them with errors.Is;
// store failures arrive wrapped around store.ErrUnavailable / store.ErrConflict.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")

	// ErrPaymentFailed covers gateway rejections, transport errors and timeouts.
	ErrPaymentFailed = errors.New("payment failed")

	ErrBountyNotFound     = fmt.Errorf("bounty %w", ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	ErrBountyClosed       = fmt.Errorf("bounty is closed: %w", ErrInvalidState)
	ErrApprovalInProgress = fmt.Errorf("approval already in progress: %w", ErrInvalidState)
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
