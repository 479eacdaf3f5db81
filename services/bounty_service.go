// services/bounty_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"bounty-board/config"
	"bounty-board/metrics"
	"bounty-board/models"
	"bounty-board/store"
	"bounty-board/utils"

	"github.com/jonboulle/clockwork"
)

const (
	TriggerManual = "manual"
	TriggerSystem = "system"
)

// BountyOptions carries the engine's policies.
type BountyOptions struct {
	// PayoutPolicy is config.PayoutPayThenCommit or config.PayoutCommitThenPay.
	PayoutPolicy   string
	PaymentTimeout time.Duration
	// RequireExistingBounty rejects submissions for unknown bounty ids.
	RequireExistingBounty bool
	// AllowClosedSubmissions keeps accepting submissions after a bounty closed.
	AllowClosedSubmissions bool
	// ConflictRetries bounds how often a read-modify-write is replayed after
	// store.ErrConflict.
	ConflictRetries int
	Clock           clockwork.Clock
}

// DefaultBountyOptions mirrors the configuration defaults.
func DefaultBountyOptions() BountyOptions {
	return BountyOptions{
		PayoutPolicy:           config.PayoutPayThenCommit,
		PaymentTimeout:         15 * time.Second,
		RequireExistingBounty:  true,
		AllowClosedSubmissions: true,
		ConflictRetries:        3,
		Clock:                  clockwork.NewRealClock(),
	}
}

// BountyOptionsFromConfig maps loaded configuration onto engine options.
func BountyOptionsFromConfig(cfg *config.Config) BountyOptions {
	opts := DefaultBountyOptions()
	opts.PayoutPolicy = cfg.PayoutPolicy
	opts.PaymentTimeout = cfg.PaymentTimeout()
	opts.RequireExistingBounty = cfg.RequireExistingBounty
	opts.AllowClosedSubmissions = cfg.AllowClosedSubmissions
	opts.ConflictRetries = cfg.StoreConflictRetries
	return opts
}

// BountyService owns bounties and submissions. It is the only writer of both
// collections; every mutation runs under mu, and inflight marks bounties whose
// approval has left the lock to talk to the payment gateway.
type BountyService struct {
	Store   store.RecordStore
	Gateway PaymentGateway

	opts     BountyOptions
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewBountyService(st store.RecordStore, gateway PaymentGateway, opts BountyOptions) *BountyService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 15 * time.Second
	}
	if opts.PayoutPolicy == "" {
		opts.PayoutPolicy = config.PayoutPayThenCommit
	}
	return &BountyService{
		Store:    st,
		Gateway:  gateway,
		opts:     opts,
		inflight: make(map[string]struct{}),
	}
}

func (s *BountyService) now() time.Time {
	return s.opts.Clock.Now().UTC()
}

type CreateBountyInput struct {
	Title       string
	Description string
	Reward      float64
	Deadline    time.Time
	Creator     string
}

// ParseDeadline accepts RFC3339 timestamps and plain dates (midnight UTC).
func ParseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, invalidInput("deadline %q is not an RFC3339 timestamp or YYYY-MM-DD date", raw)
}

// CreateBounty validates the request and appends an open bounty.
func (s *BountyService) CreateBounty(ctx context.Context, in CreateBountyInput) (models.Bounty, error) {
	title := utils.CleanText(in.Title)
	description := utils.CleanText(in.Description)
	creator := strings.TrimSpace(in.Creator)

	switch {
	case creator == "":
		return models.Bounty{}, invalidInput("creator identity is required")
	case title == "":
		return models.Bounty{}, invalidInput("title is required")
	case description == "":
		return models.Bounty{}, invalidInput("description is required")
	case math.IsNaN(in.Reward) || math.IsInf(in.Reward, 0) || in.Reward < 0:
		return models.Bounty{}, invalidInput("reward must be a finite number >= 0")
	case in.Deadline.IsZero():
		return models.Bounty{}, invalidInput("deadline is required")
	}

	bounty := models.Bounty{
		ID:          utils.NewBountyID(),
		Title:       title,
		Slug:        utils.Slugify(title),
		Description: description,
		Reward:      in.Reward,
		Deadline:    in.Deadline.UTC(),
		Creator:     creator,
		Status:      models.BountyStatusOpen,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.retry(ctx, func() error {
		bounties, version, err := s.loadBounties(ctx)
		if err != nil {
			return err
		}
		bounties = append(bounties, bounty)
		return s.saveBounties(ctx, bounties, version)
	})
	if err != nil {
		return models.Bounty{}, fmt.Errorf("create bounty: %w", err)
	}

	metrics.RecordBountyCreated()
	log.Printf("[Engine] Bounty %s created by %s (reward %v, deadline %s)",
		bounty.ID, bounty.Creator, bounty.Reward, bounty.Deadline.Format(time.RFC3339))
	return bounty, nil
}

type SubmitWorkInput struct {
	BountyID  string
	Submitter string
	Link      string
	Comment   string
}

// SubmitWork appends a submission. It never touches the bounty collection.
func (s *BountyService) SubmitWork(ctx context.Context, in SubmitWorkInput) (models.Submission, error) {
	submitter := strings.TrimSpace(in.Submitter)
	link := strings.TrimSpace(in.Link)
	bountyID := strings.TrimSpace(in.BountyID)

	switch {
	case bountyID == "":
		return models.Submission{}, invalidInput("bounty id is required")
	case submitter == "":
		return models.Submission{}, invalidInput("submitter identity is required")
	case link == "":
		return models.Submission{}, invalidInput("link to the submitted work is required")
	}

	submission := models.Submission{
		ID:          utils.NewSubmissionID(),
		BountyID:    bountyID,
		Submitter:   submitter,
		Link:        link,
		Comment:     utils.CleanText(in.Comment),
		Approved:    false,
		SubmittedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.RequireExistingBounty || !s.opts.AllowClosedSubmissions {
		bounties, _, err := s.loadBounties(ctx)
		if err != nil {
			return models.Submission{}, fmt.Errorf("submit work: %w", err)
		}
		bounty := findBounty(bounties, bountyID)
		if bounty == nil && s.opts.RequireExistingBounty {
			return models.Submission{}, ErrBountyNotFound
		}
		if bounty != nil && !bounty.IsOpen() && !s.opts.AllowClosedSubmissions {
			return models.Submission{}, ErrBountyClosed
		}
	}

	err := s.retry(ctx, func() error {
		submissions, version, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}
		submissions = append(submissions, submission)
		return s.saveSubmissions(ctx, submissions, version)
	})
	if err != nil {
		return models.Submission{}, fmt.Errorf("submit work: %w", err)
	}

	metrics.RecordSubmission()
	log.Printf("[Engine] Submission %s received for bounty %s from %s", submission.ID, bountyID, submitter)
	return submission, nil
}

// ApprovalResult describes a committed approval. PaymentErr is only set under
// the commit-then-pay policy, where the state change stands even when the
// transfer fails.
type ApprovalResult struct {
	Bounty     models.Bounty     `json:"bounty"`
	Submission models.Submission `json:"submission"`
	Receipt    *TransferReceipt  `json:"receipt,omitempty"`
	PaymentErr error             `json:"-"`
}

// ApproveWinner closes bountyID with submissionID as the winner and pays the
// reward. It acts on the system's behalf and is what the auto-resolver calls.
func (s *BountyService) ApproveWinner(ctx context.Context, bountyID, submissionID string) (ApprovalResult, error) {
	return s.approve(ctx, TriggerSystem, "", bountyID, submissionID)
}

// ApproveWinnerAs is the manual path: only the bounty's creator may pick a winner.
func (s *BountyService) ApproveWinnerAs(ctx context.Context, actor, bountyID, submissionID string) (ApprovalResult, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ApprovalResult{}, invalidInput("actor identity is required")
	}
	return s.approve(ctx, TriggerManual, actor, bountyID, submissionID)
}

func (s *BountyService) approve(ctx context.Context, trigger, actor, bountyID, submissionID string) (ApprovalResult, error) {
	s.mu.Lock()
	bounty, submission, err := s.validateApproval(ctx, actor, bountyID, submissionID)
	if err == nil {
		err = s.reserve(bountyID)
	}
	s.mu.Unlock()
	if err != nil {
		metrics.RecordApproval(trigger, outcomeOf(err))
		return ApprovalResult{}, err
	}
	defer s.release(bountyID)

	var result ApprovalResult
	if s.opts.PayoutPolicy == config.PayoutCommitThenPay {
		result, err = s.commitThenPay(ctx, bounty, submission)
	} else {
		result, err = s.payThenCommit(ctx, bounty, submission)
	}
	if err != nil {
		metrics.RecordApproval(trigger, outcomeOf(err))
		return result, err
	}

	metrics.RecordApproval(trigger, "approved")
	log.Printf("✅ [Engine] Bounty %s closed (%s); winner %s via submission %s",
		bountyID, trigger, result.Bounty.Winner, submissionID)
	return result, nil
}

func (s *BountyService) payThenCommit(ctx context.Context, bounty models.Bounty, submission models.Submission) (ApprovalResult, error) {
	receipt, err := s.pay(ctx, bounty, submission)
	if err != nil {
		// Nothing committed: the bounty stays open and can be approved again.
		return ApprovalResult{Bounty: bounty, Submission: submission}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	closed, approved, err := s.commitApproval(ctx, bounty.ID, submission.ID, models.PayoutStatusPaid, receipt.TransactionRef)
	if err != nil {
		log.Printf("❌ [Engine] Reward for bounty %s was transferred (ref %s) but the approval could not be stored: %v",
			bounty.ID, receipt.TransactionRef, err)
		return ApprovalResult{Bounty: bounty, Submission: submission, Receipt: &receipt}, err
	}
	return ApprovalResult{Bounty: closed, Submission: approved, Receipt: &receipt}, nil
}

func (s *BountyService) commitThenPay(ctx context.Context, bounty models.Bounty, submission models.Submission) (ApprovalResult, error) {
	s.mu.Lock()
	closed, approved, err := s.commitApproval(ctx, bounty.ID, submission.ID, models.PayoutStatusPending, "")
	s.mu.Unlock()
	if err != nil {
		return ApprovalResult{Bounty: bounty, Submission: submission}, err
	}

	result := ApprovalResult{Bounty: closed, Submission: approved}
	receipt, payErr := s.pay(ctx, closed, approved)

	s.mu.Lock()
	updated, recErr := s.recordPayout(ctx, closed.ID, receipt, payErr)
	s.mu.Unlock()
	if recErr != nil {
		log.Printf("❌ [Engine] Could not record payout outcome for bounty %s: %v", closed.ID, recErr)
	} else {
		result.Bounty = updated
	}

	if payErr != nil {
		result.PaymentErr = payErr
		return result, nil
	}
	result.Receipt = &receipt
	return result, nil
}

// validateApproval must be called with mu held.
func (s *BountyService) validateApproval(ctx context.Context, actor, bountyID, submissionID string) (models.Bounty, models.Submission, error) {
	bounties, _, err := s.loadBounties(ctx)
	if err != nil {
		return models.Bounty{}, models.Submission{}, fmt.Errorf("approve winner: %w", err)
	}
	bounty := findBounty(bounties, bountyID)
	if bounty == nil {
		return models.Bounty{}, models.Submission{}, ErrBountyNotFound
	}
	if actor != "" && actor != bounty.Creator {
		return models.Bounty{}, models.Submission{}, fmt.Errorf("%w: only the bounty creator can approve a winner", ErrForbidden)
	}
	if !bounty.IsOpen() {
		return models.Bounty{}, models.Submission{}, ErrBountyClosed
	}

	submissions, _, err := s.loadSubmissions(ctx)
	if err != nil {
		return models.Bounty{}, models.Submission{}, fmt.Errorf("approve winner: %w", err)
	}
	submission := findSubmission(submissions, submissionID)
	if submission == nil || submission.BountyID != bountyID {
		return models.Bounty{}, models.Submission{}, ErrSubmissionNotFound
	}
	return *bounty, *submission, nil
}

// commitApproval writes the closed bounty first, then the approved flag.
// Must be called with mu held.
func (s *BountyService) commitApproval(ctx context.Context, bountyID, submissionID string, payout models.PayoutStatus, payoutRef string) (models.Bounty, models.Submission, error) {
	var (
		closed   models.Bounty
		approved models.Submission
	)

	err := s.retry(ctx, func() error {
		submissions, _, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}
		submission := findSubmission(submissions, submissionID)
		if submission == nil {
			return ErrSubmissionNotFound
		}

		bounties, version, err := s.loadBounties(ctx)
		if err != nil {
			return err
		}
		bounty := findBounty(bounties, bountyID)
		if bounty == nil {
			return ErrBountyNotFound
		}
		if !bounty.IsOpen() {
			return ErrBountyClosed
		}

		closedAt := s.now()
		bounty.Status = models.BountyStatusClosed
		bounty.Winner = submission.Submitter
		bounty.WinningSubmissionID = submission.ID
		bounty.ClosedAt = &closedAt
		bounty.PayoutStatus = payout
		bounty.PayoutRef = payoutRef
		if payout == models.PayoutStatusPaid {
			bounty.PayoutAttempts++
		}
		if err := s.saveBounties(ctx, bounties, version); err != nil {
			return err
		}
		closed = *bounty
		return nil
	})
	if err != nil {
		return models.Bounty{}, models.Submission{}, fmt.Errorf("approve winner: %w", err)
	}

	err = s.retry(ctx, func() error {
		var err error
		approved, err = s.markApproved(ctx, submissionID)
		return err
	})
	if err != nil {
		// The bounty is closed with winning_submission_id set; RepairApprovals
		// finishes the flag on the next scheduler tick.
		log.Printf("⚠️ [Engine] Bounty %s closed but submission %s not yet marked approved: %v", bountyID, submissionID, err)
		return closed, models.Submission{}, fmt.Errorf("approve winner: mark submission: %w", err)
	}
	return closed, approved, nil
}

func (s *BountyService) markApproved(ctx context.Context, submissionID string) (models.Submission, error) {
	submissions, version, err := s.loadSubmissions(ctx)
	if err != nil {
		return models.Submission{}, err
	}
	submission := findSubmission(submissions, submissionID)
	if submission == nil {
		return models.Submission{}, ErrSubmissionNotFound
	}
	if submission.Approved {
		return *submission, nil
	}
	submission.Approved = true
	if err := s.saveSubmissions(ctx, submissions, version); err != nil {
		return models.Submission{}, err
	}
	return *submission, nil
}

// pay transfers the reward with the configured timeout. A zero reward needs
// no transfer.
func (s *BountyService) pay(ctx context.Context, bounty models.Bounty, submission models.Submission) (TransferReceipt, error) {
	if bounty.Reward == 0 {
		return TransferReceipt{}, nil
	}

	payCtx, cancel := context.WithTimeout(ctx, s.opts.PaymentTimeout)
	defer cancel()

	receipt, err := s.Gateway.Transfer(payCtx, TransferRequest{
		Recipient: submission.Submitter,
		Amount:    bounty.Reward,
		Reference: bounty.ID,
	})
	if err != nil {
		if !errors.Is(err, ErrPaymentFailed) {
			err = fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		metrics.RecordPayout("failed")
		log.Printf("❌ [Payment] Reward of %v for bounty %s to %s failed: %v", bounty.Reward, bounty.ID, submission.Submitter, err)
		return TransferReceipt{}, err
	}

	metrics.RecordPayout("succeeded")
	log.Printf("💸 [Payment] Reward of %v sent to %s for bounty %s (ref %s)", bounty.Reward, submission.Submitter, bounty.ID, receipt.TransactionRef)
	return receipt, nil
}

// recordPayout stores the outcome of a transfer on a closed bounty.
// Must be called with mu held.
func (s *BountyService) recordPayout(ctx context.Context, bountyID string, receipt TransferReceipt, payErr error) (models.Bounty, error) {
	var updated models.Bounty
	err := s.retry(ctx, func() error {
		bounties, version, err := s.loadBounties(ctx)
		if err != nil {
			return err
		}
		bounty := findBounty(bounties, bountyID)
		if bounty == nil {
			return ErrBountyNotFound
		}
		bounty.PayoutAttempts++
		if payErr != nil {
			bounty.PayoutStatus = models.PayoutStatusFailed
			bounty.PayoutError = payErr.Error()
		} else {
			bounty.PayoutStatus = models.PayoutStatusPaid
			bounty.PayoutRef = receipt.TransactionRef
			bounty.PayoutError = ""
		}
		if err := s.saveBounties(ctx, bounties, version); err != nil {
			return err
		}
		updated = *bounty
		return nil
	})
	return updated, err
}

// PayoutReport summarises a RetryPayouts pass.
type PayoutReport struct {
	Attempted int
	Paid      int
	Failed    int
}

// RetryPayouts re-attempts transfers for closed bounties whose payout is
// pending or failed. Bounties with an approval in flight are skipped.
func (s *BountyService) RetryPayouts(ctx context.Context) (PayoutReport, error) {
	var report PayoutReport

	s.mu.Lock()
	bounties, _, err := s.loadBounties(ctx)
	if err != nil {
		s.mu.Unlock()
		return report, fmt.Errorf("retry payouts: %w", err)
	}
	submissions, _, err := s.loadSubmissions(ctx)
	if err != nil {
		s.mu.Unlock()
		return report, fmt.Errorf("retry payouts: %w", err)
	}

	type job struct {
		bounty     models.Bounty
		submission models.Submission
	}
	var jobs []job
	for _, b := range bounties {
		if b.IsOpen() {
			continue
		}
		if b.PayoutStatus != models.PayoutStatusPending && b.PayoutStatus != models.PayoutStatusFailed {
			continue
		}
		sub := findSubmission(submissions, b.WinningSubmissionID)
		if sub == nil {
			log.Printf("⚠️ [Payout] Bounty %s has no winning submission %q on record", b.ID, b.WinningSubmissionID)
			continue
		}
		if s.reserve(b.ID) != nil {
			continue
		}
		jobs = append(jobs, job{bounty: b, submission: *sub})
	}
	s.mu.Unlock()

	for _, j := range jobs {
		report.Attempted++
		receipt, payErr := s.pay(ctx, j.bounty, j.submission)

		s.mu.Lock()
		_, recErr := s.recordPayout(ctx, j.bounty.ID, receipt, payErr)
		s.mu.Unlock()
		s.release(j.bounty.ID)

		if recErr != nil {
			log.Printf("❌ [Payout] Could not record payout for bounty %s: %v", j.bounty.ID, recErr)
		}
		if payErr != nil {
			report.Failed++
		} else {
			report.Paid++
		}
	}
	return report, nil
}

// RepairApprovals sets approved=true on the winning submission of every
// closed bounty where a previous approval stopped between the two writes.
func (s *BountyService) RepairApprovals(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repaired := 0
	err := s.retry(ctx, func() error {
		repaired = 0
		bounties, _, err := s.loadBounties(ctx)
		if err != nil {
			return err
		}
		submissions, version, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}
		for _, b := range bounties {
			if b.IsOpen() || b.WinningSubmissionID == "" {
				continue
			}
			sub := findSubmission(submissions, b.WinningSubmissionID)
			if sub != nil && !sub.Approved {
				sub.Approved = true
				repaired++
			}
		}
		if repaired == 0 {
			return nil
		}
		return s.saveSubmissions(ctx, submissions, version)
	})
	if err != nil {
		return 0, fmt.Errorf("repair approvals: %w", err)
	}
	if repaired > 0 {
		log.Printf("🔧 [Engine] Repaired approved flag on %d submission(s)", repaired)
	}
	return repaired, nil
}

// ListBounties returns every bounty in creation order.
func (s *BountyService) ListBounties(ctx context.Context) ([]models.Bounty, error) {
	bounties, _, err := s.loadBounties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bounties: %w", err)
	}
	return bounties, nil
}

func (s *BountyService) GetBounty(ctx context.Context, id string) (models.Bounty, error) {
	bounties, err := s.ListBounties(ctx)
	if err != nil {
		return models.Bounty{}, err
	}
	if b := findBounty(bounties, id); b != nil {
		return *b, nil
	}
	return models.Bounty{}, ErrBountyNotFound
}

// ListSubmissions returns the submissions for bountyID in the order they arrived.
func (s *BountyService) ListSubmissions(ctx context.Context, bountyID string) ([]models.Submission, error) {
	submissions, _, err := s.loadSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]models.Submission, 0)
	for _, sub := range submissions {
		if sub.BountyID == bountyID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// reserve and release guard a bounty while its approval or payout is
// outside mu. reserve must be called with mu held.
func (s *BountyService) reserve(bountyID string) error {
	if _, busy := s.inflight[bountyID]; busy {
		return ErrApprovalInProgress
	}
	s.inflight[bountyID] = struct{}{}
	return nil
}

func (s *BountyService) release(bountyID string) {
	s.mu.Lock()
	delete(s.inflight, bountyID)
	s.mu.Unlock()
}

// retry replays fn while the store reports a version conflict.
func (s *BountyService) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.ConflictRetries; attempt++ {
		if err = fn(); !errors.Is(err, store.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
		log.Printf("[Engine] Store conflict, retrying (%d/%d)", attempt+1, s.opts.ConflictRetries)
	}
	return err
}

func (s *BountyService) loadBounties(ctx context.Context) ([]models.Bounty, store.Version, error) {
	snap, err := s.Store.ReadAll(ctx, store.CollectionBounties)
	if err != nil {
		return nil, "", err
	}
	bounties, err := store.Decode[models.Bounty](snap)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return bounties, snap.Version, nil
}

func (s *BountyService) saveBounties(ctx context.Context, bounties []models.Bounty, version store.Version) error {
	records, err := store.Encode(bounties)
	if err != nil {
		return err
	}
	_, err = s.Store.WriteAll(ctx, store.CollectionBounties, records, version)
	return err
}

func (s *BountyService) loadSubmissions(ctx context.Context) ([]models.Submission, store.Version, error) {
	snap, err := s.Store.ReadAll(ctx, store.CollectionSubmissions)
	if err != nil {
		return nil, "", err
	}
	submissions, err := store.Decode[models.Submission](snap)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return submissions, snap.Version, nil
}

func (s *BountyService) saveSubmissions(ctx context.Context, submissions []models.Submission, version store.Version) error {
	records, err := store.Encode(submissions)
	if err != nil {
		return err
	}
	_, err = s.Store.WriteAll(ctx, store.CollectionSubmissions, records, version)
	return err
}

func findBounty(bounties []models.Bounty, id string) *models.Bounty {
	for i := range bounties {
		if bounties[i].ID == id {
			return &bounties[i]
		}
	}
	return nil
}

func findSubmission(submissions []models.Submission, id string) *models.Submission {
	for i := range submissions {
		if submissions[i].ID == id {
			return &submissions[i]
		}
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrPaymentFailed):
		return "payment_failed"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	}
	return "store_failure"
}
