package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"bounty-board/config"
	"bounty-board/models"
	"bounty-board/store"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeGateway records transfers and can fail, or block until the caller's
// deadline for selected recipients.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []TransferRequest
	err      error
	blockFor map[string]bool
	started  map[string]time.Time
}

func (g *fakeGateway) Transfer(ctx context.Context, req TransferRequest) (TransferReceipt, error) {
	g.mu.Lock()
	block := g.blockFor[req.Recipient]
	g.started[req.Recipient] = time.Now()
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return TransferReceipt{}, fmt.Errorf("%w: %v", ErrPaymentFailed, ctx.Err())
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return TransferReceipt{}, g.err
	}
	return TransferReceipt{TransactionRef: fmt.Sprintf("tx-%d", len(g.calls))}, nil
}

func (g *fakeGateway) setErr(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

// StartedAt reports when the first transfer to recipient began.
func (g *fakeGateway) StartedAt(recipient string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	at, ok := g.started[recipient]
	return at, ok
}

func (g *fakeGateway) Calls() []TransferRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]TransferRequest(nil), g.calls...)
}

// faultyStore wraps a store and injects write failures per collection.
type faultyStore struct {
	store.RecordStore

	mu            sync.Mutex
	failWrites    map[string]error
	conflictsLeft map[string]int
}

func newFaultyStore(inner store.RecordStore) *faultyStore {
	return &faultyStore{
		RecordStore:   inner,
		failWrites:    map[string]error{},
		conflictsLeft: map[string]int{},
	}
}

func (f *faultyStore) WriteAll(ctx context.Context, collection string, records []json.RawMessage, expected store.Version) (store.Version, error) {
	f.mu.Lock()
	if f.conflictsLeft[collection] > 0 {
		f.conflictsLeft[collection]--
		f.mu.Unlock()
		return "", store.ErrConflict
	}
	err := f.failWrites[collection]
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	return f.RecordStore.WriteAll(ctx, collection, records, expected)
}

type testEnv struct {
	svc     *BountyService
	store   *faultyStore
	gateway *fakeGateway
	clock   *clockwork.FakeClock
}

func newTestEnv(t *testing.T, mutate ...func(*BountyOptions)) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClockAt(testNow)
	opts := BountyOptions{
		PayoutPolicy:           config.PayoutPayThenCommit,
		PaymentTimeout:         time.Second,
		RequireExistingBounty:  true,
		AllowClosedSubmissions: true,
		ConflictRetries:        3,
		Clock:                  clock,
	}
	for _, m := range mutate {
		m(&opts)
	}

	st := newFaultyStore(store.NewMemoryStore())
	gw := &fakeGateway{blockFor: map[string]bool{}, started: map[string]time.Time{}}
	return &testEnv{
		svc:     NewBountyService(st, gw, opts),
		store:   st,
		gateway: gw,
		clock:   clock,
	}
}

func (e *testEnv) createBounty(t *testing.T, creator string, reward float64, deadline time.Time) models.Bounty {
	t.Helper()
	b, err := e.svc.CreateBounty(context.Background(), CreateBountyInput{
		Title:       "Fix bug",
		Description: "desc",
		Reward:      reward,
		Deadline:    deadline,
		Creator:     creator,
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) submit(t *testing.T, bountyID, submitter string) models.Submission {
	t.Helper()
	s, err := e.svc.SubmitWork(context.Background(), SubmitWorkInput{
		BountyID:  bountyID,
		Submitter: submitter,
		Link:      "http://x",
	})
	require.NoError(t, err)
	return s
}

func (e *testEnv) versions(t *testing.T) (store.Version, store.Version) {
	t.Helper()
	ctx := context.Background()
	b, err := e.store.ReadAll(ctx, store.CollectionBounties)
	require.NoError(t, err)
	s, err := e.store.ReadAll(ctx, store.CollectionSubmissions)
	require.NoError(t, err)
	return b.Version, s.Version
}

func (e *testEnv) approvedCount(t *testing.T, bountyID string) int {
	t.Helper()
	subs, err := e.svc.ListSubmissions(context.Background(), bountyID)
	require.NoError(t, err)
	n := 0
	for _, s := range subs {
		if s.Approved {
			n++
		}
	}
	return n
}
