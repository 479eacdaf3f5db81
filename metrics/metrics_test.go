package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordApproval_IncrementsLabelledCounter(t *testing.T) {
	before := testutil.ToFloat64(approvals.WithLabelValues("system", "approved"))
	RecordApproval("system", "approved")
	assert.Equal(t, before+1, testutil.ToFloat64(approvals.WithLabelValues("system", "approved")))
}

func TestHandler_ApprovalHelpNamesTriggers(t *testing.T) {
	RecordApproval("manual", "approved")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP bounty_board_engine_approvals_total Winner approvals by trigger (manual|system) and outcome.")
}

func TestHandler_ServesRegistry(t *testing.T) {
	RecordBountyCreated()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "bounty_board_engine_bounties_created_total")
}
