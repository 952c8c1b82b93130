package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
)

func TestRecordSwapOutcomes(t *testing.T) {
	before := testutil.ToFloat64(swapTransitions.WithLabelValues("accept", "conflict"))
	RecordSwap("accept", apperrors.Conflict("занято"))
	assert.Equal(t, before+1, testutil.ToFloat64(swapTransitions.WithLabelValues("accept", "conflict")))

	before = testutil.ToFloat64(swapTransitions.WithLabelValues("accept", "internal"))
	RecordSwap("accept", errors.New("db down"))
	assert.Equal(t, before+1, testutil.ToFloat64(swapTransitions.WithLabelValues("accept", "internal")))
}

func TestRecordCascadeIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(swapCascadeRejected)
	RecordCascade(0)
	RecordCascade(2)
	assert.Equal(t, before+2, testutil.ToFloat64(swapCascadeRejected))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/items", "200"))
	RecordHTTPRequest("GET", "/api/items", 200, 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/items", "200")))
}
