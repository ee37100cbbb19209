package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncUploads()
	s.IncMatchesProcessed()
	s.IncMatchesProcessed()
	s.IncRowsRejected(ReasonInvalid)
	s.IncRowsRejected(ReasonDuplicate)
	s.IncRowsRejected(ReasonDuplicate)
	s.IncStandingsRecomputed()
	s.ObserveProcessingDuration(0.2)
	s.SetStartupTime(1.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Uploads))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.MatchesProcessed))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.RowsRejected.WithLabelValues(ReasonDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.RowsRejected.WithLabelValues(ReasonInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.StandingsRecomputed))
	assert.Equal(t, 1.5, testutil.ToFloat64(s.StartupTimeSeconds))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)
	s.IncSlackNotifSent()

	rr := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "league_slack_notifications_sent_total 1")
	assert.Contains(t, string(body), "league_upload_processing_duration_seconds_bucket")
}

func TestMock(t *testing.T) {
	m := NewMock()
	var _ Metrics = m

	m.IncRowsRejected(ReasonLookup)
	m.IncSlackNotifFailed()
	m.ObserveProcessingDuration(3)

	assert.Equal(t, 1, m.RowsRejected(ReasonLookup))
	assert.Equal(t, 0, m.RowsRejected(ReasonStore))
	assert.Equal(t, 1, m.SlackNotifFailed())
	assert.Equal(t, []float64{3}, m.ProcessingDurations())
}
