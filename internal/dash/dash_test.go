package dash

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/scorer"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/tracker"
)

type fakeSource struct {
	report tracker.Report
	alerts []tracker.Alert
	stats  scorer.Stats
}

func (f *fakeSource) Report() tracker.Report    { return f.report }
func (f *fakeSource) Alerts() []tracker.Alert   { return append([]tracker.Alert(nil), f.alerts...) }
func (f *fakeSource) ScorerStats() scorer.Stats { return f.stats }

func TestStatusEndpoint(t *testing.T) {
	src := &fakeSource{
		report: tracker.Report{
			CurrentSuccessRate: 0.96,
			OverallSuccessRate: 0.96,
			MeetsMinimumTarget: true,
		},
		stats: scorer.Stats{Scored: 42, Executable: 10, AvgScore: 71.5},
		alerts: []tracker.Alert{
			{Ts: time.Now(), Level: tracker.AlertWarning, Message: "old"},
			{Ts: time.Now(), Level: tracker.AlertInfo, Message: "new"},
		},
	}

	srv := httptest.NewServer(handler(src))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var s status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.InDelta(t, 0.96, s.Report.CurrentSuccessRate, 1e-9)
	assert.True(t, s.Report.MeetsMinimumTarget)
	assert.Equal(t, int64(42), s.ScorerStats.Scored)
	require.Len(t, s.Alerts, 2)
	// newest first
	assert.Equal(t, "new", s.Alerts[0].Message)
}

func TestIndexPage(t *testing.T) {
	srv := httptest.NewServer(handler(&fakeSource{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestCORSPreflight(t *testing.T) {
	srv := httptest.NewServer(handler(&fakeSource{}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/status", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
