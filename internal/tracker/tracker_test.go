package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/config"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/scorer"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

func testCfg() config.TrackerCfg {
	return config.TrackerCfg{
		WindowSize:           100,
		AlertThreshold:       0.90,
		TargetSuccessRate:    0.95,
		ExcellentSuccessRate: 0.999,
	}
}

func ethOpp() *types.Opportunity {
	return &types.Opportunity{RouteID: "r1", Chain: types.ChainEthereum}
}

func record(t *Tracker, success bool, profit float64) {
	t.RecordExecution(ethOpp(), types.ExecutionResult{Success: success, ProfitUSD: profit}, 120, 80)
}

func TestEmptyTrackerDefaults(t *testing.T) {
	tr := New(testCfg())

	assert.Equal(t, 1.0, tr.CurrentSuccessRate())
	assert.Equal(t, 1.0, tr.OverallSuccessRate())

	_, _, ok := tr.Timing().MinMax()
	assert.False(t, ok)
	assert.Zero(t, tr.Timing().Samples)
	assert.Empty(t, tr.Alerts())
}

func TestRecordOpportunity_Averages(t *testing.T) {
	tr := New(testCfg())

	tr.RecordOpportunity(ethOpp(), scorer.Result{OverallScore: 80, Confidence: 0.8, ShouldExecute: true})
	tr.RecordOpportunity(ethOpp(), scorer.Result{OverallScore: 40, Confidence: 0.4, ShouldExecute: false})

	m := tr.Metrics()
	assert.Equal(t, int64(2), m.TotalOpportunities)
	assert.Equal(t, int64(1), m.SkippedOpportunities)
	assert.InDelta(t, 60.0, m.AvgScore, 1e-9)
	assert.InDelta(t, 0.6, m.AvgConfidence, 1e-9)
}

func TestSuccessRates_Exact(t *testing.T) {
	tr := New(testCfg())

	for i := 0; i < 7; i++ {
		record(tr, true, 25)
	}
	for i := 0; i < 3; i++ {
		record(tr, false, -5)
	}

	assert.InDelta(t, 0.7, tr.CurrentSuccessRate(), 1e-9)
	assert.InDelta(t, 0.7, tr.OverallSuccessRate(), 1e-9)

	m := tr.Metrics()
	assert.Equal(t, int64(10), m.ExecutedOpportunities)
	assert.Equal(t, int64(7), m.SuccessfulExecutions)
	assert.Equal(t, int64(3), m.FailedExecutions)
	assert.InDelta(t, 175.0, m.TotalProfitUSD, 1e-9)
	assert.InDelta(t, 15.0, m.TotalLossUSD, 1e-9)
	assert.InDelta(t, 16.0, m.AvgProfitPerTrade, 1e-9)
	assert.Equal(t, 25.0, m.MaxProfitUSD)
	assert.Equal(t, 5.0, m.MaxLossUSD)
}

func TestWindowForgetsOldFailures(t *testing.T) {
	cfg := testCfg()
	cfg.WindowSize = 10
	tr := New(cfg)

	// 10 failures fill the window, then 10 successes evict them
	for i := 0; i < 10; i++ {
		record(tr, false, 0)
	}
	assert.Equal(t, 0.0, tr.CurrentSuccessRate())

	for i := 0; i < 10; i++ {
		record(tr, true, 10)
	}
	assert.Equal(t, 1.0, tr.CurrentSuccessRate())
	// all-time rate still remembers everything
	assert.InDelta(t, 0.5, tr.OverallSuccessRate(), 1e-9)
}

func TestTimingStats(t *testing.T) {
	tr := New(testCfg())
	opp := ethOpp()

	tr.RecordExecution(opp, types.ExecutionResult{Success: true, ProfitUSD: 1}, 100, 80)
	tr.RecordExecution(opp, types.ExecutionResult{Success: true, ProfitUSD: 1}, 300, 80)
	tr.RecordExecution(opp, types.ExecutionResult{Success: true, ProfitUSD: 1}, 200, 80)

	ts := tr.Timing()
	assert.Equal(t, int64(3), ts.Samples)
	assert.InDelta(t, 200.0, ts.AvgMs, 1e-9)
	min, max, ok := ts.MinMax()
	require.True(t, ok)
	assert.Equal(t, 100.0, min)
	assert.Equal(t, 300.0, max)
}

func TestTimingIgnoresNonPositiveDurations(t *testing.T) {
	tr := New(testCfg())
	tr.RecordExecution(ethOpp(), types.ExecutionResult{Success: true}, 0, 80)
	assert.Zero(t, tr.Timing().Samples)
}

func TestHourlyBuckets(t *testing.T) {
	tr := New(testCfg())
	tr.now = func() time.Time {
		return time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	}

	record(tr, true, 12)
	record(tr, false, -3)

	h := tr.Hourly()[14]
	assert.Equal(t, 2, h.Executions)
	assert.Equal(t, 1, h.Successes)
	assert.InDelta(t, 9.0, h.ProfitUSD, 1e-9)
	assert.Zero(t, tr.Hourly()[13].Executions)
}

func TestAlerts_WarningBelowThreshold(t *testing.T) {
	tr := New(testCfg())

	var got []Alert
	tr.OnAlert(func(a Alert) { got = append(got, a) })

	// 1 success then 1 failure: rate 0.5 < 0.90
	record(tr, true, 10)
	record(tr, false, 0)

	require.NotEmpty(t, got)
	assert.Equal(t, AlertWarning, got[len(got)-1].Level)
	assert.Equal(t, tr.Alerts()[len(tr.Alerts())-1].Message, got[len(got)-1].Message)
}

func TestAlerts_TargetEvaluationNeeds100Executions(t *testing.T) {
	tr := New(testCfg())

	for i := 0; i < 99; i++ {
		record(tr, true, 10)
	}
	for _, a := range tr.Alerts() {
		assert.NotEqual(t, AlertSuccess, a.Level)
		assert.NotEqual(t, AlertInfo, a.Level)
	}

	record(tr, true, 10)
	last := tr.Alerts()[len(tr.Alerts())-1]
	// 100/100 exceeds the excellence target
	assert.Equal(t, AlertSuccess, last.Level)
}

func TestAlerts_CappedAt50(t *testing.T) {
	cfg := testCfg()
	cfg.WindowSize = 10
	tr := New(cfg)

	// every failure after the first re-triggers the warning
	for i := 0; i < 200; i++ {
		record(tr, false, 0)
	}
	assert.LessOrEqual(t, len(tr.Alerts()), 50)
	assert.NotEmpty(t, tr.Alerts())
}

func TestReport_MinimumButNotExcellent(t *testing.T) {
	cfg := testCfg()
	cfg.WindowSize = 200
	tr := New(cfg)

	// 192 of 200: 96% clears the 95% minimum, misses 99.9%
	for i := 0; i < 192; i++ {
		record(tr, true, 20)
	}
	for i := 0; i < 8; i++ {
		record(tr, false, -2)
	}

	rep := tr.Report()
	assert.InDelta(t, 0.96, rep.OverallSuccessRate, 1e-9)
	assert.True(t, rep.MeetsMinimumTarget)
	assert.False(t, rep.MeetsExcellenceTarget)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	tr := New(testCfg())
	for i := 0; i < 8; i++ {
		record(tr, true, 15)
	}
	record(tr, false, -4)

	snap := tr.Snapshot()
	assert.False(t, snap.SavedAt.IsZero())
	assert.Len(t, snap.Window, 9)

	fresh := New(testCfg())
	fresh.Restore(snap)

	assert.Equal(t, tr.Metrics(), fresh.Metrics())
	assert.Equal(t, tr.Timing(), fresh.Timing())
	assert.Equal(t, tr.Hourly(), fresh.Hourly())
	assert.InDelta(t, tr.CurrentSuccessRate(), fresh.CurrentSuccessRate(), 1e-9)
	assert.Equal(t, len(tr.Alerts()), len(fresh.Alerts()))

	// restored tracker keeps accumulating
	record(fresh, true, 10)
	assert.Equal(t, int64(10), fresh.Metrics().ExecutedOpportunities)
}
