package tracker

import (
	"sync"
	"time"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/config"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/scorer"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

type AlertLevel string

const (
	AlertSuccess AlertLevel = "SUCCESS"
	AlertInfo    AlertLevel = "INFO"
	AlertWarning AlertLevel = "WARNING"
	AlertError   AlertLevel = "ERROR"
)

// maxAlerts caps the in-memory alert list; oldest entries are evicted.
const maxAlerts = 50

type Alert struct {
	Ts      time.Time          `json:"ts"`
	Level   AlertLevel         `json:"level"`
	Message string             `json:"message"`
	Data    map[string]float64 `json:"data,omitempty"`
}

// ExecutionRecord is one completed execution attempt. Records are append-only.
type ExecutionRecord struct {
	Ts              time.Time   `json:"ts"`
	Chain           types.Chain `json:"chain"`
	ProfitUSD       float64     `json:"profit_usd"`
	Success         bool        `json:"success"`
	ExecutionTimeMs float64     `json:"execution_time_ms"`
	Score           float64     `json:"score"`
}

// Metrics holds the all-time aggregates. Mutated only by Tracker methods.
type Metrics struct {
	TotalOpportunities    int64   `json:"total_opportunities"`
	SkippedOpportunities  int64   `json:"skipped_opportunities"`
	ExecutedOpportunities int64   `json:"executed_opportunities"`
	SuccessfulExecutions  int64   `json:"successful_executions"`
	FailedExecutions      int64   `json:"failed_executions"`

	TotalProfitUSD    float64 `json:"total_profit_usd"`
	TotalLossUSD      float64 `json:"total_loss_usd"`
	MaxProfitUSD      float64 `json:"max_profit_usd"`
	MaxLossUSD        float64 `json:"max_loss_usd"`
	AvgProfitPerTrade float64 `json:"avg_profit_per_trade"`

	AvgScore      float64 `json:"avg_score"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// TimingStats tracks execution latency. Min/Max are only meaningful when
// Samples > 0; there is no numeric sentinel for "no data yet".
type TimingStats struct {
	Samples int64   `json:"samples"`
	AvgMs   float64 `json:"avg_ms"`
	MinMs   float64 `json:"min_ms"`
	MaxMs   float64 `json:"max_ms"`
}

// MinMax returns the observed latency bounds, ok=false before any sample.
func (t TimingStats) MinMax() (min, max float64, ok bool) {
	if t.Samples == 0 {
		return 0, 0, false
	}
	return t.MinMs, t.MaxMs, true
}

// HourBucket aggregates executions by wall-clock hour of day.
type HourBucket struct {
	Executions int     `json:"executions"`
	Successes  int     `json:"successes"`
	ProfitUSD  float64 `json:"profit_usd"`
}

// window is a fixed-capacity ring buffer of the most recent executions.
type window struct {
	buf   []ExecutionRecord
	head  int // next write position
	count int
}

func newWindow(size int) window {
	return window{buf: make([]ExecutionRecord, size)}
}

func (w *window) push(r ExecutionRecord) {
	w.buf[w.head] = r
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// records returns the window contents oldest first.
func (w *window) records() []ExecutionRecord {
	out := make([]ExecutionRecord, 0, w.count)
	start := w.head - w.count
	if start < 0 {
		start += len(w.buf)
	}
	for i := 0; i < w.count; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}

func (w *window) successes() int {
	n := 0
	for _, r := range w.records() {
		if r.Success {
			n++
		}
	}
	return n
}

// Tracker accumulates scoring and execution outcomes for the process
// lifetime, with a bounded recency window layered on top. All methods are
// safe for concurrent use.
type Tracker struct {
	cfg config.TrackerCfg
	now func() time.Time

	// onAlert, if set, is invoked after the lock is released for every new
	// alert. It must not block.
	onAlert func(Alert)

	mu      sync.Mutex
	metrics Metrics
	timing  TimingStats
	win     window
	history []ExecutionRecord
	hours   [24]HourBucket
	alerts  []Alert
}

func New(cfg config.TrackerCfg) *Tracker {
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 100
	}
	if cfg.AlertThreshold == 0 {
		cfg.AlertThreshold = 0.90
	}
	if cfg.TargetSuccessRate == 0 {
		cfg.TargetSuccessRate = 0.95
	}
	if cfg.ExcellentSuccessRate == 0 {
		cfg.ExcellentSuccessRate = 0.999
	}
	return &Tracker{
		cfg: cfg,
		now: time.Now,
		win: newWindow(cfg.WindowSize),
	}
}

// OnAlert registers a non-blocking callback for new alerts. Must be called
// before the tracker is shared across goroutines.
func (t *Tracker) OnAlert(fn func(Alert)) { t.onAlert = fn }

// RecordOpportunity registers one scored opportunity in the running
// averages, whether or not it will be executed.
func (t *Tracker) RecordOpportunity(_ *types.Opportunity, res scorer.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalOpportunities++
	n := float64(t.metrics.TotalOpportunities)
	t.metrics.AvgScore = (t.metrics.AvgScore*(n-1) + res.OverallScore) / n
	t.metrics.AvgConfidence = (t.metrics.AvgConfidence*(n-1) + res.Confidence) / n
	if !res.ShouldExecute {
		t.metrics.SkippedOpportunities++
	}
}

// RecordExecution registers one completed execution attempt and re-evaluates
// the performance alerts.
func (t *Tracker) RecordExecution(opp *types.Opportunity, result types.ExecutionResult, executionTimeMs float64, score float64) {
	t.mu.Lock()

	t.metrics.ExecutedOpportunities++
	if result.Success {
		t.metrics.SuccessfulExecutions++
		t.metrics.TotalProfitUSD += result.ProfitUSD
		if result.ProfitUSD > t.metrics.MaxProfitUSD {
			t.metrics.MaxProfitUSD = result.ProfitUSD
		}
	} else {
		t.metrics.FailedExecutions++
		loss := result.ProfitUSD
		if loss < 0 {
			loss = -loss
		}
		t.metrics.TotalLossUSD += loss
		if loss > t.metrics.MaxLossUSD {
			t.metrics.MaxLossUSD = loss
		}
	}
	t.metrics.AvgProfitPerTrade = (t.metrics.TotalProfitUSD - t.metrics.TotalLossUSD) /
		float64(t.metrics.ExecutedOpportunities)

	if executionTimeMs > 0 {
		t.timing.Samples++
		t.timing.AvgMs += (executionTimeMs - t.timing.AvgMs) / float64(t.timing.Samples)
		if t.timing.Samples == 1 || executionTimeMs < t.timing.MinMs {
			t.timing.MinMs = executionTimeMs
		}
		if t.timing.Samples == 1 || executionTimeMs > t.timing.MaxMs {
			t.timing.MaxMs = executionTimeMs
		}
	}

	ts := t.now()
	rec := ExecutionRecord{
		Ts:              ts,
		Chain:           opp.Chain,
		ProfitUSD:       result.ProfitUSD,
		Success:         result.Success,
		ExecutionTimeMs: executionTimeMs,
		Score:           score,
	}
	t.history = append(t.history, rec)
	t.win.push(rec)

	h := &t.hours[ts.Hour()]
	h.Executions++
	if result.Success {
		h.Successes++
	}
	h.ProfitUSD += result.ProfitUSD

	emitted := t.checkPerformanceLocked()
	t.mu.Unlock()

	if t.onAlert != nil {
		for _, a := range emitted {
			t.onAlert(a)
		}
	}
}

// CurrentSuccessRate is the success ratio over the rolling window, falling
// back to full history when the window is empty. With no executions at all
// it returns 1.0: an optimistic default, so a fresh process does not alert
// before its first trade.
func (t *Tracker) CurrentSuccessRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentRateLocked()
}

func (t *Tracker) currentRateLocked() float64 {
	if t.win.count > 0 {
		return float64(t.win.successes()) / float64(t.win.count)
	}
	if len(t.history) > 0 {
		n := 0
		for _, r := range t.history {
			if r.Success {
				n++
			}
		}
		return float64(n) / float64(len(t.history))
	}
	return 1.0
}

// OverallSuccessRate is the all-time success ratio, 1.0 before any
// execution (same optimistic default as CurrentSuccessRate).
func (t *Tracker) OverallSuccessRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overallRateLocked()
}

func (t *Tracker) overallRateLocked() float64 {
	if t.metrics.ExecutedOpportunities == 0 {
		return 1.0
	}
	return float64(t.metrics.SuccessfulExecutions) / float64(t.metrics.ExecutedOpportunities)
}

// checkPerformanceLocked appends alerts for missed or exceeded targets and
// returns the new alerts. Caller holds the lock.
func (t *Tracker) checkPerformanceLocked() []Alert {
	var emitted []Alert

	cur := t.currentRateLocked()
	if cur < t.cfg.AlertThreshold {
		emitted = append(emitted, t.appendAlertLocked(AlertWarning,
			"success rate below alert threshold",
			map[string]float64{"current_rate": cur, "threshold": t.cfg.AlertThreshold}))
	}

	if t.metrics.ExecutedOpportunities >= 100 {
		overall := t.overallRateLocked()
		data := map[string]float64{
			"overall_rate": overall,
			"executions":   float64(t.metrics.ExecutedOpportunities),
		}
		switch {
		case overall >= t.cfg.ExcellentSuccessRate:
			emitted = append(emitted, t.appendAlertLocked(AlertSuccess,
				"success rate exceeds excellence target", data))
		case overall >= t.cfg.TargetSuccessRate:
			emitted = append(emitted, t.appendAlertLocked(AlertInfo,
				"success rate meets minimum target", data))
		default:
			emitted = append(emitted, t.appendAlertLocked(AlertError,
				"success rate below minimum target", data))
		}
	}
	return emitted
}

func (t *Tracker) appendAlertLocked(level AlertLevel, msg string, data map[string]float64) Alert {
	a := Alert{Ts: t.now(), Level: level, Message: msg, Data: data}
	t.alerts = append(t.alerts, a)
	if len(t.alerts) > maxAlerts {
		t.alerts = t.alerts[len(t.alerts)-maxAlerts:]
	}
	return a
}

// Alerts returns a copy of the capped alert list, oldest first.
func (t *Tracker) Alerts() []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Alert, len(t.alerts))
	copy(out, t.alerts)
	return out
}

// Metrics returns a copy of the all-time aggregates.
func (t *Tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}

// Timing returns a copy of the latency stats.
func (t *Tracker) Timing() TimingStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timing
}

// Hourly returns the per-hour-of-day buckets.
func (t *Tracker) Hourly() [24]HourBucket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hours
}

// Report is a point-in-time summary against the configured targets.
type Report struct {
	Metrics               Metrics     `json:"metrics"`
	Timing                TimingStats `json:"timing"`
	CurrentSuccessRate    float64     `json:"current_success_rate"`
	OverallSuccessRate    float64     `json:"overall_success_rate"`
	MeetsMinimumTarget    bool        `json:"meets_minimum_target"`
	MeetsExcellenceTarget bool        `json:"meets_excellence_target"`
}

// Snapshot is the persistable tracker state. Full history is not carried;
// Restore rebuilds it from the window, so all-time aggregates survive but
// per-record history older than the window does not.
type Snapshot struct {
	SavedAt time.Time         `json:"saved_at"`
	Metrics Metrics           `json:"metrics"`
	Timing  TimingStats       `json:"timing"`
	Window  []ExecutionRecord `json:"window"`
	Hours   [24]HourBucket    `json:"hours"`
	Alerts  []Alert           `json:"alerts"`
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		SavedAt: t.now(),
		Metrics: t.metrics,
		Timing:  t.timing,
		Window:  t.win.records(),
		Hours:   t.hours,
		Alerts:  append([]Alert(nil), t.alerts...),
	}
}

// Restore replaces the tracker state with a previously saved snapshot.
// Intended for startup, before the tracker is shared across goroutines.
func (t *Tracker) Restore(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = s.Metrics
	t.timing = s.Timing
	t.hours = s.Hours
	t.alerts = append([]Alert(nil), s.Alerts...)
	if len(t.alerts) > maxAlerts {
		t.alerts = t.alerts[len(t.alerts)-maxAlerts:]
	}
	t.win = newWindow(t.cfg.WindowSize)
	t.history = t.history[:0]
	for _, r := range s.Window {
		t.win.push(r)
		t.history = append(t.history, r)
	}
}

func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	overall := t.overallRateLocked()
	return Report{
		Metrics:               t.metrics,
		Timing:                t.timing,
		CurrentSuccessRate:    t.currentRateLocked(),
		OverallSuccessRate:    overall,
		MeetsMinimumTarget:    overall >= t.cfg.TargetSuccessRate,
		MeetsExcellenceTarget: overall >= t.cfg.ExcellentSuccessRate,
	}
}
