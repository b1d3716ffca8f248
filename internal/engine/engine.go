package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/config"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/funding"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/metrics"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/scorer"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/store"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/tracker"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

// Executor performs (or simulates) the actual on-chain execution. The engine
// owns everything up to this boundary; live submission lives behind it.
type Executor interface {
	Execute(ctx context.Context, opp *types.Opportunity, sel funding.Selection) types.ExecutionResult
}

// Persistence is the slice of the store the engine needs directly.
type Persistence interface {
	LoadSnapshot(ctx context.Context) (tracker.Snapshot, error)
	PublishAlert(ctx context.Context, a tracker.Alert) error
}

// Decision records what the pipeline did with one opportunity.
type Decision struct {
	Result     scorer.Result
	Executed   bool
	SkipReason string
	Selection  funding.Selection
	LoanAmount float64
	Validation funding.ValidationResult
	Execution  types.ExecutionResult
}

// Engine is the scoring and execution pipeline: score, gate, size the flash
// loan, pick a provider, validate, execute, record.
type Engine struct {
	cfg      *config.Config
	log      *zap.Logger
	scorer   *scorer.Scorer
	registry *funding.Registry
	tracker  *tracker.Tracker
	executor Executor
	persist  Persistence

	alertCh chan tracker.Alert
}

func New(cfg *config.Config, exec Executor, persist Persistence, log *zap.Logger) (*Engine, error) {
	sc, err := scorer.New(cfg.Scorer)
	if err != nil {
		return nil, err
	}
	reg, err := funding.NewRegistry()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		log:      log,
		scorer:   sc,
		registry: reg,
		tracker:  tracker.New(cfg.Tracker),
		executor: exec,
		persist:  persist,
		alertCh:  make(chan tracker.Alert, 256),
	}
	e.tracker.OnAlert(func(a tracker.Alert) {
		select {
		case e.alertCh <- a:
		default:
			// alert fan-out is best-effort, never blocks the pipeline
		}
	})
	return e, nil
}

// Restore loads the last persisted tracker state. A missing snapshot is the
// normal first-start case, not an error.
func (e *Engine) Restore(ctx context.Context) error {
	if e.persist == nil {
		return nil
	}
	snap, err := e.persist.LoadSnapshot(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		e.log.Info("no tracker snapshot, starting fresh")
		return nil
	}
	if err != nil {
		return err
	}
	e.tracker.Restore(snap)
	e.log.Info("tracker state restored",
		zap.Time("saved_at", snap.SavedAt),
		zap.Int64("executed", snap.Metrics.ExecutedOpportunities))
	return nil
}

// Run consumes the opportunity feed until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, opps <-chan *types.Opportunity) {
	go e.drainAlerts(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case opp, ok := <-opps:
			if !ok {
				e.log.Warn("opportunity feed closed")
				return
			}
			d := e.Process(ctx, opp)
			if d.Executed {
				e.log.Info("executed",
					zap.String("route_id", opp.RouteID),
					zap.String("chain", string(opp.Chain)),
					zap.Float64("score", d.Result.OverallScore),
					zap.String("provider", d.Selection.Name),
					zap.Float64("loan_amount", d.LoanAmount),
					zap.Bool("success", d.Execution.Success),
					zap.Float64("profit_usd", d.Execution.ProfitUSD))
			} else {
				e.log.Debug("skipped",
					zap.String("route_id", opp.RouteID),
					zap.Float64("score", d.Result.OverallScore),
					zap.String("reason", d.SkipReason))
			}
		}
	}
}

func (e *Engine) drainAlerts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-e.alertCh:
			if e.persist == nil {
				continue
			}
			pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := e.persist.PublishAlert(pubCtx, a); err != nil {
				e.log.Warn("alert publish failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Process runs one opportunity through the full pipeline.
func (e *Engine) Process(ctx context.Context, opp *types.Opportunity) Decision {
	res := e.scorer.Score(opp)
	metrics.OpportunitiesScored.Inc()
	metrics.ScoreHist.Observe(res.OverallScore)
	e.tracker.RecordOpportunity(opp, res)

	d := Decision{Result: res}
	if !res.ShouldExecute {
		metrics.OpportunitiesSkipped.Inc()
		d.SkipReason = "score below threshold"
		return d
	}

	reserves := opp.Reserves
	if len(reserves) == 0 && opp.LiquidityDepth > 0 {
		// no per-hop reserves on the wire, treat reported depth as the
		// single binding pool
		reserves = []float64{opp.LiquidityDepth}
	}
	amount := funding.OptimalAmount(reserves, opp.ProfitUSD, opp.GasEstimate, opp.GasPrice,
		e.cfg.Sizing.MinReservePercent, e.cfg.Sizing.MaxReservePercent)
	if amount <= 0 {
		amount = opp.InputAmount
	}
	if amount <= 0 {
		d.SkipReason = "no sizing basis"
		return d
	}
	d.LoanAmount = amount

	sel, err := e.registry.Select(opp.Chain, amount)
	if err != nil {
		if errors.Is(err, funding.ErrNoSuitableProvider) {
			d.SkipReason = "no provider can cover the loan"
		} else {
			d.SkipReason = "provider selection failed"
			e.log.Warn("provider selection failed",
				zap.String("route_id", opp.RouteID), zap.Error(err))
		}
		return d
	}
	d.Selection = sel

	sized := *opp
	sized.InputAmount = amount
	d.Validation = funding.Validate(&sized, sel)
	if !d.Validation.IsValid {
		d.SkipReason = "failed final validation"
		return d
	}

	start := time.Now()
	d.Execution = e.executor.Execute(ctx, &sized, sel)
	elapsedMs := float64(time.Since(start)) / float64(time.Millisecond)
	d.Executed = true

	e.tracker.RecordExecution(opp, d.Execution, elapsedMs, res.OverallScore)

	if d.Execution.Success {
		metrics.ExecutionsTotal.WithLabelValues("success").Inc()
	} else {
		metrics.ExecutionsTotal.WithLabelValues("failure").Inc()
	}
	m := e.tracker.Metrics()
	metrics.TotalProfitUSD.Set(m.TotalProfitUSD - m.TotalLossUSD)
	metrics.SuccessRate.Set(e.tracker.CurrentSuccessRate())

	return d
}

// Tracker exposes the tracker for snapshot persistence.
func (e *Engine) Tracker() *tracker.Tracker { return e.tracker }

// Report, Alerts and ScorerStats implement the dashboard's status source.
func (e *Engine) Report() tracker.Report    { return e.tracker.Report() }
func (e *Engine) Alerts() []tracker.Alert   { return e.tracker.Alerts() }
func (e *Engine) ScorerStats() scorer.Stats { return e.scorer.Stats() }
