package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/funding"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

// DryRunExecutor simulates execution: every trade "succeeds" and realizes
// the quoted profit minus the provider fee. Used when dry_run is on and no
// live executor is wired.
type DryRunExecutor struct {
	log *zap.Logger
}

func NewDryRunExecutor(log *zap.Logger) *DryRunExecutor {
	return &DryRunExecutor{log: log}
}

func (d *DryRunExecutor) Execute(_ context.Context, opp *types.Opportunity, sel funding.Selection) types.ExecutionResult {
	profit := opp.ProfitUSD - sel.EstimatedFee
	d.log.Info("DRY-RUN: trade simulated, nothing submitted on-chain",
		zap.String("route_id", opp.RouteID),
		zap.String("chain", string(opp.Chain)),
		zap.String("provider", sel.Name),
		zap.Float64("loan_amount", opp.InputAmount),
		zap.Float64("fee_usd", sel.EstimatedFee),
		zap.Float64("profit_usd", profit))
	return types.ExecutionResult{Success: true, ProfitUSD: profit}
}
