package funding

import (
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

const (
	DefaultMinReservePercent = 5
	DefaultMaxReservePercent = 25

	// safety buffer on top of target profit + gas when sizing the loan
	sizingBuffer = 1.10
)

// OptimalAmount computes a liquidity-safe loan size. The raw requirement
// (target profit plus gas, with a 10% buffer) is clamped into a band of the
// shallowest pool reserve on the route, so the trade itself cannot create
// disqualifying slippage. Gas is converted with gasEstimate × gwei × 1e-9;
// the result is in whatever unit the reserves are quoted in.
//
// minPercent/maxPercent default to 5/25 when non-positive. Returns 0 when
// no reserves are known.
func OptimalAmount(reserves []float64, targetProfit, gasEstimate, gasPriceGwei, minPercent, maxPercent float64) float64 {
	if len(reserves) == 0 {
		return 0
	}
	if minPercent <= 0 {
		minPercent = DefaultMinReservePercent
	}
	if maxPercent <= 0 {
		maxPercent = DefaultMaxReservePercent
	}

	minReserve := reserves[0]
	for _, r := range reserves[1:] {
		if r < minReserve {
			minReserve = r
		}
	}
	if minReserve <= 0 {
		return 0
	}

	gasCostNative := gasEstimate * gasPriceGwei * 1e-9
	raw := (targetProfit + gasCostNative) * sizingBuffer

	lo := minReserve * minPercent / 100
	hi := minReserve * maxPercent / 100
	if raw < lo {
		return lo
	}
	if raw > hi {
		return hi
	}
	return raw
}

// ValidationResult is the last gate before an opportunity is handed to the
// execution path. A false IsValid means "skip", never an error.
type ValidationResult struct {
	SufficientProfit bool `json:"sufficient_profit"`
	WithinLimits     bool `json:"within_limits"`
	ValidRoute       bool `json:"valid_route"`
	PositiveSlippage bool `json:"positive_slippage"`
	IsValid          bool `json:"is_valid"`
}

// Validate checks an opportunity against the chosen provider's constraints.
func Validate(opp *types.Opportunity, sel Selection) ValidationResult {
	v := ValidationResult{
		SufficientProfit: opp.ProfitUSD > sel.EstimatedFee,
		WithinLimits:     opp.InputAmount <= sel.MaxLoanAmount,
		ValidRoute:       len(opp.Tokens) >= 2,
		PositiveSlippage: opp.ExpectedOutput > opp.InputAmount,
	}
	v.IsValid = v.SufficientProfit && v.WithinLimits && v.ValidRoute && v.PositiveSlippage
	return v
}
