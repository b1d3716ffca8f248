package scorer

import (
	"fmt"
	"math"
	"sync"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/config"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

type Classification string

const (
	Excellent Classification = "EXCELLENT"
	Good      Classification = "GOOD"
	Moderate  Classification = "MODERATE"
	Poor      Classification = "POOR"
	Skip      Classification = "SKIP"
)

// classBands is evaluated first-match, highest threshold first.
var classBands = []struct {
	Min   float64
	Label Classification
}{
	{85, Excellent},
	{75, Good},
	{65, Moderate},
	{50, Poor},
}

// Classify maps an overall score to its band. Anything below the lowest
// band is SKIP.
func Classify(score float64) Classification {
	for _, b := range classBands {
		if score >= b.Min {
			return b.Label
		}
	}
	return Skip
}

// Result is the immutable outcome of scoring one opportunity. All component
// scores and the overall score are in [0,100]; Confidence is in [0,1].
type Result struct {
	ProfitScore    float64        `json:"profit_score"`
	RiskScore      float64        `json:"risk_score"`
	LiquidityScore float64        `json:"liquidity_score"`
	SuccessScore   float64        `json:"success_score"`
	OverallScore   float64        `json:"overall_score"`
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	ShouldExecute  bool           `json:"should_execute"`
	Recommendation string         `json:"recommendation"`
}

// Stats is the scorer's running tally, for external reporting.
type Stats struct {
	Scored     int64   `json:"scored"`
	Executable int64   `json:"executable"`
	Skipped    int64   `json:"skipped"`
	AvgScore   float64 `json:"avg_score"`
}

type Scorer struct {
	cfg config.ScorerCfg

	mu    sync.Mutex
	stats Stats
}

// New validates the weight configuration. Weights that do not sum to
// 1.0±0.01 are a fatal configuration error: the engine must not start
// scoring with them.
func New(cfg config.ScorerCfg) (*Scorer, error) {
	sum := cfg.ProfitWeight + cfg.RiskWeight + cfg.LiquidityWeight + cfg.SuccessWeight
	if math.Abs(sum-1.0) > 0.01 {
		return nil, fmt.Errorf("scorer: weights must sum to 1.0±0.01, got %.4f", sum)
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 70
	}
	return &Scorer{cfg: cfg}, nil
}

// Score computes the composite score and execute/skip decision for one
// opportunity. It never fails: missing numeric fields are treated as zero
// (historical success rate gets a neutral 0.75 prior) and every output is
// clamped to its documented range.
func (s *Scorer) Score(opp *types.Opportunity) Result {
	profit := profitScore(opp)
	risk := riskScore(opp)
	liq := liquidityScore(opp)
	succ := successScore(opp)

	overall := clamp100(profit*s.cfg.ProfitWeight +
		risk*s.cfg.RiskWeight +
		liq*s.cfg.LiquidityWeight +
		succ*s.cfg.SuccessWeight)

	res := Result{
		ProfitScore:    profit,
		RiskScore:      risk,
		LiquidityScore: liq,
		SuccessScore:   succ,
		OverallScore:   overall,
		Classification: Classify(overall),
		Confidence:     confidence(overall, profit, risk, liq, succ),
		ShouldExecute:  overall >= s.cfg.MinScore,
	}
	res.Recommendation = recommend(res.Classification, res.ShouldExecute)

	s.mu.Lock()
	s.stats.Scored++
	s.stats.AvgScore += (overall - s.stats.AvgScore) / float64(s.stats.Scored)
	if res.ShouldExecute {
		s.stats.Executable++
	} else {
		s.stats.Skipped++
	}
	s.mu.Unlock()

	return res
}

// Stats returns a copy of the running tally.
func (s *Scorer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// profitScore rates net profit after gas on a diminishing-returns curve:
// linear 0-50 for the first $5, 50-85 up to $25, 85-95 up to $50, then a
// slow logarithmic climb. The score is damped when profit barely covers
// gas and boosted when it dwarfs it.
func profitScore(opp *types.Opportunity) float64 {
	net := opp.ProfitUSD - opp.GasCostUSD
	if net <= 0 {
		return 0
	}
	var score float64
	switch {
	case net < 5:
		score = net / 5 * 50
	case net < 25:
		score = 50 + (net-5)/20*35
	case net < 50:
		score = 85 + (net-25)/25*10
	default:
		score = math.Min(100, 95+math.Log10(net/50)*5)
	}
	ratio := net / (opp.GasCostUSD + 0.1)
	if ratio < 2 {
		score *= 0.8
	} else if ratio > 5 {
		score = math.Min(100, score*1.1)
	}
	return clamp100(score)
}

// riskScore inverts the four risk factors into a 0-100 safety score.
// Routes longer than 3 hops pay a 10% penalty per extra hop.
func riskScore(opp *types.Opportunity) float64 {
	score := (1-clamp01(opp.SlippageRisk))*100*0.35 +
		(1-clamp01(opp.MEVRisk))*100*0.25 +
		(1-clamp01(opp.ContractRisk))*100*0.20 +
		(1-clamp01(opp.Congestion))*100*0.20
	if hops := opp.Hops(); hops > 3 {
		penalty := 1 - float64(hops-3)*0.1
		if penalty < 0 {
			penalty = 0
		}
		score *= penalty
	}
	return clamp100(score)
}

// liquidityScore combines pool depth (log-scaled TVL), turnover and trade
// size headroom. A pool with no TVL scores exactly 0.
func liquidityScore(opp *types.Opportunity) float64 {
	if opp.TVLUSD <= 0 {
		return 0
	}
	var tvlTerm float64
	if opp.TVLUSD >= 10_000 {
		tvlTerm = math.Min(95, math.Log10(opp.TVLUSD/10_000)*35)
	}
	volTerm := math.Min(100, 100*opp.Volume24h/(opp.TVLUSD+1)*5)
	var depthTerm float64
	if opp.InputAmount > 0 {
		depthTerm = math.Min(100, 20*opp.LiquidityDepth/opp.InputAmount)
	}
	return clamp100(tvlTerm*0.4 + volTerm*0.3 + depthTerm*0.3)
}

// successScore projects the historical success rate, discounted by model
// confidence, with bonuses/penalties for execution frequency and gas spikes.
func successScore(opp *types.Opportunity) float64 {
	rate := opp.HistoricalSuccessRate
	if rate == 0 {
		rate = 0.75 // neutral prior for routes with no history
	}
	score := clamp01(rate) * 100
	score *= 0.7 + 0.3*clamp01(opp.ConfidenceScore)
	if opp.Executions24h > 10 {
		score = math.Min(100, score*1.1)
	} else if opp.Executions24h == 0 {
		score *= 0.8
	}
	if opp.GasPrice > 150 {
		score *= 0.9
	}
	return clamp100(score)
}

// confidence blends component agreement (low spread across the four scores)
// with the overall score itself.
func confidence(overall float64, components ...float64) float64 {
	mean := 0.0
	for _, c := range components {
		mean += c
	}
	mean /= float64(len(components))
	variance := 0.0
	for _, c := range components {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(components))
	sd := math.Sqrt(variance)
	return clamp01(0.4*(1-sd/50) + 0.6*(overall/100))
}

func recommend(c Classification, execute bool) string {
	switch c {
	case Excellent:
		return "strong opportunity: high score across all factors, execute"
	case Good:
		return "good opportunity: execute"
	case Moderate:
		if execute {
			return "moderate opportunity: execute with reduced size"
		}
		return "moderate opportunity: below execution threshold, skip"
	case Poor:
		return "weak opportunity: skip"
	default:
		return "avoid: score too low"
	}
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
