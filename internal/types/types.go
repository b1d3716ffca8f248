package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainPolygon  Chain = "polygon"
	ChainArbitrum Chain = "arbitrum"
	ChainOptimism Chain = "optimism"
	ChainBase     Chain = "base"
	ChainBSC      Chain = "bsc"
)

var chainIDs = map[Chain]uint64{
	ChainEthereum: 1,
	ChainPolygon:  137,
	ChainArbitrum: 42161,
	ChainOptimism: 10,
	ChainBase:     8453,
	ChainBSC:      56,
}

// ID returns the EVM network id, 0 for unknown chains.
func (c Chain) ID() uint64 { return chainIDs[c] }

// Known reports whether c is one of the supported networks.
func (c Chain) Known() bool { _, ok := chainIDs[c]; return ok }

// Opportunity is an already-assembled arbitrage candidate produced by the
// external detector. Numeric fields may be zero when the detector had no
// data; the scorer substitutes conservative defaults instead of rejecting
// the record.
type Opportunity struct {
	RouteID        string    `json:"route_id"`
	Chain          Chain     `json:"chain"`
	Tokens         []string  `json:"tokens"`
	DEXes          []string  `json:"dexes"`
	InputAmount    float64   `json:"input_amount"`
	ExpectedOutput float64   `json:"expected_output"`
	Reserves       []float64 `json:"reserves"` // per-hop pool reserves along the route

	ProfitUSD   float64 `json:"profit_usd"`
	GasEstimate float64 `json:"gas_estimate"`
	GasPrice    float64 `json:"gas_price"` // gwei
	GasCostUSD  float64 `json:"gas_cost_usd"`

	TVLUSD         float64 `json:"tvl_usd"`
	Volume24h      float64 `json:"volume_24h"`
	LiquidityDepth float64 `json:"liquidity_depth"`

	SlippageRisk float64 `json:"slippage_risk"` // [0,1]
	MEVRisk      float64 `json:"mev_risk"`      // [0,1]
	ContractRisk float64 `json:"contract_risk"` // [0,1]
	Congestion   float64 `json:"congestion"`    // [0,1]
	HopCount     int     `json:"hop_count"`

	HistoricalSuccessRate float64 `json:"historical_success_rate"`
	ConfidenceScore       float64 `json:"confidence_score"`
	Executions24h         int     `json:"executions_24h"`

	Ts time.Time `json:"ts"`
}

// Hops derives the hop count from the token route when the detector did not
// set it explicitly.
func (o *Opportunity) Hops() int {
	if o.HopCount > 0 {
		return o.HopCount
	}
	if n := len(o.Tokens); n > 1 {
		return n - 1
	}
	return 0
}

// IsRoundTrip reports whether the route starts and ends on the same token,
// i.e. the loan can be repaid in kind.
func (o *Opportunity) IsRoundTrip() bool {
	n := len(o.Tokens)
	return n >= 2 && o.Tokens[0] == o.Tokens[n-1]
}

// RouteAddresses returns the token route as EVM addresses. Symbolic entries
// (detector feeds sometimes carry tickers instead of addresses) are skipped.
func (o *Opportunity) RouteAddresses() []common.Address {
	out := make([]common.Address, 0, len(o.Tokens))
	for _, t := range o.Tokens {
		if common.IsHexAddress(t) {
			out = append(out, common.HexToAddress(t))
		}
	}
	return out
}

// ExecutionResult is the outcome reported by the execution path for a single
// attempted arbitrage. ProfitUSD is signed: negative on a losing execution.
type ExecutionResult struct {
	Success   bool    `json:"success"`
	ProfitUSD float64 `json:"profit_usd"`
	TxHash    string  `json:"tx_hash,omitempty"`
	Error     string  `json:"error,omitempty"`
}
