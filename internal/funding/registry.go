package funding

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

// ErrNoSuitableProvider is the expected, recoverable outcome when the
// requested amount exceeds every registered provider's cap on a chain.
// Callers skip the opportunity; this is not fatal.
var ErrNoSuitableProvider = errors.New("no suitable flash-loan provider")

// Provider is one static flash-loan source on a chain.
type Provider struct {
	Name          string
	FeeRate       float64 // fraction of notional, e.g. 0.0009 for Aave V3
	MaxLoanAmount float64 // USD
	Contract      common.Address
}

// Selection is a chosen provider plus the fee it would charge for the
// requested amount.
type Selection struct {
	Provider
	EstimatedFee float64
}

type entry struct {
	name    string
	fee     float64
	maxLoan float64
	addr    string
}

// Static per-chain provider table. Addresses are kept lowercase here and
// normalized to EIP-55 form at registry construction; a mixed-case entry
// must already carry a valid checksum.
var builtin = map[types.Chain][]entry{
	types.ChainEthereum: {
		{"aave_v3", 0.0009, 30_000_000, "0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2"},
		{"balancer_v2", 0, 20_000_000, "0xba12222222228d8ba445958a75a0704d566bf2c8"},
		{"dydx_solo", 0, 10_000_000, "0x1e0447b19bb6ecfdae1e4ae1694b0c3659614e4e"},
	},
	types.ChainPolygon: {
		{"aave_v3", 0.0009, 15_000_000, "0x794a61358d6845594f94dc1db02a252b5b4814ad"},
		{"balancer_v2", 0, 8_000_000, "0xba12222222228d8ba445958a75a0704d566bf2c8"},
	},
	types.ChainArbitrum: {
		{"aave_v3", 0.0009, 20_000_000, "0x794a61358d6845594f94dc1db02a252b5b4814ad"},
		{"balancer_v2", 0, 12_000_000, "0xba12222222228d8ba445958a75a0704d566bf2c8"},
	},
	types.ChainOptimism: {
		{"aave_v3", 0.0009, 10_000_000, "0x794a61358d6845594f94dc1db02a252b5b4814ad"},
		{"balancer_v2", 0, 6_000_000, "0xba12222222228d8ba445958a75a0704d566bf2c8"},
	},
	types.ChainBase: {
		{"aave_v3", 0.0009, 8_000_000, "0xa238dd80c259a72e81d7e4664a9801593f98d1c5"},
		{"balancer_v2", 0, 5_000_000, "0xba12222222228d8ba445958a75a0704d566bf2c8"},
	},
	types.ChainBSC: {
		{"aave_v3", 0.0009, 6_000_000, "0x6807dc923806fe8fd134338eabca509979a7e0cb"},
	},
}

// Registry is the immutable per-chain provider table. Built once at startup;
// safe for concurrent reads.
type Registry struct {
	byChain map[types.Chain][]Provider
}

// NewRegistry validates every builtin entry and freezes the table.
// A malformed or mis-checksummed contract address is a fatal configuration
// error.
func NewRegistry() (*Registry, error) {
	return newRegistry(builtin)
}

func newRegistry(table map[types.Chain][]entry) (*Registry, error) {
	byChain := make(map[types.Chain][]Provider, len(table))
	for chain, entries := range table {
		ps := make([]Provider, 0, len(entries))
		for _, e := range entries {
			cs, err := checksumAddress(e.addr)
			if err != nil {
				return nil, fmt.Errorf("funding: %s/%s: %w", chain, e.name, err)
			}
			// lowercase entries are unchecksummed and accepted; mixed case
			// must match EIP-55 exactly
			if stripped := strip0x(e.addr); stripped != strings.ToLower(stripped) && "0x"+stripped != cs {
				return nil, fmt.Errorf("funding: %s/%s: checksum mismatch for %s", chain, e.name, e.addr)
			}
			if e.fee < 0 || e.fee >= 1 {
				return nil, fmt.Errorf("funding: %s/%s: fee rate %.4f out of [0,1)", chain, e.name, e.fee)
			}
			ps = append(ps, Provider{
				Name:          e.name,
				FeeRate:       e.fee,
				MaxLoanAmount: e.maxLoan,
				Contract:      common.HexToAddress(cs),
			})
		}
		byChain[chain] = ps
	}
	return &Registry{byChain: byChain}, nil
}

// Providers returns a copy of the table for one chain, nil if unknown.
func (r *Registry) Providers(chain types.Chain) []Provider {
	ps := r.byChain[chain]
	if ps == nil {
		return nil
	}
	out := make([]Provider, len(ps))
	copy(out, ps)
	return out
}

// Select picks the cheapest provider on chain able to lend amount.
// Candidates are filtered by capacity, then ranked by ascending fee rate;
// ties keep registry order, so zero-fee providers listed first win.
// Returns ErrNoSuitableProvider when every candidate's cap is too small.
func (r *Registry) Select(chain types.Chain, amount float64) (Selection, error) {
	cands, ok := r.byChain[chain]
	if !ok {
		return Selection{}, fmt.Errorf("funding: unknown chain %q", chain)
	}
	eligible := make([]Provider, 0, len(cands))
	for _, p := range cands {
		if p.MaxLoanAmount >= amount {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return Selection{}, fmt.Errorf("funding: amount %.2f exceeds every provider cap on %s: %w",
			amount, chain, ErrNoSuitableProvider)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].FeeRate < eligible[j].FeeRate
	})
	p := eligible[0]
	return Selection{Provider: p, EstimatedFee: amount * p.FeeRate}, nil
}

func strip0x(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
