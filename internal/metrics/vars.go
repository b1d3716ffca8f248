package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OpportunitiesScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apex_opportunities_scored_total",
		Help: "Opportunities received and scored",
	})

	OpportunitiesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apex_opportunities_skipped_total",
		Help: "Opportunities scored below the execution threshold",
	})

	ExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apex_executions_total",
		Help: "Execution attempts by outcome",
	}, []string{"outcome"}) // success | failure

	TotalProfitUSD = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apex_total_profit_usd",
		Help: "Cumulative realized profit (USD)",
	})

	SuccessRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apex_success_rate",
		Help: "Rolling-window execution success rate",
	})

	ScoreHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apex_opportunity_score",
		Help:    "Distribution of overall opportunity scores",
		Buckets: []float64{10, 20, 30, 40, 50, 65, 75, 85, 95, 100},
	})
)

func init() {
	prometheus.MustRegister(
		OpportunitiesScored,
		OpportunitiesSkipped,
		ExecutionsTotal,
		TotalProfitUSD,
		SuccessRate,
		ScoreHist,
	)
}
