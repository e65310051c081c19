package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the venue.
type Metrics struct {
	// Settlement
	TradesSettled  *prometheus.CounterVec
	TradesRejected *prometheus.CounterVec
	SettleDuration *prometheus.HistogramVec
	FeesCollected  *prometheus.CounterVec
	RebatesPaid    *prometheus.CounterVec
	RealizedPnl    *prometheus.CounterVec

	// Collateral
	Deposits    *prometheus.CounterVec
	Withdrawals *prometheus.CounterVec

	// Funding & rewards
	FundingTransfers *prometheus.CounterVec
	FundingAmount    *prometheus.CounterVec
	RewardsClaimed   prometheus.Counter
	RewardsAmount    prometheus.Counter

	// Ingestion
	CommandsReceived *prometheus.CounterVec
	CommandsFailed   *prometheus.CounterVec
	PriceUpdates     *prometheus.CounterVec

	// Storage
	StoreErrors *prometheus.CounterVec

	// Query API
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	settleBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		TradesSettled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_trades_settled_total",
			Help: "Trades settled against market inventory",
		}, []string{"market", "side"}),

		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_trades_rejected_total",
			Help: "Trades rejected by the solvency gate or validation",
		}, []string{"market", "reason"}),

		SettleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "synth_settle_duration_seconds",
			Help:    "Time to settle one trade including store commit",
			Buckets: settleBuckets,
		}, []string{"market"}),

		FeesCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_fees_collected_total",
			Help: "Fees charged, amount units",
		}, []string{"market", "class"}),

		RebatesPaid: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_rebates_paid_total",
			Help: "Maker rebates credited, amount units",
		}, []string{"market"}),

		RealizedPnl: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_realized_pnl_total",
			Help: "Absolute realized pnl settled, amount units",
		}, []string{"market"}),

		Deposits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_deposits_total",
			Help: "Collateral deposits",
		}, []string{"symbol"}),

		Withdrawals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_withdrawals_total",
			Help: "Collateral withdrawals",
		}, []string{"symbol"}),

		FundingTransfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_funding_transfers_total",
			Help: "Yield redistributions settled",
		}, []string{"market", "funded_from"}),

		FundingAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_funding_amount_total",
			Help: "Absolute funding transferred, amount units",
		}, []string{"market"}),

		RewardsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_rewards_claimed_total",
			Help: "Successful reward claims",
		}),

		RewardsAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_rewards_amount_total",
			Help: "Rewards distributed, amount units",
		}),

		CommandsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_commands_received_total",
			Help: "Inbound commands by subject",
		}, []string{"subject"}),

		CommandsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_commands_failed_total",
			Help: "Commands that failed parsing or execution",
		}, []string{"subject", "reason"}),

		PriceUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_price_updates_total",
			Help: "Oracle price updates applied",
		}, []string{"feed"}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_store_errors_total",
			Help: "Store transaction failures",
		}, []string{"op"}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "synth_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}
