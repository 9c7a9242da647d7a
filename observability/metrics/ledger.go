package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	blocks          prometheus.Counter
	maturedEntries  prometheus.Counter
	rewardsSum      *prometheus.GaugeVec
	bonded          prometheus.Gauge
	dispatchedMsgs  *prometheus.CounterVec
	dispatchFailure *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			blocks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stakevault_ledger_blocks_total",
				Help: "Count of processed begin-block hooks.",
			}),
			maturedEntries: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stakevault_ledger_unbonding_matured_total",
				Help: "Count of unbonding entries released to free balances.",
			}),
			rewardsSum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stakevault_ledger_rewards_distributed",
				Help: "Rewards distributed to delegators in the last block by denom.",
			}, []string{"denom"}),
			bonded: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "stakevault_ledger_bonded_validators",
				Help: "Number of active validators known to the ledger.",
			}),
			dispatchedMsgs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stakevault_ledger_dispatched_total",
				Help: "Count of ledger instructions applied by route.",
			}, []string{"route"}),
			dispatchFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stakevault_ledger_dispatch_failures_total",
				Help: "Count of ledger instructions rejected by route.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.blocks,
			ledgerRegistry.maturedEntries,
			ledgerRegistry.rewardsSum,
			ledgerRegistry.bonded,
			ledgerRegistry.dispatchedMsgs,
			ledgerRegistry.dispatchFailure,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveBlock(matured int, denom string, rewards float64) {
	if m == nil {
		return
	}
	m.blocks.Inc()
	m.maturedEntries.Add(float64(matured))
	if denom == "" {
		denom = "unknown"
	}
	m.rewardsSum.WithLabelValues(denom).Set(rewards)
}

func (m *LedgerMetrics) SetActiveValidators(count int) {
	if m == nil {
		return
	}
	m.bonded.Set(float64(count))
}

func (m *LedgerMetrics) ObserveDispatch(route string, err error) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if err != nil {
		m.dispatchFailure.WithLabelValues(route).Inc()
		return
	}
	m.dispatchedMsgs.WithLabelValues(route).Inc()
}

func (m *LedgerMetrics) InitRoute(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.dispatchedMsgs.WithLabelValues(route).Add(0)
	m.dispatchFailure.WithLabelValues(route).Add(0)
}
