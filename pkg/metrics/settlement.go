package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// SettlementMetrics tracks payout transitions and ledger movements.
type SettlementMetrics struct {
	payoutTransitions *prometheus.CounterVec
	ledgerMovements   *prometheus.CounterVec
	ledgerAmount      *prometheus.CounterVec
	bulkBatchSize     prometheus.Histogram
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_transitions_total",
		Help: "Payout requests entering each status.",
	}, []string{"status"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_total",
		Help: "Vendor ledger entries written, by type.",
	}, []string{"type"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_amount_total",
		Help: "Sum of vendor ledger amounts, by type.",
	}, []string{"type"})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payout_bulk_batch_size",
		Help:    "Number of payouts approved per bulk approval.",
		Buckets: []float64{1, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(transitions, movements, amount, batch)
	return &SettlementMetrics{
		payoutTransitions: transitions,
		ledgerMovements:   movements,
		ledgerAmount:      amount,
		bulkBatchSize:     batch,
	}
}

// IncPayoutTransition counts a payout moving into status.
func (m *SettlementMetrics) IncPayoutTransition(status string) {
	if m == nil || m.payoutTransitions == nil {
		return
	}
	m.payoutTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveLedgerMovement counts one entry of the given type and its amount.
func (m *SettlementMetrics) ObserveLedgerMovement(entryType string, amount decimal.Decimal) {
	if m == nil || m.ledgerMovements == nil {
		return
	}
	label := normalizeLabel(entryType)
	m.ledgerMovements.WithLabelValues(label).Inc()
	m.ledgerAmount.WithLabelValues(label).Add(amount.Abs().InexactFloat64())
}

// ObserveBulkBatch records how many payouts a bulk approval completed.
func (m *SettlementMetrics) ObserveBulkBatch(size int) {
	if m == nil || m.bulkBatchSize == nil {
		return
	}
	m.bulkBatchSize.Observe(float64(size))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
