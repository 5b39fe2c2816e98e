// Package metrics exports engine outcomes to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeJamon/goEscrow/internal/core/tx"
)

const namespace = "escrowd"

// Registry holds the node's collectors. It implements tx.Observer.
type Registry struct {
	registry          *prometheus.Registry
	transactionsTotal *prometheus.CounterVec
	instructionsTotal *prometheus.CounterVec
	applyDuration     prometheus.Histogram
	ledgerSequence    prometheus.Gauge
}

func NewRegistry() *Registry {
	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Submitted transactions by result code",
	}, []string{"result"})

	instructions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "instructions_total",
		Help:      "Top-level instructions by program, instruction and transaction result",
	}, []string{"program", "instruction", "result"})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "apply_duration_seconds",
		Help:      "Time spent verifying and applying a transaction",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	sequence := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_sequence",
		Help:      "Sequence of the last committed transaction",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(transactions, instructions, duration, sequence)

	return &Registry{
		registry:          r,
		transactionsTotal: transactions,
		instructionsTotal: instructions,
		applyDuration:     duration,
		ledgerSequence:    sequence,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) TransactionApplied(_ context.Context, txn *tx.Transaction, result *tx.ApplyResult, elapsed time.Duration) {
	code := result.Result.String()
	m.transactionsTotal.WithLabelValues(code).Inc()
	m.applyDuration.Observe(elapsed.Seconds())
	if result.Applied {
		m.ledgerSequence.Set(float64(result.Sequence))
	}
	if txn == nil {
		return
	}
	for _, ix := range txn.Message.Instructions {
		program, instruction := splitName(tx.InstructionName(ix))
		m.instructionsTotal.WithLabelValues(program, instruction, code).Inc()
	}
}

func splitName(name string) (string, string) {
	program, instruction, ok := strings.Cut(name, ".")
	if !ok {
		return name, "unknown"
	}
	return program, instruction
}
