package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the lifecycle engine.
type Metrics struct {
	// --- Lifecycle processing ---
	EventsApplied *prometheus.CounterVec // event fired and produced a result
	EventsEmpty   *prometheus.CounterVec // adapter polled, nothing due
	EventErrors   *prometheus.CounterVec // validation/missing-price failures
	MovesEmitted  *prometheus.CounterVec
	MoveValue     *prometheus.CounterVec // summed absolute move quantity
	TickDuration  prometheus.Histogram
	TerminalUnits prometheus.Gauge

	// --- Ingestion ---
	PriceTicks     *prometheus.CounterVec
	PriceParseErrs prometheus.Counter
	PublishDrops   prometheus.Counter

	// --- Persistence ---
	PersistRows    *prometheus.CounterVec
	PersistErrors  *prometheus.CounterVec
	PersistBatchDur prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	tickBuckets := []float64{
		0.00001, 0.00005, 0.0001, 0.00025, 0.0005,
		0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
	}

	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_events_applied_total",
			Help: "Lifecycle events that produced moves or a state change",
		}, []string{"symbol", "event_kind"}),

		EventsEmpty: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_events_empty_total",
			Help: "Adapter polls that returned an empty result",
		}, []string{"symbol"}),

		EventErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_event_errors_total",
			Help: "Processor failures (validation, missing price)",
		}, []string{"symbol"}),

		MovesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_moves_emitted_total",
			Help: "Ledger moves emitted by event processors",
		}, []string{"symbol", "unit"}),

		MoveValue: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_move_value_total",
			Help: "Summed quantity moved, by unit",
		}, []string{"unit"}),

		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sledger_tick_duration_seconds",
			Help:    "Time to process one scheduler tick across all products",
			Buckets: tickBuckets,
		}),

		TerminalUnits: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sledger_terminal_products",
			Help: "Products that reached a terminal state",
		}),

		PriceTicks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_price_ticks_total",
			Help: "Price ticks received from the feed",
		}, []string{"asset"}),

		PriceParseErrs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sledger_price_parse_errors_total",
			Help: "Malformed price tick payloads",
		}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sledger_publish_drops_total",
			Help: "Outbound events dropped due to full publish channel",
		}),

		PersistRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_persist_rows_total",
			Help: "Rows written to the settlement history",
		}, []string{"table"}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sledger_persist_errors_total",
			Help: "Postgres write failures",
		}, []string{"table"}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sledger_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}
