// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricType представляет тип метрики
type MetricType string

const (
	OperationCounterType  MetricType = "operation_counter"
	OperationDurationType MetricType = "operation_duration"
	TradeVolumeType       MetricType = "trade_volume"
	GraduationCounterType MetricType = "graduation_counter"
	AssetReserveType      MetricType = "asset_reserve"
	ProtocolIncomeType    MetricType = "protocol_income"
)

// Collector владеет набором метрик рынка и собственным prometheus.Registry,
// чтобы несколько экземпляров (например, в тестах) не конфликтовали.
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	volume      *prometheus.CounterVec
	graduations prometheus.Counter
	reserves    *prometheus.GaugeVec
	income      *prometheus.CounterVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Market entry points by outcome",
			},
			[]string{"op", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Market entry point latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"op"},
		),
		volume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trade_volume_native",
				Help:      "Native value traded through the curves, in whole units",
			},
			[]string{"side"},
		),
		graduations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graduations_total",
				Help:      "Assets handed off to the constant-product pool",
			},
		),
		reserves: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "asset_reserve_native",
				Help:      "Curve reserve per asset after the last trade, in whole units",
			},
			[]string{"asset"},
		),
		income: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fees_collected_native",
				Help:      "Protocol fees and creator royalties collected, in whole units",
			},
			[]string{"kind"},
		),
	}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		OperationCounterType:  c.operations,
		OperationDurationType: c.durations,
		TradeVolumeType:       c.volume,
		GraduationCounterType: c.graduations,
		AssetReserveType:      c.reserves,
		ProtocolIncomeType:    c.income,
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
