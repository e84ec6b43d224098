package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TransformCollector bundles Prometheus metrics for a transform run. A batch
// run has no scrape endpoint, so metrics are usually flushed to a node
// exporter textfile with WriteTextfile.
type TransformCollector struct {
	gatherer prometheus.Gatherer

	MarketsCreated    *prometheus.CounterVec
	ExchangesRelinked *prometheus.CounterVec
	DatasetsRescaled  *prometheus.CounterVec
	UnresolvedDemand  *prometheus.CounterVec
	PhaseDurations    *prometheus.HistogramVec
	InventoryDatasets prometheus.Gauge
}

// NewTransformCollector registers transform metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewTransformCollector(reg prometheus.Registerer) (*TransformCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	markets, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powermix_markets_created_total",
		Help: "Electricity market groups created, labeled by voltage tier.",
	}, []string{"tier"}))
	if err != nil {
		return nil, err
	}

	relinked, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powermix_exchanges_relinked_total",
		Help: "Consumer exchanges pointed at a new market group, labeled by voltage tier.",
	}, []string{"tier"}))
	if err != nil {
		return nil, err
	}

	rescaled, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powermix_datasets_rescaled_total",
		Help: "Power plant datasets rescaled to scenario efficiency, labeled by technology.",
	}, []string{"technology"}))
	if err != nil {
		return nil, err
	}

	unresolved, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powermix_unresolved_demand_total",
		Help: "Technology shares that found no supplier and were zeroed, labeled by voltage tier.",
	}, []string{"tier"}))
	if err != nil {
		return nil, err
	}

	phases, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "powermix_phase_duration_seconds",
		Help:    "Duration of transform phases in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"phase"}))
	if err != nil {
		return nil, err
	}

	datasets, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "powermix_inventory_datasets",
		Help: "Number of datasets in the inventory after the last phase.",
	}))
	if err != nil {
		return nil, err
	}

	return &TransformCollector{
		gatherer:          gatherer,
		MarketsCreated:    markets,
		ExchangesRelinked: relinked,
		DatasetsRescaled:  rescaled,
		UnresolvedDemand:  unresolved,
		PhaseDurations:    phases,
		InventoryDatasets: datasets,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *TransformCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TransformCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metric values in the text exposition
// format for the node exporter textfile collector.
func (c *TransformCollector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.gatherer)
}

// MarketCreated satisfies core.MetricsRecorder.
func (c *TransformCollector) MarketCreated(tier string) {
	if c == nil || c.MarketsCreated == nil {
		return
	}
	c.MarketsCreated.WithLabelValues(tier).Inc()
}

// ExchangeRelinked satisfies core.MetricsRecorder.
func (c *TransformCollector) ExchangeRelinked(tier string) {
	if c == nil || c.ExchangesRelinked == nil {
		return
	}
	c.ExchangesRelinked.WithLabelValues(tier).Inc()
}

// DatasetRescaled satisfies core.MetricsRecorder.
func (c *TransformCollector) DatasetRescaled(technology string) {
	if c == nil || c.DatasetsRescaled == nil {
		return
	}
	c.DatasetsRescaled.WithLabelValues(technology).Inc()
}

// DemandUnresolved satisfies core.MetricsRecorder.
func (c *TransformCollector) DemandUnresolved(tier string) {
	if c == nil || c.UnresolvedDemand == nil {
		return
	}
	c.UnresolvedDemand.WithLabelValues(tier).Inc()
}

// ObservePhase satisfies core.MetricsRecorder.
func (c *TransformCollector) ObservePhase(phase string, d time.Duration, datasets int) {
	if c == nil {
		return
	}
	if c.PhaseDurations != nil {
		c.PhaseDurations.WithLabelValues(phase).Observe(d.Seconds())
	}
	if c.InventoryDatasets != nil {
		c.InventoryDatasets.Set(float64(datasets))
	}
}

// register adds c to reg. When an equal collector is already registered the
// existing one is returned, so several collectors can share a registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("collector already registered as %T", are.ExistingCollector)
	}
	return existing, nil
}
