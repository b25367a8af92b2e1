package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/topology"
)

// Namespace prefixes every metric name.
const Namespace = "nvldiag"

// Source is a device whose links can be scraped. *device.Device
// implements it.
type Source interface {
	ID() string
	Topology() (*topology.Topology, error)
	GetErrorCounts(ctx context.Context, id model.LinkID) (model.CounterSet, error)
	GetLinkPowerStateStatus(id model.LinkID) (model.PowerStateStatus, error)
}

// Config configures a Collector.
type Config struct {
	// Timeout bounds the counter reads of one scrape.
	Timeout time.Duration

	// Power enables the power-state metrics. Devices without power-state
	// control are skipped silently.
	Power bool

	// Logger is the optional logger. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second, Power: true}
}

var (
	linkUpDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "link", "active"),
		"Whether the link is trained to high speed.",
		[]string{"device", "link"}, nil,
	)
	errorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "link", "errors_total"),
		"Accumulated link errors by kind, including counts cached across hardware clears.",
		[]string{"device", "link", "kind"}, nil,
	)
	overflowDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "link", "counter_overflow"),
		"Whether the hardware counter of a kind saturated.",
		[]string{"device", "link", "kind"}, nil,
	)
	powerDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "link", "low_power"),
		"Whether the sub-link is currently in low power.",
		[]string{"device", "link", "direction"}, nil,
	)
)

// Collector is a prometheus.Collector over a set of devices.
type Collector struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	sources []Source

	scrapeErrors *prometheus.CounterVec
}

// NewCollector creates a collector over sources.
func NewCollector(cfg Config, sources ...Source) *Collector {
	return &Collector{
		cfg:     cfg,
		logger:  cfg.Logger,
		sources: sources,
		scrapeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scrape_errors_total",
			Help:      "Number of failed link reads during scrapes.",
		}, []string{"device"}),
	}
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// Add registers another device.
func (c *Collector) Add(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, s)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- linkUpDesc
	ch <- errorsDesc
	ch <- overflowDesc
	ch <- powerDesc
	c.scrapeErrors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := append([]Source(nil), c.sources...)
	c.mu.RUnlock()

	ctx := context.Background()
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	for _, s := range sources {
		c.collectDevice(ctx, s, ch)
	}
	c.scrapeErrors.Collect(ch)
}

func (c *Collector) collectDevice(ctx context.Context, s Source, ch chan<- prometheus.Metric) {
	dev := s.ID()
	topo, err := s.Topology()
	if err != nil {
		c.fail(dev, "topology", err)
		return
	}
	for _, l := range topo.Links() {
		link := strconv.FormatUint(uint64(l.ID), 10)
		ch <- prometheus.MustNewConstMetric(linkUpDesc, prometheus.GaugeValue, boolValue(l.Active), dev, link)

		counts, err := s.GetErrorCounts(ctx, l.ID)
		if err != nil {
			c.fail(dev, "counters", err, "link", l.ID)
		} else {
			for _, k := range counts.Kinds() {
				v := counts[k]
				ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(v.Count), dev, link, k.String())
				ch <- prometheus.MustNewConstMetric(overflowDesc, prometheus.GaugeValue, boolValue(v.Overflow), dev, link, k.String())
			}
		}

		if !c.cfg.Power || !l.Active {
			continue
		}
		st, err := s.GetLinkPowerStateStatus(l.ID)
		if errors.Is(err, linkerr.Unsupported) {
			continue
		}
		if err != nil {
			c.fail(dev, "power", err, "link", l.ID)
			continue
		}
		for _, d := range []model.Direction{model.DirRx, model.DirTx} {
			low := st.Sublink(d).Current == model.PowerLowPower
			ch <- prometheus.MustNewConstMetric(powerDesc, prometheus.GaugeValue, boolValue(low), dev, link, d.String())
		}
	}
}

func (c *Collector) fail(dev, what string, err error, args ...any) {
	c.scrapeErrors.WithLabelValues(dev).Inc()
	c.debug("scrape failed", append([]any{"device", dev, "read", what, "error", err}, args...)...)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Handler returns an HTTP handler serving the metrics of c on a dedicated
// registry.
func Handler(c *Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
