// Package metrics exposes the broker's operational health: a
// Prometheus registry of gauges/counters meaningful to a NextGraph
// broker process (pinned repos, live subscriptions, applied commits,
// in-flight actors, memory and goroutine counts) and a JSON-structured health
// log. Grounded on the teacher's `core/system_health_logging.go`
// (`HealthLogger`), generalised from block-height/peer-count/
// total-supply blockchain metrics to the repo/actor/commit metrics
// this module's components actually produce.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Snapshot captures a point-in-time view of broker health.
type Snapshot struct {
	PinnedRepos       int    `json:"pinned_repos"`
	LiveSubscriptions int    `json:"live_subscriptions"`
	InFlightActors    int    `json:"in_flight_actors"`
	AppliedCommits    uint64 `json:"applied_commits"`
	MemAlloc          uint64 `json:"mem_alloc"`
	NumGoroutines     int    `json:"goroutines"`
	Timestamp         int64  `json:"timestamp"`
}

// Source supplies the live counters a Snapshot reports. A broker
// implements this by wrapping its own bookkeeping; Collector doesn't
// reach into pkg/broker directly so the two packages stay decoupled.
type Source interface {
	PinnedRepoCount() int
	LiveSubscriptionCount() int
	InFlightActorCount() int
	AppliedCommitCount() uint64
}

// Collector periodically records a Source's state into Prometheus
// gauges and a structured log file, mirroring the teacher's
// HealthLogger shape: one registry, one JSON-formatted logrus output,
// a ticker-driven background collector, and a standalone metrics HTTP
// endpoint.
type Collector struct {
	source Source
	log    *logrus.Logger
	file   *os.File
	mu     sync.Mutex

	registry            *prometheus.Registry
	pinnedReposGauge    prometheus.Gauge
	subscriptionsGauge  prometheus.Gauge
	actorsGauge         prometheus.Gauge
	appliedCommitsGauge prometheus.Gauge
	memAllocGauge       prometheus.Gauge
	goroutinesGauge     prometheus.Gauge
	errorCounter        prometheus.Counter
}

// New configures a Collector writing JSON health logs to path.
func New(source Source, path string) (*Collector, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	lg := logrus.New()
	lg.SetFormatter(&logrus.JSONFormatter{})
	lg.SetOutput(f)
	reg := prometheus.NewRegistry()

	c := &Collector{source: source, log: lg, file: f, registry: reg}

	c.pinnedReposGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextgraph_broker_pinned_repos",
		Help: "Number of repos currently pinned by this broker",
	})
	c.subscriptionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextgraph_broker_live_subscriptions",
		Help: "Number of live broker subscriptions across all pinned repos",
	})
	c.actorsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextgraph_broker_in_flight_actors",
		Help: "Number of in-flight request/response actors across all connections",
	})
	c.appliedCommitsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextgraph_broker_applied_commits_total",
		Help: "Total commits applied by this broker's verifier",
	})
	c.memAllocGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextgraph_broker_mem_alloc_bytes",
		Help: "Current memory allocation in bytes",
	})
	c.goroutinesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nextgraph_broker_goroutines",
		Help: "Number of running goroutines",
	})
	c.errorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nextgraph_broker_log_errors_total",
		Help: "Total number of error events logged",
	})

	reg.MustRegister(
		c.pinnedReposGauge,
		c.subscriptionsGauge,
		c.actorsGauge,
		c.appliedCommitsGauge,
		c.memAllocGauge,
		c.goroutinesGauge,
		c.errorCounter,
	)

	return c, nil
}

// Close releases the underlying log file.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// LogEvent records an arbitrary message with the specified log level.
func (c *Collector) LogEvent(level logrus.Level, msg string) {
	c.mu.Lock()
	if level >= logrus.ErrorLevel {
		c.errorCounter.Inc()
	}
	c.log.Log(level, msg)
	c.mu.Unlock()
}

// Snapshot gathers a current reading from source and the Go runtime.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{Timestamp: time.Now().Unix(), NumGoroutines: runtime.NumGoroutine()}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.MemAlloc = mem.Alloc
	if c.source != nil {
		s.PinnedRepos = c.source.PinnedRepoCount()
		s.LiveSubscriptions = c.source.LiveSubscriptionCount()
		s.InFlightActors = c.source.InFlightActorCount()
		s.AppliedCommits = c.source.AppliedCommitCount()
	}
	return s
}

// Record captures the current snapshot and updates every gauge.
func (c *Collector) Record() {
	s := c.Snapshot()
	c.pinnedReposGauge.Set(float64(s.PinnedRepos))
	c.subscriptionsGauge.Set(float64(s.LiveSubscriptions))
	c.actorsGauge.Set(float64(s.InFlightActors))
	c.appliedCommitsGauge.Set(float64(s.AppliedCommits))
	c.memAllocGauge.Set(float64(s.MemAlloc))
	c.goroutinesGauge.Set(float64(s.NumGoroutines))
	c.LogEvent(logrus.InfoLevel, "metrics recorded")
}

// Run periodically records metrics until ctx is cancelled.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Record()
		case <-ctx.Done():
			return
		}
	}
}

// StartServer binds addr and exposes /metrics and /healthz on it,
// returning the http.Server (with Addr rewritten to the resolved
// listen address, useful when addr uses port 0) so callers manage its
// lifecycle.
func (c *Collector) StartServer(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.LogEvent(logrus.ErrorLevel, err.Error())
		}
	}()
	return srv, nil
}
