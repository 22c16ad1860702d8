package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kstaniek/uart-bridge/internal/logging"
)

// Prometheus collectors. Direction labels are bounded to the two relay
// directions; fault ops to read|write.
var (
	RelayBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bytes_total",
		Help: "Total bytes forwarded, by direction.",
	}, []string{"direction"})
	RelayChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_chunks_total",
		Help: "Total non-empty reads forwarded as one destination write.",
	}, []string{"direction"})
	RelayReadTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_read_timeouts_total",
		Help: "Reads that returned no data within the read window.",
	}, []string{"direction"})
	RelayFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_faults_total",
		Help: "Driver-level transfer faults after setup, by direction and op.",
	}, []string{"direction", "op"})
	RelayDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dropped_chunks_total",
		Help: "Chunks dropped because the destination queue was full.",
	}, []string{"direction"})
	RelayChunkSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_chunk_bytes",
		Help:    "Size of forwarded chunks in bytes.",
		Buckets: []float64{1, 4, 16, 64, 256, 1024, 4096},
	}, []string{"direction"})
	RelayLoopUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_loop_up",
		Help: "1 while the forwarding loop for a direction is running.",
	}, []string{"direction"})
	Heartbeat = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_heartbeat_timestamp_seconds",
		Help: "Unix time of the last supervisory heartbeat.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrEndpointInit = "endpoint_init"
	ErrSerialRead   = "serial_read"
	ErrSerialWrite  = "serial_write"
	ErrTxOverflow   = "serial_tx_overflow"
	ErrEndpointGone = "endpoint_gone"
	ErrMDNS         = "mdns"
	ErrMetricsHTTP  = "metrics_http"
)

// Fault op labels.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
			IncError(ErrMetricsHTTP)
		}
	}()
	return srv
}

// AddForwarded records one forwarded chunk of n bytes.
func AddForwarded(direction string, n int) {
	RelayBytes.WithLabelValues(direction).Add(float64(n))
	RelayChunks.WithLabelValues(direction).Inc()
	RelayChunkSize.WithLabelValues(direction).Observe(float64(n))
}

func IncReadTimeout(direction string) { RelayReadTimeouts.WithLabelValues(direction).Inc() }

// IncFault counts a transfer fault and the matching errors_total series.
func IncFault(direction, op string) {
	RelayFaults.WithLabelValues(direction, op).Inc()
	if op == OpWrite {
		IncError(ErrSerialWrite)
	} else {
		IncError(ErrSerialRead)
	}
}

func IncDrop(direction string) {
	RelayDrops.WithLabelValues(direction).Inc()
	IncError(ErrTxOverflow)
}

// SetLoopUp flips the per-direction liveness gauge.
func SetLoopUp(direction string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	RelayLoopUp.WithLabelValues(direction).Set(v)
}

func SetHeartbeat(t time.Time) { Heartbeat.Set(float64(t.Unix())) }

func IncError(label string) { Errors.WithLabelValues(label).Inc() }

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrEndpointInit, ErrSerialRead, ErrSerialWrite,
		ErrTxOverflow, ErrEndpointGone, ErrMDNS, ErrMetricsHTTP,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // not wired yet: report ready so scrapes don't flap
		return true
	}
	return fn()
}
