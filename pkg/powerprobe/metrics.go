package powerprobe

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/PowerProbe/internal/ports"
)

// Status is served on /status while a capture runs.
type Status struct {
	SessionID   string    `json:"session_id"`
	CaptureFile string    `json:"capture_file,omitempty"`
	Topology    Topology  `json:"topology"`
	Scenario    Scenario  `json:"scenario"`
	QueueLength int       `json:"queue_length"`
	WAL         WALStats  `json:"wal"`
	Time        time.Time `json:"time"`
}

type metricsServer struct {
	srv *http.Server
	ln  net.Listener
}

func (m *metricsServer) Addr() string { return m.ln.Addr().String() }

func (m *metricsServer) Shutdown(ctx context.Context) error {
	if err := m.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *CaptureRuntime) router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.Status())
	}).Methods(http.MethodGet)
	return router
}

// Status snapshots the running capture.
func (r *CaptureRuntime) Status() Status {
	return Status{
		SessionID:   r.sessionID,
		CaptureFile: r.CapturePath(),
		Topology:    r.cfg.Capture.Topology,
		Scenario:    r.cfg.Capture.Scenario,
		QueueLength: r.queue.Len(),
		WAL:         r.wal.Stats(),
		Time:        r.now(),
	}
}

// MetricsAddr is the address the metrics server listens on, or "" before Run.
func (r *CaptureRuntime) MetricsAddr() string {
	if r.metrics == nil {
		return ""
	}
	return r.metrics.Addr()
}

func (r *CaptureRuntime) startMetrics() {
	ln, err := net.Listen("tcp", r.cfg.Metrics.Addr)
	if err != nil {
		// capture still runs without an HTTP endpoint
		r.obs.LogError("metrics_listen_failed", err, ports.Field{Key: "addr", Value: r.cfg.Metrics.Addr})
	} else {
		r.metrics = &metricsServer{
			srv: &http.Server{Handler: r.router(), ReadHeaderTimeout: 5 * time.Second},
			ln:  ln,
		}
		go func(m *metricsServer) {
			if err := m.srv.Serve(m.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.obs.LogError("metrics_server_exited", err)
			}
		}(r.metrics)
	}

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}
