// Package metrics exposes Prometheus collectors for counting runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	FramesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fishcount_frames_processed_total",
		Help: "Total number of frames read from video sources",
	})

	RegionsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fishcount_regions_detected_total",
		Help: "Total number of candidate motion regions found",
	})

	RegionsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fishcount_regions_accepted_total",
		Help: "Total number of regions that passed the area filter",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fishcount_runs_total",
		Help: "Total number of processing runs, by status",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fishcount_run_duration_seconds",
		Help:    "Wall time of a processing run",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fishcount_stage_duration_seconds",
		Help:    "Per-frame duration of a pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"stage"})
)

// Handler returns the mux served by StartServer.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// StartServer serves /metrics and /healthz on addr in the background.
// The caller owns shutdown of the returned server.
func StartServer(addr string, logger logrus.FieldLogger) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: Handler(),
	}

	go func() {
		logger.WithField("addr", addr).Info("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server error")
		}
	}()

	return srv
}
