// Package metrics exposes Prometheus collectors for the polling loop.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oisentry",
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Polling cycles by outcome (warmup, steady, skipped)",
		},
		[]string{"outcome"},
	)

	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oisentry",
			Subsystem: "exchange",
			Name:      "fetch_failures_total",
			Help:      "Open-interest fetch failures by exchange and kind",
		},
		[]string{"exchange", "kind"},
	)

	Alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oisentry",
			Subsystem: "monitor",
			Name:      "alerts_total",
			Help:      "Fired alerts by category",
		},
		[]string{"category"},
	)

	OpenInterest = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "oisentry",
			Subsystem: "exchange",
			Name:      "open_interest_contracts",
			Help:      "Last observed open interest by exchange",
		},
		[]string{"exchange"},
	)

	ZScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "oisentry",
			Subsystem: "monitor",
			Name:      "zscore",
			Help:      "Last window z-score by exchange",
		},
		[]string{"exchange"},
	)

	HistoryLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "oisentry",
			Subsystem: "history",
			Name:      "length",
			Help:      "Ticks currently retained in the history buffer",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(Cycles, FetchFailures, Alerts, OpenInterest, ZScore, HistoryLength)
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
