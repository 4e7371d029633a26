package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartServer serves the metrics gathered from g on its own port. A nil g
// uses the default registry.
func StartServer(port int, g prometheus.Gatherer) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newMux(g),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}

func newMux(g prometheus.Gatherer) *http.ServeMux {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorLog: slogErrorLog{}}))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Phrase Decoder Metrics</h1><p><a href="/metrics">/metrics</a></p></body></html>`)
	})
	return mux
}

// slogErrorLog routes promhttp gathering errors into slog.
type slogErrorLog struct{}

func (slogErrorLog) Println(v ...any) {
	slog.Error("metrics gathering failed", "error", fmt.Sprint(v...))
}
