package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server serves /metrics on its own listener until it fails.
func Server(listenAddr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Serving metrics", zap.String("addr", listenAddr))
	if err := http.ListenAndServe(listenAddr, mux); err != nil {
		logger.Error("Metrics listener stopped", zap.Error(err))
	}
}
