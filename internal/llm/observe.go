package llm

import (
	"time"

	"doc-splitter/internal/metrics"
)

const (
	kindChat   = "chat"
	kindVision = "vision"
)

func observe(provider, kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ModelRequestsTotal.WithLabelValues(provider, kind, status).Inc()
	metrics.ModelRequestDuration.WithLabelValues(provider, kind).Observe(time.Since(start).Seconds())
}
