package httpmiddleware

import (
	"strconv"
	"time"

	"shortl.local/gee"
	"shortl.local/internal/platform/metrics"
)

// Metrics records request count, latency and in-flight requests, labelled by
// route pattern. Unmatched paths share one label so scanners cannot blow up
// the series count.
func Metrics() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		start := time.Now()
		metrics.HTTPInflightRequests.Inc()

		ctx.Next()

		metrics.HTTPInflightRequests.Dec()
		route := ctx.RoutePattern
		if route == "" {
			route = "UNMATCHED"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(ctx.Method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(ctx.Method, route).Observe(time.Since(start).Seconds())
	}
}
