package httpmiddleware

import (
	"go.opentelemetry.io/otel/trace"

	"shortl.local/gee"
)

// TraceName renames the otelhttp server span after the matched route, so
// traces group by "GET /:token" rather than by raw path.
func TraceName() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		route := ctx.RoutePattern
		if route == "" {
			route = "UNMATCHED"
		}
		trace.SpanFromContext(ctx.Req.Context()).SetName(ctx.Method + " " + route)
		ctx.Next()
	}
}
