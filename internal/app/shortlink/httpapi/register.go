package httpapi

import (
	"context"

	"shortl.local/gee"
	"shortl.local/internal/app/shortlink"
	"shortl.local/internal/app/shortlink/events"
)

// LinkService is the slice of *shortlink.Service the handlers need.
type LinkService interface {
	Shorten(ctx context.Context, longURL string) (shortlink.Link, error)
	ResolveRedirect(ctx context.Context, token string) (string, error)
	GetStats(ctx context.Context, longURL, token string) (shortlink.Link, error)
}

// RegisterAPIRoutes mounts the JSON API on a group, normally /api.
//
// Only POST is registered for /shorten; the engine answers other methods
// with 405 and an Allow header before any handler or store is touched.
func RegisterAPIRoutes(api *gee.RouterGroup, svc LinkService, collector events.Collector) {
	api.POST("/shorten", NewShortenHandler(svc, collector))
	api.GET("/stats", NewStatsHandler(svc))
}

// RegisterPublicRoutes mounts the redirect entry point on the root. It must
// be registered on the same engine as the static routes; those win because
// the router prefers static segments over :token.
func RegisterPublicRoutes(r *gee.Engine, svc LinkService, collector events.Collector) {
	r.GET("/:token", NewRedirectHandler(svc, collector))
}
