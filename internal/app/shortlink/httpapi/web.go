package httpapi

import (
	"net/http"

	"shortl.local/gee"
)

// RegisterWebRoutes sends / to the frontend and serves the frontend under
// /home. The /home routes also cover /home/ and any client-side route below
// it.
func RegisterWebRoutes(r *gee.Engine, frontend gee.HandlerFunc) {
	r.GET("/", func(ctx *gee.Context) {
		ctx.Redirect(http.StatusFound, "/home")
	})
	r.GET("/home", frontend)
	r.GET("/home/*filepath", frontend)
}
