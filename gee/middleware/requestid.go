package middleware

import (
	"shortl.local/gee"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// ReqID propagates the caller's X-Request-ID or mints a new one, and echoes it
// on the response.
func ReqID() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		id := ctx.Req.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			ctx.Req.Header.Set(RequestIDHeader, id)
		}
		ctx.SetHeader(RequestIDHeader, id)

		ctx.Next()
	}
}
