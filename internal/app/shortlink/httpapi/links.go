package httpapi

import (
	"errors"
	"net/http"
	"time"

	"shortl.local/gee"
	"shortl.local/internal/app/shortlink"
	"shortl.local/internal/app/shortlink/events"
)

const (
	msgInvalidURL     = "Invalid URL, only http and https links can be shortened"
	msgWrongParams    = "Wrong parameters sent"
	msgLinkNotFound   = "No link found"
	msgTokenCollision = "Could not create a unique short link, please try again"
	msgServerError    = "An unknown server error occurred, please try again"
	msgRedirectError  = "An unknown error occurred. The database threw an error"
)

type ShortenRequest struct {
	URL string `json:"url"`
}

type ShortenResponse struct {
	Token string `json:"shortl"`
}

type StatsResponse struct {
	URL          string `json:"url"`
	Token        string `json:"shortl"`
	ViewCount    int64  `json:"view_count"`
	ShortenCount int64  `json:"shorten_count"`
}

func NewShortenHandler(svc LinkService, collector events.Collector) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		var req ShortenRequest
		if err := ctx.BindJSON(&req); err != nil {
			return
		}

		link, err := svc.Shorten(ctx.Req.Context(), req.URL)
		if err != nil {
			switch {
			case errors.Is(err, shortlink.ErrInvalidURL):
				ctx.AbortWithError(http.StatusBadRequest, msgInvalidURL)
			case errors.Is(err, shortlink.ErrTokenCollision):
				ctx.AbortWithError(http.StatusInternalServerError, msgTokenCollision)
			default:
				ctx.AbortWithError(http.StatusInternalServerError, msgServerError)
			}
			return
		}

		collector.Collect(events.LinkEvent{
			Type:         events.TypeShortened,
			Token:        link.Token,
			URL:          link.LongURL,
			ViewCount:    link.ViewCount,
			ShortenCount: link.ShortenCount,
			At:           time.Now(),
		})
		ctx.JSON(http.StatusOK, ShortenResponse{Token: link.Token})
	}
}

// NewStatsHandler answers GET /api/stats?url=... or ?shortl=...; url wins
// when both are present.
func NewStatsHandler(svc LinkService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		link, err := svc.GetStats(ctx.Req.Context(), ctx.Query("url"), ctx.Query("shortl"))
		if err != nil {
			switch {
			case errors.Is(err, shortlink.ErrBadRequest):
				ctx.AbortWithError(http.StatusBadRequest, msgWrongParams)
			case errors.Is(err, shortlink.ErrNotFound):
				ctx.AbortWithError(http.StatusNotFound, msgLinkNotFound)
			default:
				ctx.AbortWithError(http.StatusInternalServerError, msgServerError)
			}
			return
		}
		ctx.JSON(http.StatusOK, StatsResponse{
			URL:          link.LongURL,
			Token:        link.Token,
			ViewCount:    link.ViewCount,
			ShortenCount: link.ShortenCount,
		})
	}
}

func NewRedirectHandler(svc LinkService, collector events.Collector) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		token := ctx.Param("token")
		target, err := svc.ResolveRedirect(ctx.Req.Context(), token)
		if err != nil {
			if errors.Is(err, shortlink.ErrNotFound) {
				ctx.AbortWithError(http.StatusNotFound, msgLinkNotFound)
				return
			}
			ctx.AbortWithError(http.StatusInternalServerError, msgRedirectError)
			return
		}

		collector.Collect(events.LinkEvent{
			Type:  events.TypeRedirected,
			Token: token,
			URL:   target,
			At:    time.Now(),
		})
		ctx.Redirect(http.StatusFound, target)
	}
}
