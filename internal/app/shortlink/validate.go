package shortlink

import (
	"net/url"
	"regexp"
)

// IsValidURL reports whether candidate may be used as a redirect target.
// Only absolute http and https URLs with a host are accepted; anything else
// (javascript:, app deep links, bare hosts) could be laundered through the
// redirect.
func IsValidURL(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	// url.Parse lowercases the scheme.
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

var tokenRe = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

// IsPlausibleToken reports whether token could have been issued by this
// service. Lookups for anything else are answered without a store round trip.
func IsPlausibleToken(token string) bool {
	return tokenRe.MatchString(token)
}
