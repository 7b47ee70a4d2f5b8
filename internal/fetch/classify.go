package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// ErrorKind is the closed set of failure classes surfaced to users.
type ErrorKind string

const (
	KindUnsupportedURL ErrorKind = "unsupported_url"
	KindPrivate        ErrorKind = "private_or_login_required"
	KindGeoRestricted  ErrorKind = "geo_restricted"
	KindRateLimited    ErrorKind = "rate_limited"
	KindDRMProtected   ErrorKind = "drm_protected"
	KindNoMediaFound   ErrorKind = "no_media_found"
	KindNotFound       ErrorKind = "not_found"
	KindUnknown        ErrorKind = "unknown"
)

var kindMessages = map[ErrorKind]string{
	KindUnsupportedURL: "This URL is not supported. Please use a valid YouTube link.",
	KindPrivate:        "This content is private or requires login. We can only download public content.",
	KindGeoRestricted:  "This content is geo-restricted and not available in your region.",
	KindRateLimited:    "The source is rate-limiting requests from this server. Please try again in a few minutes.",
	KindDRMProtected:   "This platform uses DRM encryption which makes downloading technically impossible. Please use a supported platform such as YouTube.",
	KindNoMediaFound:   "No downloadable media was found at this URL.",
	KindNotFound:       "This video does not exist or has been removed.",
	KindUnknown:        "Unable to fetch this media. The content may be private, region-locked, or temporarily unavailable.",
}

// Error is a classified fetcher failure. The raw cause is kept for logs
// and unwrapping; only Message is meant for users.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classified error with the stock message for its kind.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: kindMessages[kind], cause: cause}
}

// Hosts that are DRM walled gardens; extraction can never succeed there,
// so the URL alone decides the class.
var drmHosts = []string{
	"spotify.com", "netflix.com", "disneyplus.com", "hulu.com",
	"primevideo.com", "music.apple.com", "tv.apple.com",
}

// Classify maps an extraction-library failure to the error taxonomy.
// This is the single place failure text is interpreted; everything
// downstream switches on Kind, never on message content.
func Classify(rawURL string, err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}

	if host := hostOf(rawURL); host != "" {
		for _, h := range drmHosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return NewError(KindDRMProtected, err)
			}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case contains(msg, "login", "sign in", "private", "members-only", "age restricted", "age-restricted"):
		return NewError(KindPrivate, err)
	case contains(msg, "not available in your country", "geo", "region"):
		return NewError(KindGeoRestricted, err)
	case contains(msg, "429", "too many requests", "rate limit"):
		return NewError(KindRateLimited, err)
	case contains(msg, "drm"):
		return NewError(KindDRMProtected, err)
	case contains(msg, "can't find video", "video id", "invalid character", "404", "no longer available", "has been removed"):
		return NewError(KindNotFound, err)
	case contains(msg, "no formats", "no audio formats", "no video formats"):
		return NewError(KindNoMediaFound, err)
	default:
		return NewError(KindUnknown, err)
	}
}

func contains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
