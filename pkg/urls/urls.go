// Package urls provides utility functions for working with URLs.
package urls

import (
	"net/url"
	"strings"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"

	watchURL = "https://www.youtube.com/watch?v="
)

// IsURLValid checks if the given URL is valid.
func IsURLValid(raw string) bool {
	u, err := url.Parse(raw)

	return err == nil && u.Scheme != "" && u.Host != "" && (u.Scheme == schemeHTTP || u.Scheme == schemeHTTPS)
}

// Normalize trims spaces, parses and returns the URL in string format.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return u.String()
}

// WatchURL returns the public watch page of a video id.
func WatchURL(videoID string) string {
	return watchURL + url.QueryEscape(videoID)
}

// Expand substitutes the query-escaped value for the first %s placeholder in template.
// Other percent sequences are left untouched.
// Example: Expand("https://conv.example/fetch?video=%s", "https://www.youtube.com/watch?v=x")
func Expand(template, value string) string {
	return strings.Replace(template, "%s", url.QueryEscape(value), 1)
}
