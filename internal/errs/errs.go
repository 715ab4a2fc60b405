// Package errs defines common error variables used across the application.
package errs

import "errors"

// Configuration errors. All of them are fatal before any work starts.
var (
	// ErrConfiguration is the umbrella for every invalid or missing setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrNilMode indicates that the mode flag is missing.
	ErrNilMode = errors.New("flag --mode is required")
	// ErrWrongMode indicates that the mode is not one of list, video, search.
	ErrWrongMode = errors.New("mode is not supported")
	// ErrNilQuery indicates that the query flag is missing.
	ErrNilQuery = errors.New("flag --query is required")
	// ErrWrongNum indicates that max-results or skip is out of range.
	ErrWrongNum = errors.New("number out of range")
	// ErrNoKeyFile indicates that the API key file does not exist or is empty.
	ErrNoKeyFile = errors.New("api key file doesn't exist")
	// ErrCreateOutputDir indicates that the output directory cannot be created.
	ErrCreateOutputDir = errors.New("can't create output directory")
)

// Catalog errors.
var (
	// ErrConnection indicates that the catalog API client could not be constructed.
	ErrConnection = errors.New("error connecting with the api")
	// ErrRequest indicates that a page or search request failed.
	ErrRequest = errors.New("error making the api request")
	// ErrInvalidWindow indicates a max-results below one or a negative skip.
	ErrInvalidWindow = errors.New("invalid result window")
	// ErrMalformedRecord indicates that a raw record lacks an expected field.
	ErrMalformedRecord = errors.New("malformed record")
)

// Conversion errors.
var (
	// ErrDownloadFailed indicates that the conversion endpoint never returned a usable payload.
	ErrDownloadFailed = errors.New("failed to download")
	// ErrMoveFailed indicates that the payload was fetched but could not be placed in the output directory.
	ErrMoveFailed = errors.New("error moving the file")
	// ErrPayloadTooSmall indicates a body under the minimum size, usually an HTML error page.
	ErrPayloadTooSmall = errors.New("payload too small")
	// ErrNotAudio indicates an HTML or text body where audio was expected.
	ErrNotAudio = errors.New("payload is not audio")
	// ErrPermanent marks conversion failures that inline retry cannot fix.
	ErrPermanent = errors.New("permanent failure")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no proxies are available.
	ErrNoProxiesAvailable = errors.New("no proxies available")
)
