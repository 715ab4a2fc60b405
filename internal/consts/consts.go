// Package consts defines application-wide constants.
package consts

import "time"

// Catalog limits.
const (
	// MaxPageSize is the most items the catalog API returns per call.
	MaxPageSize = 50
)

// Conversion output.
const (
	// AudioExt is appended to every placed file.
	AudioExt = ".mp3"
	// PartialPattern names in-flight downloads inside the output directory.
	PartialPattern = ".ytmp3-*.part"
)

// Modes.
const (
	// ModeList downloads the items of a playlist.
	ModeList = "list"
	// ModeVideo downloads comma-separated video ids.
	ModeVideo = "video"
	// ModeSearch downloads the results of a text search.
	ModeSearch = "search"
)

// Console messages.
const (
	MsgEmpty         = "Couldn't find any items."
	MsgRequestError  = "Request error. Retrying:"
	MsgFailedSongs   = "Error while downloading: "
	MsgRetryDownload = "Retry download? (y/n)"
	MsgYouCanDoIt    = "Please type \"y\" or \"n\"."
	MsgMalformed     = "Skipping malformed item."
	MsgDownloading   = "Downloading"
	MsgDone          = "All downloads finished."
	MsgFailDownload  = "Failed to download."
	MsgFailMove      = "There was an error moving the file."
	MsgInterrupted   = "Interrupted."
)

// Storage.
const (
	// DirPerm is the mode used when creating the output directory.
	DirPerm = 0o755
	// FilePerm is the mode of placed audio files.
	FilePerm = 0o644
	// StalePartialAge is how old a partial download must be before cleanup removes it.
	StalePartialAge = time.Hour
	// MaxFileNameLen caps the sanitised title length in bytes.
	MaxFileNameLen = 200
)

// Proxy.
const (
	// MaxProxyBackoff caps the backoff of a repeatedly failing proxy.
	MaxProxyBackoff = time.Hour
	// ProxyHealthTimeout bounds a single proxy dial during the startup check.
	ProxyHealthTimeout = 10 * time.Second
)
