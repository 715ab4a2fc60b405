// Package config handles application configuration loading and management.
//
// Values come from the environment first (caarlos0/env) and are then
// overridden by command-line flags (pflag). The resulting Config is the
// read-only session for the rest of the run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"ytmp3/internal/consts"
	"ytmp3/internal/errs"
	"ytmp3/pkg/urls"
)

// ErrHelp is returned by New when --help was requested.
var ErrHelp = pflag.ErrHelp

// Config holds the application configuration.
type Config struct {
	App     App
	Query   Query
	Dir     Dir
	API     API
	Convert Convert
	Proxy   Proxy
	Metrics Metrics
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"YTMP3_LOG_LEVEL" envDefault:"warn"`
	LogJSON  bool   `env:"YTMP3_LOG_JSON"  envDefault:"false"`
	Quiet    bool   `env:"YTMP3_QUIET"     envDefault:"false"`
	Workers  int    `env:"YTMP3_WORKERS"   envDefault:"4"`
}

// Query selects what to download.
type Query struct {
	Mode       string `env:"YTMP3_MODE"`
	Query      string `env:"YTMP3_QUERY"`
	MaxResults int    `env:"YTMP3_MAX_RESULTS" envDefault:"25"`
	Skip       int    `env:"YTMP3_SKIP"        envDefault:"0"`
}

// Dir holds the output directory and the API key file path.
type Dir struct {
	Out     string `env:"YTMP3_DIR_OUT"      envDefault:"~/Music"`
	KeyFile string `env:"YTMP3_API_KEY_FILE" envDefault:"~/.config/youtubedownloader/apikey"`
}

// API configures the catalog client.
type API struct {
	// Endpoint overrides the YouTube Data API base path, mostly for tests.
	Endpoint string  `env:"YTMP3_API_ENDPOINT" envDefault:""`
	Rate     float64 `env:"YTMP3_API_RATE"     envDefault:"5"`
	Burst    int     `env:"YTMP3_API_BURST"    envDefault:"1"`
}

// Convert configures the conversion endpoint client.
type Convert struct {
	// Endpoint must contain exactly one %s, replaced by the escaped watch URL.
	Endpoint   string        `env:"YTMP3_CONVERT_ENDPOINT"    envDefault:"http://www.youtubeinmp3.com/fetch/?video=%s"`
	MinSize    int64         `env:"YTMP3_CONVERT_MIN_SIZE"    envDefault:"20000"`
	Attempts   int           `env:"YTMP3_CONVERT_ATTEMPTS"    envDefault:"3"`
	Backoff    time.Duration `env:"YTMP3_CONVERT_BACKOFF"     envDefault:"1s"`
	MaxBackoff time.Duration `env:"YTMP3_CONVERT_MAX_BACKOFF" envDefault:"10s"`
	Timeout    time.Duration `env:"YTMP3_CONVERT_TIMEOUT"     envDefault:"2m"`
}

// Proxy holds proxy configuration for conversion requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs
	List string `env:"YTMP3_PROXY_LIST" envDefault:""`
	// FailureBackoff is the initial backoff duration for failed proxies
	FailureBackoff time.Duration `env:"YTMP3_PROXY_FAILURE_BACKOFF" envDefault:"1m"`
	// MaxFailures is the maximum number of failures before a proxy is temporarily removed
	MaxFailures int `env:"YTMP3_PROXY_MAX_FAILURES" envDefault:"3"`

	// Proxies is the parsed list of proxy URLs
	Proxies []string `env:"-"`
}

// Metrics configures the optional Prometheus listener.
type Metrics struct {
	Addr string `env:"YTMP3_METRICS_ADDR" envDefault:""`
}

// New loads configuration from the environment, applies args as flag
// overrides, expands paths and validates the result.
func New(args []string) (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: parse env: %w", errs.ErrConfiguration, err)
	}

	err = cfg.parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}

		return nil, fmt.Errorf("%w: parse flags: %w", errs.ErrConfiguration, err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("%w: set absolute paths: %w", errs.ErrConfiguration, err)
	}

	cfg.Proxy.parseList()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// FlagSet returns the command-line flags bound to cfg. Current values act as defaults.
func (c *Config) FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ytmp3", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringVarP(&c.Query.Mode, "mode", "m", c.Query.Mode, "Type of the download (list, video, search).")
	fs.StringVarP(&c.Query.Query, "query", "q", c.Query.Query,
		"What to download. For list and video should be the id, for search should be a query.")
	fs.StringVarP(&c.Dir.Out, "out", "o", c.Dir.Out, "Where the downloads will store.")
	fs.StringVarP(&c.Dir.KeyFile, "key", "k", c.Dir.KeyFile, "Path to the file with the API key.")
	fs.BoolVar(&c.App.Quiet, "quiet", c.App.Quiet, "To silence the output.")
	fs.IntVarP(&c.Query.MaxResults, "max-results", "n", c.Query.MaxResults, "Max items to download. >= 1")
	fs.IntVarP(&c.Query.Skip, "skip", "s", c.Query.Skip, "Skip the first <i> items of the query. >= 0")
	fs.IntVarP(&c.App.Workers, "workers", "w", c.App.Workers, "Parallel conversions. >= 1")
	fs.StringVar(&c.App.LogLevel, "log-level", c.App.LogLevel, "Log level (debug, info, warn, error).")
	fs.BoolVar(&c.App.LogJSON, "log-json", c.App.LogJSON, "Write logs as JSON.")

	return fs
}

func (c *Config) parseFlags(args []string) error {
	fs := c.FlagSet()

	err := fs.Parse(args)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return nil
}

// Validate checks the session invariants.
func (c *Config) Validate() error {
	switch {
	case c.Query.Mode == "":
		return fmt.Errorf("%w: %w", errs.ErrConfiguration, errs.ErrNilMode)
	case !slices.Contains(Modes(), c.Query.Mode):
		return fmt.Errorf("%w: %w: %q", errs.ErrConfiguration, errs.ErrWrongMode, c.Query.Mode)
	case strings.TrimSpace(c.Query.Query) == "":
		return fmt.Errorf("%w: %w", errs.ErrConfiguration, errs.ErrNilQuery)
	case c.Query.MaxResults < 1:
		return fmt.Errorf("%w: %w: max-results %d", errs.ErrConfiguration, errs.ErrWrongNum, c.Query.MaxResults)
	case c.Query.Skip < 0:
		return fmt.Errorf("%w: %w: skip %d", errs.ErrConfiguration, errs.ErrWrongNum, c.Query.Skip)
	case c.App.Workers < 1:
		return fmt.Errorf("%w: %w: workers %d", errs.ErrConfiguration, errs.ErrWrongNum, c.App.Workers)
	case c.Convert.Attempts < 1:
		return fmt.Errorf("%w: %w: attempts %d", errs.ErrConfiguration, errs.ErrWrongNum, c.Convert.Attempts)
	case c.Convert.MinSize < 0:
		return fmt.Errorf("%w: %w: min size %d", errs.ErrConfiguration, errs.ErrWrongNum, c.Convert.MinSize)
	case strings.Count(c.Convert.Endpoint, "%s") != 1 || !urls.IsURLValid(c.Convert.Endpoint):
		return fmt.Errorf("%w: invalid convert endpoint %q", errs.ErrConfiguration, c.Convert.Endpoint)
	}

	return nil
}

// Modes lists the supported download modes.
func Modes() []string {
	return []string{consts.ModeList, consts.ModeVideo, consts.ModeSearch}
}

// SetAbsPaths expands ~ and converts all paths to absolute paths.
func (d *Dir) SetAbsPaths() error {
	var err error
	if d.Out, err = absPath(d.Out); err != nil {
		return fmt.Errorf("out: %w", err)
	}

	if d.KeyFile, err = absPath(d.KeyFile); err != nil {
		return fmt.Errorf("key file: %w", err)
	}

	return nil
}

// LoadAPIKey reads the key file. Surrounding whitespace is dropped.
func (d *Dir) LoadAPIKey() (string, error) {
	data, err := os.ReadFile(d.KeyFile)
	if err != nil {
		return "", fmt.Errorf("%w: %w: %s", errs.ErrConfiguration, errs.ErrNoKeyFile, d.KeyFile)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%w: %w: %s is empty", errs.ErrConfiguration, errs.ErrNoKeyFile, d.KeyFile)
	}

	return key, nil
}

func absPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}

		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return filepath.Abs(path) //nolint:wrapcheck
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	p.Proxies = nil

	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = urls.Normalize(proxy)
		if proxy != "" {
			p.Proxies = append(p.Proxies, proxy)
		}
	}
}
