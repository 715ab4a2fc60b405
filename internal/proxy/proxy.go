// Package proxy rotates conversion requests over an optional proxy list.
// It handles random selection, failure tracking with backoff and a startup health check.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"ytmp3/internal/config"
	"ytmp3/internal/consts"
	"ytmp3/internal/errs"
	"ytmp3/internal/observability"
)

// State represents the current state of a proxy.
type State int

const (
	// StateAvailable indicates the proxy is available for use.
	StateAvailable State = iota
	// StateFailed indicates the proxy has failed and is in backoff.
	StateFailed
)

type proxyInfo struct {
	url          *url.URL
	transport    *http.Transport
	state        State
	failureCount int
	backoffUntil time.Time
}

// Manager manages proxy rotation and health.
type Manager struct {
	log     *slog.Logger
	cfg     config.Proxy
	metrics *observability.Metrics
	direct  *http.Transport

	mu      sync.Mutex
	proxies map[string]*proxyInfo
	order   []string // insertion order for consistent iteration
}

// New creates a proxy manager from cfg.Proxies. An invalid proxy URL is a configuration error.
func New(log *slog.Logger, cfg config.Proxy, metrics *observability.Metrics) (*Manager, error) {
	base, _ := http.DefaultTransport.(*http.Transport)

	mgr := &Manager{
		log:     log.With(slog.String("package", "proxy")),
		cfg:     cfg,
		metrics: metrics,
		direct:  base.Clone(),
		proxies: make(map[string]*proxyInfo, len(cfg.Proxies)),
		order:   make([]string, 0, len(cfg.Proxies)),
	}

	for _, raw := range cfg.Proxies {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: invalid proxy URL %q", errs.ErrConfiguration, raw)
		}

		if _, dup := mgr.proxies[raw]; dup {
			continue
		}

		transport := base.Clone()
		transport.Proxy = http.ProxyURL(u)

		mgr.proxies[raw] = &proxyInfo{url: u, transport: transport}
		mgr.order = append(mgr.order, raw)
	}

	return mgr, nil
}

// Pick returns a random available proxy and the transport that routes through it.
// With no proxies configured it returns an empty name and a direct transport.
// ErrNoProxiesAvailable is returned when every configured proxy is in backoff.
func (m *Manager) Pick() (string, http.RoundTripper, error) {
	if m == nil || len(m.order) == 0 {
		return "", m.directTransport(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	available := m.available(time.Now())
	if len(available) == 0 {
		return "", nil, errs.ErrNoProxiesAvailable
	}

	name := available[rand.IntN(len(available))]

	return name, m.proxies[name].transport, nil
}

func (m *Manager) directTransport() http.RoundTripper {
	if m == nil {
		return http.DefaultTransport
	}

	return m.direct
}

// MarkFailed records a failure and puts the proxy in exponential backoff
// once it reaches the configured failure count.
func (m *Manager) MarkFailed(name string) {
	if m == nil || name == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.proxies[name]
	if !ok {
		return
	}

	info.failureCount++
	m.metrics.RecordProxyFailure(name)

	if info.failureCount < max(m.cfg.MaxFailures, 1) {
		return
	}

	info.state = StateFailed

	shift := min(info.failureCount-max(m.cfg.MaxFailures, 1), 16)
	backoff := min(m.cfg.FailureBackoff*time.Duration(1<<shift), consts.MaxProxyBackoff)
	info.backoffUntil = time.Now().Add(backoff)

	m.log.Warn("proxy marked as failed",
		slog.String("proxy", name),
		slog.Int("failure_count", info.failureCount),
		slog.Duration("backoff", backoff))
}

// MarkSuccess resets the failure count of a proxy.
func (m *Manager) MarkSuccess(name string) {
	if m == nil || name == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.proxies[name]
	if !ok {
		return
	}

	info.state = StateAvailable
	info.failureCount = 0
	info.backoffUntil = time.Time{}
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int {
	if m == nil {
		return 0
	}

	return len(m.order)
}

// AvailableCount returns the number of proxies not in backoff.
func (m *Manager) AvailableCount() int {
	if m == nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.available(time.Now()))
}

// CheckAll dials every proxy once and marks unreachable ones as failed.
// It returns the number of reachable proxies.
func (m *Manager) CheckAll(ctx context.Context) int {
	if m == nil {
		return 0
	}

	healthy := 0

	for _, name := range m.order {
		if ctx.Err() != nil {
			break
		}

		err := m.dial(ctx, m.proxies[name].url)
		if err != nil {
			m.log.DebugContext(ctx, "proxy health check failed", slog.String("proxy", name), slog.Any("error", err))
			m.MarkFailed(name)

			continue
		}

		m.MarkSuccess(name)

		healthy++
	}

	m.log.InfoContext(ctx, "proxy health check finished",
		slog.Int("proxy_count", len(m.order)), slog.Int("healthy", healthy))

	return healthy
}

func (m *Manager) dial(ctx context.Context, u *url.URL) error {
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "socks5", "socks5h":
			host = net.JoinHostPort(u.Hostname(), "1080")
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	dialer := &net.Dialer{Timeout: consts.ProxyHealthTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return fmt.Errorf("dial proxy: %w", err)
	}

	return conn.Close() //nolint:wrapcheck
}

func (m *Manager) available(now time.Time) []string {
	available := make([]string, 0, len(m.order))

	for _, name := range m.order {
		info := m.proxies[name]
		if info.state == StateAvailable || now.After(info.backoffUntil) {
			available = append(available, name)
		}
	}

	return available
}
