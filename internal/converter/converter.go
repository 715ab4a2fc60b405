// Package converter fetches converted audio for an item from the conversion endpoint
// and places it in the output directory.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime"
	"net/http"
	"strings"
	"time"

	"ytmp3/internal/config"
	"ytmp3/internal/entity"
	"ytmp3/internal/errs"
	"ytmp3/internal/observability"
	"ytmp3/internal/proxy"
	"ytmp3/internal/storage"
	"ytmp3/pkg/urls"
)

// Attempt results reported to metrics.
const (
	ResultOK        = "ok"
	ResultTransport = "transport"
	ResultStatus    = "status"
	ResultTooSmall  = "too_small"
	ResultNotAudio  = "not_audio"
)

// RetryFunc is called before each inline retry of an item.
type RetryFunc func(item entity.Item, attempt int, err error)

// Client converts items through the configured endpoint.
type Client struct {
	log     *slog.Logger
	cfg     config.Convert
	storer  storage.Storer
	proxies *proxy.Manager
	metrics *observability.Metrics
	onRetry RetryFunc
}

// Option configures a Client.
type Option func(*Client)

// WithRetryHook registers fn to be called before every inline retry.
func WithRetryHook(fn RetryFunc) Option {
	return func(c *Client) {
		c.onRetry = fn
	}
}

// New creates a conversion client. proxies and metrics may be nil.
func New(log *slog.Logger,
	cfg config.Convert,
	storer storage.Storer,
	proxies *proxy.Manager,
	metrics *observability.Metrics,
	opts ...Option,
) *Client {
	c := &Client{
		log:     log.With(slog.String("package", "converter")),
		cfg:     cfg,
		storer:  storer,
		proxies: proxies,
		metrics: metrics,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Convert downloads item and places it as <title>.mp3. It never returns an error:
// failures are reported in the Outcome with a DownloadFailed or MoveFailed reason.
// Converting the same item twice performs two independent downloads.
func (c *Client) Convert(ctx context.Context, item entity.Item) entity.Outcome {
	log := c.log.With(slog.Any("item", item))
	out := entity.Outcome{Item: item}
	endpoint := urls.Expand(c.cfg.Endpoint, urls.WatchURL(item.ID))

	var (
		partial string
		size    int64
		lastErr error
	)

	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		out.Attempts = attempt

		if attempt > 1 {
			if c.onRetry != nil {
				c.onRetry(item, attempt, lastErr)
			}

			err := c.backoff(ctx, attempt-1)
			if err != nil {
				lastErr = err

				break
			}
		}

		partial, size, lastErr = c.fetch(ctx, endpoint)
		if lastErr == nil {
			break
		}

		log.DebugContext(ctx, "conversion attempt failed", slog.Int("attempt", attempt), slog.Any("error", lastErr))

		if errors.Is(lastErr, errs.ErrPermanent) || ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		out.Reason = entity.ReasonDownloadFailed
		out.Err = fmt.Errorf("%w: %w", errs.ErrDownloadFailed, lastErr)

		c.metrics.RecordItemFailed(string(out.Reason))
		log.WarnContext(ctx, "conversion failed", slog.Int("attempts", out.Attempts), slog.Any("error", lastErr))

		return out
	}

	path, err := c.storer.Place(ctx, partial, item)
	if err != nil {
		c.storer.Discard(ctx, partial)

		out.Reason = entity.ReasonMoveFailed
		out.Err = err

		c.metrics.RecordItemFailed(string(out.Reason))
		log.WarnContext(ctx, "failed to place file", slog.Any("error", err))

		return out
	}

	out.Path = path

	c.metrics.RecordItemCompleted(size)
	log.InfoContext(ctx, "conversion finished", slog.String("path", path), slog.Int64("size", size))

	return out
}

// fetch performs one attempt and returns the partial file holding a valid payload.
func (c *Client) fetch(ctx context.Context, endpoint string) (string, int64, error) {
	proxyName, transport, err := c.proxies.Pick()
	if err != nil {
		c.metrics.RecordConvertAttempt(ResultTransport)

		return "", 0, err //nolint:wrapcheck
	}

	client := &http.Client{Transport: transport, Timeout: c.cfg.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: create request: %w", errs.ErrPermanent, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		c.proxies.MarkFailed(proxyName)
		c.metrics.RecordConvertAttempt(ResultTransport)

		return "", 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	err = checkStatus(resp.StatusCode)
	if err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			c.proxies.MarkFailed(proxyName)
		}

		c.metrics.RecordConvertAttempt(ResultStatus)

		return "", 0, err
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		c.proxies.MarkFailed(proxyName)
		c.metrics.RecordConvertAttempt(ResultNotAudio)

		return "", 0, fmt.Errorf("%w: content type %q", errs.ErrNotAudio, resp.Header.Get("Content-Type"))
	}

	path, size, err := c.save(ctx, resp.Body)
	switch {
	case err == nil:
		c.proxies.MarkSuccess(proxyName)
	case !errors.Is(err, errs.ErrPermanent):
		c.proxies.MarkFailed(proxyName)
	}

	return path, size, err
}

func (c *Client) save(ctx context.Context, body io.Reader) (string, int64, error) {
	f, err := c.storer.CreatePartial(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", errs.ErrPermanent, err)
	}

	size, err := io.Copy(f, body)
	closeErr := f.Close()

	switch {
	case err != nil:
		err = fmt.Errorf("read body: %w", err)
		c.metrics.RecordConvertAttempt(ResultTransport)
	case closeErr != nil:
		err = fmt.Errorf("close partial: %w", closeErr)
		c.metrics.RecordConvertAttempt(ResultTransport)
	case size < c.cfg.MinSize:
		err = fmt.Errorf("%w: %d bytes", errs.ErrPayloadTooSmall, size)
		c.metrics.RecordConvertAttempt(ResultTooSmall)
	}

	if err != nil {
		c.storer.Discard(ctx, f.Name())

		return "", 0, err
	}

	c.metrics.RecordConvertAttempt(ResultOK)

	return f.Name(), size, nil
}

// backoff waits for an exponentially increasing duration with jitter.
func (c *Client) backoff(ctx context.Context, retry int) error {
	backoff := c.cfg.Backoff * time.Duration(1<<min(retry-1, 16))
	if c.cfg.MaxBackoff > 0 && backoff > c.cfg.MaxBackoff {
		backoff = c.cfg.MaxBackoff
	}

	// 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	timer := time.NewTimer(jitter)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-timer.C:
		return nil
	}
}

// checkStatus classifies non-2xx codes. Client errors other than 408 and 429 are permanent.
func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("unexpected status code: %d", code)
	default:
		return fmt.Errorf("%w: unexpected status code: %d", errs.ErrPermanent, code)
	}
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}

	return strings.HasPrefix(mediaType, "text/html")
}
