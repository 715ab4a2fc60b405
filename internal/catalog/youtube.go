package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytmp3/internal/config"
	"ytmp3/internal/errs"
	"ytmp3/internal/observability"
)

var snippetPart = []string{"snippet"}

// Endpoint names used in logs and metrics.
const (
	EndpointPlaylistItems = "playlistItems"
	EndpointVideos        = "videos"
	EndpointSearch        = "search"
)

// YouTube exposes the YouTube Data API v3 list calls as Listers.
// Every page request waits on a shared rate limiter to stay inside the API quota.
type YouTube struct {
	log     *slog.Logger
	svc     *youtube.Service
	limiter *rate.Limiter
	metrics *observability.Metrics
}

// NewYouTube builds the API client authenticated by a static key.
func NewYouTube(ctx context.Context, log *slog.Logger, cfg *config.Config, apiKey string,
	metrics *observability.Metrics) (*YouTube, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if cfg.API.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.API.Endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConnection, err)
	}

	limit := rate.Limit(cfg.API.Rate)
	if cfg.API.Rate <= 0 || math.IsInf(cfg.API.Rate, 1) {
		limit = rate.Inf
	}

	burst := max(cfg.API.Burst, 1)

	return &YouTube{
		log:     log.With(slog.String("package", "catalog")),
		svc:     svc,
		limiter: rate.NewLimiter(limit, burst),
		metrics: metrics,
	}, nil
}

// PlaylistItems lists the entries of a playlist.
func (y *YouTube) PlaylistItems(playlistID string) Lister[*youtube.PlaylistItem] {
	return ListerFunc[*youtube.PlaylistItem](func(ctx context.Context, pageToken string, maxResults int64) (*Page[*youtube.PlaylistItem], error) {
		call := y.svc.PlaylistItems.List(snippetPart).PlaylistId(playlistID).MaxResults(maxResults).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		if err := y.wait(ctx, EndpointPlaylistItems, pageToken, maxResults); err != nil {
			return nil, err
		}

		resp, err := call.Do()
		y.metrics.RecordCatalogPage(EndpointPlaylistItems, err)

		if err != nil {
			return nil, fmt.Errorf("%s list: %w", EndpointPlaylistItems, err)
		}

		return &Page[*youtube.PlaylistItem]{
			Items:         resp.Items,
			TotalResults:  totalResults(resp.PageInfo),
			NextPageToken: resp.NextPageToken,
		}, nil
	})
}

// Videos lists videos by id. ids must hold at most 50 entries.
func (y *YouTube) Videos(ids []string) Lister[*youtube.Video] {
	return ListerFunc[*youtube.Video](func(ctx context.Context, pageToken string, maxResults int64) (*Page[*youtube.Video], error) {
		call := y.svc.Videos.List(snippetPart).Id(strings.Join(ids, ",")).MaxResults(maxResults).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		if err := y.wait(ctx, EndpointVideos, pageToken, maxResults); err != nil {
			return nil, err
		}

		resp, err := call.Do()
		y.metrics.RecordCatalogPage(EndpointVideos, err)

		if err != nil {
			return nil, fmt.Errorf("%s list: %w", EndpointVideos, err)
		}

		return &Page[*youtube.Video]{
			Items:         resp.Items,
			TotalResults:  totalResults(resp.PageInfo),
			NextPageToken: resp.NextPageToken,
		}, nil
	})
}

// Search lists video results for a free-text query.
func (y *YouTube) Search(query string) Lister[*youtube.SearchResult] {
	return ListerFunc[*youtube.SearchResult](func(ctx context.Context, pageToken string, maxResults int64) (*Page[*youtube.SearchResult], error) {
		call := y.svc.Search.List(snippetPart).Q(query).Type("video").MaxResults(maxResults).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		if err := y.wait(ctx, EndpointSearch, pageToken, maxResults); err != nil {
			return nil, err
		}

		resp, err := call.Do()
		y.metrics.RecordCatalogPage(EndpointSearch, err)

		if err != nil {
			return nil, fmt.Errorf("%s list: %w", EndpointSearch, err)
		}

		return &Page[*youtube.SearchResult]{
			Items:         resp.Items,
			TotalResults:  totalResults(resp.PageInfo),
			NextPageToken: resp.NextPageToken,
		}, nil
	})
}

func (y *YouTube) wait(ctx context.Context, endpoint, pageToken string, maxResults int64) error {
	err := y.limiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s rate limit: %w", endpoint, err)
	}

	y.log.DebugContext(ctx, "catalog page request",
		slog.String("endpoint", endpoint),
		slog.String("page_token", pageToken),
		slog.Int64("max_results", maxResults))

	return nil
}

// totalResults treats a missing pageInfo as an unbounded source.
func totalResults(info *youtube.PageInfo) int64 {
	if info == nil {
		return math.MaxInt64
	}

	return info.TotalResults
}
