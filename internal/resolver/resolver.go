// Package resolver turns a mode and query into the list of items to convert.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"google.golang.org/api/youtube/v3"

	"ytmp3/internal/catalog"
	"ytmp3/internal/consts"
	"ytmp3/internal/entity"
	"ytmp3/internal/errs"
	"ytmp3/internal/observability"
)

// Catalog is the subset of the catalog API the resolver pages through.
type Catalog interface {
	PlaylistItems(playlistID string) catalog.Lister[*youtube.PlaylistItem]
	Videos(ids []string) catalog.Lister[*youtube.Video]
	Search(query string) catalog.Lister[*youtube.SearchResult]
}

// Result holds the resolved items and the records that could not be mapped.
type Result struct {
	Items []entity.Item
	// Malformed holds one ErrMalformedRecord per skipped record.
	Malformed []error
}

// Resolver selects the query shape for a mode and maps raw records to items.
type Resolver struct {
	log     *slog.Logger
	catalog Catalog
	metrics *observability.Metrics
}

// New creates a resolver over cat. metrics may be nil.
func New(log *slog.Logger, cat Catalog, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		log:     log.With(slog.String("package", "resolver")),
		catalog: cat,
		metrics: metrics,
	}
}

// Resolve fetches and maps the records for mode. A request failure aborts the
// whole resolution; a malformed record only skips itself.
//
// The video mode ignores maxResults and skip: every id in the comma-separated
// query is looked up exactly once.
func (r *Resolver) Resolve(ctx context.Context, mode, query string, maxResults, skip int) (*Result, error) {
	log := r.log.With(slog.String("mode", mode))

	var (
		res *Result
		err error
	)

	switch mode {
	case consts.ModeList:
		res, err = resolveFrom(ctx, r.catalog.PlaylistItems(strings.TrimSpace(query)), maxResults, skip, FromPlaylistItem)
	case consts.ModeSearch:
		res, err = resolveFrom(ctx, r.catalog.Search(query), maxResults, skip, FromSearchResult)
	case consts.ModeVideo:
		res, err = r.resolveVideos(ctx, SplitIDs(query))
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrWrongMode, mode)
	}

	if err != nil {
		return nil, err
	}

	for _, bad := range res.Malformed {
		log.WarnContext(ctx, "skipping malformed record", slog.Any("error", bad))
	}

	r.metrics.RecordResolved(mode, len(res.Items), len(res.Malformed))
	log.InfoContext(ctx, "items resolved", slog.Int("items", len(res.Items)), slog.Int("malformed", len(res.Malformed)))

	return res, nil
}

func (r *Resolver) resolveVideos(ctx context.Context, ids []string) (*Result, error) {
	res := &Result{}

	for chunk := range slices.Chunk(ids, consts.MaxPageSize) {
		part, err := resolveFrom(ctx, r.catalog.Videos(chunk), len(chunk), 0, FromVideo)
		if err != nil {
			return nil, err
		}

		res.Items = append(res.Items, part.Items...)
		res.Malformed = append(res.Malformed, part.Malformed...)
	}

	return res, nil
}

func resolveFrom[T any](ctx context.Context, lister catalog.Lister[T], maxResults, skip int,
	mapFn func(T) (entity.Item, error)) (*Result, error) {
	records, err := catalog.Fetch(ctx, lister, maxResults, skip)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return MapRecords(records, mapFn), nil
}

// MapRecords maps each record independently.
func MapRecords[T any](records []T, mapFn func(T) (entity.Item, error)) *Result {
	res := &Result{Items: make([]entity.Item, 0, len(records))}

	for i, rec := range records {
		item, err := mapFn(rec)
		if err != nil {
			res.Malformed = append(res.Malformed, fmt.Errorf("record %d: %w", i, err))

			continue
		}

		res.Items = append(res.Items, item)
	}

	return res
}

// SplitIDs splits a comma-separated id list, dropping blanks.
func SplitIDs(query string) []string {
	var ids []string

	for id := range strings.SplitSeq(query, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// FromPlaylistItem reads snippet.resourceId.videoId and snippet.title.
func FromPlaylistItem(rec *youtube.PlaylistItem) (entity.Item, error) {
	if rec == nil || rec.Snippet == nil {
		return entity.Item{}, fmt.Errorf("%w: missing snippet", errs.ErrMalformedRecord)
	}

	if rec.Snippet.ResourceId == nil || rec.Snippet.ResourceId.VideoId == "" {
		return entity.Item{}, fmt.Errorf("%w: missing snippet.resourceId.videoId", errs.ErrMalformedRecord)
	}

	return entity.Item{ID: rec.Snippet.ResourceId.VideoId, Title: rec.Snippet.Title}, nil
}

// FromVideo reads id and snippet.title.
func FromVideo(rec *youtube.Video) (entity.Item, error) {
	if rec == nil || rec.Id == "" {
		return entity.Item{}, fmt.Errorf("%w: missing id", errs.ErrMalformedRecord)
	}

	if rec.Snippet == nil {
		return entity.Item{}, fmt.Errorf("%w: missing snippet", errs.ErrMalformedRecord)
	}

	return entity.Item{ID: rec.Id, Title: rec.Snippet.Title}, nil
}

// FromSearchResult reads id.videoId and snippet.title.
func FromSearchResult(rec *youtube.SearchResult) (entity.Item, error) {
	if rec == nil || rec.Id == nil || rec.Id.VideoId == "" {
		return entity.Item{}, fmt.Errorf("%w: missing id.videoId", errs.ErrMalformedRecord)
	}

	if rec.Snippet == nil {
		return entity.Item{}, fmt.Errorf("%w: missing snippet", errs.ErrMalformedRecord)
	}

	return entity.Item{ID: rec.Id.VideoId, Title: rec.Snippet.Title}, nil
}
