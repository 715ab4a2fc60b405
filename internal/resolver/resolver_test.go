package resolver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"google.golang.org/api/youtube/v3"

	"ytmp3/internal/catalog"
	"ytmp3/internal/entity"
	"ytmp3/internal/errs"
	"ytmp3/internal/resolver"
)

// fakeCatalog serves n records per listing and records the video id batches it was asked for.
type fakeCatalog struct {
	n          int
	videoCalls [][]string
	fail       error
	malformed  int // index of a record returned without its id
}

func page[T any](f *fakeCatalog, pageToken string, maxResults int64, build func(i int) T) (*catalog.Page[T], error) {
	if f.fail != nil {
		return nil, f.fail
	}

	start, _ := strconv.Atoi(pageToken)
	end := min(start+int(maxResults), f.n)

	p := &catalog.Page[T]{TotalResults: int64(f.n)}
	for i := start; i < end; i++ {
		p.Items = append(p.Items, build(i))
	}

	if end < f.n {
		p.NextPageToken = strconv.Itoa(end)
	}

	return p, nil
}

func (f *fakeCatalog) PlaylistItems(string) catalog.Lister[*youtube.PlaylistItem] {
	return catalog.ListerFunc[*youtube.PlaylistItem](func(_ context.Context, tok string, n int64) (*catalog.Page[*youtube.PlaylistItem], error) {
		return page(f, tok, n, func(i int) *youtube.PlaylistItem {
			rec := &youtube.PlaylistItem{Snippet: &youtube.PlaylistItemSnippet{
				Title: "t" + strconv.Itoa(i), ResourceId: &youtube.ResourceId{VideoId: "v" + strconv.Itoa(i)},
			}}
			if i == f.malformed {
				rec.Snippet.ResourceId = nil
			}

			return rec
		})
	})
}

func (f *fakeCatalog) Videos(ids []string) catalog.Lister[*youtube.Video] {
	f.videoCalls = append(f.videoCalls, ids)

	return catalog.ListerFunc[*youtube.Video](func(_ context.Context, _ string, n int64) (*catalog.Page[*youtube.Video], error) {
		if f.fail != nil {
			return nil, f.fail
		}

		p := &catalog.Page[*youtube.Video]{TotalResults: int64(len(ids))}
		for _, id := range ids[:min(int(n), len(ids))] {
			p.Items = append(p.Items, &youtube.Video{Id: id, Snippet: &youtube.VideoSnippet{Title: "title " + id}})
		}

		return p, nil
	})
}

func (f *fakeCatalog) Search(string) catalog.Lister[*youtube.SearchResult] {
	return catalog.ListerFunc[*youtube.SearchResult](func(_ context.Context, tok string, n int64) (*catalog.Page[*youtube.SearchResult], error) {
		return page(f, tok, n, func(i int) *youtube.SearchResult {
			return &youtube.SearchResult{
				Id:      &youtube.ResourceId{VideoId: "s" + strconv.Itoa(i)},
				Snippet: &youtube.SearchResultSnippet{Title: "st" + strconv.Itoa(i)},
			}
		})
	})
}

func newResolver(cat resolver.Catalog) *resolver.Resolver {
	return resolver.New(slog.New(slog.NewTextHandler(io.Discard, nil)), cat, nil)
}

func TestResolveModes(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		query      string
		maxResults int
		skip       int
		wantIDs    []string
		wantBad    int
	}{
		{
			name: "list with skip", mode: "list", query: "PL1", maxResults: 3, skip: 2,
			wantIDs: []string{"v2", "v3", "v4"},
		},
		{
			name: "list skips malformed record only", mode: "list", query: "PL1", maxResults: 3, skip: 0,
			wantIDs: []string{"v0", "v2"}, wantBad: 1,
		},
		{
			name: "search", mode: "search", query: "lofi", maxResults: 2, skip: 1,
			wantIDs: []string{"s1", "s2"},
		},
		{
			name: "video ignores window", mode: "video", query: "a, b,c", maxResults: 1, skip: 5,
			wantIDs: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &fakeCatalog{n: 60, malformed: -1}
			if tt.wantBad > 0 {
				cat.malformed = 1
			}

			res, err := newResolver(cat).Resolve(t.Context(), tt.mode, tt.query, tt.maxResults, tt.skip)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			var ids []string
			for _, item := range res.Items {
				ids = append(ids, item.ID)
			}

			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}

			if len(res.Malformed) != tt.wantBad {
				t.Errorf("malformed = %d, want %d", len(res.Malformed), tt.wantBad)
			}

			for _, bad := range res.Malformed {
				if !errors.Is(bad, errs.ErrMalformedRecord) {
					t.Errorf("malformed error %v is not ErrMalformedRecord", bad)
				}
			}
		})
	}
}

func TestResolveVideoThreeIDs(t *testing.T) {
	cat := &fakeCatalog{}

	res, err := newResolver(cat).Resolve(t.Context(), "video", "id1,id2,id3", 25, 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(res.Items) != 3 {
		t.Fatalf("got %d items, want exactly 3", len(res.Items))
	}

	want := entity.Item{ID: "id2", Title: "title id2"}
	if res.Items[1] != want {
		t.Errorf("item = %+v, want %+v", res.Items[1], want)
	}
}

func TestResolveVideoChunksIDs(t *testing.T) {
	ids := make([]string, 120)
	for i := range ids {
		ids[i] = "x" + strconv.Itoa(i)
	}

	cat := &fakeCatalog{}

	res, err := newResolver(cat).Resolve(t.Context(), "video", strings.Join(ids, ","), 1, 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(res.Items) != 120 {
		t.Fatalf("got %d items, want 120", len(res.Items))
	}

	if len(cat.videoCalls) != 3 {
		t.Fatalf("made %d video lookups, want 3", len(cat.videoCalls))
	}

	for _, call := range cat.videoCalls {
		if len(call) > 50 {
			t.Errorf("lookup of %d ids exceeds the page cap", len(call))
		}
	}
}

func TestResolveErrors(t *testing.T) {
	_, err := newResolver(&fakeCatalog{}).Resolve(t.Context(), "album", "x", 1, 0)
	if !errors.Is(err, errs.ErrWrongMode) {
		t.Errorf("expected ErrWrongMode, got %v", err)
	}

	cat := &fakeCatalog{n: 10, fail: errors.New("backend down")}

	_, err = newResolver(cat).Resolve(t.Context(), "search", "x", 5, 0)
	if !errors.Is(err, errs.ErrRequest) {
		t.Errorf("expected ErrRequest, got %v", err)
	}
}

func TestMappers(t *testing.T) {
	if _, err := resolver.FromPlaylistItem(&youtube.PlaylistItem{}); !errors.Is(err, errs.ErrMalformedRecord) {
		t.Errorf("playlist item without snippet: %v", err)
	}

	if _, err := resolver.FromVideo(&youtube.Video{Id: "x"}); !errors.Is(err, errs.ErrMalformedRecord) {
		t.Errorf("video without snippet: %v", err)
	}

	if _, err := resolver.FromSearchResult(&youtube.SearchResult{Snippet: &youtube.SearchResultSnippet{}}); !errors.Is(err, errs.ErrMalformedRecord) {
		t.Errorf("search result without id: %v", err)
	}

	item, err := resolver.FromSearchResult(&youtube.SearchResult{
		Id: &youtube.ResourceId{VideoId: "abc"}, Snippet: &youtube.SearchResultSnippet{Title: "Track"},
	})
	if err != nil || item != (entity.Item{ID: "abc", Title: "Track"}) {
		t.Errorf("FromSearchResult() = %+v, %v", item, err)
	}
}

func TestSplitIDs(t *testing.T) {
	got := resolver.SplitIDs(" a,,b , c ,")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("SplitIDs() = %v", got)
	}
}
