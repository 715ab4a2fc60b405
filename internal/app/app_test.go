package app_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"ytmp3/internal/app"
	"ytmp3/internal/config"
	"ytmp3/internal/errs"
)

// searchAPI answers search.list with n results.
func searchAPI(t *testing.T, n, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != 0 {
			http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, status)

			return
		}

		maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))

		var items []map[string]any
		for i := range min(n, maxResults) {
			items = append(items, map[string]any{
				"id":      map[string]string{"videoId": "vid" + strconv.Itoa(i)},
				"snippet": map[string]string{"title": "Song " + strconv.Itoa(i)},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":    items,
			"pageInfo": map[string]int{"totalResults": n},
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

// converterEndpoint fails each video for the number of requests in failures, then serves audio.
type converterEndpoint struct {
	mu       sync.Mutex
	failures map[string]int
	requests map[string]int
}

func (c *converterEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	video := r.URL.Query().Get("video")
	id := video[strings.LastIndex(video, "=")+1:]

	c.mu.Lock()
	c.requests[id]++
	fail := c.failures[id] > 0
	if fail {
		c.failures[id]--
	}
	c.mu.Unlock()

	if fail {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>conversion in progress</html>")

		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(bytes.Repeat([]byte{1}, 20_000))
}

type fixture struct {
	cfg    *config.Config
	conv   *converterEndpoint
	stdout bytes.Buffer
}

func newFixture(t *testing.T, apiURL string, failures map[string]int) *fixture {
	t.Helper()

	dir := t.TempDir()
	keyFile := filepath.Join(dir, "apikey")

	if err := os.WriteFile(keyFile, []byte("test-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	conv := &converterEndpoint{failures: failures, requests: map[string]int{}}
	convSrv := httptest.NewServer(conv)
	t.Cleanup(convSrv.Close)

	return &fixture{
		conv: conv,
		cfg: &config.Config{
			App:   config.App{Workers: 2},
			Query: config.Query{Mode: "search", Query: "lofi", MaxResults: 25},
			Dir:   config.Dir{Out: filepath.Join(dir, "music"), KeyFile: keyFile},
			API:   config.API{Endpoint: apiURL + "/", Burst: 1},
			Convert: config.Convert{
				Endpoint:   convSrv.URL + "/fetch/?video=%s",
				MinSize:    20_000,
				Attempts:   1,
				Backoff:    time.Millisecond,
				MaxBackoff: time.Millisecond,
				Timeout:    5 * time.Second,
			},
		},
	}
}

func (f *fixture) run(t *testing.T, stdin string) int {
	t.Helper()

	return app.Run(t.Context(), f.cfg, app.Deps{
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Stdin:  strings.NewReader(stdin),
		Stdout: &f.stdout,
	})
}

func TestRunRetryRoundRecovers(t *testing.T) {
	api := searchAPI(t, 3, 0)
	f := newFixture(t, api.URL, map[string]int{"vid1": 1})

	if code := f.run(t, "y\n"); code != app.ExitOK {
		t.Fatalf("exit code = %d, want 0\n%s", code, f.stdout.String())
	}

	for i := range 3 {
		if _, err := os.Stat(filepath.Join(f.cfg.Dir.Out, fmt.Sprintf("Song %d.mp3", i))); err != nil {
			t.Errorf("Song %d not placed: %v", i, err)
		}
	}

	if got := f.conv.requests; got["vid0"] != 1 || got["vid1"] != 2 || got["vid2"] != 1 {
		t.Errorf("conversion requests = %v", got)
	}

	out := f.stdout.String()
	if !strings.Contains(out, "Retry download? (y/n)") || !strings.Contains(out, "Song 1") {
		t.Errorf("retry prompt missing:\n%s", out)
	}
}

func TestRunDeclinedRetryExitsWithFailures(t *testing.T) {
	api := searchAPI(t, 3, 0)
	f := newFixture(t, api.URL, map[string]int{"vid2": 10})
	f.cfg.App.Quiet = true

	if code := f.run(t, "n\n"); code != app.ExitFailures {
		t.Fatalf("exit code = %d, want 1", code)
	}

	out := f.stdout.String()
	if strings.Contains(out, "Info:") {
		t.Errorf("quiet run printed info lines:\n%s", out)
	}

	if !strings.Contains(out, "Error: 1 of 3 items failed.") {
		t.Errorf("summary missing:\n%s", out)
	}
}

func TestRunNoItems(t *testing.T) {
	api := searchAPI(t, 0, 0)
	f := newFixture(t, api.URL, nil)

	if code := f.run(t, ""); code != app.ExitOK {
		t.Fatalf("exit code = %d, want 0", code)
	}

	if !strings.Contains(f.stdout.String(), "Couldn't find any items.") {
		t.Errorf("empty notice missing:\n%s", f.stdout.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		mutate func(cfg *config.Config)
		want   int
	}{
		{
			name:   "missing key file",
			mutate: func(cfg *config.Config) { cfg.Dir.KeyFile = filepath.Join(cfg.Dir.Out, "nope") },
			want:   app.ExitConfig,
		},
		{
			name:   "api request error",
			status: http.StatusForbidden,
			mutate: func(*config.Config) {},
			want:   app.ExitRequest,
		},
		{
			name: "output dir blocked by a file",
			mutate: func(cfg *config.Config) {
				cfg.Dir.Out = cfg.Dir.KeyFile
			},
			want: app.ExitConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := searchAPI(t, 3, tt.status)
			f := newFixture(t, api.URL, nil)
			tt.mutate(f.cfg)

			if code := f.run(t, ""); code != tt.want {
				t.Errorf("exit code = %d, want %d\n%s", code, tt.want, f.stdout.String())
			}

			if !strings.Contains(f.stdout.String(), "Error:") {
				t.Errorf("no classified error printed:\n%s", f.stdout.String())
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: app.ExitOK},
		{err: fmt.Errorf("%w: %w", errs.ErrConfiguration, errs.ErrNilMode), want: app.ExitConfig},
		{err: fmt.Errorf("%w: bad", errs.ErrWrongMode), want: app.ExitConfig},
		{err: fmt.Errorf("%w: dial", errs.ErrConnection), want: app.ExitConnection},
		{err: fmt.Errorf("%w: 403", errs.ErrRequest), want: app.ExitRequest},
		{err: errors.New("other"), want: app.ExitFailures},
	}

	for _, tt := range tests {
		if got := app.ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
