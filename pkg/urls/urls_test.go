package urls_test

import (
	"testing"

	"ytmp3/pkg/urls"
)

func TestIsURLValid(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"http://www.youtubeinmp3.com/fetch/?video=%s", true},
		{"https://example.com", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := urls.IsURLValid(tt.raw); got != tt.want {
			t.Errorf("IsURLValid(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := urls.Normalize("  https://example.com/a  "); got != "https://example.com/a" {
		t.Errorf("Normalize() = %q", got)
	}
}

func TestWatchURLAndExpand(t *testing.T) {
	watch := urls.WatchURL("dQw4w9WgXcQ")
	if watch != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("WatchURL() = %q", watch)
	}

	escaped := "https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3DdQw4w9WgXcQ"

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "single placeholder",
			template: "http://conv.example/fetch/?video=%s",
			want:     "http://conv.example/fetch/?video=" + escaped,
		},
		{
			name:     "escaped comma before placeholder",
			template: "https://conv.example/fetch?format=mp3%2C128&video=%s",
			want:     "https://conv.example/fetch?format=mp3%2C128&video=" + escaped,
		},
		{
			name:     "placeholder in path",
			template: "https://conv.example/%s/mp3?q=100%25",
			want:     "https://conv.example/" + escaped + "/mp3?q=100%25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urls.Expand(tt.template, watch); got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}
