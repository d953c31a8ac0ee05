package search

import (
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 1, 3, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   string
		want *time.Time
	}{
		{"newsdata", "2026-01-03 14:30:00", &want},
		{"rfc3339 z", "2026-01-03T14:30:00Z", &want},
		{"rfc3339 fraction", "2026-01-03T14:30:00.000Z", &want},
		{"rfc3339 offset", "2026-01-03T10:30:00-04:00", &want},
		{"rfc1123", "Sat, 03 Jan 2026 14:30:00 GMT", &want},
		{"rfc1123z", "Sat, 03 Jan 2026 15:30:00 +0100", &want},
		{"garbage", "ayer por la tarde", nil},
		{"empty", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("ParseDate(%q) = %v, want nil", tt.in, got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			case got != nil && got.Location() != time.UTC:
				t.Errorf("ParseDate(%q) location = %v, want UTC", tt.in, got.Location())
			}
		})
	}

	if got := ParseDate("2026-01-03"); got == nil || !got.Equal(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate(date only) = %v", got)
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"HTTPS://Example.COM/nota?id=1#top", "https://example.com/nota?id=1", false},
		{"https://example.com/a?utm_source=x&utm_medium=y&fbclid=z", "https://example.com/a", false},
		{"https://example.com/a?b=2&utm_campaign=c&a=1", "https://example.com/a?a=1&b=2", false},
		{"ftp://example.com/file", "", true},
		{"/relative/path", "", true},
		{"", "", true},
		{"https://example.com/" + strings.Repeat("a", MaxURLLength), "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("CanonicalURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	art, err := Normalize(Result{
		ExternalID:    " abc ",
		Title:         "  Maduro habla  ",
		URL:           "https://news.example/a?utm_source=rss",
		ImageURL:      "not a url",
		Source:        "example",
		PublishedDate: "2026-01-03 10:00:00",
	}, "es")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if art.ExternalID != "abc" || art.Title != "Maduro habla" || art.URL != "https://news.example/a" {
		t.Errorf("Normalize() = %+v", art)
	}
	if art.ImageURL != "" {
		t.Errorf("ImageURL = %q, want empty", art.ImageURL)
	}
	if art.Language != "es" || art.PublishedAt == nil {
		t.Errorf("language/published = %q/%v", art.Language, art.PublishedAt)
	}

	if _, err := Normalize(Result{URL: "https://x.example"}, "es"); err == nil {
		t.Error("Normalize() without title should fail")
	}
	if _, err := Normalize(Result{Title: "t", URL: "mailto:a@b.c"}, "es"); err == nil {
		t.Error("Normalize() with bad url should fail")
	}
}
