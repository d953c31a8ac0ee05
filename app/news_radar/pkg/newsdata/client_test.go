package newsdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/search"
)

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "key" || q.Get("language") != "es" || q.Get("q") != "Caracas" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{
			"status": "success",
			"totalResults": 1,
			"results": [{
				"article_id": "nd-1",
				"title": "Explosiones en Caracas",
				"link": "https://diario.example/caracas",
				"description": "desc",
				"content": "cuerpo",
				"image_url": "https://diario.example/img.jpg",
				"source_id": "diario",
				"pubDate": "2026-01-03 06:10:00",
				"language": "spanish",
				"country": ["venezuela", "colombia"]
			}]
		}`))
	}))
	defer srv.Close()

	resp, err := NewClient("key", srv.URL).Search(context.Background(), &search.Request{Query: "Caracas", Language: "es"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	got := resp.Results[0]
	if got.ExternalID != "nd-1" || got.URL != "https://diario.example/caracas" || got.Source != "diario" {
		t.Errorf("result = %+v", got)
	}
	if got.Country != "venezuela,colombia" || got.Language != "es" {
		t.Errorf("country/language = %q/%q", got.Country, got.Language)
	}
}

func TestClient_SearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusTooManyRequests, `rate limited`, "status 429"},
		{"api error", http.StatusOK, `{"status":"error","results":{"message":"API key invalid","code":"Unauthorized"}}`, "API key invalid"},
		{"bad json", http.StatusOK, `<html>`, "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("key", srv.URL).Search(context.Background(), &search.Request{Query: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Search() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestClient_SearchSkipsMalformedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "success",
			"totalResults": 3,
			"results": [
				{"article_id": "nd-1", "title": "Uno", "link": "https://diario.example/1", "source_id": "diario", "country": ["venezuela"]},
				{"article_id": "nd-2", "title": "Dos", "link": "https://diario.example/2", "source_id": "diario", "country": "venezuela"},
				{"article_id": "nd-3", "title": "Tres", "link": "https://diario.example/3", "source_id": "diario", "country": ["colombia"]}
			]
		}`))
	}))
	defer srv.Close()

	resp, err := NewClient("key", srv.URL).Search(context.Background(), &search.Request{Query: "Caracas"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 2 || resp.Skipped != 1 {
		t.Fatalf("results = %d, skipped = %d, want 2 and 1", len(resp.Results), resp.Skipped)
	}
	if resp.Results[0].ExternalID != "nd-1" || resp.Results[1].ExternalID != "nd-3" {
		t.Errorf("results = %+v", resp.Results)
	}
}
