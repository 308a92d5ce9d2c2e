package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestPickBestLogo(t *testing.T) {
	if got := pickBestLogo(nil); got != "" {
		t.Fatalf("expected empty for no logos, got %q", got)
	}

	logos := []fanartLogo{
		{URL: "fr-popular", Lang: "fr", Likes: "50"},
		{URL: "en-low", Lang: "en", Likes: "2"},
		{URL: "en-high", Lang: "en", Likes: "10"},
	}
	if got := pickBestLogo(logos); got != "en-high" {
		t.Fatalf("expected most liked english logo, got %q", got)
	}

	nonEnglish := []fanartLogo{
		{URL: "de", Lang: "de", Likes: "1"},
		{URL: "fr", Lang: "fr", Likes: "7"},
		{URL: "bad", Lang: "es", Likes: "n/a"},
	}
	if got := pickBestLogo(nonEnglish); got != "fr" {
		t.Fatalf("expected most liked fallback logo, got %q", got)
	}
}

func TestFanartLogo_FallsBackToStandardLogoAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/movies/42":
			_, _ = w.Write([]byte(`{"hdmovielogo":[],"movielogo":[{"url":"https://assets/logo.png","lang":"en","likes":"3"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newFanartClient("key", srv.URL, srv.Client())

	got, err := c.logo(context.Background(), 42)
	if err != nil || got != "https://assets/logo.png" {
		t.Fatalf("logo() = %q, %v", got, err)
	}
	if _, err := c.logo(context.Background(), 42); err != nil {
		t.Fatalf("cached logo: %v", err)
	}

	if _, err := c.logo(context.Background(), 9); err == nil {
		t.Fatal("expected error for missing movie")
	}
	got, err = c.logo(context.Background(), 9)
	if err != nil || got != "" {
		t.Fatalf("expected cached miss, got %q, %v", got, err)
	}

	if n := hits.Load(); n != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", n)
	}
}

func TestFanartLogo_Unconfigured(t *testing.T) {
	c := newFanartClient("", "http://unused", nil)
	got, err := c.logo(context.Background(), 42)
	if err != nil || got != "" {
		t.Fatalf("expected silent miss, got %q, %v", got, err)
	}
}
