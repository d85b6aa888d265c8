package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPageFetcherConvertsHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q, want %q", got, userAgent)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>Story</h1><p>Body <strong>text</strong>.</p></body></html>"))
	}))
	defer server.Close()

	fetcher := NewPageFetcher()
	markdown, err := fetcher.FetchMarkdown(server.URL)
	if err != nil {
		t.Fatalf("FetchMarkdown() error = %v", err)
	}

	if !strings.Contains(markdown, "Story") || !strings.Contains(markdown, "**text**") {
		t.Errorf("FetchMarkdown() = %q, want markdown rendering of the page", markdown)
	}
}

func TestPageFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewPageFetcher()
	_, err := fetcher.FetchMarkdown(server.URL)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("FetchMarkdown() error = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("HTTPError.StatusCode = %d, want %d", httpErr.StatusCode, http.StatusForbidden)
	}
	if httpErr.URL != server.URL {
		t.Errorf("HTTPError.URL = %q, want %q", httpErr.URL, server.URL)
	}
}

func TestPageFetcherRejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	fetcher := NewPageFetcher()
	if _, err := fetcher.FetchMarkdown(server.URL); err == nil {
		t.Error("FetchMarkdown() should reject non-HTML content")
	}
}

func TestPageFetcherNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	fetcher := NewPageFetcher()
	if _, err := fetcher.FetchMarkdown(server.URL); err == nil {
		t.Error("FetchMarkdown() should fail when the page is unreachable")
	}
}
