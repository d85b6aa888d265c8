package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantLines int
		title     string
		lines     []string
	}{
		{
			name:      "labeled title with dashes",
			reply:     "TITLE: AI breakthrough announced\n- first point\n- second point",
			wantLines: 2,
			title:     "AI breakthrough announced",
			lines:     []string{"first point", "second point"},
		},
		{
			name:      "portuguese label with bullets",
			reply:     "TÍTULO: Avanço em IA\n• ponto um\n• ponto dois\n• ponto três",
			wantLines: 3,
			title:     "Avanço em IA",
			lines:     []string{"ponto um", "ponto dois", "ponto três"},
		},
		{
			name:      "no label, blank lines ignored",
			reply:     "Plain title\n\n- only point\n\n",
			wantLines: 1,
			title:     "Plain title",
			lines:     []string{"only point"},
		},
		{
			name:      "bulleted title line",
			reply:     "- Título com marcador\n* a\n* b",
			wantLines: 2,
			title:     "Título com marcador",
			lines:     []string{"a", "b"},
		},
		{
			name:      "unchecked line count",
			reply:     "Title\n- a\n- b\n- c",
			wantLines: 0,
			title:     "Title",
			lines:     []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completion, err := parseCompletion(tt.reply, tt.wantLines)
			if err != nil {
				t.Fatalf("parseCompletion() error = %v", err)
			}
			if completion.Title != tt.title {
				t.Errorf("Title = %q, want %q", completion.Title, tt.title)
			}
			if len(completion.Lines) != len(tt.lines) {
				t.Fatalf("Lines = %v, want %v", completion.Lines, tt.lines)
			}
			for i := range tt.lines {
				if completion.Lines[i] != tt.lines[i] {
					t.Errorf("Lines[%d] = %q, want %q (order preserved)", i, completion.Lines[i], tt.lines[i])
				}
			}
		})
	}
}

func TestParseCompletionMalformed(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantLines int
	}{
		{"empty reply", "", 5},
		{"whitespace only", "  \n \n", 5},
		{"bullet-only title", "- \n- a\n- b", 2},
		{"too few lines", "Title\n- a\n- b", 5},
		{"too many lines", "Title\n- a\n- b\n- c", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCompletion(tt.reply, tt.wantLines)
			var formatErr *CompletionFormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("parseCompletion() error = %v, want *CompletionFormatError", err)
			}
		})
	}
}

func TestParseCompletionTruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("á", 200)
	completion, err := parseCompletion("TITLE: "+long+"\n- a", 1)
	if err != nil {
		t.Fatalf("parseCompletion() error = %v", err)
	}
	if got := len([]rune(completion.Title)); got != maxTitleChars {
		t.Errorf("title length = %d runes, want %d", got, maxTitleChars)
	}
}

func TestStripBullet(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"- dash", "dash"},
		{"• bullet", "bullet"},
		{"* star", "star"},
		{"– en dash", "en dash"},
		{"  - spaced  ", "spaced"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := stripBullet(tt.in); got != tt.want {
			t.Errorf("stripBullet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSummaryFromLines(t *testing.T) {
	plain, htmlBody := summaryFromLines([]string{"a < b", "c & d"})
	if plain != "a < b\nc & d" {
		t.Errorf("plain = %q", plain)
	}
	if htmlBody != "a &lt; b<br>c &amp; d" {
		t.Errorf("htmlBody = %q, want escaped lines joined with <br>", htmlBody)
	}
}

func TestNoopEnricherPassesTextThrough(t *testing.T) {
	a := Article{Title: "Original", Description: "line one\nline two", URL: "https://example.com"}

	enriched, err := (&NoopEnricher{}).Enrich(a)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if enriched.TranslatedTitle != "Original" {
		t.Errorf("TranslatedTitle = %q, want original title", enriched.TranslatedTitle)
	}
	if enriched.SummaryText != "line one\nline two" {
		t.Errorf("SummaryText = %q", enriched.SummaryText)
	}
	if enriched.SummaryHTML != "line one<br>line two" {
		t.Errorf("SummaryHTML = %q", enriched.SummaryHTML)
	}
}

func TestSummaryEnricher(t *testing.T) {
	var gotSystem, gotUser string
	enricher := &SummaryEnricher{
		complete: func(systemPrompt, userPrompt string) (string, error) {
			gotSystem = systemPrompt
			gotUser = userPrompt
			return "TITLE: Resumo traduzido\n- linha um\n- linha dois", nil
		},
		language: "pt",
		lines:    2,
	}

	a := Article{Title: "Original title", Description: "Original description", URL: "https://example.com"}
	enriched, err := enricher.Enrich(a)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if enriched.TranslatedTitle != "Resumo traduzido" {
		t.Errorf("TranslatedTitle = %q", enriched.TranslatedTitle)
	}
	if enriched.SummaryText != "linha um\nlinha dois" {
		t.Errorf("SummaryText = %q", enriched.SummaryText)
	}
	if !strings.Contains(gotSystem, "pt") || !strings.Contains(gotSystem, "2") {
		t.Errorf("system prompt should carry language and line count, got %q", gotSystem)
	}
	if !strings.Contains(gotUser, "Original title") || !strings.Contains(gotUser, "Original description") {
		t.Errorf("user prompt should carry the article text, got %q", gotUser)
	}
}

func TestSummaryEnricherPropagatesCompletionFailure(t *testing.T) {
	enricher := &SummaryEnricher{
		complete: func(systemPrompt, userPrompt string) (string, error) {
			return "", fmt.Errorf("model overloaded")
		},
		lines: 2,
	}

	if _, err := enricher.Enrich(Article{Title: "t", URL: "u"}); err == nil {
		t.Error("Enrich() should propagate completion failures")
	}
}

func TestSummaryEnricherRejectsWrongLineCount(t *testing.T) {
	enricher := &SummaryEnricher{
		complete: func(systemPrompt, userPrompt string) (string, error) {
			return "TITLE: ok\n- only one line", nil
		},
		lines: 10,
	}

	_, err := enricher.Enrich(Article{Title: "t", URL: "u"})
	var formatErr *CompletionFormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("Enrich() error = %v, want *CompletionFormatError", err)
	}
}

func TestGoogleTranslator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tl") != "pt" || q.Get("client") != "gtx" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Write([]byte(`[[["Olá ","Hello ",null,null],["mundo","world",null,null]],null,"en"]`))
	}))
	defer server.Close()

	translator := NewGoogleTranslator("pt")
	translator.baseURL = server.URL

	got, err := translator.Translate("Hello world")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Olá mundo" {
		t.Errorf("Translate() = %q, want segments joined", got)
	}
}

func TestGoogleTranslatorEmptyInput(t *testing.T) {
	translator := NewGoogleTranslator("pt")
	got, err := translator.Translate("   ")
	if err != nil || got != "" {
		t.Errorf("Translate(blank) = (%q, %v), want empty and no error", got, err)
	}
}

func TestGoogleTranslatorHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	translator := NewGoogleTranslator("pt")
	translator.baseURL = server.URL

	_, err := translator.Translate("Hello")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Translate() error = %v, want *HTTPError with status 429", err)
	}
}

func TestParseTranslatePayloadMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html></html>"},
		{"empty array", "[]"},
		{"wrong shape", `["just a string"]`},
		{"no segments", `[[]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTranslatePayload([]byte(tt.body)); err == nil {
				t.Error("parseTranslatePayload() should fail")
			}
		})
	}
}

func TestTranslateEnricher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := r.URL.Query().Get("q")
		fmt.Fprintf(w, `[[["PT: %s","%s",null,null]],null,"en"]`, text, text)
	}))
	defer server.Close()

	enricher := NewTranslateEnricher("pt")
	enricher.translator.baseURL = server.URL

	a := Article{Title: "Hello", Description: "World", URL: "https://example.com", SourceName: "Src"}
	enriched, err := enricher.Enrich(a)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if enriched.TranslatedTitle != "PT: Hello" {
		t.Errorf("TranslatedTitle = %q", enriched.TranslatedTitle)
	}
	if enriched.SummaryText != "PT: World" {
		t.Errorf("SummaryText = %q", enriched.SummaryText)
	}
}

func TestTranslateEnricherReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	enricher := NewTranslateEnricher("pt")
	enricher.translator.baseURL = server.URL

	// The run loop decides whether this aborts or degrades; the enricher
	// itself only reports.
	if _, err := enricher.Enrich(Article{Title: "Hello", URL: "u"}); err == nil {
		t.Error("Enrich() should report translation failure")
	}
}

func TestNewEnricherSelectsVariant(t *testing.T) {
	settings := &Settings{}
	settings.applyDefaults()

	tests := []struct {
		mode string
		want string
	}{
		{ModeNone, ModeNone},
		{ModeTranslate, ModeTranslate},
		{ModeSummary, ModeSummary},
		{ModePipeline, ModePipeline},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			s := *settings
			s.Enrichment.Mode = tt.mode
			cfg := &Config{AnthropicAPIKey: "test-key", Settings: &s}

			enricher, err := newEnricher(cfg)
			if err != nil {
				t.Fatalf("newEnricher() error = %v", err)
			}
			if enricher.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", enricher.Name(), tt.want)
			}
		})
	}

	s := *settings
	s.Enrichment.Mode = "telepathy"
	if _, err := newEnricher(&Config{Settings: &s}); err == nil {
		t.Error("newEnricher() should reject unknown modes")
	}
}
