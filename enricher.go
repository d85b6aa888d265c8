// enricher.go
package main

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const (
	maxTitleChars          = 120
	googleTranslateBaseURL = "https://translate.googleapis.com/translate_a/single"
)

// Enricher derives the presentation text for one article. Variants are
// interchangeable; the run loop applies the configured failure policy.
type Enricher interface {
	Name() string
	Enrich(a Article) (EnrichedArticle, error)
}

// newEnricher selects the enrichment variant from configuration.
func newEnricher(cfg *Config) (Enricher, error) {
	switch cfg.Settings.Enrichment.Mode {
	case ModeNone:
		return &NoopEnricher{}, nil
	case ModeTranslate:
		return NewTranslateEnricher(cfg.Settings.Enrichment.Language), nil
	case ModeSummary:
		return NewSummaryEnricher(cfg.AnthropicAPIKey, cfg.Settings), nil
	case ModePipeline:
		return NewPipelineEnricher(cfg.AnthropicAPIKey, cfg.Settings)
	default:
		return nil, fmt.Errorf("unknown enrichment mode: %q", cfg.Settings.Enrichment.Mode)
	}
}

// fallbackArticle builds the enriched form from the untouched provider text.
// Used by the no-op variant and as the per-article fallback under the skip
// policy.
func fallbackArticle(a Article) EnrichedArticle {
	text, htmlBody := summaryFromLines(nonEmptyLines(a.Description))
	return EnrichedArticle{
		Article:         a,
		TranslatedTitle: a.Title,
		SummaryText:     text,
		SummaryHTML:     htmlBody,
	}
}

// NoopEnricher passes the provider text through unchanged.
type NoopEnricher struct{}

func (e *NoopEnricher) Name() string { return ModeNone }

func (e *NoopEnricher) Enrich(a Article) (EnrichedArticle, error) {
	return fallbackArticle(a), nil
}

// Completion is a parsed enrichment reply: the translated title line plus
// the summary lines, in reply order.
type Completion struct {
	Title string
	Lines []string
}

// CompletionFormatError reports a reply that does not follow the
// title-plus-N-lines format the prompt demands.
type CompletionFormatError struct {
	Reason string
}

func (e *CompletionFormatError) Error() string {
	return "malformed completion: " + e.Reason
}

// parseCompletion splits a model reply into its title line and summary
// lines. Leading bullet and dash markers are stripped from every line and
// line order is preserved. wantLines > 0 enforces an exact line count.
func parseCompletion(reply string, wantLines int) (*Completion, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, &CompletionFormatError{Reason: "empty reply"}
	}

	titleLine, rest, _ := strings.Cut(reply, "\n")
	title := stripBullet(stripTitleLabel(titleLine))
	if title == "" {
		return nil, &CompletionFormatError{Reason: "empty title line"}
	}
	title = truncateRunes(title, maxTitleChars)

	var lines []string
	for _, ln := range strings.Split(rest, "\n") {
		ln = stripBullet(ln)
		if ln == "" {
			continue
		}
		lines = append(lines, ln)
	}
	if wantLines > 0 && len(lines) != wantLines {
		return nil, &CompletionFormatError{
			Reason: fmt.Sprintf("expected %d summary lines, got %d", wantLines, len(lines)),
		}
	}

	return &Completion{Title: title, Lines: lines}, nil
}

// stripTitleLabel removes the TITLE:/TÍTULO: prefix models echo back from
// the prompt format.
func stripTitleLabel(line string) string {
	line = strings.TrimSpace(line)
	upper := strings.ToUpper(line)
	for _, label := range []string{"TÍTULO:", "TITULO:", "TITLE:"} {
		if strings.HasPrefix(upper, label) {
			return strings.TrimSpace(line[len(label):])
		}
	}
	return line
}

// stripBullet removes leading bullet, dash, and asterisk markers.
func stripBullet(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "•–*- \t")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		lines = append(lines, ln)
	}
	return lines
}

// summaryFromLines renders summary lines into the plain-text and HTML forms.
// HTML lines are escaped individually and joined with <br>.
func summaryFromLines(lines []string) (plain, htmlBody string) {
	escaped := make([]string, len(lines))
	for i, ln := range lines {
		escaped[i] = html.EscapeString(ln)
	}
	return strings.Join(lines, "\n"), strings.Join(escaped, "<br>")
}

// renderPrompt substitutes {{.Name}} variables in a prompt template.
func renderPrompt(tmpl string, vars map[string]string) string {
	for name, value := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{{."+name+"}}", value)
	}
	return strings.TrimSpace(tmpl)
}

// GoogleTranslator calls the keyless web translation endpoint. No credential
// is required; the endpoint is the same one the original translation library
// used internally.
type GoogleTranslator struct {
	target  string
	baseURL string
	client  *http.Client
}

func NewGoogleTranslator(target string) *GoogleTranslator {
	return &GoogleTranslator{
		target:  target,
		baseURL: googleTranslateBaseURL,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

func (t *GoogleTranslator) Translate(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", t.target)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequest(http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting translation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: t.baseURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading translation response: %w", err)
	}

	return parseTranslatePayload(body)
}

// parseTranslatePayload extracts the translated segments from the nested
// array payload the endpoint returns.
func parseTranslatePayload(body []byte) (string, error) {
	var payload []interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding translation response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty translation response")
	}
	sentences, ok := payload[0].([]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected translation response shape")
	}

	var b strings.Builder
	for _, s := range sentences {
		seg, ok := s.([]interface{})
		if !ok || len(seg) == 0 {
			continue
		}
		if text, ok := seg[0].(string); ok {
			b.WriteString(text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no translated text in response")
	}
	return b.String(), nil
}

// TranslateEnricher machine-translates the title and description without a
// generative model.
type TranslateEnricher struct {
	translator *GoogleTranslator
}

func NewTranslateEnricher(language string) *TranslateEnricher {
	return &TranslateEnricher{translator: NewGoogleTranslator(language)}
}

func (e *TranslateEnricher) Name() string { return ModeTranslate }

func (e *TranslateEnricher) Enrich(a Article) (EnrichedArticle, error) {
	title, err := e.translator.Translate(a.Title)
	if err != nil {
		return EnrichedArticle{}, fmt.Errorf("translating title: %w", err)
	}
	if title == "" {
		title = a.Title
	}

	description, err := e.translator.Translate(a.Description)
	if err != nil {
		return EnrichedArticle{}, fmt.Errorf("translating description: %w", err)
	}
	if description == "" {
		description = a.Description
	}

	text, htmlBody := summaryFromLines(nonEmptyLines(description))
	return EnrichedArticle{
		Article:         a,
		TranslatedTitle: truncateRunes(title, maxTitleChars),
		SummaryText:     text,
		SummaryHTML:     htmlBody,
	}, nil
}

// completionFunc issues one generative completion. Indirection keeps the
// enrichers testable without network access.
type completionFunc func(systemPrompt, userPrompt string) (string, error)

// SummaryEnricher asks the generative API for a translated title and an
// exact number of enumerated summary lines, one call per article.
type SummaryEnricher struct {
	complete completionFunc
	language string
	lines    int
}

func NewSummaryEnricher(apiKey string, settings *Settings) *SummaryEnricher {
	agent := settings.Agents.Summarizer
	complete := func(systemPrompt, userPrompt string) (string, error) {
		requestSettings := types.RequestSettings{
			Model:       agent.Model,
			MaxTokens:   agent.MaxTokens,
			Temperature: agent.Temperature,
		}
		response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", apiKey, requestSettings)
		if err != nil {
			return "", err
		}
		if len(response.Content) == 0 {
			return "", fmt.Errorf("no content in response")
		}
		return response.Content[0].Text, nil
	}

	return &SummaryEnricher{
		complete: complete,
		language: settings.Enrichment.Language,
		lines:    settings.Enrichment.SummaryLines,
	}
}

func (e *SummaryEnricher) Name() string { return ModeSummary }

func (e *SummaryEnricher) Enrich(a Article) (EnrichedArticle, error) {
	systemPrompt := renderPrompt(summarizerSystemPrompt, map[string]string{
		"Language": e.language,
		"Lines":    strconv.Itoa(e.lines),
	})
	userPrompt := renderPrompt(summarizerUserPrompt, map[string]string{
		"Title":       a.Title,
		"Description": a.Description,
	})

	reply, err := e.complete(systemPrompt, userPrompt)
	if err != nil {
		return EnrichedArticle{}, fmt.Errorf("summarizer completion: %w", err)
	}

	completion, err := parseCompletion(reply, e.lines)
	if err != nil {
		return EnrichedArticle{}, err
	}

	text, htmlBody := summaryFromLines(completion.Lines)
	return EnrichedArticle{
		Article:         a,
		TranslatedTitle: completion.Title,
		SummaryText:     text,
		SummaryHTML:     htmlBody,
	}, nil
}
