package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	newsAPIBaseURL    = "https://newsapi.org/v2/everything"
	googleNewsBaseURL = "https://news.google.com/rss/search"
	userAgent         = "ianews/1.0 (+https://github.com/jesuegraciliano/ianews)"
	fetchTimeout      = 30 * time.Second
	providerPageSize  = 100
)

// ArticleSource produces the candidate articles for one run. Implementations
// return articles in provider order, already filtered and capped.
type ArticleSource interface {
	Fetch(query string, lookbackDays, max int) ([]Article, error)
}

// NewsAPIError is a non-ok status in the provider response envelope. The
// provider message is surfaced verbatim.
type NewsAPIError struct {
	Status  string
	Code    string
	Message string
}

func (e *NewsAPIError) Error() string {
	if e.Message != "" {
		return "newsapi: " + e.Message
	}
	return fmt.Sprintf("newsapi: status %q", e.Status)
}

// NewsAPIClient fetches articles from the NewsAPI /v2/everything endpoint.
type NewsAPIClient struct {
	apiKey   string
	language string
	baseURL  string
	client   *http.Client
	now      func() time.Time
}

func NewNewsAPIClient(apiKey, searchLanguage string) *NewsAPIClient {
	return &NewsAPIClient{
		apiKey:   apiKey,
		language: searchLanguage,
		baseURL:  newsAPIBaseURL,
		client:   &http.Client{Timeout: fetchTimeout},
		now:      time.Now,
	}
}

type newsAPIEnvelope struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch performs one GET against the search endpoint and keeps the first max
// articles with a non-empty title and URL, in provider order. The provider
// sorts by publish time because of the sortBy parameter.
func (c *NewsAPIClient) Fetch(query string, lookbackDays, max int) ([]Article, error) {
	from := c.now().UTC().AddDate(0, 0, -lookbackDays).Format("2006-01-02")

	params := url.Values{}
	params.Set("q", query)
	params.Set("from", from)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(providerPageSize))
	if c.language != "" {
		params.Set("language", c.language)
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting articles: %w", err)
	}
	defer resp.Body.Close()

	debugLog("newsapi response: status=%d", resp.StatusCode)

	// Error statuses still carry the JSON envelope, so decode first and let
	// the status field decide.
	var envelope newsAPIEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding newsapi response (HTTP %d): %w", resp.StatusCode, err)
	}
	if envelope.Status != "ok" {
		return nil, &NewsAPIError{Status: envelope.Status, Code: envelope.Code, Message: envelope.Message}
	}

	articles := make([]Article, 0, max)
	for _, a := range envelope.Articles {
		if len(articles) == max {
			break
		}
		if a.Title == "" || a.URL == "" {
			continue
		}
		articles = append(articles, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			SourceName:  a.Source.Name,
		})
	}
	return articles, nil
}

// GoogleNewsSource is the keyless alternative: it reads the Google News RSS
// search feed instead of NewsAPI.
type GoogleNewsSource struct {
	language string
	baseURL  string
	parser   *gofeed.Parser
}

func NewGoogleNewsSource(searchLanguage string) *GoogleNewsSource {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: fetchTimeout}
	return &GoogleNewsSource{
		language: searchLanguage,
		baseURL:  googleNewsBaseURL,
		parser:   parser,
	}
}

// Fetch applies the same filter and cap rules as the NewsAPI source. The
// lookback window is expressed with the feed's when: operator.
func (s *GoogleNewsSource) Fetch(query string, lookbackDays, max int) ([]Article, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%s when:%dd", query, lookbackDays))
	if s.language != "" {
		params.Set("hl", s.language)
	}

	feed, err := s.parser.ParseURL(s.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("parsing news feed: %w", err)
	}

	articles := make([]Article, 0, max)
	for _, item := range feed.Items {
		if len(articles) == max {
			break
		}
		if item.Title == "" || item.Link == "" {
			continue
		}
		title, source := splitFeedTitle(item.Title)
		articles = append(articles, Article{
			Title:       title,
			Description: item.Description,
			URL:         item.Link,
			SourceName:  source,
		})
	}
	return articles, nil
}

// splitFeedTitle separates "Headline - Outlet" feed titles into their parts.
func splitFeedTitle(title string) (headline, source string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}
