package main

// Article is one news item as returned by the search provider. Articles are
// immutable once created and discarded at the end of the run.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	SourceName  string `json:"source_name"`
}

// EnrichedArticle carries the presentation text derived from an Article by
// the configured enricher. SummaryHTML is already escaped and uses <br> for
// line breaks; SummaryText uses plain newlines.
type EnrichedArticle struct {
	Article
	TranslatedTitle string
	SummaryText     string
	SummaryHTML     string
}

// EmailMessage is the composed digest carrying both body representations so
// mail clients can pick either.
type EmailMessage struct {
	Subject   string
	From      string
	To        string
	PlainBody string
	HTMLBody  string
}
