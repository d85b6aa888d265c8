package main

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const (
	// Rendered when zero qualifying articles were found, so the digest is
	// never an empty list.
	placeholderText = "No qualifying articles were found for this period."

	emailFooter = "Automated digest. Disable the external trigger to stop receiving it."
)

// ComposeEmail renders the article list into the plain-text and HTML bodies
// and builds the message envelope. Each article URL appears exactly once per
// body: in the plain Link: line and in the HTML anchor href.
func ComposeEmail(items []EnrichedArticle, now time.Time, cfg *Config) EmailMessage {
	prefix := cfg.Settings.SubjectPrefix
	subject := fmt.Sprintf("%s - %s", prefix, now.Format("02/01/2006"))

	var plain strings.Builder
	var htmlBody strings.Builder
	htmlBody.WriteString("<h1>📰 " + html.EscapeString(prefix) + "</h1>")

	if len(items) == 0 {
		plain.WriteString(placeholderText + "\n")
		htmlBody.WriteString("<p>" + placeholderText + "</p>")
	} else {
		htmlBody.WriteString("<ol>")
		for _, it := range items {
			plain.WriteString(it.TranslatedTitle + "\n")
			if it.SummaryText != "" {
				plain.WriteString(it.SummaryText + "\n")
			}
			plain.WriteString("Link: " + it.URL + "\n\n")

			anchor := it.SourceName
			if anchor == "" {
				anchor = "link"
			}
			htmlBody.WriteString("<li><strong>" + html.EscapeString(it.TranslatedTitle) + "</strong>")
			if it.SummaryHTML != "" {
				htmlBody.WriteString("<br>" + it.SummaryHTML)
			}
			htmlBody.WriteString(`<br><a href="` + it.URL + `">` + html.EscapeString(anchor) + "</a></li>")
		}
		htmlBody.WriteString("</ol>")
	}

	htmlBody.WriteString(`<p style="font-size:0.8em;color:#666">` + emailFooter + "</p>")

	return EmailMessage{
		Subject:   subject,
		From:      cfg.EmailFrom,
		To:        cfg.EmailTo,
		PlainBody: plain.String(),
		HTMLBody:  htmlBody.String(),
	}
}
