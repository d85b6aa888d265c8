package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	settingsPath string
	dryRun       bool
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "ianews",
	Short: "Fetches recent AI news and delivers a plain-text + HTML email digest",
	Long: `ianews runs one fetch, enrich, compose, send cycle: recent articles about
artificial intelligence are pulled from a news search API, optionally
translated or summarized, and delivered to a single recipient over SMTP.
Scheduling is external; each invocation is one complete run.

Credentials come from the environment (NEWS_API_KEY, EMAIL_FROM,
EMAIL_PASSWORD, and ANTHROPIC_API_KEY for generative enrichment); tuning
lives in an optional settings YAML file.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		// A local .env is a development convenience; deployments set the
		// environment directly.
		_ = godotenv.Load()

		if debugMode {
			SetDebugMode(true)
		}

		if err := run(); err != nil {
			log.Fatalf("Run failed: %v", err)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to a settings YAML file (defaults to "+defaultConfigDir+"settings.yaml)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compose the digest and print it instead of sending")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

// run executes one full pipeline: config, fetch, enrich, compose, send.
func run() error {
	cfg, err := LoadConfig(settingsPath)
	if err != nil {
		return err
	}

	source, err := newArticleSource(cfg)
	if err != nil {
		return err
	}

	enricher, err := newEnricher(cfg)
	if err != nil {
		return err
	}

	log.Printf("→ Fetching articles: %s", cfg.Query)
	articles, err := source.Fetch(cfg.Query, cfg.Settings.LookbackDays, cfg.MaxArticles)
	if err != nil {
		return fmt.Errorf("fetching articles: %w", err)
	}
	log.Printf("✓ %d qualifying articles", len(articles))

	enriched, err := enrichAll(enricher, articles, cfg.Settings.Enrichment.OnError)
	if err != nil {
		return err
	}

	msg := ComposeEmail(enriched, time.Now(), cfg)

	if dryRun {
		fmt.Printf("Subject: %s\nTo: %s\n\n%s", msg.Subject, msg.To, msg.PlainBody)
		return nil
	}

	log.Printf("→ Sending to %s", cfg.EmailTo)
	if err := NewSMTPSender(cfg).Send(msg); err != nil {
		return err
	}
	log.Printf("✓ Email sent")

	return nil
}

// enrichAll applies the enricher to every article in order, honoring the
// failure policy: skip keeps the original text for the failed article, abort
// stops the run.
func enrichAll(enricher Enricher, articles []Article, onError string) ([]EnrichedArticle, error) {
	enriched := make([]EnrichedArticle, 0, len(articles))
	for i, a := range articles {
		if enricher.Name() != ModeNone {
			log.Printf("→ [%d/%d] Enriching (%s): %s", i+1, len(articles), enricher.Name(), a.Title)
		}

		ea, err := enricher.Enrich(a)
		if err != nil {
			if onError == PolicyAbort {
				return nil, fmt.Errorf("enriching %s: %w", a.URL, err)
			}
			log.Printf("✗ Enrichment failed for %s, keeping original text: %v", a.URL, err)
			ea = fallbackArticle(a)
		}
		enriched = append(enriched, ea)
	}
	return enriched, nil
}

// newArticleSource selects the configured article source.
func newArticleSource(cfg *Config) (ArticleSource, error) {
	switch cfg.Settings.Source {
	case SourceNewsAPI:
		return NewNewsAPIClient(cfg.NewsAPIKey, cfg.Settings.SearchLanguage), nil
	case SourceRSS:
		return NewGoogleNewsSource(cfg.Settings.SearchLanguage), nil
	default:
		return nil, fmt.Errorf("unknown article source: %q", cfg.Settings.Source)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
