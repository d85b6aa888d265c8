package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir   = ".ianews/"
	defaultMaxArticles = 10
)

// Embedded configuration files
//
//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/summarizer-system-prompt.md
var summarizerSystemPrompt string

//go:embed config/summarizer-user-prompt.md
var summarizerUserPrompt string

//go:embed config/planner-system-prompt.md
var plannerSystemPrompt string

//go:embed config/planner-output-schema.json
var plannerSchema string

//go:embed config/writer-system-prompt.md
var writerSystemPrompt string

// Enrichment modes and failure policies.
const (
	ModeNone      = "none"
	ModeTranslate = "translate"
	ModeSummary   = "summary"
	ModePipeline  = "pipeline"

	PolicySkip  = "skip"
	PolicyAbort = "abort"
)

// Article sources.
const (
	SourceNewsAPI = "newsapi"
	SourceRSS     = "rss"
)

// SMTP transport variants: implicit TLS on 465 or STARTTLS on 587.
const (
	EncryptionImplicit = "implicit"
	EncryptionStartTLS = "starttls"
)

// MissingEnvError lists every required environment variable that was absent
// at startup, so one run log shows everything the operator has to fix.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Vars, ", ")
}

// AgentSettings tunes one model call.
type AgentSettings struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// EnrichmentSettings selects and tunes the enrichment stage.
type EnrichmentSettings struct {
	Mode         string `yaml:"mode"`
	Language     string `yaml:"language"`
	OnError      string `yaml:"on_error"`
	SummaryLines int    `yaml:"summary_lines"`
}

// SMTPSettings describes the mail relay endpoint.
type SMTPSettings struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Encryption string `yaml:"encryption"`
}

// Settings represents the YAML configuration structure. Credentials never
// live here; they come from the environment.
type Settings struct {
	Query          string             `yaml:"query"`
	SearchLanguage string             `yaml:"search_language"`
	LookbackDays   int                `yaml:"lookback_days"`
	Source         string             `yaml:"source"`
	SubjectPrefix  string             `yaml:"subject_prefix"`
	Enrichment     EnrichmentSettings `yaml:"enrichment"`
	SMTP           SMTPSettings       `yaml:"smtp"`
	Agents         struct {
		Summarizer AgentSettings `yaml:"summarizer"`
		Planner    AgentSettings `yaml:"planner"`
		Writer     AgentSettings `yaml:"writer"`
	} `yaml:"agents"`
}

// Config is the validated run configuration, built once at startup and
// passed to each stage.
type Config struct {
	NewsAPIKey      string
	AnthropicAPIKey string
	EmailFrom       string
	EmailPassword   string
	EmailTo         string
	Query           string
	MaxArticles     int
	Settings        *Settings
}

// LoadConfig reads the settings file (or the embedded defaults) and the
// process environment, failing fast before any network call when a required
// value is absent.
func LoadConfig(settingsPath string) (*Config, error) {
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		EmailFrom:       os.Getenv("EMAIL_FROM"),
		EmailPassword:   os.Getenv("EMAIL_PASSWORD"),
		EmailTo:         os.Getenv("EMAIL_TO"),
		Settings:        settings,
	}

	var missing []string
	if cfg.NewsAPIKey == "" && settings.Source == SourceNewsAPI {
		missing = append(missing, "NEWS_API_KEY")
	}
	if cfg.EmailFrom == "" {
		missing = append(missing, "EMAIL_FROM")
	}
	if cfg.EmailPassword == "" {
		missing = append(missing, "EMAIL_PASSWORD")
	}
	if cfg.AnthropicAPIKey == "" && settings.Enrichment.usesGenerativeAPI() {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if len(missing) > 0 {
		return nil, &MissingEnvError{Vars: missing}
	}

	if cfg.EmailTo == "" {
		cfg.EmailTo = cfg.EmailFrom
	}

	cfg.Query = settings.Query
	if q := os.Getenv("NEWS_QUERY"); q != "" {
		cfg.Query = q
	}

	cfg.MaxArticles = defaultMaxArticles
	if raw := os.Getenv("MAX_ARTICLES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_ARTICLES must be a positive integer, got %q", raw)
		}
		cfg.MaxArticles = n
	}

	return cfg, nil
}

func (es EnrichmentSettings) usesGenerativeAPI() bool {
	return es.Mode == ModeSummary || es.Mode == ModePipeline
}

// loadSettings loads settings from an explicit path, the default location,
// or the embedded defaults, in that order. An explicit path must exist.
func loadSettings(path string) (*Settings, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading settings file %s: %w", path, err)
		}
		data = b
	} else if b, err := os.ReadFile(filepath.Join(defaultConfigDir, "settings.yaml")); err == nil {
		data = b
	} else {
		data = []byte(defaultSettings)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	settings.applyDefaults()
	return &settings, nil
}

// applyDefaults fills the zero values a partial settings file leaves behind.
func (s *Settings) applyDefaults() {
	if s.Query == "" {
		s.Query = `"artificial intelligence" OR "AI"`
	}
	if s.LookbackDays == 0 {
		s.LookbackDays = 7
	}
	if s.Source == "" {
		s.Source = SourceNewsAPI
	}
	if s.SubjectPrefix == "" {
		s.SubjectPrefix = "Resumo de IA"
	}
	if s.Enrichment.Mode == "" {
		s.Enrichment.Mode = ModeSummary
	}
	if s.Enrichment.Language == "" {
		s.Enrichment.Language = "pt"
	}
	if s.Enrichment.OnError == "" {
		// Historical behavior: translation degrades per article, generative
		// summaries abort the run.
		if s.Enrichment.Mode == ModeTranslate {
			s.Enrichment.OnError = PolicySkip
		} else {
			s.Enrichment.OnError = PolicyAbort
		}
	}
	if s.Enrichment.SummaryLines == 0 {
		s.Enrichment.SummaryLines = 10
	}
	if s.SMTP.Host == "" {
		s.SMTP.Host = "smtp.gmail.com"
	}
	if s.SMTP.Port == 0 {
		s.SMTP.Port = 465
	}
	if s.SMTP.Encryption == "" {
		if s.SMTP.Port == 587 {
			s.SMTP.Encryption = EncryptionStartTLS
		} else {
			s.SMTP.Encryption = EncryptionImplicit
		}
	}
	applyAgentDefaults(&s.Agents.Summarizer, 1500, 0.7)
	applyAgentDefaults(&s.Agents.Planner, 1000, 0.0)
	applyAgentDefaults(&s.Agents.Writer, 1500, 0.2)
}

func applyAgentDefaults(a *AgentSettings, maxTokens int, temperature float64) {
	if a.Model == "" {
		a.Model = "claude-sonnet-4-20250514"
	}
	if a.MaxTokens == 0 {
		a.MaxTokens = maxTokens
		a.Temperature = temperature
	}
}

func (s *Settings) validate() error {
	switch s.Enrichment.Mode {
	case ModeNone, ModeTranslate, ModeSummary, ModePipeline:
	default:
		return fmt.Errorf("unknown enrichment mode: %q", s.Enrichment.Mode)
	}
	switch s.Enrichment.OnError {
	case PolicySkip, PolicyAbort:
	default:
		return fmt.Errorf("unknown enrichment failure policy: %q", s.Enrichment.OnError)
	}
	switch s.Source {
	case SourceNewsAPI, SourceRSS:
	default:
		return fmt.Errorf("unknown article source: %q", s.Source)
	}
	switch s.SMTP.Encryption {
	case EncryptionImplicit, EncryptionStartTLS:
	default:
		return fmt.Errorf("unknown smtp encryption: %q", s.SMTP.Encryption)
	}
	if s.Enrichment.SummaryLines < 0 {
		return fmt.Errorf("summary_lines must not be negative")
	}
	if s.LookbackDays < 1 {
		return fmt.Errorf("lookback_days must be at least 1")
	}
	return nil
}
