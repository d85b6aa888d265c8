// agents.go
package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aktagon/llmkit/anthropic/agents"
)

// Source content fed to the planner is capped at roughly 2000 tokens
// (4 chars per token).
const maxSourceChars = 8000

// ArticlePlan is the planner agent's structured output.
type ArticlePlan struct {
	Headline  string   `json:"headline"`
	Angle     string   `json:"angle"`
	KeyPoints []string `json:"key_points"`
}

// chatFunc issues one agent chat turn and returns the reply text.
type chatFunc func(prompt string, opts *agents.ChatOptions) (string, error)

func agentChat(agent *agents.ChatAgent) chatFunc {
	return func(prompt string, opts *agents.ChatOptions) (string, error) {
		response, err := agent.Chat(prompt, opts)
		if err != nil {
			return "", err
		}
		return response.Text, nil
	}
}

// PipelineEnricher is the multi-agent variant: a planner agent reads the
// full article page and produces a structured plan, then a writer agent
// turns the plan into the digest entry.
type PipelineEnricher struct {
	planner  chatFunc
	writer   chatFunc
	pages    *PageFetcher
	language string
	lines    int
	settings *Settings
}

func NewPipelineEnricher(apiKey string, settings *Settings) (*PipelineEnricher, error) {
	plannerAgent, err := agents.New(apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating planner agent: %w", err)
	}

	writerAgent, err := agents.New(apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating writer agent: %w", err)
	}

	return &PipelineEnricher{
		planner:  agentChat(plannerAgent),
		writer:   agentChat(writerAgent),
		pages:    NewPageFetcher(),
		language: settings.Enrichment.Language,
		lines:    settings.Enrichment.SummaryLines,
		settings: settings,
	}, nil
}

func (e *PipelineEnricher) Name() string { return ModePipeline }

func (e *PipelineEnricher) Enrich(a Article) (EnrichedArticle, error) {
	// The page fetch is best-effort context. Paywalls and bot blocks are
	// common, so a failed fetch falls back to the provider description
	// instead of failing the article.
	source := a.Description
	if e.pages != nil {
		if content, err := e.pages.FetchMarkdown(a.URL); err == nil {
			source = limitContentChars(content, maxSourceChars)
		} else {
			debugLog("page fetch failed for %s, using description: %v", a.URL, err)
		}
	}

	plan, err := e.plan(a, source)
	if err != nil {
		return EnrichedArticle{}, err
	}

	reply, err := e.write(plan, source)
	if err != nil {
		return EnrichedArticle{}, err
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

// plan runs the planner agent with structured output.
func (e *PipelineEnricher) plan(a Article, source string) (*ArticlePlan, error) {
	systemPrompt := renderPrompt(plannerSystemPrompt, map[string]string{
		"Language": e.language,
	})
	prompt := fmt.Sprintf("Original title: %s\n\nSource content:\n%s", a.Title, source)

	reply, err := e.planner(prompt, &agents.ChatOptions{
		SystemPrompt: systemPrompt,
		Schema:       strings.TrimSpace(plannerSchema),
		MaxTokens:    e.settings.Agents.Planner.MaxTokens,
		Temperature:  e.settings.Agents.Planner.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("planner agent chat: %w", err)
	}

	var plan ArticlePlan
	if err := json.Unmarshal([]byte(reply), &plan); err != nil {
		return nil, fmt.Errorf("parsing plan JSON: %w", err)
	}
	return &plan, nil
}

// write runs the writer agent with the plan embedded in the system prompt.
func (e *PipelineEnricher) write(plan *ArticlePlan, source string) (string, error) {
	base := renderPrompt(writerSystemPrompt, map[string]string{
		"Language": e.language,
		"Lines":    strconv.Itoa(e.lines),
	})

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("marshaling plan: %w", err)
	}
	systemPrompt := fmt.Sprintf("%s\n\n<plan>\n%s\n</plan>", base, planJSON)

	reply, err := e.writer("Source content:\n"+source, &agents.ChatOptions{
		SystemPrompt: systemPrompt,
		MaxTokens:    e.settings.Agents.Writer.MaxTokens,
		Temperature:  e.settings.Agents.Writer.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("writer agent chat: %w", err)
	}
	return reply, nil
}

// limitContentChars truncates source content so planner prompts stay inside
// the token budget.
func limitContentChars(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}
	return content[:maxChars] + "..."
}
