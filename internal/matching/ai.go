package matching

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"poRequestTracker/internal/metrics"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

const (
	maxInvoiceExcerpt = 3000
	maxResponseTokens = 300
)

// ChatClient is the subset of the OpenAI-compatible client the matcher uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIOptions configures NewAIMatcher.
type AIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// Enabled is the deployment-level switch; the stored setting can still turn matching off.
	Enabled bool
}

// AIMatcher asks a language model which approved PO an invoice belongs to.
type AIMatcher struct {
	client   ChatClient
	model    string
	keySet   bool
	enabled  bool
	settings repository.SettingsStore
	usage    repository.AIUsageLogger
	logger   zerolog.Logger
}

// NewAIMatcher builds a matcher talking to an OpenAI-compatible chat endpoint.
func NewAIMatcher(opts AIOptions, settings repository.SettingsStore, usage repository.AIUsageLogger, logger zerolog.Logger) *AIMatcher {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return NewAIMatcherWithClient(openai.NewClientWithConfig(cfg), opts, settings, usage, logger)
}

// NewAIMatcherWithClient is NewAIMatcher with an explicit client.
func NewAIMatcherWithClient(client ChatClient, opts AIOptions, settings repository.SettingsStore, usage repository.AIUsageLogger, logger zerolog.Logger) *AIMatcher {
	return &AIMatcher{
		client:   client,
		model:    opts.Model,
		keySet:   opts.APIKey != "",
		enabled:  opts.Enabled,
		settings: settings,
		usage:    usage,
		logger:   logger,
	}
}

// KeySet reports whether an API key was configured.
func (m *AIMatcher) KeySet() bool { return m.keySet }

// Enabled reports whether an API key is configured and the stored setting is "true".
func (m *AIMatcher) Enabled(ctx context.Context) bool {
	if m == nil || !m.keySet || !m.enabled {
		return false
	}
	if m.settings == nil {
		return true
	}
	v, err := m.settings.Get(ctx, models.SettingAIMatchingEnabled, "true")
	if err != nil {
		m.logger.Warn().Err(err).Msg("read AI matching setting")
		return false
	}
	return strings.EqualFold(v, "true")
}

// Ping sends a trivial prompt and returns the reply.
func (m *AIMatcher) Ping(ctx context.Context) (string, error) {
	if !m.keySet {
		return "", errors.New("API key not set")
	}
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     m.model,
		MaxTokens: 10,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "Reply with OK"}},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Match asks the model to tie text to one of pos. A zero POID means no match.
// Every call is recorded in the usage log.
func (m *AIMatcher) Match(ctx context.Context, text string, jobs []string, pos Candidates) (AIMatch, error) {
	if len(jobs) == 0 || len(pos) == 0 {
		return AIMatch{}, nil
	}
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     m.model,
		MaxTokens: maxResponseTokens,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text, jobs, pos)}},
	})
	if err != nil {
		m.record(ctx, text, nil, "", 0, 0, 0, false)
		metrics.RecordAICall("error")
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return AIMatch{}, fmt.Errorf("AI matcher API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return AIMatch{}, fmt.Errorf("AI matcher: %w", err)
	}
	in, out := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if len(resp.Choices) == 0 {
		m.record(ctx, text, nil, "", 0, in, out, false)
		return AIMatch{}, errors.New("AI matcher: empty response")
	}

	fields := parseReply(resp.Choices[0].Message.Content)
	matched := strings.EqualFold(fields["MATCHED"], "yes")
	job := fields["JOB_NAME"]
	poStr := fields["PO_NUMBER"]
	if !matched || job == "" || strings.EqualFold(job, "none") || poStr == "" || strings.EqualFold(poStr, "none") {
		m.logger.Info().Str("reasoning", fields["REASONING"]).Msg("AI matcher found no match")
		m.record(ctx, text, nil, "", 0, in, out, false)
		return AIMatch{}, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(poStr), 10, 64)
	if err != nil {
		m.logger.Info().Str("po_number", poStr).Msg("AI matcher returned invalid PO number")
		m.record(ctx, text, nil, job, 0, in, out, false)
		return AIMatch{}, nil
	}
	if _, ok := pos[id]; !ok {
		m.logger.Info().Int64("po_id", id).Msg("AI matcher suggested a PO that is not awaiting an invoice")
		m.record(ctx, text, &id, job, 0, in, out, false)
		return AIMatch{}, nil
	}
	conf := confidenceScore(fields["CONFIDENCE"])
	m.record(ctx, text, &id, job, conf, in, out, true)
	return AIMatch{POID: id, JobName: job, Confidence: conf}, nil
}

func (m *AIMatcher) record(ctx context.Context, text string, po *int64, job string, conf float64, in, out int, ok bool) {
	if ok {
		metrics.RecordAICall("matched")
	} else if in > 0 || out > 0 {
		metrics.RecordAICall("unmatched")
	}
	if m.usage == nil {
		return
	}
	err := m.usage.Log(ctx, models.AIUsage{
		InvoicePreview: text,
		MatchedPO:      po,
		MatchedJob:     job,
		Confidence:     conf,
		InputTokens:    in,
		OutputTokens:   out,
		Success:        ok,
	})
	if err != nil {
		m.logger.Warn().Err(err).Msg("record AI usage")
	}
}

func buildPrompt(text string, jobs []string, pos Candidates) string {
	var poLines []string
	for _, id := range pos.IDs() {
		job := pos[id].JobName
		if job == "" {
			job = "Unknown"
		}
		poLines = append(poLines, fmt.Sprintf("PO #%d: Job '%s'", id, job))
	}
	if r := []rune(text); len(r) > maxInvoiceExcerpt {
		text = string(r[:maxInvoiceExcerpt])
	}
	return fmt.Sprintf(`Analyze this invoice text and find which job it belongs to.

ACTIVE JOB NAMES IN SYSTEM:
%s

APPROVED PO NUMBERS WAITING FOR INVOICES:
%s

INVOICE TEXT:
%s

TASK:
1. Find any job name from the active jobs list that appears in the invoice (even if misspelled, has OCR errors, spacing issues, or is abbreviated)
2. Find the PO number associated with that job in the invoice
3. Match it to one of the approved PO numbers listed above

IMPORTANT:
- Job names may be misspelled (e.g., "HERONS GELN" instead of "Herons Glen")
- Job names may have spacing issues (e.g., "HERONSGLEN" or "HER ONS GLEN")
- Job names may have OCR errors (e.g., "Her0ns G1en" with zeros instead of O's)
- The PO number is usually a 3-5 digit number near the job name
- Only match to PO numbers from the approved list above

Respond in EXACTLY this format (nothing else):
MATCHED: [yes/no]
JOB_NAME: [the job name from the active list, or "none"]
PO_NUMBER: [the PO number from approved list, or "none"]
CONFIDENCE: [high/medium/low]
REASONING: [brief explanation of how you matched it]`, strings.Join(jobs, ", "), strings.Join(poLines, "\n"), text)
}

// parseReply splits "KEY: value" lines into a map keyed by upper-cased key.
func parseReply(reply string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func confidenceScore(level string) float64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "high":
		return 0.95
	case "medium":
		return 0.80
	case "low":
		return 0.60
	}
	return 0.5
}
