package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/models"
)

type fakeChat struct {
	reply string
	err   error
	req   openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}}},
		Usage:   openai.Usage{PromptTokens: 100, CompletionTokens: 20},
	}, nil
}

type memSettings map[string]string

func (m memSettings) Get(_ context.Context, key, def string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m memSettings) Set(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

type usageLog struct{ entries []models.AIUsage }

func (u *usageLog) Log(_ context.Context, e models.AIUsage) error {
	u.entries = append(u.entries, e)
	return nil
}

var aiOpts = AIOptions{APIKey: "sk-test", Model: "claude-test", Enabled: true}

func TestAIMatcher_Match(t *testing.T) {
	chat := &fakeChat{reply: "MATCHED: yes\nJOB_NAME: Chase Bank\nPO_NUMBER: 1203\nCONFIDENCE: medium\nREASONING: job name and PO on line 2"}
	usage := &usageLog{}
	m := NewAIMatcherWithClient(chat, aiOpts, memSettings{}, usage, zerolog.Nop())

	got, err := m.Match(context.Background(), "invoice text", []string{"Chase Bank"}, candidates)
	require.NoError(t, err)
	assert.Equal(t, AIMatch{POID: 1203, JobName: "Chase Bank", Confidence: 0.80}, got)
	assert.Equal(t, "claude-test", chat.req.Model)
	assert.Contains(t, chat.req.Messages[0].Content, "PO #1203: Job 'Chase Bank'")

	require.Len(t, usage.entries, 1)
	assert.True(t, usage.entries[0].Success)
	assert.Equal(t, 100, usage.entries[0].InputTokens)
	require.NotNil(t, usage.entries[0].MatchedPO)
	assert.EqualValues(t, 1203, *usage.entries[0].MatchedPO)
}

func TestAIMatcher_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no match", "MATCHED: no\nJOB_NAME: none\nPO_NUMBER: none\nCONFIDENCE: low"},
		{"unknown PO", "MATCHED: yes\nJOB_NAME: Chase Bank\nPO_NUMBER: 31337\nCONFIDENCE: high"},
		{"bad PO", "MATCHED: yes\nJOB_NAME: Chase Bank\nPO_NUMBER: twelve\nCONFIDENCE: high"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := &usageLog{}
			m := NewAIMatcherWithClient(&fakeChat{reply: tt.reply}, aiOpts, nil, usage, zerolog.Nop())
			got, err := m.Match(context.Background(), "text", []string{"Chase Bank"}, candidates)
			require.NoError(t, err)
			assert.Zero(t, got.POID)
			require.Len(t, usage.entries, 1)
			assert.False(t, usage.entries[0].Success)
		})
	}
}

func TestAIMatcher_APIError(t *testing.T) {
	usage := &usageLog{}
	m := NewAIMatcherWithClient(&fakeChat{err: errors.New("connection refused")}, aiOpts, nil, usage, zerolog.Nop())
	_, err := m.Match(context.Background(), "text", []string{"Chase Bank"}, candidates)
	require.Error(t, err)
	require.Len(t, usage.entries, 1)
	assert.Zero(t, usage.entries[0].InputTokens)
}

func TestAIMatcher_SkipsWithoutJobsOrCandidates(t *testing.T) {
	chat := &fakeChat{}
	m := NewAIMatcherWithClient(chat, aiOpts, nil, nil, zerolog.Nop())
	got, err := m.Match(context.Background(), "text", nil, candidates)
	require.NoError(t, err)
	assert.Zero(t, got.POID)
	assert.Empty(t, chat.req.Model)
}

func TestAIMatcher_Enabled(t *testing.T) {
	ctx := context.Background()
	settings := memSettings{}
	m := NewAIMatcherWithClient(&fakeChat{}, aiOpts, settings, nil, zerolog.Nop())
	assert.True(t, m.Enabled(ctx), "defaults to enabled")

	settings[models.SettingAIMatchingEnabled] = "false"
	assert.False(t, m.Enabled(ctx))

	noKey := NewAIMatcherWithClient(&fakeChat{}, AIOptions{Enabled: true}, memSettings{}, nil, zerolog.Nop())
	assert.False(t, noKey.Enabled(ctx))

	var nilMatcher *AIMatcher
	assert.False(t, nilMatcher.Enabled(ctx))
}

func TestAIMatcher_Ping(t *testing.T) {
	m := NewAIMatcherWithClient(&fakeChat{reply: " OK \n"}, aiOpts, nil, nil, zerolog.Nop())
	reply, err := m.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)
}

func TestConfidenceScore(t *testing.T) {
	assert.Equal(t, 0.95, confidenceScore("HIGH"))
	assert.Equal(t, 0.60, confidenceScore("low"))
	assert.Equal(t, 0.5, confidenceScore("unsure"))
}
