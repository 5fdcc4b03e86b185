package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultModel = openai.GPT4oMini

	// Transcripts beyond this are truncated before prompting; study
	// questions from the opening hour of material are still useful and
	// the prompt stays inside the model context window.
	maxTranscriptChars = 24000

	systemPrompt = "You write study questions for video transcripts. " +
		"Respond with a JSON array only, no prose. Each element is an object " +
		`with the keys "question" and "answer".`
)

// Question is one generated study question with its expected answer.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Options struct {
	APIKey string

	// Model overrides the chat model. Empty means gpt-4o-mini.
	Model string

	// BaseURL overrides the API host. Used by tests.
	BaseURL string

	// Count is how many questions to ask for. Zero means 5.
	Count int

	Logger *zap.Logger
}

// Generator produces study questions from a transcript via the OpenAI
// chat completions API.
type Generator struct {
	client *openai.Client
	model  string
	count  int
	logger *zap.Logger
}

func NewGenerator(opts Options) (*Generator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Count <= 0 {
		opts.Count = 5
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
		count:  opts.Count,
		logger: opts.Logger,
	}, nil
}

// Generate asks the model for study questions covering the transcript.
func (g *Generator) Generate(ctx context.Context, transcript string) ([]Question, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errors.New("transcript is empty")
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(transcript, g.count)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	parsed, err := parseQuestions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("generated study questions", zap.Int("count", len(parsed)))
	return parsed, nil
}

func buildPrompt(transcript string, count int) string {
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write %d study questions with answers for this transcript.\n\nTranscript:\n", count)
	b.WriteString(transcript)
	return b.String()
}

// parseQuestions decodes the model output, tolerating a fenced code
// block around the JSON array.
func parseQuestions(content string) ([]Question, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed []Question
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("decode question list: %w", err)
	}

	filtered := parsed[:0]
	for _, q := range parsed {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		filtered = append(filtered, q)
	}
	if len(filtered) == 0 {
		return nil, errors.New("model returned no usable questions")
	}
	return filtered, nil
}
