package questions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator(Options{})
	require.Error(t, err)
}

func TestParseQuestionsPlainArray(t *testing.T) {
	t.Parallel()

	parsed, err := parseQuestions(`[{"question":"What is covered?","answer":"Transcription."}]`)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.Equal(t, "What is covered?", parsed[0].Question)
}

func TestParseQuestionsFencedBlock(t *testing.T) {
	t.Parallel()

	content := "```json\n[{\"question\":\"Q1\",\"answer\":\"A1\"},{\"question\":\"Q2\",\"answer\":\"A2\"}]\n```"
	parsed, err := parseQuestions(content)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
}

func TestParseQuestionsDropsBlankEntries(t *testing.T) {
	t.Parallel()

	parsed, err := parseQuestions(`[{"question":"  ","answer":"x"},{"question":"Q","answer":"A"}]`)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.Equal(t, "Q", parsed[0].Question)
}

func TestParseQuestionsRejectsProse(t *testing.T) {
	t.Parallel()

	_, err := parseQuestions("Here are your questions: 1. What?")
	require.Error(t, err)
}

func TestParseQuestionsRejectsEmptyArray(t *testing.T) {
	t.Parallel()

	_, err := parseQuestions("[]")
	require.Error(t, err)
}

func TestBuildPromptTruncatesLongTranscript(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", maxTranscriptChars+1000)
	prompt := buildPrompt(long, 5)
	require.Less(t, len(prompt), maxTranscriptChars+200)
	require.Contains(t, prompt, "5 study questions")
}

func TestGenerateRoundTrip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		require.Contains(t, req.Messages[1].Content, "hello world")

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: `[{"question":"What did the speaker say?","answer":"hello world"}]`,
				}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g, err := NewGenerator(Options{APIKey: "oai-key", BaseURL: server.URL + "/v1", Count: 1})
	require.NoError(t, err)

	parsed, err := g.Generate(context.Background(), "hello world")
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.Equal(t, "hello world", parsed[0].Answer)
}

func TestGenerateEmptyTranscript(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(Options{APIKey: "oai-key"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "   ")
	require.Error(t, err)
}
