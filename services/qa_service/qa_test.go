package qa_service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/services/llm_service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		kind   pipeline_type.AnswerKind
		answer string
		quotes []string
	}{
		{
			name:   "plain json",
			raw:    `{"answer": "PostgreSQL.", "quotes": ["Database Type: PostgreSQL"]}`,
			kind:   pipeline_type.AnswerParsed,
			answer: "PostgreSQL.",
			quotes: []string{"Database Type: PostgreSQL"},
		},
		{
			name:   "json fence",
			raw:    "```json\n{\"answer\": \"A\", \"quotes\": [\"q1\", \"q2\"]}\n```",
			kind:   pipeline_type.AnswerParsed,
			answer: "A",
			quotes: []string{"q1", "q2"},
		},
		{
			name:   "bare fence",
			raw:    "```\n{\"answer\": \"B\", \"quotes\": []}\n```",
			kind:   pipeline_type.AnswerParsed,
			answer: "B",
			quotes: []string{},
		},
		{
			name:   "json null",
			raw:    "null",
			kind:   pipeline_type.AnswerUnparsed,
			answer: "null",
			quotes: []string{},
		},
		{
			name:   "fenced json null",
			raw:    "```json\nnull\n```",
			kind:   pipeline_type.AnswerUnparsed,
			answer: "```json\nnull\n```",
			quotes: []string{},
		},
		{
			name:   "json string",
			raw:    `"PostgreSQL"`,
			kind:   pipeline_type.AnswerUnparsed,
			answer: `"PostgreSQL"`,
			quotes: []string{},
		},
		{
			name:   "missing answer",
			raw:    `{"quotes": ["x"]}`,
			kind:   pipeline_type.AnswerParsed,
			answer: "No answer generated.",
			quotes: []string{"x"},
		},
		{
			name:   "missing quotes",
			raw:    `{"answer": "C"}`,
			kind:   pipeline_type.AnswerParsed,
			answer: "C",
			quotes: []string{},
		},
		{
			name:   "not json",
			raw:    "The project uses PostgreSQL.",
			kind:   pipeline_type.AnswerUnparsed,
			answer: "The project uses PostgreSQL.",
			quotes: []string{},
		},
		{
			name:   "quotes of wrong type",
			raw:    `{"answer": "D", "quotes": [1, 2]}`,
			kind:   pipeline_type.AnswerUnparsed,
			answer: `{"answer": "D", "quotes": [1, 2]}`,
			quotes: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAnswer(tt.raw)
			assert.Equal(t, tt.kind, result.Kind)
			assert.Equal(t, tt.answer, result.Answer)
			assert.Equal(t, tt.quotes, result.Quotes)
		})
	}
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "", FormatHistory(nil))

	history := []pipeline_type.ChatHistoryEntry{
		{Query: "What database?", Answer: "PostgreSQL."},
		{Query: "Which version?", Answer: "16."},
	}
	assert.Equal(t,
		"Human: What database?\nAssistant: PostgreSQL.\nHuman: Which version?\nAssistant: 16.",
		FormatHistory(history))
}

func TestAnswer_NoHistorySkipsCondensation(t *testing.T) {
	mock := &llm_service.MockLLMService{
		CallLLMFunc: func(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
			assert.NotNil(t, config[llm_service.ConfigResponseSchema])
			return `{"answer": "PostgreSQL.", "quotes": ["Database Type: PostgreSQL"]}`, nil
		},
	}
	a := NewGroundedAnswerer(mock, discardLogger())

	result, err := a.Answer(context.Background(), "Database Type: PostgreSQL", "What database does it use?", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.CallCount())
	prompt := mock.Prompts()[0]
	assert.Contains(t, prompt, "Question: What database does it use?")
	assert.Contains(t, prompt, "Context:\nDatabase Type: PostgreSQL")
	assert.Equal(t, pipeline_type.Parsed("PostgreSQL.", []string{"Database Type: PostgreSQL"}), result)
}

func TestAnswer_HistoryIsCondensedFirst(t *testing.T) {
	mock := &llm_service.MockLLMService{
		CallLLMFunc: func(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
			if strings.Contains(prompt, "Standalone question:") {
				return "  Which version of PostgreSQL does the project use?  ", nil
			}
			return `{"answer": "16", "quotes": []}`, nil
		},
	}
	a := NewGroundedAnswerer(mock, discardLogger())
	history := []pipeline_type.ChatHistoryEntry{{Query: "What database?", Answer: "PostgreSQL."}}

	result, err := a.Answer(context.Background(), "PostgreSQL 16", "Which version of it?", history)
	require.NoError(t, err)

	require.Equal(t, 2, mock.CallCount())
	prompts := mock.Prompts()
	assert.Contains(t, prompts[0], "Human: What database?\nAssistant: PostgreSQL.")
	assert.Contains(t, prompts[0], "Follow-up Question: Which version of it?")
	assert.Contains(t, prompts[1], "Question: Which version of PostgreSQL does the project use?")
	assert.Equal(t, "16", result.Answer)
	assert.Empty(t, result.Quotes)
}

func TestAnswer_BlankCondensationFallsBack(t *testing.T) {
	mock := &llm_service.MockLLMService{
		CallLLMFunc: func(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
			if strings.Contains(prompt, "Standalone question:") {
				return "   ", nil
			}
			return `{"answer": "ok", "quotes": []}`, nil
		},
	}
	a := NewGroundedAnswerer(mock, discardLogger())

	_, err := a.Answer(context.Background(), "text", "original?", []pipeline_type.ChatHistoryEntry{{Query: "q", Answer: "a"}})
	require.NoError(t, err)
	assert.Contains(t, mock.Prompts()[1], "Question: original?")
}

func TestAnswer_UnparseableOutputDegrades(t *testing.T) {
	mock := &llm_service.MockLLMService{
		CallLLMFunc: func(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
			return "I think it is PostgreSQL", nil
		},
	}
	a := NewGroundedAnswerer(mock, discardLogger())

	result, err := a.Answer(context.Background(), "text", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline_type.AnswerUnparsed, result.Kind)
	assert.Equal(t, "I think it is PostgreSQL", result.Answer)
	assert.Empty(t, result.Quotes)
}

func TestAnswer_ModelErrors(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("answer call", func(t *testing.T) {
		mock := &llm_service.MockLLMService{
			CallLLMFunc: func(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
				return "", boom
			},
		}
		_, err := NewGroundedAnswerer(mock, discardLogger()).Answer(context.Background(), "text", "q", nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("condense call", func(t *testing.T) {
		mock := &llm_service.MockLLMService{
			CallLLMFunc: func(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
				return "", boom
			},
		}
		_, err := NewGroundedAnswerer(mock, discardLogger()).Answer(context.Background(), "text", "q",
			[]pipeline_type.ChatHistoryEntry{{Query: "a", Answer: "b"}})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, mock.CallCount())
	})
}

func TestAnswerSchemaIsStrict(t *testing.T) {
	schema := answerSchema()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []string{"answer", "quotes"}, schema["required"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	quotes, ok := props["quotes"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "array", quotes["type"])
}
