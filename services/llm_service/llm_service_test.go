package llm_service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func geminiReply(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + jsonString(text) + `}]}}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestGeminiService_CallLLM(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int
		config        map[string]interface{}
		expectedCalls int32
		expectError   bool
		expectedMime  string
	}{
		{
			name:          "success on first attempt",
			responses:     []int{http.StatusOK},
			expectedCalls: 1,
			expectedMime:  "text/plain",
		},
		{
			name:          "server error is retried",
			responses:     []int{http.StatusInternalServerError, http.StatusOK},
			expectedCalls: 2,
			expectedMime:  "text/plain",
		},
		{
			name:          "bad request is not retried",
			responses:     []int{http.StatusBadRequest},
			expectedCalls: 1,
			expectError:   true,
		},
		{
			name:          "gives up after max retries",
			responses:     []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
			expectedCalls: 3,
			expectError:   true,
		},
		{
			name:          "schema switches to json output",
			responses:     []int{http.StatusOK},
			config:        map[string]interface{}{ConfigResponseSchema: map[string]interface{}{"type": "object"}},
			expectedCalls: 1,
			expectedMime:  "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			var lastMime string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				assert.Equal(t, "secret", r.URL.Query().Get("key"))

				var payload struct {
					GenerationConfig struct {
						ResponseMimeType string `json:"responseMimeType"`
					} `json:"generationConfig"`
				}
				_ = json.NewDecoder(r.Body).Decode(&payload)
				lastMime = payload.GenerationConfig.ResponseMimeType

				status := tt.responses[int(n)-1]
				w.WriteHeader(status)
				if status == http.StatusOK {
					io.WriteString(w, geminiReply("generated text"))
					return
				}
				io.WriteString(w, `{"error":{"code":`+jsonString(http.StatusText(status))+`,"message":"boom","status":"FAILED"}}`)
			}))
			defer server.Close()

			svc := NewGeminiService(server.URL, "secret", discardLogger())
			svc.retryDelay = 0

			out, err := svc.CallLLM(context.Background(), tt.config, "prompt")
			assert.Equal(t, tt.expectedCalls, atomic.LoadInt32(&calls))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "generated text", out)
			assert.Equal(t, tt.expectedMime, lastMime)
		})
	}
}

func TestGeminiService_MissingKey(t *testing.T) {
	svc := NewGeminiService("http://127.0.0.1:0", "", discardLogger())
	_, err := svc.CallLLM(context.Background(), nil, "prompt")

	var httpErr *APIHttpError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestOpenAIService_CallLLM_StrictSchema(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/responses"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"resp_1","object":"response","status":"completed","model":"gpt-4o-mini",
			"output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed",
			"content":[{"type":"output_text","text":"{\"answer\":\"ok\",\"quotes\":[]}","annotations":[]}]}]}`)
	}))
	defer server.Close()

	svc := NewOpenAIService("test-key", "gpt-4o-mini", discardLogger(),
		option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))

	schema := map[string]interface{}{"type": "object", "additionalProperties": false}
	out, err := svc.CallLLM(context.Background(), map[string]interface{}{
		ConfigTemperature:    0.0,
		ConfigResponseSchema: schema,
		ConfigSchemaName:     "grounded_answer",
	}, "question")
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"ok","quotes":[]}`, out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	text, ok := body["text"].(map[string]interface{})
	require.True(t, ok, "text format must be sent")
	format := text["format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "grounded_answer", format["name"])
	assert.Equal(t, true, format["strict"])
}

func TestOpenAIService_PermanentErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key","param":""}}`)
	}))
	defer server.Close()

	svc := NewOpenAIService("bad", "gpt-4o-mini", discardLogger(),
		option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))

	_, err := svc.CallLLM(context.Background(), nil, "question")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, statusCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// fakeModel is a minimal llms.Model that records the call options.
type fakeModel struct {
	reply   string
	err     error
	options llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainService_CallLLM(t *testing.T) {
	model := &fakeModel{reply: "local answer"}
	svc := NewLangChainServiceWithModel(model, "llama3.1", discardLogger())

	out, err := svc.CallLLM(context.Background(), map[string]interface{}{
		ConfigTemperature:    0.3,
		ConfigResponseSchema: map[string]interface{}{"type": "object"},
	}, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
	assert.InDelta(t, 0.3, model.options.Temperature, 1e-9)
	assert.True(t, model.options.JSONMode)
}

func TestLangChainService_Error(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	svc := NewLangChainServiceWithModel(model, "llama3.1", discardLogger())

	_, err := svc.CallLLM(context.Background(), nil, "prompt")
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, model.options.JSONMode)
}

func TestMockLLMService_RecordsPrompts(t *testing.T) {
	mock := &MockLLMService{}
	out, err := mock.CallLLM(context.Background(), nil, "one")
	require.NoError(t, err)
	assert.Equal(t, "mock response", out)
	mock.CallLLM(context.Background(), nil, "two")

	assert.Equal(t, []string{"one", "two"}, mock.Prompts())
	assert.Equal(t, 2, mock.CallCount())
}
