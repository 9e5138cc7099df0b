package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/ragask/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path   string
	Auth   string
	Body   map[string]any
	Raw    string
}

// fakeOpenAI serves the embeddings and chat completions endpoints.
type fakeOpenAI struct {
	mu       sync.Mutex
	requests []recordedRequest
	choices  []map[string]any
}

func newFakeOpenAI(t *testing.T) (*fakeOpenAI, *httptest.Server) {
	t.Helper()
	f := &fakeOpenAI{
		choices: []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Polygon scales Ethereum."},
				"finish_reason": "stop",
			},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeOpenAI) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Path: r.URL.Path,
		Auth: r.Header.Get("Authorization"),
		Body: body,
		Raw:  string(raw),
	})
	choices := f.choices
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/embeddings"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  body["model"],
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
			"usage": map[string]any{"prompt_tokens": 3, "total_tokens": 3},
		})
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body["model"],
			"choices": choices,
			"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14},
		})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOpenAI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(host),
		ai.WithAPIKey("sk-test"),
	)
}

func TestEmbedder_EmbedText(t *testing.T) {
	fake, srv := newFakeOpenAI(t)

	embedder, err := NewEmbedder(testConfig(srv.URL))
	require.NoError(t, err)

	vec, err := embedder.EmbedText(context.Background(), "What is the objective of polygon")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)

	req := fake.last()
	assert.Equal(t, "/v1/embeddings", req.Path)
	assert.Equal(t, "Bearer sk-test", req.Auth)
	assert.Equal(t, ai.DefaultEmbeddingModel, req.Body["model"])
}

func TestGenerator_Generate(t *testing.T) {
	fake, srv := newFakeOpenAI(t)

	generator, err := NewGenerator(testConfig(srv.URL))
	require.NoError(t, err)

	answer, err := generator.Generate(context.Background(), []ai.Message{
		ai.SystemMessage("You answer questions about blockchains"),
		ai.UserMessage("What is the objective of polygon"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Polygon scales Ethereum.", answer)

	req := fake.last()
	assert.Equal(t, "/v1/chat/completions", req.Path)
	assert.Equal(t, "Bearer sk-test", req.Auth)
	assert.Equal(t, ai.DefaultChatModel, req.Body["model"])
	assert.InDelta(t, 0.5, req.Body["temperature"], 1e-9)

	messages, ok := req.Body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Less(t,
		strings.Index(req.Raw, "You answer questions about blockchains"),
		strings.Index(req.Raw, "What is the objective of polygon"))
}

func TestGenerator_UnknownRole(t *testing.T) {
	_, srv := newFakeOpenAI(t)

	generator, err := NewGenerator(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = generator.Generate(context.Background(), []ai.Message{{Role: "tool", Content: "x"}})
	assert.ErrorIs(t, err, ai.ErrUnknownRole)
}

func TestGenerator_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	generator, err := NewGenerator(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = generator.Generate(context.Background(), []ai.Message{ai.UserMessage("hi")})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	_, srv := newFakeOpenAI(t)

	provider, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.Generator())
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithChatModel(""))

	_, err := NewProvider(cfg)
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	assert.Equal(t, "none", token(ai.NewConfig()))
	assert.Equal(t, "sk-test", token(ai.NewConfig(ai.WithAPIKey("sk-test"))))
}
