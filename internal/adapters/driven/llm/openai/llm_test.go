package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

func newTestService(t *testing.T, baseURL string) *GenerationService {
	t.Helper()
	svc, err := NewGenerationService(Config{APIKey: "test-key", BaseURL: baseURL})
	require.NoError(t, err)
	return svc
}

func completionResponse(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, content)
}

func TestNewGenerationService(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewGenerationService(Config{})

		assert.ErrorIs(t, err, domain.ErrCredentialMissing)
	})

	t.Run("defaults the model", func(t *testing.T) {
		svc, err := NewGenerationService(Config{APIKey: "k"})

		require.NoError(t, err)
		assert.Equal(t, DefaultModel, svc.ModelName())
	})
}

func TestGenerationService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the completion content", func(t *testing.T) {
		var gotReq chatCompletionRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			fmt.Fprint(w, completionResponse("grounded answer"))
		}))
		defer server.Close()
		svc := newTestService(t, server.URL)

		answer, err := svc.Generate(ctx, "the prompt", driven.GenerateOptions{MaxTokens: 256, Temperature: 0.1})

		require.NoError(t, err)
		assert.Equal(t, "grounded answer", answer)
		require.Len(t, gotReq.Messages, 1)
		assert.Equal(t, "the prompt", gotReq.Messages[0].Content)
		assert.Equal(t, 256, gotReq.MaxTokens)
	})

	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, completionResponse("recovered"))
		}))
		defer server.Close()
		svc := newTestService(t, server.URL)

		answer, err := svc.Generate(ctx, "prompt", driven.GenerateOptions{})

		require.NoError(t, err)
		assert.Equal(t, "recovered", answer)
		assert.GreaterOrEqual(t, calls.Load(), int32(2))
	})

	t.Run("non-retryable errors map to generation failed", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"context too long","type":"invalid_request_error"}}`)
		}))
		defer server.Close()
		svc := newTestService(t, server.URL)

		_, err := svc.Generate(ctx, "prompt", driven.GenerateOptions{})

		assert.ErrorIs(t, err, domain.ErrGenerationFailed)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		}))
		defer server.Close()
		svc := newTestService(t, server.URL)

		_, err := svc.Generate(ctx, "prompt", driven.GenerateOptions{})

		assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	})
}
