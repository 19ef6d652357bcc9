package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		http.DefaultTransport.(*http.Transport).CloseIdleConnections()
	})
	return server
}

func newTestClient(serverURL string) *GeminiClient {
	return NewGeminiClientWithConfig(GeminiConfig{
		APIKey:          "test-key",
		BaseURL:         serverURL,
		Model:           "gemini-2.5-flash",
		Timeout:         5 * time.Second,
		MaxOutputTokens: 256,
	})
}

func candidateResponse(text string) []byte {
	body := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	data, _ := json.Marshal(body)
	return data
}

func TestGeminiClientComplete(t *testing.T) {
	t.Run("parses the candidate text", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "models/gemini-2.5-flash:generateContent")
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))

			var req GeminiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Contents, 1)
			assert.Equal(t, "classify this", req.Contents[0].Parts[0].Text)

			w.Write(candidateResponse("Disjuntores"))
		})

		client := newTestClient(server.URL)
		reply, err := client.Complete(context.Background(), "classify this")
		require.NoError(t, err)
		assert.Equal(t, "Disjuntores", reply)
	})

	t.Run("carries the system instruction", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req GeminiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.SystemInstruction)
			assert.Equal(t, "you are a cataloger", req.SystemInstruction.Parts[0].Text)
			w.Write(candidateResponse("ok"))
		})

		client := newTestClient(server.URL)
		_, err := client.CompleteWithSystem(context.Background(), "you are a cataloger", "hello")
		require.NoError(t, err)
	})

	t.Run("joins multiple parts", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"DISJUNTOR "},{"text":"20A"}]}}]}`))
		})

		client := newTestClient(server.URL)
		reply, err := client.Complete(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, "DISJUNTOR 20A", reply)
	})

	t.Run("missing API key fails before any request", func(t *testing.T) {
		client := NewGeminiClientWithConfig(GeminiConfig{BaseURL: "http://unused.invalid"})
		_, err := client.Complete(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("server error is returned with status", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"boom"}}`))
		})

		client := newTestClient(server.URL)
		_, err := client.Complete(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("API error payload is surfaced", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`))
		})

		client := newTestClient(server.URL)
		_, err := client.Complete(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid argument")
	})

	t.Run("empty candidate list is errNoCompletion", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		})

		client := newTestClient(server.URL)
		_, err := client.Complete(context.Background(), "x")
		assert.ErrorIs(t, err, errNoCompletion)
	})

	t.Run("retries after rate limiting", func(t *testing.T) {
		calls := 0
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write(candidateResponse("Disjuntores"))
		})

		client := newTestClient(server.URL)
		reply, err := client.Complete(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, "Disjuntores", reply)
		assert.Equal(t, 2, calls)
	})
}
