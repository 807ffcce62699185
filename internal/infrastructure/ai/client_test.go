package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/pkg/errors"
)

func testAIClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.AIConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		EmbedModel:  "text-embedding-3-small",
		InferModel:  "gpt-4o-mini",
		CallTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func embeddingResponse(vecs ...[]float32) []byte {
	type datum struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	}
	resp := struct {
		Object string  `json:"object"`
		Data   []datum `json:"data"`
	}{Object: "list"}
	for i, v := range vecs {
		resp.Data = append(resp.Data, datum{Object: "embedding", Index: i, Embedding: v})
	}
	out, _ := json.Marshal(resp)
	return out
}

func chatResponse(content string) []byte {
	out, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return out
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(config.AIConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCredentialMissing))
}

func TestEmbed(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write(embeddingResponse([]float32{0.1, 0.2, 0.3}))
	})

	vec, err := c.Embed(context.Background(), "caffeine summary")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbed_EmptyText(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmbeddingFailed))
}

func TestEmbed_ServiceError(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	})
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmbeddingFailed))
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 1)

		// Derive a distinct vector from the text so order mix-ups surface.
		var n float32
		fmt.Sscanf(req.Input[0], "text-%f", &n)
		w.Write(embeddingResponse([]float32{n}))
	})

	vecs, err := c.EmbedBatch(context.Background(), []string{"text-3", "text-1", "text-2"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{3}, vecs[0])
	assert.Equal(t, []float32{1}, vecs[1])
	assert.Equal(t, []float32{2}, vecs[2])
}

func TestEmbedBatch_OneFailureFailsAll(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Input[0] == "bad" {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusBadRequest)
			return
		}
		w.Write(embeddingResponse([]float32{1}))
	})

	_, err := c.EmbedBatch(context.Background(), []string{"ok", "bad", "ok"})
	require.Error(t, err)
}

func TestInfer(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Write(chatResponse(`{"canonical_names": ["aspirin"]}`))
	})

	raw, err := c.Infer(context.Background(), "mild pain reliever")
	require.NoError(t, err)
	assert.Contains(t, raw, "aspirin")
}

func TestInfer_ServiceError(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})
	_, err := c.Infer(context.Background(), "query")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInferenceFailed))
}

func TestSummarize(t *testing.T) {
	c := testAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatResponse("  Caffeine is a stimulant alkaloid.  "))
	})

	prose, err := c.Summarize(context.Background(), "caffeine (CID 2519), ...")
	require.NoError(t, err)
	assert.Equal(t, "Caffeine is a stimulant alkaloid.", prose)
}
