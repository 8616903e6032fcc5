package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiq/screener/internal/llm"
	"github.com/sentiq/screener/internal/ratelimit"
)

func TestInvokeMissingCredentials(t *testing.T) {
	c := New("", "", nil, nil)

	_, err := c.Invoke(context.Background(), "hello", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrMissingCredentials)
}

func TestInvokeRateLimited(t *testing.T) {
	bucket := ratelimit.New(1)
	require.True(t, bucket.AllowN(time.Now(), 1), "drain the bucket")

	c := New("key", "", bucket, nil)

	_, err := c.Invoke(context.Background(), "hello", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrRateLimited)
}

func TestInvokeJSONMode(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c := New("key", "", nil, nil)
	c.SetBaseURL(srv.URL)

	got, err := c.Invoke(context.Background(), "evaluate", llm.Options{JSONOnly: true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)

	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	assert.Equal(t, defaultModel, captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "You must respond with valid JSON only.", captured.Messages[0].Content)
}

func TestInvokeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exhausted"}}`))
	}))
	defer srv.Close()

	c := New("key", "", nil, nil)
	c.SetBaseURL(srv.URL)

	_, err := c.Invoke(context.Background(), "evaluate", llm.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exhausted")
}
