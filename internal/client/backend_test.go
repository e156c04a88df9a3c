package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-intake-go/internal/config"
	"cv-intake-go/internal/types"
)

func newTestClient(t *testing.T, baseURL string) *BackendClient {
	t.Helper()
	c, err := NewBackendClient(&config.BackendConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		RequestTimeout: "2s",
		MaxRetries:     3,
	})
	require.NoError(t, err)
	return c
}

func sampleCandidate() *types.NormalizedCandidate {
	return &types.NormalizedCandidate{
		PersonalInfo: types.PersonalInfo{
			FullName: "Jane Doe",
			Email:    "jane@example.com",
		},
	}
}

func TestCreateCandidateSuccess(t *testing.T) {
	var gotAuth string
	var gotBody types.NormalizedCandidate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/candidates", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.CreateCandidate(context.Background(), sampleCandidate())
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "Jane Doe", gotBody.PersonalInfo.FullName)
}

func TestCreateCandidate4xxNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error": "validation failed"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.CreateCandidate(context.Background(), sampleCandidate())
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx不应触发重试")
}

func TestCreateCandidate5xxRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.CreateCandidate(context.Background(), sampleCandidate())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCreateCandidateNilCandidate(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")
	err := c.CreateCandidate(context.Background(), nil)
	assert.Error(t, err)
}
