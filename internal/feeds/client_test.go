package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONServesFromCacheWithinTTL(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"value": 1}`))
	}))
	defer server.Close()

	client := NewClient(time.Second, 100, testLogger())

	var out map[string]int
	fromCache, err := client.GetJSON(context.Background(), server.URL, time.Minute, &out)
	require.NoError(t, err)
	assert.False(t, fromCache)

	fromCache, err = client.GetJSON(context.Background(), server.URL, time.Minute, &out)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, int64(1), hits.Load(), "second read must not hit the network")
}

func TestGetJSONRefetchesAfterTTL(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"value": 1}`))
	}))
	defer server.Close()

	client := NewClient(time.Second, 100, testLogger())

	var out map[string]int
	_, err := client.GetJSON(context.Background(), server.URL, time.Nanosecond, &out)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	fromCache, err := client.GetJSON(context.Background(), server.URL, time.Nanosecond, &out)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, int64(2), hits.Load())
}

func TestGetJSONErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(time.Second, 100, testLogger())

	var out map[string]int
	_, err := client.GetJSON(context.Background(), server.URL, time.Minute, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"value": 1}`))
	}))
	defer server.Close()

	client := NewClient(time.Second, 100, testLogger())

	var out map[string]int
	_, err := client.GetJSON(context.Background(), server.URL, time.Hour, &out)
	require.NoError(t, err)

	client.Invalidate()

	fromCache, err := client.GetJSON(context.Background(), server.URL, time.Hour, &out)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, int64(2), hits.Load())
}
