package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphawatch/internal/models"
)

func TestExecuteSubmitsBuyForPositiveSentiment(t *testing.T) {
	var got orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(orderResponse{OrderID: "ord-1", Status: "filled"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 5*time.Second)
	err := c.Execute(context.Background(), models.Signal{Token: "PEPE", Sentiment: models.SentimentPositive})
	require.NoError(t, err)
	assert.Equal(t, "PEPE", got.Token)
	assert.Equal(t, "buy", got.Side)
}

func TestExecuteSubmitsSellForNegativeSentiment(t *testing.T) {
	var got orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(orderResponse{OrderID: "ord-2", Status: "filled"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 5*time.Second)
	err := c.Execute(context.Background(), models.Signal{Token: "PEPE", Sentiment: models.SentimentNegative})
	require.NoError(t, err)
	assert.Equal(t, "sell", got.Side)
}

func TestExecuteRejectedOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(orderResponse{OrderID: "ord-3", Status: "rejected"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 5*time.Second)
	err := c.Execute(context.Background(), models.Signal{Token: "PEPE", Sentiment: models.SentimentPositive})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestExecuteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 5*time.Second)
	err := c.Execute(context.Background(), models.Signal{Token: "PEPE", Sentiment: models.SentimentPositive})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
