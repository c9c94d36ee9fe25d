package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "paris", r.URL.Query().Get("q"))
		assert.Equal(t, "k3y", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cod":200,"weather":[{"description":"light rain"}],"main":{"temp":11.5}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k3y", time.Second)
	rep, err := c.Current(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, Report{City: "paris", Description: "light rain", TempC: 11.5}, rep)
}

func TestCurrentCityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k3y", time.Second)
	_, err := c.Current(context.Background(), "atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCityNotFound))
}

func TestCurrentRequiresKey(t *testing.T) {
	c := NewClient("", "", time.Second)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)

	_, err := c.Current(context.Background(), "paris")
	assert.True(t, errors.Is(err, ErrNoAPIKey))
}
