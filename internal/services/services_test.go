package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Himanshu040604/PregelFlow/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/things", r.URL.Path)
		assert.Equal(t, "a b", r.URL.Query().Get("q"))
		assert.Equal(t, services.UserAgent, r.Header.Get("User-Agent"))
		if r.URL.Query().Get("q") == "missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	var out struct{ Name string }
	status, err := services.GetJSON(context.Background(), srv.Client(), srv.URL+"/v1", "things", url.Values{"q": {"a b"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out.Name)
}

func TestGetJSON_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var out map[string]any
	status, err := services.GetJSON(context.Background(), srv.Client(), srv.URL, "x", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Nil(t, out)
}

func TestGetJSON_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	_, err := services.GetJSON(context.Background(), srv.Client(), srv.URL, "x", nil, &out)
	assert.Error(t, err)
}
