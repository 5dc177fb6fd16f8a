package figlet_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshchat/internal/figlet"
)

func TestRender(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		_, _ = w.Write([]byte(" _  _ \n| || |\n\n"))
	}))
	defer srv.Close()

	c := figlet.NewHTTP(srv.URL+"/?text=", time.Second)
	art, err := c.Render(context.Background(), "hi & bye")
	require.NoError(t, err)
	assert.Equal(t, "hi & bye", gotText)
	assert.Equal(t, " _  _ \n| || |", art)
}

func TestRender_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := figlet.NewHTTP(srv.URL+"/?text=", time.Second).Render(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRender_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  \n"))
	}))
	defer srv.Close()

	_, err := figlet.NewHTTP(srv.URL+"/?text=", time.Second).Render(context.Background(), "x")
	assert.ErrorIs(t, err, figlet.ErrEmpty)
}

func TestRender_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := figlet.NewHTTP(srv.URL+"/?text=", 0).Render(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTP_DefaultURL(t *testing.T) {
	assert.Equal(t, figlet.DefaultURL, figlet.NewHTTP("", 0).Base)
}
