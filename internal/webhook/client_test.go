package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSendsJSON(t *testing.T) {
	var gotMethod, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"spaces/x/messages/y"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(0).Post(context.Background(), srv.URL, []byte(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"name":"spaces/x/messages/y"}`, resp.Body)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"text":"hi"}`, gotBody)
}

func TestPostReturnsFailureStatusWithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops"))
	}))
	defer srv.Close()

	resp, err := NewClient(time.Second).Post(context.Background(), srv.URL, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "oops", resp.Body)
}

func TestPostTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(time.Second).Post(context.Background(), url, []byte(`{}`))
	assert.Error(t, err)
}

func TestResponseOK(t *testing.T) {
	assert.False(t, Response{StatusCode: 199}.OK())
	assert.True(t, Response{StatusCode: 204}.OK())
	assert.False(t, Response{StatusCode: 300}.OK())
}

func TestNewClientTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewClient(0).HTTP.Timeout)
	assert.Equal(t, 5*time.Second, NewClient(5*time.Second).HTTP.Timeout)
}
