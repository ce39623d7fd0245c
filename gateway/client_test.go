package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/postboard/apierror"
)

func asError(t *testing.T, err error) *Error {
	t.Helper()
	require.Error(t, err)
	var gerr *Error
	require.True(t, errors.As(err, &gerr), "expected *gateway.Error, got %T", err)
	return gerr
}

func TestDoSendsJSONHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "demo", r.Header.Get("X-Client"))
		assert.Equal(t, "abc", r.Header.Get("X-Request-Id"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"t"}`, string(b))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 101}`))
	}))
	defer srv.Close()

	c := New(WithDefaultHeader("X-Client", "demo"))
	raw, err := c.Post(context.Background(), srv.URL+"/posts", map[string]string{"title": "t"}, WithHeader("X-Request-Id", "abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 101}`, string(raw))
}

func TestDoHeaderMerging(t *testing.T) {
	headers := make(chan http.Header, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New()
	_, err := c.Get(context.Background(), srv.URL, WithHeader("Content-Type", ""))
	require.NoError(t, err)
	assert.Equal(t, "application/json", (<-headers).Get("Content-Type"), "empty value must not clear the content type")

	_, err = c.Get(context.Background(), srv.URL, WithHeader("Content-Type", "application/merge-patch+json"))
	require.NoError(t, err)
	assert.Equal(t, "application/merge-patch+json", (<-headers).Get("Content-Type"))
}

func TestDoClassifiesStatuses(t *testing.T) {
	tests := []struct {
		status int
		kind   apierror.Kind
		msg    string
	}{
		{http.StatusNotFound, apierror.KindNotFound, "API error: Not Found"},
		{http.StatusUnauthorized, apierror.KindUnauthorized, "API error: Unauthorized"},
		{http.StatusInternalServerError, apierror.KindServerFault, "API error: Internal Server Error"},
		{http.StatusServiceUnavailable, apierror.KindServerFault, "API error: Service Unavailable"},
		{http.StatusConflict, apierror.KindServerFault, "API error: Conflict"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			_, err := New().Get(context.Background(), srv.URL+"/posts/42")
			gerr := asError(t, err)
			assert.Equal(t, tt.kind, apierror.KindOf(err))
			assert.Equal(t, tt.status, gerr.Status)
			assert.Equal(t, tt.status, apierror.StatusOf(err))
			assert.Equal(t, tt.msg, err.Error())
			assert.Equal(t, http.MethodGet, gerr.Method)
			assert.Equal(t, srv.URL+"/posts/42", gerr.URL)
		})
	}
}

func TestDoEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	raw, err := New().Delete(context.Background(), srv.URL+"/posts/1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDoRejectsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := New().Get(context.Background(), srv.URL)
	gerr := asError(t, err)
	assert.Equal(t, apierror.KindValidation, gerr.Kind())
	assert.Equal(t, http.StatusOK, gerr.Status)
}

func TestDoNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New().Get(context.Background(), url)
	gerr := asError(t, err)
	assert.Equal(t, apierror.KindNetwork, gerr.Kind())
	assert.Zero(t, gerr.Status)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestDoCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Get(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, apierror.Canceled(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDoNeverRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New().Put(context.Background(), srv.URL, json.RawMessage(`{"id":1}`))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
