package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "webattack-detector/go-service/pkg/errors"
)

func newModelServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestModelClient_Classify(t *testing.T) {
	var gotText string
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotText = req.Text
		_, _ = w.Write([]byte(`{"class_index":1,"num_labels":2,"score":0.93}`))
	})

	c := NewModelClient(srv.URL, time.Second, 2)
	idx, err := c.Classify(context.Background(), "Request: GET /. Host: localhost.")

	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Request: GET /. Host: localhost.", gotText)
}

func TestModelClient_ClassIndexZero(t *testing.T) {
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"class_index":0}`))
	})

	idx, err := NewModelClient(srv.URL, time.Second, 3).Classify(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestModelClient_UnexpectedStatus(t *testing.T) {
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := NewModelClient(srv.URL, time.Second, 0).Classify(context.Background(), "x")

	require.Error(t, err)
	var statusErr *apperrors.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestModelClient_LabelMismatch(t *testing.T) {
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"class_index":2,"num_labels":3}`))
	})

	_, err := NewModelClient(srv.URL, time.Second, 2).Classify(context.Background(), "x")

	assert.ErrorIs(t, err, ErrLabelMismatch)
}

func TestModelClient_MissingClassIndex(t *testing.T) {
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"label":"attack"}`))
	})

	_, err := NewModelClient(srv.URL, time.Second, 0).Classify(context.Background(), "x")

	assert.Error(t, err)
}

func TestModelClient_ContextCanceled(t *testing.T) {
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewModelClient(srv.URL, time.Second, 0).Classify(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifierFunc(t *testing.T) {
	var c Classifier = ClassifierFunc(func(ctx context.Context, text string) (int, error) {
		return len(text), nil
	})

	idx, err := c.Classify(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
}
