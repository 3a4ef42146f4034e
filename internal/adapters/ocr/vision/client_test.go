package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmsconnect/kms-connect/internal/core/ocr"
)

func TestClient_ExtractText_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req annotateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 1)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("image-bytes")), req.Requests[0].Image.Content)
		assert.Equal(t, "DOCUMENT_TEXT_DETECTION", req.Requests[0].Features[0].Type)

		_, _ = w.Write([]byte(`{"responses":[{"fullTextAnnotation":{"text":"PROVINSI JAWA BARAT\nNIK : 3204123456789012"}}]}`))
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL, "secret", srv.Client()).ExtractText(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "PROVINSI JAWA BARAT\nNIK : 3204123456789012", text)
}

func TestClient_ExtractText_NoText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{}]}`))
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL, "", srv.Client()).ExtractText(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestClient_ExtractText_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "non 2xx", status: http.StatusForbidden, body: `{"error":{"message":"API key not valid"}}`, wantMsg: "status 403"},
		{name: "embedded error", status: http.StatusOK, body: `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`, wantMsg: "Bad image data."},
		{name: "malformed body", status: http.StatusOK, body: `not json`, wantMsg: "decode response"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "k", srv.Client()).ExtractText(context.Background(), []byte("x"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ocr.ErrProviderUnavailable))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_ExtractText_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := NewClient(endpoint, "k", nil).ExtractText(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ocr.ErrProviderUnavailable)
}
