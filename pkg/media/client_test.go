package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsorms/bsorms-api/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.MediaConfig{
		BaseURL:   srv.URL,
		APIKey:    "key-123",
		APISecret: "secret-abc",
		Folder:    "reports",
		Timeout:   5 * time.Second,
	})
}

func TestStoreSignsRequest(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		mac := hmac.New(sha256.New, []byte("secret-abc"))
		mac.Write(body)
		mac.Write([]byte("|" + r.Header.Get("X-Timestamp")))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-Signature"))
		assert.Equal(t, "key-123", r.Header.Get("X-Api-Key"))

		var req storeRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "reports", req.Folder)

		json.NewEncoder(w).Encode(StoredObject{URL: "https://cdn.example/blob-1.pdf", PublicID: "blob-1"})
	})

	stored, err := client.Store(context.Background(), []byte("file contents"), "", "raw")
	require.NoError(t, err)
	assert.Equal(t, "/v1/objects", gotPath)
	assert.Equal(t, "blob-1", stored.PublicID)
}

func TestStoreRejectsIncompleteResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(StoredObject{URL: "https://cdn.example/blob-1.pdf"})
	})

	_, err := client.Store(context.Background(), []byte("x"), "reports", "raw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete response")
}

func TestDeleteTreatsMissingAsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(deleteResponse{Result: "not found"})
	})

	assert.NoError(t, client.Delete(context.Background(), "gone-1"))
}

func TestDeleteRequiresPublicID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	assert.Error(t, client.Delete(context.Background(), ""))
}

func TestDeleteManySettlesPartialFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.PublicID == "blob-2" {
			http.Error(w, "storage offline", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(deleteResponse{Result: "ok"})
	})

	results := client.DeleteMany(context.Background(), []string{"blob-1", "blob-2", "blob-3"})
	require.Len(t, results, 3)
	assert.Equal(t, "ok", results[0].Result)
	assert.Equal(t, "error", results[1].Result)
	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "502")
	assert.Equal(t, "ok", results[2].Result)
}
