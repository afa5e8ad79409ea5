// Package media is a client for the hosted attachment storage service.
// Report files never touch local disk; the API stores blobs remotely and
// hands back a stable URL plus an opaque public id used for later deletion.
package media

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bsorms/bsorms-api/pkg/config"
)

// StoredObject references an uploaded blob in the remote store.
type StoredObject struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// DeleteResult reports the outcome of a single deletion in a batch.
type DeleteResult struct {
	PublicID string `json:"public_id"`
	Result   string `json:"result"`
	Err      error  `json:"-"`
}

// Client talks to the hosted media API. Every call is bounded by the
// configured timeout; failures surface as errors, never panics.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	folder    string
	http      *http.Client
}

// New constructs a Client from configuration.
func New(cfg config.MediaConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    cfg.Folder,
		http:      &http.Client{Timeout: timeout},
	}
}

// Folder returns the configured upload folder.
func (c *Client) Folder() string {
	return c.folder
}

type storeRequest struct {
	Folder       string `json:"folder"`
	ResourceType string `json:"resource_type"`
	Data         []byte `json:"data"`
}

type deleteRequest struct {
	PublicID string `json:"public_id"`
}

type deleteResponse struct {
	Result string `json:"result"`
}

// Store uploads a blob and returns its remote reference.
func (c *Client) Store(ctx context.Context, data []byte, folder, resourceType string) (*StoredObject, error) {
	if folder == "" {
		folder = c.folder
	}
	payload := storeRequest{Folder: folder, ResourceType: resourceType, Data: data}

	var stored StoredObject
	if err := c.post(ctx, "/v1/objects", payload, &stored); err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}
	if stored.URL == "" || stored.PublicID == "" {
		return nil, fmt.Errorf("store object: incomplete response from media service")
	}
	return &stored, nil
}

// Delete removes a blob by its public id. A missing blob is not an error;
// the service reports "not found" in the result field.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("delete object: public id required")
	}
	var resp deleteResponse
	if err := c.post(ctx, "/v1/objects/delete", deleteRequest{PublicID: publicID}, &resp); err != nil {
		return fmt.Errorf("delete object %s: %w", publicID, err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("delete object %s: unexpected result %q", publicID, resp.Result)
	}
	return nil
}

// DeleteMany deletes each public id and returns settled per-id results.
// It never aborts early; callers decide how to treat partial failures.
func (c *Client) DeleteMany(ctx context.Context, publicIDs []string) []DeleteResult {
	results := make([]DeleteResult, 0, len(publicIDs))
	for _, id := range publicIDs {
		result := DeleteResult{PublicID: id, Result: "ok"}
		if err := c.Delete(ctx, id); err != nil {
			result.Result = "error"
			result.Err = err
		}
		results = append(results, result)
	}
	return results
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", c.sign(body, timestamp))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("media service returned %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// sign authenticates the request body with HMAC-SHA256 over body|timestamp.
func (c *Client) sign(body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	_, _ = mac.Write(body)
	_, _ = mac.Write([]byte("|" + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}
