// Package fetch resolves a job's target reference to raw audio bytes. Three
// reference shapes are supported: http(s) URLs, local file paths written by
// the upload handler, and mock: fixtures for tests and dry environments.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voicebrief/backend/features/ingest"
)

type Client struct {
	client *http.Client

	mu       sync.RWMutex
	fixtures map[string][]byte
}

func NewClient() *Client {
	return &Client{
		client:   &http.Client{Timeout: 60 * time.Second},
		fixtures: make(map[string][]byte),
	}
}

// RegisterFixture binds a mock: reference to in-memory bytes. The prefix is
// added if the caller left it off.
func (c *Client) RegisterFixture(ref string, data []byte) {
	if !strings.HasPrefix(ref, ingest.MockScheme) {
		ref = ingest.MockScheme + ref
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fixtures[ref] = data
}

func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, ingest.MockScheme):
		return c.fetchFixture(ref)
	case strings.Contains(ref, "://"):
		return c.fetchHTTP(ctx, ref)
	default:
		return c.fetchFile(ref)
	}
}

func (c *Client) fetchFixture(ref string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.fixtures[ref]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no fixture registered for %q", ref)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (c *Client) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

func (c *Client) fetchFile(ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Clean(ref), err)
	}
	return data, nil
}
