// Package registry resolves latest-version metadata for packages from the
// package index (PyPI by default) under a bounded concurrency limit.
// Individual lookup failures are captured per package and never abort the
// batch.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultIndexURL is the public PyPI instance.
const DefaultIndexURL = "https://pypi.org"

// DefaultTimeout bounds a single metadata lookup.
const DefaultTimeout = 15 * time.Second

// ErrNotFound is returned when the index has no project under the
// requested name.
var ErrNotFound = errors.New("package not found on index")

// Metadata is the subset of index metadata pipsnap cares about.
type Metadata struct {
	Version string
	Summary string
}

// Client talks to a PyPI-compatible JSON API
// (GET {index}/pypi/{name}/json).
type Client struct {
	indexURL string
	http     *http.Client
}

// NewClient creates a Client for the given index URL. An empty URL selects
// the public PyPI; a zero timeout selects DefaultTimeout.
func NewClient(indexURL string, timeout time.Duration) *Client {
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		indexURL: strings.TrimRight(indexURL, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// projectResponse matches the fields of the PyPI JSON API response that
// Lookup consumes.
type projectResponse struct {
	Info struct {
		Version string `json:"version"`
		Summary string `json:"summary"`
	} `json:"info"`
}

// Lookup fetches latest-version metadata for one package name.
func (c *Client) Lookup(ctx context.Context, name string) (*Metadata, error) {
	url := fmt.Sprintf("%s/pypi/%s/json", c.indexURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build index request for %s: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index lookup for %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("index lookup for %s returned %s", name, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read index response for %s: %w", name, err)
	}

	var project projectResponse
	if err := json.Unmarshal(body, &project); err != nil {
		return nil, fmt.Errorf("malformed index response for %s: %w", name, err)
	}

	if project.Info.Version == "" {
		return nil, fmt.Errorf("index response for %s has no version", name)
	}

	return &Metadata{
		Version: project.Info.Version,
		Summary: project.Info.Summary,
	}, nil
}
