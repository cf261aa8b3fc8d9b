// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memorygraph talks to the external knowledge-graph service that
// tracks entity connections and per-user conversation memory.
//
// The graph is a black box to the core: it contributes an optional prose
// section to the prompt and receives turn summaries after the fact. Every
// call degrades gracefully; the pipeline answers without graph context when
// the service is down.
package memorygraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Searcher is the graph surface the answer pipeline depends on.
type Searcher interface {
	// Connections returns a prose block describing entity connections
	// relevant to the query, or "" when the graph has nothing.
	Connections(ctx context.Context, query, sessionID string) (string, error)

	// Save records an answered turn in the session's memory. Best-effort.
	Save(ctx context.Context, sessionID, question, answer string) error
}

// NewNoop returns a Searcher that knows nothing and remembers nothing.
// Used in lightweight mode.
func NewNoop() Searcher {
	return &noopSearcher{}
}

type noopSearcher struct{}

func (n *noopSearcher) Connections(ctx context.Context, query, sessionID string) (string, error) {
	return "", nil
}

func (n *noopSearcher) Save(ctx context.Context, sessionID, question, answer string) error {
	return nil
}

// connection is one edge returned by the graph service.
type connection struct {
	From     string `json:"from"`
	Relation string `json:"relation"`
	To       string `json:"to"`
}

type searchResponse struct {
	Connections []connection `json:"connections"`
	Facts       []string     `json:"facts"`
}

// HTTPClient calls the graph service over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a graph client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Connections implements Searcher. The returned block is already formatted
// as "from -> relation -> to" lines for prompt inclusion.
func (c *HTTPClient) Connections(ctx context.Context, query, sessionID string) (string, error) {
	payload := map[string]string{"query": query, "session_id": sessionID}
	var resp searchResponse
	if err := c.post(ctx, "/search", payload, &resp); err != nil {
		return "", err
	}

	if len(resp.Connections) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(resp.Connections))
	for _, conn := range resp.Connections {
		lines = append(lines, fmt.Sprintf("- %s -> %s -> %s", conn.From, conn.Relation, conn.To))
	}
	return strings.Join(lines, "\n"), nil
}

// Save implements Searcher.
func (c *HTTPClient) Save(ctx context.Context, sessionID, question, answer string) error {
	payload := map[string]string{
		"session_id": sessionID,
		"question":   question,
		"answer":     answer,
	}
	return c.post(ctx, "/memory", payload, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal graph request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph service returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse graph response: %w", err)
		}
	}
	return nil
}
