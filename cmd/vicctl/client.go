// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultServiceURL = "http://localhost:8085"

// getServiceBaseURL resolves the VIC base URL from flag, env, or default.
func getServiceBaseURL() string {
	if serviceURL != "" {
		return strings.TrimRight(serviceURL, "/")
	}
	if env := os.Getenv("VIC_SERVICE_URL"); env != "" {
		return strings.TrimRight(env, "/")
	}
	return defaultServiceURL
}

// postJSON sends the payload to the given path and decodes the response
// into out. Non-2xx statuses are returned as errors carrying the body.
func postJSON(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to create request body: %w", err)
	}

	url := getServiceBaseURL() + path
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to reach the VIC service at %s: %w", url, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("VIC service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if jsonOutput {
		fmt.Println(string(bodyBytes))
	}
	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func getJSON(path string, out any) error {
	url := getServiceBaseURL() + path
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach the VIC service at %s: %w", url, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("VIC service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if jsonOutput {
		fmt.Println(string(bodyBytes))
	}
	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
