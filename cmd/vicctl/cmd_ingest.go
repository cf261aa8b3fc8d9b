// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// runIngestCommand posts each file to POST /v1/articles. The article
// title is the file name without its extension; the first markdown
// heading wins when present.
func runIngestCommand(cmd *cobra.Command, args []string) {
	sourceType, _ := cmd.Flags().GetString("source-type")

	failures := 0
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			failures++
			continue
		}

		title := articleTitle(path, string(content))
		var resp struct {
			ChunksProcessed int `json:"chunks_processed"`
		}
		err = postJSON("/v1/articles", map[string]any{
			"title":       title,
			"content":     string(content),
			"source_type": sourceType,
		}, &resp)
		if err != nil {
			log.Printf("ingest failed for %s: %v", path, err)
			failures++
			continue
		}
		if !jsonOutput {
			fmt.Printf("ingested %q (%d chunks)\n", title, resp.ChunksProcessed)
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

// runArticlesCommand lists the distinct article titles in the index.
func runArticlesCommand(cmd *cobra.Command, args []string) {
	var resp struct {
		Articles []string `json:"articles"`
	}
	if err := getJSON("/v1/articles", &resp); err != nil {
		log.Fatalf("list articles failed: %v", err)
	}
	if jsonOutput {
		return
	}

	for _, title := range resp.Articles {
		fmt.Println(title)
	}
	fmt.Printf("\n%d articles\n", len(resp.Articles))
}

// articleTitle prefers the first markdown H1 over the file name.
func articleTitle(path, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		if line != "" {
			break
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
