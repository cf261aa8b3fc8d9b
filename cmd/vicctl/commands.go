// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serviceURL string
	sessionID  string
	userName   string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "vicctl",
		Short: "A cli for the VIC question answering service",
		Long: `vicctl talks to a running VIC service: ask it questions about
London's hidden history, run the grounding validator against arbitrary
answer/source pairs, ingest articles, and check service health.`,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask VIC a question about London's history",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand, // Defined in cmd_ask.go
	}

	validateCmd = &cobra.Command{
		Use:   "validate [response_file] [source_file]",
		Short: "Run the grounding validator against a response/source pair",
		Args:  cobra.ExactArgs(2),
		Run:   runValidateCommand, // Defined in cmd_validate.go
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest article files into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		Run:   runIngestCommand, // Defined in cmd_ingest.go
	}

	articlesCmd = &cobra.Command{
		Use:   "articles",
		Short: "List the articles in the knowledge base",
		Run:   runArticlesCommand, // Defined in cmd_ingest.go
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check whether the VIC service is up",
		Run:   runHealthCommand, // Defined in cmd_health.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceURL, "url", "", "base URL of the VIC service (default http://localhost:8085, or VIC_SERVICE_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON responses")

	askCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id for conversation continuity")
	askCmd.Flags().StringVarP(&userName, "name", "n", "", "your name, so VIC can address you")

	ingestCmd.Flags().String("source-type", "article", "source_type stored on ingested chunks")

	rootCmd.AddCommand(askCmd, validateCmd, ingestCmd, articlesCmd, healthCmd)
}
