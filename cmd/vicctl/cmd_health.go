// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// runHealthCommand checks GET /health and exits nonzero when the service
// is unreachable or unhealthy.
func runHealthCommand(cmd *cobra.Command, args []string) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := getJSON("/health", &resp); err != nil {
		fmt.Fprintf(os.Stderr, "VIC service is unreachable: %v\n", err)
		os.Exit(1)
	}
	if jsonOutput {
		return
	}

	if resp.Status != "ok" {
		fmt.Printf("VIC service is unhealthy: %s\n", resp.Status)
		os.Exit(1)
	}
	fmt.Printf("VIC service at %s is healthy\n", getServiceBaseURL())
}
