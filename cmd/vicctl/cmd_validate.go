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

	"github.com/spf13/cobra"

	"github.com/lostlondon/vic/services/vic/datatypes"
)

// runValidateCommand reads a response file and a source file and runs the
// service's grounding validator against the pair. Useful for checking
// transcripts offline against the articles they claim to cite.
func runValidateCommand(cmd *cobra.Command, args []string) {
	responseText, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("cannot read response file: %v", err)
	}
	sourceContent, err := os.ReadFile(args[1])
	if err != nil {
		log.Fatalf("cannot read source file: %v", err)
	}

	var resp datatypes.ValidateResponse
	err = postJSON("/v1/validate", datatypes.ValidateRequest{
		ResponseText:  string(responseText),
		SourceContent: string(sourceContent),
	}, &resp)
	if err != nil {
		log.Fatalf("validate failed: %v", err)
	}
	if jsonOutput {
		return
	}

	if resp.Accepted {
		fmt.Println("PASS: response is grounded in the source material")
		return
	}
	fmt.Printf("FAIL (%s): response was substituted\n", resp.Reason)
	fmt.Println()
	fmt.Println(resp.Text)
	os.Exit(1)
}
