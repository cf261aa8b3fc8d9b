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
	"strings"

	"github.com/spf13/cobra"

	"github.com/lostlondon/vic/services/vic/datatypes"
)

// runAskCommand sends one question to POST /v1/answer and prints the
// answer with its confidence and cache status.
func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

	var resp datatypes.AnswerResponse
	err := postJSON("/v1/answer", datatypes.AnswerRequest{
		Message:   question,
		SessionID: sessionID,
		UserName:  userName,
	}, &resp)
	if err != nil {
		log.Fatalf("ask failed: %v", err)
	}
	if jsonOutput {
		return
	}

	fmt.Println(resp.Answer)
	fmt.Println()
	if resp.Cached {
		fmt.Printf("(cached, session %s)\n", resp.SessionID)
	} else {
		fmt.Printf("(confidence %.2f, session %s)\n", resp.Confidence, resp.SessionID)
	}
}
