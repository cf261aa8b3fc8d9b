// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package answer

import (
	"errors"
	"fmt"
)

// UpstreamError wraps a failure from an external dependency (embedding
// service, LLM, vector store). The pipeline converts it to an apologetic
// decline; the raw detail is only exposed in debug mode.
type UpstreamError struct {
	// Stage names the pipeline step that failed (embed, retrieve,
	// generate).
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamError checks whether err is an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// truncateMessage caps error text surfaced in debug responses and logs.
func truncateMessage(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
