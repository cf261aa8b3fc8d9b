// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package corrections detects user corrections ("actually, it was 1873")
// and records them as amendments for editorial review.
//
// A detected correction short-circuits the answer pipeline: the turn is
// acknowledged, never answered, and the knowledge base is never mutated
// directly. Amendments are reviewed by a human before anything changes.
package corrections

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lostlondon/vic/services/vic/audit"
	"github.com/lostlondon/vic/services/vic/datatypes"
)

// DefaultMarkers are the built-in correction marker patterns, matched
// case-insensitively against the lowercased user message.
var DefaultMarkers = []string{
	`(?:actually|no,?\s*)?(?:that'?s?\s+)?(?:wrong|incorrect|not\s+(?:right|correct|accurate))`,
	`(?:the\s+)?correct\s+(?:answer|date|name|fact)\s+is`,
	`it\s+(?:was|should\s+be|is)\s+actually`,
	`you\s+(?:got|have)\s+(?:that|it)\s+wrong`,
	`let\s+me\s+correct\s+(?:that|you)`,
	`(?:no,?\s+)?it\s+(?:was|is)\s+(?:really|actually)`,
}

// Detector matches correction markers in user messages. Safe for concurrent
// use once constructed.
type Detector struct {
	markers []*regexp.Regexp
}

// NewDetector compiles the marker patterns.
func NewDetector(patterns []string) (*Detector, error) {
	markers := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile correction marker %q: %w", p, err)
		}
		markers = append(markers, re)
	}
	return &Detector{markers: markers}, nil
}

// MustNewDetector is NewDetector for static tables; panics on error.
func MustNewDetector(patterns []string) *Detector {
	d, err := NewDetector(patterns)
	if err != nil {
		panic(err)
	}
	return d
}

// Detect reports whether the message is a correction.
func (d *Detector) Detect(userMessage string) bool {
	lowered := strings.ToLower(userMessage)
	for _, re := range d.markers {
		if re.MatchString(lowered) {
			return true
		}
	}
	return false
}

// Acknowledgement returns the fixed reply for a recorded correction.
func Acknowledgement(userName string) string {
	name := ""
	if userName != "" {
		name = " " + userName
	}
	return fmt.Sprintf("Thank you%s, I've noted that correction. It will be reviewed and added to my knowledge base.", name)
}

// Recorder persists amendments through an audit sink.
type Recorder struct {
	sink audit.Sink
}

// NewRecorder wires a Recorder to the given sink.
func NewRecorder(sink audit.Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record persists the correction as an Amendment.
//
// Persistence failure must not fail the turn; the caller logs the returned
// error and still acknowledges the correction to the user.
func (r *Recorder) Record(ctx context.Context, sessionID, userMessage, userName string) error {
	source := userName
	if source == "" {
		source = "user"
	}
	amendment := datatypes.AmendmentProperties{
		AmendmentType: "voice_correction",
		OriginalText:  fmt.Sprintf("Session: %s", sessionID),
		AmendedText:   userMessage,
		ArticleTitle:  "Voice Feedback",
		Reason:        fmt.Sprintf("Correction from %s", source),
		Source:        "voice_feedback",
		CreatedAt:     time.Now().UnixMilli(),
	}
	if err := r.sink.WriteAmendment(ctx, amendment); err != nil {
		return fmt.Errorf("failed to store correction: %w", err)
	}
	return nil
}
