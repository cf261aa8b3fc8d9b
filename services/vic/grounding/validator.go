// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import (
	"fmt"
	"regexp"
	"strings"
)

// Violation reason labels reported in Outcome.Reason and used as metric
// label values.
const (
	ReasonAttribution = "unsupported_attribution"
	ReasonDate        = "unsupported_date"
)

// metadataTrimRes strip internal structured-output labels that sometimes
// leak into the prose answer. Each matches from its label to end of text.
var metadataTrimRes = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\n*facts_stated:.*$`),
	regexp.MustCompile(`(?is)\n*source_content:.*$`),
	regexp.MustCompile(`(?is)\n*source_titles:.*$`),
}

// Outcome is the result of a free-text validation pass.
//
// When Accepted is false, Text holds the full substituted decline sentence
// and Reason names the violation class. When Accepted is true, Text is the
// input with leaked metadata labels trimmed.
type Outcome struct {
	Text     string
	Accepted bool
	Reason   string
}

// Validator re-scans free-text answers for unsupported attributions and
// dates. Safe for concurrent use once constructed.
type Validator struct {
	attributionRes []*regexp.Regexp
}

// NewValidator compiles the free-text re-scan patterns from cfg.
func NewValidator(cfg Config) (*Validator, error) {
	res := make([]*regexp.Regexp, 0, len(cfg.AttributionPatterns))
	for _, p := range cfg.AttributionPatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile attribution pattern %q: %w", p, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("attribution pattern %q must have exactly one capture group", p)
		}
		res = append(res, re)
	}
	return &Validator{attributionRes: res}, nil
}

// MustNewValidator is NewValidator for static configuration; panics on error.
func MustNewValidator(cfg Config) *Validator {
	v, err := NewValidator(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate re-scans an answer against the source content it was generated
// from.
//
// # Description
//
// Runs after the LLM because models do not reliably honor structured-output
// instructions; the scan catches hallucinations the structural layer never
// saw. Checks, in order:
//
//   - Attribution: any pattern match whose captured name does not appear in
//     the source replaces the whole answer with DeclineAttribution.
//   - Dates: any four-digit year absent from the source AND used in running
//     prose (preceded by a word) replaces the whole answer with
//     DeclineDates. The date check only runs when source content exists;
//     with no source there is nothing meaningful to diff against, and the
//     pipeline has already declined evidence-free turns before this point.
//
// Accepted text is returned with leaked metadata labels trimmed. Validate
// is idempotent: re-validating an accepted answer or a decline sentence
// yields the same text.
func (v *Validator) Validate(responseText, sourceContent string) Outcome {
	text := TrimMetadata(responseText)
	sourceLower := strings.ToLower(sourceContent)

	for _, re := range v.attributionRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			name := strings.ToLower(strings.TrimSpace(m[1]))
			if name == "" {
				continue
			}
			if !strings.Contains(sourceLower, name) {
				return Outcome{Text: DeclineAttribution, Reason: ReasonAttribution}
			}
		}
	}

	if sourceContent != "" {
		sourceYears := yearSet(sourceContent)
		for _, year := range yearRe.FindAllString(text, -1) {
			if sourceYears[year] {
				continue
			}
			// Only flag years stated in sentence context; a bare numeric
			// token is as likely a street number as a date claim.
			contextRe := regexp.MustCompile(`\w+\s+` + year)
			if contextRe.MatchString(text) {
				return Outcome{Text: DeclineDates, Reason: ReasonDate}
			}
		}
	}

	return Outcome{Text: text, Accepted: true}
}

// TrimMetadata removes structured-output labels (facts_stated:,
// source_content:, source_titles:) that leaked into prose, trimming from
// the first label to the end of the text.
func TrimMetadata(text string) string {
	for _, re := range metadataTrimRes {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
