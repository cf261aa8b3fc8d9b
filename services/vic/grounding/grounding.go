// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package grounding enforces that answers only state what retrieved source
// material supports.
//
// Two layers run in sequence:
//
//  1. Structural: NewGroundedAnswer refuses to construct an answer whose
//     stated facts, attribution phrases, or years are not present in the
//     source content. A GroundedAnswer cannot exist in a violating state.
//  2. Free text: Validator re-scans the final prose (which the LLM may have
//     produced without structured output) and, on violation, replaces the
//     WHOLE answer with a fixed decline sentence. Partial edits are never
//     attempted; a half-corrected sentence reads as confidently wrong.
package grounding

import (
	"fmt"
	"regexp"
	"strings"
)

// Decline sentences substituted for violating answers. These are fixed
// fixed-point texts: running the validator over any of them never triggers
// a further substitution with a changed result.
const (
	// DeclineAttribution replaces answers that credit a designer, builder,
	// or architect the sources never name.
	DeclineAttribution = "That's a great question about who designed or built it. " +
		"I want to be accurate, so I should say my articles don't " +
		"specifically mention the architect or builder for this one."

	// DeclineDates replaces answers that state a year the sources never mention.
	DeclineDates = "I want to make sure I give you accurate dates. " +
		"Let me stick to what my articles specifically mention..."
)

// yearRe matches four-digit years from 1000 through 2099.
var yearRe = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)

// defaultStoplist holds common words excluded when selecting a fact's key
// terms. Everything here is longer than four characters but carries no
// checkable content.
var defaultStoplist = []string{
	"about", "which", "where", "there", "their", "would", "could", "should",
}

// defaultAttributionPhrases are checked during structured construction:
// if the response uses one of these phrases, the source must use it too.
var defaultAttributionPhrases = []string{
	"designed by", "architect", "built by", "designer",
	"constructed by", "created by", "commissioned by",
}

// defaultAttributionPatterns are the free-text re-scan patterns. Each must
// have exactly one capture group holding the credited name; the name must
// appear verbatim (case-insensitive) in the source.
var defaultAttributionPatterns = []string{
	`architect(?:ed|s)?\s+(?:was|were|by)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`,
	`(?:designed|built|constructed|created)\s+by\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`,
	`(?:the\s+)?architect\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`,
}

// Config carries the heuristic pattern tables. The zero value is unusable;
// start from DefaultConfig and override fields from deployment config.
type Config struct {
	// Stoplist lists words never used as fact key terms.
	Stoplist []string `yaml:"stoplist"`

	// AttributionPhrases are literal phrases requiring source support.
	AttributionPhrases []string `yaml:"attribution_phrases"`

	// AttributionPatterns are regexes (one capture group: the name) applied
	// case-insensitively during the free-text re-scan.
	AttributionPatterns []string `yaml:"attribution_patterns"`
}

// DefaultConfig returns the built-in pattern tables.
func DefaultConfig() Config {
	return Config{
		Stoplist:            defaultStoplist,
		AttributionPhrases:  defaultAttributionPhrases,
		AttributionPatterns: defaultAttributionPatterns,
	}
}

// Error is a structural grounding violation. It is returned by
// NewGroundedAnswer and never escapes as a user-visible answer.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("grounding violation: %s", e.Reason)
}

// IsGroundingError checks whether err is a structural grounding violation.
func IsGroundingError(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// GroundedAnswer is an answer whose stated facts have passed structural
// verification against its source content. Construct only via
// NewGroundedAnswer; a value of this type implies the checks held.
type GroundedAnswer struct {
	ResponseText  string
	FactsStated   []string
	SourceContent string
	SourceTitles  []string
}

// NewGroundedAnswer verifies and constructs a GroundedAnswer.
//
// # Description
//
// Enforces the structural grounding invariants:
//
//   - ResponseText must be non-empty.
//   - Empty source content with non-empty facts is rejected outright.
//   - Each fact with at least one key term (a token longer than four
//     characters, not on the stoplist) must have some key term appear
//     verbatim, case-insensitively, in the source. A fact with no key
//     terms at all (for example "born in 1729") is uncheckable by this
//     layer and passes; the year and attribution checks still apply to
//     the response text.
//   - Attribution phrases used in the response must appear in the source.
//   - Every four-digit year in the response must appear in the source.
//
// # Outputs
//
//   - *GroundedAnswer: only when every check passed.
//   - error: *Error naming the first violated invariant.
func NewGroundedAnswer(cfg Config, responseText string, factsStated []string, sourceContent string, sourceTitles []string) (*GroundedAnswer, error) {
	if strings.TrimSpace(responseText) == "" {
		return nil, &Error{Reason: "response text is empty"}
	}

	sourceLower := strings.ToLower(sourceContent)

	if sourceContent == "" && len(factsStated) > 0 {
		return nil, &Error{Reason: "facts stated without any source content"}
	}

	for _, fact := range factsStated {
		if !factSupported(fact, sourceLower, cfg.Stoplist) {
			return nil, &Error{Reason: fmt.Sprintf("fact not found in source: %q", fact)}
		}
	}

	respLower := strings.ToLower(responseText)
	for _, phrase := range cfg.AttributionPhrases {
		if strings.Contains(respLower, phrase) && !strings.Contains(sourceLower, phrase) {
			return nil, &Error{Reason: fmt.Sprintf("response mentions %q but source does not", phrase)}
		}
	}

	sourceYears := yearSet(sourceContent)
	for _, year := range yearRe.FindAllString(responseText, -1) {
		if !sourceYears[year] {
			return nil, &Error{Reason: fmt.Sprintf("year %s not found in source", year)}
		}
	}

	return &GroundedAnswer{
		ResponseText:  responseText,
		FactsStated:   factsStated,
		SourceContent: sourceContent,
		SourceTitles:  sourceTitles,
	}, nil
}

// factSupported reports whether a fact's key terms give it source support.
// Facts with zero key terms are treated as uncheckable and pass.
func factSupported(fact, sourceLower string, stoplist []string) bool {
	stopped := make(map[string]bool, len(stoplist))
	for _, w := range stoplist {
		stopped[w] = true
	}

	var keyTerms []string
	for _, term := range strings.Fields(strings.ToLower(fact)) {
		if len(term) > 4 && !stopped[term] {
			keyTerms = append(keyTerms, term)
		}
	}
	if len(keyTerms) == 0 {
		return true
	}

	for _, term := range keyTerms {
		if strings.Contains(sourceLower, term) {
			return true
		}
	}
	return false
}

func yearSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, y := range yearRe.FindAllString(text, -1) {
		set[y] = true
	}
	return set
}
