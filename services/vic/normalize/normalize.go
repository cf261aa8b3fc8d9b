// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package normalize canonicalizes raw user queries before retrieval and
// cache lookup.
//
// Voice transcription regularly mangles historical London names ("tie burn"
// for Tyburn, "ignacio" for Ignatius Sancho). The normalizer folds case,
// collapses whitespace, and applies a configured table of word-boundary
// phonetic corrections so that all downstream components (cache keys,
// retrieval, prompts) see one canonical form per query.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// Correction maps one or more misheard forms to their canonical spelling.
//
// Patterns are matched as whole words, case-insensitively, against the
// lowercased query. Replacements must not themselves match any pattern in
// the table; New rejects tables that would re-trigger on their own output.
type Correction struct {
	Patterns    []string `yaml:"patterns"`
	Replacement string   `yaml:"replacement"`
}

// DefaultCorrections is the built-in phonetic correction table for the
// London history corpus. Deployments can extend or replace it via config.
var DefaultCorrections = []Correction{
	{Patterns: []string{"ignacio", "ignacius"}, Replacement: "ignatius"},
	{Patterns: []string{"tie burn", "tieburn"}, Replacement: "tyburn"},
	{Patterns: []string{"thorny", "fawny"}, Replacement: "thorney"},
	{Patterns: []string{"tems"}, Replacement: "thames"},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Normalizer applies a fixed correction table. Safe for concurrent use
// once constructed.
type Normalizer struct {
	rules []rule
}

// New compiles a Normalizer from the given correction table.
//
// # Inputs
//
//   - corrections: the phonetic correction table. Pass DefaultCorrections
//     for the built-in set.
//
// # Outputs
//
//   - *Normalizer: ready to use.
//   - error: non-nil if a pattern is empty or a replacement would match
//     another pattern (which would make Normalize non-idempotent).
func New(corrections []Correction) (*Normalizer, error) {
	rules := make([]rule, 0, len(corrections))
	for _, c := range corrections {
		if c.Replacement == "" {
			return nil, fmt.Errorf("correction with patterns %v has empty replacement", c.Patterns)
		}
		quoted := make([]string, 0, len(c.Patterns))
		for _, p := range c.Patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				return nil, fmt.Errorf("empty pattern in correction for %q", c.Replacement)
			}
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
		re, err := regexp.Compile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compile correction for %q: %w", c.Replacement, err)
		}
		rules = append(rules, rule{re: re, replacement: strings.ToLower(c.Replacement)})
	}

	n := &Normalizer{rules: rules}

	// A replacement that matches any pattern would rewrite on every pass.
	for _, c := range corrections {
		once := n.apply(strings.ToLower(c.Replacement))
		if once != strings.ToLower(c.Replacement) {
			return nil, fmt.Errorf("replacement %q is itself rewritten by the table", c.Replacement)
		}
	}
	return n, nil
}

// MustNew is New for static tables; panics on error.
func MustNew(corrections []Correction) *Normalizer {
	n, err := New(corrections)
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize returns the canonical form of a raw query: lowercased, trimmed,
// inner whitespace collapsed to single spaces, and phonetic corrections
// applied at word boundaries.
//
// Normalize is idempotent: Normalize(Normalize(q)) == Normalize(q) for all q.
func (n *Normalizer) Normalize(raw string) string {
	q := strings.ToLower(strings.TrimSpace(raw))
	q = whitespaceRe.ReplaceAllString(q, " ")
	return n.apply(q)
}

func (n *Normalizer) apply(q string) string {
	for _, r := range n.rules {
		q = r.re.ReplaceAllString(q, r.replacement)
	}
	return q
}
