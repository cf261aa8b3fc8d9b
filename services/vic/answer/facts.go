// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package answer

import "regexp"

const maxExtractedFacts = 10

var (
	factYearRe = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)
	factNameRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
)

// knownPlaces are capitalized pairs that look like person names but are
// locations, so they are not logged as name claims.
var knownPlaces = map[string]bool{
	"Crystal Palace":    true,
	"Hyde Park":         true,
	"Parliament Square": true,
	"St James":          true,
	"Central Hall":      true,
}

// extractFacts pulls factual claims (years and probable person names) out
// of a response for the validation log. Best-effort; capped at
// maxExtractedFacts.
func extractFacts(response string) []string {
	facts := make([]string, 0, maxExtractedFacts)

	for _, year := range factYearRe.FindAllString(response, -1) {
		facts = append(facts, "Year: "+year)
	}
	for _, m := range factNameRe.FindAllStringSubmatch(response, -1) {
		name := m[1]
		if knownPlaces[name] {
			continue
		}
		facts = append(facts, "Name: "+name)
	}

	if len(facts) > maxExtractedFacts {
		facts = facts[:maxExtractedFacts]
	}
	return facts
}
