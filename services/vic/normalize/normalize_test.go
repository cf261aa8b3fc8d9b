// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PhoneticCorrections(t *testing.T) {
	n := MustNew(DefaultCorrections)

	assert.Contains(t, n.Normalize("Tell me about Ignacio Sancho"), "ignatius")
	assert.Contains(t, n.Normalize("Who was Ignacius?"), "ignatius")
	assert.Contains(t, n.Normalize("What happened at Tie Burn?"), "tyburn")
	assert.Contains(t, n.Normalize("Tell me about Thorny Island"), "thorney island")
	assert.Contains(t, n.Normalize("the river tems"), "thames")
}

func TestNormalize_AlreadyCorrectNamesUnchanged(t *testing.T) {
	n := MustNew(DefaultCorrections)

	assert.Equal(t, "tell me about ignatius sancho", n.Normalize("Tell me about Ignatius Sancho"))
	assert.Equal(t, "what happened at tyburn?", n.Normalize("What happened at Tyburn?"))
	assert.Equal(t, "thorney island", n.Normalize("Thorney Island"))
}

// A correction must only fire on whole words, never inside a longer word.
func TestNormalize_WordBoundaries(t *testing.T) {
	n := MustNew(DefaultCorrections)

	assert.Equal(t, "drainage systems of london", n.Normalize("Drainage systems of London"))
	assert.Equal(t, "the items on display", n.Normalize("The items on display"))
}

func TestNormalize_CaseAndWhitespaceFolding(t *testing.T) {
	n := MustNew(DefaultCorrections)

	assert.Equal(t, "who built the royal aquarium?",
		n.Normalize("  Who   built the\tRoyal Aquarium?  "))
}

func TestNormalize_Idempotent(t *testing.T) {
	n := MustNew(DefaultCorrections)

	queries := []string{
		"Tell me about Ignacio Sancho",
		"What happened at Tie Burn?",
		"Tell me about Thorny Island near the tems",
		"plain query with no corrections",
	}
	for _, q := range queries {
		once := n.Normalize(q)
		assert.Equal(t, once, n.Normalize(once), "normalize should be idempotent for %q", q)
	}
}

func TestNew_RejectsSelfRewritingTable(t *testing.T) {
	// "thames" would be rewritten to "themes" on every pass.
	_, err := New([]Correction{
		{Patterns: []string{"tems", "thames"}, Replacement: "themes"},
		{Patterns: []string{"themes"}, Replacement: "thames"},
	})
	require.Error(t, err)
}

func TestNew_RejectsEmptyPattern(t *testing.T) {
	_, err := New([]Correction{{Patterns: []string{""}, Replacement: "x"}})
	require.Error(t, err)
}
