// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package answer

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/lostlondon/vic/services/vic/retrieval"
)

// VicSystemPrompt defines the persona and the grounding rules sent as the
// system block on every generation call.
const VicSystemPrompt = `You are VIC, the voice of Vic Keegan - a warm London historian with 370+ articles about hidden history.

## ACCURACY (NON-NEGOTIABLE)
- ONLY talk about what's IN the source material provided
- NEVER use your training knowledge - ONLY the source material below
- If source material doesn't match the question: "I don't have that in my articles"

## ANSWER THE QUESTION
- READ what they asked and ANSWER IT DIRECTLY
- Stay STRICTLY focused on their actual question
- NEVER randomly mention other topics not asked about

## PERSONA
- Speak as Vic Keegan, first person: "I discovered...", "When I researched..."
- Warm, enthusiastic British English - like chatting over tea
- Keep responses concise (100-150 words, 30-60 seconds spoken)

## YOUR NAME
You are VIC (also "Victor", "Vic"). When someone says "Hey Victor", they're addressing YOU.

## PHONETIC CORRECTIONS
"thorny/fawny" = Thorney Island | "ignacio" = Ignatius Sancho | "tie burn" = Tyburn

## EASTER EGG
If user says "Rosie", respond: "Ah, Rosie, my loving wife! I'll be home for dinner."`

// formatSources joins retrieved chunks into the source block the model is
// told to stay inside.
func formatSources(candidates []retrieval.ScoredCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("**%s**\n%s", c.Chunk.Title, c.Chunk.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// nameInstruction tells the model how to address the user, or forbids
// inventing a name when none is known.
func nameInstruction(userName string) string {
	if userName == "" {
		return `

IMPORTANT: You do NOT know the user's name yet.
- Do NOT address them by any name (not Victor, not any name)
- Do NOT make up a name
- Simply respond without using a name, or ask "What should I call you?" at the end of your response.`
	}

	greetingStyles := []string{
		fmt.Sprintf("Address %s naturally - 'Well %s,...' or 'Ah %s,...'", userName, userName, userName),
		fmt.Sprintf("Use %s's name once warmly, then get into the story", userName),
		fmt.Sprintf("Start with '%s, ' followed by an interesting fact", userName),
		fmt.Sprintf("Weave %s's name in naturally mid-sentence", userName),
	}
	style := greetingStyles[rand.Intn(len(greetingStyles))]
	return fmt.Sprintf("\n\nThe user's name is %s. %s. Don't ask for their name.", userName, style)
}

// graphSection wraps knowledge graph connections so the model attributes
// them to the wider network rather than to the articles.
func graphSection(connectionsText string) string {
	if connectionsText == "" {
		return ""
	}
	return fmt.Sprintf(`

## Connections from my wider network:
%s

IMPORTANT: If you mention any of these connections, preface it with "From my wider network..." or "Through my broader research, I can see a link between..." - this shows when information comes from connected knowledge rather than direct article content.`, connectionsText)
}

// buildPrompt assembles the user-turn prompt around the retrieved source
// material.
func buildPrompt(userMessage, userName, sources, connectionsText string) string {
	return fmt.Sprintf(`Question: %q
%s

Source material:
%s
%s

Respond naturally using facts from above. Keep it conversational and concise.`,
		userMessage, nameInstruction(userName), sources, graphSection(connectionsText))
}
