package main

import "strings"

// Terms found in practitioner notes that indicate diabetes risk.
// Lower-cased once at startup and never modified.
var triggers = lowerAll([]string{
	"Hémoglobine A1C",
	"Microalbumine",
	"Taille",
	"Poids",
	"Fumeur",
	"Fumeuse",
	"Anormal",
	"Cholestérol",
	"Vertige",
	"Rechute",
	"Réaction",
	"Anticorps",
})

// countTriggers returns the number of distinct trigger terms present in the
// notes. The number of occurrences of a single term is not relevant.
func countTriggers(contents []string) int {
	// Concatenate all notes to search for each trigger only once.
	// The separator keeps a term from matching across two notes.
	var allNotes strings.Builder
	for _, content := range contents {
		allNotes.WriteString(strings.ToLower(content))
		allNotes.WriteByte('\n')
	}
	buffer := allNotes.String()

	count := 0
	for _, trigger := range triggers {
		if strings.Contains(buffer, trigger) {
			count++
		}
	}
	return count
}

func noteContents(notes []Note) []string {
	contents := make([]string, 0, len(notes))
	for _, note := range notes {
		contents = append(contents, note.Content)
	}
	return contents
}

func lowerAll(terms []string) []string {
	lowered := make([]string, len(terms))
	for i, term := range terms {
		lowered[i] = strings.ToLower(term)
	}
	return lowered
}
