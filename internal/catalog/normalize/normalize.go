// Package normalize canonicalizes raw command text for dedup and search.
//
// Normalization is deterministic and total: every input string, including the
// empty string, maps to a key. Two commands are considered the same snippet
// only when they are byte-identical after normalization. No semantic
// equivalence is attempted; "ls -al" and "ls -la" are different snippets.
// This is a documented limitation of the catalog, not an oversight.
package normalize

import "strings"

// Key returns the comparison key for raw command text. Leading and trailing
// whitespace is dropped and interior whitespace runs collapse to one space,
// so trivially re-spaced submissions of the same command dedup together.
func Key(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Terms splits raw query text into whitespace-delimited search terms.
// The result is empty when the input has no non-whitespace content.
func Terms(raw string) []string {
	return strings.Fields(raw)
}
