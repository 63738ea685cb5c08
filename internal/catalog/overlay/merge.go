// Package overlay implements the pure merge rules for user overlay entries.
//
// The product rule is "custom tags surface first": tags supplied by the user
// keep their input order and sit ahead of generated tags, and tags already in
// an overlay entry keep their position ahead of anything merged in later.
package overlay

// OrderedUnion merges two tag sequences preserving order. Tags from head come
// first in their original order, then tags from tail that are not already
// present. Duplicates compare by exact string equality; the first occurrence
// wins. The result is always a fresh slice.
func OrderedUnion(head, tail []string) []string {
	merged := make([]string, 0, len(head)+len(tail))
	seen := make(map[string]struct{}, len(head)+len(tail))
	for _, sequence := range [][]string{head, tail} {
		for _, tag := range sequence {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	return merged
}

// Merge combines an existing overlay entry's tags and summary with incoming
// values. Existing tags stay at the head so prior customizations keep their
// search position; incoming tags not already present append in order. The
// summary is overridden only when the incoming summary is non-empty.
//
// Merge is idempotent: applying the same incoming values twice yields the
// same result as applying them once.
func Merge(existingTags, incomingTags []string, existingSummary, incomingSummary string) ([]string, string) {
	tags := OrderedUnion(existingTags, incomingTags)
	summary := existingSummary
	if incomingSummary != "" {
		summary = incomingSummary
	}
	return tags, summary
}
