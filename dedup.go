package astraai

import "strings"

// dedupIndex tracks accepted question texts so the same question repeated
// by the model across batch chunks is dropped rather than shown twice in
// one quiz.
type dedupIndex struct {
	seen map[string]struct{}
}

func newDedupIndex() *dedupIndex {
	return &dedupIndex{seen: make(map[string]struct{})}
}

// IsDuplicate reports whether an equivalent question text was already
// recorded, and records it otherwise. Comparison ignores case, surrounding
// whitespace, trailing punctuation, and internal spacing.
func (d *dedupIndex) IsDuplicate(q *Question) bool {
	key := normalizeQuestionText(q.Text)
	if key == "" {
		return false
	}
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func normalizeQuestionText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRight(text, "?.!")
	return strings.Join(strings.Fields(text), " ")
}
