package astraai

import (
	"fmt"
	"strings"
)

// ValidateQuestion reports whether a parsed candidate is structurally
// complete. A candidate passes when it has question text, all four
// options with non-empty text, and a correct key that is one of A-D.
// If the model omitted the explanation, a default one is synthesized
// from the correct option; synthesis never causes a failure.
func ValidateQuestion(q *Question) bool {
	if q == nil || q.Text == "" || q.Options == nil || q.CorrectKey == "" {
		return false
	}

	for _, key := range OptionKeys {
		if _, ok := q.Options[key]; !ok {
			return false
		}
	}

	if !isOptionKey(q.CorrectKey) {
		return false
	}

	for _, key := range OptionKeys {
		if strings.TrimSpace(q.Options[key]) == "" {
			return false
		}
	}

	if strings.TrimSpace(q.Explanation) == "" {
		q.Explanation = fmt.Sprintf("The correct answer is %s: %s.", q.CorrectKey, q.Options[q.CorrectKey])
	}

	return true
}
