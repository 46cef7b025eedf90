package astraai

import "strings"

// Grammar selects which output format the parser matches. The model is
// prompted with the numbered-list format; the legacy format survives for
// responses produced by older prompts.
type Grammar int

const (
	// GrammarNumbered is the canonical format:
	//
	//	1. Question text?
	//	A) option
	//	B) option
	//	C) option
	//	D) option
	//	CORRECT: B
	//	EXPLANATION: why B is correct
	GrammarNumbered Grammar = iota

	// GrammarLegacy is the older "QUESTION:" / "A:" / "ANSWER:" / "WHY:"
	// format. Kept only for compatibility; the looser structure means the
	// validator carries more of the load.
	GrammarLegacy
)

// lineClass identifies what role a single line of model output plays.
type lineClass int

const (
	lineUnrecognized lineClass = iota
	lineItemStart
	lineOption
	lineCorrect
	lineExplanation
)

// classifyLine matches one trimmed line against the grammar's markers.
// For lineItemStart, lineCorrect and lineExplanation the content is the
// trimmed text after the marker; for lineOption the key is the option
// letter. Marker matching is prefix-based and case-sensitive.
func classifyLine(line string, grammar Grammar) (class lineClass, key, content string) {
	if line == "" {
		return lineUnrecognized, "", ""
	}

	switch grammar {
	case GrammarNumbered:
		if line[0] >= '1' && line[0] <= '9' {
			if i := strings.Index(line, ". "); i > 0 && allDigits(line[:i]) {
				return lineItemStart, "", strings.TrimSpace(line[i+2:])
			}
		}
		if len(line) >= 3 && isOptionKey(line[:1]) && line[1] == ')' && line[2] == ' ' {
			return lineOption, line[:1], strings.TrimSpace(line[3:])
		}
		if rest, ok := strings.CutPrefix(line, "CORRECT:"); ok {
			return lineCorrect, "", strings.TrimSpace(rest)
		}
		if rest, ok := strings.CutPrefix(line, "EXPLANATION:"); ok {
			return lineExplanation, "", strings.TrimSpace(rest)
		}

	case GrammarLegacy:
		if rest, ok := strings.CutPrefix(line, "QUESTION:"); ok {
			return lineItemStart, "", strings.TrimSpace(rest)
		}
		if len(line) >= 2 && isOptionKey(line[:1]) && line[1] == ':' {
			return lineOption, line[:1], strings.TrimSpace(line[2:])
		}
		if rest, ok := strings.CutPrefix(line, "ANSWER:"); ok {
			return lineCorrect, "", strings.TrimSpace(rest)
		}
		if rest, ok := strings.CutPrefix(line, "WHY:"); ok {
			return lineExplanation, "", strings.TrimSpace(rest)
		}
	}

	return lineUnrecognized, "", ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ParseResponse scans raw model output line by line and accumulates
// question candidates. It is total: malformed input yields fewer or zero
// candidates, never an error. Lines matching no marker are ignored, which
// tolerates stray model commentary. Content-level checks (all four
// options present, correct key valid) belong to ValidateQuestion.
func ParseResponse(raw string, grammar Grammar) []*Question {
	var (
		candidates []*Question
		current    *Question
	)

	// A candidate is only worth carrying forward once it has a question
	// and at least one option.
	flush := func() {
		if current != nil && current.Text != "" && len(current.Options) > 0 {
			candidates = append(candidates, current)
		}
		current = nil
	}

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		class, key, content := classifyLine(strings.TrimSpace(line), grammar)

		switch class {
		case lineItemStart:
			flush()
			current = &Question{Text: content, Options: make(map[string]string)}

		case lineOption:
			if current != nil {
				current.Options[key] = content
			}

		case lineCorrect:
			if current != nil {
				current.CorrectKey = strings.ToUpper(content)
			}

		case lineExplanation:
			if current != nil {
				current.Explanation = content
				if grammar == GrammarNumbered {
					// Explanation is the last field per item, so it
					// closes the candidate immediately.
					flush()
				}
			}
		}
	}

	// Trailing candidate: the numbered grammar requires an explanation to
	// have been seen, the legacy grammar defers to the validator.
	if current != nil && (grammar == GrammarLegacy || current.Explanation != "") {
		flush()
	}

	return candidates
}
