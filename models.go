package astraai

import "time"

// OptionKeys are the four fixed choice keys every question carries.
var OptionKeys = []string{"A", "B", "C", "D"}

// isOptionKey reports whether key is one of the four fixed choice keys.
func isOptionKey(key string) bool {
	switch key {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// Question represents a single quiz question with four lettered options.
// The parser produces partially-filled Questions (candidates); only
// candidates that pass ValidateQuestion reach a Quiz.
type Question struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	Options     map[string]string `json:"options"` // keyed A-D
	CorrectKey  string            `json:"correct_key"`
	Explanation string            `json:"explanation"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Quiz is an ordered set of validated questions committed to a session.
// It is never mutated after commit.
type Quiz struct {
	ID             string     `json:"id"`
	DocumentName   string     `json:"document_name"`
	Questions      []Question `json:"questions"`
	CreatedAt      time.Time  `json:"created_at"`
	TotalQuestions int        `json:"total_questions"`
}

// GenerationRequest represents a request to generate a quiz from
// document text.
type GenerationRequest struct {
	SourceText   string `json:"source_text"`
	DocumentName string `json:"document_name,omitempty"`
	NumQuestions int    `json:"num_questions"`
}
