package astraai

import "testing"

func validCandidate() *Question {
	return &Question{
		Text: "What color is the sky?",
		Options: map[string]string{
			"A": "Green", "B": "Blue", "C": "Red", "D": "Yellow",
		},
		CorrectKey:  "B",
		Explanation: "Rayleigh scattering favors blue light.",
	}
}

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *Question)
		want   bool
	}{
		{
			name:   "complete candidate",
			mutate: func(q *Question) {},
			want:   true,
		},
		{
			name:   "nil options",
			mutate: func(q *Question) { q.Options = nil },
			want:   false,
		},
		{
			name:   "missing option key",
			mutate: func(q *Question) { delete(q.Options, "D") },
			want:   false,
		},
		{
			name:   "correct key outside A-D",
			mutate: func(q *Question) { q.CorrectKey = "E" },
			want:   false,
		},
		{
			name:   "missing correct key",
			mutate: func(q *Question) { q.CorrectKey = "" },
			want:   false,
		},
		{
			name:   "empty question text",
			mutate: func(q *Question) { q.Text = "" },
			want:   false,
		},
		{
			name:   "blank option text",
			mutate: func(q *Question) { q.Options["C"] = "   " },
			want:   false,
		},
		{
			name:   "missing explanation still passes",
			mutate: func(q *Question) { q.Explanation = "" },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validCandidate()
			tt.mutate(q)
			if got := ValidateQuestion(q); got != tt.want {
				t.Fatalf("ValidateQuestion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateQuestionNil(t *testing.T) {
	if ValidateQuestion(nil) {
		t.Fatal("expected nil candidate to fail validation")
	}
}

func TestValidateSynthesizesExplanation(t *testing.T) {
	q := validCandidate()
	q.Explanation = ""

	if !ValidateQuestion(q) {
		t.Fatal("expected candidate to validate")
	}
	want := "The correct answer is B: Blue."
	if q.Explanation != want {
		t.Fatalf("synthesized explanation = %q, want %q", q.Explanation, want)
	}
}

func TestValidateKeepsProvidedExplanation(t *testing.T) {
	q := validCandidate()

	if !ValidateQuestion(q) {
		t.Fatal("expected candidate to validate")
	}
	if q.Explanation != "Rayleigh scattering favors blue light." {
		t.Fatalf("explanation was overwritten: %q", q.Explanation)
	}
}
