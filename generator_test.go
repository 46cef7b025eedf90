package astraai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeCompleter replays canned responses (or errors) in call order.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	systems   []string
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userPrompt string, _ CompletionOptions) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	f.systems = append(f.systems, systemPrompt)

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no canned response")
}

// numberedBlocks renders n well-formed questions in the canonical grammar.
func numberedBlocks(n int, label string) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		sb.WriteString(fmt.Sprintf("%d. %s question %d?\n", i, label, i))
		sb.WriteString("A) first\nB) second\nC) third\nD) fourth\n")
		sb.WriteString("CORRECT: A\n")
		sb.WriteString(fmt.Sprintf("EXPLANATION: first is right for %s %d.\n\n", label, i))
	}
	return sb.String()
}

func TestGenerateQuizSingleShot(t *testing.T) {
	fake := &fakeCompleter{responses: []string{numberedBlocks(3, "alpha")}}
	generator := NewQuizGenerator(fake)
	session := NewSession()

	ok := generator.GenerateQuiz(context.Background(), session, GenerationRequest{
		SourceText:   "some document text",
		NumQuestions: 3,
	})
	if !ok {
		t.Fatalf("expected success, last error: %q", session.LastError())
	}

	status := session.Status()
	if !status.Active || status.TotalQuestions != 3 || status.Progress != 0 {
		t.Fatalf("unexpected status after commit: %+v", status)
	}
	if session.LastError() != "" {
		t.Fatalf("last error not cleared: %q", session.LastError())
	}
	if fake.calls != 1 {
		t.Fatalf("expected 1 completion call, got %d", fake.calls)
	}
}

func TestGenerateQuizEmptySource(t *testing.T) {
	fake := &fakeCompleter{}
	generator := NewQuizGenerator(fake)
	session := NewSession()

	if generator.GenerateQuiz(context.Background(), session, GenerationRequest{NumQuestions: 5}) {
		t.Fatal("expected failure for empty source text")
	}
	if session.LastError() != "No document loaded for quiz generation" {
		t.Fatalf("unexpected last error: %q", session.LastError())
	}
	if fake.calls != 0 {
		t.Fatalf("completer should not be called, got %d calls", fake.calls)
	}
}

func TestGenerateQuizFailurePreservesPriorState(t *testing.T) {
	fake := &fakeCompleter{responses: []string{"no questions in this response"}}
	generator := NewQuizGenerator(fake)
	session := NewSession()

	// Drive a prior quiz to completion, then fail a regeneration.
	session.StartQuiz(testQuiz(1))
	session.SubmitAnswer("A")
	before := session.Status()

	ok := generator.GenerateQuiz(context.Background(), session, GenerationRequest{
		SourceText:   "doc",
		NumQuestions: 3,
	})
	if ok {
		t.Fatal("expected failure when no valid questions parsed")
	}

	after := session.Status()
	if after != before {
		t.Fatalf("failed generation mutated session: %+v -> %+v", before, after)
	}
	if !strings.Contains(session.LastError(), "recovered 0 of 3") {
		t.Fatalf("unexpected last error: %q", session.LastError())
	}
}

func TestGenerateQuizTruncatesToRequestedCount(t *testing.T) {
	fake := &fakeCompleter{responses: []string{numberedBlocks(4, "beta")}}
	generator := NewQuizGenerator(fake)
	session := NewSession()

	if !generator.GenerateQuiz(context.Background(), session, GenerationRequest{SourceText: "doc", NumQuestions: 2}) {
		t.Fatalf("expected success, last error: %q", session.LastError())
	}
	if got := session.Status().TotalQuestions; got != 2 {
		t.Fatalf("expected 2 questions, got %d", got)
	}
}

func TestGenerateQuizBatchedChunkFailure(t *testing.T) {
	// 5 questions split into chunks of 3+2; the second chunk fails
	// entirely but the run still succeeds with the 3 recovered.
	fake := &fakeCompleter{
		responses: []string{numberedBlocks(3, "gamma"), ""},
		errs:      []error{nil, errors.New("connection refused")},
	}
	generator := NewQuizGenerator(fake)
	generator.SetMode(ModeBatched)
	session := NewSession()

	ok := generator.GenerateQuiz(context.Background(), session, GenerationRequest{
		SourceText:   "doc",
		NumQuestions: 5,
	})
	if !ok {
		t.Fatalf("expected success, last error: %q", session.LastError())
	}
	if got := session.Status().TotalQuestions; got != 3 {
		t.Fatalf("expected 3 questions, got %d", got)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 chunk calls, got %d", fake.calls)
	}
	if !strings.Contains(fake.prompts[0], "Generate 3 multiple choice questions") ||
		!strings.Contains(fake.prompts[1], "Generate 2 multiple choice questions") {
		t.Fatalf("unexpected chunk prompts: %q / %q", fake.prompts[0], fake.prompts[1])
	}
}

func TestGenerateQuizBatchedBelowMinimum(t *testing.T) {
	// Batched mode requires at least two valid questions.
	fake := &fakeCompleter{
		responses: []string{numberedBlocks(1, "delta"), ""},
		errs:      []error{nil, errors.New("timeout")},
	}
	generator := NewQuizGenerator(fake)
	generator.SetMode(ModeBatched)
	session := NewSession()

	if generator.GenerateQuiz(context.Background(), session, GenerationRequest{SourceText: "doc", NumQuestions: 5}) {
		t.Fatal("expected failure with only 1 recovered question")
	}
	if !strings.Contains(session.LastError(), "recovered 1 of 5") {
		t.Fatalf("unexpected last error: %q", session.LastError())
	}
}

func TestGenerateQuizBatchedAllChunksFail(t *testing.T) {
	fake := &fakeCompleter{
		errs: []error{errors.New("down"), errors.New("down")},
	}
	generator := NewQuizGenerator(fake)
	generator.SetMode(ModeBatched)
	session := NewSession()

	if generator.GenerateQuiz(context.Background(), session, GenerationRequest{SourceText: "doc", NumQuestions: 5}) {
		t.Fatal("expected failure when every chunk fails")
	}
}

func TestGenerateQuizDropsDuplicates(t *testing.T) {
	duplicated := numberedBlocks(1, "echo") + numberedBlocks(1, "echo")
	fake := &fakeCompleter{responses: []string{duplicated}}
	generator := NewQuizGenerator(fake)
	session := NewSession()

	if !generator.GenerateQuiz(context.Background(), session, GenerationRequest{SourceText: "doc", NumQuestions: 2}) {
		t.Fatalf("expected success, last error: %q", session.LastError())
	}
	if got := session.Status().TotalQuestions; got != 1 {
		t.Fatalf("expected duplicate to be dropped, got %d questions", got)
	}
}

func TestGenerateQuizDropsInvalidCandidates(t *testing.T) {
	// Second item is missing option D and must be filtered out.
	raw := numberedBlocks(1, "zeta") + `2. Incomplete question?
A) a
B) b
C) c
CORRECT: A
EXPLANATION: missing an option.`
	fake := &fakeCompleter{responses: []string{raw}}
	generator := NewQuizGenerator(fake)
	session := NewSession()

	if !generator.GenerateQuiz(context.Background(), session, GenerationRequest{SourceText: "doc", NumQuestions: 2}) {
		t.Fatalf("expected success, last error: %q", session.LastError())
	}
	if got := session.Status().TotalQuestions; got != 1 {
		t.Fatalf("expected 1 question, got %d", got)
	}
}

func TestGenerateQuizWritesTranscript(t *testing.T) {
	t.Chdir(t.TempDir())

	fake := &fakeCompleter{responses: []string{numberedBlocks(2, "eta")}}
	generator := NewQuizGenerator(fake)
	generator.SetTranscripts(true)
	session := NewSession()

	if !generator.GenerateQuiz(context.Background(), session, GenerationRequest{
		SourceText:   "transcript source text",
		DocumentName: "notes.txt",
		NumQuestions: 2,
	}) {
		t.Fatalf("expected success, last error: %q", session.LastError())
	}

	transcript := filepath.Join("log", session.Quiz().ID+".log")
	data, err := os.ReadFile(transcript)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "LLM REQUEST") || !strings.Contains(content, "transcript source text") {
		t.Fatalf("transcript missing prompt: %q", content)
	}
	if !strings.Contains(content, "LLM RESPONSE") || !strings.Contains(content, "eta question 1?") {
		t.Fatalf("transcript missing response: %q", content)
	}
	if !strings.Contains(content, "Quiz Generation Complete") {
		t.Fatal("transcript was not closed")
	}
}

func TestGenerateQuizTranscriptsDisabledByDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	fake := &fakeCompleter{responses: []string{numberedBlocks(2, "theta")}}
	generator := NewQuizGenerator(fake)
	session := NewSession()

	if !generator.GenerateQuiz(context.Background(), session, GenerationRequest{SourceText: "doc", NumQuestions: 2}) {
		t.Fatalf("expected success, last error: %q", session.LastError())
	}
	if _, err := os.Stat("log"); !os.IsNotExist(err) {
		t.Fatalf("expected no log directory, stat err = %v", err)
	}
}

func TestTruncateTextKeepsRuneBoundaries(t *testing.T) {
	// Three euro signs are nine bytes; a limit of four lands mid-rune
	// and must back off to the previous boundary.
	got := truncateText("€€€", 4)
	if got != "€..." {
		t.Fatalf("truncateText = %q, want %q", got, "€...")
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: %q", got)
	}

	long := strings.Repeat("€", maxSourceChars)
	if prompt := buildQuizPrompt(long, 3); !utf8.ValidString(prompt) {
		t.Fatal("prompt contains a broken byte sequence")
	}
}

func TestBuildQuizPromptBoundsSourceText(t *testing.T) {
	source := strings.Repeat("x", 3*maxSourceChars)
	prompt := buildQuizPrompt(source, 4)

	if len(prompt) > maxSourceChars+1000 {
		t.Fatalf("prompt too long: %d chars", len(prompt))
	}
	if !strings.Contains(prompt, "numbered from 1 to 4") {
		t.Fatalf("prompt missing numbering instruction: %q", prompt)
	}
}

func TestCandidatePoolFIFO(t *testing.T) {
	pool := NewCandidatePool()
	pool.Add(&Question{Text: "first"}, &Question{Text: "second"})

	if pool.Size() != 2 {
		t.Fatalf("size = %d, want 2", pool.Size())
	}
	if got := pool.Next(); got == nil || got.Text != "first" {
		t.Fatalf("unexpected first candidate: %v", got)
	}
	if got := pool.Next(); got == nil || got.Text != "second" {
		t.Fatalf("unexpected second candidate: %v", got)
	}
	if pool.Next() != nil {
		t.Fatal("expected nil from empty pool")
	}
}
