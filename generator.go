package astraai

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"
)

// Mode selects the generation strategy.
type Mode int

const (
	// ModeSingleShot issues one completion call for the full question
	// count and relies on strict format compliance. This is the primary
	// mode; it needs at least one valid question to accept the run.
	ModeSingleShot Mode = iota

	// ModeBatched partitions the request into chunks of at most three
	// questions, tolerating per-chunk failures. It needs at least two
	// valid questions across all chunks to accept the run.
	ModeBatched
)

// Generation tunables. The source bound caps prompt size against the
// model's context window; it is not correctness-critical.
const (
	maxSourceChars       = 2000
	batchChunkSize       = 3
	minBatchQuestions    = 2
	defaultTemperature   = 0.6
	defaultContextWindow = 2048
	defaultTopP          = 0.9
)

const quizSystemPrompt = "You are a quiz generator. Generate clear, focused questions " +
	"with exactly four options (A, B, C, D). Provide the correct answer and explanation " +
	"for each question."

// QuizGenerator builds prompts, invokes the completion backend, and
// commits parsed+validated questions into a session.
type QuizGenerator struct {
	completer   Completer
	mode        Mode
	logger      *LLMLogger
	transcripts bool
}

// NewQuizGenerator creates a generator in single-shot mode.
func NewQuizGenerator(completer Completer) *QuizGenerator {
	return &QuizGenerator{completer: completer, mode: ModeSingleShot}
}

// SetMode switches between single-shot and batched generation.
func (qg *QuizGenerator) SetMode(mode Mode) {
	qg.mode = mode
}

// SetLogger attaches a transcript logger for all prompts and responses.
func (qg *QuizGenerator) SetLogger(logger *LLMLogger) {
	qg.logger = logger
}

// SetTranscripts makes GenerateQuiz write a per-run prompt/response
// transcript under log/ when no logger was attached explicitly.
func (qg *QuizGenerator) SetTranscripts(enabled bool) {
	qg.transcripts = enabled
}

// GenerateQuiz generates a quiz from the request's source text and, on
// success, commits it into the session (resetting progress and score).
// On failure the session's previous quiz, if any, is left untouched and
// the reason is recorded as the session's last error.
func (qg *QuizGenerator) GenerateQuiz(ctx context.Context, session *Session, req GenerationRequest) bool {
	if strings.TrimSpace(req.SourceText) == "" {
		session.setError("No document loaded for quiz generation")
		return false
	}

	quizID := generateQuizID()

	if qg.logger == nil && qg.transcripts {
		logger, err := NewLLMLogger(quizID, req)
		if err != nil {
			log.Printf("Failed to create transcript log for quiz %s: %v", quizID, err)
		} else {
			qg.SetLogger(logger)
			defer func() {
				logger.Close()
				qg.SetLogger(nil)
			}()
		}
	}

	questions, err := qg.GenerateQuestions(ctx, req)
	if err != nil {
		session.setError(err.Error())
		return false
	}

	quiz := &Quiz{
		ID:             quizID,
		DocumentName:   req.DocumentName,
		Questions:      questions,
		CreatedAt:      time.Now(),
		TotalQuestions: len(questions),
	}
	session.StartQuiz(quiz)

	log.Printf("Quiz %s committed: %d questions (requested %d)", quiz.ID, len(questions), req.NumQuestions)
	return true
}

// GenerateQuestions runs the configured generation mode and returns the
// accepted questions, in generation order, truncated to the requested
// count. It fails when too few valid questions were recovered for the
// mode's acceptance policy.
func (qg *QuizGenerator) GenerateQuestions(ctx context.Context, req GenerationRequest) ([]Question, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		return nil, fmt.Errorf("no source text for quiz generation")
	}
	if req.NumQuestions <= 0 {
		return nil, fmt.Errorf("invalid question count: %d", req.NumQuestions)
	}

	pool := NewCandidatePool()
	minAccepted := 1

	switch qg.mode {
	case ModeBatched:
		minAccepted = minBatchQuestions
		qg.generateBatched(ctx, req, pool)
	default:
		qg.generateSingleShot(ctx, req, pool)
	}

	accepted := qg.acceptCandidates(pool)
	if len(accepted) < minAccepted {
		return nil, fmt.Errorf("failed to generate valid quiz questions: recovered %d of %d", len(accepted), req.NumQuestions)
	}

	if len(accepted) > req.NumQuestions {
		accepted = accepted[:req.NumQuestions]
	}
	return accepted, nil
}

// generateSingleShot issues one completion call for the full count.
func (qg *QuizGenerator) generateSingleShot(ctx context.Context, req GenerationRequest, pool *CandidatePool) {
	candidates, err := qg.requestQuestions(ctx, req.SourceText, req.NumQuestions)
	if err != nil {
		log.Printf("Quiz generation call failed: %v", err)
		return
	}
	pool.Add(candidates...)
}

// generateBatched issues one completion call per chunk of at most three
// questions. A failed chunk is logged and skipped; it does not abort the
// remaining chunks.
func (qg *QuizGenerator) generateBatched(ctx context.Context, req GenerationRequest, pool *CandidatePool) {
	remaining := req.NumQuestions
	for chunk := 1; remaining > 0; chunk++ {
		count := min(remaining, batchChunkSize)

		candidates, err := qg.requestQuestions(ctx, req.SourceText, count)
		if err != nil {
			log.Printf("Quiz generation chunk %d failed: %v", chunk, err)
		} else {
			VerboseLog("Chunk %d yielded %d candidates", chunk, len(candidates))
			pool.Add(candidates...)
		}

		remaining -= count
	}
}

// requestQuestions performs one prompt/complete/parse round trip.
func (qg *QuizGenerator) requestQuestions(ctx context.Context, sourceText string, count int) ([]*Question, error) {
	prompt := buildQuizPrompt(sourceText, count)

	if qg.logger != nil {
		qg.logger.LogRequest("QuizGenerator", prompt)
	}

	raw, err := qg.completer.Complete(ctx, quizSystemPrompt, prompt, CompletionOptions{
		Temperature:   defaultTemperature,
		ContextWindow: defaultContextWindow,
		TopP:          defaultTopP,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	if qg.logger != nil {
		qg.logger.LogResponse("QuizGenerator", raw)
	}

	return ParseResponse(raw, GrammarNumbered), nil
}

// acceptCandidates drains the pool through the validator and dedup index,
// assigning IDs to the survivors. Rejected candidates are dropped
// silently; their absence shows up only in the aggregate recovered count.
func (qg *QuizGenerator) acceptCandidates(pool *CandidatePool) []Question {
	dedup := newDedupIndex()
	accepted := make([]Question, 0, pool.Size())

	for {
		candidate := pool.Next()
		if candidate == nil {
			break
		}

		if !ValidateQuestion(candidate) {
			VerboseLog("Dropping malformed candidate: %.60q", candidate.Text)
			if qg.logger != nil {
				qg.logger.LogCandidate(candidate.Text, "rejected", "failed structural validation")
			}
			continue
		}
		if dedup.IsDuplicate(candidate) {
			VerboseLog("Dropping duplicate candidate: %.60q", candidate.Text)
			if qg.logger != nil {
				qg.logger.LogCandidate(candidate.Text, "rejected", "duplicate of an accepted question")
			}
			continue
		}

		candidate.ID = generateQuestionID()
		candidate.CreatedAt = time.Now()
		if qg.logger != nil {
			qg.logger.LogCandidate(candidate.Text, "accepted", "")
		}
		accepted = append(accepted, *candidate)
	}

	return accepted
}

func buildQuizPrompt(sourceText string, numQuestions int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d multiple choice questions based on this text. ", numQuestions))
	sb.WriteString("Make questions that test understanding of key concepts.\n\n")
	sb.WriteString(fmt.Sprintf("Text for quiz: %s\n\n", truncateText(sourceText, maxSourceChars)))

	sb.WriteString("Format each question exactly like this example:\n\n")
	sb.WriteString("1. Question text goes here?\n")
	sb.WriteString("A) First option\n")
	sb.WriteString("B) Second option\n")
	sb.WriteString("C) Third option\n")
	sb.WriteString("D) Fourth option\n")
	sb.WriteString("CORRECT: B\n")
	sb.WriteString("EXPLANATION: Explanation of why B is correct goes here.\n\n")

	sb.WriteString(fmt.Sprintf("Generate %d questions in exactly this format, numbered from 1 to %d.\n", numQuestions, numQuestions))

	return sb.String()
}

// truncateText bounds the document prefix embedded into the prompt,
// backing off to a rune boundary so multi-byte text is never cut
// mid-sequence.
func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + "..."
}

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func generateQuestionID() string {
	return randomID(8)
}

func generateQuizID() string {
	return randomID(12)
}

func randomID(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = idCharset[rand.Intn(len(idCharset))]
	}
	return string(b)
}
