package astraai

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger writes a per-quiz transcript of all model interactions to a
// file under log/, for debugging prompt and parsing behavior after the
// fact.
type LLMLogger struct {
	file   *os.File
	mu     sync.Mutex
	quizID string
}

// NewLLMLogger creates a transcript logger for a single generation run.
func NewLLMLogger(quizID string, req GenerationRequest) (*LLMLogger, error) {
	if err := os.MkdirAll("log", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join("log", fmt.Sprintf("%s.log", quizID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:   file,
		quizID: quizID,
	}

	logger.Logf("=== Quiz Generation Log ===\n")
	logger.Logf("Quiz ID: %s\n", quizID)
	if req.DocumentName != "" {
		logger.Logf("Document: %s\n", req.DocumentName)
	}
	logger.Logf("Number of Questions: %d\n", req.NumQuestions)
	logger.Logf("Source Text Length: %d characters\n", len(req.SourceText))
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(ll.file, "[%s] %s", timestamp, message)
	ll.file.Sync()
}

// LogRequest logs an outgoing prompt.
func (ll *LLMLogger) LogRequest(stage, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", stage)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogResponse logs a raw model response.
func (ll *LLMLogger) LogResponse(stage, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", stage)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogCandidate logs the acceptance decision for one parsed candidate.
func (ll *LLMLogger) LogCandidate(text, decision, reason string) {
	if reason == "" {
		ll.Logf("Candidate %.60q: %s\n", text, decision)
		return
	}
	ll.Logf("Candidate %.60q: %s - %s\n", text, decision, reason)
}

// Close finalizes and closes the log file.
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file != nil {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Fprintf(ll.file, "[%s] === Quiz Generation Complete ===\n", timestamp)
		fmt.Fprintf(ll.file, "[%s] Completed: %s\n", timestamp, time.Now().Format(time.RFC3339))
		return ll.file.Close()
	}
	return nil
}
