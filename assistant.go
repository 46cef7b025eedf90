package astraai

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
)

const assistantSystemPrompt = "You are ASTRA AI, a helpful study assistant. Keep responses " +
	"concise and relevant. If a document is loaded, use its content to provide accurate " +
	"answers. Maintain a friendly and educational tone while being precise and informative."

// How much document text accompanies a chat question, and how many past
// exchanges are replayed for continuity.
const (
	chatContextChars = 1500
	chatHistoryTurns = 3
)

var endPhrases = map[string]struct{}{
	"goodbye": {}, "bye": {}, "exit": {}, "quit": {}, "end": {},
}

type chatTurn struct {
	Question string
	Answer   string
}

// Assistant ties together a loaded document, the chat history, and the
// quiz session for one user context. Loading a new document resets
// everything; quiz state is owned by the embedded session.
type Assistant struct {
	mu                 sync.Mutex
	completer          Completer
	generator          *QuizGenerator
	session            *Session
	context            string
	documentName       string
	chatHistory        []chatTurn
	conversationActive bool
}

// NewAssistant creates an assistant with no document loaded.
func NewAssistant(completer Completer) *Assistant {
	return &Assistant{
		completer:          completer,
		generator:          NewQuizGenerator(completer),
		session:            NewSession(),
		conversationActive: true,
	}
}

// Session returns the assistant's quiz session.
func (a *Assistant) Session() *Session {
	return a.session
}

// Generator returns the assistant's quiz generator, e.g. to switch the
// generation mode or attach a transcript logger.
func (a *Assistant) Generator() *QuizGenerator {
	return a.generator
}

// LoadDocument extracts text from the file and makes it the active
// context, resetting the conversation and any quiz in progress.
func (a *Assistant) LoadDocument(path string) error {
	content, err := LoadDocument(path)
	if err != nil {
		a.session.setError(err.Error())
		return err
	}

	a.mu.Lock()
	a.context = content
	a.documentName = filepath.Base(path)
	a.chatHistory = nil
	a.conversationActive = true
	a.mu.Unlock()

	a.session.EndQuiz()
	log.Printf("Loaded document %s: %d characters", filepath.Base(path), len(content))
	return nil
}

// DocumentName returns the name of the loaded document, empty if none.
func (a *Assistant) DocumentName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.documentName
}

// DocumentLoaded reports whether a document is currently loaded.
func (a *Assistant) DocumentLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(a.context) != ""
}

// GenerateQuiz generates a quiz of numQuestions from the loaded document
// and commits it to the session on success.
func (a *Assistant) GenerateQuiz(ctx context.Context, numQuestions int) bool {
	a.mu.Lock()
	req := GenerationRequest{
		SourceText:   a.context,
		DocumentName: a.documentName,
		NumQuestions: numQuestions,
	}
	a.mu.Unlock()

	return a.generator.GenerateQuiz(ctx, a.session, req)
}

// AskQuestion answers a free-form question grounded on the loaded
// document, carrying the last few exchanges for continuity. Errors are
// reported in the returned message, never raised to the caller.
func (a *Assistant) AskQuestion(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return "Please ask a valid question."
	}

	if containsEndPhrase(question) {
		a.mu.Lock()
		a.conversationActive = false
		a.mu.Unlock()
		return "Goodbye! Feel free to start a new conversation when you need help!"
	}

	systemPrompt, userPrompt := a.buildChatPrompts(question)

	answer, err := a.completer.Complete(ctx, systemPrompt, userPrompt, CompletionOptions{
		Temperature:   0.7,
		ContextWindow: defaultContextWindow,
		TopP:          defaultTopP,
	})
	if err != nil {
		log.Printf("Chat completion failed: %v", err)
		return "I apologize, but I encountered an error processing your question. Please try again."
	}

	a.mu.Lock()
	if strings.TrimSpace(answer) != "" {
		a.chatHistory = append(a.chatHistory, chatTurn{Question: question, Answer: answer})
	}
	a.mu.Unlock()

	return answer
}

// ConversationActive reports whether the chat has been ended by the user.
func (a *Assistant) ConversationActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversationActive
}

// Reset clears the document, chat history, and quiz state.
func (a *Assistant) Reset() {
	a.mu.Lock()
	a.context = ""
	a.documentName = ""
	a.chatHistory = nil
	a.conversationActive = true
	a.mu.Unlock()

	a.session.EndQuiz()
}

func (a *Assistant) buildChatPrompts(question string) (systemPrompt, userPrompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sys strings.Builder
	sys.WriteString(assistantSystemPrompt)
	if a.context != "" && a.documentName != "" {
		sys.WriteString(fmt.Sprintf("\n\nUsing content from document: %s\n\n%s",
			a.documentName, truncateText(a.context, chatContextChars)))
	}

	var user strings.Builder
	start := len(a.chatHistory) - chatHistoryTurns
	if start < 0 {
		start = 0
	}
	for _, turn := range a.chatHistory[start:] {
		user.WriteString(fmt.Sprintf("Previously asked: %s\nPreviously answered: %s\n\n", turn.Question, turn.Answer))
	}
	user.WriteString(question)

	return sys.String(), user.String()
}

func containsEndPhrase(question string) bool {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		if _, ok := endPhrases[strings.Trim(word, ".,!?")]; ok {
			return true
		}
	}
	return false
}
