package astraai

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Session holds the active quiz and its mutable progress counters for one
// user context. All mutation goes through commit (called by the generator)
// and SubmitAnswer, which keeps the counters consistent: answerHistory
// always has exactly progress entries.
type Session struct {
	mu             sync.Mutex
	active         bool
	quiz           *Quiz
	progress       int
	score          int
	totalQuestions int
	answerHistory  []bool
	lastError      string
}

// Status is a read-only snapshot of session progress for the UI layer.
type Status struct {
	Active         bool    `json:"active"`
	Progress       int     `json:"progress"`
	TotalQuestions int     `json:"total_questions"`
	Score          int     `json:"score"`
	Percentage     float64 `json:"percentage"`
	Remaining      int     `json:"remaining"`
	CurrentStreak  int     `json:"current_streak"`
}

// NewSession creates an empty, inactive session.
func NewSession() *Session {
	return &Session{}
}

// StartQuiz replaces the session's quiz and resets all counters. It is
// the only way a session transitions to the active state; failed
// generation attempts never reach it, so a failure leaves any prior quiz
// untouched. It also serves to replay an archived quiz.
func (s *Session) StartQuiz(quiz *Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quiz = quiz
	s.active = true
	s.progress = 0
	s.score = 0
	s.totalQuestions = len(quiz.Questions)
	s.answerHistory = s.answerHistory[:0]
	s.lastError = ""
}

// EndQuiz deactivates the current quiz and clears all quiz state.
func (s *Session) EndQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.quiz = nil
	s.progress = 0
	s.score = 0
	s.totalQuestions = 0
	s.answerHistory = nil
}

// CurrentQuestion returns the next unanswered question, or false when no
// quiz is active or the quiz is complete.
func (s *Session) CurrentQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.quiz == nil || s.progress >= len(s.quiz.Questions) {
		return Question{}, false
	}
	return s.quiz.Questions[s.progress], true
}

// Quiz returns the committed quiz, or nil if none has been generated.
func (s *Session) Quiz() *Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

// SubmitAnswer grades the answer key against the current question. On a
// valid submission it records the result, advances progress, and
// deactivates the session once the last question is answered. Precondition
// failures (no active quiz, no current question, bad key) return an
// informative message without mutating any state.
func (s *Session) SubmitAnswer(answer string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.quiz == nil {
		return false, "No quiz is active"
	}
	if s.progress >= len(s.quiz.Questions) {
		return false, "No current question"
	}

	key := strings.ToUpper(strings.TrimSpace(answer))
	if !isOptionKey(key) {
		return false, "Invalid answer option"
	}

	question := s.quiz.Questions[s.progress]
	correct := key == question.CorrectKey
	if correct {
		s.score++
	}
	s.answerHistory = append(s.answerHistory, correct)
	s.progress++

	if s.progress >= s.totalQuestions {
		s.active = false
	}
	s.lastError = ""

	if correct {
		return true, fmt.Sprintf("✅ Correct! %s", question.Explanation)
	}
	return false, fmt.Sprintf("❌ Incorrect. The correct answer was %s. %s", question.CorrectKey, question.Explanation)
}

// Status returns the current progress snapshot. Percentage is the score
// over the full quiz length, rounded to one decimal; the streak counts
// consecutive correct answers ending at the most recent one.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	percentage := 0.0
	if s.totalQuestions > 0 {
		percentage = math.Round(float64(s.score)/float64(s.totalQuestions)*1000) / 10
	}

	remaining := 0
	if s.active {
		remaining = s.totalQuestions - s.progress
	}

	return Status{
		Active:         s.active,
		Progress:       s.progress,
		TotalQuestions: s.totalQuestions,
		Score:          s.score,
		Percentage:     percentage,
		Remaining:      remaining,
		CurrentStreak:  s.currentStreak(),
	}
}

// currentStreak counts trailing correct answers, scanning backward from
// the most recent answer and stopping at the first incorrect one.
// Callers must hold s.mu.
func (s *Session) currentStreak() int {
	streak := 0
	for i := s.progress - 1; i >= 0 && i < len(s.answerHistory); i-- {
		if !s.answerHistory[i] {
			break
		}
		streak++
	}
	return streak
}

// LastError returns the most recent failure message, empty if the last
// operation succeeded.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}
