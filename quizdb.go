package astraai

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB archives committed quizzes so past quizzes can be listed and
// replayed. Live session state (progress, score) stays in memory; only
// the immutable quiz content is persisted.
type DB struct {
	db *sql.DB
}

// QuizSummary is one row of the archive listing.
type QuizSummary struct {
	ID           string    `json:"id"`
	DocumentName string    `json:"document_name"`
	NumQuestions int       `json:"num_questions"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpenDB opens the quiz archive, creating the file if needed.
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db}, nil
}

// CloseDB closes the database connection.
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the archive tables if they don't exist.
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			num_questions INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			question_num INTEGER NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_key TEXT NOT NULL,
			explanation TEXT NOT NULL,
			FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// SaveQuiz archives a committed quiz and all its questions atomically.
func (db *DB) SaveQuiz(quiz *Quiz) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO quizzes (id, document_name, num_questions, created_at) VALUES (?, ?, ?, ?)",
		quiz.ID, quiz.DocumentName, quiz.TotalQuestions, quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quiz: %w", err)
	}

	for i, q := range quiz.Questions {
		optionsJSON, err := optionsToJSON(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO questions (id, quiz_id, question_num, text, options, correct_key, explanation) VALUES (?, ?, ?, ?, ?, ?, ?)",
			q.ID, quiz.ID, i+1, q.Text, optionsJSON, q.CorrectKey, q.Explanation,
		)
		if err != nil {
			return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
		}
	}

	return tx.Commit()
}

// GetQuiz retrieves an archived quiz and its questions in order.
func (db *DB) GetQuiz(id string) (*Quiz, error) {
	quiz := &Quiz{ID: id}
	err := db.db.QueryRow(
		"SELECT document_name, num_questions, created_at FROM quizzes WHERE id = ?", id,
	).Scan(&quiz.DocumentName, &quiz.TotalQuestions, &quiz.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("quiz not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	rows, err := db.db.Query(
		"SELECT id, text, options, correct_key, explanation FROM questions WHERE quiz_id = ? ORDER BY question_num", id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q           Question
			optionsJSON string
		)
		if err := rows.Scan(&q.ID, &q.Text, &optionsJSON, &q.CorrectKey, &q.Explanation); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Options, err = jsonToOptions(optionsJSON)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return quiz, nil
}

// ListQuizzes returns archive summaries, newest first, optionally limited.
func (db *DB) ListQuizzes(limit int) ([]QuizSummary, error) {
	query := "SELECT id, document_name, num_questions, created_at FROM quizzes ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []QuizSummary
	for rows.Next() {
		var summary QuizSummary
		if err := rows.Scan(&summary.ID, &summary.DocumentName, &summary.NumQuestions, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quizzes: %w", err)
	}

	return quizzes, nil
}

func optionsToJSON(options map[string]string) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

func jsonToOptions(optionsJSON string) (map[string]string, error) {
	var options map[string]string
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
