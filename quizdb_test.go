package astraai

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.CloseDB() })

	if err := db.CreateTables(); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	return db
}

func TestSaveAndGetQuiz(t *testing.T) {
	db := openTestDB(t)

	quiz := testQuiz(2)
	quiz.DocumentName = "biology.pdf"
	quiz.CreatedAt = time.Now()
	quiz.Questions[0].Text = "What is a cell?"

	if err := db.SaveQuiz(quiz); err != nil {
		t.Fatalf("SaveQuiz: %v", err)
	}

	got, err := db.GetQuiz(quiz.ID)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if got.DocumentName != "biology.pdf" || len(got.Questions) != 2 {
		t.Fatalf("unexpected quiz: %+v", got)
	}
	if got.Questions[0].Text != "What is a cell?" {
		t.Fatalf("question order not preserved: %q", got.Questions[0].Text)
	}
	if got.Questions[0].CorrectKey != "A" || got.Questions[0].Options["A"] != "right" {
		t.Fatalf("question content lost: %+v", got.Questions[0])
	}
}

func TestGetQuizNotFound(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetQuiz("missing"); err == nil {
		t.Fatal("expected error for missing quiz")
	}
}

func TestListQuizzes(t *testing.T) {
	db := openTestDB(t)

	older := testQuiz(1)
	older.DocumentName = "older.txt"
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testQuiz(1)
	newer.DocumentName = "newer.txt"
	newer.CreatedAt = time.Now()

	if err := db.SaveQuiz(older); err != nil {
		t.Fatalf("SaveQuiz: %v", err)
	}
	if err := db.SaveQuiz(newer); err != nil {
		t.Fatalf("SaveQuiz: %v", err)
	}

	quizzes, err := db.ListQuizzes(0)
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}
	if quizzes[0].DocumentName != "newer.txt" {
		t.Fatalf("expected newest first, got %q", quizzes[0].DocumentName)
	}
}
