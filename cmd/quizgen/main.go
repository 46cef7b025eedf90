package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	astraai "github.com/kevCastillo/AstraAI"

	"github.com/joho/godotenv"
)

func main() {
	var (
		file         = flag.String("file", "", "Document to generate the quiz from (required, .txt/.pdf/.docx)")
		numQuestions = flag.Int("questions", 5, "Number of questions to generate (2-10)")
		mode         = flag.String("mode", "single", "Generation mode: single or batched")
		backend      = flag.String("backend", "ollama", "Completion backend: ollama or openai")
		model        = flag.String("model", "llama3.2", "Model name")
		ollamaURL    = flag.String("ollama-url", "http://localhost:11434", "Base URL of the Ollama API")
		apiKey       = flag.String("api-key", "", "API key for the openai backend (or set OPENAI_API_KEY)")
		baseURL      = flag.String("base-url", "", "Base URL for an OpenAI-compatible server (openai backend only)")
		outputFile   = flag.String("output", "", "Output file for quiz JSON (default: stdout)")
		dbPath       = flag.String("db", "", "Optional sqlite archive to save the quiz into")
		playMode     = flag.Bool("play", false, "Play the quiz interactively")
		verbose      = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	godotenv.Load()
	astraai.SetVerbose(*verbose)

	if *file == "" {
		log.Fatal("Document file is required. Use -file flag.")
	}

	completer := buildCompleter(*backend, *model, *ollamaURL, *apiKey, *baseURL)

	assistant := astraai.NewAssistant(completer)
	if err := assistant.LoadDocument(*file); err != nil {
		log.Fatalf("Failed to load document: %v", err)
	}

	if *mode == "batched" {
		assistant.Generator().SetMode(astraai.ModeBatched)
	}
	assistant.Generator().SetTranscripts(*verbose)

	count := clamp(*numQuestions, 2, 10)

	fmt.Printf("📚 Document: %s\n", assistant.DocumentName())
	fmt.Printf("⏳ Generating %d questions... (this may take a moment)\n\n", count)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if !assistant.GenerateQuiz(ctx, count) {
		log.Fatalf("Failed to generate quiz: %s", assistant.Session().LastError())
	}

	quiz := assistant.Session().Quiz()

	if *dbPath != "" {
		saveQuiz(*dbPath, quiz)
	}

	if *playMode {
		playQuiz(assistant.Session())
		return
	}

	output, err := json.MarshalIndent(quiz, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal quiz: %v", err)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("Quiz saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}

func buildCompleter(backend, model, ollamaURL, apiKey, baseURL string) astraai.Completer {
	switch backend {
	case "ollama":
		completer, err := astraai.NewOllamaCompleter(ollamaURL, model)
		if err != nil {
			log.Fatalf("Failed to create Ollama client: %v", err)
		}
		return completer
	case "openai":
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" && baseURL == "" {
			log.Fatal("OpenAI API key is required. Use -api-key flag or set OPENAI_API_KEY.")
		}
		return astraai.NewOpenAICompleter(apiKey, baseURL, model)
	default:
		log.Fatalf("Unknown backend: %s (want ollama or openai)", backend)
		return nil
	}
}

func saveQuiz(dbPath string, quiz *astraai.Quiz) {
	db, err := astraai.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer db.CloseDB()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}
	if err := db.SaveQuiz(quiz); err != nil {
		log.Fatalf("Failed to archive quiz: %v", err)
	}
	log.Printf("Quiz %s archived to %s", quiz.ID, dbPath)
}

func playQuiz(session *astraai.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	questionNum := 0

	for {
		question, ok := session.CurrentQuestion()
		if !ok {
			break
		}
		questionNum++

		fmt.Printf("❓ Question %d: %s\n\n", questionNum, question.Text)
		for _, key := range astraai.OptionKeys {
			fmt.Printf("   %s) %s\n", key, question.Options[key])
		}

		var feedback string
		for {
			fmt.Print("\nYour answer (A-D): ")
			if !scanner.Scan() {
				fmt.Println("\nQuiz abandoned.")
				return
			}
			answer := strings.TrimSpace(scanner.Text())
			if _, feedback = session.SubmitAnswer(answer); feedback != "Invalid answer option" {
				break
			}
			fmt.Println("⚠️  Please answer with A, B, C, or D.")
		}
		fmt.Printf("\n%s\n", feedback)

		status := session.Status()
		if status.CurrentStreak > 1 {
			fmt.Printf("🔥 Streak: %d\n", status.CurrentStreak)
		}
		fmt.Println()
	}

	status := session.Status()
	fmt.Println("🏁 Quiz complete!")
	fmt.Printf("📊 Score: %d/%d (%.1f%%)\n", status.Score, status.TotalQuestions, status.Percentage)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
