package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	astraai "github.com/kevCastillo/AstraAI"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
)

const sessionName = "astra-session"

// Server maps browser sessions onto in-memory assistants. Each browser
// gets its own document context and quiz session; the sqlite archive is
// shared.
type Server struct {
	store     *sessions.CookieStore
	db        *astraai.DB
	completer astraai.Completer
	templates map[string]*template.Template

	mu         sync.Mutex
	assistants map[string]*astraai.Assistant
}

func main() {
	godotenv.Load()
	astraai.SetVerbose(os.Getenv("VERBOSE") != "")

	completer := buildCompleter()

	db, err := astraai.OpenDB(envOr("QUIZ_DB", "./quiz.db"))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	store := sessions.NewCookieStore([]byte(envOr("SESSION_KEY", "astra-dev-session-key")))

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
	}

	templates := make(map[string]*template.Template)
	templateFiles := []struct {
		name string
		file string
	}{
		{"home", "templates/home.html"},
		{"question", "templates/question.html"},
		{"results", "templates/results.html"},
	}
	for _, tmpl := range templateFiles {
		templates[tmpl.name] = template.Must(template.New(tmpl.name).Funcs(funcMap).ParseFiles("templates/base.html", tmpl.file))
	}

	server := &Server{
		store:      store,
		db:         db,
		completer:  completer,
		templates:  templates,
		assistants: make(map[string]*astraai.Assistant),
	}

	http.HandleFunc("/", server.handleHome)
	http.HandleFunc("/upload", server.handleUpload)
	http.HandleFunc("/ask", server.handleAsk)
	http.HandleFunc("/quiz/start", server.handleQuizStart)
	http.HandleFunc("/quiz", server.handleQuiz)
	http.HandleFunc("/quiz/answer", server.handleAnswer)
	http.HandleFunc("/archive/", server.handleArchive)

	port := envOr("PORT", "8180")
	log.Printf("Starting server on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func buildCompleter() astraai.Completer {
	if os.Getenv("BACKEND") == "openai" {
		apiKey := os.Getenv("OPENAI_API_KEY")
		baseURL := os.Getenv("OPENAI_BASE_URL")
		if apiKey == "" && baseURL == "" {
			log.Fatal("OPENAI_API_KEY is required for the openai backend")
		}
		return astraai.NewOpenAICompleter(apiKey, baseURL, envOr("MODEL", "gpt-4o-mini"))
	}

	completer, err := astraai.NewOllamaCompleter(envOr("OLLAMA_URL", "http://localhost:11434"), envOr("MODEL", "llama3.2"))
	if err != nil {
		log.Fatalf("Failed to create Ollama client: %v", err)
	}
	return completer
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// assistant returns the assistant bound to this browser session,
// creating one on first contact.
func (s *Server) assistant(w http.ResponseWriter, r *http.Request) *astraai.Assistant {
	session, _ := s.store.Get(r, sessionName)

	sid, _ := session.Values["sid"].(string)
	if sid == "" {
		sid = newSessionID()
		session.Values["sid"] = sid
		if err := session.Save(r, w); err != nil {
			log.Printf("Failed to save session: %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assistant, ok := s.assistants[sid]
	if !ok {
		assistant = astraai.NewAssistant(s.completer)
		assistant.Generator().SetTranscripts(true)
		s.assistants[sid] = assistant
	}
	return assistant
}

func newSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// flash stores a one-shot message shown on the next page render.
func (s *Server) flash(w http.ResponseWriter, r *http.Request, message string) {
	session, _ := s.store.Get(r, sessionName)
	session.AddFlash(message)
	if err := session.Save(r, w); err != nil {
		log.Printf("Failed to save flash: %v", err)
	}
}

func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) string {
	session, _ := s.store.Get(r, sessionName)
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	if err := session.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
	}
	message, _ := flashes[0].(string)
	return message
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	if err := s.templates[name].ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template error in %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	assistant := s.assistant(w, r)

	archived, err := s.db.ListQuizzes(20)
	if err != nil {
		log.Printf("Failed to list quizzes: %v", err)
	}

	s.render(w, "home", map[string]interface{}{
		"DocumentLoaded": assistant.DocumentLoaded(),
		"DocumentName":   assistant.DocumentName(),
		"Status":         assistant.Session().Status(),
		"LastError":      assistant.Session().LastError(),
		"Archived":       archived,
		"Flash":          s.takeFlash(w, r),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Failed to parse upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		http.Error(w, "Document file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// LoadDocument dispatches on the extension, so keep the original name.
	tempDir, err := os.MkdirTemp("", "astra-upload")
	if err != nil {
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tempDir)

	tempPath := filepath.Join(tempDir, filepath.Base(header.Filename))
	out, err := os.Create(tempPath)
	if err != nil {
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	out.Close()

	assistant := s.assistant(w, r)
	if err := assistant.LoadDocument(tempPath); err != nil {
		s.flash(w, r, "❌ Error processing document: "+err.Error())
	} else {
		s.flash(w, r, "✅ Document loaded: "+header.Filename)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	question := r.FormValue("question")
	assistant := s.assistant(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Minute)
	defer cancel()

	answer := assistant.AskQuestion(ctx, question)
	s.flash(w, r, answer)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleQuizStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	numQuestions, err := strconv.Atoi(r.FormValue("num_questions"))
	if err != nil {
		numQuestions = 5
	}
	if numQuestions < 2 {
		numQuestions = 2
	}
	if numQuestions > 10 {
		numQuestions = 10
	}

	assistant := s.assistant(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	if !assistant.GenerateQuiz(ctx, numQuestions) {
		s.flash(w, r, "❌ "+assistant.Session().LastError())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := s.db.SaveQuiz(assistant.Session().Quiz()); err != nil {
		log.Printf("Failed to archive quiz: %v", err)
	}

	http.Redirect(w, r, "/quiz", http.StatusSeeOther)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	assistant := s.assistant(w, r)
	session := assistant.Session()

	question, ok := session.CurrentQuestion()
	if !ok {
		status := session.Status()
		if status.TotalQuestions == 0 {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.render(w, "results", map[string]interface{}{
			"Status": status,
			"Flash":  s.takeFlash(w, r),
		})
		return
	}

	s.render(w, "question", map[string]interface{}{
		"Question":   question,
		"OptionKeys": astraai.OptionKeys,
		"Status":     session.Status(),
		"Flash":      s.takeFlash(w, r),
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	assistant := s.assistant(w, r)
	_, feedback := assistant.Session().SubmitAnswer(r.FormValue("answer"))
	s.flash(w, r, feedback)

	http.Redirect(w, r, "/quiz", http.StatusSeeOther)
}

// handleArchive replays an archived quiz: /archive/{id}/start
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/archive/"), "/")
	if len(parts) != 2 || parts[1] != "start" {
		http.NotFound(w, r)
		return
	}

	quiz, err := s.db.GetQuiz(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	assistant := s.assistant(w, r)
	assistant.Session().StartQuiz(quiz)

	http.Redirect(w, r, "/quiz", http.StatusSeeOther)
}
