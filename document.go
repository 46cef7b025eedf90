package astraai

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// LoadDocument extracts text content from a TXT, PDF, or DOCX file.
// The extracted text is the raw material quizzes and chat answers are
// grounded on; an unreadable or empty document is an error.
func LoadDocument(path string) (string, error) {
	var (
		content string
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		content, err = readTXT(path)
	case ".pdf":
		content, err = readPDF(path)
	case ".docx":
		content, err = readDOCX(path)
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("document appears to be empty")
	}
	return content, nil
}

// readTXT reads a plain text file, falling back to Latin-1 decoding when
// the bytes are not valid UTF-8.
func readTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return decodeLatin1(data), nil
}

func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// readPDF extracts text by shelling out to pdftotext.
func readPDF(path string) (string, error) {
	cmd := exec.Command("pdftotext", path, "-")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(output), nil
}

// readDOCX extracts paragraph text from the word/document.xml entry of a
// DOCX archive. Paragraphs are joined with blank lines; empty paragraphs
// are skipped.
func readDOCX(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return extractDocxParagraphs(rc)
	}

	return "", fmt.Errorf("no document.xml in docx archive")
}

func extractDocxParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if tok.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(tok)
			}
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}
