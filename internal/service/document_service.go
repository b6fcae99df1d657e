package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gHajnal/OppaTalent/internal/config"
	"github.com/gHajnal/OppaTalent/internal/model"
)

// Document ingestion errors, mapped to 400 by the handlers.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
	ErrContentTooShort     = errors.New("document contains too little text to quiz on")
	ErrNoExtractor         = errors.New("no extraction service configured for this file type")
)

// ContentAnalyzer characterises extracted text for the configure view.
type ContentAnalyzer interface {
	AnalyzeContent(ctx context.Context, content string) *model.ContentAnalysis
}

// DocumentService turns uploaded files into quizzable text. Plain text and
// markdown are handled locally; binary formats go to the external extractor.
type DocumentService struct {
	analyzer     ContentAnalyzer
	extractorURL string
	client       *http.Client
	log          *logrus.Logger
}

// NewDocumentService creates the ingestion service. extractorURL may be
// empty, which limits uploads to plain-text formats.
func NewDocumentService(analyzer ContentAnalyzer, extractorURL string, log *logrus.Logger) *DocumentService {
	return &DocumentService{
		analyzer:     analyzer,
		extractorURL: extractorURL,
		client:       &http.Client{Timeout: 60 * time.Second},
		log:          log,
	}
}

// Process validates, extracts and analyzes one uploaded document.
func (s *DocumentService) Process(ctx context.Context, filename string, data []byte) (*model.DocumentContent, error) {
	if len(data) > config.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !config.AllowedUploadExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}

	var content string
	var err error
	switch ext {
	case ".txt":
		content = string(data)
	case ".md":
		content = stripMarkdown(string(data))
	default:
		content, err = s.extractRemote(ctx, filename, data)
		if err != nil {
			return nil, err
		}
	}

	content = cleanText(content)
	if len(content) < config.MinContentChars {
		return nil, ErrContentTooShort
	}

	analysis := s.analyzer.AnalyzeContent(ctx, content)

	words := len(strings.Fields(content))
	readingMin := words / 200
	if readingMin < 1 {
		readingMin = 1
	}

	s.log.WithFields(logrus.Fields{
		"filename": filename,
		"words":    words,
	}).Info("document processed")

	return &model.DocumentContent{
		Content: content,
		Metadata: model.DocumentMetadata{
			WordCount:           words,
			EstimatedReadingMin: readingMin,
			Topics:              analysis.Topics,
			DifficultyLevel:     analysis.Difficulty,
			SuggestedQuestions:  analysis.PossibleQuestions,
		},
	}, nil
}

// extractRemote ships the file to the extraction sidecar and returns the
// text it pulled out.
func (s *DocumentService) extractRemote(ctx context.Context, filename string, data []byte) (string, error) {
	if s.extractorURL == "" {
		return "", ErrNoExtractor
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("document", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("extract request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("extract request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.extractorURL+"/extract", &body)
	if err != nil {
		return "", fmt.Errorf("extract request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extract: extractor returned %s", resp.Status)
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("extract: decode response: %w", err)
	}
	return payload.Content, nil
}

var (
	mdFence      = regexp.MustCompile("(?s)```.*?```")
	mdInlineCode = regexp.MustCompile("`([^`]*)`")
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdLink       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEmphasis   = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)

	wsRun      = regexp.MustCompile(`[ \t]+`)
	blankRun   = regexp.MustCompile(`\n{3,}`)
	manyDots   = regexp.MustCompile(`\.{4,}`)
	pageFooter = regexp.MustCompile(`Page \d+ of \d+`)
)

// stripMarkdown keeps the prose and drops the formatting. Code block
// content is kept inline so technical documents stay quizzable.
func stripMarkdown(md string) string {
	text := mdFence.ReplaceAllStringFunc(md, func(block string) string {
		inner := strings.Trim(block, "`")
		if i := strings.IndexByte(inner, '\n'); i >= 0 {
			inner = inner[i+1:]
		}
		return " " + inner + " "
	})
	text = mdInlineCode.ReplaceAllString(text, "$1")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdEmphasis.ReplaceAllString(text, "$1")
	return text
}

func cleanText(text string) string {
	text = pageFooter.ReplaceAllString(text, "")
	text = manyDots.ReplaceAllString(text, "...")
	text = wsRun.ReplaceAllString(text, " ")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
