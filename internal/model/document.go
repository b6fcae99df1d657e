package model

// DocumentContent is the extracted text of an uploaded document plus the
// metadata the configure view renders.
type DocumentContent struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata summarises an extracted document.
type DocumentMetadata struct {
	WordCount           int      `json:"word_count"`
	EstimatedReadingMin int      `json:"estimated_reading_time"`
	Topics              []string `json:"topics"`
	DifficultyLevel     string   `json:"difficulty_level"`
	SuggestedQuestions  int      `json:"suggested_questions"`
}

// ContentAnalysis is the generator's assessment of uploaded material.
type ContentAnalysis struct {
	Topics            []string `json:"topics"`
	KeyConcepts       []string `json:"key_concepts"`
	Difficulty        string   `json:"difficulty"`
	PossibleQuestions int      `json:"possible_questions"`
	ContentType       string   `json:"content_type"`
}
