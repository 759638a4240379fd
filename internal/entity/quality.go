package entity

// ExtractionQuality is computed once per page by the quality scorer.
type ExtractionQuality struct {
	QualityScore   float64 `json:"quality_score"`
	WordCount      int     `json:"word_count"`
	ParagraphCount int     `json:"paragraph_count"`
	SentenceCount  int     `json:"sentence_count"`
	HasTable       bool    `json:"has_table"`
	HasFigure      bool    `json:"has_figure"`
}

// QualityReport aggregates page scores for a document.
type QualityReport struct {
	OverallScore        float64 `json:"overall_score"`
	AverageWordsPerPage float64 `json:"average_words_per_page"`
	TableCoverage       float64 `json:"table_coverage"`
	FigureCoverage      float64 `json:"figure_coverage"`
	PageCount           int     `json:"page_count"`
	OCRPages            int     `json:"ocr_pages"`
	FailedPages         int     `json:"failed_pages"`
}
