package model

import "time"

// ResultsExport is the top-level JSON structure written by export-results.
type ResultsExport struct {
	TestID        string         `json:"test_id"`
	InstitutionID string         `json:"institution_id"`
	Title         string         `json:"title"`
	Type          TestType       `json:"type"`
	NumQuestions  int            `json:"num_questions"`
	ExportedAt    time.Time      `json:"exported_at"`
	Results       []StudentEntry `json:"results"`
}

// StudentEntry holds one submission for export, numbered per student.
type StudentEntry struct {
	StudentID     string    `json:"student_id"`
	AttemptNumber int       `json:"attempt_number"`
	Answers       []int     `json:"answers"`
	Score         int       `json:"score"`
	Total         int       `json:"total"`
	AttemptedAt   time.Time `json:"attempted_at"`
}
