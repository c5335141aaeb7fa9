package model

import (
	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
)

// Exam represents a published exam as exposed by the exam API.
// TimeLimit is always expressed in whole seconds.
type Exam struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	TimeLimit   int        `json:"timeLimit"`
	Status      ExamStatus `json:"status"`
}
