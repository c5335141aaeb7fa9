package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamResult is the scored outcome of a submitted session.
// Score is the percentage of correct answers, 0–100.
type ExamResult struct {
	SessionID       uuid.UUID `json:"sessionId"`
	ExamID          uuid.UUID `json:"examId"`
	TotalQuestions  int       `json:"totalQuestions"`
	TotalCorrect    int       `json:"totalCorrect"`
	TotalWrong      int       `json:"totalWrong"`
	TotalUnanswered int       `json:"totalUnanswered"`
	Score           float64   `json:"score"`
	SubmittedAt     time.Time `json:"submittedAt"`
}
