package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
)

// Session represents a single timed attempt at an exam by one user.
// StartTime is the server-issued start instant; TimeLimit is in seconds.
// Once Status is SUBMITTED the session is immutable.
type Session struct {
	ID              uuid.UUID     `json:"id"`
	ExamID          uuid.UUID     `json:"examId"`
	UserID          uuid.UUID     `json:"userId"`
	Status          SessionStatus `json:"status"`
	StartTime       time.Time     `json:"startTime"`
	TimeLimit       int           `json:"timeLimit"`
	TotalCorrect    *int          `json:"totalCorrect"`
	TotalWrong      *int          `json:"totalWrong"`
	TotalUnanswered *int          `json:"totalUnanswered"`
	SubmittedAt     *time.Time    `json:"submittedAt"`
}

// SessionDetail is the full session payload used while taking an exam:
// the session plus its ordered questions.
type SessionDetail struct {
	Session
	Questions []Question `json:"questions"`
}

// Question is a single exam question as seen by the taker.
// SelectedOptionID is nil until the user has answered it.
type Question struct {
	QuestionID       uuid.UUID  `json:"questionId"`
	Order            int        `json:"order"`
	ContentHTML      string     `json:"contentHtml"`
	Options          []Option   `json:"options"`
	SelectedOptionID *uuid.UUID `json:"selectedOptionId"`
	AnsweredAt       *time.Time `json:"answeredAt"`
}

// Option is one selectable answer for a question. Immutable once fetched.
type Option struct {
	ID          uuid.UUID `json:"id"`
	ContentHTML string    `json:"contentHtml"`
}

// SaveAnswerRequest is the payload for persisting a single answer.
type SaveAnswerRequest struct {
	QuestionID       uuid.UUID `json:"questionId" binding:"required"`
	SelectedOptionID uuid.UUID `json:"selectedOptionId" binding:"required"`
}

// AnswerRecord is the server acknowledgement of a saved answer.
type AnswerRecord struct {
	SessionID        uuid.UUID `json:"sessionId"`
	QuestionID       uuid.UUID `json:"questionId"`
	SelectedOptionID uuid.UUID `json:"selectedOptionId"`
	AnsweredAt       time.Time `json:"answeredAt"`
}
