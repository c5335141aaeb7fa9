package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-cli/internal/model"
)

// ListExams returns all exams visible to the authenticated user.
func (c *Client) ListExams(ctx context.Context) ([]model.Exam, error) {
	var out []model.Exam
	if err := c.do(ctx, http.MethodGet, "/exams", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPublishedExam fetches a single published exam.
func (c *Client) GetPublishedExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	var out model.Exam
	path := fmt.Sprintf("/exams/%s", examID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartSession creates (or idempotently returns) the user's session for an
// exam. The server issues the authoritative start time.
func (c *Client) StartSession(ctx context.Context, examID uuid.UUID) (*model.Session, error) {
	var out model.Session
	path := fmt.Sprintf("/exams/%s/sessions", examID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSessionDetail fetches the session with its ordered questions and any
// previously confirmed answers.
func (c *Client) GetSessionDetail(ctx context.Context, examID, sessionID uuid.UUID) (*model.SessionDetail, error) {
	var out model.SessionDetail
	path := fmt.Sprintf("/exams/%s/sessions/%s", examID, sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveSessionAnswer persists a single answer selection.
func (c *Client) SaveSessionAnswer(ctx context.Context, sessionID, questionID, optionID uuid.UUID) (*model.AnswerRecord, error) {
	req := model.SaveAnswerRequest{QuestionID: questionID, SelectedOptionID: optionID}

	var out model.AnswerRecord
	path := fmt.Sprintf("/sessions/%s/answers", sessionID)
	if err := c.do(ctx, http.MethodPut, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitExam finalizes the user's session for the exam. The server scores the
// session and transitions it to SUBMITTED.
func (c *Client) SubmitExam(ctx context.Context, examID uuid.UUID) (*model.Session, error) {
	var out model.Session
	path := fmt.Sprintf("/exams/%s/submit", examID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetExamResult fetches the scored outcome of a submitted session.
func (c *Client) GetExamResult(ctx context.Context, examID, sessionID uuid.UUID) (*model.ExamResult, error) {
	var out model.ExamResult
	path := fmt.Sprintf("/exams/%s/sessions/%s/result", examID, sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
