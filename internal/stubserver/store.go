// Package stubserver is a self-contained, in-memory implementation of the
// exam API used for local development and tests of the client. It mirrors the
// production contract: published exams, one session per user per exam,
// answer upserts, and server-side scoring on submit.
package stubserver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stemsi/exstem-cli/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Store errors, mapped to API error codes by the handlers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrExamNotFound       = errors.New("exam not found")
	ErrExamNotPublished   = errors.New("exam is not published")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionSubmitted   = errors.New("session already submitted")
	ErrSessionTimeBarred  = errors.New("session time limit elapsed")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrOptionNotFound     = errors.New("option does not belong to question")
	ErrResultNotReady     = errors.New("session not submitted yet")
)

// saveGrace allows debounced writes that left the client just before expiry
// to land after the deadline.
const saveGrace = 5 * time.Second

type userRecord struct {
	model.User
	passwordHash []byte
}

type questionRecord struct {
	id              uuid.UUID
	order           int
	contentHTML     string
	options         []model.Option
	correctOptionID uuid.UUID
}

type examRecord struct {
	model.Exam
	questions []questionRecord
}

type answerRecord struct {
	optionID   uuid.UUID
	answeredAt time.Time
}

type sessionRecord struct {
	model.Session
	answers map[uuid.UUID]answerRecord
}

// Store holds all stub data behind one mutex. Good enough for a dev tool.
type Store struct {
	clock clockwork.Clock

	mu           sync.Mutex
	users        map[uuid.UUID]*userRecord
	usersByEmail map[string]uuid.UUID
	exams        map[uuid.UUID]*examRecord
	sessions     map[uuid.UUID]*sessionRecord
}

// NewStore creates an empty store. The clock is injected so tests can drive
// the time-barred path without sleeping.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:        clock,
		users:        make(map[uuid.UUID]*userRecord),
		usersByEmail: make(map[string]uuid.UUID),
		exams:        make(map[uuid.UUID]*examRecord),
		sessions:     make(map[uuid.UUID]*sessionRecord),
	}
}

// AddUser registers a user with a bcrypt-hashed password.
func (s *Store) AddUser(email, name, password string, bcryptCost int) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &userRecord{
		User: model.User{
			ID:    uuid.New(),
			Email: email,
			Name:  name,
			Role:  model.RoleUser,
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	s.users[user.ID] = user
	s.usersByEmail[email] = user.ID
	s.mu.Unlock()

	u := user.User
	return &u, nil
}

// Authenticate checks credentials and returns the user.
func (s *Store) Authenticate(email, password string) (*model.User, error) {
	s.mu.Lock()
	id, ok := s.usersByEmail[email]
	var user *userRecord
	if ok {
		user = s.users[id]
	}
	s.mu.Unlock()

	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	u := user.User
	return &u, nil
}

// UserByID returns a user's profile.
func (s *Store) UserByID(id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := user.User
	return &u, nil
}

// ListPublishedExams returns every PUBLISHED exam.
func (s *Store) ListPublishedExams() []model.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()

	exams := make([]model.Exam, 0, len(s.exams))
	for _, e := range s.exams {
		if e.Status == model.ExamStatusPublished {
			exams = append(exams, e.Exam)
		}
	}
	return exams
}

// GetPublishedExam returns one exam if it exists and is published.
func (s *Store) GetPublishedExam(examID uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exams[examID]
	if !ok {
		return nil, ErrExamNotFound
	}
	if e.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}
	exam := e.Exam
	return &exam, nil
}

// StartSession creates the user's session for an exam, or returns the
// existing one. Joining twice never resets the start time.
func (s *Store) StartSession(examID, userID uuid.UUID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exams[examID]
	if !ok {
		return nil, ErrExamNotFound
	}
	if e.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}

	if existing := s.findSessionLocked(examID, userID); existing != nil {
		sess := existing.Session
		return &sess, nil
	}

	sess := &sessionRecord{
		Session: model.Session{
			ID:        uuid.New(),
			ExamID:    examID,
			UserID:    userID,
			Status:    model.SessionStatusInProgress,
			StartTime: s.clock.Now().UTC(),
			TimeLimit: e.TimeLimit,
		},
		answers: make(map[uuid.UUID]answerRecord),
	}
	s.sessions[sess.ID] = sess

	out := sess.Session
	return &out, nil
}

// SessionDetail returns a session with its ordered questions and confirmed
// answers, scoped to the owning user.
func (s *Store) SessionDetail(examID, sessionID, userID uuid.UUID) (*model.SessionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.ExamID != examID || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	e := s.exams[sess.ExamID]

	detail := &model.SessionDetail{
		Session:   sess.Session,
		Questions: make([]model.Question, 0, len(e.questions)),
	}
	for _, q := range e.questions {
		question := model.Question{
			QuestionID:  q.id,
			Order:       q.order,
			ContentHTML: q.contentHTML,
			Options:     q.options,
		}
		if ans, answered := sess.answers[q.id]; answered {
			opt := ans.optionID
			at := ans.answeredAt
			question.SelectedOptionID = &opt
			question.AnsweredAt = &at
		}
		detail.Questions = append(detail.Questions, question)
	}
	return detail, nil
}

// SaveAnswer upserts the user's answer for one question. Rejected once the
// session is submitted or the time limit (plus a small grace) has elapsed.
func (s *Store) SaveAnswer(sessionID, userID, questionID, optionID uuid.UUID) (*model.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if sess.Status == model.SessionStatusSubmitted {
		return nil, ErrSessionSubmitted
	}

	now := s.clock.Now().UTC()
	deadline := sess.StartTime.Add(time.Duration(sess.TimeLimit)*time.Second + saveGrace)
	if now.After(deadline) {
		return nil, ErrSessionTimeBarred
	}

	e := s.exams[sess.ExamID]
	var question *questionRecord
	for i := range e.questions {
		if e.questions[i].id == questionID {
			question = &e.questions[i]
			break
		}
	}
	if question == nil {
		return nil, ErrQuestionNotFound
	}

	valid := false
	for _, opt := range question.options {
		if opt.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrOptionNotFound
	}

	sess.answers[questionID] = answerRecord{optionID: optionID, answeredAt: now}

	return &model.AnswerRecord{
		SessionID:        sessionID,
		QuestionID:       questionID,
		SelectedOptionID: optionID,
		AnsweredAt:       now,
	}, nil
}

// Submit finalizes the user's IN_PROGRESS session for an exam and scores it.
// A second submit is rejected.
func (s *Store) Submit(examID, userID uuid.UUID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findSessionLocked(examID, userID)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status == model.SessionStatusSubmitted {
		return nil, ErrSessionSubmitted
	}

	e := s.exams[sess.ExamID]
	correct, wrong := 0, 0
	for _, q := range e.questions {
		ans, answered := sess.answers[q.id]
		if !answered {
			continue
		}
		if ans.optionID == q.correctOptionID {
			correct++
		} else {
			wrong++
		}
	}
	unanswered := len(e.questions) - correct - wrong

	now := s.clock.Now().UTC()
	sess.Status = model.SessionStatusSubmitted
	sess.SubmittedAt = &now
	sess.TotalCorrect = &correct
	sess.TotalWrong = &wrong
	sess.TotalUnanswered = &unanswered

	out := sess.Session
	return &out, nil
}

// Result returns the scored outcome of a submitted session.
func (s *Store) Result(examID, sessionID, userID uuid.UUID) (*model.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.ExamID != examID || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if sess.Status != model.SessionStatusSubmitted || sess.SubmittedAt == nil {
		return nil, ErrResultNotReady
	}

	e := s.exams[sess.ExamID]
	total := len(e.questions)
	score := 0.0
	if total > 0 && sess.TotalCorrect != nil {
		score = float64(*sess.TotalCorrect) / float64(total) * 100
	}

	return &model.ExamResult{
		SessionID:       sess.ID,
		ExamID:          sess.ExamID,
		TotalQuestions:  total,
		TotalCorrect:    derefInt(sess.TotalCorrect),
		TotalWrong:      derefInt(sess.TotalWrong),
		TotalUnanswered: derefInt(sess.TotalUnanswered),
		Score:           score,
		SubmittedAt:     *sess.SubmittedAt,
	}, nil
}

func (s *Store) findSessionLocked(examID, userID uuid.UUID) *sessionRecord {
	for _, sess := range s.sessions {
		if sess.ExamID == examID && sess.UserID == userID {
			return sess
		}
	}
	return nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
