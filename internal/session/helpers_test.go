package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-cli/internal/model"
)

var (
	testExamID    = uuid.MustParse("7e6b35a0-1111-4f6e-9e45-000000000001")
	testSessionID = uuid.MustParse("7e6b35a0-1111-4f6e-9e45-000000000002")
	testUserID    = uuid.MustParse("7e6b35a0-1111-4f6e-9e45-000000000003")

	q1 = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	q2 = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")

	q1OptA = uuid.MustParse("bbbbbbbb-0000-0000-0000-0000000000a1")
	q1OptB = uuid.MustParse("bbbbbbbb-0000-0000-0000-0000000000a2")
	q1OptC = uuid.MustParse("bbbbbbbb-0000-0000-0000-0000000000a3")
	q2OptA = uuid.MustParse("bbbbbbbb-0000-0000-0000-0000000000b1")
	q2OptB = uuid.MustParse("bbbbbbbb-0000-0000-0000-0000000000b2")
)

var sessionStart = time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)

func testDetail() *model.SessionDetail {
	return &model.SessionDetail{
		Session: model.Session{
			ID:        testSessionID,
			ExamID:    testExamID,
			UserID:    testUserID,
			Status:    model.SessionStatusInProgress,
			StartTime: sessionStart,
			TimeLimit: 1800,
		},
		Questions: []model.Question{
			{
				QuestionID:  q1,
				Order:       1,
				ContentHTML: "<p>What is 2 + 2?</p>",
				Options: []model.Option{
					{ID: q1OptA, ContentHTML: "3"},
					{ID: q1OptB, ContentHTML: "4"},
					{ID: q1OptC, ContentHTML: "5"},
				},
			},
			{
				QuestionID:  q2,
				Order:       2,
				ContentHTML: "<p>Is the sky blue?</p>",
				Options: []model.Option{
					{ID: q2OptA, ContentHTML: "Yes"},
					{ID: q2OptB, ContentHTML: "No"},
				},
			},
		},
	}
}

// ─── Fakes ──────────────────────────────────────────────────────────────────

type saveCall struct {
	questionID uuid.UUID
	optionID   uuid.UUID
}

type fakeSaver struct {
	mu    sync.Mutex
	err   error
	calls []saveCall
	saved chan saveCall
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{saved: make(chan saveCall, 32)}
}

func (f *fakeSaver) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSaver) SaveSessionAnswer(_ context.Context, _, questionID, optionID uuid.UUID) (*model.AnswerRecord, error) {
	f.mu.Lock()
	call := saveCall{questionID: questionID, optionID: optionID}
	f.calls = append(f.calls, call)
	err := f.err
	f.mu.Unlock()

	f.saved <- call
	if err != nil {
		return nil, err
	}
	return &model.AnswerRecord{
		SessionID:        testSessionID,
		QuestionID:       questionID,
		SelectedOptionID: optionID,
		AnsweredAt:       sessionStart.Add(time.Minute),
	}, nil
}

func (f *fakeSaver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (f *fakeNotifier) Success(message string) {
	f.mu.Lock()
	f.successes = append(f.successes, message)
	f.mu.Unlock()
}

func (f *fakeNotifier) Error(message string) {
	f.mu.Lock()
	f.errors = append(f.errors, message)
	f.mu.Unlock()
}

func (f *fakeNotifier) errorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errors)
}

type fakeSubmitter struct {
	mu      sync.Mutex
	err     error
	calls   int
	block   chan struct{} // when set, SubmitExam waits on it
	started chan struct{}
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{started: make(chan struct{}, 32)}
}

func (f *fakeSubmitter) SubmitExam(_ context.Context, examID uuid.UUID) (*model.Session, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	block := f.block
	f.mu.Unlock()

	f.started <- struct{}{}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	submittedAt := sessionStart.Add(30 * time.Minute)
	return &model.Session{
		ID:          testSessionID,
		ExamID:      examID,
		UserID:      testUserID,
		Status:      model.SessionStatusSubmitted,
		StartTime:   sessionStart,
		TimeLimit:   1800,
		SubmittedAt: &submittedAt,
	}, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type navCall struct {
	examID    uuid.UUID
	sessionID uuid.UUID
}

type fakeNavigator struct {
	mu    sync.Mutex
	calls []navCall
}

func (f *fakeNavigator) GoToResult(examID, sessionID uuid.UUID) {
	f.mu.Lock()
	f.calls = append(f.calls, navCall{examID, sessionID})
	f.mu.Unlock()
}

func (f *fakeNavigator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeAPI backs the controller tests with canned session data.
type fakeAPI struct {
	*fakeSaver
	*fakeSubmitter

	mu     sync.Mutex
	detail *model.SessionDetail
}

func newFakeAPI(detail *model.SessionDetail) *fakeAPI {
	return &fakeAPI{
		fakeSaver:     newFakeSaver(),
		fakeSubmitter: newFakeSubmitter(),
		detail:        detail,
	}
}

func (f *fakeAPI) setDetail(detail *model.SessionDetail) {
	f.mu.Lock()
	f.detail = detail
	f.mu.Unlock()
}

func (f *fakeAPI) GetSessionDetail(_ context.Context, _, _ uuid.UUID) (*model.SessionDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detail, nil
}
