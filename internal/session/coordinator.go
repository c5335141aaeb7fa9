package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cli/internal/model"
	"github.com/stemsi/exstem-cli/internal/notify"
)

// Trigger identifies what initiated a submission.
type Trigger string

const (
	TriggerUser   Trigger = "USER"
	TriggerExpiry Trigger = "EXPIRY"
)

// Submission outcome errors.
var (
	// ErrSubmitInFlight is returned when a submission is already
	// outstanding; the duplicate attempt is rejected, not queued.
	ErrSubmitInFlight = errors.New("a submission is already in flight")

	// ErrAlreadySubmitted is returned once the session reached its
	// terminal state.
	ErrAlreadySubmitted = errors.New("session has already been submitted")
)

// Submitter finalizes a session server-side. Implemented by the API client.
type Submitter interface {
	SubmitExam(ctx context.Context, examID uuid.UUID) (*model.Session, error)
}

// Navigator is told where to go after a successful submit.
type Navigator interface {
	GoToResult(examID, sessionID uuid.UUID)
}

// Coordinator guarantees at most one in-flight submission per session. User
// confirmation and timer expiry both route through Submit so server-side
// semantics are identical for either trigger.
type Coordinator struct {
	examID    uuid.UUID
	sessionID uuid.UUID
	submitter Submitter
	navigator Navigator
	notifier  notify.Notifier
	log       zerolog.Logger
	onSuccess func(*model.Session)

	mu        sync.Mutex
	inFlight  bool
	submitted bool
}

// NewCoordinator creates a Coordinator for one session. onSuccess runs after
// a confirmed submit, before navigation; it is where cached session state is
// invalidated. navigator and onSuccess may be nil.
func NewCoordinator(
	examID, sessionID uuid.UUID,
	submitter Submitter,
	navigator Navigator,
	notifier notify.Notifier,
	log zerolog.Logger,
	onSuccess func(*model.Session),
) *Coordinator {
	return &Coordinator{
		examID:    examID,
		sessionID: sessionID,
		submitter: submitter,
		navigator: navigator,
		notifier:  notifier,
		log:       log.With().Str("component", "submission_coordinator").Logger(),
		onSuccess: onSuccess,
	}
}

// Submitted reports whether the session reached its terminal state.
func (c *Coordinator) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Submit finalizes the session exactly once. A call while another submission
// is outstanding returns ErrSubmitInFlight and performs no network call. On
// failure the in-flight flag is released and the session stays IN_PROGRESS;
// the caller may retry explicitly.
func (c *Coordinator) Submit(ctx context.Context, trigger Trigger) error {
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		return ErrAlreadySubmitted
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.inFlight = true
	c.mu.Unlock()

	c.log.Info().
		Str("trigger", string(trigger)).
		Str("session_id", c.sessionID.String()).
		Msg("submitting session")

	submitted, err := c.submitter.SubmitExam(ctx, c.examID)
	if err != nil {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()

		c.log.Error().Err(err).Str("trigger", string(trigger)).Msg("submit failed")
		c.notifier.Error("Could not submit the exam")
		return fmt.Errorf("submit exam: %w", err)
	}

	c.mu.Lock()
	c.inFlight = false
	c.submitted = true
	c.mu.Unlock()

	c.notifier.Success("Exam submitted")
	if c.onSuccess != nil {
		c.onSuccess(submitted)
	}
	if c.navigator != nil {
		c.navigator.GoToResult(c.examID, c.sessionID)
	}
	return nil
}
