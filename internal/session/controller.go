package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cli/internal/model"
	"github.com/stemsi/exstem-cli/internal/notify"
	"github.com/stemsi/exstem-cli/internal/timer"
)

// Controller-level errors.
var (
	// ErrEditsLocked is returned once the session is time-barred or
	// submitted: answers can no longer be changed, even while the final
	// auto-submit is still confirming server-side.
	ErrEditsLocked = errors.New("session can no longer be edited")

	// ErrUnknownSelection is returned for a selection that does not match
	// a question/option pair in the loaded session.
	ErrUnknownSelection = errors.New("selection does not match a question option")
)

// API is the slice of the exam API the controller depends on.
type API interface {
	GetSessionDetail(ctx context.Context, examID, sessionID uuid.UUID) (*model.SessionDetail, error)
	SaveSessionAnswer(ctx context.Context, sessionID, questionID, optionID uuid.UUID) (*model.AnswerRecord, error)
	SubmitExam(ctx context.Context, examID uuid.UUID) (*model.Session, error)
}

// ControllerConfig wires a Controller's collaborators.
type ControllerConfig struct {
	API       API
	ExamID    uuid.UUID
	SessionID uuid.UUID
	Clock     clockwork.Clock
	Notifier  notify.Notifier
	Navigator Navigator
	Log       zerolog.Logger

	// TickInterval and DebounceDelay fall back to 1s / 500ms when zero.
	TickInterval  time.Duration
	DebounceDelay time.Duration

	// OnTick receives every countdown snapshot, for display.
	OnTick func(timer.Snapshot)
}

// Controller owns the moving parts of one exam-taking session: the countdown
// scheduler, the answer debouncer, the submission coordinator, and the state
// reconciler. One Controller per session; Close releases all timers.
type Controller struct {
	api       API
	examID    uuid.UUID
	sessionID uuid.UUID
	notifier  notify.Notifier
	log       zerolog.Logger

	rec   *Reconciler
	deb   *Debouncer
	sched *timer.Scheduler
	coord *Coordinator

	mu          sync.Mutex
	editsLocked bool
	closed      bool
}

// NewController assembles a Controller from its configuration.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewLogNotifier(cfg.Log)
	}

	c := &Controller{
		api:       cfg.API,
		examID:    cfg.ExamID,
		sessionID: cfg.SessionID,
		notifier:  cfg.Notifier,
		log:       cfg.Log.With().Str("component", "session_controller").Logger(),
	}

	c.rec = NewReconciler()
	c.deb = NewDebouncer(cfg.Clock, cfg.DebounceDelay, cfg.SessionID, cfg.API, c.rec, cfg.Notifier, cfg.Log)
	c.coord = NewCoordinator(cfg.ExamID, cfg.SessionID, cfg.API, cfg.Navigator, cfg.Notifier, cfg.Log, func(submitted *model.Session) {
		c.rec.Finalize(submitted)
	})

	c.sched = timer.NewScheduler(cfg.Clock, cfg.TickInterval, cfg.Log)
	if cfg.OnTick != nil {
		c.sched.OnTick(cfg.OnTick)
	}
	c.sched.OnExpired(c.handleExpiry)

	return c
}

// Load fetches the session detail, reconciles it, and starts the countdown
// if the session is still in progress.
func (c *Controller) Load(ctx context.Context) error {
	detail, err := c.api.GetSessionDetail(ctx, c.examID, c.sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	c.rec.ApplyDetail(detail)

	if detail.Status != model.SessionStatusInProgress {
		c.mu.Lock()
		c.editsLocked = true
		c.mu.Unlock()
		return nil
	}

	c.sched.Start(detail.StartTime, detail.TimeLimit)
	return nil
}

// Refresh re-fetches the session detail and reconciles it with any pending
// local selections.
func (c *Controller) Refresh(ctx context.Context) error {
	detail, err := c.api.GetSessionDetail(ctx, c.examID, c.sessionID)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	c.rec.ApplyDetail(detail)

	if detail.Status != model.SessionStatusInProgress {
		c.mu.Lock()
		c.editsLocked = true
		c.mu.Unlock()
		c.sched.Stop()
	}
	return nil
}

// SelectOption records an answer selection. Rejected once the session is
// time-barred or submitted.
func (c *Controller) SelectOption(questionID, optionID uuid.UUID) error {
	c.mu.Lock()
	if c.closed || c.editsLocked {
		c.mu.Unlock()
		return ErrEditsLocked
	}
	c.mu.Unlock()

	if c.coord.Submitted() {
		return ErrEditsLocked
	}
	if !c.rec.ValidOption(questionID, optionID) {
		return ErrUnknownSelection
	}

	c.deb.Select(questionID, optionID)
	return nil
}

// ConfirmationStats computes answered/unanswered/total counts at this moment,
// for the submit confirmation prompt.
func (c *Controller) ConfirmationStats() Stats {
	return c.rec.Stats()
}

// Submit is the user-confirmed submission path. Outstanding debounced answers
// are flushed first so the submitted session reflects every selection.
func (c *Controller) Submit(ctx context.Context) error {
	c.deb.FlushAll()
	return c.coord.Submit(ctx, TriggerUser)
}

// View returns the current merged session detail.
func (c *Controller) View() *model.SessionDetail {
	return c.rec.View()
}

// TimerState exposes the scheduler state, mainly for display.
func (c *Controller) TimerState() timer.State {
	return c.sched.State()
}

// Submitted reports whether the session reached its terminal state.
func (c *Controller) Submitted() bool {
	return c.coord.Submitted()
}

// Close tears the session down: the countdown stops, quiet-period timers are
// canceled, and no callback fires into the torn-down controller.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.deb.Close()
	c.sched.Stop()
}

// handleExpiry runs when the countdown reaches zero: edits lock immediately
// (the session is time-barred regardless of server confirmation latency),
// outstanding answers flush, and the session auto-submits through the same
// path as a user-confirmed submission.
func (c *Controller) handleExpiry() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.editsLocked = true
	c.mu.Unlock()

	c.log.Info().Str("session_id", c.sessionID.String()).Msg("time limit reached, auto-submitting")

	c.deb.FlushAll()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := c.coord.Submit(ctx, TriggerExpiry); err != nil &&
		!errors.Is(err, ErrSubmitInFlight) && !errors.Is(err, ErrAlreadySubmitted) {
		// The session stays time-barred locally; the user can retry the
		// submit explicitly.
		c.log.Error().Err(err).Msg("expiry-triggered submit failed")
	}
}
