package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cli/internal/model"
	"github.com/stemsi/exstem-cli/internal/notify"
)

// saveTimeout bounds a single persist request fired from a quiet-period
// timer, which has no caller context to inherit.
const saveTimeout = 10 * time.Second

// AnswerSaver persists a single answer selection. Implemented by the API
// client.
type AnswerSaver interface {
	SaveSessionAnswer(ctx context.Context, sessionID, questionID, optionID uuid.UUID) (*model.AnswerRecord, error)
}

type pendingWrite struct {
	optionID uuid.UUID
	timer    clockwork.Timer
}

// Debouncer coalesces rapid answer selections into one persisted write per
// question. Each question owns its own pending slot and quiet-period timer:
// re-selecting before the quiet period elapses restarts that question's timer
// and only the final selection is ever sent (trailing write wins), while
// selections on different questions flush independently.
type Debouncer struct {
	clock     clockwork.Clock
	delay     time.Duration
	sessionID uuid.UUID
	saver     AnswerSaver
	rec       *Reconciler
	notifier  notify.Notifier
	log       zerolog.Logger

	mu      sync.Mutex
	closed  bool
	pending map[uuid.UUID]*pendingWrite
}

// NewDebouncer creates a Debouncer flushing after the given quiet period.
func NewDebouncer(
	clock clockwork.Clock,
	delay time.Duration,
	sessionID uuid.UUID,
	saver AnswerSaver,
	rec *Reconciler,
	notifier notify.Notifier,
	log zerolog.Logger,
) *Debouncer {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Debouncer{
		clock:     clock,
		delay:     delay,
		sessionID: sessionID,
		saver:     saver,
		rec:       rec,
		notifier:  notifier,
		log:       log.With().Str("component", "answer_debouncer").Logger(),
		pending:   make(map[uuid.UUID]*pendingWrite),
	}
}

// Select records the user's choice for immediate display and schedules a
// deferred persist after the quiet period.
func (d *Debouncer) Select(questionID, optionID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	// Optimistic display is instantaneous.
	d.rec.SetPending(questionID, optionID)

	if pw, ok := d.pending[questionID]; ok {
		pw.optionID = optionID
		pw.timer.Reset(d.delay)
		return
	}

	pw := &pendingWrite{optionID: optionID}
	qID := questionID
	pw.timer = d.clock.AfterFunc(d.delay, func() { d.flush(qID) })
	d.pending[questionID] = pw
}

// FlushAll persists every outstanding selection immediately, bypassing the
// remaining quiet periods. Called before submission so no selection is lost
// to an unflushed slot.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	type entry struct{ questionID, optionID uuid.UUID }
	var entries []entry
	for qID, pw := range d.pending {
		pw.timer.Stop()
		entries = append(entries, entry{qID, pw.optionID})
		delete(d.pending, qID)
	}
	d.mu.Unlock()

	for _, e := range entries {
		d.persist(e.questionID, e.optionID)
	}
}

// Close cancels all outstanding quiet-period timers. A timer that already
// fired but has not run yet is a no-op afterwards.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for qID, pw := range d.pending {
		pw.timer.Stop()
		delete(d.pending, qID)
	}
}

// flush runs when a question's quiet period elapses: it takes whatever is in
// the slot at that moment and persists it.
func (d *Debouncer) flush(questionID uuid.UUID) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	pw, ok := d.pending[questionID]
	if !ok {
		d.mu.Unlock()
		return
	}
	optionID := pw.optionID
	delete(d.pending, questionID)
	d.mu.Unlock()

	d.persist(questionID, optionID)
}

func (d *Debouncer) persist(questionID, optionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	record, err := d.saver.SaveSessionAnswer(ctx, d.sessionID, questionID, optionID)
	if err != nil {
		d.log.Error().Err(err).
			Str("question_id", questionID.String()).
			Msg("answer persist failed")
		d.rec.MarkFailed(questionID)
		d.notifier.Error("Could not save answer")
		return
	}

	d.rec.Confirm(questionID, record.SelectedOptionID, record.AnsweredAt)
	d.notifier.Success("Answer saved")
}
