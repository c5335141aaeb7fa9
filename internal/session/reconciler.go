// Package session implements the client-side coordination core for a running
// exam session: debounced answer persistence, at-most-once submission, and
// reconciliation of optimistic local state with server-confirmed data.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-cli/internal/model"
)

// Stats summarizes answer progress for the submit confirmation step.
type Stats struct {
	Answered   int
	Unanswered int
	Total      int
}

type pendingAnswer struct {
	optionID uuid.UUID
	failed   bool
}

// Reconciler merges server-fetched session data with optimistic local
// selections. The server is the source of truth for confirmed answers, but a
// selection the user already made never regresses on screen: an unconfirmed
// local choice wins over whatever a fetch carries for that question until its
// own persist is acknowledged.
type Reconciler struct {
	mu      sync.Mutex
	detail  *model.SessionDetail
	pending map[uuid.UUID]pendingAnswer
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{pending: make(map[uuid.UUID]pendingAnswer)}
}

// ApplyDetail replaces the server-truth snapshot. Pending local selections
// are kept and re-overlaid on every View; they are not cleared here even when
// the fetched data carries an older (or no) selection for those questions.
func (r *Reconciler) ApplyDetail(detail *model.SessionDetail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detail = cloneDetail(detail)
}

// SetPending records an optimistic selection awaiting persist. It replaces
// any earlier pending value for the question.
func (r *Reconciler) SetPending(questionID, optionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[questionID] = pendingAnswer{optionID: optionID}
}

// Confirm records a server-acknowledged answer. The confirmed value is
// written into the session detail; the pending overlay is dropped unless the
// user selected a different option again while the persist was in flight, in
// which case the newer pending value stays until its own flush resolves.
func (r *Reconciler) Confirm(questionID, optionID uuid.UUID, answeredAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detail != nil {
		for i := range r.detail.Questions {
			if r.detail.Questions[i].QuestionID == questionID {
				opt := optionID
				at := answeredAt
				r.detail.Questions[i].SelectedOptionID = &opt
				r.detail.Questions[i].AnsweredAt = &at
				break
			}
		}
	}

	if p, ok := r.pending[questionID]; ok && p.optionID == optionID {
		delete(r.pending, questionID)
	}
}

// MarkFailed flags a pending selection whose persist failed. The optimistic
// value stays displayed; there is no automatic retry. Re-selecting the
// option schedules a fresh attempt.
func (r *Reconciler) MarkFailed(questionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[questionID]; ok {
		p.failed = true
		r.pending[questionID] = p
	}
}

// Finalize marks the session SUBMITTED and drops all pending overlays; the
// session is immutable from here on.
func (r *Reconciler) Finalize(submitted *model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = make(map[uuid.UUID]pendingAnswer)
	if r.detail == nil {
		return
	}
	r.detail.Status = model.SessionStatusSubmitted
	if submitted != nil {
		r.detail.SubmittedAt = submitted.SubmittedAt
		r.detail.TotalCorrect = submitted.TotalCorrect
		r.detail.TotalWrong = submitted.TotalWrong
		r.detail.TotalUnanswered = submitted.TotalUnanswered
	}
}

// View returns the merged session detail: server truth with unconfirmed
// local selections overlaid. Returns nil before the first ApplyDetail.
func (r *Reconciler) View() *model.SessionDetail {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detail == nil {
		return nil
	}
	view := cloneDetail(r.detail)
	for i := range view.Questions {
		if p, ok := r.pending[view.Questions[i].QuestionID]; ok {
			opt := p.optionID
			view.Questions[i].SelectedOptionID = &opt
		}
	}
	return view
}

// Stats counts answered questions in the merged view at this moment.
func (r *Reconciler) Stats() Stats {
	view := r.View()
	if view == nil {
		return Stats{}
	}

	stats := Stats{Total: len(view.Questions)}
	for i := range view.Questions {
		if view.Questions[i].SelectedOptionID != nil {
			stats.Answered++
		}
	}
	stats.Unanswered = stats.Total - stats.Answered
	return stats
}

// HasPending reports whether a question has an unconfirmed local selection.
func (r *Reconciler) HasPending(questionID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[questionID]
	return ok
}

// ValidOption reports whether optionID belongs to questionID in the current
// session detail.
func (r *Reconciler) ValidOption(questionID, optionID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detail == nil {
		return false
	}
	for i := range r.detail.Questions {
		if r.detail.Questions[i].QuestionID != questionID {
			continue
		}
		for _, opt := range r.detail.Questions[i].Options {
			if opt.ID == optionID {
				return true
			}
		}
		return false
	}
	return false
}

// cloneDetail copies the detail and its question slice so callers never
// share mutable state with the reconciler. Option slices are immutable once
// fetched and are shared.
func cloneDetail(d *model.SessionDetail) *model.SessionDetail {
	if d == nil {
		return nil
	}
	out := *d
	out.Questions = make([]model.Question, len(d.Questions))
	copy(out.Questions, d.Questions)
	return &out
}
