package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestCoordinator(submitter *fakeSubmitter) (*Coordinator, *fakeNavigator, *fakeNotifier, *Reconciler) {
	nav := &fakeNavigator{}
	notifier := &fakeNotifier{}
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())

	coord := NewCoordinator(testExamID, testSessionID, submitter, nav, notifier, zerolog.Nop(), rec.Finalize)
	return coord, nav, notifier, rec
}

func TestCoordinatorSubmitSuccess(t *testing.T) {
	submitter := newFakeSubmitter()
	coord, nav, _, rec := newTestCoordinator(submitter)

	if err := coord.Submit(context.Background(), TriggerUser); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !coord.Submitted() {
		t.Fatal("coordinator must report terminal state")
	}
	if nav.callCount() != 1 {
		t.Fatalf("navigation calls = %d, want 1", nav.callCount())
	}
	if view := rec.View(); view.Status != "SUBMITTED" {
		t.Fatalf("reconciled status = %s, want SUBMITTED", view.Status)
	}
}

func TestCoordinatorRejectsConcurrentSubmit(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.block = make(chan struct{})
	coord, nav, _, _ := newTestCoordinator(submitter)

	first := make(chan error, 1)
	go func() { first <- coord.Submit(context.Background(), TriggerUser) }()

	// Wait until the first submission is in flight.
	<-submitter.started

	if err := coord.Submit(context.Background(), TriggerUser); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("second submit returned %v, want ErrSubmitInFlight", err)
	}

	close(submitter.block)
	if err := <-first; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	if submitter.callCount() != 1 {
		t.Fatalf("network submits = %d, want exactly 1", submitter.callCount())
	}
	if nav.callCount() != 1 {
		t.Fatalf("navigation calls = %d, want 1", nav.callCount())
	}
}

func TestCoordinatorReleasesFlagOnFailureAndAllowsRetry(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.err = errors.New("server unavailable")
	coord, nav, notifier, _ := newTestCoordinator(submitter)

	if err := coord.Submit(context.Background(), TriggerUser); err == nil {
		t.Fatal("expected submit failure")
	}
	if coord.Submitted() {
		t.Fatal("failed submit must not mark the session terminal")
	}
	if notifier.errorCount() != 1 {
		t.Fatalf("error toasts = %d, want 1", notifier.errorCount())
	}

	// Explicit retry succeeds once the server recovers.
	submitter.mu.Lock()
	submitter.err = nil
	submitter.mu.Unlock()

	if err := coord.Submit(context.Background(), TriggerExpiry); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if submitter.callCount() != 2 {
		t.Fatalf("network submits = %d, want 2", submitter.callCount())
	}
	if nav.callCount() != 1 {
		t.Fatalf("navigation calls = %d, want 1 (only the success navigates)", nav.callCount())
	}
}

func TestCoordinatorSubmitAfterTerminalState(t *testing.T) {
	submitter := newFakeSubmitter()
	coord, _, _, _ := newTestCoordinator(submitter)

	if err := coord.Submit(context.Background(), TriggerUser); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := coord.Submit(context.Background(), TriggerExpiry); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("submit after terminal state returned %v, want ErrAlreadySubmitted", err)
	}
	if submitter.callCount() != 1 {
		t.Fatalf("network submits = %d, want 1", submitter.callCount())
	}
}
