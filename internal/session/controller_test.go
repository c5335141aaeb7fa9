package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cli/internal/model"
	"github.com/stemsi/exstem-cli/internal/timer"
)

func newTestController(t *testing.T, api *fakeAPI, fc *clockwork.FakeClock) (*Controller, chan timer.Snapshot, *fakeNavigator) {
	t.Helper()

	nav := &fakeNavigator{}
	ticks := make(chan timer.Snapshot, 64)

	ctrl := NewController(ControllerConfig{
		API:       api,
		ExamID:    testExamID,
		SessionID: testSessionID,
		Clock:     fc,
		Notifier:  &fakeNotifier{},
		Navigator: nav,
		Log:       zerolog.Nop(),
		OnTick:    func(s timer.Snapshot) { ticks <- s },
	})
	t.Cleanup(ctrl.Close)
	return ctrl, ticks, nav
}

func shortDetail(limitSeconds int) *model.SessionDetail {
	d := testDetail()
	d.TimeLimit = limitSeconds
	return d
}

func TestControllerExpiryAutoSubmitsExactlyOnce(t *testing.T) {
	fc := clockwork.NewFakeClockAt(sessionStart)
	api := newFakeAPI(shortDetail(2))
	ctrl, ticks, nav := newTestController(t, api, fc)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	recvTickSnap(t, ticks) // initial snapshot

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	recvTickSnap(t, ticks)

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	final := recvTickSnap(t, ticks)
	if !final.Expired {
		t.Fatal("final tick must be expired")
	}

	waitFor(t, ctrl.Submitted)
	if api.fakeSubmitter.callCount() != 1 {
		t.Fatalf("network submits = %d, want exactly 1", api.fakeSubmitter.callCount())
	}
	if nav.callCount() != 1 {
		t.Fatalf("navigation calls = %d, want 1", nav.callCount())
	}

	// Edits are rejected after expiry.
	if err := ctrl.SelectOption(q1, q1OptA); !errors.Is(err, ErrEditsLocked) {
		t.Fatalf("SelectOption after expiry returned %v, want ErrEditsLocked", err)
	}
	if ctrl.TimerState() != timer.StateExpired {
		t.Fatalf("TimerState = %s, want EXPIRED", ctrl.TimerState())
	}
}

func TestControllerExpiryLocksEditsEvenIfSubmitFails(t *testing.T) {
	fc := clockwork.NewFakeClockAt(sessionStart)
	api := newFakeAPI(shortDetail(1))
	api.fakeSubmitter.err = errors.New("server unavailable")
	ctrl, ticks, _ := newTestController(t, api, fc)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	recvTickSnap(t, ticks)

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	recvTickSnap(t, ticks)

	waitFor(t, func() bool { return api.fakeSubmitter.callCount() == 1 })

	// Time-barred even though the server never confirmed SUBMITTED.
	if ctrl.Submitted() {
		t.Fatal("failed auto-submit must not report terminal state")
	}
	if err := ctrl.SelectOption(q1, q1OptA); !errors.Is(err, ErrEditsLocked) {
		t.Fatalf("SelectOption returned %v, want ErrEditsLocked", err)
	}

	// Explicit retry still works.
	api.fakeSubmitter.mu.Lock()
	api.fakeSubmitter.err = nil
	api.fakeSubmitter.mu.Unlock()
	if err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
}

func TestControllerRefreshPreservesPendingSelection(t *testing.T) {
	fc := clockwork.NewFakeClockAt(sessionStart)
	api := newFakeAPI(testDetail())
	ctrl, ticks, _ := newTestController(t, api, fc)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	recvTickSnap(t, ticks)

	if err := ctrl.SelectOption(q1, q1OptB); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}

	// The server still reports q1 unanswered; the unflushed local choice
	// must survive the refresh.
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	view := ctrl.View()
	if view.Questions[0].SelectedOptionID == nil || *view.Questions[0].SelectedOptionID != q1OptB {
		t.Fatal("refresh regressed an unflushed local selection")
	}
}

func TestControllerUserSubmitFlushesPendingAnswers(t *testing.T) {
	fc := clockwork.NewFakeClockAt(sessionStart)
	api := newFakeAPI(testDetail())
	ctrl, ticks, _ := newTestController(t, api, fc)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	recvTickSnap(t, ticks)

	if err := ctrl.SelectOption(q1, q1OptC); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}

	stats := ctrl.ConfirmationStats()
	if stats.Answered != 1 || stats.Unanswered != 1 || stats.Total != 2 {
		t.Fatalf("stats = %+v, want 1/1/2", stats)
	}

	if err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if api.fakeSaver.callCount() != 1 {
		t.Fatalf("persists = %d, want the pending answer flushed before submit", api.fakeSaver.callCount())
	}
	if call := recvSave(t, api.fakeSaver.saved); call.optionID != q1OptC {
		t.Fatalf("flushed %s, want q1OptC", call.optionID)
	}
	if api.fakeSubmitter.callCount() != 1 {
		t.Fatalf("network submits = %d, want 1", api.fakeSubmitter.callCount())
	}
}

func TestControllerRejectsUnknownSelection(t *testing.T) {
	fc := clockwork.NewFakeClockAt(sessionStart)
	api := newFakeAPI(testDetail())
	ctrl, ticks, _ := newTestController(t, api, fc)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	recvTickSnap(t, ticks)

	if err := ctrl.SelectOption(q1, q2OptA); !errors.Is(err, ErrUnknownSelection) {
		t.Fatalf("SelectOption returned %v, want ErrUnknownSelection", err)
	}
}

func TestControllerLoadSubmittedSessionLocksEdits(t *testing.T) {
	fc := clockwork.NewFakeClockAt(sessionStart)
	detail := testDetail()
	detail.Status = model.SessionStatusSubmitted
	api := newFakeAPI(detail)
	ctrl, _, _ := newTestController(t, api, fc)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := ctrl.SelectOption(q1, q1OptA); !errors.Is(err, ErrEditsLocked) {
		t.Fatalf("SelectOption returned %v, want ErrEditsLocked", err)
	}
	if ctrl.TimerState() != timer.StateIdle {
		t.Fatalf("TimerState = %s, want IDLE (countdown never started)", ctrl.TimerState())
	}
}

func recvTickSnap(t *testing.T, ch chan timer.Snapshot) timer.Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return timer.Snapshot{}
	}
}
