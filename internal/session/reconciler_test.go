package session

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-cli/internal/model"
)

func TestReconcilerOverlaysPendingSelection(t *testing.T) {
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())

	rec.SetPending(q1, q1OptB)

	view := rec.View()
	if view.Questions[0].SelectedOptionID == nil || *view.Questions[0].SelectedOptionID != q1OptB {
		t.Fatal("pending selection not overlaid on view")
	}
	if view.Questions[1].SelectedOptionID != nil {
		t.Fatal("unrelated question must stay unanswered")
	}
}

func TestReconcilerFetchNeverRegressesPendingAnswer(t *testing.T) {
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())
	rec.SetPending(q1, q1OptB)

	// A fetch arrives carrying no selection for q1 (server hasn't seen the
	// persist yet). The local optimistic value must keep winning.
	rec.ApplyDetail(testDetail())

	view := rec.View()
	if view.Questions[0].SelectedOptionID == nil || *view.Questions[0].SelectedOptionID != q1OptB {
		t.Fatal("fetch overwrote an unconfirmed local selection")
	}

	// Same when the fetch carries an older, different selection.
	stale := testDetail()
	old := q1OptA
	stale.Questions[0].SelectedOptionID = &old
	rec.ApplyDetail(stale)

	view = rec.View()
	if *view.Questions[0].SelectedOptionID != q1OptB {
		t.Fatal("fetch with stale selection overwrote the optimistic value")
	}
}

func TestReconcilerConfirmDropsOverlay(t *testing.T) {
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())
	rec.SetPending(q1, q1OptB)

	rec.Confirm(q1, q1OptB, sessionStart.Add(time.Minute))

	if rec.HasPending(q1) {
		t.Fatal("pending slot must clear after its own persist is acknowledged")
	}
	view := rec.View()
	if view.Questions[0].SelectedOptionID == nil || *view.Questions[0].SelectedOptionID != q1OptB {
		t.Fatal("confirmed selection missing from view")
	}
	if view.Questions[0].AnsweredAt == nil {
		t.Fatal("confirmed selection must carry an answered-at timestamp")
	}
}

func TestReconcilerConfirmKeepsNewerPending(t *testing.T) {
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())

	// User picked B, persist went in flight, then user picked C.
	rec.SetPending(q1, q1OptB)
	rec.SetPending(q1, q1OptC)

	// The acknowledgement for B arrives; C is still awaiting its flush and
	// must keep winning on screen.
	rec.Confirm(q1, q1OptB, sessionStart.Add(time.Minute))

	if !rec.HasPending(q1) {
		t.Fatal("newer pending selection dropped by an older confirmation")
	}
	if view := rec.View(); *view.Questions[0].SelectedOptionID != q1OptC {
		t.Fatalf("view shows %s, want the newer pending option", *view.Questions[0].SelectedOptionID)
	}
}

func TestReconcilerMarkFailedKeepsOptimisticValue(t *testing.T) {
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())
	rec.SetPending(q1, q1OptB)

	rec.MarkFailed(q1)

	if !rec.HasPending(q1) {
		t.Fatal("failed persist must not clear the displayed selection")
	}
	if view := rec.View(); *view.Questions[0].SelectedOptionID != q1OptB {
		t.Fatal("failed persist must keep the optimistic value displayed")
	}
}

func TestReconcilerStats(t *testing.T) {
	rec := NewReconciler()

	detail := testDetail()
	confirmed := q2OptA
	detail.Questions[1].SelectedOptionID = &confirmed
	rec.ApplyDetail(detail)

	stats := rec.Stats()
	if stats.Total != 2 || stats.Answered != 1 || stats.Unanswered != 1 {
		t.Fatalf("stats = %+v, want 1 answered of 2", stats)
	}

	// A pending selection counts as answered the moment it is displayed.
	rec.SetPending(q1, q1OptA)
	stats = rec.Stats()
	if stats.Answered != 2 || stats.Unanswered != 0 {
		t.Fatalf("stats = %+v, want 2 answered of 2", stats)
	}
}

func TestReconcilerFinalize(t *testing.T) {
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())
	rec.SetPending(q1, q1OptA)

	submittedAt := sessionStart.Add(25 * time.Minute)
	correct := 1
	rec.Finalize(&model.Session{
		Status:       model.SessionStatusSubmitted,
		SubmittedAt:  &submittedAt,
		TotalCorrect: &correct,
	})

	view := rec.View()
	if view.Status != model.SessionStatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", view.Status)
	}
	if rec.HasPending(q1) {
		t.Fatal("pending overlays must clear once the session is terminal")
	}
}

func TestReconcilerValidOption(t *testing.T) {
	rec := NewReconciler()
	rec.ApplyDetail(testDetail())

	if !rec.ValidOption(q1, q1OptA) {
		t.Error("q1OptA belongs to q1")
	}
	if rec.ValidOption(q1, q2OptA) {
		t.Error("q2OptA does not belong to q1")
	}
	if rec.ValidOption(testUserID, q1OptA) {
		t.Error("unknown question must not validate")
	}
}
