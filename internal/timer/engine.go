// Package timer derives countdown state for a running exam session from the
// server-issued start time and time limit. The engine is a pure function of
// its inputs; the Scheduler drives it on a recurring tick.
package timer

import (
	"fmt"
	"time"
)

// Snapshot is the derived countdown state at a single instant. It is
// recomputed on every tick and never stored as authoritative state.
type Snapshot struct {
	TotalSeconds     int     `json:"totalSeconds"`
	ElapsedSeconds   int     `json:"elapsedSeconds"`
	RemainingSeconds int     `json:"remainingSeconds"`
	Minutes          int     `json:"minutes"`
	Seconds          int     `json:"seconds"`
	Expired          bool    `json:"isExpired"`
	Warning          bool    `json:"isWarning"`
	Percentage       float64 `json:"percentage"`
}

// warningThreshold is the remaining-percentage below which Warning turns on.
const warningThreshold = 25.0

// Compute maps (startTime, timeLimitSeconds, now) to a Snapshot.
//
// Elapsed time is clamped to zero so clock skew (now before startTime) never
// extends the countdown. A zero time limit is a degenerate but legal input:
// it yields an immediately expired snapshot with Percentage 0 rather than a
// division by zero.
func Compute(startTime time.Time, timeLimitSeconds int, now time.Time) Snapshot {
	elapsed := int(now.Sub(startTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	if timeLimitSeconds <= 0 {
		return Snapshot{
			ElapsedSeconds: elapsed,
			Expired:        true,
		}
	}

	remaining := timeLimitSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}

	percentage := float64(remaining) / float64(timeLimitSeconds) * 100
	if percentage > 100 {
		percentage = 100
	}

	expired := remaining <= 0

	return Snapshot{
		TotalSeconds:     timeLimitSeconds,
		ElapsedSeconds:   elapsed,
		RemainingSeconds: remaining,
		Minutes:          remaining / 60,
		Seconds:          remaining % 60,
		Expired:          expired,
		Warning:          percentage < warningThreshold && !expired,
		Percentage:       percentage,
	}
}

// Format renders minutes and seconds as a fixed-width "MM:SS" string.
func Format(minutes, seconds int) string {
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// Display returns the snapshot's remaining time as "MM:SS".
func (s Snapshot) Display() string {
	return Format(s.Minutes, s.Seconds)
}
