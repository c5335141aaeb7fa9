package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// State enumerates scheduler lifecycle states.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StateExpired State = "EXPIRED"
)

// Scheduler drives the timer engine on a recurring tick. It recomputes a
// Snapshot once per interval and delivers it to the tick callback; on the
// first expired snapshot it fires the expiry callback exactly once and stops
// ticking. Expired is terminal until the next Start.
//
// The clock is injected so tests can drive ticks with a fake clock instead of
// waiting on the wall clock.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	gen       int
	stop      chan struct{}
	done      chan struct{}
	onTick    func(Snapshot)
	onExpired func()
}

// NewScheduler creates an idle scheduler ticking at the given interval.
func NewScheduler(clock clockwork.Clock, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		clock:    clock,
		interval: interval,
		log:      log.With().Str("component", "timer_scheduler").Logger(),
		state:    StateIdle,
	}
}

// OnTick registers the per-tick snapshot callback. Register before Start.
func (s *Scheduler) OnTick(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = fn
}

// OnExpired registers the expiry callback. It is invoked at most once per
// Start, after the tick callback for the expired snapshot. Register before
// Start.
func (s *Scheduler) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpired = fn
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins ticking against the given session parameters. Calling Start
// while already running cancels the previous countdown and waits for it to
// wind down before the new one begins; there is no compounding with a stale
// interval.
//
// An initial snapshot is delivered synchronously so callers have countdown
// state before the first tick. If that snapshot is already expired the expiry
// callback fires immediately and no ticker is started.
func (s *Scheduler) Start(startTime time.Time, timeLimitSeconds int) {
	s.cancelRun()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateRunning
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done
	onTick, onExpired := s.onTick, s.onExpired
	s.mu.Unlock()

	s.log.Debug().
		Time("start_time", startTime).
		Int("time_limit_seconds", timeLimitSeconds).
		Msg("countdown started")

	snap := Compute(startTime, timeLimitSeconds, s.clock.Now())
	if onTick != nil {
		onTick(snap)
	}

	if snap.Expired {
		s.mu.Lock()
		if gen != s.gen || s.state != StateRunning {
			s.mu.Unlock()
			return
		}
		s.state = StateExpired
		s.stop, s.done = nil, nil
		s.mu.Unlock()
		close(done)

		s.log.Debug().Msg("countdown already expired on start")
		if onExpired != nil {
			onExpired()
		}
		return
	}

	go s.run(gen, stop, done, startTime, timeLimitSeconds)
}

// Stop cancels the countdown and releases the ticker. Safe to call whether or
// not expiry fired. It waits for the tick goroutine to exit, so no callback
// runs after Stop returns. Must not be called from inside a callback.
func (s *Scheduler) Stop() {
	s.cancelRun()

	s.mu.Lock()
	if s.state == StateRunning {
		s.state = StateIdle
	}
	s.mu.Unlock()

	s.log.Debug().Msg("countdown stopped")
}

// cancelRun signals the active tick goroutine (if any) and joins it. The
// generation bump discards any tick already pulled off the ticker channel.
func (s *Scheduler) cancelRun() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.gen++
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) run(gen int, stop, done chan struct{}, startTime time.Time, timeLimitSeconds int) {
	defer close(done)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.Chan():
			snap := Compute(startTime, timeLimitSeconds, now)

			s.mu.Lock()
			if gen != s.gen || s.state != StateRunning {
				s.mu.Unlock()
				return
			}
			onTick, onExpired := s.onTick, s.onExpired
			if snap.Expired {
				s.state = StateExpired
				s.stop, s.done = nil, nil
			}
			s.mu.Unlock()

			if onTick != nil {
				onTick(snap)
			}
			if snap.Expired {
				s.log.Debug().Msg("countdown expired")
				if onExpired != nil {
					onExpired()
				}
				return
			}
		}
	}
}
