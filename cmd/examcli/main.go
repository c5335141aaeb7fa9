package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cli/internal/api"
	"github.com/stemsi/exstem-cli/internal/config"
	"github.com/stemsi/exstem-cli/internal/logger"
	"github.com/stemsi/exstem-cli/internal/model"
	"github.com/stemsi/exstem-cli/internal/notify"
	"github.com/stemsi/exstem-cli/internal/response"
	"github.com/stemsi/exstem-cli/internal/session"
	"github.com/stemsi/exstem-cli/internal/timer"
	"golang.org/x/term"
)

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	client *api.Client
	in     *bufio.Reader
}

// resultNavigator records that a submitted session wants to show its result.
type resultNavigator struct {
	ready atomic.Bool
}

func (n *resultNavigator) GoToResult(examID, sessionID uuid.UUID) {
	n.ready.Store(true)
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr; stdout belongs to the prompt.
	log := logger.SetupTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	a := &app{
		cfg:    cfg,
		log:    log,
		client: api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, log),
		in:     bufio.NewReader(os.Stdin),
	}

	fmt.Println("=== ExStem Exam Client ===")
	fmt.Printf("API: %s\n", cfg.APIBaseURL)

	if err := a.login(); err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	if err := a.lobby(); err != nil {
		log.Fatal().Err(err).Msg("Lobby error")
	}

	fmt.Println("Goodbye!")
}

// login prompts for credentials, allowing a few attempts.
func (a *app) login() error {
	for attempt := 1; attempt <= 3; attempt++ {
		fmt.Printf("Email (default %s): ", a.cfg.DemoEmail)
		email := a.readLine()
		if email == "" {
			email = a.cfg.DemoEmail
		}

		fmt.Print("Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		login, err := a.client.Login(context.Background(), email, string(bytePassword))
		if err != nil {
			if api.IsCode(err, response.ErrInvalidCredentials) {
				fmt.Println("Invalid credentials, try again.")
				continue
			}
			return err
		}

		fmt.Printf("Welcome, %s!\n", login.User.Name)
		return nil
	}
	return errors.New("too many failed login attempts")
}

// lobby lists the published exams and dispatches into exam sessions.
func (a *app) lobby() error {
	for {
		exams, err := a.client.ListExams(context.Background())
		if err != nil {
			return fmt.Errorf("list exams: %w", err)
		}

		fmt.Println("\n─── Available Exams ───")
		if len(exams) == 0 {
			fmt.Println("No exams available right now.")
		}
		for i, exam := range exams {
			fmt.Printf("%d. %s (%s)\n", i+1, exam.Title, timer.Format(exam.TimeLimit/60, exam.TimeLimit%60))
			if exam.Description != nil && *exam.Description != "" {
				fmt.Printf("   %s\n", *exam.Description)
			}
		}

		fmt.Print("Exam number, or (q)uit: ")
		input := a.readLine()
		if input == "q" {
			return nil
		}
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(exams) {
			fmt.Println("Pick a listed exam number.")
			continue
		}

		if err := a.runSession(exams[n-1]); err != nil {
			fmt.Printf("Session error: %v\n", err)
		}
	}
}

// runSession starts (or resumes) the exam session and drives the answer loop
// until the session is submitted or the user leaves.
func (a *app) runSession(exam model.Exam) error {
	ctx := context.Background()

	sess, err := a.client.StartSession(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	var lastSnap atomic.Value
	var warned atomic.Bool
	nav := &resultNavigator{}

	ctrl := session.NewController(session.ControllerConfig{
		API:           a.client,
		ExamID:        exam.ID,
		SessionID:     sess.ID,
		Notifier:      notify.TerminalNotifier{},
		Navigator:     nav,
		Log:           a.log,
		TickInterval:  a.cfg.TickInterval,
		DebounceDelay: a.cfg.DebounceDelay,
		OnTick: func(s timer.Snapshot) {
			lastSnap.Store(s)
			if s.Warning && !warned.Swap(true) {
				fmt.Printf("\n! Only %s left, finish up.\n", s.Display())
			}
		},
	})
	defer ctrl.Close()

	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	if ctrl.View().Status == model.SessionStatusSubmitted {
		fmt.Println("This exam was already submitted.")
		a.showResult(exam.ID, sess.ID)
		return nil
	}

	fmt.Printf("\n─── %s ───\n", exam.Title)
	a.printQuestions(ctrl)

	for {
		if nav.ready.Load() || ctrl.Submitted() {
			a.showResult(exam.ID, sess.ID)
			return nil
		}

		snap, _ := lastSnap.Load().(timer.Snapshot)
		fmt.Printf("\n[%s] (l)ist, question number, (s)ubmit, (r)efresh, (q)uit\n> ", snap.Display())
		input := a.readLine()

		// The countdown may have run out while waiting for input.
		if nav.ready.Load() || ctrl.Submitted() {
			a.showResult(exam.ID, sess.ID)
			return nil
		}

		switch input {
		case "", "l":
			a.printQuestions(ctrl)
		case "s":
			if a.submit(ctrl) {
				a.showResult(exam.ID, sess.ID)
				return nil
			}
		case "r":
			if err := ctrl.Refresh(ctx); err != nil {
				fmt.Printf("Refresh failed: %v\n", err)
			} else {
				a.printQuestions(ctrl)
			}
		case "q":
			fmt.Println("Leaving the exam; your answers are saved.")
			return nil
		default:
			n, err := strconv.Atoi(input)
			if err != nil {
				fmt.Println("Unknown command.")
				continue
			}
			a.answerQuestion(ctrl, n)
		}
	}
}

// printQuestions shows the question list with answered markers.
func (a *app) printQuestions(ctrl *session.Controller) {
	view := ctrl.View()
	stats := ctrl.ConfirmationStats()

	for _, q := range view.Questions {
		marker := " "
		if q.SelectedOptionID != nil {
			marker = "✓"
		}
		fmt.Printf("%s %d. %s\n", marker, q.Order, stripTags(q.ContentHTML))
	}
	fmt.Printf("Answered %d of %d.\n", stats.Answered, stats.Total)
}

// answerQuestion shows one question and records the chosen option.
func (a *app) answerQuestion(ctrl *session.Controller, n int) {
	view := ctrl.View()
	if n < 1 || n > len(view.Questions) {
		fmt.Println("Pick a listed question number.")
		return
	}
	q := view.Questions[n-1]

	fmt.Printf("\n%d. %s\n", q.Order, stripTags(q.ContentHTML))
	for i, opt := range q.Options {
		marker := " "
		if q.SelectedOptionID != nil && *q.SelectedOptionID == opt.ID {
			marker = "✓"
		}
		fmt.Printf("%s %c) %s\n", marker, 'a'+i, stripTags(opt.ContentHTML))
	}

	fmt.Print("Choice (or enter to skip): ")
	input := a.readLine()
	if input == "" {
		return
	}
	idx := int(input[0] - 'a')
	if len(input) != 1 || idx < 0 || idx >= len(q.Options) {
		fmt.Println("Pick a listed option letter.")
		return
	}

	if err := ctrl.SelectOption(q.QuestionID, q.Options[idx].ID); err != nil {
		if errors.Is(err, session.ErrEditsLocked) {
			fmt.Println("The session can no longer be edited.")
			return
		}
		fmt.Printf("Could not record the answer: %v\n", err)
	}
}

// submit confirms with the user and finalizes the session. Returns true when
// the session was submitted.
func (a *app) submit(ctrl *session.Controller) bool {
	stats := ctrl.ConfirmationStats()
	if stats.Unanswered > 0 {
		fmt.Printf("%d of %d questions are unanswered.\n", stats.Unanswered, stats.Total)
	}
	fmt.Print("Submit the exam? This cannot be undone. (y/N): ")
	if a.readLine() != "y" {
		return false
	}

	if err := ctrl.Submit(context.Background()); err != nil {
		if errors.Is(err, session.ErrAlreadySubmitted) {
			return true
		}
		fmt.Printf("Submit failed, you can retry: %v\n", err)
		return false
	}
	return true
}

// showResult fetches and prints the scored outcome, waiting briefly for the
// server to finish scoring if needed.
func (a *app) showResult(examID, sessionID uuid.UUID) {
	var result *model.ExamResult
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		result, err = a.client.GetExamResult(context.Background(), examID, sessionID)
		if err == nil || !api.IsCode(err, response.ErrResultNotReady) {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		fmt.Printf("Could not fetch the result: %v\n", err)
		return
	}

	fmt.Println("\n─── Result ───")
	fmt.Printf("Score:      %.1f\n", result.Score)
	fmt.Printf("Correct:    %d\n", result.TotalCorrect)
	fmt.Printf("Wrong:      %d\n", result.TotalWrong)
	fmt.Printf("Unanswered: %d\n", result.TotalUnanswered)
	fmt.Printf("Submitted:  %s\n", result.SubmittedAt.Local().Format(time.RFC1123))
}

func (a *app) readLine() string {
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// stripTags flattens the HTML question content for terminal display.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return html.UnescapeString(strings.TrimSpace(b.String()))
}
