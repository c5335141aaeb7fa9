package stubserver

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-cli/internal/config"
	"github.com/stemsi/exstem-cli/internal/model"
)

// seedQuestion describes one multiple-choice question for AddExam.
type seedQuestion struct {
	ContentHTML string
	Options     []string
	Correct     int
}

// AddExam registers an exam with its questions. The Correct index selects the
// right option per question.
func (s *Store) AddExam(title, description string, timeLimitSeconds int, status model.ExamStatus, questions []seedQuestion) uuid.UUID {
	exam := &examRecord{
		Exam: model.Exam{
			ID:          uuid.New(),
			Title:       title,
			Description: &description,
			TimeLimit:   timeLimitSeconds,
			Status:      status,
		},
	}

	for i, q := range questions {
		record := questionRecord{
			id:          uuid.New(),
			order:       i + 1,
			contentHTML: q.ContentHTML,
		}
		for j, opt := range q.Options {
			option := model.Option{ID: uuid.New(), ContentHTML: opt}
			record.options = append(record.options, option)
			if j == q.Correct {
				record.correctOptionID = option.ID
			}
		}
		exam.questions = append(exam.questions, record)
	}

	s.mu.Lock()
	s.exams[exam.ID] = exam
	s.mu.Unlock()

	return exam.ID
}

// Seed populates the store with a demo account and a few exams so the CLI
// works out of the box.
func Seed(store *Store, cfg *config.Config) error {
	if _, err := store.AddUser(cfg.DemoEmail, "Demo Student", cfg.DemoPassword, cfg.BcryptCost); err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	store.AddExam("Algebra Basics", "Linear equations and simple factoring.", 1800, model.ExamStatusPublished, []seedQuestion{
		{
			ContentHTML: "<p>Solve for x: 2x + 6 = 14</p>",
			Options:     []string{"<p>2</p>", "<p>4</p>", "<p>6</p>", "<p>8</p>"},
			Correct:     1,
		},
		{
			ContentHTML: "<p>Factor: x&sup2; - 9</p>",
			Options:     []string{"<p>(x-3)(x-3)</p>", "<p>(x+9)(x-1)</p>", "<p>(x+3)(x-3)</p>", "<p>(x+1)(x-9)</p>"},
			Correct:     2,
		},
		{
			ContentHTML: "<p>What is the slope of y = 3x + 2?</p>",
			Options:     []string{"<p>2</p>", "<p>3</p>", "<p>5</p>", "<p>-3</p>"},
			Correct:     1,
		},
	})

	store.AddExam("World Geography", "Capitals, rivers, and continents.", 900, model.ExamStatusPublished, []seedQuestion{
		{
			ContentHTML: "<p>Which river is the longest in the world?</p>",
			Options:     []string{"<p>Amazon</p>", "<p>Nile</p>", "<p>Yangtze</p>", "<p>Mississippi</p>"},
			Correct:     1,
		},
		{
			ContentHTML: "<p>What is the capital of Australia?</p>",
			Options:     []string{"<p>Sydney</p>", "<p>Melbourne</p>", "<p>Canberra</p>", "<p>Perth</p>"},
			Correct:     2,
		},
	})

	// Draft exams never show up in the published listing.
	store.AddExam("Chemistry Midterm", "Draft, still under review.", 3600, model.ExamStatusDraft, []seedQuestion{
		{
			ContentHTML: "<p>What is the chemical symbol for gold?</p>",
			Options:     []string{"<p>Au</p>", "<p>Ag</p>", "<p>Go</p>", "<p>Gd</p>"},
			Correct:     0,
		},
	})

	return nil
}
