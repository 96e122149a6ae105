package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/models"
)

// DefaultQuizDuration is the duration, in minutes, of a new quiz
const DefaultQuizDuration = 30

// QuizAPI is the part of the API client the quiz builder uses
type QuizAPI interface {
	GetQuizDetails(ctx context.Context, id models.ID) (*models.QuizDetails, error)
	CreateQuiz(ctx context.Context, in models.QuizInput) (models.ID, error)
	UpdateQuiz(ctx context.Context, id models.ID, in models.QuizUpdate) error
	AddQuestion(ctx context.Context, quizID models.ID, q models.Question) error
	UpdateQuestion(ctx context.Context, q models.Question) error
	DeleteQuestion(ctx context.Context, id models.ID) error
}

// QuizDraft is a quiz being built or edited. QuizID empty means create mode,
// which needs CourseID. Loaded holds the question ids the quiz had when it
// was opened, so questions dropped since then can be deleted.
type QuizDraft struct {
	CourseID  models.ID
	QuizID    models.ID
	Title     string            `validate:"required"`
	Duration  int               `validate:"gt=0"`
	Questions []models.Question `validate:"min=1,dive"`
	Loaded    []models.ID
}

// NewQuizDraft starts an empty quiz for a course
func NewQuizDraft(courseID models.ID) *QuizDraft {
	return &QuizDraft{CourseID: courseID, Duration: DefaultQuizDuration}
}

// EditMode reports whether the draft edits an existing quiz
func (d *QuizDraft) EditMode() bool {
	return d.QuizID != ""
}

// Validate checks the title, duration and every question
func (d *QuizDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("quiz title is required")
	}
	if len(d.Questions) == 0 {
		return errors.New("a quiz needs at least one question")
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid quiz: %w", err)
	}
	if !d.EditMode() && d.CourseID == "" {
		return errors.New("a new quiz needs a course")
	}
	return nil
}

// QuizResult counts what the builder changed
type QuizResult struct {
	QuizID  models.ID `json:"quiz_id"`
	Created bool      `json:"created"`
	Added   int       `json:"added"`
	Updated int       `json:"updated"`
	Deleted int       `json:"deleted"`
}

// QuizBuilder creates and edits quizzes
type QuizBuilder struct {
	api    QuizAPI
	logger zerolog.Logger
}

// NewQuizBuilder creates a quiz builder
func NewQuizBuilder(api QuizAPI, logger zerolog.Logger) *QuizBuilder {
	return &QuizBuilder{
		api:    api,
		logger: logger.With().Str("component", "quiz_builder").Logger(),
	}
}

// Load opens an existing quiz for editing
func (b *QuizBuilder) Load(ctx context.Context, quizID models.ID) (*QuizDraft, error) {
	details, err := b.api.GetQuizDetails(ctx, quizID)
	if err != nil {
		return nil, err
	}

	draft := &QuizDraft{
		QuizID:    quizID,
		Title:     details.Title,
		Duration:  details.Duration,
		Questions: details.Questions,
	}
	if draft.Duration <= 0 {
		draft.Duration = DefaultQuizDuration
	}
	for _, q := range details.Questions {
		if q.ID != "" {
			draft.Loaded = append(draft.Loaded, q.ID)
		}
	}
	return draft, nil
}

// Save validates the draft and writes it. Create mode publishes a new quiz
// and adds its questions. Edit mode updates the metadata, deletes the
// questions removed since Load, updates the kept ones and adds the new ones.
func (b *QuizBuilder) Save(ctx context.Context, draft *QuizDraft) (*QuizResult, error) {
	result := &QuizResult{QuizID: draft.QuizID}

	if err := draft.Validate(); err != nil {
		return result, err
	}

	if !draft.EditMode() {
		id, err := b.api.CreateQuiz(ctx, models.QuizInput{
			CourseID:    draft.CourseID,
			Title:       draft.Title,
			Duration:    draft.Duration,
			IsPublished: 1,
		})
		if err != nil {
			return result, err
		}
		result.QuizID = id
		result.Created = true
	} else {
		err := b.api.UpdateQuiz(ctx, draft.QuizID, models.QuizUpdate{
			Title:    draft.Title,
			Duration: draft.Duration,
		})
		if err != nil {
			return result, err
		}

		kept := make(map[models.ID]bool, len(draft.Questions))
		for _, q := range draft.Questions {
			if q.ID != "" {
				kept[q.ID] = true
			}
		}
		for _, id := range draft.Loaded {
			if kept[id] {
				continue
			}
			if err := b.api.DeleteQuestion(ctx, id); err != nil {
				return result, err
			}
			result.Deleted++
		}
	}

	for i, q := range draft.Questions {
		var err error
		if q.ID != "" && draft.EditMode() {
			err = b.api.UpdateQuestion(ctx, q)
			if err == nil {
				result.Updated++
			}
		} else {
			q.ID = ""
			err = b.api.AddQuestion(ctx, result.QuizID, q)
			if err == nil {
				result.Added++
			}
		}
		if err != nil {
			return result, fmt.Errorf("question %d of %d: %w", i+1, len(draft.Questions), err)
		}
	}

	b.logger.Info().
		Str("quiz_id", result.QuizID.String()).
		Bool("created", result.Created).
		Int("added", result.Added).
		Int("updated", result.Updated).
		Int("deleted", result.Deleted).
		Msg("Quiz saved")
	return result, nil
}
