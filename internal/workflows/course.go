// Package workflows holds the multi-step editing flows of the console: the
// course wizard and the quiz builder. Each step is one API call; a flow
// stops at the first failed step and reports how far it got.
package workflows

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/models"
)

// DefaultBranch is sent when a course does not name one; the API requires it
const DefaultBranch = "scientific"

var validate = validator.New()

// CourseAPI is the part of the API client the course wizard uses
type CourseAPI interface {
	CreateCourse(ctx context.Context, in models.CourseInput) (models.ID, error)
	UpdateCourse(ctx context.Context, id models.ID, in models.CourseInput) error
	AddLessonLink(ctx context.Context, link models.LessonLink) error
}

// CourseDraft is everything the wizard collects before saving. An empty ID
// creates a new course.
type CourseDraft struct {
	ID      models.ID
	Course  models.CourseInput
	Lessons []models.LessonLink
}

// CourseResult reports what the wizard managed to save
type CourseResult struct {
	CourseID models.ID `json:"course_id"`
	Created  bool      `json:"created"`
	Attached []string  `json:"attached"`
}

// Validate checks the course details and every lesson before anything is sent
func (d CourseDraft) Validate() error {
	if err := validate.Struct(d.Course); err != nil {
		return fmt.Errorf("invalid course: %w", err)
	}
	for i, l := range d.Lessons {
		// the course id is only known after the course is saved
		if err := validate.StructExcept(l, "CourseID"); err != nil {
			return fmt.Errorf("invalid lesson %d: %w", i+1, err)
		}
	}
	return nil
}

// CourseWizard saves a course and then attaches its lessons one by one
type CourseWizard struct {
	api    CourseAPI
	logger zerolog.Logger
}

// NewCourseWizard creates a course wizard
func NewCourseWizard(api CourseAPI, logger zerolog.Logger) *CourseWizard {
	return &CourseWizard{
		api:    api,
		logger: logger.With().Str("component", "course_wizard").Logger(),
	}
}

// Save validates the draft, creates or updates the course and attaches the
// lessons in order. The returned result is never nil: on failure it lists
// the lessons attached before the failing one.
func (w *CourseWizard) Save(ctx context.Context, draft CourseDraft, author *models.Identity) (*CourseResult, error) {
	result := &CourseResult{CourseID: draft.ID, Attached: []string{}}

	if err := draft.Validate(); err != nil {
		return result, err
	}

	in := draft.Course
	if in.Branch == "" {
		in.Branch = DefaultBranch
	}
	if in.InstructorID == "" && author != nil {
		in.InstructorID = author.ID
	}

	if draft.ID == "" {
		id, err := w.api.CreateCourse(ctx, in)
		if err != nil {
			return result, err
		}
		result.CourseID = id
		result.Created = true
		w.logger.Info().Str("course_id", id.String()).Str("title", in.Title).Msg("Course created")
	} else {
		if err := w.api.UpdateCourse(ctx, draft.ID, in); err != nil {
			return result, err
		}
		w.logger.Info().Str("course_id", draft.ID.String()).Msg("Course updated")
	}

	for i, lesson := range draft.Lessons {
		lesson.CourseID = result.CourseID
		if lesson.SortOrder == 0 {
			lesson.SortOrder = i
		}
		if err := w.api.AddLessonLink(ctx, lesson); err != nil {
			w.logger.Warn().
				Err(err).
				Str("course_id", result.CourseID.String()).
				Int("attached", len(result.Attached)).
				Msg("Lesson upload stopped")
			return result, fmt.Errorf("lesson %d of %d: %w", i+1, len(draft.Lessons), err)
		}
		result.Attached = append(result.Attached, lesson.Title)
	}

	return result, nil
}
