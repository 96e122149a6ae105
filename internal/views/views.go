// Package views renders each console route into a Screen: a title, an
// optional table and the raw data behind it. The CLI prints the table, the
// web console returns the whole Screen as JSON.
package views

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/khutwa-dev/khutwa/internal/models"
)

// ErrNoView is returned for route patterns without a screen
var ErrNoView = errors.New("no view for route")

// API is the part of the platform client the screens read from
type API interface {
	AdminStats(ctx context.Context) (*models.AdminStats, error)
	TeacherEarnings(ctx context.Context) (*models.TeacherEarnings, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id models.ID) (*models.Course, error)
	ListLessons(ctx context.Context, courseID models.ID) ([]models.Lesson, error)
	ListQuizzes(ctx context.Context, courseID models.ID) ([]models.Quiz, error)
	GetQuizDetails(ctx context.Context, id models.ID) (*models.QuizDetails, error)
	ListResults(ctx context.Context) ([]models.Result, error)
	PendingPayments(ctx context.Context) ([]models.Payment, error)
	ListUsers(ctx context.Context) ([]models.Account, error)
	ListAnnouncements(ctx context.Context) ([]models.Announcement, error)
	AdvancedReports(ctx context.Context) (*models.AdvancedReport, error)
}

// Screen is a rendered route
type Screen struct {
	Title   string     `json:"title"`
	Notice  string     `json:"notice,omitempty"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Data    any        `json:"data,omitempty"`
}

// Request carries the resolved route and the current identity to a view
type Request struct {
	Pattern  string
	Params   map[string]string
	Identity *models.Identity
}

// Param returns a route parameter as a record id
func (r Request) Param(name string) models.ID {
	return models.ID(r.Params[name])
}

// View renders one route
type View func(ctx context.Context, api API, req Request) (*Screen, error)

// Registry maps route patterns to views
type Registry struct {
	views map[string]View
}

// NewRegistry returns the registry of every console screen
func NewRegistry() *Registry {
	return &Registry{views: map[string]View{
		"/login":                          loginView,
		"/":                               dashboardView,
		"/students":                       studentsView,
		"/my-courses":                     myCoursesView,
		"/add-course":                     addCourseView,
		"/edit-course/:id":                editCourseView,
		"/admin/course/:courseId/lessons": lessonsView,
		"/create-quiz/:courseId":          createQuizView,
		"/admin/course/:courseId/quizzes": quizzesView,
		"/admin/edit-quiz/:quizId":        editQuizView,
		"/admin/results":                  resultsView,
		"/admin/students":                 paymentsView,
		"/admin/users":                    usersView,
		"/admin/announcements":            announcementsView,
		"/admin/all-content":              allContentView,
		"/reports":                        reportsView,
	}}
}

// Register adds or replaces the view for pattern
func (r *Registry) Register(pattern string, v View) {
	r.views[pattern] = v
}

// Patterns lists the registered patterns in sorted order
func (r *Registry) Patterns() []string {
	out := make([]string, 0, len(r.views))
	for p := range r.views {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Render runs the view registered for req.Pattern
func (r *Registry) Render(ctx context.Context, api API, req Request) (*Screen, error) {
	v, ok := r.views[req.Pattern]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoView, req.Pattern)
	}
	return v(ctx, api, req)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
