package views

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/models"
)

type fakeAPI struct {
	calls []string
	err   error
}

func (f *fakeAPI) hit(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeAPI) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	return &models.AdminStats{TotalStudents: 120, TotalCourses: 8, TotalEarnings: 1500.5, Rating: 4.8}, f.hit("stats")
}

func (f *fakeAPI) TeacherEarnings(ctx context.Context) (*models.TeacherEarnings, error) {
	return &models.TeacherEarnings{TotalSales: 100, PlatformCommission: 20, NetEarnings: 80}, f.hit("earnings")
}

func (f *fakeAPI) ListStudents(ctx context.Context) ([]models.Student, error) {
	return []models.Student{{ID: "1", Username: "ali", Email: "ali@example.com"}}, f.hit("students")
}

func (f *fakeAPI) ListCourses(ctx context.Context) ([]models.Course, error) {
	return []models.Course{{ID: "4", Title: "Physics", Price: 20, SalesCount: 3}}, f.hit("courses")
}

func (f *fakeAPI) GetCourse(ctx context.Context, id models.ID) (*models.Course, error) {
	return &models.Course{ID: id, Title: "Physics", Price: 20}, f.hit("course:" + id.String())
}

func (f *fakeAPI) ListLessons(ctx context.Context, courseID models.ID) ([]models.Lesson, error) {
	return []models.Lesson{{ID: "9", Title: "Intro"}}, f.hit("lessons:" + courseID.String())
}

func (f *fakeAPI) ListQuizzes(ctx context.Context, courseID models.ID) ([]models.Quiz, error) {
	return []models.Quiz{{ID: "2", QuizTitle: "Final", Duration: 30, IsPublished: 1}}, f.hit("quizzes:" + courseID.String())
}

func (f *fakeAPI) GetQuizDetails(ctx context.Context, id models.ID) (*models.QuizDetails, error) {
	return &models.QuizDetails{ID: id, Title: "Final", Duration: 30}, f.hit("quiz:" + id.String())
}

func (f *fakeAPI) ListResults(ctx context.Context) ([]models.Result, error) {
	return nil, f.hit("results")
}

func (f *fakeAPI) PendingPayments(ctx context.Context) ([]models.Payment, error) {
	return nil, f.hit("payments")
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]models.Account, error) {
	return []models.Account{{ID: "5", Username: "mona", Role: models.RoleTeacher, IsActive: true}}, f.hit("users")
}

func (f *fakeAPI) ListAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	return nil, f.hit("announcements")
}

func (f *fakeAPI) AdvancedReports(ctx context.Context) (*models.AdvancedReport, error) {
	return &models.AdvancedReport{TopCourses: []models.Course{{Title: "Physics", SalesCount: 3}}}, f.hit("reports")
}

func TestRegistry_CoversEveryRoute(t *testing.T) {
	registry := NewRegistry()
	var patterns []string
	for _, r := range guard.DefaultTable().Routes() {
		patterns = append(patterns, r.Pattern)
	}
	assert.ElementsMatch(t, patterns, registry.Patterns())
}

func TestRegistry_UnknownPattern(t *testing.T) {
	_, err := NewRegistry().Render(context.Background(), &fakeAPI{}, Request{Pattern: "/nope"})
	assert.True(t, errors.Is(err, ErrNoView))
}

func TestDashboard_ByRole(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	api := &fakeAPI{}
	s, err := registry.Render(ctx, api, Request{Pattern: "/", Identity: &models.Identity{Username: "root", Role: models.RoleAdmin}})
	require.NoError(t, err)
	assert.Equal(t, []string{"stats"}, api.calls)
	assert.Equal(t, []string{"Earnings", "1500.50"}, s.Rows[2])
	assert.Contains(t, s.Notice, "root")

	api = &fakeAPI{}
	s, err = registry.Render(ctx, api, Request{Pattern: "/", Identity: &models.Identity{Username: "mona", Role: models.RoleTeacher}})
	require.NoError(t, err)
	assert.Equal(t, []string{"earnings"}, api.calls)
	assert.Equal(t, []string{"Net earnings", "80.00"}, s.Rows[2])

	api = &fakeAPI{}
	s, err = registry.Render(ctx, api, Request{Pattern: "/", Identity: &models.Identity{Username: "ali", Role: models.RoleStudent}})
	require.NoError(t, err)
	assert.Empty(t, api.calls)
	assert.Equal(t, "Welcome, ali.", s.Notice)

	// token without identity
	s, err = registry.Render(ctx, api, Request{Pattern: "/"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome.", s.Notice)
}

func TestViews_UseRouteParams(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	tests := []struct {
		pattern string
		params  map[string]string
		calls   []string
	}{
		{pattern: "/edit-course/:id", params: map[string]string{"id": "4"}, calls: []string{"course:4", "lessons:4"}},
		{pattern: "/admin/course/:courseId/lessons", params: map[string]string{"courseId": "4"}, calls: []string{"lessons:4"}},
		{pattern: "/admin/course/:courseId/quizzes", params: map[string]string{"courseId": "4"}, calls: []string{"quizzes:4"}},
		{pattern: "/admin/edit-quiz/:quizId", params: map[string]string{"quizId": "2"}, calls: []string{"quiz:2"}},
		{pattern: "/create-quiz/:courseId", params: map[string]string{"courseId": "4"}},
		{pattern: "/admin/students", calls: []string{"payments"}},
		{pattern: "/admin/users", calls: []string{"users"}},
		{pattern: "/reports", calls: []string{"reports"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			api := &fakeAPI{}
			s, err := registry.Render(ctx, api, Request{Pattern: tt.pattern, Params: tt.params})
			require.NoError(t, err)
			assert.NotEmpty(t, s.Title)
			assert.Equal(t, tt.calls, api.calls)
		})
	}
}

func TestViews_Tables(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	s, err := registry.Render(ctx, &fakeAPI{}, Request{Pattern: "/admin/course/:courseId/quizzes", Params: map[string]string{"courseId": "4"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2", "Final", "", "30", "yes"}}, s.Rows)

	s, err = registry.Render(ctx, &fakeAPI{}, Request{Pattern: "/admin/students"})
	require.NoError(t, err)
	assert.Empty(t, s.Rows)
	assert.NotEmpty(t, s.Notice)

	quiz, err := registry.Render(ctx, &fakeAPI{}, Request{Pattern: "/create-quiz/:courseId", Params: map[string]string{"courseId": "4"}})
	require.NoError(t, err)
	input, ok := quiz.Data.(models.QuizInput)
	require.True(t, ok)
	assert.Equal(t, models.ID("4"), input.CourseID)
	assert.Equal(t, 1, input.IsPublished)
}

func TestViews_PropagateErrors(t *testing.T) {
	api := &fakeAPI{err: errors.New("unauthorized")}
	_, err := NewRegistry().Render(context.Background(), api, Request{Pattern: "/admin/users"})
	assert.EqualError(t, err, "unauthorized")
}
