package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/workflows"
)

func loginView(ctx context.Context, api API, req Request) (*Screen, error) {
	return &Screen{
		Title:  "Sign in",
		Notice: "Sign in with your platform email and password.",
		Data:   map[string]string{"email": "", "password": ""},
	}, nil
}

func dashboardView(ctx context.Context, api API, req Request) (*Screen, error) {
	role := models.Role("")
	name := ""
	if req.Identity != nil {
		role = req.Identity.Role
		name = req.Identity.DisplayName()
	}

	switch role {
	case models.RoleAdmin:
		stats, err := api.AdminStats(ctx)
		if err != nil {
			return nil, err
		}
		return &Screen{
			Title:   "Dashboard",
			Notice:  fmt.Sprintf("Welcome back, %s.", name),
			Columns: []string{"METRIC", "VALUE"},
			Rows: [][]string{
				{"Students", strconv.Itoa(stats.TotalStudents)},
				{"Courses", strconv.Itoa(stats.TotalCourses)},
				{"Earnings", money(stats.TotalEarnings)},
				{"Rating", strconv.FormatFloat(stats.Rating, 'f', 1, 64)},
			},
			Data: stats,
		}, nil

	case models.RoleTeacher:
		earnings, err := api.TeacherEarnings(ctx)
		if err != nil {
			return nil, err
		}
		return &Screen{
			Title:   "Dashboard",
			Notice:  fmt.Sprintf("Welcome back, %s.", name),
			Columns: []string{"METRIC", "VALUE"},
			Rows: [][]string{
				{"Total sales", money(earnings.TotalSales)},
				{"Platform commission", money(earnings.PlatformCommission)},
				{"Net earnings", money(earnings.NetEarnings)},
			},
			Data: earnings,
		}, nil
	}

	notice := "Welcome."
	if name != "" {
		notice = fmt.Sprintf("Welcome, %s.", name)
	}
	return &Screen{Title: "Dashboard", Notice: notice}, nil
}

func studentsView(ctx context.Context, api API, req Request) (*Screen, error) {
	students, err := api.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title:   "Students",
		Columns: []string{"ID", "USERNAME", "EMAIL", "COURSE"},
		Data:    students,
	}
	for _, st := range students {
		s.Rows = append(s.Rows, []string{st.ID.String(), st.Username, st.Email, st.CourseName})
	}
	return s, nil
}

func courseTable(title string, courses []models.Course) *Screen {
	s := &Screen{
		Title:   title,
		Columns: []string{"ID", "TITLE", "GRADE", "PRICE", "SALES"},
		Data:    courses,
	}
	for _, c := range courses {
		s.Rows = append(s.Rows, []string{c.ID.String(), c.Title, c.Grade, money(c.Price), strconv.Itoa(c.SalesCount)})
	}
	return s
}

func myCoursesView(ctx context.Context, api API, req Request) (*Screen, error) {
	courses, err := api.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	return courseTable("My courses", courses), nil
}

func allContentView(ctx context.Context, api API, req Request) (*Screen, error) {
	courses, err := api.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	return courseTable("Content management", courses), nil
}

func addCourseView(ctx context.Context, api API, req Request) (*Screen, error) {
	return &Screen{
		Title:  "Add course",
		Notice: "Save the course details first, then attach lessons.",
		Data:   models.CourseInput{},
	}, nil
}

func lessonRows(s *Screen, lessons []models.Lesson) {
	s.Columns = []string{"ID", "TITLE", "TYPE", "URL"}
	for _, l := range lessons {
		s.Rows = append(s.Rows, []string{l.ID.String(), l.Title, l.ContentType, l.URL})
	}
}

func editCourseView(ctx context.Context, api API, req Request) (*Screen, error) {
	id := req.Param("id")
	course, err := api.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	lessons, err := api.ListLessons(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &Screen{
		Title:  fmt.Sprintf("Edit course: %s", course.Title),
		Notice: fmt.Sprintf("Price %s, grade %s, %d lessons.", money(course.Price), course.Grade, len(lessons)),
		Data: map[string]any{
			"course":  course,
			"lessons": lessons,
		},
	}
	lessonRows(s, lessons)
	return s, nil
}

func lessonsView(ctx context.Context, api API, req Request) (*Screen, error) {
	lessons, err := api.ListLessons(ctx, req.Param("courseId"))
	if err != nil {
		return nil, err
	}
	s := &Screen{Title: "Course lessons", Data: lessons}
	if len(lessons) == 0 {
		s.Notice = "This course has no lessons yet."
	}
	lessonRows(s, lessons)
	return s, nil
}

func createQuizView(ctx context.Context, api API, req Request) (*Screen, error) {
	return &Screen{
		Title:  "New quiz",
		Notice: "Add at least one question before saving.",
		Data: models.QuizInput{
			CourseID:    req.Param("courseId"),
			Duration:    workflows.DefaultQuizDuration,
			IsPublished: 1,
		},
	}, nil
}

func quizzesView(ctx context.Context, api API, req Request) (*Screen, error) {
	quizzes, err := api.ListQuizzes(ctx, req.Param("courseId"))
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title:   "Quizzes",
		Columns: []string{"ID", "TITLE", "COURSE", "MINUTES", "PUBLISHED"},
		Data:    quizzes,
	}
	for _, q := range quizzes {
		course := q.CourseTitle
		if course == "" {
			course = q.CourseName
		}
		s.Rows = append(s.Rows, []string{
			q.ID.String(), q.DisplayTitle(), course, strconv.Itoa(q.Duration), yesNo(q.IsPublished == 1),
		})
	}
	return s, nil
}

func editQuizView(ctx context.Context, api API, req Request) (*Screen, error) {
	details, err := api.GetQuizDetails(ctx, req.Param("quizId"))
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title:   fmt.Sprintf("Edit quiz: %s", details.Title),
		Notice:  fmt.Sprintf("%d minutes, %d questions.", details.Duration, len(details.Questions)),
		Columns: []string{"ID", "QUESTION", "ANSWER"},
		Data:    details,
	}
	for _, q := range details.Questions {
		s.Rows = append(s.Rows, []string{q.ID.String(), q.QuestionText, q.CorrectAnswer})
	}
	return s, nil
}

func resultsView(ctx context.Context, api API, req Request) (*Screen, error) {
	results, err := api.ListResults(ctx)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title:   "Student results",
		Columns: []string{"STUDENT", "COURSE", "QUIZ", "SCORE", "COMPLETED", "DATE"},
		Data:    results,
	}
	for _, r := range results {
		s.Rows = append(s.Rows, []string{
			r.StudentName, r.CourseName, r.QuizTitle,
			strconv.FormatFloat(r.Score, 'f', -1, 64), yesNo(r.IsCompleted), r.SubmissionDate,
		})
	}
	return s, nil
}

func paymentsView(ctx context.Context, api API, req Request) (*Screen, error) {
	payments, err := api.PendingPayments(ctx)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title:   "Student management",
		Columns: []string{"ID", "STUDENT", "COURSE", "AMOUNT", "METHOD"},
		Data:    payments,
	}
	if len(payments) == 0 {
		s.Notice = "No payments are waiting for approval."
	}
	for _, p := range payments {
		s.Rows = append(s.Rows, []string{p.ID.String(), p.Username, p.CourseTitle, money(p.Amount), p.PaymentMethod})
	}
	return s, nil
}

func usersView(ctx context.Context, api API, req Request) (*Screen, error) {
	users, err := api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title:   "User management",
		Columns: []string{"ID", "USERNAME", "EMAIL", "ROLE", "ACTIVE"},
		Data:    users,
	}
	for _, u := range users {
		s.Rows = append(s.Rows, []string{u.ID.String(), u.Username, u.Email, string(u.Role), yesNo(u.IsActive)})
	}
	return s, nil
}

func announcementsView(ctx context.Context, api API, req Request) (*Screen, error) {
	announcements, err := api.ListAnnouncements(ctx)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title:   "Announcements",
		Columns: []string{"ID", "CONTENT", "CREATED"},
		Data:    announcements,
	}
	for _, a := range announcements {
		s.Rows = append(s.Rows, []string{a.ID.String(), a.Content, a.CreatedAt})
	}
	return s, nil
}

func reportsView(ctx context.Context, api API, req Request) (*Screen, error) {
	report, err := api.AdvancedReports(ctx)
	if err != nil {
		return nil, err
	}
	s := &Screen{
		Title: "Earnings & reports",
		Notice: fmt.Sprintf("Total earnings %s, %d students, average grade %s.",
			money(report.Summary.TotalEarnings),
			report.Summary.TotalStudents,
			strconv.FormatFloat(report.Summary.AverageGrade, 'f', 1, 64)),
		Columns: []string{"TOP COURSE", "SALES", "PRICE"},
		Data:    report,
	}
	for _, c := range report.TopCourses {
		s.Rows = append(s.Rows, []string{c.Title, strconv.Itoa(c.SalesCount), money(c.Price)})
	}
	return s, nil
}
