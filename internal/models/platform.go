package models

// Course is a course as listed and edited by teachers and admins
type Course struct {
	ID           ID      `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Grade        string  `json:"grade,omitempty"`
	Branch       string  `json:"branch,omitempty"`
	Price        float64 `json:"price"`
	InstructorID ID      `json:"instructor_id,omitempty"`
	SalesCount   int     `json:"sales_count,omitempty"`
}

// CourseInput is the payload for creating or updating a course
type CourseInput struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	Grade        string  `json:"grade,omitempty"`
	Branch       string  `json:"branch,omitempty"`
	Price        float64 `json:"price" validate:"gt=0"`
	InstructorID ID      `json:"instructor_id,omitempty"`
}

// Lesson is a video, file or external link attached to a course
type Lesson struct {
	ID          ID     `json:"id"`
	CourseID    ID     `json:"course_id,omitempty"`
	Title       string `json:"title"`
	ContentType string `json:"content_type,omitempty"`
	URL         string `json:"file_storage_path,omitempty"`
}

// LessonLink attaches an external link (live session, hosted video) to a course
type LessonLink struct {
	CourseID    ID     `json:"course_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	LinkURL     string `json:"link_url" validate:"required,url"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

// Quiz is a quiz as listed per course or across the platform
type Quiz struct {
	ID           ID      `json:"id"`
	Title        string  `json:"title"`
	QuizTitle    string  `json:"quiz_title,omitempty"`
	CourseID     ID      `json:"course_id,omitempty"`
	CourseTitle  string  `json:"course_title,omitempty"`
	CourseName   string  `json:"course_name,omitempty"`
	Duration     int     `json:"duration"`
	IsPublished  int     `json:"is_published"`
	AverageScore float64 `json:"average_score,omitempty"`
}

// DisplayTitle returns whichever title field the endpoint populated
func (q Quiz) DisplayTitle() string {
	if q.Title != "" {
		return q.Title
	}
	return q.QuizTitle
}

// QuizInput is the payload for creating a quiz
type QuizInput struct {
	CourseID    ID     `json:"courseId"`
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	IsPublished int    `json:"is_published"`
}

// QuizUpdate is the payload for updating quiz metadata
type QuizUpdate struct {
	Title    string `json:"title"`
	Duration int    `json:"duration"`
}

// Question is a single multiple-choice question of a quiz
type Question struct {
	ID            ID     `json:"id,omitempty"`
	QuestionText  string `json:"question_text" validate:"required"`
	OptionA       string `json:"option_a" validate:"required"`
	OptionB       string `json:"option_b" validate:"required"`
	OptionC       string `json:"option_c" validate:"required"`
	OptionD       string `json:"option_d" validate:"required"`
	CorrectAnswer string `json:"correct_answer" validate:"required,oneof=A B C D"`
}

// QuizDetails is a quiz together with its questions
type QuizDetails struct {
	ID        ID         `json:"id"`
	Title     string     `json:"title"`
	Duration  int        `json:"duration"`
	Questions []Question `json:"questions"`
}

// Student is an enrolled student as listed on the students screen
type Student struct {
	ID         ID     `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	CourseName string `json:"course_name,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Result is a single quiz submission
type Result struct {
	ID             ID      `json:"id"`
	StudentName    string  `json:"student_name"`
	CourseName     string  `json:"course_name"`
	QuizTitle      string  `json:"quiz_title"`
	Score          float64 `json:"score"`
	IsCompleted    bool    `json:"is_completed"`
	SubmissionDate string  `json:"submission_date,omitempty"`
}

// Account is a platform user as managed by admins
type Account struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

// NewAccount is the payload for creating a platform user
type NewAccount struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"required,oneof=admin teacher student"`
}

// PaymentStatus is the outcome an admin assigns to a pending payment
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is a pending course purchase awaiting admin approval
type Payment struct {
	ID            ID      `json:"id"`
	Username      string  `json:"username"`
	CourseTitle   string  `json:"course_title"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
}

// Announcement is a platform-wide announcement
type Announcement struct {
	ID        ID     `json:"id"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// AdminStats feeds the admin dashboard cards
type AdminStats struct {
	TotalStudents int     `json:"totalStudents"`
	TotalCourses  int     `json:"totalCourses"`
	TotalEarnings float64 `json:"totalEarnings"`
	Rating        float64 `json:"rating"`
}

// TeacherEarnings feeds the teacher dashboard
type TeacherEarnings struct {
	TotalSales         float64 `json:"totalSales"`
	PlatformCommission float64 `json:"platformCommission"`
	NetEarnings        float64 `json:"netEarnings"`
}

// ReportSummary is the headline block of the advanced report
type ReportSummary struct {
	TotalEarnings float64 `json:"totalEarnings"`
	TotalStudents int     `json:"totalStudents"`
	AverageGrade  float64 `json:"averageGrade"`
}

// AdvancedReport is the admin financial and performance report
type AdvancedReport struct {
	Summary          ReportSummary `json:"summary"`
	TopCourses       []Course      `json:"topCourses"`
	InactiveStudents []Student     `json:"inactiveStudents"`
	QuizPerformance  []Quiz        `json:"quizPerformance"`
}
