package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/khutwa-dev/khutwa/internal/models"
)

// ListCourses returns the courses visible to the caller
func (c *Client) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := c.do(ctx, http.MethodGet, "/courses", nil, &courses); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// GetCourse returns a single course
func (c *Client) GetCourse(ctx context.Context, id models.ID) (*models.Course, error) {
	var course models.Course
	if err := c.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(id.String()), nil, &course); err != nil {
		return nil, fmt.Errorf("failed to get course %s: %w", id, err)
	}
	return &course, nil
}

// createdCourse covers the id fields different API versions answer with
type createdCourse struct {
	ID       models.ID `json:"id"`
	CourseID models.ID `json:"courseId"`
	InsertID models.ID `json:"insertId"`
}

// CreateCourse creates a course and returns its new id
func (c *Client) CreateCourse(ctx context.Context, in models.CourseInput) (models.ID, error) {
	var created createdCourse
	if err := c.do(ctx, http.MethodPost, "/courses", in, &created); err != nil {
		return "", fmt.Errorf("failed to create course: %w", err)
	}

	for _, id := range []models.ID{created.ID, created.CourseID, created.InsertID} {
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to create course: response did not include an id")
}

// UpdateCourse replaces a course's details
func (c *Client) UpdateCourse(ctx context.Context, id models.ID, in models.CourseInput) error {
	if err := c.do(ctx, http.MethodPut, "/courses/"+url.PathEscape(id.String()), in, nil); err != nil {
		return fmt.Errorf("failed to update course %s: %w", id, err)
	}
	return nil
}

// DeleteCourse deletes a course with all its content
func (c *Client) DeleteCourse(ctx context.Context, id models.ID) error {
	if err := c.do(ctx, http.MethodDelete, "/courses/"+url.PathEscape(id.String()), nil, nil); err != nil {
		return fmt.Errorf("failed to delete course %s: %w", id, err)
	}
	return nil
}

// TeacherEarnings returns the calling teacher's sales summary
func (c *Client) TeacherEarnings(ctx context.Context) (*models.TeacherEarnings, error) {
	var earnings models.TeacherEarnings
	if err := c.do(ctx, http.MethodGet, "courses/earnings", nil, &earnings); err != nil {
		return nil, fmt.Errorf("failed to get earnings: %w", err)
	}
	return &earnings, nil
}

// ListLessons returns the lessons of a course
func (c *Client) ListLessons(ctx context.Context, courseID models.ID) ([]models.Lesson, error) {
	var lessons []models.Lesson
	path := fmt.Sprintf("/videos/course/%s/list", url.PathEscape(courseID.String()))
	if err := c.do(ctx, http.MethodGet, path, nil, &lessons); err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// AddLessonLink attaches an external link to a course
func (c *Client) AddLessonLink(ctx context.Context, link models.LessonLink) error {
	if err := c.do(ctx, http.MethodPost, "/videos/upload", link, nil); err != nil {
		return fmt.Errorf("failed to add lesson %q: %w", link.Title, err)
	}
	return nil
}

// DeleteLesson removes a lesson
func (c *Client) DeleteLesson(ctx context.Context, id models.ID) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/lessons/"+url.PathEscape(id.String()), nil, nil); err != nil {
		return fmt.Errorf("failed to delete lesson %s: %w", id, err)
	}
	return nil
}
