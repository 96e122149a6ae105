package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/khutwa-dev/khutwa/internal/models"
)

// ListQuizzes returns the quizzes of a course, or every quiz when courseID
// is empty. The endpoint answers either a bare array or {"quizzes": [...]}.
func (c *Client) ListQuizzes(ctx context.Context, courseID models.ID) ([]models.Quiz, error) {
	path := "/quizzes/admin/quizzes/all"
	if courseID != "" {
		path = fmt.Sprintf("/quizzes/admin/courses/%s/quizzes", url.PathEscape(courseID.String()))
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return decodeQuizzes(raw)
}

func decodeQuizzes(raw json.RawMessage) ([]models.Quiz, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []models.Quiz{}, nil
	}

	if raw[0] == '[' {
		var quizzes []models.Quiz
		if err := json.Unmarshal(raw, &quizzes); err != nil {
			return nil, fmt.Errorf("failed to decode quizzes: %w", err)
		}
		return quizzes, nil
	}

	var wrapped struct {
		Quizzes []models.Quiz `json:"quizzes"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode quizzes: %w", err)
	}
	if wrapped.Quizzes == nil {
		return []models.Quiz{}, nil
	}
	return wrapped.Quizzes, nil
}

// GetQuizDetails returns a quiz with its questions
func (c *Client) GetQuizDetails(ctx context.Context, id models.ID) (*models.QuizDetails, error) {
	var details models.QuizDetails
	path := fmt.Sprintf("/quizzes/admin/quizzes/%s/details", url.PathEscape(id.String()))
	if err := c.do(ctx, http.MethodGet, path, nil, &details); err != nil {
		return nil, fmt.Errorf("failed to get quiz %s: %w", id, err)
	}
	return &details, nil
}

// CreateQuiz creates a quiz and returns its id
func (c *Client) CreateQuiz(ctx context.Context, in models.QuizInput) (models.ID, error) {
	var created struct {
		QuizID models.ID `json:"quizId"`
	}
	if err := c.do(ctx, http.MethodPost, "/quizzes", in, &created); err != nil {
		return "", fmt.Errorf("failed to create quiz: %w", err)
	}
	if created.QuizID == "" {
		return "", fmt.Errorf("failed to create quiz: response did not include a quizId")
	}
	return created.QuizID, nil
}

// UpdateQuiz updates quiz metadata
func (c *Client) UpdateQuiz(ctx context.Context, id models.ID, in models.QuizUpdate) error {
	if err := c.do(ctx, http.MethodPut, "/quizzes/admin/"+url.PathEscape(id.String()), in, nil); err != nil {
		return fmt.Errorf("failed to update quiz %s: %w", id, err)
	}
	return nil
}

// AddQuestion appends a question to a quiz
func (c *Client) AddQuestion(ctx context.Context, quizID models.ID, q models.Question) error {
	path := fmt.Sprintf("/quizzes/%s/question", url.PathEscape(quizID.String()))
	if err := c.do(ctx, http.MethodPost, path, q, nil); err != nil {
		return fmt.Errorf("failed to add question: %w", err)
	}
	return nil
}

// UpdateQuestion replaces an existing question
func (c *Client) UpdateQuestion(ctx context.Context, q models.Question) error {
	path := "/quizzes/admin/questions/" + url.PathEscape(q.ID.String())
	if err := c.do(ctx, http.MethodPut, path, q, nil); err != nil {
		return fmt.Errorf("failed to update question %s: %w", q.ID, err)
	}
	return nil
}

// DeleteQuestion removes a question
func (c *Client) DeleteQuestion(ctx context.Context, id models.ID) error {
	if err := c.do(ctx, http.MethodDelete, "/quizzes/admin/questions/"+url.PathEscape(id.String()), nil, nil); err != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, err)
	}
	return nil
}

// ListResults returns every quiz submission
func (c *Client) ListResults(ctx context.Context) ([]models.Result, error) {
	var results []models.Result
	if err := c.do(ctx, http.MethodGet, "/admin/results", nil, &results); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}
