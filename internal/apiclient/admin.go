package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/khutwa-dev/khutwa/internal/models"
)

// ListStudents returns the enrolled students
func (c *Client) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := c.do(ctx, http.MethodGet, "/students", nil, &students); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// ListUsers returns every platform account
func (c *Client) ListUsers(ctx context.Context) ([]models.Account, error) {
	var users []models.Account
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &users); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUser creates an account and returns its id
func (c *Client) CreateUser(ctx context.Context, in models.NewAccount) (models.ID, error) {
	var created struct {
		UserID models.ID `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/users", in, &created); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return created.UserID, nil
}

// DeleteUser deletes an account
func (c *Client) DeleteUser(ctx context.Context, id models.ID) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id.String()), nil, nil); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

// ToggleUserStatus flips an account between active and suspended and
// returns the new state
func (c *Client) ToggleUserStatus(ctx context.Context, id models.ID) (bool, error) {
	var status struct {
		IsActive bool `json:"is_active"`
	}
	path := fmt.Sprintf("/admin/users/%s/status", url.PathEscape(id.String()))
	if err := c.do(ctx, http.MethodPatch, path, nil, &status); err != nil {
		return false, fmt.Errorf("failed to toggle user %s: %w", id, err)
	}
	return status.IsActive, nil
}

// ChangeUserRole assigns a new role to an account
func (c *Client) ChangeUserRole(ctx context.Context, id models.ID, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	path := fmt.Sprintf("/admin/users/%s/role", url.PathEscape(id.String()))
	if err := c.do(ctx, http.MethodPut, path, map[string]models.Role{"role": role}, nil); err != nil {
		return fmt.Errorf("failed to change role of user %s: %w", id, err)
	}
	return nil
}

// ResetUserDevice releases the device an account is bound to
func (c *Client) ResetUserDevice(ctx context.Context, id models.ID) error {
	body := map[string]models.ID{"userId": id}
	if err := c.do(ctx, http.MethodPut, "/admin/users/reset-device", body, nil); err != nil {
		return fmt.Errorf("failed to reset device of user %s: %w", id, err)
	}
	return nil
}

// GrantCourse enrolls a user in a course without payment
func (c *Client) GrantCourse(ctx context.Context, userID, courseID models.ID) error {
	body := map[string]models.ID{"user_id": userID, "course_id": courseID}
	if err := c.do(ctx, http.MethodPost, "/admin/payments/manual", body, nil); err != nil {
		return fmt.Errorf("failed to grant course %s to user %s: %w", courseID, userID, err)
	}
	return nil
}

// PendingPayments returns payments waiting for approval
func (c *Client) PendingPayments(ctx context.Context) ([]models.Payment, error) {
	var payments []models.Payment
	if err := c.do(ctx, http.MethodGet, "/admin/payments/pending", nil, &payments); err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	return payments, nil
}

// SetPaymentStatus approves or rejects a pending payment
func (c *Client) SetPaymentStatus(ctx context.Context, id models.ID, status models.PaymentStatus) error {
	if status != models.PaymentCompleted && status != models.PaymentFailed {
		return fmt.Errorf("unknown payment status %q, must be one of: completed, failed", status)
	}
	path := fmt.Sprintf("/admin/payments/%s/status", url.PathEscape(id.String()))
	body := map[string]models.PaymentStatus{"status": status}
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to set payment %s to %s: %w", id, status, err)
	}
	return nil
}

// ListAnnouncements returns the published announcements
func (c *Client) ListAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	var announcements []models.Announcement
	if err := c.do(ctx, http.MethodGet, "/general/announcements", nil, &announcements); err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return announcements, nil
}

// CreateAnnouncement publishes a text announcement. The endpoint only
// accepts multipart forms.
func (c *Client) CreateAnnouncement(ctx context.Context, content string) error {
	if content == "" {
		return fmt.Errorf("announcement content is required")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("content", content); err != nil {
		return fmt.Errorf("failed to build announcement form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("failed to build announcement form: %w", err)
	}

	err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        "/admin/announcements",
		body:        &buf,
		contentType: form.FormDataContentType(),
	})
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

// DeleteAnnouncement removes an announcement
func (c *Client) DeleteAnnouncement(ctx context.Context, id models.ID) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/announcements/"+url.PathEscape(id.String()), nil, nil); err != nil {
		return fmt.Errorf("failed to delete announcement %s: %w", id, err)
	}
	return nil
}

// AdvancedReports returns the admin financial and performance report
func (c *Client) AdvancedReports(ctx context.Context) (*models.AdvancedReport, error) {
	var report models.AdvancedReport
	if err := c.do(ctx, http.MethodGet, "/admin/advanced-reports", nil, &report); err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	return &report, nil
}

// AdminStats returns the admin dashboard counters
func (c *Client) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", nil, &stats); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}
