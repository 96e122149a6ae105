package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khutwa-dev/khutwa/internal/app"
	"github.com/khutwa-dev/khutwa/internal/config"
	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/nav"
	"github.com/khutwa-dev/khutwa/internal/session"
	"github.com/khutwa-dev/khutwa/internal/storage"
)

type apiCall struct {
	Method string
	Path   string
	Body   map[string]any
}

// mockPlatform is a scripted platform API that records every call
type mockPlatform struct {
	mu     sync.Mutex
	calls  []apiCall
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{routes: make(map[string]func(w http.ResponseWriter, r *http.Request))}
}

func (m *mockPlatform) on(method, path string, status int, body string) {
	m.routes[method+" "+path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (m *mockPlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := apiCall{Method: r.Method, Path: r.URL.Path}
	data, _ := io.ReadAll(r.Body)
	if len(data) > 0 {
		json.Unmarshal(data, &call.Body)
	}
	// route handlers may decode the body too
	r.Body = io.NopCloser(bytes.NewReader(data))
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if h, ok := m.routes[r.Method+" "+r.URL.Path]; ok {
		h(w, r)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, `{"message": "not found"}`)
}

func (m *mockPlatform) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Method + " " + c.Path
	}
	return out
}

func newTestEnv(t *testing.T, platform *mockPlatform) (*Env, *storage.Memory) {
	t.Helper()
	t.Setenv("KHUTWA_EMAIL", "")
	t.Setenv("KHUTWA_PASSWORD", "")

	server := httptest.NewServer(platform)
	t.Cleanup(server.Close)

	backend := storage.NewMemory()
	cfg := &config.Config{API: config.APIConfig{URL: server.URL, Timeout: 5 * time.Second}}
	env := NewEnv(app.New(cfg, backend, guard.DefaultTable(), nav.DefaultMenu(), zerolog.Nop()))
	env.ReadPassword = func() (string, error) {
		return "", errors.New("no terminal")
	}
	env.Select = func(string, []string) (int, error) {
		return -1, errors.New("unexpected prompt")
	}
	return env, backend
}

func signIn(t *testing.T, env *Env, token string, role models.Role) {
	t.Helper()
	require.NoError(t, env.App.Sessions.SetSession(token, models.Identity{ID: "3", Username: "mona", Email: "mona@khutwa.io", Role: role}))
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLogin_Success(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodPost, "/auth/login", http.StatusOK,
		`{"token": "jwt-token", "user": {"id": 3, "username": "mona", "email": "mona@khutwa.io", "role": "teacher"}}`)
	env, _ := newTestEnv(t, platform)

	out, err := execute(t, NewLoginCmd(env), "--email", " mona@khutwa.io ", "--password", "secret")
	require.NoError(t, err)

	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "Role: teacher")
	assert.Contains(t, out, "My courses")
	assert.NotContains(t, out, "User management")

	snap := env.App.Sessions.Snapshot()
	assert.Equal(t, "jwt-token", snap.Token)
	assert.Equal(t, models.RoleTeacher, snap.Role())
	assert.Equal(t, guard.HomePath, env.Shell.Location())
}

func TestLogin_RejectedKeepsSessionEmpty(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodPost, "/auth/login", http.StatusUnauthorized, `{"message": "Invalid email or password"}`)
	env, _ := newTestEnv(t, platform)

	_, err := execute(t, NewLoginCmd(env), "--email", "mona@khutwa.io", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())

	_, ok := env.App.Sessions.Token()
	assert.False(t, ok)
}

func TestLogin_PasswordSources(t *testing.T) {
	platform := newMockPlatform()
	platform.routes["POST /auth/login"] = func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "from-prompt" && req["password"] != "from-env" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"token": "t", "user": {"id": 1, "username": "a", "role": "admin"}}`)
	}

	t.Run("prompt", func(t *testing.T) {
		env, _ := newTestEnv(t, platform)
		env.ReadPassword = func() (string, error) { return "from-prompt", nil }
		_, err := execute(t, NewLoginCmd(env), "--email", "a@khutwa.io")
		require.NoError(t, err)
		token, ok := env.App.Sessions.Token()
		assert.True(t, ok)
		assert.Equal(t, "t", token)
	})

	t.Run("environment", func(t *testing.T) {
		env, _ := newTestEnv(t, platform)
		t.Setenv("KHUTWA_EMAIL", "a@khutwa.io")
		t.Setenv("KHUTWA_PASSWORD", "from-env")
		_, err := execute(t, NewLoginCmd(env))
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, env.App.Sessions.Snapshot().Role())
	})

	t.Run("no terminal", func(t *testing.T) {
		env, _ := newTestEnv(t, platform)
		_, err := execute(t, NewLoginCmd(env), "--email", "a@khutwa.io")
		assert.EqualError(t, err, "no terminal")
	})

	t.Run("missing email", func(t *testing.T) {
		env, _ := newTestEnv(t, platform)
		_, err := execute(t, NewLoginCmd(env), "--password", "x")
		assert.ErrorContains(t, err, "email is required")
	})
}

func TestLogoutAndWhoami(t *testing.T) {
	env, _ := newTestEnv(t, newMockPlatform())

	_, err := execute(t, NewWhoamiCmd(env))
	assert.ErrorIs(t, err, errNotLoggedIn)

	expired := time.Now().Add(-time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "3",
		"exp": expired.Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	signIn(t, env, token, models.RoleAdmin)

	out, err := execute(t, NewWhoamiCmd(env))
	require.NoError(t, err)
	assert.Contains(t, out, "User:  mona")
	assert.Contains(t, out, "Role:  admin")
	assert.Contains(t, out, "(expired)")

	out, err = execute(t, NewLogoutCmd(env))
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.Equal(t, guard.LoginPath, env.Shell.Location())

	snap := env.App.Sessions.Snapshot()
	assert.False(t, snap.HasToken())
	_, ok := session.InspectToken(snap.Token)
	assert.False(t, ok)
}

func TestOpen_RendersTable(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/admin/users", http.StatusOK,
		`[{"id": 1, "username": "sara", "email": "sara@khutwa.io", "role": "student", "is_active": true}]`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleAdmin)

	out, err := execute(t, NewOpenCmd(env), "/admin/users")
	require.NoError(t, err)
	assert.Contains(t, out, "User management")
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "sara@khutwa.io")
	assert.Equal(t, "/admin/users", env.Shell.Location())
}

func TestOpen_GuardRedirects(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/courses/earnings", http.StatusOK,
		`{"totalSales": 100, "platformCommission": 20, "netEarnings": 80}`)
	env, _ := newTestEnv(t, platform)

	out, err := execute(t, NewOpenCmd(env), "/admin/users")
	require.NoError(t, err)
	assert.Contains(t, out, "/admin/users → /login (redirect-login)")
	assert.Contains(t, out, "Sign in")

	signIn(t, env, "tok", models.RoleTeacher)
	out, err = execute(t, NewOpenCmd(env), "/admin/users")
	require.NoError(t, err)
	assert.Contains(t, out, "/admin/users → / (redirect-home)")
	assert.Contains(t, out, "Net earnings")
	assert.Equal(t, guard.HomePath, env.Shell.Location())
}

func TestOpen_JSON(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/quizzes/admin/courses/7/quizzes", http.StatusOK,
		`{"quizzes": [{"id": 2, "title": "Midterm", "duration": 45, "is_published": 1}]}`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleTeacher)

	out, err := execute(t, NewOpenCmd(env), "/admin/course/7/quizzes", "--json")
	require.NoError(t, err)

	var parsed struct {
		Outcome struct {
			Pattern string            `json:"pattern"`
			Params  map[string]string `json:"params"`
		} `json:"outcome"`
		Screen struct {
			Rows [][]string `json:"rows"`
		} `json:"screen"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "/admin/course/:courseId/quizzes", parsed.Outcome.Pattern)
	assert.Equal(t, "7", parsed.Outcome.Params["courseId"])
	require.Len(t, parsed.Screen.Rows, 1)
	assert.Equal(t, "Midterm", parsed.Screen.Rows[0][1])
}

func TestOpen_UnauthorizedEndsSession(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/courses", http.StatusUnauthorized, `{"message": "jwt expired"}`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "stale", models.RoleTeacher)

	_, err := execute(t, NewOpenCmd(env), "/my-courses")
	require.Error(t, err)
	assert.ErrorContains(t, err, "session expired")

	_, ok := env.App.Sessions.Token()
	assert.False(t, ok)
	assert.Equal(t, guard.LoginPath, env.Shell.Location())
}

func TestMenu(t *testing.T) {
	env, _ := newTestEnv(t, newMockPlatform())

	_, err := execute(t, NewMenuCmd(env))
	assert.ErrorIs(t, err, errNotLoggedIn)

	signIn(t, env, "tok", models.RoleAdmin)
	out, err := execute(t, NewMenuCmd(env))
	require.NoError(t, err)
	assert.Contains(t, out, "Earnings & reports")
	assert.Contains(t, out, "/admin/all-content")
	assert.NotContains(t, out, "/my-courses")

	signIn(t, env, "tok", models.RoleStudent)
	_, err = execute(t, NewMenuCmd(env))
	require.NoError(t, err)
}

func TestShell_ExternalLogoutEndsShell(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/courses/earnings", http.StatusOK, `{"totalSales": 0}`)
	env, backend := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleTeacher)

	other := session.NewStore(backend.Tab(), zerolog.Nop())
	var prompts [][]string
	env.Select = func(label string, items []string) (int, error) {
		prompts = append(prompts, items)
		// someone signs out in another terminal while the menu is open
		require.NoError(t, other.ClearSession())
		return 2, nil
	}

	out, err := execute(t, NewShellCmd(env))
	require.NoError(t, err)

	require.Len(t, prompts, 1)
	assert.Equal(t, []string{"Dashboard", "Add course", "My courses", "Student results", "Log out", "Quit"}, prompts[0])
	assert.Contains(t, out, "Session changed in another console, now at /login")
	assert.Contains(t, out, errNotLoggedIn.Error())
	assert.NotContains(t, platform.paths(), "GET /courses")
}

func TestShell_NavigateThenLogout(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/courses/earnings", http.StatusOK, `{"totalSales": 0}`)
	platform.on(http.MethodGet, "/courses", http.StatusOK, `[{"id": 1, "title": "Physics"}]`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleTeacher)

	choices := []int{2, 4}
	env.Select = func(label string, items []string) (int, error) {
		c := choices[0]
		choices = choices[1:]
		return c, nil
	}

	out, err := execute(t, NewShellCmd(env))
	require.NoError(t, err)
	assert.Contains(t, out, "Physics")
	assert.Contains(t, out, "Logged out.")
	assert.Equal(t, []string{"GET /courses/earnings", "GET /courses"}, platform.paths())

	_, ok := env.App.Sessions.Token()
	assert.False(t, ok)
}

func TestCourseCreate(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodPost, "/courses", http.StatusCreated, `{"insertId": 12}`)
	platform.on(http.MethodPost, "/videos/upload", http.StatusOK, `{}`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleTeacher)

	out, err := execute(t, NewCourseCmd(env), "create",
		"--title", "Physics 101", "--price", "250",
		"--lesson", "Intro=https://videos.example.com/intro",
		"--lesson", "Live=https://meet.example.com/abc?x=1")
	require.NoError(t, err)
	assert.Contains(t, out, "Course 12 created")
	assert.Contains(t, out, "+ Live")

	assert.Equal(t, []string{"POST /courses", "POST /videos/upload", "POST /videos/upload"}, platform.paths())
	assert.Equal(t, "scientific", platform.calls[0].Body["branch"])
	assert.Equal(t, float64(3), platform.calls[0].Body["instructor_id"])
	assert.Equal(t, "https://meet.example.com/abc?x=1", platform.calls[2].Body["link_url"])
	assert.Equal(t, float64(12), platform.calls[2].Body["course_id"])
}

func TestCourseCreate_Denied(t *testing.T) {
	platform := newMockPlatform()
	env, _ := newTestEnv(t, platform)

	_, err := execute(t, NewCourseCmd(env), "create", "--title", "X", "--price", "1")
	assert.ErrorIs(t, err, errNotLoggedIn)

	signIn(t, env, "tok", models.RoleStudent)
	_, err = execute(t, NewCourseCmd(env), "create", "--title", "X", "--price", "1")
	assert.ErrorContains(t, err, "/add-course is not available")
	assert.Empty(t, platform.paths())
}

func TestCourseEdit_PartialFailure(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/courses/5", http.StatusOK,
		`{"id": 5, "title": "Chemistry", "price": 100, "branch": "literary"}`)
	platform.on(http.MethodPut, "/courses/5", http.StatusOK, `{}`)
	platform.on(http.MethodPost, "/videos/upload", http.StatusBadRequest, `{"message": "bad link"}`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleAdmin)

	_, err := execute(t, NewCourseCmd(env), "edit", "5", "--price", "120", "--lesson", "One=https://a.example.com")
	require.Error(t, err)
	assert.ErrorContains(t, err, "lesson 1 of 1")

	require.GreaterOrEqual(t, len(platform.calls), 2)
	update := platform.calls[1]
	assert.Equal(t, "PUT /courses/5", update.Method+" "+update.Path)
	assert.Equal(t, "Chemistry", update.Body["title"])
	assert.Equal(t, float64(120), update.Body["price"])
	assert.Equal(t, "literary", update.Body["branch"])
}

func TestParseLesson(t *testing.T) {
	l, err := parseLesson(" Intro = https://x.example.com/?a=b ")
	require.NoError(t, err)
	assert.Equal(t, "Intro", l.Title)
	assert.Equal(t, "https://x.example.com/?a=b", l.LinkURL)

	for _, bad := range []string{"no-separator", "=https://x.example.com", "Title="} {
		_, err := parseLesson(bad)
		assert.Error(t, err, bad)
	}
}

func writeQuestions(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestQuizCreate(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodPost, "/quizzes", http.StatusCreated, `{"quizId": 40}`)
	platform.on(http.MethodPost, "/quizzes/40/question", http.StatusOK, `{}`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleTeacher)

	file := writeQuestions(t, `questions:
  - text: What is 2 + 2?
    options: ["3", "4", "5", "22"]
    answer: b
  - text: Capital of Egypt?
    options: [Cairo, Giza, Luxor, Aswan]
    answer: A
`)

	out, err := execute(t, NewQuizCmd(env), "create", "--course", "7", "--title", "Week 1", "--questions", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Quiz 40 created (2 added, 0 updated, 0 deleted)")

	assert.Equal(t, []string{"POST /quizzes", "POST /quizzes/40/question", "POST /quizzes/40/question"}, platform.paths())
	assert.Equal(t, float64(1), platform.calls[0].Body["is_published"])
	assert.Equal(t, "B", platform.calls[1].Body["correct_answer"])
}

func TestQuizEdit(t *testing.T) {
	platform := newMockPlatform()
	platform.on(http.MethodGet, "/quizzes/admin/quizzes/40/details", http.StatusOK, `{
		"id": 40, "title": "Week 1", "duration": 30,
		"questions": [
			{"id": 1, "question_text": "Q1", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d", "correct_answer": "A"},
			{"id": 2, "question_text": "Q2", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d", "correct_answer": "B"}
		]}`)
	platform.on(http.MethodPut, "/quizzes/admin/40", http.StatusOK, `{}`)
	platform.on(http.MethodDelete, "/quizzes/admin/questions/2", http.StatusOK, `{}`)
	platform.on(http.MethodPut, "/quizzes/admin/questions/1", http.StatusOK, `{}`)
	platform.on(http.MethodPost, "/quizzes/40/question", http.StatusOK, `{}`)
	env, _ := newTestEnv(t, platform)
	signIn(t, env, "tok", models.RoleAdmin)

	file := writeQuestions(t, `questions:
  - id: "1"
    text: Q1 revised
    options: [a, b, c, d]
    answer: C
  - text: Q3
    options: [a, b, c, d]
    answer: D
`)

	out, err := execute(t, NewQuizCmd(env), "edit", "40", "--duration", "45", "--questions", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Quiz 40 updated (1 added, 1 updated, 1 deleted)")

	assert.Equal(t, []string{
		"GET /quizzes/admin/quizzes/40/details",
		"PUT /quizzes/admin/40",
		"DELETE /quizzes/admin/questions/2",
		"PUT /quizzes/admin/questions/1",
		"POST /quizzes/40/question",
	}, platform.paths())
	assert.Equal(t, "Week 1", platform.calls[1].Body["title"])
	assert.Equal(t, float64(45), platform.calls[1].Body["duration"])
}

func TestLoadQuestions_WrongOptionCount(t *testing.T) {
	file := writeQuestions(t, `questions:
  - text: Q
    options: [a, b]
    answer: A
`)
	_, err := loadQuestions(file)
	assert.ErrorContains(t, err, "exactly 4 options")
}
