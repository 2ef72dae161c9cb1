package api

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var tok TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentialsRequest{email, password}, &tok); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("login: empty access token")
	}
	return tok.AccessToken, nil
}

// Register creates an account. The caller logs in afterwards.
func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentialsRequest{email, password}, &u); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &u, nil
}

// Professions lists the active professions.
func (c *Client) Professions(ctx context.Context) ([]Profession, error) {
	var out []Profession
	if err := c.do(ctx, http.MethodGet, "/api/professions/", nil, &out); err != nil {
		return nil, fmt.Errorf("list professions: %w", err)
	}
	return out, nil
}

// Profession fetches one profession.
func (c *Client) Profession(ctx context.Context, id int) (*Profession, error) {
	var out Profession
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/professions/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get profession %d: %w", id, err)
	}
	return &out, nil
}

// UserProgress returns every attempt of the current user across professions.
func (c *Client) UserProgress(ctx context.Context) ([]ProgressAttempt, error) {
	var out []ProgressAttempt
	if err := c.do(ctx, http.MethodGet, "/api/users/progress", nil, &out); err != nil {
		return nil, fmt.Errorf("get user progress: %w", err)
	}
	return out, nil
}

// ProfessionProgress returns the latest attempt for a profession. The server
// creates a not_started attempt when none exists.
func (c *Client) ProfessionProgress(ctx context.Context, professionID int) (*ProgressAttempt, error) {
	var out ProgressAttempt
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/professions/%d/progress", professionID), nil, &out); err != nil {
		return nil, fmt.Errorf("get progress for profession %d: %w", professionID, err)
	}
	return &out, nil
}

// ProgressHistory lists all attempts for a profession.
func (c *Client) ProgressHistory(ctx context.Context, professionID int) (*AttemptHistory, error) {
	var out AttemptHistory
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/professions/%d/progress/history", professionID), nil, &out); err != nil {
		return nil, fmt.Errorf("get history for profession %d: %w", professionID, err)
	}
	// The server lists newest first; screens and tables read oldest first.
	slices.SortStableFunc(out.Attempts, func(a, b ProgressAttempt) int {
		return cmp.Compare(a.AttemptNumber, b.AttemptNumber)
	})
	return &out, nil
}

// Attempt fetches attempt n of a profession, including its final report.
func (c *Client) Attempt(ctx context.Context, professionID, n int) (*ProgressAttempt, error) {
	var out ProgressAttempt
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/professions/%d/progress/%d", professionID, n), nil, &out); err != nil {
		return nil, fmt.Errorf("get attempt %d for profession %d: %w", n, professionID, err)
	}
	// The attempt body does not echo its own number.
	if out.AttemptNumber == 0 {
		out.AttemptNumber = n
	}
	if out.ProfessionID == 0 {
		out.ProfessionID = professionID
	}
	return &out, nil
}

// RestartProfession starts a new attempt. The server enforces the attempt
// limit as well.
func (c *Client) RestartProfession(ctx context.Context, professionID int) (*ProgressAttempt, error) {
	var out ProgressAttempt
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/professions/%d/progress/restart", professionID), nil, &out); err != nil {
		return nil, fmt.Errorf("restart profession %d: %w", professionID, err)
	}
	return &out, nil
}

// FinalReport fetches the latest final report of a profession.
func (c *Client) FinalReport(ctx context.Context, professionID int) (*Report, error) {
	var out Report
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/profession/%d/report", professionID), nil, &out); err != nil {
		return nil, fmt.Errorf("get report for profession %d: %w", professionID, err)
	}
	return &out, nil
}

// CurrentTask fetches the current task whole (plain mode).
func (c *Client) CurrentTask(ctx context.Context, professionID int) (*Task, error) {
	var out Task
	if err := c.do(ctx, http.MethodGet, currentTaskPath(professionID), nil, &out); err != nil {
		return nil, fmt.Errorf("get current task for profession %d: %w", professionID, err)
	}
	return &out, nil
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// SubmitAnswer submits an answer and waits for the whole result (plain mode).
func (c *Client) SubmitAnswer(ctx context.Context, taskID int, answer string) (*SubmitResult, error) {
	var out SubmitResult
	if err := c.do(ctx, http.MethodPost, submitPath(taskID), answerRequest{answer}, &out); err != nil {
		return nil, fmt.Errorf("submit answer for task %d: %w", taskID, err)
	}
	return &out, nil
}

// ServerInfo fetches the server banner and version.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var out ServerInfo
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return nil, fmt.Errorf("get server info: %w", err)
	}
	return &out, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return &out, nil
}

func currentTaskPath(professionID int) string {
	return fmt.Sprintf("/api/tasks/profession/%d/current", professionID)
}

func submitPath(taskID int) string {
	return fmt.Sprintf("/api/tasks/%d/submit", taskID)
}
