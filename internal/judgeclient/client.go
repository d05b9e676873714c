// Package judgeclient talks to the online judge HTTP API: authentication,
// solution submission and test data pack discovery.
package judgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"cpenv/internal/testdata"
	appErr "cpenv/pkg/errors"
)

// Config holds the judge API client settings.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	TokenPath string        `yaml:"token_path"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Client is an HTTP client for the judge API. All methods require a valid
// session token except Login.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenStore
}

// Submission is the judge's view of one submitted solution.
type Submission struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Verdict   string `json:"verdict"`
	TimeMs    int64  `json:"time_ms"`
	MemoryKB  int64  `json:"memory_kb"`
	CreatedAt string `json:"created_at"`
}

// New creates a judge API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, appErr.ValidationError("base_url", "required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  NewTokenStore(cfg.TokenPath),
	}, nil
}

// Login authenticates and persists the returned session token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.postJSON(ctx, "/api/auth/login", "", body, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return appErr.New(appErr.JudgeRequestFailed).WithMessage("login response carried no token")
	}
	return c.tokens.Save(resp.Token)
}

// Logout clears the stored session token.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

// Submit uploads a solution file and returns the created submission.
func (c *Client) Submit(ctx context.Context, contest, problem, language, sourcePath string) (*Submission, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("read solution file failed: %w", err)
	}
	body := map[string]string{
		"contest":  contest,
		"problem":  problem,
		"language": language,
		"source":   string(source),
	}
	var sub Submission
	path := fmt.Sprintf("/api/contests/%s/problems/%s/submissions",
		url.PathEscape(contest), url.PathEscape(problem))
	if err := c.postJSON(ctx, path, token, body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SubmissionStatus fetches the current state of a submission.
func (c *Client) SubmissionStatus(ctx context.Context, id int64) (*Submission, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return nil, err
	}
	var sub Submission
	if err := c.getJSON(ctx, fmt.Sprintf("/api/submissions/%d", id), token, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ProblemPack resolves the test data pack location for a problem, for
// download through the test data cache.
func (c *Client) ProblemPack(ctx context.Context, contest, problem string) (testdata.PackMeta, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return testdata.PackMeta{}, err
	}
	var resp struct {
		PackKey  string `json:"pack_key"`
		PackHash string `json:"pack_hash"`
	}
	path := fmt.Sprintf("/api/contests/%s/problems/%s/testdata",
		url.PathEscape(contest), url.PathEscape(problem))
	if err := c.getJSON(ctx, path, token, &resp); err != nil {
		return testdata.PackMeta{}, err
	}
	return testdata.PackMeta{
		Contest:  contest,
		Problem:  problem,
		PackKey:  resp.PackKey,
		PackHash: resp.PackHash,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) getJSON(ctx context.Context, path, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out interface{}) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.JudgeRequestFailed, "judge request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return appErr.New(appErr.TokenExpired).WithMessage("judge rejected the session token")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return appErr.Newf(appErr.JudgeRequestFailed,
			"judge returned status %d: %s", resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErr.Wrapf(err, appErr.JudgeRequestFailed, "decode judge response failed")
	}
	return nil
}
