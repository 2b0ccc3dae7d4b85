// Package yandextracker implements service.Tracker against the Yandex
// Tracker REST API.
package yandextracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ytbatch/internal/service"
)

const (
	// APITimeout is the timeout for a single API call.
	APITimeout = 30 * time.Second

	issuesPath = "/v2/issues"
)

var (
	createOK = []int{http.StatusOK, http.StatusCreated}
	updateOK = []int{http.StatusOK, http.StatusCreated}
	deleteOK = []int{http.StatusOK, http.StatusCreated, http.StatusNoContent}
)

// Client implements service.Tracker. It carries the bearer token and
// organization id and holds no other state between calls.
type Client struct {
	baseURL    string
	token      string
	orgID      string
	httpClient *http.Client
}

// New creates a tracker client for the API rooted at baseURL.
func New(baseURL, token, orgID string) *Client {
	return NewWithHTTPClient(baseURL, token, orgID, &http.Client{})
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL, token, orgID string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		orgID:      orgID,
		httpClient: httpClient,
	}
}

// CreateIssue creates an issue. Success is 200 or 201.
func (c *Client) CreateIssue(ctx context.Context, req service.CreateIssueRequest) (service.Issue, error) {
	var issue service.Issue
	if err := c.do(ctx, http.MethodPost, issuesPath, req, createOK, &issue); err != nil {
		return service.Issue{}, err
	}
	return issue, nil
}

// UpdateIssue patches an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, issueID string, patch service.IssuePatch) (service.Issue, error) {
	var issue service.Issue
	if err := c.do(ctx, http.MethodPatch, issuePath(issueID), patch, updateOK, &issue); err != nil {
		return service.Issue{}, err
	}
	return issue, nil
}

// DeleteIssue deletes an issue. The response body is discarded.
func (c *Client) DeleteIssue(ctx context.Context, issueID string) error {
	return c.do(ctx, http.MethodDelete, issuePath(issueID), nil, deleteOK, nil)
}

func issuePath(issueID string) string {
	return issuesPath + "/" + url.PathEscape(issueID)
}

// do sends one request and classifies the response.
func (c *Client) do(ctx context.Context, method, path string, body any, ok []int, result any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("X-Org-ID", c.orgID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	// Read the full body first so the error payload is available on failure.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("tracker request")

	return classify(method, path, resp.StatusCode, respBody, ok, result)
}

// classify branches on status and decodes body into result on success or
// into an ErrorResponse otherwise. A decode failure on either branch is a
// ParseError.
func classify(method, path string, status int, body []byte, ok []int, result any) error {
	if slices.Contains(ok, status) {
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(body, result); err != nil {
			return &ParseError{Method: method, Path: path, StatusCode: status, Body: string(body), Err: err}
		}
		return nil
	}

	var payload service.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return &ParseError{Method: method, Path: path, StatusCode: status, Body: string(body), Err: err}
	}
	return &APIError{Method: method, Path: path, StatusCode: status, Response: payload}
}
