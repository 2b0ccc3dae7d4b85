package yandextracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytbatch/internal/backend/yandextracker"
	"ytbatch/internal/service"
)

type recorded struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newServer(t *testing.T, status int, body string, got *recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if got != nil {
			*got = recorded{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: data}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const issueBody = `{"self":"https://api.tracker.yandex.net/v2/issues/Q-1","id":"abc","key":"Q-1","version":1,"summary":"Parent","status":{"id":"1","key":"open","display":"Open"}}`

func TestCreateIssue_Success(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		var got recorded
		srv := newServer(t, status, issueBody, &got)
		client := yandextracker.New(srv.URL, "tok", "org-1")

		issue, err := client.CreateIssue(context.Background(), service.CreateIssueRequest{
			Queue:   "Q",
			Summary: "Parent",
			Sprint:  []string{"s1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Q-1", issue.Key)
		assert.Equal(t, "Open", issue.Status.Display)

		assert.Equal(t, http.MethodPost, got.method)
		assert.Equal(t, "/v2/issues", got.path)
		assert.Equal(t, "OAuth tok", got.header.Get("Authorization"))
		assert.Equal(t, "org-1", got.header.Get("X-Org-ID"))
		assert.Equal(t, "application/json", got.header.Get("Content-Type"))

		var sent map[string]any
		require.NoError(t, json.Unmarshal(got.body, &sent))
		assert.Equal(t, "Q", sent["queue"])
		assert.Equal(t, "Parent", sent["summary"])
		assert.NotContains(t, sent, "parent")
	}
}

func TestCreateIssue_APIError(t *testing.T) {
	srv := newServer(t, http.StatusBadRequest, `{"errorMessages":["Queue not found"],"errors":{"queue":"unknown"},"statusCode":400}`, nil)
	client := yandextracker.New(srv.URL, "tok", "org")

	_, err := client.CreateIssue(context.Background(), service.CreateIssueRequest{Queue: "X", Summary: "s"})

	var apiErr *yandextracker.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"Queue not found"}, apiErr.Response.ErrorMessages)
	assert.False(t, apiErr.Unauthorized())
	assert.Contains(t, err.Error(), "Queue not found; queue: unknown")
}

func TestCreateIssue_UnparsableSuccess(t *testing.T) {
	srv := newServer(t, http.StatusCreated, `<html>oops</html>`, nil)
	client := yandextracker.New(srv.URL, "tok", "org")

	_, err := client.CreateIssue(context.Background(), service.CreateIssueRequest{Queue: "Q", Summary: "s"})

	var parseErr *yandextracker.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, http.StatusCreated, parseErr.StatusCode)
	assert.Equal(t, "<html>oops</html>", parseErr.Body)
}

func TestCreateIssue_UnparsableError(t *testing.T) {
	srv := newServer(t, http.StatusBadGateway, `bad gateway`, nil)
	client := yandextracker.New(srv.URL, "tok", "org")

	_, err := client.CreateIssue(context.Background(), service.CreateIssueRequest{Queue: "Q", Summary: "s"})

	var parseErr *yandextracker.ParseError
	require.ErrorAs(t, err, &parseErr)
	var apiErr *yandextracker.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestCreateIssue_Accepted202IsRejected(t *testing.T) {
	srv := newServer(t, http.StatusAccepted, `{"errorMessages":[],"statusCode":202}`, nil)
	client := yandextracker.New(srv.URL, "tok", "org")

	_, err := client.CreateIssue(context.Background(), service.CreateIssueRequest{Queue: "Q", Summary: "s"})

	var apiErr *yandextracker.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusAccepted, apiErr.StatusCode)
}

func TestCreateIssue_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := yandextracker.New(url, "tok", "org")
	_, err := client.CreateIssue(context.Background(), service.CreateIssueRequest{Queue: "Q", Summary: "s"})

	var transportErr *yandextracker.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.MethodPost, transportErr.Method)
}

func TestUpdateIssue(t *testing.T) {
	var got recorded
	srv := newServer(t, http.StatusOK, issueBody, &got)
	client := yandextracker.New(srv.URL+"/", "tok", "org")

	issue, err := client.UpdateIssue(context.Background(), "Q-1", service.IssuePatch{
		Summary:   "Renamed",
		Followers: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Q-1", issue.Key)

	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/v2/issues/Q-1", got.path)
	assert.JSONEq(t, `{"summary":"Renamed","followers":["alice"]}`, string(got.body))
}

func TestUpdateIssue_Unauthorized(t *testing.T) {
	srv := newServer(t, http.StatusUnauthorized, `{"errorMessages":["Not authorized"],"statusCode":401}`, nil)
	client := yandextracker.New(srv.URL, "expired", "org")

	_, err := client.UpdateIssue(context.Background(), "Q-1", service.IssuePatch{Summary: "x"})

	var apiErr *yandextracker.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Unauthorized())
}

func TestDeleteIssue(t *testing.T) {
	var got recorded
	srv := newServer(t, http.StatusNoContent, "", &got)
	client := yandextracker.New(srv.URL, "tok", "org")

	require.NoError(t, client.DeleteIssue(context.Background(), "Q-7"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/v2/issues/Q-7", got.path)
	assert.Empty(t, got.body)
	assert.Empty(t, got.header.Get("Content-Type"))
}

func TestDeleteIssue_NotFound(t *testing.T) {
	srv := newServer(t, http.StatusNotFound, `{"errorMessages":["Issue does not exist"],"statusCode":404}`, nil)
	client := yandextracker.New(srv.URL, "tok", "org")

	err := client.DeleteIssue(context.Background(), "Q-404")

	var apiErr *yandextracker.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
