// Package service defines the backend-agnostic interface for issue mutations.
package service

import "context"

// Tracker defines the remote issue operations used by the batch processor.
// Commands never import the tracker backend directly.
type Tracker interface {
	// CreateIssue creates an issue and returns it with its assigned key.
	CreateIssue(ctx context.Context, req CreateIssueRequest) (Issue, error)

	// UpdateIssue applies a partial update to an existing issue.
	UpdateIssue(ctx context.Context, issueID string, patch IssuePatch) (Issue, error)

	// DeleteIssue deletes an issue.
	DeleteIssue(ctx context.Context, issueID string) error
}
