package service

import (
	"sort"
	"strings"
)

// CreateIssueRequest is the body of POST /v2/issues.
type CreateIssueRequest struct {
	Queue         string   `json:"queue"`
	Summary       string   `json:"summary"`
	Parent        string   `json:"parent,omitempty"`
	Description   string   `json:"description,omitempty"`
	Sprint        []string `json:"sprint,omitempty"`
	Type          string   `json:"type,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	Followers     []string `json:"followers,omitempty"`
	Assignee      string   `json:"assignee,omitempty"`
	Author        string   `json:"author,omitempty"`
	Unique        string   `json:"unique,omitempty"`
	AttachmentIDs []string `json:"attachmentIds,omitempty"`
}

// IssuePatch is the body of PATCH /v2/issues/{id}. Empty values are unset.
type IssuePatch struct {
	Summary                  string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Parent                   string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Description              string   `json:"description,omitempty" yaml:"description,omitempty"`
	Sprint                   string   `json:"sprint,omitempty" yaml:"sprint,omitempty"`
	Type                     string   `json:"type,omitempty" yaml:"type,omitempty"`
	Priority                 string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Followers                []string `json:"followers,omitempty" yaml:"followers,omitempty"`
	AttachmentIDs            []string `json:"attachmentIds,omitempty" yaml:"attachmentIds,omitempty"`
	DescriptionAttachmentIDs []string `json:"descriptionAttachmentIds,omitempty" yaml:"descriptionAttachmentIds,omitempty"`
}

// IsEmpty reports whether no field of the patch is set.
func (p IssuePatch) IsEmpty() bool {
	return strings.TrimSpace(p.Summary) == "" &&
		strings.TrimSpace(p.Parent) == "" &&
		strings.TrimSpace(p.Description) == "" &&
		strings.TrimSpace(p.Sprint) == "" &&
		strings.TrimSpace(p.Type) == "" &&
		strings.TrimSpace(p.Priority) == "" &&
		len(p.Followers) == 0 &&
		len(p.AttachmentIDs) == 0 &&
		len(p.DescriptionAttachmentIDs) == 0
}

// Issue is the success body of create and update calls.
type Issue struct {
	Self        string `json:"self"`
	ID          string `json:"id"`
	Key         string `json:"key"`
	Version     int    `json:"version"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Status      *Ref   `json:"status,omitempty"`
	CreatedBy   *Ref   `json:"createdBy,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Ref is a reference to another tracker object (status, user, queue).
type Ref struct {
	Self    string `json:"self,omitempty"`
	ID      string `json:"id"`
	Key     string `json:"key,omitempty"`
	Display string `json:"display"`
}

// ErrorResponse is the error body returned by the tracker.
type ErrorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors,omitempty"`
	StatusCode    int               `json:"statusCode"`
}

// Message joins all error messages into one line.
func (e ErrorResponse) Message() string {
	parts := make([]string, 0, len(e.ErrorMessages)+len(e.Errors))
	parts = append(parts, e.ErrorMessages...)
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		parts = append(parts, field+": "+e.Errors[field])
	}
	return strings.Join(parts, "; ")
}
