// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ytbatch/internal/service"
)

// ErrNotFound is returned when an issue does not exist.
var ErrNotFound = errors.New("not found")

// UpdateCall records one UpdateIssue call.
type UpdateCall struct {
	IssueID string
	Patch   service.IssuePatch
}

// FakeTracker is an in-memory implementation of service.Tracker for testing.
// Created issues get keys <queue>-<n> numbered per queue from 1.
type FakeTracker struct {
	mu       sync.Mutex
	issues   map[string]service.Issue // key -> issue
	counters map[string]int           // queue -> last number

	// Recorded calls, in order.
	Creates []service.CreateIssueRequest
	Updates []UpdateCall
	Deletes []string

	// Error injection for testing
	CreateErrs map[int]error    // 1-based create call -> error
	UpdateErrs map[string]error // issue id -> error
	DeleteErrs map[string]error // issue id -> error
}

// NewFakeTracker creates an empty FakeTracker.
func NewFakeTracker() *FakeTracker {
	return &FakeTracker{
		issues:     make(map[string]service.Issue),
		counters:   make(map[string]int),
		CreateErrs: make(map[int]error),
		UpdateErrs: make(map[string]error),
		DeleteErrs: make(map[string]error),
	}
}

// AddIssue adds an existing issue to the fake tracker.
func (f *FakeTracker) AddIssue(key, summary string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues[key] = service.Issue{ID: key, Key: key, Summary: summary, Version: 1}
}

// Issue returns the issue stored under key.
func (f *FakeTracker) Issue(key string) (service.Issue, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[key]
	return issue, ok
}

// CreateIssue implements service.Tracker.
func (f *FakeTracker) CreateIssue(ctx context.Context, req service.CreateIssueRequest) (service.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Creates = append(f.Creates, req)
	if err := f.CreateErrs[len(f.Creates)]; err != nil {
		return service.Issue{}, err
	}
	if req.Parent != "" {
		if _, ok := f.issues[req.Parent]; !ok {
			return service.Issue{}, fmt.Errorf("parent %s: %w", req.Parent, ErrNotFound)
		}
	}

	f.counters[req.Queue]++
	key := fmt.Sprintf("%s-%d", req.Queue, f.counters[req.Queue])
	issue := service.Issue{
		ID:          key,
		Key:         key,
		Version:     1,
		Summary:     req.Summary,
		Description: req.Description,
	}
	f.issues[key] = issue
	return issue, nil
}

// UpdateIssue implements service.Tracker.
func (f *FakeTracker) UpdateIssue(ctx context.Context, issueID string, patch service.IssuePatch) (service.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Updates = append(f.Updates, UpdateCall{IssueID: issueID, Patch: patch})
	if err := f.UpdateErrs[issueID]; err != nil {
		return service.Issue{}, err
	}
	issue, ok := f.issues[issueID]
	if !ok {
		return service.Issue{}, ErrNotFound
	}
	if patch.Summary != "" {
		issue.Summary = patch.Summary
	}
	if patch.Description != "" {
		issue.Description = patch.Description
	}
	issue.Version++
	f.issues[issueID] = issue
	return issue, nil
}

// DeleteIssue implements service.Tracker.
func (f *FakeTracker) DeleteIssue(ctx context.Context, issueID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Deletes = append(f.Deletes, issueID)
	if err := f.DeleteErrs[issueID]; err != nil {
		return err
	}
	if _, ok := f.issues[issueID]; !ok {
		return ErrNotFound
	}
	delete(f.issues, issueID)
	return nil
}
