// Package processor applies a task batch against the tracker, one remote
// call at a time, checkpointing the batch after every successful call.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ytbatch/internal/batch"
	"ytbatch/internal/service"
)

// Checkpointer persists the remaining batch.
type Checkpointer interface {
	Save(b *batch.TaskBatch) error
}

// Kind names the mutation an Applied entry describes.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Applied describes one mutation the tracker accepted.
type Applied struct {
	Kind     Kind
	IssueKey string
	Queue    string
	Summary  string
	Parent   string
}

// Recorder is told about every applied mutation after its checkpoint.
type Recorder interface {
	Record(ctx context.Context, a Applied) error
}

// CheckpointError means a remote mutation succeeded but the remaining
// batch could not be persisted. The file on disk still lists the applied
// mutation, so processing must stop.
type CheckpointError struct {
	After Applied
	Err   error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint after %s %s failed: %v", e.After.Kind, e.After.IssueKey, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }

// RemoteError wraps the tracker failure that halted a batch.
type RemoteError struct {
	Kind   Kind
	Target string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", verb(e.Kind), e.Target, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func verb(k Kind) string {
	switch k {
	case KindCreated:
		return "creating"
	case KindUpdated:
		return "updating"
	default:
		return "deleting"
	}
}

// Summary counts the mutations applied by one Run.
type Summary struct {
	Created int
	Updated int
	Deleted int
}

// Total returns the number of applied mutations.
func (s Summary) Total() int {
	return s.Created + s.Updated + s.Deleted
}

// Processor drains a batch: creations first (subtasks are queued once their
// parent has a key), then updates, then deletions.
type Processor struct {
	Tracker      service.Tracker
	Checkpointer Checkpointer

	// Delay is the pause after every remote call.
	Delay time.Duration

	// Recorder is optional.
	Recorder Recorder
}

// Run applies b in place. On error, b and the last checkpoint hold exactly
// the mutations that were not applied; rerunning with the checkpoint
// resumes where this run stopped. The returned Summary is valid on error.
func (p *Processor) Run(ctx context.Context, b *batch.TaskBatch) (Summary, error) {
	var sum Summary

	for {
		spec, ok := b.Created.Front()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		issue, err := p.Tracker.CreateIssue(ctx, spec.Request())
		if err != nil {
			return sum, &RemoteError{Kind: KindCreated, Target: spec.Key().String(), Err: err}
		}
		log.Debug().Str("key", issue.Key).Str("queue", spec.Queue).Str("summary", spec.Summary).Msg("created")

		b.Created.Remove(spec.Key())
		for _, child := range spec.ChildrenOf(issue.Key) {
			if !b.Created.Add(child) {
				log.Warn().Str("task", child.Key().String()).Msg("subtask already pending, skipping duplicate")
			}
		}

		applied := Applied{Kind: KindCreated, IssueKey: issue.Key, Queue: spec.Queue, Summary: spec.Summary, Parent: spec.Parent}
		if err := p.commit(ctx, b, applied); err != nil {
			return sum, err
		}
		sum.Created++
		if err := p.pause(ctx); err != nil {
			return sum, err
		}
	}

	for {
		upd, ok := b.Updated.Front()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		issue, err := p.Tracker.UpdateIssue(ctx, upd.IssueID, upd.IssuePatch)
		if err != nil {
			return sum, &RemoteError{Kind: KindUpdated, Target: upd.IssueID, Err: err}
		}
		log.Debug().Str("key", upd.IssueID).Msg("updated")

		b.Updated.Remove(upd)

		applied := Applied{Kind: KindUpdated, IssueKey: upd.IssueID, Summary: issue.Summary}
		if err := p.commit(ctx, b, applied); err != nil {
			return sum, err
		}
		sum.Updated++
		if err := p.pause(ctx); err != nil {
			return sum, err
		}
	}

	for {
		id, ok := b.Deleted.Front()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		if err := p.Tracker.DeleteIssue(ctx, id); err != nil {
			return sum, &RemoteError{Kind: KindDeleted, Target: id, Err: err}
		}
		log.Debug().Str("key", id).Msg("deleted")

		b.Deleted.Remove(id)

		if err := p.commit(ctx, b, Applied{Kind: KindDeleted, IssueKey: id}); err != nil {
			return sum, err
		}
		sum.Deleted++
		if err := p.pause(ctx); err != nil {
			return sum, err
		}
	}

	return sum, nil
}

// commit checkpoints the batch and then records the mutation.
func (p *Processor) commit(ctx context.Context, b *batch.TaskBatch, a Applied) error {
	if err := p.Checkpointer.Save(b); err != nil {
		return &CheckpointError{After: a, Err: err}
	}
	if p.Recorder != nil {
		if err := p.Recorder.Record(ctx, a); err != nil {
			log.Warn().Err(err).Str("key", a.IssueKey).Msg("journal write failed")
		}
	}
	return nil
}

// pause waits Delay or until ctx is done.
func (p *Processor) pause(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
