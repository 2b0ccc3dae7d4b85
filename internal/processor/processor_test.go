package processor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytbatch/internal/batch"
	"ytbatch/internal/processor"
	"ytbatch/internal/service"
	"ytbatch/internal/testutil"
)

type recorder struct {
	entries []processor.Applied
	err     error
}

func (r *recorder) Record(_ context.Context, a processor.Applied) error {
	r.entries = append(r.entries, a)
	return r.err
}

func parentChildBatch() *batch.TaskBatch {
	return &batch.TaskBatch{Created: batch.NewCreatedSet(batch.CreatedTaskSpec{
		Queue:    "Q",
		Summary:  "Parent",
		Subtasks: []batch.CreatedTaskSpec{{Queue: "Q", Summary: "Child"}},
	})}
}

func TestRun_ParentThenChild(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	checkpoints := &testutil.Checkpoints{}
	b := parentChildBatch()

	p := &processor.Processor{Tracker: tracker, Checkpointer: checkpoints}
	sum, err := p.Run(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, processor.Summary{Created: 2}, sum)
	assert.Zero(t, b.Created.Len())

	require.Len(t, tracker.Creates, 2)
	assert.Equal(t, "Parent", tracker.Creates[0].Summary)
	assert.Empty(t, tracker.Creates[0].Parent)
	assert.Equal(t, "Child", tracker.Creates[1].Summary)
	assert.Equal(t, "Q-1", tracker.Creates[1].Parent)

	require.Equal(t, 2, checkpoints.Count())
	first := checkpoints.Saved[0].Created.Items()
	require.Len(t, first, 1)
	assert.Equal(t, "Child", first[0].Summary)
	assert.Equal(t, "Q-1", first[0].Parent)
	assert.True(t, checkpoints.Saved[1].IsEmpty())

	child, ok := tracker.Issue("Q-2")
	require.True(t, ok)
	assert.Equal(t, "Child", child.Summary)
}

func TestRun_NestedSubtasksAreBreadthFirst(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	b := &batch.TaskBatch{Created: batch.NewCreatedSet(
		batch.CreatedTaskSpec{
			Queue:   "Q",
			Summary: "A",
			Subtasks: []batch.CreatedTaskSpec{
				{Summary: "A1", Subtasks: []batch.CreatedTaskSpec{{Summary: "A1a"}}},
			},
		},
		batch.CreatedTaskSpec{Queue: "R", Summary: "B"},
	)}

	p := &processor.Processor{Tracker: tracker, Checkpointer: &testutil.Checkpoints{}}
	_, err := p.Run(context.Background(), b)
	require.NoError(t, err)

	var order []string
	for _, req := range tracker.Creates {
		order = append(order, req.Queue+":"+req.Summary+"<"+req.Parent)
	}
	assert.Equal(t, []string{"Q:A<", "R:B<", "Q:A1<Q-1", "Q:A1a<Q-2"}, order)
}

func TestRun_CreateFailureKeepsCheckpoint(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	boom := errors.New("service unavailable")
	tracker.CreateErrs[2] = boom
	checkpoints := &testutil.Checkpoints{}
	b := &batch.TaskBatch{Created: batch.NewCreatedSet(
		batch.CreatedTaskSpec{Queue: "Q", Summary: "First", Subtasks: []batch.CreatedTaskSpec{{Summary: "Sub"}}},
		batch.CreatedTaskSpec{Queue: "Q", Summary: "Second"},
	)}

	p := &processor.Processor{Tracker: tracker, Checkpointer: checkpoints}
	sum, err := p.Run(context.Background(), b)

	require.ErrorIs(t, err, boom)
	var remoteErr *processor.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, processor.KindCreated, remoteErr.Kind)
	assert.Equal(t, "Q/Second", remoteErr.Target)
	assert.Equal(t, 1, sum.Created)

	require.Equal(t, 1, checkpoints.Count())
	var pending []string
	for _, spec := range checkpoints.Last().Created.Items() {
		pending = append(pending, spec.Summary)
	}
	assert.Equal(t, []string{"Second", "Sub"}, pending)
	assert.Equal(t, pending[0], b.Created.Items()[0].Summary, "in-memory batch matches the checkpoint")
}

func TestRun_UpdatesThenDeletes(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	tracker.AddIssue("Q-10", "old")
	tracker.AddIssue("Q-11", "gone")
	checkpoints := &testutil.Checkpoints{}
	rec := &recorder{}
	b := &batch.TaskBatch{
		Created: batch.NewCreatedSet(batch.CreatedTaskSpec{Queue: "Q", Summary: "new"}),
		Updated: batch.NewUpdatedSet(batch.UpdateSpec{IssueID: "Q-10", IssuePatch: service.IssuePatch{Summary: "renamed"}}),
		Deleted: batch.NewDeletedSet("Q-11"),
	}

	p := &processor.Processor{Tracker: tracker, Checkpointer: checkpoints, Recorder: rec}
	sum, err := p.Run(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, processor.Summary{Created: 1, Updated: 1, Deleted: 1}, sum)
	assert.Equal(t, 3, sum.Total())
	assert.Equal(t, 3, checkpoints.Count())
	assert.Equal(t, 1, checkpoints.Saved[1].Deleted.Len(), "delete still pending after the update")
	assert.True(t, b.IsEmpty())

	updated, _ := tracker.Issue("Q-10")
	assert.Equal(t, "renamed", updated.Summary)
	_, ok := tracker.Issue("Q-11")
	assert.False(t, ok)

	require.Len(t, rec.entries, 3)
	assert.Equal(t, processor.KindCreated, rec.entries[0].Kind)
	assert.Equal(t, "Q-1", rec.entries[0].IssueKey)
	assert.Equal(t, processor.Applied{Kind: processor.KindUpdated, IssueKey: "Q-10", Summary: "renamed"}, rec.entries[1])
	assert.Equal(t, processor.Applied{Kind: processor.KindDeleted, IssueKey: "Q-11"}, rec.entries[2])
}

func TestRun_UpdateFailureHaltsBeforeDeletes(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	tracker.AddIssue("Q-1", "x")
	tracker.UpdateErrs["Q-1"] = errors.New("conflict")
	b := &batch.TaskBatch{
		Updated: batch.NewUpdatedSet(batch.UpdateSpec{IssueID: "Q-1", IssuePatch: service.IssuePatch{Priority: "minor"}}),
		Deleted: batch.NewDeletedSet("Q-1"),
	}

	p := &processor.Processor{Tracker: tracker, Checkpointer: &testutil.Checkpoints{}}
	_, err := p.Run(context.Background(), b)

	var remoteErr *processor.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, processor.KindUpdated, remoteErr.Kind)
	assert.Empty(t, tracker.Deletes)
	assert.Equal(t, 1, b.Updated.Len())
	assert.Equal(t, 1, b.Deleted.Len())
}

func TestRun_CheckpointFailureIsFatal(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	diskErr := errors.New("read-only file system")
	checkpoints := &testutil.Checkpoints{FailAt: 1, Err: diskErr}

	p := &processor.Processor{Tracker: tracker, Checkpointer: checkpoints}
	sum, err := p.Run(context.Background(), parentChildBatch())

	var cpErr *processor.CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.ErrorIs(t, err, diskErr)
	assert.Equal(t, "Q-1", cpErr.After.IssueKey)
	assert.Len(t, tracker.Creates, 1, "no further remote calls")
	assert.Zero(t, sum.Created)
}

func TestRun_JournalFailureIsNotFatal(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	rec := &recorder{err: errors.New("database is locked")}

	p := &processor.Processor{Tracker: tracker, Checkpointer: &testutil.Checkpoints{}, Recorder: rec}
	sum, err := p.Run(context.Background(), parentChildBatch())

	require.NoError(t, err)
	assert.Equal(t, 2, sum.Created)
	assert.Len(t, rec.entries, 2)
}

func TestRun_CancelDuringDelay(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	checkpoints := &testutil.Checkpoints{}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	p := &processor.Processor{Tracker: tracker, Checkpointer: checkpoints, Delay: time.Hour}
	start := time.Now()
	sum, err := p.Run(ctx, parentChildBatch())

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, 1, checkpoints.Count(), "halted after the last checkpoint")
}

func TestRun_Delay(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	delay := 20 * time.Millisecond

	p := &processor.Processor{Tracker: tracker, Checkpointer: &testutil.Checkpoints{}, Delay: delay}
	start := time.Now()
	_, err := p.Run(context.Background(), parentChildBatch())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestRun_EmptyBatch(t *testing.T) {
	tracker := testutil.NewFakeTracker()
	checkpoints := &testutil.Checkpoints{}

	p := &processor.Processor{Tracker: tracker, Checkpointer: checkpoints}
	sum, err := p.Run(context.Background(), &batch.TaskBatch{})

	require.NoError(t, err)
	assert.Zero(t, sum.Total())
	assert.Zero(t, checkpoints.Count())
}
