package batch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytbatch/internal/batch"
	"ytbatch/internal/testutil"
)

func writeBatch(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{
  "created": [
    {"queue": "Q", "summary": "Parent", "subtasks": [{"queue": "Q", "summary": "Child"}]},
    {"queue": "Q", "summary": "Parent", "description": "duplicate"}
  ],
  "updated": [{"issue_id": "Q-1", "summary": "renamed"}]
}`)

	b, err := batch.NewStore(path, "").Load()
	require.NoError(t, err)

	require.Equal(t, 1, b.Created.Len())
	front, _ := b.Created.Front()
	assert.Empty(t, front.Description)
	assert.Len(t, front.Subtasks, 1)
	assert.Equal(t, 1, b.Updated.Len())
	assert.Zero(t, b.Deleted.Len())
}

func TestLoad_YAML(t *testing.T) {
	path := writeBatch(t, "tasks.yaml", `
created:
  - summary: No queue
    followers: [alice]
updated:
  - issue_id: Q-2
    sprint: "42"
deleted:
  - Q-3
`)

	b, err := batch.NewStore(path, "DEF").Load()
	require.NoError(t, err)

	front, _ := b.Created.Front()
	assert.Equal(t, "DEF", front.Queue)
	assert.Equal(t, []string{"alice"}, front.Followers)
	upd, _ := b.Updated.Front()
	assert.Equal(t, "42", upd.Sprint)
	assert.Equal(t, []string{"Q-3"}, b.Deleted.Items())
}

func TestLoad_NullQueueGetsDefault(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{"created": [{"queue": null, "summary": "s"}], "updated": null}`)

	b, err := batch.NewStore(path, "DEF").Load()
	require.NoError(t, err)
	assert.True(t, b.Created.Contains(batch.TaskKey{Queue: "DEF", Summary: "s"}))
}

func TestLoad_NullQueueWithoutDefault(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{"created": [{"queue": null, "summary": "s"}]}`)

	_, err := batch.NewStore(path, "").Load()
	assert.ErrorIs(t, err, batch.ErrMissingField)
}

func TestLoad_NullableFieldsAndTaskType(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{
  "created": [{
    "queue": null,
    "summary": "summary",
    "parent": null,
    "description": null,
    "sprint": [],
    "task_type": null,
    "priority": null,
    "followers": [],
    "assignee": null,
    "author": null,
    "unique": null,
    "attachmentIds": [],
    "subtasks": []
  }],
  "updated": [],
  "deleted": []
}`)

	b, err := batch.NewStore(path, "Default queue!").Load()
	require.NoError(t, err)
	spec, ok := b.Created.Front()
	require.True(t, ok)
	assert.Equal(t, "Default queue!", spec.Queue)
	assert.Empty(t, spec.Type)
}

func TestLoad_TaskTypeSetsType(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "tasks.json", `{"created": [{"queue": "Q", "summary": "s", "task_type": "bug", "subtasks": [{"summary": "c", "task_type": "task"}]}]}`},
		{"yaml", "tasks.yaml", "created:\n  - queue: Q\n    summary: s\n    task_type: bug\n    subtasks:\n      - summary: c\n        task_type: task\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := batch.NewStore(writeBatch(t, tt.file, tt.content), "").Load()
			require.NoError(t, err)
			spec, _ := b.Created.Front()
			assert.Equal(t, "bug", spec.Type)
			require.Len(t, spec.Subtasks, 1)
			assert.Equal(t, "task", spec.Subtasks[0].Type)
		})
	}
}

func TestLoad_TypeWinsOverTaskType(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{"created": [{"queue": "Q", "summary": "s", "type": "epic", "task_type": "bug"}]}`)

	b, err := batch.NewStore(path, "").Load()
	require.NoError(t, err)
	spec, _ := b.Created.Front()
	assert.Equal(t, "epic", spec.Type)
}

func TestLoad_IgnoresUnknownKeys(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{
  "version": 2,
  "created": [{"queue": "Q", "summary": "s", "colour": "red"}],
  "updated": [{"issue_id": "Q-1", "priority": "minor", "note": "x"}]
}`)

	b, err := batch.NewStore(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, 1, b.Created.Len())
	assert.Equal(t, 1, b.Updated.Len())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"malformed json", "tasks.json", `{"created": [`, batch.ErrDecode},
		{"malformed yaml", "tasks.yml", "created: [a, b", batch.ErrDecode},
		{"queue is a number", "tasks.json", `{"created": [{"queue": 42, "summary": "s"}]}`, batch.ErrSchema},
		{"update without id", "tasks.json", `{"updated": [{"summary": "s"}]}`, batch.ErrSchema},
		{"empty", "tasks.json", `{"created": [], "updated": []}`, batch.ErrEmptyBatch},
		{"empty patch", "tasks.json", `{"updated": [{"issue_id": "Q-1", "summary": ""}]}`, batch.ErrEmptyPatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBatch(t, tt.file, tt.content)
			_, err := batch.NewStore(path, "").Load()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := batch.NewStore(filepath.Join(t.TempDir(), "absent.json"), "").Load()
	assert.ErrorIs(t, err, batch.ErrRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPeek_AcceptsExhaustedCheckpoint(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{"created": [], "updated": [], "deleted": []}`)

	b, err := batch.NewStore(path, "").Peek()
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"tasks.json", "tasks.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			store := batch.NewStore(path, "")
			want := sampleBatch()

			require.NoError(t, store.Save(want))
			got, err := store.Load()
			require.NoError(t, err)

			assert.Equal(t, want.Created.Items(), got.Created.Items())
			assert.Equal(t, want.Updated.Items(), got.Updated.Items())
			assert.Equal(t, want.Deleted.Items(), got.Deleted.Items())
		})
	}
}

func TestSave_ReplacesAtomically(t *testing.T) {
	path := writeBatch(t, "tasks.json", `{"created": [{"queue": "Q", "summary": "s"}]}`)
	require.NoError(t, os.Chmod(path, 0600))
	store := batch.NewStore(path, "")

	require.NoError(t, store.Save(&batch.TaskBatch{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"created":[],"updated":[],"deleted":[]}`, string(data))
}

func TestSave_MissingDirectory(t *testing.T) {
	store := batch.NewStore(filepath.Join(t.TempDir(), "missing", "tasks.json"), "")
	assert.Error(t, store.Save(&batch.TaskBatch{}))
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	store := batch.NewStore(path, "")

	require.NoError(t, store.WriteTemplate(false))
	assert.ErrorIs(t, store.WriteTemplate(false), batch.ErrExists)
	require.NoError(t, store.WriteTemplate(true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	testutil.Golden(t, "template.json", data)

	b, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, b.Created.Len())
}
