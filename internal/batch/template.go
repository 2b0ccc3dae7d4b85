package batch

import "ytbatch/internal/service"

// Template returns the example batch written by the template command.
// Queue names and issue ids are placeholders to be replaced before a run.
func Template() *TaskBatch {
	return &TaskBatch{
		Created: NewCreatedSet(
			CreatedTaskSpec{
				Queue:       "QUEUE",
				Summary:     "Parent task",
				Description: "Created by ytbatch",
				Type:        "task",
				Priority:    "normal",
				Subtasks: []CreatedTaskSpec{
					{Summary: "First subtask"},
					{Summary: "Second subtask", Followers: []string{"login"}},
				},
			},
			CreatedTaskSpec{
				Queue:   "QUEUE",
				Summary: "Standalone task",
			},
		),
		Updated: NewUpdatedSet(
			UpdateSpec{
				IssueID:    "QUEUE-1",
				IssuePatch: service.IssuePatch{Summary: "New summary", Priority: "critical"},
			},
		),
		Deleted: NewDeletedSet("QUEUE-2"),
	}
}
