// Package batch holds the mutation batch model and its checkpoint file.
package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"ytbatch/internal/service"
)

// Validation errors. Load joins every problem it finds; test with errors.Is.
var (
	ErrEmptyBatch   = errors.New("batch has no pending mutations")
	ErrMissingField = errors.New("required field is empty")
	ErrEmptyPatch   = errors.New("update has no fields to change")
)

// TaskKey identifies a creation. Two specs with the same queue and summary
// are the same creation request regardless of their other fields.
type TaskKey struct {
	Queue   string
	Summary string
}

func (k TaskKey) String() string {
	return k.Queue + "/" + k.Summary
}

// CreatedTaskSpec is a pending issue creation. Subtasks are created only
// after their parent has been created and has a key.
type CreatedTaskSpec struct {
	Queue         string            `json:"queue,omitempty" yaml:"queue,omitempty"`
	Summary       string            `json:"summary" yaml:"summary"`
	Parent        string            `json:"parent,omitempty" yaml:"parent,omitempty"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	Sprint        []string          `json:"sprint,omitempty" yaml:"sprint,omitempty"`
	Type          string            `json:"type,omitempty" yaml:"type,omitempty"`
	Priority      string            `json:"priority,omitempty" yaml:"priority,omitempty"`
	Followers     []string          `json:"followers,omitempty" yaml:"followers,omitempty"`
	Assignee      string            `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Author        string            `json:"author,omitempty" yaml:"author,omitempty"`
	Unique        string            `json:"unique,omitempty" yaml:"unique,omitempty"`
	AttachmentIDs []string          `json:"attachmentIds,omitempty" yaml:"attachmentIds,omitempty"`
	Subtasks      []CreatedTaskSpec `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

// UnmarshalJSON accepts task_type as a spelling of type. Unknown keys are
// ignored.
func (c *CreatedTaskSpec) UnmarshalJSON(data []byte) error {
	type plain CreatedTaskSpec
	var v struct {
		plain
		TaskType *string `json:"task_type"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = CreatedTaskSpec(v.plain)
	c.applyTaskType(v.TaskType)
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (c *CreatedTaskSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain CreatedTaskSpec
	var v struct {
		plain    `yaml:",inline"`
		TaskType *string `yaml:"task_type"`
	}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*c = CreatedTaskSpec(v.plain)
	c.applyTaskType(v.TaskType)
	return nil
}

func (c *CreatedTaskSpec) applyTaskType(taskType *string) {
	if c.Type == "" && taskType != nil {
		c.Type = *taskType
	}
}

// Key returns the dedup key of the spec.
func (c CreatedTaskSpec) Key() TaskKey {
	return TaskKey{Queue: c.Queue, Summary: c.Summary}
}

// Request converts the spec into the API body. Subtasks are not sent.
func (c CreatedTaskSpec) Request() service.CreateIssueRequest {
	return service.CreateIssueRequest{
		Queue:         c.Queue,
		Summary:       c.Summary,
		Parent:        c.Parent,
		Description:   c.Description,
		Sprint:        c.Sprint,
		Type:          c.Type,
		Priority:      c.Priority,
		Followers:     c.Followers,
		Assignee:      c.Assignee,
		Author:        c.Author,
		Unique:        c.Unique,
		AttachmentIDs: c.AttachmentIDs,
	}
}

// ChildrenOf returns the spec's subtasks rewritten as top-level creations
// under the issue parentKey. A subtask without a queue inherits the parent's.
func (c CreatedTaskSpec) ChildrenOf(parentKey string) []CreatedTaskSpec {
	children := make([]CreatedTaskSpec, 0, len(c.Subtasks))
	for _, sub := range c.Subtasks {
		sub.Parent = parentKey
		if sub.Queue == "" {
			sub.Queue = c.Queue
		}
		children = append(children, sub)
	}
	return children
}

func (c CreatedTaskSpec) validate(path string, topLevel bool) error {
	var errs []error
	if topLevel && strings.TrimSpace(c.Queue) == "" {
		errs = append(errs, fmt.Errorf("%w: %s: queue", ErrMissingField, path))
	}
	if strings.TrimSpace(c.Summary) == "" {
		errs = append(errs, fmt.Errorf("%w: %s: summary", ErrMissingField, path))
	}
	for i, sub := range c.Subtasks {
		errs = append(errs, sub.validate(fmt.Sprintf("%s.subtasks[%d]", path, i), false))
	}
	return errors.Join(errs...)
}

// UpdateSpec is a pending partial update of an existing issue.
type UpdateSpec struct {
	IssueID            string `json:"issue_id" yaml:"issue_id"`
	service.IssuePatch `yaml:",inline"`
}

func (u UpdateSpec) key() string {
	data, _ := json.Marshal(u.IssuePatch)
	return u.IssueID + "\x00" + string(data)
}

// CreatedSet is the ordered set of pending creations keyed by TaskKey.
// It is processed front to back.
type CreatedSet struct {
	set orderedSet[TaskKey, CreatedTaskSpec]
}

// NewCreatedSet builds a set from specs; later duplicates are dropped.
func NewCreatedSet(specs ...CreatedTaskSpec) CreatedSet {
	var s CreatedSet
	for _, spec := range specs {
		s.Add(spec)
	}
	return s
}

// Add inserts spec unless a spec with the same key is already present.
func (s *CreatedSet) Add(spec CreatedTaskSpec) bool { return s.set.add(spec.Key(), spec) }

// Remove deletes the spec with key k.
func (s *CreatedSet) Remove(k TaskKey) bool { return s.set.remove(k) }

// Contains reports whether a spec with key k is pending.
func (s *CreatedSet) Contains(k TaskKey) bool { return s.set.contains(k) }

// Front returns the oldest pending spec.
func (s *CreatedSet) Front() (CreatedTaskSpec, bool) { return s.set.front() }

// Len returns the number of pending specs.
func (s *CreatedSet) Len() int { return s.set.len() }

// Items returns the pending specs in processing order.
func (s *CreatedSet) Items() []CreatedTaskSpec { return s.set.values() }

func (s CreatedSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Items()) }

func (s *CreatedSet) UnmarshalJSON(data []byte) error {
	var specs []CreatedTaskSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return err
	}
	*s = NewCreatedSet(specs...)
	return nil
}

func (s CreatedSet) MarshalYAML() (any, error) { return s.Items(), nil }

func (s *CreatedSet) UnmarshalYAML(node *yaml.Node) error {
	var specs []CreatedTaskSpec
	if err := node.Decode(&specs); err != nil {
		return err
	}
	*s = NewCreatedSet(specs...)
	return nil
}

// UpdatedSet is the ordered set of pending updates. Members are equal only
// when issue id and every patch field match.
type UpdatedSet struct {
	set orderedSet[string, UpdateSpec]
}

// NewUpdatedSet builds a set from specs; exact duplicates are dropped.
func NewUpdatedSet(specs ...UpdateSpec) UpdatedSet {
	var s UpdatedSet
	for _, spec := range specs {
		s.Add(spec)
	}
	return s
}

// Add inserts spec unless an identical update is already present.
func (s *UpdatedSet) Add(spec UpdateSpec) bool { return s.set.add(spec.key(), spec) }

// Remove deletes spec from the set.
func (s *UpdatedSet) Remove(spec UpdateSpec) bool { return s.set.remove(spec.key()) }

// Front returns the oldest pending update.
func (s *UpdatedSet) Front() (UpdateSpec, bool) { return s.set.front() }

// Len returns the number of pending updates.
func (s *UpdatedSet) Len() int { return s.set.len() }

// Items returns the pending updates in processing order.
func (s *UpdatedSet) Items() []UpdateSpec { return s.set.values() }

func (s UpdatedSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Items()) }

func (s *UpdatedSet) UnmarshalJSON(data []byte) error {
	var specs []UpdateSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return err
	}
	*s = NewUpdatedSet(specs...)
	return nil
}

func (s UpdatedSet) MarshalYAML() (any, error) { return s.Items(), nil }

func (s *UpdatedSet) UnmarshalYAML(node *yaml.Node) error {
	var specs []UpdateSpec
	if err := node.Decode(&specs); err != nil {
		return err
	}
	*s = NewUpdatedSet(specs...)
	return nil
}

// DeletedSet is the ordered set of issue ids pending deletion.
type DeletedSet struct {
	set orderedSet[string, string]
}

// NewDeletedSet builds a set from issue ids.
func NewDeletedSet(ids ...string) DeletedSet {
	var s DeletedSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *DeletedSet) Add(id string) bool { return s.set.add(id, id) }
func (s *DeletedSet) Remove(id string) bool { return s.set.remove(id) }
func (s *DeletedSet) Front() (string, bool) { return s.set.front() }
func (s *DeletedSet) Len() int { return s.set.len() }
func (s *DeletedSet) Items() []string { return s.set.values() }
func (s DeletedSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Items()) }
func (s DeletedSet) MarshalYAML() (any, error) { return s.Items(), nil }

func (s *DeletedSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewDeletedSet(ids...)
	return nil
}

func (s *DeletedSet) UnmarshalYAML(node *yaml.Node) error {
	var ids []string
	if err := node.Decode(&ids); err != nil {
		return err
	}
	*s = NewDeletedSet(ids...)
	return nil
}

// TaskBatch is the unit of checkpointed state: everything still to be sent.
type TaskBatch struct {
	Created CreatedSet `json:"created" yaml:"created"`
	Updated UpdatedSet `json:"updated" yaml:"updated"`
	Deleted DeletedSet `json:"deleted" yaml:"deleted"`
}

// IsEmpty reports whether nothing is pending.
func (b *TaskBatch) IsEmpty() bool {
	return b.Created.Len() == 0 && b.Updated.Len() == 0 && b.Deleted.Len() == 0
}

// Pending returns the number of top-level pending mutations.
func (b *TaskBatch) Pending() int {
	return b.Created.Len() + b.Updated.Len() + b.Deleted.Len()
}

// Validate checks a freshly loaded batch: it must not be empty, every
// creation needs queue and summary, every update needs an issue id and at
// least one patch field.
func (b *TaskBatch) Validate() error {
	if b.IsEmpty() {
		return ErrEmptyBatch
	}
	var errs []error
	for i, spec := range b.Created.Items() {
		errs = append(errs, spec.validate(fmt.Sprintf("created[%d]", i), true))
	}
	for i, upd := range b.Updated.Items() {
		if strings.TrimSpace(upd.IssueID) == "" {
			errs = append(errs, fmt.Errorf("%w: updated[%d]: issue_id", ErrMissingField, i))
		}
		if upd.IsEmpty() {
			errs = append(errs, fmt.Errorf("%w: updated[%d] (%s)", ErrEmptyPatch, i, upd.IssueID))
		}
	}
	for i, id := range b.Deleted.Items() {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("%w: deleted[%d]", ErrMissingField, i))
		}
	}
	return errors.Join(errs...)
}

// ApplyDefaultQueue sets queue on every top-level creation that has none.
func (b *TaskBatch) ApplyDefaultQueue(queue string) {
	if queue == "" {
		return
	}
	b.Created = b.mapCreated(func(spec CreatedTaskSpec) CreatedTaskSpec {
		if strings.TrimSpace(spec.Queue) == "" {
			spec.Queue = queue
		}
		return spec
	})
}

// StampUnique gives every creation, subtasks included, a unique token from
// gen when it has none. The tracker rejects a second creation with the same
// token, which makes a replayed creation harmless. Returns the number of
// tokens assigned.
func (b *TaskBatch) StampUnique(gen func() string) int {
	n := 0
	var stamp func(spec CreatedTaskSpec) CreatedTaskSpec
	stamp = func(spec CreatedTaskSpec) CreatedTaskSpec {
		if spec.Unique == "" {
			spec.Unique = gen()
			n++
		}
		if len(spec.Subtasks) > 0 {
			subs := make([]CreatedTaskSpec, len(spec.Subtasks))
			for i, sub := range spec.Subtasks {
				subs[i] = stamp(sub)
			}
			spec.Subtasks = subs
		}
		return spec
	}
	b.Created = b.mapCreated(stamp)
	return n
}

func (b *TaskBatch) mapCreated(fn func(CreatedTaskSpec) CreatedTaskSpec) CreatedSet {
	var out CreatedSet
	for _, spec := range b.Created.Items() {
		out.Add(fn(spec))
	}
	return out
}
