package testutil

import (
	"encoding/json"
	"sync"

	"ytbatch/internal/batch"
)

// Checkpoints records every checkpoint written by the processor. Each
// saved batch is a deep copy taken at the time of the call.
type Checkpoints struct {
	mu    sync.Mutex
	Saved []*batch.TaskBatch

	// FailAt makes the n-th save (1-based) return Err.
	FailAt int
	Err    error
}

// Save implements processor.Checkpointer.
func (c *Checkpoints) Save(b *batch.TaskBatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailAt > 0 && len(c.Saved)+1 == c.FailAt {
		return c.Err
	}

	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	var snapshot batch.TaskBatch
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	c.Saved = append(c.Saved, &snapshot)
	return nil
}

// Count returns the number of successful saves.
func (c *Checkpoints) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Saved)
}

// Last returns the most recent checkpoint, or nil.
func (c *Checkpoints) Last() *batch.TaskBatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Saved) == 0 {
		return nil
	}
	return c.Saved[len(c.Saved)-1]
}
