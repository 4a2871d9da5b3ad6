package journal

import (
	"time"

	"github.com/google/uuid"
)

// Repair operations. Each names a single-document write that completes one
// side of a two-sided reference update.
const (
	OpAttach         = "attach"          // add task id to user.tasks
	OpDetachTaskRef  = "detach_task_ref" // remove task id from user.tasks
	OpDetachAssignee = "detach_assignee" // remove user id from task.assigned_to
)

// Entry represents a second-side reference write that failed after the
// first side committed, persisted so the sweep can finish the repair.
type Entry struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id"`
	Retries   int       `json:"retries"`
	Timestamp time.Time `json:"timestamp"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
