package models

import "time"

// Task always has exactly one creator and one assignee; they may be the same
// user. Description is stored NOT NULL and rendered as an empty string when
// absent. FileKey is the optional attachment marker.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Completed   bool       `json:"completed"`
	CreatedBy   string     `json:"created_by"`
	AssignedTo  string     `json:"assigned_to"`
	FileKey     *string    `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Creator and Assignee are populated when the row is loaded with its
	// relations, for serialization in API responses.
	Creator  *User `json:"-"`
	Assignee *User `json:"-"`
}

// HasFile reports whether a file is attached to the task.
func (t *Task) HasFile() bool {
	return t.FileKey != nil && *t.FileKey != ""
}
