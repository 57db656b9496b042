package httpapi

import (
	"time"

	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

// taskResource is the task as serialized in responses: creator and assignee
// are embedded user objects, not raw ids, and the attachment is exposed only
// as a flag.
type taskResource struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     *time.Time   `json:"due_date"`
	Completed   bool         `json:"completed"`
	CreatedBy   *models.User `json:"created_by"`
	AssignedTo  *models.User `json:"assigned_to"`
	HasFile     bool         `json:"has_file"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func newTaskResource(t *models.Task) taskResource {
	return taskResource{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		CreatedBy:   t.Creator,
		AssignedTo:  t.Assignee,
		HasFile:     t.HasFile(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newTaskCollection(tasks []*models.Task) []taskResource {
	out := make([]taskResource, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskResource(t))
	}
	return out
}
