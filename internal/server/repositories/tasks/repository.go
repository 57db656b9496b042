// Package tasks provides the repository for task records, including the
// scoped, filtered, and ordered listings produced by the query composer.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/taskquery"
)

// Repository is the persistence contract for tasks.
type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, q *taskquery.Query) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	SetCompleted(ctx context.Context, id string) error
	SetFileKey(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
}
