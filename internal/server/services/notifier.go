// Package services contains server-side business logic: authentication and
// the user/task lifecycle, composed from repositories, the policy layer, and
// outbound collaborators (mail, object storage).
package services

import "github.com/dmitrijs2005/taskhub/internal/server/models"

// Notifier delivers out-of-band notifications. Delivery is best-effort and
// asynchronous: implementations must never block the caller on network IO,
// and a failed delivery must not affect the state change that triggered it.
type Notifier interface {
	// EmailVerificationRequested sends the signed verification link to the user.
	EmailVerificationRequested(user *models.User, link string)
	// TaskAssigned informs the assignee about a task assigned to them.
	TaskAssigned(task *models.Task, assignee *models.User)
	// TaskCompleted informs the task creator that the assignee completed it.
	TaskCompleted(task *models.Task, creator *models.User)
}
