// Package policy is the authorization engine: pure decision functions over
// an Actor and a target resource, with no side effects. Admin short-circuits
// every rule. Every denial carries a human-readable reason; callers must not
// infer the reason from absence of data.
package policy

import "github.com/dmitrijs2005/taskhub/internal/server/models"

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a permissive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denial with the given reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// ViewTask allows admins and the task's creator or assignee.
func ViewTask(actor models.Actor, task *models.Task) Decision {
	if actor.IsAdmin || actor.ID == task.CreatedBy || actor.ID == task.AssignedTo {
		return Allow()
	}
	return Deny("You are not authorized to view this task.")
}

// CreateTask allows any verified actor.
func CreateTask(actor models.Actor) Decision {
	if actor.Verified {
		return Allow()
	}
	return Deny("You are not authorized to create tasks.")
}

// UpdateTask allows admins and the task's creator.
func UpdateTask(actor models.Actor, task *models.Task) Decision {
	if actor.IsAdmin || actor.ID == task.CreatedBy {
		return Allow()
	}
	return Deny("You are not authorized to update this task.")
}

// CompleteTask allows admins and the task's assignee.
func CompleteTask(actor models.Actor, task *models.Task) Decision {
	if actor.IsAdmin || actor.ID == task.AssignedTo {
		return Allow()
	}
	return Deny("You are not authorized to complete this task.")
}

// DeleteTask allows admins and the task's creator.
func DeleteTask(actor models.Actor, task *models.Task) Decision {
	if actor.IsAdmin || actor.ID == task.CreatedBy {
		return Allow()
	}
	return Deny("You are not authorized to delete this task.")
}

// ListUsers allows admins only.
func ListUsers(actor models.Actor) Decision {
	if actor.IsAdmin {
		return Allow()
	}
	return Deny("You must be an administrator to view users.")
}

// ViewUser allows admins and the user themselves.
func ViewUser(actor models.Actor, target *models.User) Decision {
	if actor.IsAdmin || actor.ID == target.ID {
		return Allow()
	}
	return Deny("You must be the owner of this user to view it.")
}

// CreateUser is always denied: accounts are created through registration,
// not through the resource-management surface.
func CreateUser(actor models.Actor) Decision {
	return Deny("Invalid action.")
}

// UpdateUser allows admins and the user themselves.
func UpdateUser(actor models.Actor, target *models.User) Decision {
	if actor.IsAdmin || actor.ID == target.ID {
		return Allow()
	}
	return Deny("You must be the owner of this user to update it.")
}

// DeleteUser allows admins and the user themselves.
func DeleteUser(actor models.Actor, target *models.User) Decision {
	if actor.IsAdmin || actor.ID == target.ID {
		return Allow()
	}
	return Deny("You must be the owner of this user to delete it.")
}
