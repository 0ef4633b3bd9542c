package perm

import (
	"strings"

	"getitdone/internal/model"
)

// CanReadTask reports whether userID may see t. Tasks are private to their owner.
func CanReadTask(userID string, t *model.Task) bool {
	return isOwner(userID, t)
}

// CanMutateTask enforces ownership for toggling and deleting a task.
//
// Rules:
// - Only a signed-in user (non-empty id) can mutate.
// - Only the owner can mutate; ownership never changes after insert.
func CanMutateTask(userID string, t *model.Task) bool {
	return isOwner(userID, t)
}

func isOwner(userID string, t *model.Task) bool {
	if t == nil {
		return false
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}
	return strings.TrimSpace(t.OwnerID) == userID
}
