package backend

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

type OwnerOnlyError struct {
	UserID  string
	OwnerID string
	TaskID  string
}

func (e OwnerOnlyError) Error() string {
	return "owner-only"
}
