package core

import (
	"fmt"
	"strings"
)

// ValidationError reports input that violates a field constraint or a uniqueness rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing entity, or one owned by another user.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ProtectedDeleteError is returned when an entity is still referenced by transactions.
type ProtectedDeleteError struct {
	Entity     string
	ID         int64
	References int
}

func (e *ProtectedDeleteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot delete %s %d: still referenced", e.Entity, e.ID)
	if e.References > 0 {
		fmt.Fprintf(&b, " by %d transaction(s)", e.References)
	}
	return b.String()
}

func NewNotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
