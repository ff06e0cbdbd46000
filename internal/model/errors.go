package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a principal may not modify an article.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidBlock wraps block decoding failures.
	ErrInvalidBlock = errors.New("invalid block")
	// ErrInvalidTransition is returned for status changes that are not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Kind string // "article", "template"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvariantError describes a broken article invariant.
type InvariantError struct {
	ArticleID string
	Reason    string
}

func (e *InvariantError) Error() string {
	return "article " + e.ArticleID + ": " + e.Reason
}
