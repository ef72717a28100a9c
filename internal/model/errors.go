package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrAtCapacity is returned when the node can't admit more queries.
	ErrAtCapacity = errors.New("at capacity")
	// ErrWrongRole is returned when an operation doesn't match the node role.
	ErrWrongRole = errors.New("wrong role")
)
