// Copyright 2025 LifeReady
//
// Package database provides sentinel errors for repository operations:
// explicit errors instead of nil, nil returns.
package database

import "errors"

// Sentinel errors for database operations, returned by internal/*
// repositories and compared by their services before mapping to a
// coreerr.Kind.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned on a unique-constraint violation.
	ErrDuplicate = errors.New("duplicate record")
)
