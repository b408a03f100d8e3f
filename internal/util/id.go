package util

import "github.com/google/uuid"

// NewID returns a random UUID string used for thread, turn and call ids.
func NewID() string { return uuid.NewString() }
