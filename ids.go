package retirement

import "github.com/google/uuid"

// NewID returns a fresh, never reused entity identifier.
func NewID() string { return uuid.NewString() }
