package domain

import "github.com/google/uuid"

// NewID generates a UUIDv7 string for record-store groups and audit entries.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
