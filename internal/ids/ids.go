// Package ids generates task identifiers.
package ids

import "github.com/google/uuid"

// New returns a random (v4) UUID in its canonical 36 character form.
func New() string {
	return uuid.New().String()
}
