package domain

import (
	"fmt"
	"strings"
)

// DefaultSessionID is used when the caller does not choose one.
const DefaultSessionID = "default"

// ValidateSessionID rejects IDs that cannot be used as storage keys or file
// names: empty, ".", path separators, ".." components, control characters.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if id == "." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q contains a path element", ErrInvalidSessionID, id)
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains control characters", ErrInvalidSessionID, id)
		}
	}
	return nil
}
