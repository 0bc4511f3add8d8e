package schema

import (
	"fmt"
	"strings"
)

// ViolationError carries every violation found in one document.
type ViolationError struct {
	DocumentID string
	Mode       Mode
	Violations []Violation
}

func (e *ViolationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("%s: %d %s schema violation(s): %s", e.DocumentID, len(e.Violations), e.Mode, strings.Join(msgs, "; "))
}

// InvalidFilenameError reports a document name outside the lowercase-hyphen
// convention. Validation stops at this error.
type InvalidFilenameError struct {
	DocumentID string
	Filename   string
}

func (e *InvalidFilenameError) Error() string {
	return fmt.Sprintf("Invalid filename format: %q. Use lowercase with hyphens (e.g., \"my-tip-name.mdx\")", e.Filename)
}
