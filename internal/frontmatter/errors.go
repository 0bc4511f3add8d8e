package frontmatter

import "fmt"

// MalformedDocumentError indicates the metadata block could not be parsed.
// It is scoped to one document; callers report it and continue.
type MalformedDocumentError struct {
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed front matter: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed front matter: %s", e.Reason)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}
