package media

import (
	"errors"
	"fmt"
)

// Rehoming stages, recorded on RehomeError.
const (
	StageParse  = "parse"
	StageFetch  = "fetch"
	StageExists = "exists"
	StageUpload = "upload"
)

// ErrTooLarge is wrapped by FetchError when a payload exceeds the byte cap.
var ErrTooLarge = errors.New("payload exceeds size limit")

// FetchError indicates the source media could not be downloaded.
type FetchError struct {
	URL string
	// StatusCode is the final HTTP status, zero for transport failures
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UploadError indicates the object store rejected a check or write.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// RehomeError scopes a rehoming failure to one document.
type RehomeError struct {
	DocumentID string
	SourceURL  string
	Stage      string
	Err        error
}

func (e *RehomeError) Error() string {
	return fmt.Sprintf("rehome %s (%s) failed at %s: %v", e.DocumentID, e.SourceURL, e.Stage, e.Err)
}

func (e *RehomeError) Unwrap() error {
	return e.Err
}
