package extractor

import "fmt"

// ClientDownloadRequired signals that the source platform blocks server-side
// fetching and the client must download the media itself. It is an expected
// branch, not a failure.
type ClientDownloadRequired struct {
	DirectMediaURL string
}

func (e *ClientDownloadRequired) Error() string {
	return "media download must be performed by the client"
}

// SourceError wraps any extraction failure that did not produce usable
// content. Step identifies the sub-step that failed for diagnostics.
type SourceError struct {
	Step string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("extraction failed at %s: %v", e.Step, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func sourceErr(step string, err error) error {
	return &SourceError{Step: step, Err: err}
}
