package extract

import "errors"

var (
	// ErrEmptyDocument indicates a source that produced only whitespace.
	ErrEmptyDocument = errors.New("document has no text")

	// ErrFileTooLarge indicates a file over the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrFetcherRequired indicates URLs were given without a Fetcher.
	ErrFetcherRequired = errors.New("fetcher is required for URL sources")

	// ErrFetchFailed indicates a URL could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")
)
