package skillmatch

import "errors"

var (
	// ErrCorpusUnavailable means there is no vocabulary to build an index from.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrIndexNotReady means the index has not been built or was built empty.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrEmptyRequirements is returned by profile matching without requirements.
	ErrEmptyRequirements = errors.New("no job requirements provided")
	// ErrAlreadyBuilt rejects a second build of the same index.
	ErrAlreadyBuilt = errors.New("index already built")
)
