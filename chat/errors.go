package chat

import (
	"errors"

	"github.com/poiesic/mimesis/core"
)

var (
	// ErrSessionRepositoryRequired is returned when a session repository is not provided.
	ErrSessionRepositoryRequired = errors.New("session repository required")

	// ErrBuilderRequired is returned when a prompt builder is not provided.
	ErrBuilderRequired = errors.New("prompt builder required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrInvalidSessionConfig is returned for out-of-range generation settings.
	ErrInvalidSessionConfig = errors.New("invalid session config")
)

// IsClientError reports whether err was caused by the request rather than
// by the service or its dependencies.
func IsClientError(err error) bool {
	return errors.Is(err, core.ErrPersonaNotFound) ||
		errors.Is(err, core.ErrSessionNotFound) ||
		errors.Is(err, core.ErrInvalidPersonaName) ||
		errors.Is(err, core.ErrInvalidMessage) ||
		errors.Is(err, ErrInvalidSessionConfig)
}
