package ingestion

import "errors"

var (
	// ErrMessageSinkRequired is returned when a message sink is not provided.
	ErrMessageSinkRequired = errors.New("message sink required")

	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrGuardRequired is returned when a dedup guard is not provided.
	ErrGuardRequired = errors.New("dedup guard required")

	// ErrRegistryRequired is returned when a format registry is not provided.
	ErrRegistryRequired = errors.New("format registry required")

	// ErrInvalidJobSpec is returned when a submission is malformed.
	ErrInvalidJobSpec = errors.New("invalid import job")

	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("import job not found")

	// ErrPipelineClosed is returned when submitting after Release.
	ErrPipelineClosed = errors.New("pipeline closed")
)
