package domain

import "errors"

var (
	// ErrInvariantViolation is returned when a ledger write would break a ledger invariant,
	// e.g. a processed record for an object that was never ingested
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrContractNotFound is returned when a customer has no usage contract
	ErrContractNotFound = errors.New("contract not found")

	// ErrContractInactive is returned when a customer contract exists but is not active
	ErrContractInactive = errors.New("contract inactive")

	// ErrInvalidPartition is returned when a partition date or source partition is malformed
	ErrInvalidPartition = errors.New("invalid partition")

	// ErrInvalidEnvironment is returned when an environment is not one of the supported values
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidRunRequest is returned when a pipeline run request fails validation
	ErrInvalidRunRequest = errors.New("invalid run request")

	// ErrInvalidPageToken is returned when a pagination token cannot be decoded
	ErrInvalidPageToken = errors.New("invalid page token")

	// ErrTransient marks errors that are expected to succeed on a later attempt
	ErrTransient = errors.New("transient error")

	// ErrRunCancelled is returned when a pipeline run is aborted by its caller
	ErrRunCancelled = errors.New("run cancelled")

	// ErrRunNotFound is returned when a pipeline run is not found
	ErrRunNotFound = errors.New("run not found")

	// ErrUnsupportedObject is returned when a source object is not a supported image
	ErrUnsupportedObject = errors.New("unsupported object")
)

// IsConfigurationError reports whether err should fail a run before any work starts
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrContractInactive) ||
		errors.Is(err, ErrInvalidPartition) ||
		errors.Is(err, ErrInvalidEnvironment) ||
		errors.Is(err, ErrInvalidRunRequest)
}

// IsFatal reports whether err must abort a whole run rather than a single object
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation) || IsConfigurationError(err)
}
