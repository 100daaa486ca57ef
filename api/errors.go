package api

import (
	"errors"
	"net/http"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/ingestion"
)

var (
	// ErrItemNotFound is returned when a job has no item with the given ID.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemNotDone is returned when messages are requested for an item
	// that has not finished.
	ErrItemNotDone = errors.New("item has not finished")

	// ErrInvalidPayload is returned for inline payloads that cannot be decoded.
	ErrInvalidPayload = errors.New("invalid inline payload")

	// ErrInvalidQuery is returned for malformed query parameters.
	ErrInvalidQuery = errors.New("invalid query parameter")
)

// statusOf maps an error to its HTTP status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ingestion.ErrInvalidJobSpec), errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrJobNotFound), errors.Is(err, ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrItemNotDone):
		return http.StatusConflict
	case errors.Is(err, ingestion.ErrPipelineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
