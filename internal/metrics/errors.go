package metrics

import "errors"

// Domain errors for the metrics package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, metrics.ErrUnknownAction) {
//	    // handle bad relabel config
//	}
var (
	// ErrInvalidDefinition is returned when a metric definition fails validation.
	ErrInvalidDefinition = errors.New("metrics: invalid definition")

	// ErrUnknownType is returned for a metric type outside gauge, counter,
	// histogram, summary.
	ErrUnknownType = errors.New("metrics: unknown metric type")

	// ErrInvalidRule is returned when a relabel rule fails validation.
	ErrInvalidRule = errors.New("metrics: invalid relabel rule")

	// ErrUnknownAction is returned for a relabel action outside replace, keep, drop.
	ErrUnknownAction = errors.New("metrics: unknown relabel action")

	// ErrInvalidPattern is returned when a topic pattern cannot be compiled.
	ErrInvalidPattern = errors.New("metrics: invalid topic pattern")

	// ErrInvalidBuckets is returned when histogram bucket boundaries cannot be parsed.
	ErrInvalidBuckets = errors.New("metrics: invalid bucket boundaries")

	// ErrValueNotNumeric is returned when a message payload cannot be
	// coerced to a number.
	ErrValueNotNumeric = errors.New("metrics: value is not numeric")
)
