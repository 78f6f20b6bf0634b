package gas

import "errors"

var (
	// ErrInvalidAddress is returned for an empty or blank address.
	ErrInvalidAddress = errors.New("address is required")

	// ErrUnknownPeriod is returned for a time period name that is not
	// recognised, unless the calculator runs in lenient mode.
	ErrUnknownPeriod = errors.New("unknown time period")

	// ErrInvalidGasUsed is returned when a matching transaction carries a
	// gasUsed value that is not an unsigned decimal integer.
	ErrInvalidGasUsed = errors.New("invalid gasUsed")
)
