package validation

const (
	// Amounts carry at most this many decimal places
	MaxAmountScale = 2

	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72

	// String lengths
	MaxDescriptionLength = 500
	MaxReferenceLength   = 100
	MaxNameLength        = 140
)
