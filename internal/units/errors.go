package units

// constError is an immutable error type for sentinel errors.
// It implements the error interface and provides compile-time safety.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for unit conversion. Compare with errors.Is().
var (
	// ErrUnsupportedConversion indicates the two units belong to different
	// unit families, or at least one of them is not in the unit vocabulary.
	// Cross-family conversion (e.g. liters to kWh) is never attempted.
	ErrUnsupportedConversion = constError("unsupported unit conversion")

	// ErrCalculationOverflow indicates the input or the converted value is
	// not a finite number.
	ErrCalculationOverflow = constError("conversion overflow")
)
