package utils

// Constants
const (
	DATE_LAYOUT     = "2006-01-02"

	// REFERENCE_CURRENCY is the last fallback when neither the market nor the
	// host carrier declares a settlement currency.
	REFERENCE_CURRENCY = "USD"
)
