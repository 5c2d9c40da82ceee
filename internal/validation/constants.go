package validation

import "github.com/shopspring/decimal"

const (
	DateLayout = "2006-01-02"

	// String lengths
	MaxIDLength          = 64
	MaxDescriptionLength = 500
	MaxReasonLength      = 255
)

// MaxAmount fits numeric(20,2).
var MaxAmount = decimal.RequireFromString("999999999999999999.99")
