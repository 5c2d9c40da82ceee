// Package validation checks the shape of API requests before they reach the
// engines. Business rules such as balances and minimums stay in the services.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validator defines validation methods
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records the first error for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks if a string is not blank
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "must not be empty")
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Amount checks for a positive value with at most two decimal places.
func (v *Validator) Amount(field string, value decimal.Decimal) {
	switch {
	case !value.IsPositive():
		v.AddError(field, "must be greater than zero")
	case !value.Equal(value.Round(2)):
		v.AddError(field, "must have at most two decimal places")
	case value.GreaterThan(MaxAmount):
		v.AddError(field, fmt.Sprintf("must not exceed %s", MaxAmount.String()))
	}
}

// OneOf checks that value is one of the allowed values. Empty values pass;
// combine with Required when the field is mandatory.
func (v *Validator) OneOf(field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")))
}

// Date parses a YYYY-MM-DD value. It returns the zero time when the value is
// empty or malformed.
func (v *Validator) Date(field, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		v.AddError(field, "must be a date in YYYY-MM-DD format")
		return time.Time{}
	}
	return t
}
