package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// BankDetails is opaque payout metadata attached to a withdrawal request.
// It is stored as a JSON document and only checked for presence.
type BankDetails struct {
	AccountHolderName string `json:"account_holder_name"`
	AccountNumber     string `json:"account_number"`
	RoutingCode       string `json:"routing_code"`
	BankName          string `json:"bank_name"`
	Branch            string `json:"branch,omitempty"`
}

// Missing lists the required fields that are blank.
func (b BankDetails) Missing() []string {
	var missing []string
	if strings.TrimSpace(b.AccountHolderName) == "" {
		missing = append(missing, "account_holder_name")
	}
	if strings.TrimSpace(b.AccountNumber) == "" {
		missing = append(missing, "account_number")
	}
	if strings.TrimSpace(b.RoutingCode) == "" {
		missing = append(missing, "routing_code")
	}
	if strings.TrimSpace(b.BankName) == "" {
		missing = append(missing, "bank_name")
	}
	return missing
}

// Value implements the driver.Valuer interface
func (b BankDetails) Value() (driver.Value, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (b *BankDetails) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*b = BankDetails{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported bank details type %T", value)
	}
	return json.Unmarshal(data, b)
}
