package models

import "fmt"

// ReferenceType names the business object a ledger entry points at.
type ReferenceType string

const (
	RefOrder             ReferenceType = "order"
	RefDeliveryOrder     ReferenceType = "delivery_order"
	RefWithdrawalRequest ReferenceType = "withdrawal_request"
)

// Reference is a weak pointer to the object that triggered a ledger entry.
// It is lookup-only; the ledger never owns the referenced object.
type Reference struct {
	Type ReferenceType `gorm:"column:type;type:varchar(32);index:idx_wallet_tx_reference,priority:1" json:"type"`
	ID   string        `gorm:"column:id;type:varchar(64);index:idx_wallet_tx_reference,priority:2" json:"id"`
}

func OrderRef(orderID string) Reference {
	return Reference{Type: RefOrder, ID: orderID}
}

func DeliveryOrderRef(deliveryOrderID string) Reference {
	return Reference{Type: RefDeliveryOrder, ID: deliveryOrderID}
}

func WithdrawalRef(requestID string) Reference {
	return Reference{Type: RefWithdrawalRequest, ID: requestID}
}

func (r Reference) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}
