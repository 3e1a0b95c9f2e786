// Package events holds the wire contracts exchanged between the order and
// inventory services. Both sides key their Kafka messages by order id.
package events

const (
	TypeOrderPlaced        = "OrderPlaced"
	TypeInventoryValidated = "InventoryValidated"
)

// Status values carried by InventoryValidated.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

type LineItem struct {
	ItemRef  string `json:"itemRef"`
	Quantity int    `json:"quantity"`
}

type OrderPlaced struct {
	OrderID    string     `json:"orderId"`
	CustomerID int64      `json:"customerId"`
	Items      []LineItem `json:"items"`
}

type InventoryValidated struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
}
