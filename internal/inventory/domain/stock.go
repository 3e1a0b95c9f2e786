package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound         = errors.New("stock item not found")
	ErrInvalidItemReference = errors.New("invalid item reference")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrReservationNotFound  = errors.New("reservation not found")
)

type StockItem struct {
	ID        uuid.UUID
	Name      string
	Quantity  int
	UpdatedAt time.Time
}

// LineItem is a requested item as it arrives from the order service. ItemRef is
// not trusted to be a valid stock id.
type LineItem struct {
	ItemRef  string
	Quantity int
}

// Requirement is a parsed LineItem.
type Requirement struct {
	ItemID   uuid.UUID
	Quantity int
}

// ParseRequirements resolves every item up front. Any unparseable reference
// fails the request with ErrInvalidItemReference; only then are quantities
// checked, failing with ErrInvalidQuantity.
func ParseRequirements(items []LineItem) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(items))
	for i, item := range items {
		id, err := uuid.Parse(item.ItemRef)
		if err != nil {
			return nil, fmt.Errorf("items[%d] %q: %w", i, item.ItemRef, ErrInvalidItemReference)
		}
		reqs = append(reqs, Requirement{ItemID: id, Quantity: item.Quantity})
	}
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d] quantity %d: %w", i, r.Quantity, ErrInvalidQuantity)
		}
	}
	return reqs, nil
}
