package events

import (
	"encoding/json"
	"testing"
)

func TestOrderPlaced_WireShape(t *testing.T) {
	t.Parallel()

	raw := `{"orderId":"7d0f1d1e-8a53-4b55-9d5e-6f2b8f6c8a10","customerId":42,"items":[{"itemRef":"abc","quantity":3}]}`

	var ev OrderPlaced
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.CustomerID != 42 || len(ev.Items) != 1 || ev.Items[0].ItemRef != "abc" || ev.Items[0].Quantity != 3 {
		t.Fatalf("unexpected decode %+v", ev)
	}
}

func TestInventoryValidated_FieldNames(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(InventoryValidated{OrderID: "o-1", Status: StatusCancelled, Reason: "insufficient stock"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, k := range []string{"orderId", "status", "reason"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("expected field %q in %s", k, b)
		}
	}
}
