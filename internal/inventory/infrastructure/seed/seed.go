// Package seed reads the bootstrap stock file used on first start.
package seed

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
)

type file struct {
	Items []entry `yaml:"items"`
}

type entry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Quantity int    `yaml:"quantity"`
}

func LoadFile(path string) ([]domain.StockItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a seed document. Unknown fields are rejected.
func Load(r io.Reader) ([]domain.StockItem, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	items := make([]domain.StockItem, 0, len(doc.Items))
	names := make(map[string]struct{}, len(doc.Items))
	for i, e := range doc.Items {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, fmt.Errorf("items[%d].id %q: %w", i, e.ID, err)
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("items[%d].name is required", i)
		}
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("items[%d].name %q is duplicated", i, name)
		}
		names[name] = struct{}{}
		if e.Quantity < 0 {
			return nil, fmt.Errorf("items[%d].quantity must not be negative", i)
		}
		items = append(items, domain.StockItem{ID: id, Name: name, Quantity: e.Quantity})
	}
	return items, nil
}
