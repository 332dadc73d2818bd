package core

import (
	"context"
	"fmt"
	"sort"
)

// BoxesFor converts a unit quantity into the number of whole boxes it consumes.
func BoxesFor(quantity, packSize int) int {
	if packSize < 1 {
		packSize = 1
	}
	if quantity <= 0 {
		return 0
	}
	return (quantity + packSize - 1) / packSize
}

// AvailableUnits is the number of sale units held in stock.
func AvailableUnits(p Product) int {
	packSize := p.PackSize
	if packSize < 1 {
		packSize = 1
	}
	return p.Stock * packSize
}

// stockDelta is the pending box change for one product.
type stockDelta struct {
	productID int
	boxes     int
}

// stockDemand is what a call asks of one product: units for reporting, boxes for the check.
// Boxes are summed per line because each line deducts its own rounded-up box count.
type stockDemand struct {
	units int
	boxes int
}

func requestedStock(products map[int]Product, items []ItemInput) map[int]stockDemand {
	out := make(map[int]stockDemand, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.TrackStock {
			continue
		}
		d := out[p.ID]
		d.units += it.Quantity
		d.boxes += BoxesFor(it.Quantity, p.PackSize)
		out[p.ID] = d
	}
	return out
}

// CheckStock verifies that every tracked product holds the boxes the lines will deduct.
// It returns the first shortfall as an *InsufficientStockError, in product ID order.
func CheckStock(products map[int]Product, items []ItemInput) error {
	wanted := requestedStock(products, items)
	ids := make([]int, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		p, d := products[id], wanted[id]
		if d.boxes > p.Stock {
			return &InsufficientStockError{
				ProductID:      p.ID,
				ProductName:    p.Name,
				Available:      AvailableUnits(p),
				Requested:      d.units,
				AvailableBoxes: p.Stock,
				RequestedBoxes: d.boxes,
			}
		}
	}
	return nil
}

// deductions returns the per-line box decrements for tracked products.
func deductions(products map[int]Product, items []ItemInput) []stockDelta {
	var out []stockDelta
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.TrackStock {
			continue
		}
		out = append(out, stockDelta{productID: p.ID, boxes: -BoxesFor(it.Quantity, p.PackSize)})
	}
	return out
}

// applyStock writes box deltas back to the product repository, flooring at zero.
// Deductions are pre-checked by CheckStock so the floor only guards restorations
// against rows edited outside the ledger.
// products is updated in place so later lines in the same call see the new count.
func applyStock(ctx context.Context, repo ProductRepository, products map[int]Product, deltas []stockDelta) error {
	for _, d := range deltas {
		p, ok := products[d.productID]
		if !ok || !p.TrackStock || d.boxes == 0 {
			continue
		}
		next := p.Stock + d.boxes
		if next < 0 {
			next = 0
		}
		if err := repo.UpdateStock(ctx, p.ID, next); err != nil {
			return fmt.Errorf("failed to update stock for product %d: %w", p.ID, err)
		}
		p.Stock = next
		products[p.ID] = p
	}
	return nil
}
