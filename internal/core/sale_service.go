package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateSaleInput describes a new dealer sale.
type CreateSaleInput struct {
	Items         []ItemInput
	PaymentMethod PaymentMethod
	Notes         *string
}

// CreateSaleResult returns the stored sale and the tax-inclusive view of its amounts.
// The stored total never includes TPS/TVQ.
type CreateSaleResult struct {
	Sale      Sale         `json:"sale"`
	Breakdown TaxBreakdown `json:"breakdown"`
}

// PaymentInput records money received against a sale. Amount is ignored for UNPAID.
type PaymentInput struct {
	Amount          *decimal.Decimal
	PaymentMethod   PaymentMethod
	DiscountPercent *decimal.Decimal
}

// PaymentResult reports the balance after a payment.
type PaymentResult struct {
	Sale       Sale            `json:"sale"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// SaleService manages dealer sales, their line items, payments and the inventory they consume.
// Every mutating method runs in a single transaction: either all writes land, including stock,
// or none do.
type SaleService interface {
	CreateSale(ctx context.Context, dealerID int, in CreateSaleInput) (*CreateSaleResult, error)
	// AddItems appends lines to a dealer-originated sale and promotes it to the invoice list.
	// Unknown products and non-positive quantities are skipped.
	AddItems(ctx context.Context, saleID, dealerID int, items []ItemInput) (*Sale, error)
	RemoveItem(ctx context.Context, saleID, dealerID, itemID int) (*Sale, error)
	RecordPayment(ctx context.Context, saleID, dealerID int, in PaymentInput) (*PaymentResult, error)
	CancelPayment(ctx context.Context, saleID, dealerID int) (*Sale, error)
	DeleteSale(ctx context.Context, saleID, dealerID int) error

	// Invoice list
	SaveInvoice(ctx context.Context, saleID, dealerID int) (*Sale, error)
	UnsaveInvoice(ctx context.Context, saleID, dealerID int) (*Sale, error)

	// Queries
	GetSale(ctx context.Context, saleID, dealerID int) (*Sale, error)
	ListSalesForDealer(ctx context.Context, dealerID int) ([]Sale, error)
	ListSavedInvoices(ctx context.Context) ([]Sale, error)
}

type saleService struct {
	operation
	store Store
	log   *zap.Logger
}

func NewSaleService(store Store, opts Options) SaleService {
	opts = opts.withDefaults()
	return &saleService{
		operation: operation{opts: opts},
		store:     store,
		log:       opts.Logger.Named("sales"),
	}
}

// loadOwnedSale locks the sale and checks that it belongs to dealerID.
func loadOwnedSale(ctx context.Context, tx Tx, saleID, dealerID int) (Sale, error) {
	sale, err := tx.Sales().GetSale(ctx, saleID)
	if err != nil {
		return Sale{}, err
	}
	if sale.DealerID != dealerID {
		return Sale{}, notFoundf("sale %d not found for dealer %d", saleID, dealerID)
	}
	return sale, nil
}

// loadEditableSale additionally rejects sales produced by the order bridge.
func loadEditableSale(ctx context.Context, tx Tx, saleID, dealerID int) (Sale, error) {
	sale, err := loadOwnedSale(ctx, tx, saleID, dealerID)
	if err != nil {
		return Sale{}, err
	}
	if !IsDealerSaleNumber(sale.SaleNumber) || sale.OrderID != nil {
		return Sale{}, notFoundf("sale %s does not accept item changes", sale.SaleNumber)
	}
	return sale, nil
}

func productIDs(items []ItemInput) []int {
	seen := make(map[int]bool, len(items))
	ids := make([]int, 0, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}

// buildSaleItems snapshots the current product price onto each line.
func buildSaleItems(products map[int]Product, items []ItemInput) []SaleItem {
	out := make([]SaleItem, 0, len(items))
	for _, it := range items {
		p := products[it.ProductID]
		out = append(out, SaleItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       p.Price,
			Total:       LineTotal(p.Price, it.Quantity),
		})
	}
	return out
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *saleService) CreateSale(ctx context.Context, dealerID int, in CreateSaleInput) (*CreateSaleResult, error) {
	if !in.PaymentMethod.Valid() {
		return nil, invalidf("invalid payment method %q", in.PaymentMethod)
	}
	if len(in.Items) == 0 {
		return nil, invalidf("sale requires at least one item")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, invalidf("quantity for product %d must be positive", it.ProductID)
		}
	}

	var result CreateSaleResult
	err := s.run(ctx, "create_sale", []string{saleNumberLockKey}, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			dealer, err := tx.Dealers().GetDealer(ctx, dealerID)
			if err != nil {
				return err
			}

			products, err := tx.Products().FindProducts(ctx, productIDs(in.Items))
			if err != nil {
				return fmt.Errorf("failed to load products: %w", err)
			}
			for _, it := range in.Items {
				if _, ok := products[it.ProductID]; !ok {
					return invalidf("product %d not found", it.ProductID)
				}
			}
			if err := CheckStock(products, in.Items); err != nil {
				return err
			}

			lines := buildSaleItems(products, in.Items)
			subtotal := SubtotalOf(lines)
			totals := SaleTotals{DiscountPercent: dealer.DiscountPercent}.WithSubtotal(subtotal)
			now := s.now()
			if in.PaymentMethod != PaymentUnpaid && totals.Total.IsPositive() {
				totals = totals.ApplyPayment(totals.Total, now)
			}

			number, err := allocateSaleNumber(ctx, tx.Sales())
			if err != nil {
				return err
			}

			sale := totals.Apply(Sale{
				SaleNumber:    number,
				DealerID:      dealer.ID,
				DealerName:    dealer.CompanyName,
				PaymentMethod: in.PaymentMethod,
				Notes:         in.Notes,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			sale, err = tx.Sales().InsertSale(ctx, sale)
			if err != nil {
				return fmt.Errorf("failed to insert sale: %w", err)
			}
			sale.DealerName = dealer.CompanyName

			sale.Items, err = tx.SaleItems().InsertSaleItems(ctx, sale.ID, lines)
			if err != nil {
				return fmt.Errorf("failed to insert sale items: %w", err)
			}
			if err := applyStock(ctx, tx.Products(), products, deductions(products, in.Items)); err != nil {
				return err
			}

			result = CreateSaleResult{Sale: sale, Breakdown: CalculateTaxes(subtotal, dealer.DiscountPercent)}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale created",
		zap.String("sale_number", result.Sale.SaleNumber),
		zap.Int("dealer_id", dealerID),
		zap.String("total", result.Sale.Total.StringFixed(2)),
	)
	return &result, nil
}

func (s *saleService) AddItems(ctx context.Context, saleID, dealerID int, items []ItemInput) (*Sale, error) {
	if len(items) == 0 {
		return nil, invalidf("no items to add")
	}

	var sale Sale
	err := s.run(ctx, "add_items", []string{saleLockKey(saleID)}, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			sale, err = loadEditableSale(ctx, tx, saleID, dealerID)
			if err != nil {
				return err
			}

			products, err := tx.Products().FindProducts(ctx, productIDs(items))
			if err != nil {
				return fmt.Errorf("failed to load products: %w", err)
			}
			accepted := make([]ItemInput, 0, len(items))
			for _, it := range items {
				if _, ok := products[it.ProductID]; !ok || it.Quantity <= 0 {
					continue
				}
				accepted = append(accepted, it)
			}
			if err := CheckStock(products, accepted); err != nil {
				return err
			}

			if len(accepted) > 0 {
				if _, err := tx.SaleItems().InsertSaleItems(ctx, sale.ID, buildSaleItems(products, accepted)); err != nil {
					return fmt.Errorf("failed to insert sale items: %w", err)
				}
				if err := applyStock(ctx, tx.Products(), products, deductions(products, accepted)); err != nil {
					return err
				}
			}

			sale, err = s.recompute(ctx, tx, sale)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale items added",
		zap.String("sale_number", sale.SaleNumber),
		zap.Int("lines", len(sale.Items)),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	return &sale, nil
}

func (s *saleService) RemoveItem(ctx context.Context, saleID, dealerID, itemID int) (*Sale, error) {
	var sale Sale
	err := s.run(ctx, "remove_item", []string{saleLockKey(saleID)}, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			sale, err = loadEditableSale(ctx, tx, saleID, dealerID)
			if err != nil {
				return err
			}
			item, err := tx.SaleItems().GetSaleItem(ctx, sale.ID, itemID)
			if err != nil {
				return err
			}

			products, err := tx.Products().FindProducts(ctx, []int{item.ProductID})
			if err != nil {
				return fmt.Errorf("failed to load products: %w", err)
			}
			restore := restorations(products, []SaleItem{item})
			if err := applyStock(ctx, tx.Products(), products, restore); err != nil {
				return err
			}
			if err := tx.SaleItems().DeleteSaleItem(ctx, item.ID); err != nil {
				return fmt.Errorf("failed to delete sale item %d: %w", item.ID, err)
			}

			sale, err = s.recompute(ctx, tx, sale)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale item removed",
		zap.String("sale_number", sale.SaleNumber),
		zap.Int("item_id", itemID),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	return &sale, nil
}

// recompute rebuilds the totals of sale from every current line and persists it as saved.
func (s *saleService) recompute(ctx context.Context, tx Tx, sale Sale) (Sale, error) {
	lines, err := tx.SaleItems().ListSaleItems(ctx, sale.ID)
	if err != nil {
		return Sale{}, fmt.Errorf("failed to list sale items: %w", err)
	}
	sale = RecomputeTotals(sale, lines).Apply(sale)
	sale.IsSaved = true
	sale.UpdatedAt = s.now()
	if err := tx.Sales().UpdateSale(ctx, sale); err != nil {
		return Sale{}, fmt.Errorf("failed to update sale %d: %w", sale.ID, err)
	}
	sale.Items = lines
	return sale, nil
}

// restorations returns the box increments that undo the deduction of items.
func restorations(products map[int]Product, items []SaleItem) []stockDelta {
	var out []stockDelta
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.TrackStock {
			continue
		}
		out = append(out, stockDelta{productID: p.ID, boxes: BoxesFor(it.Quantity, p.PackSize)})
	}
	return out
}

// ── Payments ─────────────────────────────────────────────────────────────────

func (s *saleService) RecordPayment(ctx context.Context, saleID, dealerID int, in PaymentInput) (*PaymentResult, error) {
	if !in.PaymentMethod.Valid() {
		return nil, invalidf("invalid payment method %q", in.PaymentMethod)
	}
	if in.PaymentMethod != PaymentUnpaid && (in.Amount == nil || !in.Amount.IsPositive()) {
		return nil, invalidf("payment amount must be positive")
	}
	if in.DiscountPercent != nil && !ValidDiscountPercent(*in.DiscountPercent) {
		return nil, invalidf("discount percent must be between 0 and 100 with at most two decimals")
	}

	var result PaymentResult
	err := s.run(ctx, "record_payment", []string{saleLockKey(saleID)}, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			sale, err := loadOwnedSale(ctx, tx, saleID, dealerID)
			if err != nil {
				return err
			}

			totals := TotalsOf(sale)
			if in.DiscountPercent != nil {
				totals = totals.WithDiscountPercent(*in.DiscountPercent)
			}
			if in.PaymentMethod == PaymentUnpaid {
				totals = totals.ClearPayment()
			} else {
				totals = totals.ApplyPayment(*in.Amount, s.now())
			}

			sale = totals.Apply(sale)
			sale.PaymentMethod = in.PaymentMethod
			sale.UpdatedAt = s.now()
			if err := tx.Sales().UpdateSale(ctx, sale); err != nil {
				return fmt.Errorf("failed to update sale %d: %w", sale.ID, err)
			}

			result = PaymentResult{Sale: sale, PaidAmount: sale.PaidAmount, Remaining: totals.Remaining()}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.String("sale_number", result.Sale.SaleNumber),
		zap.String("method", string(in.PaymentMethod)),
		zap.String("paid", result.PaidAmount.StringFixed(2)),
		zap.String("remaining", result.Remaining.StringFixed(2)),
	)
	return &result, nil
}

func (s *saleService) CancelPayment(ctx context.Context, saleID, dealerID int) (*Sale, error) {
	return s.mutate(ctx, "cancel_payment", saleID, dealerID, func(sale Sale) Sale {
		return TotalsOf(sale).ClearPayment().Apply(sale)
	})
}

func (s *saleService) SaveInvoice(ctx context.Context, saleID, dealerID int) (*Sale, error) {
	return s.mutate(ctx, "save_invoice", saleID, dealerID, func(sale Sale) Sale {
		sale.IsSaved = true
		return sale
	})
}

func (s *saleService) UnsaveInvoice(ctx context.Context, saleID, dealerID int) (*Sale, error) {
	return s.mutate(ctx, "unsave_invoice", saleID, dealerID, func(sale Sale) Sale {
		sale.IsSaved = false
		return sale
	})
}

// mutate applies a header-only change to an owned sale.
func (s *saleService) mutate(ctx context.Context, op string, saleID, dealerID int, change func(Sale) Sale) (*Sale, error) {
	var sale Sale
	err := s.run(ctx, op, []string{saleLockKey(saleID)}, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			current, err := loadOwnedSale(ctx, tx, saleID, dealerID)
			if err != nil {
				return err
			}
			sale = change(current)
			sale.UpdatedAt = s.now()
			if err := tx.Sales().UpdateSale(ctx, sale); err != nil {
				return fmt.Errorf("failed to update sale %d: %w", sale.ID, err)
			}
			sale.Items, err = tx.SaleItems().ListSaleItems(ctx, sale.ID)
			if err != nil {
				return fmt.Errorf("failed to list sale items: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("sale updated", zap.String("op", op), zap.String("sale_number", sale.SaleNumber))
	return &sale, nil
}

func (s *saleService) DeleteSale(ctx context.Context, saleID, dealerID int) error {
	var number string
	err := s.run(ctx, "delete_sale", []string{saleLockKey(saleID)}, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			sale, err := loadOwnedSale(ctx, tx, saleID, dealerID)
			if err != nil {
				return err
			}
			number = sale.SaleNumber

			if s.opts.RestoreStockOnDelete {
				lines, err := tx.SaleItems().ListSaleItems(ctx, sale.ID)
				if err != nil {
					return fmt.Errorf("failed to list sale items: %w", err)
				}
				ids := make([]int, 0, len(lines))
				for _, l := range lines {
					ids = append(ids, l.ProductID)
				}
				products, err := tx.Products().FindProducts(ctx, ids)
				if err != nil {
					return fmt.Errorf("failed to load products: %w", err)
				}
				if err := applyStock(ctx, tx.Products(), products, restorations(products, lines)); err != nil {
					return err
				}
			}

			if err := tx.SaleItems().DeleteSaleItems(ctx, sale.ID); err != nil {
				return fmt.Errorf("failed to delete items of sale %d: %w", sale.ID, err)
			}
			if err := tx.Sales().DeleteSale(ctx, sale.ID); err != nil {
				return fmt.Errorf("failed to delete sale %d: %w", sale.ID, err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("sale deleted",
		zap.String("sale_number", number),
		zap.Bool("stock_restored", s.opts.RestoreStockOnDelete),
	)
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, saleID, dealerID int) (*Sale, error) {
	var sale Sale
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		sale, err = loadOwnedSale(ctx, tx, saleID, dealerID)
		if err != nil {
			return err
		}
		sale.Items, err = tx.SaleItems().ListSaleItems(ctx, sale.ID)
		if err != nil {
			return fmt.Errorf("failed to list sale items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *saleService) ListSalesForDealer(ctx context.Context, dealerID int) ([]Sale, error) {
	var sales []Sale
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Dealers().GetDealer(ctx, dealerID); err != nil {
			return err
		}
		var err error
		sales, err = tx.Sales().ListSalesForDealer(ctx, dealerID)
		if err != nil {
			return fmt.Errorf("failed to list sales for dealer %d: %w", dealerID, err)
		}
		return nil
	})
	return sales, err
}

func (s *saleService) ListSavedInvoices(ctx context.Context) ([]Sale, error) {
	var sales []Sale
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		sales, err = tx.Sales().ListSavedInvoices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}
		return nil
	})
	return sales, err
}
