package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceOrderInput is a storefront checkout.
type PlaceOrderInput struct {
	CustomerName    string
	Items           []ItemInput
	DiscountPercent decimal.Decimal
}

// TransitionResult describes what a status change did.
// Sale is set only when the transition shipped the order.
type TransitionResult struct {
	Order           Order `json:"order"`
	Sale            *Sale `json:"sale,omitempty"`
	ReconciledSales int   `json:"reconciled_sales"`
	Changed         bool  `json:"changed"`
}

// OrderService manages storefront orders and converts shipped orders into dealer sales.
type OrderService interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error)
	// TransitionStatus moves an order to status. Shipping deducts stock and records a paid sale
	// under the "Order" dealer. Cancelling a shipped order restores the stock but keeps the sale.
	TransitionStatus(ctx context.Context, orderID int, status OrderStatus) (*TransitionResult, error)

	// Queries
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
}

type orderService struct {
	operation
	store Store
	log   *zap.Logger
}

func NewOrderService(store Store, opts Options) OrderService {
	opts = opts.withDefaults()
	return &orderService{
		operation: operation{opts: opts},
		store:     store,
		log:       opts.Logger.Named("orders"),
	}
}

// checkTransition rejects reopening a cancelled order and rolling back a shipped one.
// A cancelled order may still be shipped.
func checkTransition(order Order, to OrderStatus) error {
	switch order.Status {
	case OrderCancelled:
		if to != OrderShipped {
			return invalidf("order %s is cancelled and can only be shipped", order.OrderNumber)
		}
	case OrderShipped:
		if to != OrderCancelled {
			return invalidf("order %s is shipped and can only be cancelled", order.OrderNumber)
		}
	}
	return nil
}

func orderItemInputs(items []OrderItem) []ItemInput {
	out := make([]ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// ── Order Lifecycle ──────────────────────────────────────────────────────────

func (s *orderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.CustomerName == "" {
		return nil, invalidf("customer name is required")
	}
	if len(in.Items) == 0 {
		return nil, invalidf("order requires at least one item")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, invalidf("quantity for product %d must be positive", it.ProductID)
		}
	}
	if !ValidDiscountPercent(in.DiscountPercent) {
		return nil, invalidf("discount percent must be between 0 and 100 with at most two decimals")
	}

	var order Order
	err := s.run(ctx, "place_order", []string{orderNumberLockKey}, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			products, err := tx.Products().FindProducts(ctx, productIDs(in.Items))
			if err != nil {
				return fmt.Errorf("failed to load products: %w", err)
			}

			items := make([]OrderItem, 0, len(in.Items))
			subtotal := decimal.Zero
			for _, it := range in.Items {
				p, ok := products[it.ProductID]
				if !ok {
					return invalidf("product %d not found", it.ProductID)
				}
				line := OrderItem{
					ProductID:   p.ID,
					ProductName: p.Name,
					Quantity:    it.Quantity,
					Price:       p.Price,
					Total:       LineTotal(p.Price, it.Quantity),
				}
				subtotal = subtotal.Add(line.Total)
				items = append(items, line)
			}

			highest, count, err := tx.Orders().HighestOrderNumber(ctx)
			if err != nil {
				return fmt.Errorf("failed to allocate order number: %w", err)
			}

			b := CalculateTaxes(Round2(subtotal), in.DiscountPercent)
			now := s.now()
			order, err = tx.Orders().InsertOrder(ctx, Order{
				OrderNumber:     NextOrderNumber(highest, count),
				CustomerName:    in.CustomerName,
				Status:          OrderPending,
				Subtotal:        b.Subtotal,
				DiscountPercent: b.DiscountPercent,
				Discount:        b.Discount,
				TPS:             b.TPS,
				TVQ:             b.TVQ,
				Total:           b.Total,
				Items:           items,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			if err != nil {
				return fmt.Errorf("failed to insert order: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return &order, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, orderID int, status OrderStatus) (*TransitionResult, error) {
	if !status.Valid() {
		return nil, invalidf("invalid order status %q", status)
	}

	keys := []string{orderLockKey(orderID)}
	if status == OrderShipped {
		keys = append(keys, saleNumberLockKey)
	}

	var result TransitionResult
	err := s.run(ctx, "transition_order", keys, func() error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			order, err := tx.Orders().GetOrder(ctx, orderID)
			if err != nil {
				return err
			}
			result = TransitionResult{Order: order}
			if order.Status == status {
				return nil
			}
			if err := checkTransition(order, status); err != nil {
				return err
			}

			now := s.now()
			from := order.Status
			switch {
			case status == OrderShipped:
				sale, reconciled, err := s.shipOrder(ctx, tx, order)
				if err != nil {
					return err
				}
				result.Sale = sale
				result.ReconciledSales = reconciled
				order.ShippedAt = &now
				order.CancelledAt = nil
			case from == OrderShipped && status == OrderCancelled:
				if err := s.restoreOrderStock(ctx, tx, order); err != nil {
					return err
				}
			}
			if status == OrderCancelled {
				order.CancelledAt = &now
			}

			order.Status = status
			order.UpdatedAt = now
			if err := tx.Orders().UpdateOrderStatus(ctx, order); err != nil {
				return fmt.Errorf("failed to update order %d status: %w", order.ID, err)
			}
			result.Order = order
			result.Changed = true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		fields := []zap.Field{
			zap.String("order_number", result.Order.OrderNumber),
			zap.String("status", string(result.Order.Status)),
		}
		if result.Sale != nil {
			fields = append(fields, zap.String("sale_number", result.Sale.SaleNumber), zap.Int("reconciled", result.ReconciledSales))
		}
		s.log.Info("order status changed", fields...)
	}
	return &result, nil
}

// shipOrder deducts stock and records the paid sale for order. It returns the new sale
// and the number of earlier unpaid order sales it marked as paid.
func (s *orderService) shipOrder(ctx context.Context, tx Tx, order Order) (*Sale, int, error) {
	inputs := orderItemInputs(order.Items)
	products, err := tx.Products().FindProducts(ctx, productIDs(inputs))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load products: %w", err)
	}
	if err := CheckStock(products, inputs); err != nil {
		return nil, 0, err
	}
	if err := applyStock(ctx, tx.Products(), products, deductions(products, inputs)); err != nil {
		return nil, 0, err
	}

	dealer, err := orderDealer(ctx, tx.Dealers())
	if err != nil {
		return nil, 0, err
	}
	number, err := allocateSaleNumber(ctx, tx.Sales())
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	notes := fmt.Sprintf("%s %s", OrderNotePrefix, order.OrderNumber)
	orderID := order.ID
	totals := SaleTotals{Subtotal: order.Total, Total: order.Total}.ApplyPayment(order.Total, now)
	sale := totals.Apply(Sale{
		SaleNumber:    number,
		DealerID:      dealer.ID,
		DealerName:    dealer.CompanyName,
		PaymentMethod: PaymentCash,
		Notes:         &notes,
		IsSaved:       true,
		OrderID:       &orderID,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	sale, err = tx.Sales().InsertSale(ctx, sale)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to insert sale for order %s: %w", order.OrderNumber, err)
	}
	sale.DealerName = dealer.CompanyName

	lines := make([]SaleItem, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, SaleItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Total:       it.Total,
		})
	}
	sale.Items, err = tx.SaleItems().InsertSaleItems(ctx, sale.ID, lines)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to insert sale items for order %s: %w", order.OrderNumber, err)
	}

	reconciled, err := s.reconcileOrderSales(ctx, tx, dealer.ID)
	if err != nil {
		return nil, 0, err
	}
	return &sale, reconciled, nil
}

// reconcileOrderSales marks every unpaid order-note sale of the Order dealer as paid in full.
func (s *orderService) reconcileOrderSales(ctx context.Context, tx Tx, dealerID int) (int, error) {
	unpaid, err := tx.Sales().ListUnpaidByNotePrefix(ctx, dealerID, OrderNotePrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpaid order sales: %w", err)
	}
	n := 0
	for _, sale := range unpaid {
		if !sale.Total.IsPositive() {
			continue
		}
		now := s.now()
		sale = TotalsOf(sale).ApplyPayment(sale.Remaining(), now).Apply(sale)
		sale.UpdatedAt = now
		if err := tx.Sales().UpdateSale(ctx, sale); err != nil {
			return 0, fmt.Errorf("failed to mark sale %s paid: %w", sale.SaleNumber, err)
		}
		n++
	}
	return n, nil
}

func (s *orderService) restoreOrderStock(ctx context.Context, tx Tx, order Order) error {
	lines := make([]SaleItem, 0, len(order.Items))
	ids := make([]int, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, SaleItem{ProductID: it.ProductID, Quantity: it.Quantity})
		ids = append(ids, it.ProductID)
	}
	products, err := tx.Products().FindProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	return applyStock(ctx, tx.Products(), products, restorations(products, lines))
}

// orderDealer returns the synthetic dealer hosting order sales, creating it on first use.
func orderDealer(ctx context.Context, dealers DealerRepository) (Dealer, error) {
	d, err := dealers.FindDealerByName(ctx, OrderDealerName)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Dealer{}, fmt.Errorf("failed to look up order dealer: %w", err)
	}
	d, err = dealers.CreateDealer(ctx, Dealer{
		CompanyName:     OrderDealerName,
		DiscountPercent: decimal.Zero,
		IsActive:        true,
	})
	if err != nil {
		return Dealer{}, fmt.Errorf("failed to create order dealer: %w", err)
	}
	return d, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	var order Order
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		order, err = tx.Orders().GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *orderService) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		orders, err = tx.Orders().ListOrders(ctx)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		return nil
	})
	return orders, err
}
