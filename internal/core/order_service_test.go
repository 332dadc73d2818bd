package core_test

import (
	"context"
	"errors"
	"testing"

	"dealer-ledger/internal/core"
)

func placeOrder(t *testing.T, l *ledger, pct string, items ...core.ItemInput) *core.Order {
	t.Helper()
	o, err := l.orders.PlaceOrder(context.Background(), core.PlaceOrderInput{
		CustomerName:    "Jane Roe",
		Items:           items,
		DiscountPercent: dec(pct),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return o
}

func TestPlaceOrder_TaxInclusiveTotal(t *testing.T) {
	l := newLedger(t, core.Options{})
	p := l.product("100", 10, 1, true)

	o := placeOrder(t, l, "10", core.ItemInput{ProductID: p.ID, Quantity: 2})

	if o.OrderNumber != "ORD-000001" || o.Status != core.OrderPending {
		t.Errorf("unexpected order header: %s %s", o.OrderNumber, o.Status)
	}
	assertDec(t, "subtotal", o.Subtotal, "200")
	assertDec(t, "discount", o.Discount, "20")
	assertDec(t, "tps", o.TPS, "9")
	assertDec(t, "tvq", o.TVQ, "17.96")
	assertDec(t, "total", o.Total, "206.96")
	if got := l.stock(t, p.ID); got != 10 {
		t.Errorf("placing an order must not move stock, got %d", got)
	}
}

func TestTransitionStatus_ShipCreatesPaidOrderSale(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	a := l.product("10", 10, 1, true)
	b := l.product("20", 3, 4, true)
	o := placeOrder(t, l, "0",
		core.ItemInput{ProductID: a.ID, Quantity: 3},
		core.ItemInput{ProductID: b.ID, Quantity: 5},
	)
	assertDec(t, "order total", o.Total, "149.47")

	res, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderShipped)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	if l.stock(t, a.ID) != 7 || l.stock(t, b.ID) != 1 {
		t.Errorf("stock = %d/%d, want 7/1", l.stock(t, a.ID), l.stock(t, b.ID))
	}
	if res.Order.Status != core.OrderShipped || res.Order.ShippedAt == nil {
		t.Errorf("order not shipped: %+v", res.Order)
	}
	if res.Sale == nil {
		t.Fatal("expected a sale")
	}

	s := *res.Sale
	if s.DealerName != core.OrderDealerName || s.PaymentMethod != core.PaymentCash {
		t.Errorf("dealer/method = %s/%s", s.DealerName, s.PaymentMethod)
	}
	if !s.IsPaid || !s.IsSaved || s.OrderID == nil || *s.OrderID != o.ID {
		t.Errorf("unexpected sale flags: %+v", s)
	}
	if s.Notes == nil || *s.Notes != "Sipariş: "+o.OrderNumber {
		t.Errorf("notes = %v", s.Notes)
	}
	assertDec(t, "sale total", s.Total, "149.47")
	assertDec(t, "sale paid", s.PaidAmount, "149.47")
	assertSaleInvariants(t, s)
	if len(s.Items) != 2 {
		t.Errorf("mirrored items = %d, want 2", len(s.Items))
	}

	sales := l.store.Sales()
	if len(sales) != 1 {
		t.Errorf("sales = %d, want exactly 1", len(sales))
	}

	// Order sales do not accept item edits.
	if _, err := l.sales.AddItems(ctx, s.ID, s.DealerID, []core.ItemInput{{ProductID: a.ID, Quantity: 1}}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("AddItems on order sale: got %v", err)
	}
}

func TestTransitionStatus_ReusesOrderDealerAndReconciles(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	dealer := l.store.PutDealer(core.Dealer{CompanyName: core.OrderDealerName, DiscountPercent: dec("0"), IsActive: true})
	p := l.product("10", 100, 1, true)

	note := "Sipariş: ORD-LEGACY"
	stale := l.store.PutSale(core.Sale{
		SaleNumber:    "SAL-000005",
		DealerID:      dealer.ID,
		PaymentMethod: core.PaymentUnpaid,
		Subtotal:      dec("40"),
		Total:         dec("40"),
		Notes:         &note,
	})

	o := placeOrder(t, l, "0", core.ItemInput{ProductID: p.ID, Quantity: 1})
	res, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderShipped)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	if res.Sale.DealerID != dealer.ID {
		t.Errorf("sale dealer = %d, want existing Order dealer %d", res.Sale.DealerID, dealer.ID)
	}
	if res.Sale.SaleNumber != "SAL-000006" {
		t.Errorf("sale number = %s", res.Sale.SaleNumber)
	}
	if res.ReconciledSales != 1 {
		t.Errorf("reconciled = %d, want 1", res.ReconciledSales)
	}

	got, err := l.sales.GetSale(ctx, stale.ID, dealer.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if !got.IsPaid {
		t.Error("stale order sale should be marked paid")
	}
	assertDec(t, "paid", got.PaidAmount, "40")
	assertSaleInvariants(t, *got)
}

func TestTransitionStatus_CancelShippedRestoresStock(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	p := l.product("10", 4, 6, true)
	o := placeOrder(t, l, "0", core.ItemInput{ProductID: p.ID, Quantity: 7})

	if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderShipped); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if got := l.stock(t, p.ID); got != 2 {
		t.Fatalf("stock after ship = %d, want 2", got)
	}

	res, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := l.stock(t, p.ID); got != 4 {
		t.Errorf("stock after cancel = %d, want 4", got)
	}
	if res.Order.CancelledAt == nil || res.Sale != nil {
		t.Errorf("unexpected cancel result: %+v", res)
	}
	if n := len(l.store.Sales()); n != 1 {
		t.Errorf("the shipped sale stays as history, got %d sales", n)
	}

	if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderPending); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("cancelled orders cannot be reopened, got %v", err)
	}
}

func TestTransitionStatus_Rules(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	p := l.product("10", 100, 1, true)

	t.Run("same status is a no-op", func(t *testing.T) {
		o := placeOrder(t, l, "0", core.ItemInput{ProductID: p.ID, Quantity: 1})
		res, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderPending)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Changed {
			t.Error("expected no change")
		}
	})

	t.Run("shipped cannot go back to approved", func(t *testing.T) {
		o := placeOrder(t, l, "0", core.ItemInput{ProductID: p.ID, Quantity: 1})
		if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderShipped); err != nil {
			t.Fatalf("ship: %v", err)
		}
		if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderApproved); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("cancel before shipping leaves stock alone", func(t *testing.T) {
		before := l.stock(t, p.ID)
		o := placeOrder(t, l, "0", core.ItemInput{ProductID: p.ID, Quantity: 5})
		if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderApproved); err != nil {
			t.Fatalf("approve: %v", err)
		}
		if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got := l.stock(t, p.ID); got != before {
			t.Errorf("stock = %d, want %d", got, before)
		}
	})

	t.Run("cancelled order can still ship", func(t *testing.T) {
		before := l.stock(t, p.ID)
		salesBefore := len(l.store.Sales())
		o := placeOrder(t, l, "0", core.ItemInput{ProductID: p.ID, Quantity: 3})
		if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		res, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderShipped)
		if err != nil {
			t.Fatalf("ship after cancel: %v", err)
		}
		if res.Sale == nil || !res.Sale.IsPaid {
			t.Fatalf("expected a paid sale, got %+v", res.Sale)
		}
		if res.Order.Status != core.OrderShipped || res.Order.ShippedAt == nil || res.Order.CancelledAt != nil {
			t.Errorf("unexpected order after ship: %+v", res.Order)
		}
		if got := l.stock(t, p.ID); got != before-3 {
			t.Errorf("stock = %d, want %d", got, before-3)
		}
		if n := len(l.store.Sales()); n != salesBefore+1 {
			t.Errorf("sales = %d, want %d", n, salesBefore+1)
		}
	})

	t.Run("cancelled order cannot be approved", func(t *testing.T) {
		o := placeOrder(t, l, "0", core.ItemInput{ProductID: p.ID, Quantity: 1})
		if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderApproved); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("unknown status and order", func(t *testing.T) {
		if _, err := l.orders.TransitionStatus(ctx, 1, "LOST"); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("got %v", err)
		}
		if _, err := l.orders.TransitionStatus(ctx, 9999, core.OrderShipped); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("got %v", err)
		}
	})
}

func TestTransitionStatus_ShortStockRollsBack(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	ok := l.product("10", 10, 1, true)
	short := l.product("10", 1, 2, true)
	o := placeOrder(t, l, "0",
		core.ItemInput{ProductID: ok.ID, Quantity: 2},
		core.ItemInput{ProductID: short.ID, Quantity: 3},
	)

	_, err := l.orders.TransitionStatus(ctx, o.ID, core.OrderShipped)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	got, err := l.orders.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != core.OrderPending {
		t.Errorf("status = %s, want PENDING", got.Status)
	}
	if l.stock(t, ok.ID) != 10 || l.stock(t, short.ID) != 1 {
		t.Error("stock changed on a failed shipment")
	}
	if n := len(l.store.Sales()); n != 0 {
		t.Errorf("sales = %d, want 0", n)
	}

	orders, err := l.orders.ListOrders(ctx)
	if err != nil || len(orders) != 1 {
		t.Fatalf("ListOrders = %d, %v", len(orders), err)
	}
}
