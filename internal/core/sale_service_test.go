package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dealer-ledger/internal/core"
	"dealer-ledger/internal/store/memory"
)

type ledger struct {
	store  *memory.Store
	sales  core.SaleService
	orders core.OrderService
}

func newLedger(t *testing.T, opts core.Options) *ledger {
	t.Helper()
	if opts.Now == nil {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		opts.Now = func() time.Time { return now }
	}
	store := memory.New()
	return &ledger{
		store:  store,
		sales:  core.NewSaleService(store, opts),
		orders: core.NewOrderService(store, opts),
	}
}

func (l *ledger) dealer(pct string) core.Dealer {
	return l.store.PutDealer(core.Dealer{CompanyName: "Acme " + pct, DiscountPercent: dec(pct), IsActive: true})
}

func (l *ledger) product(price string, stock, pack int, track bool) core.Product {
	return l.store.PutProduct(core.Product{
		Name:       fmt.Sprintf("Product %s/%d", price, pack),
		Price:      dec(price),
		Stock:      stock,
		PackSize:   pack,
		TrackStock: track,
	})
}

func (l *ledger) stock(t *testing.T, id int) int {
	t.Helper()
	p, ok := l.store.Product(id)
	if !ok {
		t.Fatalf("product %d missing", id)
	}
	return p.Stock
}

func assertSaleInvariants(t *testing.T, s core.Sale) {
	t.Helper()
	want := core.AfterDiscount(s.Subtotal, s.Discount)
	if !s.Total.Equal(want) {
		t.Errorf("total %s != max(0, subtotal - discount) %s", s.Total, want)
	}
	if s.PaidAmount.GreaterThan(s.Total) {
		t.Errorf("paid %s exceeds total %s", s.PaidAmount, s.Total)
	}
	paid := s.Total.IsPositive() && s.PaidAmount.GreaterThanOrEqual(s.Total)
	if s.IsPaid != paid {
		t.Errorf("is_paid = %v, want %v (paid %s, total %s)", s.IsPaid, paid, s.PaidAmount, s.Total)
	}
}

func amount(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// ── CreateSale ───────────────────────────────────────────────────────────────

func TestCreateSale_DealerDiscount(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("10")
	p := l.product("100", 10, 1, true)

	res, err := l.sales.CreateSale(ctx, d.ID, core.CreateSaleInput{
		Items:         []core.ItemInput{{ProductID: p.ID, Quantity: 2}},
		PaymentMethod: core.PaymentCash,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	s := res.Sale
	assertDec(t, "subtotal", s.Subtotal, "200.00")
	assertDec(t, "discount", s.Discount, "20.00")
	assertDec(t, "total", s.Total, "180.00")
	assertDec(t, "total with tax", res.Breakdown.Total, "206.96")
	assertDec(t, "paid", s.PaidAmount, "180.00")
	assertSaleInvariants(t, s)

	if s.SaleNumber != "SAL-000001" {
		t.Errorf("sale number = %s", s.SaleNumber)
	}
	if !s.IsPaid || s.PaidAt == nil {
		t.Error("expected cash sale to be paid")
	}
	if s.IsSaved {
		t.Error("new sales start as drafts")
	}
	if len(s.Items) != 1 || !s.Items[0].Price.Equal(dec("100")) {
		t.Fatalf("unexpected items: %+v", s.Items)
	}
	if got := l.stock(t, p.ID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
}

func TestCreateSale_UnpaidAndPackSize(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("2.50", 3, 12, true)

	res, err := l.sales.CreateSale(ctx, d.ID, core.CreateSaleInput{
		Items:         []core.ItemInput{{ProductID: p.ID, Quantity: 13}},
		PaymentMethod: core.PaymentUnpaid,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if res.Sale.IsPaid || !res.Sale.PaidAmount.IsZero() || res.Sale.PaidAt != nil {
		t.Errorf("unpaid sale has payment state: %+v", res.Sale)
	}
	assertDec(t, "total", res.Sale.Total, "32.50")
	if got := l.stock(t, p.ID); got != 1 {
		t.Errorf("stock = %d, want 1 (13 units consume 2 boxes of 12)", got)
	}
}

func TestCreateSale_Validation(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("10", 5, 1, true)

	tests := []struct {
		name     string
		dealerID int
		in       core.CreateSaleInput
		want     error
	}{
		{"unknown dealer", 999, core.CreateSaleInput{Items: []core.ItemInput{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: core.PaymentCash}, core.ErrNotFound},
		{"no items", d.ID, core.CreateSaleInput{PaymentMethod: core.PaymentCash}, core.ErrInvalidInput},
		{"bad method", d.ID, core.CreateSaleInput{Items: []core.ItemInput{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: "BITCOIN"}, core.ErrInvalidInput},
		{"unknown product", d.ID, core.CreateSaleInput{Items: []core.ItemInput{{ProductID: 404, Quantity: 1}}, PaymentMethod: core.PaymentCash}, core.ErrInvalidInput},
		{"zero quantity", d.ID, core.CreateSaleInput{Items: []core.ItemInput{{ProductID: p.ID, Quantity: 0}}, PaymentMethod: core.PaymentCash}, core.ErrInvalidInput},
		{"oversold", d.ID, core.CreateSaleInput{Items: []core.ItemInput{{ProductID: p.ID, Quantity: 6}}, PaymentMethod: core.PaymentCash}, core.ErrInsufficientStock},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.sales.CreateSale(ctx, tc.dealerID, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	if got := l.stock(t, p.ID); got != 5 {
		t.Errorf("failed creates must not touch stock: got %d", got)
	}
	if n := len(l.store.Sales()); n != 0 {
		t.Errorf("failed creates must not persist sales: got %d", n)
	}
}

func TestCreateSale_NumberFollowsHighestExisting(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("1", 0, 1, false)

	// Seeded out of order with gaps.
	for _, n := range []int{7, 42, 1, 30} {
		l.store.PutSale(core.Sale{SaleNumber: fmt.Sprintf("SAL-%06d", n), DealerID: d.ID})
	}

	res, err := l.sales.CreateSale(ctx, d.ID, core.CreateSaleInput{
		Items:         []core.ItemInput{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: core.PaymentCard,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if res.Sale.SaleNumber != "SAL-000043" {
		t.Errorf("sale number = %s, want SAL-000043", res.Sale.SaleNumber)
	}
}

// ── AddItems / RemoveItem ────────────────────────────────────────────────────

func createDraft(t *testing.T, l *ledger, dealerID int, items ...core.ItemInput) core.Sale {
	t.Helper()
	res, err := l.sales.CreateSale(context.Background(), dealerID, core.CreateSaleInput{
		Items:         items,
		PaymentMethod: core.PaymentUnpaid,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	return res.Sale
}

func TestAddItems_InsufficientStockLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	base := l.product("5", 100, 1, true)
	short := l.product("8", 2, 10, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: base.ID, Quantity: 1})

	_, err := l.sales.AddItems(ctx, sale.ID, d.ID, []core.ItemInput{
		{ProductID: base.ID, Quantity: 3},
		{ProductID: short.ID, Quantity: 50},
	})
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductName != short.Name || stockErr.Available != 20 || stockErr.Requested != 50 {
		t.Errorf("unexpected details: %+v", stockErr)
	}

	got, err := l.sales.GetSale(ctx, sale.ID, d.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if len(got.Items) != 1 {
		t.Errorf("items = %d, want 1", len(got.Items))
	}
	if l.stock(t, short.ID) != 2 || l.stock(t, base.ID) != 99 {
		t.Errorf("stock mutated: short=%d base=%d", l.stock(t, short.ID), l.stock(t, base.ID))
	}
}

func TestAddItems_RepeatedProductCannotOverdrawBoxes(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	base := l.product("5", 100, 1, true)
	p := l.product("8", 1, 10, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: base.ID, Quantity: 1})

	_, err := l.sales.AddItems(ctx, sale.ID, d.ID, []core.ItemInput{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: p.ID, Quantity: 1},
	})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := l.stock(t, p.ID); got != 1 {
		t.Fatalf("stock = %d, want 1", got)
	}

	added, err := l.sales.AddItems(ctx, sale.ID, d.ID, []core.ItemInput{{ProductID: p.ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if got := l.stock(t, p.ID); got != 0 {
		t.Fatalf("stock after add = %d, want 0", got)
	}
	for _, it := range added.Items {
		if it.ProductID != p.ID {
			continue
		}
		if _, err := l.sales.RemoveItem(ctx, sale.ID, d.ID, it.ID); err != nil {
			t.Fatalf("RemoveItem: %v", err)
		}
	}
	if got := l.stock(t, p.ID); got != 1 {
		t.Errorf("stock after remove = %d, want 1", got)
	}
}

func TestAddItems_RecomputesFromAllLines(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("10")
	a := l.product("40", 10, 1, true)
	b := l.product("15", 10, 1, false)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: a.ID, Quantity: 1})

	got, err := l.sales.AddItems(ctx, sale.ID, d.ID, []core.ItemInput{
		{ProductID: b.ID, Quantity: 2},
		{ProductID: 999, Quantity: 1},   // skipped
		{ProductID: a.ID, Quantity: -1}, // skipped
	})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	assertDec(t, "subtotal", got.Subtotal, "70")
	assertDec(t, "discount", got.Discount, "7")
	assertDec(t, "total", got.Total, "63")
	assertSaleInvariants(t, *got)
	if !got.IsSaved {
		t.Error("AddItems promotes the sale to the invoice list")
	}
	if len(got.Items) != 2 {
		t.Errorf("items = %d, want 2", len(got.Items))
	}
}

func TestAddItems_RecapsPaidAmount(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("50", 10, 1, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 2})

	if _, err := l.sales.RecordPayment(ctx, sale.ID, d.ID, core.PaymentInput{Amount: amount("100"), PaymentMethod: core.PaymentCash}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	got, err := l.sales.AddItems(ctx, sale.ID, d.ID, []core.ItemInput{{ProductID: p.ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if got.IsPaid {
		t.Error("adding a line to a paid sale reopens it")
	}
	assertDec(t, "paid", got.PaidAmount, "100")
	assertDec(t, "remaining", got.Remaining(), "50")
	assertSaleInvariants(t, *got)
}

func TestAddItemsThenRemoveItem_RoundTrip(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("12.5")
	a := l.product("19.99", 7, 6, true)
	b := l.product("3.35", 40, 1, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: b.ID, Quantity: 4})
	before, err := l.sales.GetSale(ctx, sale.ID, d.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	stockBefore := l.stock(t, a.ID)

	added, err := l.sales.AddItems(ctx, sale.ID, d.ID, []core.ItemInput{{ProductID: a.ID, Quantity: 8}})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if l.stock(t, a.ID) != stockBefore-2 {
		t.Fatalf("stock after add = %d, want %d", l.stock(t, a.ID), stockBefore-2)
	}
	var newItem core.SaleItem
	for _, it := range added.Items {
		if it.ProductID == a.ID {
			newItem = it
		}
	}

	after, err := l.sales.RemoveItem(ctx, sale.ID, d.ID, newItem.ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !after.Subtotal.Equal(before.Subtotal) || !after.Total.Equal(before.Total) {
		t.Errorf("subtotal/total = %s/%s, want %s/%s", after.Subtotal, after.Total, before.Subtotal, before.Total)
	}
	if got := l.stock(t, a.ID); got != stockBefore {
		t.Errorf("stock = %d, want %d", got, stockBefore)
	}
	if !after.IsSaved {
		t.Error("RemoveItem keeps the sale saved")
	}
	assertSaleInvariants(t, *after)
}

func TestAddItems_OwnershipAndOrigin(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	other := l.dealer("5")
	p := l.product("10", 50, 1, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 1})
	legacy := l.store.PutSale(core.Sale{SaleNumber: "INV-2020-1", DealerID: d.ID})

	items := []core.ItemInput{{ProductID: p.ID, Quantity: 1}}
	if _, err := l.sales.AddItems(ctx, sale.ID, other.ID, items); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("wrong dealer: got %v", err)
	}
	if _, err := l.sales.AddItems(ctx, legacy.ID, d.ID, items); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("non SAL- number: got %v", err)
	}
	if _, err := l.sales.AddItems(ctx, 12345, d.ID, items); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing sale: got %v", err)
	}
	if _, err := l.sales.RemoveItem(ctx, sale.ID, d.ID, 777); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing item: got %v", err)
	}
}

// ── Payments ─────────────────────────────────────────────────────────────────

func TestRecordPayment_PartialThenFull(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("50", 10, 1, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 2})
	assertDec(t, "total", sale.Total, "100.00")

	first, err := l.sales.RecordPayment(ctx, sale.ID, d.ID, core.PaymentInput{Amount: amount("60"), PaymentMethod: core.PaymentCash})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	assertDec(t, "paid", first.PaidAmount, "60")
	assertDec(t, "remaining", first.Remaining, "40")
	if first.Sale.IsPaid {
		t.Error("partial payment must not mark the sale paid")
	}

	second, err := l.sales.RecordPayment(ctx, sale.ID, d.ID, core.PaymentInput{Amount: amount("40"), PaymentMethod: core.PaymentCash})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	assertDec(t, "paid", second.PaidAmount, "100")
	assertDec(t, "remaining", second.Remaining, "0")
	if !second.Sale.IsPaid {
		t.Error("exact remaining payment must mark the sale paid")
	}
	assertSaleInvariants(t, second.Sale)
}

func TestRecordPayment_OverpaymentIsCapped(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("25", 10, 1, false)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 1})

	res, err := l.sales.RecordPayment(ctx, sale.ID, d.ID, core.PaymentInput{Amount: amount("1000"), PaymentMethod: core.PaymentCheck})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	assertDec(t, "paid", res.PaidAmount, "25")
	assertSaleInvariants(t, res.Sale)
}

func TestRecordPayment_DiscountOverride(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("100", 10, 1, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 1})

	if _, err := l.sales.RecordPayment(ctx, sale.ID, d.ID, core.PaymentInput{Amount: amount("95"), PaymentMethod: core.PaymentCash}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	// Unpaid with an override only adjusts the discount and clears payment state.
	res, err := l.sales.RecordPayment(ctx, sale.ID, d.ID, core.PaymentInput{
		PaymentMethod:   core.PaymentUnpaid,
		DiscountPercent: amount("10"),
	})
	if err != nil {
		t.Fatalf("RecordPayment unpaid: %v", err)
	}
	assertDec(t, "discount", res.Sale.Discount, "10")
	assertDec(t, "total", res.Sale.Total, "90")
	assertDec(t, "paid", res.PaidAmount, "0")
	assertDec(t, "remaining", res.Remaining, "90")
	assertSaleInvariants(t, res.Sale)

	// Override with payment caps at the new total.
	res, err = l.sales.RecordPayment(ctx, sale.ID, d.ID, core.PaymentInput{
		Amount:          amount("85"),
		PaymentMethod:   core.PaymentCard,
		DiscountPercent: amount("20"),
	})
	if err != nil {
		t.Fatalf("RecordPayment with override: %v", err)
	}
	assertDec(t, "total", res.Sale.Total, "80")
	assertDec(t, "paid", res.PaidAmount, "80")
	if !res.Sale.IsPaid {
		t.Error("expected paid")
	}
}

func TestRecordPayment_Validation(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("10", 10, 1, true)
	sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 1})

	tests := []struct {
		name string
		in   core.PaymentInput
		want error
	}{
		{"bad method", core.PaymentInput{Amount: amount("1"), PaymentMethod: "IOU"}, core.ErrInvalidInput},
		{"missing amount", core.PaymentInput{PaymentMethod: core.PaymentCash}, core.ErrInvalidInput},
		{"zero amount", core.PaymentInput{Amount: amount("0"), PaymentMethod: core.PaymentCard}, core.ErrInvalidInput},
		{"negative amount", core.PaymentInput{Amount: amount("-5"), PaymentMethod: core.PaymentCheck}, core.ErrInvalidInput},
		{"discount over 100", core.PaymentInput{PaymentMethod: core.PaymentUnpaid, DiscountPercent: amount("101")}, core.ErrInvalidInput},
		{"discount finer than cents", core.PaymentInput{PaymentMethod: core.PaymentUnpaid, DiscountPercent: amount("33.333")}, core.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.sales.RecordPayment(ctx, sale.ID, d.ID, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCancelPayment_Idempotent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("30", 10, 1, true)
	res, err := l.sales.CreateSale(ctx, d.ID, core.CreateSaleInput{
		Items:         []core.ItemInput{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: core.PaymentCash,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	once, err := l.sales.CancelPayment(ctx, res.Sale.ID, d.ID)
	if err != nil {
		t.Fatalf("CancelPayment: %v", err)
	}
	twice, err := l.sales.CancelPayment(ctx, res.Sale.ID, d.ID)
	if err != nil {
		t.Fatalf("CancelPayment again: %v", err)
	}

	for _, s := range []*core.Sale{once, twice} {
		if s.IsPaid || !s.PaidAmount.IsZero() || s.PaidAt != nil {
			t.Errorf("payment not cleared: %+v", s)
		}
		assertSaleInvariants(t, *s)
	}
	if !once.Total.Equal(twice.Total) {
		t.Error("totals diverged between cancellations")
	}
}

// ── Delete / invoice list ────────────────────────────────────────────────────

func TestDeleteSale_StockPolicy(t *testing.T) {
	for _, restore := range []bool{false, true} {
		t.Run(fmt.Sprintf("restore=%v", restore), func(t *testing.T) {
			ctx := context.Background()
			l := newLedger(t, core.Options{RestoreStockOnDelete: restore})
			d := l.dealer("0")
			p := l.product("10", 5, 4, true)
			sale := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 6})
			if l.stock(t, p.ID) != 3 {
				t.Fatalf("stock after create = %d", l.stock(t, p.ID))
			}

			if err := l.sales.DeleteSale(ctx, sale.ID, d.ID); err != nil {
				t.Fatalf("DeleteSale: %v", err)
			}
			if _, err := l.sales.GetSale(ctx, sale.ID, d.ID); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("expected deleted sale to be gone, got %v", err)
			}

			want := 3
			if restore {
				want = 5
			}
			if got := l.stock(t, p.ID); got != want {
				t.Errorf("stock = %d, want %d", got, want)
			}
		})
	}
}

func TestInvoiceList(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, core.Options{})
	d := l.dealer("0")
	p := l.product("10", 50, 1, true)
	a := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 1})
	b := createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 2})

	invoices, err := l.sales.ListSavedInvoices(ctx)
	if err != nil {
		t.Fatalf("ListSavedInvoices: %v", err)
	}
	if len(invoices) != 0 {
		t.Fatalf("drafts must not appear in the invoice list: %d", len(invoices))
	}

	if _, err := l.sales.SaveInvoice(ctx, a.ID, d.ID); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}
	if _, err := l.sales.SaveInvoice(ctx, b.ID, d.ID); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}
	if _, err := l.sales.UnsaveInvoice(ctx, a.ID, d.ID); err != nil {
		t.Fatalf("UnsaveInvoice: %v", err)
	}

	invoices, err = l.sales.ListSavedInvoices(ctx)
	if err != nil {
		t.Fatalf("ListSavedInvoices: %v", err)
	}
	if len(invoices) != 1 || invoices[0].ID != b.ID {
		t.Fatalf("unexpected invoices: %+v", invoices)
	}
	if invoices[0].DealerName != d.CompanyName {
		t.Errorf("dealer name = %q", invoices[0].DealerName)
	}

	all, err := l.sales.ListSalesForDealer(ctx, d.ID)
	if err != nil {
		t.Fatalf("ListSalesForDealer: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("dealer sales = %d, want 2", len(all))
	}
	if _, err := l.sales.ListSalesForDealer(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown dealer: got %v", err)
	}
}

type recordingObserver struct {
	ops map[string]int
}

func (r *recordingObserver) ObserveOperation(op string, err error, _ time.Duration) {
	r.ops[op+":"+core.ErrorCode(err)]++
}

func TestObserverSeesOutcomes(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{ops: map[string]int{}}
	l := newLedger(t, core.Options{Observer: obs})
	d := l.dealer("0")
	p := l.product("10", 1, 1, true)

	createDraft(t, l, d.ID, core.ItemInput{ProductID: p.ID, Quantity: 1})
	_, _ = l.sales.CreateSale(ctx, d.ID, core.CreateSaleInput{
		Items:         []core.ItemInput{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: core.PaymentCash,
	})

	if obs.ops["create_sale:OK"] != 1 {
		t.Errorf("expected one successful create, got %v", obs.ops)
	}
	if obs.ops["create_sale:INSUFFICIENT_STOCK"] != 1 {
		t.Errorf("expected one rejected create, got %v", obs.ops)
	}
}
