package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"dealer-ledger/internal/core"
	"dealer-ledger/internal/export"
)

type appService struct {
	sales  core.SaleService
	orders core.OrderService
	log    *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(sales core.SaleService, orders core.OrderService, log *zap.Logger) ApplicationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &appService{
		sales:  sales,
		orders: orders,
		log:    log.Named("app"),
	}
}

func paymentMethod(s string) core.PaymentMethod {
	return core.PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
}

func saleResult(sale *core.Sale) *SaleResult {
	return &SaleResult{Sale: sale, Remaining: sale.Remaining()}
}

func saleList(sales []core.Sale) *SaleListResult {
	res := &SaleListResult{Sales: sales}
	for i := range sales {
		res.TotalAmount = res.TotalAmount.Add(sales[i].Total)
		res.TotalPaid = res.TotalPaid.Add(sales[i].PaidAmount)
		res.TotalPending = res.TotalPending.Add(sales[i].Remaining())
	}
	return res
}

// ── Sales ────────────────────────────────────────────────────────────────────

func (s *appService) CreateSale(ctx context.Context, req CreateSaleRequest) (*core.CreateSaleResult, error) {
	in := core.CreateSaleInput{
		Items:         req.Items,
		PaymentMethod: paymentMethod(req.PaymentMethod),
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		in.Notes = &notes
	}
	return s.sales.CreateSale(ctx, req.DealerID, in)
}

func (s *appService) AddItems(ctx context.Context, req AddItemsRequest) (*SaleResult, error) {
	sale, err := s.sales.AddItems(ctx, req.SaleID, req.DealerID, req.Items)
	if err != nil {
		return nil, err
	}
	return saleResult(sale), nil
}

func (s *appService) RemoveItem(ctx context.Context, dealerID, saleID, itemID int) (*SaleResult, error) {
	sale, err := s.sales.RemoveItem(ctx, saleID, dealerID, itemID)
	if err != nil {
		return nil, err
	}
	return saleResult(sale), nil
}

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.PaymentResult, error) {
	return s.sales.RecordPayment(ctx, req.SaleID, req.DealerID, core.PaymentInput{
		Amount:          req.Amount,
		PaymentMethod:   paymentMethod(req.PaymentMethod),
		DiscountPercent: req.DiscountPercent,
	})
}

func (s *appService) CancelPayment(ctx context.Context, dealerID, saleID int) (*SaleResult, error) {
	sale, err := s.sales.CancelPayment(ctx, saleID, dealerID)
	if err != nil {
		return nil, err
	}
	return saleResult(sale), nil
}

func (s *appService) DeleteSale(ctx context.Context, dealerID, saleID int) error {
	return s.sales.DeleteSale(ctx, saleID, dealerID)
}

func (s *appService) SaveInvoice(ctx context.Context, dealerID, saleID int) (*SaleResult, error) {
	sale, err := s.sales.SaveInvoice(ctx, saleID, dealerID)
	if err != nil {
		return nil, err
	}
	return saleResult(sale), nil
}

func (s *appService) UnsaveInvoice(ctx context.Context, dealerID, saleID int) (*SaleResult, error) {
	sale, err := s.sales.UnsaveInvoice(ctx, saleID, dealerID)
	if err != nil {
		return nil, err
	}
	return saleResult(sale), nil
}

func (s *appService) GetSale(ctx context.Context, dealerID, saleID int) (*SaleResult, error) {
	sale, err := s.sales.GetSale(ctx, saleID, dealerID)
	if err != nil {
		return nil, err
	}
	return saleResult(sale), nil
}

func (s *appService) ListSalesForDealer(ctx context.Context, dealerID int) (*SaleListResult, error) {
	sales, err := s.sales.ListSalesForDealer(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	return saleList(sales), nil
}

func (s *appService) ListInvoices(ctx context.Context) (*SaleListResult, error) {
	sales, err := s.sales.ListSavedInvoices(ctx)
	if err != nil {
		return nil, err
	}
	return saleList(sales), nil
}

// ExportInvoices writes the saved invoices to w and returns how many rows were written.
func (s *appService) ExportInvoices(ctx context.Context, w io.Writer) (int, error) {
	sales, err := s.sales.ListSavedInvoices(ctx)
	if err != nil {
		return 0, err
	}
	if err := export.WriteInvoices(w, sales); err != nil {
		return 0, fmt.Errorf("export invoices: %w", err)
	}
	s.log.Info("invoices exported", zap.Int("count", len(sales)))
	return len(sales), nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *appService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	order, err := s.orders.PlaceOrder(ctx, core.PlaceOrderInput{
		CustomerName:    req.CustomerName,
		Items:           req.Items,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) TransitionOrder(ctx context.Context, orderID int, status string) (*core.TransitionResult, error) {
	to := core.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	return s.orders.TransitionStatus(ctx, orderID, to)
}

func (s *appService) GetOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context) (*OrderListResult, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}
