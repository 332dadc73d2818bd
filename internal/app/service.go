package app

import (
	"context"
	"io"

	"dealer-ledger/internal/core"
)

// ApplicationService is the single interface the CLI and Web adapters call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// CreateSale books a new dealer sale, deducting stock and applying the dealer discount.
	CreateSale(ctx context.Context, req CreateSaleRequest) (*core.CreateSaleResult, error)

	// AddItems appends lines to an existing dealer sale and promotes it to the invoice list.
	AddItems(ctx context.Context, req AddItemsRequest) (*SaleResult, error)

	// RemoveItem deletes one line from a dealer sale and puts its stock back.
	RemoveItem(ctx context.Context, dealerID, saleID, itemID int) (*SaleResult, error)

	// RecordPayment adds money received to a sale. The paid amount is capped at the total.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.PaymentResult, error)

	// CancelPayment resets the paid amount of a sale to zero.
	CancelPayment(ctx context.Context, dealerID, saleID int) (*SaleResult, error)

	// DeleteSale removes a sale and its lines.
	DeleteSale(ctx context.Context, dealerID, saleID int) error

	// SaveInvoice and UnsaveInvoice toggle membership of the invoice list.
	SaveInvoice(ctx context.Context, dealerID, saleID int) (*SaleResult, error)
	UnsaveInvoice(ctx context.Context, dealerID, saleID int) (*SaleResult, error)

	// GetSale returns one sale with its lines.
	GetSale(ctx context.Context, dealerID, saleID int) (*SaleResult, error)

	// ListSalesForDealer returns every sale of a dealer, newest first.
	ListSalesForDealer(ctx context.Context, dealerID int) (*SaleListResult, error)

	// ListInvoices returns all saved invoices across dealers, newest first.
	ListInvoices(ctx context.Context) (*SaleListResult, error)

	// ExportInvoices writes the invoice list as an XLSX workbook.
	ExportInvoices(ctx context.Context, w io.Writer) (int, error)

	// PlaceOrder records a storefront checkout in PENDING status.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error)

	// TransitionOrder moves an order to a new status. Shipping produces a paid dealer sale.
	TransitionOrder(ctx context.Context, orderID int, status string) (*core.TransitionResult, error)

	// GetOrder returns one order with its lines.
	GetOrder(ctx context.Context, orderID int) (*OrderResult, error)

	// ListOrders returns all orders, newest first.
	ListOrders(ctx context.Context) (*OrderListResult, error)
}
