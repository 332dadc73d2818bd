package core

import "context"

// DealerRepository reads and creates dealers.
type DealerRepository interface {
	// GetDealer returns ErrNotFound when the dealer does not exist.
	GetDealer(ctx context.Context, id int) (Dealer, error)
	// FindDealerByName returns ErrNotFound when no dealer carries the exact company name.
	FindDealerByName(ctx context.Context, name string) (Dealer, error)
	CreateDealer(ctx context.Context, d Dealer) (Dealer, error)
}

// ProductRepository is the inventory side of the catalog.
type ProductRepository interface {
	// FindProducts loads and locks the requested products. Missing IDs are absent from the map.
	FindProducts(ctx context.Context, ids []int) (map[int]Product, error)
	// UpdateStock sets the box count of a product.
	UpdateStock(ctx context.Context, productID, stock int) error
}

// SaleRepository persists sale headers.
type SaleRepository interface {
	// GetSale loads and locks one sale. Returns ErrNotFound when missing.
	GetSale(ctx context.Context, id int) (Sale, error)
	InsertSale(ctx context.Context, s Sale) (Sale, error)
	UpdateSale(ctx context.Context, s Sale) error
	DeleteSale(ctx context.Context, id int) error
	// HighestSaleNumber returns the largest SAL- number in use and the total sale count.
	// Implementations serialize callers until the transaction ends.
	HighestSaleNumber(ctx context.Context) (string, int, error)
	ListSalesForDealer(ctx context.Context, dealerID int) ([]Sale, error)
	ListSavedInvoices(ctx context.Context) ([]Sale, error)
	ListUnpaidByNotePrefix(ctx context.Context, dealerID int, prefix string) ([]Sale, error)
}

// SaleItemRepository persists the lines of a sale.
type SaleItemRepository interface {
	ListSaleItems(ctx context.Context, saleID int) ([]SaleItem, error)
	InsertSaleItems(ctx context.Context, saleID int, items []SaleItem) ([]SaleItem, error)
	// GetSaleItem returns ErrNotFound unless the item belongs to saleID.
	GetSaleItem(ctx context.Context, saleID, itemID int) (SaleItem, error)
	DeleteSaleItem(ctx context.Context, itemID int) error
	DeleteSaleItems(ctx context.Context, saleID int) error
}

// OrderRepository persists storefront orders.
type OrderRepository interface {
	// GetOrder loads and locks one order with its items. Returns ErrNotFound when missing.
	GetOrder(ctx context.Context, id int) (Order, error)
	InsertOrder(ctx context.Context, o Order) (Order, error)
	// UpdateOrderStatus writes status, updated_at, shipped_at and cancelled_at.
	UpdateOrderStatus(ctx context.Context, o Order) error
	HighestOrderNumber(ctx context.Context) (string, int, error)
	ListOrders(ctx context.Context) ([]Order, error)
}

// Tx exposes typed repositories bound to one transaction.
type Tx interface {
	Dealers() DealerRepository
	Products() ProductRepository
	Sales() SaleRepository
	SaleItems() SaleItemRepository
	Orders() OrderRepository
}

// Store runs fn inside a transaction. A nil return commits; any error rolls back.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Locker takes a named lock that spans processes. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// NoopLocker is used when no distributed lock backend is configured.
var NoopLocker Locker = noopLocker{}
