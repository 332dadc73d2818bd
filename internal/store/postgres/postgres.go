// Package postgres implements core.Store on PostgreSQL through pgx.
//
// Every transaction runs at READ COMMITTED. Sales, orders and products read for
// mutation are locked with SELECT ... FOR UPDATE, and document number allocation
// is serialized with a transaction-scoped advisory lock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dealer-ledger/internal/core"
)

// Advisory lock keys for number allocation.
const (
	saleNumberLock  = 7462840
	orderNumberLock = 7462841
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepos{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepos struct{ tx pgx.Tx }

func (t *txRepos) Dealers() core.DealerRepository     { return dealerRepo{t.tx} }
func (t *txRepos) Products() core.ProductRepository   { return productRepo{t.tx} }
func (t *txRepos) Sales() core.SaleRepository         { return saleRepo{t.tx} }
func (t *txRepos) SaleItems() core.SaleItemRepository { return saleItemRepo{t.tx} }
func (t *txRepos) Orders() core.OrderRepository       { return orderRepo{t.tx} }

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func advisoryLock(ctx context.Context, tx pgx.Tx, key int64) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return fmt.Errorf("failed to take advisory lock %d: %w", key, err)
	}
	return nil
}

// highestNumber returns the largest PREFIX-NNNNNN in column and the row count of table.
func highestNumber(ctx context.Context, tx pgx.Tx, table, column, prefix string) (string, int, error) {
	var (
		highest *int64
		count   int
	)
	query := fmt.Sprintf(`
		SELECT MAX(CAST(SUBSTRING(%[2]s FROM '^%[3]s([0-9]+)$') AS BIGINT)), COUNT(*)
		FROM %[1]s
	`, table, column, prefix)
	if err := tx.QueryRow(ctx, query).Scan(&highest, &count); err != nil {
		return "", 0, fmt.Errorf("failed to scan %s numbers: %w", table, err)
	}
	if highest == nil {
		return "", count, nil
	}
	return fmt.Sprintf("%s%06d", prefix, *highest), count, nil
}

// ── Dealers ──────────────────────────────────────────────────────────────────

type dealerRepo struct{ tx pgx.Tx }

const dealerColumns = "id, company_name, discount_percent, is_active, created_at"

func scanDealer(row rowScanner) (core.Dealer, error) {
	var d core.Dealer
	err := row.Scan(&d.ID, &d.CompanyName, &d.DiscountPercent, &d.IsActive, &d.CreatedAt)
	return d, err
}

func (r dealerRepo) GetDealer(ctx context.Context, id int) (core.Dealer, error) {
	d, err := scanDealer(r.tx.QueryRow(ctx, "SELECT "+dealerColumns+" FROM dealers WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Dealer{}, core.NotFoundf("dealer %d not found", id)
		}
		return core.Dealer{}, fmt.Errorf("failed to fetch dealer %d: %w", id, err)
	}
	return d, nil
}

func (r dealerRepo) FindDealerByName(ctx context.Context, name string) (core.Dealer, error) {
	d, err := scanDealer(r.tx.QueryRow(ctx,
		"SELECT "+dealerColumns+" FROM dealers WHERE company_name = $1 ORDER BY id LIMIT 1", name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Dealer{}, core.NotFoundf("dealer %q not found", name)
		}
		return core.Dealer{}, fmt.Errorf("failed to fetch dealer %q: %w", name, err)
	}
	return d, nil
}

func (r dealerRepo) CreateDealer(ctx context.Context, d core.Dealer) (core.Dealer, error) {
	created, err := scanDealer(r.tx.QueryRow(ctx, `
		INSERT INTO dealers (company_name, discount_percent, is_active)
		VALUES ($1, $2, $3)
		RETURNING `+dealerColumns,
		d.CompanyName, d.DiscountPercent, d.IsActive,
	))
	if err != nil {
		return core.Dealer{}, fmt.Errorf("failed to create dealer: %w", err)
	}
	return created, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

type productRepo struct{ tx pgx.Tx }

func (r productRepo) FindProducts(ctx context.Context, ids []int) (map[int]core.Product, error) {
	out := make(map[int]core.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.tx.Query(ctx, `
		SELECT id, name, price, stock, pack_size, track_stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.PackSize, &p.TrackStock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r productRepo) UpdateStock(ctx context.Context, productID, stock int) error {
	tag, err := r.tx.Exec(ctx, "UPDATE products SET stock = $1 WHERE id = $2", stock, productID)
	if err != nil {
		return fmt.Errorf("failed to update stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundf("product %d not found", productID)
	}
	return nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

type saleRepo struct{ tx pgx.Tx }

const saleSelect = `
	SELECT s.id, s.sale_number, s.dealer_id, d.company_name, s.payment_method,
	       s.subtotal, s.discount_percent, s.discount, s.total,
	       s.is_paid, s.paid_amount, s.paid_at, s.notes, s.is_saved, s.order_id,
	       s.created_at, s.updated_at
	FROM dealer_sales s
	JOIN dealers d ON d.id = s.dealer_id
`

func scanSale(row rowScanner) (core.Sale, error) {
	var (
		s      core.Sale
		method string
	)
	err := row.Scan(&s.ID, &s.SaleNumber, &s.DealerID, &s.DealerName, &method,
		&s.Subtotal, &s.DiscountPercent, &s.Discount, &s.Total,
		&s.IsPaid, &s.PaidAmount, &s.PaidAt, &s.Notes, &s.IsSaved, &s.OrderID,
		&s.CreatedAt, &s.UpdatedAt)
	s.PaymentMethod = core.PaymentMethod(method)
	return s, err
}

func (r saleRepo) GetSale(ctx context.Context, id int) (core.Sale, error) {
	s, err := scanSale(r.tx.QueryRow(ctx, saleSelect+" WHERE s.id = $1 FOR UPDATE OF s", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Sale{}, core.NotFoundf("sale %d not found", id)
		}
		return core.Sale{}, fmt.Errorf("failed to fetch sale %d: %w", id, err)
	}
	return s, nil
}

func (r saleRepo) InsertSale(ctx context.Context, s core.Sale) (core.Sale, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO dealer_sales (
			sale_number, dealer_id, payment_method, subtotal, discount_percent, discount, total,
			is_paid, paid_amount, paid_at, notes, is_saved, order_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`, s.SaleNumber, s.DealerID, string(s.PaymentMethod), s.Subtotal, s.DiscountPercent, s.Discount, s.Total,
		s.IsPaid, s.PaidAmount, s.PaidAt, s.Notes, s.IsSaved, s.OrderID, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return core.Sale{}, fmt.Errorf("failed to insert sale %s: %w", s.SaleNumber, err)
	}
	return s, nil
}

func (r saleRepo) UpdateSale(ctx context.Context, s core.Sale) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE dealer_sales
		SET payment_method = $2, subtotal = $3, discount_percent = $4, discount = $5, total = $6,
		    is_paid = $7, paid_amount = $8, paid_at = $9, notes = $10, is_saved = $11, updated_at = $12
		WHERE id = $1
	`, s.ID, string(s.PaymentMethod), s.Subtotal, s.DiscountPercent, s.Discount, s.Total,
		s.IsPaid, s.PaidAmount, s.PaidAt, s.Notes, s.IsSaved, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update sale %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundf("sale %d not found", s.ID)
	}
	return nil
}

func (r saleRepo) DeleteSale(ctx context.Context, id int) error {
	if _, err := r.tx.Exec(ctx, "DELETE FROM dealer_sales WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete sale %d: %w", id, err)
	}
	return nil
}

func (r saleRepo) HighestSaleNumber(ctx context.Context) (string, int, error) {
	if err := advisoryLock(ctx, r.tx, saleNumberLock); err != nil {
		return "", 0, err
	}
	return highestNumber(ctx, r.tx, "dealer_sales", "sale_number", core.SaleNumberPrefix)
}

func (r saleRepo) list(ctx context.Context, where string, args ...any) ([]core.Sale, error) {
	rows, err := r.tx.Query(ctx, saleSelect+" WHERE "+where+" ORDER BY s.created_at DESC, s.id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []core.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func (r saleRepo) ListSalesForDealer(ctx context.Context, dealerID int) ([]core.Sale, error) {
	return r.list(ctx, "s.dealer_id = $1", dealerID)
}

func (r saleRepo) ListSavedInvoices(ctx context.Context) ([]core.Sale, error) {
	return r.list(ctx, "s.is_saved")
}

func (r saleRepo) ListUnpaidByNotePrefix(ctx context.Context, dealerID int, prefix string) ([]core.Sale, error) {
	return r.list(ctx, "s.dealer_id = $1 AND NOT s.is_paid AND starts_with(s.notes, $2)", dealerID, prefix)
}

// ── Sale items ───────────────────────────────────────────────────────────────

type saleItemRepo struct{ tx pgx.Tx }

const saleItemSelect = `
	SELECT i.id, i.sale_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.price, i.total
	FROM dealer_sale_items i
	LEFT JOIN products p ON p.id = i.product_id
`

func scanSaleItem(row rowScanner) (core.SaleItem, error) {
	var it core.SaleItem
	err := row.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.Total)
	return it, err
}

func (r saleItemRepo) ListSaleItems(ctx context.Context, saleID int) ([]core.SaleItem, error) {
	rows, err := r.tx.Query(ctx, saleItemSelect+" WHERE i.sale_id = $1 ORDER BY i.id", saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	var items []core.SaleItem
	for rows.Next() {
		it, err := scanSaleItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r saleItemRepo) InsertSaleItems(ctx context.Context, saleID int, items []core.SaleItem) ([]core.SaleItem, error) {
	out := make([]core.SaleItem, 0, len(items))
	for _, it := range items {
		it.SaleID = saleID
		err := r.tx.QueryRow(ctx, `
			INSERT INTO dealer_sale_items (sale_id, product_id, quantity, price, total)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, saleID, it.ProductID, it.Quantity, it.Price, it.Total).Scan(&it.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert item for product %d: %w", it.ProductID, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func (r saleItemRepo) GetSaleItem(ctx context.Context, saleID, itemID int) (core.SaleItem, error) {
	it, err := scanSaleItem(r.tx.QueryRow(ctx, saleItemSelect+" WHERE i.id = $1 AND i.sale_id = $2", itemID, saleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.SaleItem{}, core.NotFoundf("item %d not found in sale %d", itemID, saleID)
		}
		return core.SaleItem{}, fmt.Errorf("failed to fetch sale item %d: %w", itemID, err)
	}
	return it, nil
}

func (r saleItemRepo) DeleteSaleItem(ctx context.Context, itemID int) error {
	if _, err := r.tx.Exec(ctx, "DELETE FROM dealer_sale_items WHERE id = $1", itemID); err != nil {
		return fmt.Errorf("failed to delete sale item %d: %w", itemID, err)
	}
	return nil
}

func (r saleItemRepo) DeleteSaleItems(ctx context.Context, saleID int) error {
	if _, err := r.tx.Exec(ctx, "DELETE FROM dealer_sale_items WHERE sale_id = $1", saleID); err != nil {
		return fmt.Errorf("failed to delete items of sale %d: %w", saleID, err)
	}
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

type orderRepo struct{ tx pgx.Tx }

const orderSelect = `
	SELECT id, order_number, customer_name, status, subtotal, discount_percent, discount,
	       tps, tvq, total, created_at, updated_at, shipped_at, cancelled_at
	FROM orders
`

func scanOrder(row rowScanner) (core.Order, error) {
	var (
		o      core.Order
		status string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &status, &o.Subtotal, &o.DiscountPercent,
		&o.Discount, &o.TPS, &o.TVQ, &o.Total, &o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.CancelledAt)
	o.Status = core.OrderStatus(status)
	return o, err
}

func (r orderRepo) GetOrder(ctx context.Context, id int) (core.Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, orderSelect+" WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Order{}, core.NotFoundf("order %d not found", id)
		}
		return core.Order{}, fmt.Errorf("failed to fetch order %d: %w", id, err)
	}
	o.Items, err = r.orderItems(ctx, id)
	if err != nil {
		return core.Order{}, err
	}
	return o, nil
}

func (r orderRepo) orderItems(ctx context.Context, orderID int) ([]core.OrderItem, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.price, i.total
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []core.OrderItem
	for rows.Next() {
		var it core.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.Total); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r orderRepo) InsertOrder(ctx context.Context, o core.Order) (core.Order, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO orders (
			order_number, customer_name, status, subtotal, discount_percent, discount,
			tps, tvq, total, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, o.OrderNumber, o.CustomerName, string(o.Status), o.Subtotal, o.DiscountPercent, o.Discount,
		o.TPS, o.TVQ, o.Total, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return core.Order{}, fmt.Errorf("failed to insert order %s: %w", o.OrderNumber, err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err := r.tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price, total)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, o.ID, it.ProductID, it.Quantity, it.Price, it.Total).Scan(&it.ID)
		if err != nil {
			return core.Order{}, fmt.Errorf("failed to insert order item for product %d: %w", it.ProductID, err)
		}
	}
	return o, nil
}

func (r orderRepo) UpdateOrderStatus(ctx context.Context, o core.Order) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3, shipped_at = $4, cancelled_at = $5
		WHERE id = $1
	`, o.ID, string(o.Status), o.UpdatedAt, o.ShippedAt, o.CancelledAt)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundf("order %d not found", o.ID)
	}
	return nil
}

func (r orderRepo) HighestOrderNumber(ctx context.Context) (string, int, error) {
	if err := advisoryLock(ctx, r.tx, orderNumberLock); err != nil {
		return "", 0, err
	}
	return highestNumber(ctx, r.tx, "orders", "order_number", core.OrderNumberPrefix)
}

func (r orderRepo) ListOrders(ctx context.Context) ([]core.Order, error) {
	rows, err := r.tx.Query(ctx, orderSelect+" ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []core.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ── Seeding ──────────────────────────────────────────────────────────────────

// SeedProduct inserts a catalog product. Used by the seed command and integration tests.
func (s *Store) SeedProduct(ctx context.Context, name string, price decimal.Decimal, stock, packSize int, trackStock bool) (core.Product, error) {
	p := core.Product{Name: name, Price: price, Stock: stock, PackSize: packSize, TrackStock: trackStock}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, price, stock, pack_size, track_stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, name, price, stock, packSize, trackStock, time.Now().UTC()).Scan(&p.ID)
	if err != nil {
		return core.Product{}, fmt.Errorf("failed to seed product %s: %w", name, err)
	}
	return p, nil
}

// SeedDealer inserts a dealer.
func (s *Store) SeedDealer(ctx context.Context, name string, discountPercent decimal.Decimal) (core.Dealer, error) {
	var d core.Dealer
	err := s.WithTx(ctx, func(ctx context.Context, tx core.Tx) error {
		var err error
		d, err = tx.Dealers().CreateDealer(ctx, core.Dealer{CompanyName: name, DiscountPercent: discountPercent, IsActive: true})
		return err
	})
	return d, err
}
