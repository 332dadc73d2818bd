// Package memory is a process-local core.Store. Whole transactions are serialized
// behind one mutex and their writes land only when fn returns nil.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"dealer-ledger/internal/core"
)

type state struct {
	dealers  map[int]core.Dealer
	products map[int]core.Product
	sales    map[int]core.Sale
	items    map[int]core.SaleItem
	orders   map[int]core.Order

	nextDealer, nextProduct, nextSale, nextItem, nextOrder, nextOrderItem int
}

func newState() *state {
	return &state{
		dealers:  map[int]core.Dealer{},
		products: map[int]core.Product{},
		sales:    map[int]core.Sale{},
		items:    map[int]core.SaleItem{},
		orders:   map[int]core.Order{},
	}
}

func (s *state) clone() *state {
	c := *s
	c.dealers = maps.Clone(s.dealers)
	c.products = maps.Clone(s.products)
	c.sales = maps.Clone(s.sales)
	c.items = maps.Clone(s.items)
	c.orders = make(map[int]core.Order, len(s.orders))
	for id, o := range s.orders {
		o.Items = slices.Clone(o.Items)
		c.orders[id] = o
	}
	return &c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// WithTx runs fn against a private copy of the data and publishes it on success.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// ── Seeding ──────────────────────────────────────────────────────────────────

// PutDealer inserts or replaces a dealer. A zero ID is assigned.
func (s *Store) PutDealer(d core.Dealer) core.Dealer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		s.st.nextDealer++
		d.ID = s.st.nextDealer
	} else if d.ID > s.st.nextDealer {
		s.st.nextDealer = d.ID
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.st.dealers[d.ID] = d
	return d
}

// PutProduct inserts or replaces a product. A zero ID is assigned and PackSize defaults to 1.
func (s *Store) PutProduct(p core.Product) core.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.st.nextProduct++
		p.ID = s.st.nextProduct
	} else if p.ID > s.st.nextProduct {
		s.st.nextProduct = p.ID
	}
	if p.PackSize < 1 {
		p.PackSize = 1
	}
	s.st.products[p.ID] = p
	return p
}

// PutSale inserts a sale header as is. Used to seed historical numbering.
func (s *Store) PutSale(sale core.Sale) core.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sale.ID == 0 {
		s.st.nextSale++
		sale.ID = s.st.nextSale
	} else if sale.ID > s.st.nextSale {
		s.st.nextSale = sale.ID
	}
	s.st.sales[sale.ID] = sale
	return sale
}

// Product returns the committed state of a product.
func (s *Store) Product(id int) (core.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

// Sales returns every committed sale header ordered by ID.
func (s *Store) Sales() []core.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Collect(maps.Values(s.st.sales))
	slices.SortFunc(out, func(a, b core.Sale) int { return a.ID - b.ID })
	return out
}

// ── Tx ───────────────────────────────────────────────────────────────────────

type tx struct{ st *state }

func (t *tx) Dealers() core.DealerRepository     { return dealerRepo{t.st} }
func (t *tx) Products() core.ProductRepository   { return productRepo{t.st} }
func (t *tx) Sales() core.SaleRepository         { return saleRepo{t.st} }
func (t *tx) SaleItems() core.SaleItemRepository { return saleItemRepo{t.st} }
func (t *tx) Orders() core.OrderRepository       { return orderRepo{t.st} }

type dealerRepo struct{ st *state }

func (r dealerRepo) GetDealer(_ context.Context, id int) (core.Dealer, error) {
	d, ok := r.st.dealers[id]
	if !ok {
		return core.Dealer{}, core.NotFoundf("dealer %d not found", id)
	}
	return d, nil
}

func (r dealerRepo) FindDealerByName(_ context.Context, name string) (core.Dealer, error) {
	ids := slices.Sorted(maps.Keys(r.st.dealers))
	for _, id := range ids {
		if d := r.st.dealers[id]; d.CompanyName == name {
			return d, nil
		}
	}
	return core.Dealer{}, core.NotFoundf("dealer %q not found", name)
}

func (r dealerRepo) CreateDealer(_ context.Context, d core.Dealer) (core.Dealer, error) {
	r.st.nextDealer++
	d.ID = r.st.nextDealer
	d.CreatedAt = time.Now().UTC()
	r.st.dealers[d.ID] = d
	return d, nil
}

type productRepo struct{ st *state }

func (r productRepo) FindProducts(_ context.Context, ids []int) (map[int]core.Product, error) {
	out := make(map[int]core.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r productRepo) UpdateStock(_ context.Context, productID, stock int) error {
	p, ok := r.st.products[productID]
	if !ok {
		return core.NotFoundf("product %d not found", productID)
	}
	p.Stock = stock
	r.st.products[productID] = p
	return nil
}

type saleRepo struct{ st *state }

func (r saleRepo) withDealer(s core.Sale) core.Sale {
	if d, ok := r.st.dealers[s.DealerID]; ok {
		s.DealerName = d.CompanyName
	}
	s.Items = nil
	return s
}

func (r saleRepo) GetSale(_ context.Context, id int) (core.Sale, error) {
	s, ok := r.st.sales[id]
	if !ok {
		return core.Sale{}, core.NotFoundf("sale %d not found", id)
	}
	return r.withDealer(s), nil
}

func (r saleRepo) InsertSale(_ context.Context, s core.Sale) (core.Sale, error) {
	r.st.nextSale++
	s.ID = r.st.nextSale
	s.Items = nil
	r.st.sales[s.ID] = s
	return s, nil
}

func (r saleRepo) UpdateSale(_ context.Context, s core.Sale) error {
	if _, ok := r.st.sales[s.ID]; !ok {
		return core.NotFoundf("sale %d not found", s.ID)
	}
	s.Items = nil
	r.st.sales[s.ID] = s
	return nil
}

func (r saleRepo) DeleteSale(_ context.Context, id int) error {
	delete(r.st.sales, id)
	return nil
}

func (r saleRepo) HighestSaleNumber(_ context.Context) (string, int, error) {
	highest, best := "", -1
	for _, s := range r.st.sales {
		n, ok := numericSuffix(s.SaleNumber, core.SaleNumberPrefix)
		if ok && n > best {
			best, highest = n, s.SaleNumber
		}
	}
	return highest, len(r.st.sales), nil
}

// list returns matching sales, newest first.
func (r saleRepo) list(keep func(core.Sale) bool) []core.Sale {
	var out []core.Sale
	for _, s := range r.st.sales {
		if keep(s) {
			out = append(out, r.withDealer(s))
		}
	}
	slices.SortFunc(out, func(a, b core.Sale) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID - a.ID
	})
	return out
}

func (r saleRepo) ListSalesForDealer(_ context.Context, dealerID int) ([]core.Sale, error) {
	return r.list(func(s core.Sale) bool { return s.DealerID == dealerID }), nil
}

func (r saleRepo) ListSavedInvoices(_ context.Context) ([]core.Sale, error) {
	return r.list(func(s core.Sale) bool { return s.IsSaved }), nil
}

func (r saleRepo) ListUnpaidByNotePrefix(_ context.Context, dealerID int, prefix string) ([]core.Sale, error) {
	return r.list(func(s core.Sale) bool {
		return s.DealerID == dealerID && !s.IsPaid && s.Notes != nil && strings.HasPrefix(*s.Notes, prefix)
	}), nil
}

type saleItemRepo struct{ st *state }

func (r saleItemRepo) withProduct(it core.SaleItem) core.SaleItem {
	if p, ok := r.st.products[it.ProductID]; ok {
		it.ProductName = p.Name
	}
	return it
}

func (r saleItemRepo) ListSaleItems(_ context.Context, saleID int) ([]core.SaleItem, error) {
	var out []core.SaleItem
	for _, it := range r.st.items {
		if it.SaleID == saleID {
			out = append(out, r.withProduct(it))
		}
	}
	slices.SortFunc(out, func(a, b core.SaleItem) int { return a.ID - b.ID })
	return out, nil
}

func (r saleItemRepo) InsertSaleItems(_ context.Context, saleID int, items []core.SaleItem) ([]core.SaleItem, error) {
	out := make([]core.SaleItem, 0, len(items))
	for _, it := range items {
		r.st.nextItem++
		it.ID = r.st.nextItem
		it.SaleID = saleID
		r.st.items[it.ID] = it
		out = append(out, r.withProduct(it))
	}
	return out, nil
}

func (r saleItemRepo) GetSaleItem(_ context.Context, saleID, itemID int) (core.SaleItem, error) {
	it, ok := r.st.items[itemID]
	if !ok || it.SaleID != saleID {
		return core.SaleItem{}, core.NotFoundf("item %d not found in sale %d", itemID, saleID)
	}
	return r.withProduct(it), nil
}

func (r saleItemRepo) DeleteSaleItem(_ context.Context, itemID int) error {
	delete(r.st.items, itemID)
	return nil
}

func (r saleItemRepo) DeleteSaleItems(_ context.Context, saleID int) error {
	maps.DeleteFunc(r.st.items, func(_ int, it core.SaleItem) bool { return it.SaleID == saleID })
	return nil
}

type orderRepo struct{ st *state }

func (r orderRepo) GetOrder(_ context.Context, id int) (core.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return core.Order{}, core.NotFoundf("order %d not found", id)
	}
	o.Items = slices.Clone(o.Items)
	return o, nil
}

func (r orderRepo) InsertOrder(_ context.Context, o core.Order) (core.Order, error) {
	r.st.nextOrder++
	o.ID = r.st.nextOrder
	items := make([]core.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		r.st.nextOrderItem++
		it.ID = r.st.nextOrderItem
		it.OrderID = o.ID
		items = append(items, it)
	}
	o.Items = items
	r.st.orders[o.ID] = o
	return o, nil
}

func (r orderRepo) UpdateOrderStatus(_ context.Context, o core.Order) error {
	cur, ok := r.st.orders[o.ID]
	if !ok {
		return core.NotFoundf("order %d not found", o.ID)
	}
	cur.Status = o.Status
	cur.UpdatedAt = o.UpdatedAt
	cur.ShippedAt = o.ShippedAt
	cur.CancelledAt = o.CancelledAt
	r.st.orders[o.ID] = cur
	return nil
}

func (r orderRepo) HighestOrderNumber(_ context.Context) (string, int, error) {
	highest, best := "", -1
	for _, o := range r.st.orders {
		n, ok := numericSuffix(o.OrderNumber, core.OrderNumberPrefix)
		if ok && n > best {
			best, highest = n, o.OrderNumber
		}
	}
	return highest, len(r.st.orders), nil
}

func (r orderRepo) ListOrders(_ context.Context) ([]core.Order, error) {
	out := make([]core.Order, 0, len(r.st.orders))
	for _, o := range r.st.orders {
		o.Items = slices.Clone(o.Items)
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b core.Order) int { return b.ID - a.ID })
	return out, nil
}

func numericSuffix(number, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	n := 0
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
