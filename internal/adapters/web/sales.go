package web

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dealer-ledger/internal/app"
	"dealer-ledger/internal/core"
)

type itemBody struct {
	ProductID int `json:"product_id" validate:"gt=0"`
	Quantity  int `json:"quantity" validate:"gt=0"`
}

type createSaleBody struct {
	Items         []itemBody `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string     `json:"payment_method" validate:"required"`
	Notes         string     `json:"notes" validate:"max=2000"`
}

// addItemsBody leaves quantities unchecked; the service skips unusable lines.
type addItemsBody struct {
	Items []core.ItemInput `json:"items" validate:"required,min=1"`
}

type paymentBody struct {
	Amount          *decimal.Decimal `json:"amount"`
	PaymentMethod   string           `json:"payment_method" validate:"required"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
}

func itemInputs(items []itemBody) []core.ItemInput {
	out := make([]core.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, core.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// actor names the authenticated caller for audit log lines.
func actor(r *http.Request) string {
	if c := authFromContext(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}

// saleParams reads {dealerID} and {saleID}.
func saleParams(w http.ResponseWriter, r *http.Request) (dealerID, saleID int, ok bool) {
	if dealerID, ok = intParam(w, r, "dealerID"); !ok {
		return 0, 0, false
	}
	if saleID, ok = intParam(w, r, "saleID"); !ok {
		return 0, 0, false
	}
	return dealerID, saleID, true
}

// apiListDealerSales handles GET /api/dealers/{dealerID}/sales.
func (h *Handler) apiListDealerSales(w http.ResponseWriter, r *http.Request) {
	dealerID, ok := intParam(w, r, "dealerID")
	if !ok {
		return
	}
	result, err := h.svc.ListSalesForDealer(r.Context(), dealerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateSale handles POST /api/dealers/{dealerID}/sales.
// Body: { items: [{product_id, quantity}], payment_method, notes? }
func (h *Handler) apiCreateSale(w http.ResponseWriter, r *http.Request) {
	dealerID, ok := intParam(w, r, "dealerID")
	if !ok {
		return
	}
	var body createSaleBody
	if !decodeValid(w, r, &body) {
		return
	}

	result, err := h.svc.CreateSale(r.Context(), app.CreateSaleRequest{
		DealerID:      dealerID,
		Items:         itemInputs(body.Items),
		PaymentMethod: body.PaymentMethod,
		Notes:         body.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiGetSale handles GET /api/dealers/{dealerID}/sales/{saleID}.
func (h *Handler) apiGetSale(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetSale(r.Context(), dealerID, saleID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiDeleteSale handles DELETE /api/dealers/{dealerID}/sales/{saleID}.
func (h *Handler) apiDeleteSale(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(r.Context(), dealerID, saleID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.log.Info("sale deleted", zap.Int("sale_id", saleID), zap.String("actor", actor(r)))
	w.WriteHeader(http.StatusNoContent)
}

// apiAddItems handles POST /api/dealers/{dealerID}/sales/{saleID}/items.
// Lines with unknown products or non-positive quantities are skipped by the service.
func (h *Handler) apiAddItems(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	var body addItemsBody
	if !decodeValid(w, r, &body) {
		return
	}
	result, err := h.svc.AddItems(r.Context(), app.AddItemsRequest{
		DealerID: dealerID,
		SaleID:   saleID,
		Items:    body.Items,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRemoveItem handles DELETE /api/dealers/{dealerID}/sales/{saleID}/items/{itemID}.
func (h *Handler) apiRemoveItem(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	itemID, ok := intParam(w, r, "itemID")
	if !ok {
		return
	}
	result, err := h.svc.RemoveItem(r.Context(), dealerID, saleID, itemID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRecordPayment handles POST /api/dealers/{dealerID}/sales/{saleID}/payments.
// Body: { amount?, payment_method, discount_percent? }
func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	var body paymentBody
	if !decodeValid(w, r, &body) {
		return
	}
	result, err := h.svc.RecordPayment(r.Context(), app.RecordPaymentRequest{
		DealerID:        dealerID,
		SaleID:          saleID,
		Amount:          body.Amount,
		PaymentMethod:   body.PaymentMethod,
		DiscountPercent: body.DiscountPercent,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.log.Info("payment recorded",
		zap.Int("sale_id", saleID),
		zap.String("paid", result.PaidAmount.StringFixed(2)),
		zap.String("actor", actor(r)),
	)
	writeJSON(w, result)
}

// apiCancelPayment handles DELETE /api/dealers/{dealerID}/sales/{saleID}/payments.
func (h *Handler) apiCancelPayment(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	result, err := h.svc.CancelPayment(r.Context(), dealerID, saleID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiSaveInvoice handles POST /api/dealers/{dealerID}/sales/{saleID}/save.
func (h *Handler) apiSaveInvoice(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	result, err := h.svc.SaveInvoice(r.Context(), dealerID, saleID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUnsaveInvoice handles DELETE /api/dealers/{dealerID}/sales/{saleID}/save.
func (h *Handler) apiUnsaveInvoice(w http.ResponseWriter, r *http.Request) {
	dealerID, saleID, ok := saleParams(w, r)
	if !ok {
		return
	}
	result, err := h.svc.UnsaveInvoice(r.Context(), dealerID, saleID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
