package web

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dealer-ledger/internal/app"
)

type placeOrderBody struct {
	CustomerName    string          `json:"customer_name" validate:"required,max=200"`
	Items           []itemBody      `json:"items" validate:"required,min=1,dive"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type statusBody struct {
	Status string `json:"status" validate:"required"`
}

// apiListOrders handles GET /api/orders.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOrders(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiGetOrder handles GET /api/orders/{orderID}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := intParam(w, r, "orderID")
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiPlaceOrder handles POST /api/orders.
// Body: { customer_name, items: [{product_id, quantity}], discount_percent? }
func (h *Handler) apiPlaceOrder(w http.ResponseWriter, r *http.Request) {
	var body placeOrderBody
	if !decodeValid(w, r, &body) {
		return
	}
	result, err := h.svc.PlaceOrder(r.Context(), app.PlaceOrderRequest{
		CustomerName:    body.CustomerName,
		Items:           itemInputs(body.Items),
		DiscountPercent: body.DiscountPercent,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Order)
}

// apiTransitionOrder handles POST /api/orders/{orderID}/status.
// Body: { status: PENDING|APPROVED|SHIPPED|CANCELLED }
func (h *Handler) apiTransitionOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := intParam(w, r, "orderID")
	if !ok {
		return
	}
	var body statusBody
	if !decodeValid(w, r, &body) {
		return
	}
	result, err := h.svc.TransitionOrder(r.Context(), orderID, body.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if result.Changed {
		h.log.Info("order status changed",
			zap.String("order_number", result.Order.OrderNumber),
			zap.String("status", string(result.Order.Status)),
			zap.String("actor", actor(r)),
		)
	}
	writeJSON(w, result)
}
