package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dealer-ledger/internal/app"
	"dealer-ledger/internal/metrics"
)

// Config carries the adapter's collaborators. Metrics may be nil.
type Config struct {
	AllowedOrigins string
	JWTSecret      string
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	log       *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		svc:       svc,
		jwtSecret: cfg.JWTSecret,
		log:       log.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.log, cfg.Metrics))
	r.Use(Recoverer(h.log))
	r.Use(CORS(cfg.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Dealer sales
		r.Route("/api/dealers/{dealerID}/sales", func(r chi.Router) {
			r.Get("/", h.apiListDealerSales)
			r.Post("/", h.apiCreateSale)
			r.Route("/{saleID}", func(r chi.Router) {
				r.Get("/", h.apiGetSale)
				r.Delete("/", h.apiDeleteSale)
				r.Post("/items", h.apiAddItems)
				r.Delete("/items/{itemID}", h.apiRemoveItem)
				r.Post("/payments", h.apiRecordPayment)
				r.Delete("/payments", h.apiCancelPayment)
				r.Post("/save", h.apiSaveInvoice)
				r.Delete("/save", h.apiUnsaveInvoice)
			})
		})

		// Invoice list
		r.Get("/api/invoices", h.apiListInvoices)
		r.Get("/api/invoices/export", h.apiExportInvoices)

		// Storefront orders
		r.Get("/api/orders", h.apiListOrders)
		r.Post("/api/orders", h.apiPlaceOrder)
		r.Get("/api/orders/{orderID}", h.apiGetOrder)
		r.Post("/api/orders/{orderID}/status", h.apiTransitionOrder)
	})

	h.router = r
	return r
}

// health reports liveness.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// intParam parses a positive integer URL parameter, writing 400 on failure.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		writeError(w, r, "invalid "+name, "INVALID_INPUT", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "INVALID_INPUT", http.StatusBadRequest)
		return false
	}
	return true
}
