package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dealer-ledger/internal/export"
)

// apiListInvoices handles GET /api/invoices.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListInvoices(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiExportInvoices handles GET /api/invoices/export. The workbook is built in memory
// so a failure can still be reported as JSON.
func (h *Handler) apiExportInvoices(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.svc.ExportInvoices(r.Context(), &buf); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
