package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"dealer-ledger/internal/core"
)

// InvoiceSheet is the name of the worksheet written by WriteInvoices.
const InvoiceSheet = "Invoices"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var invoiceHeadings = []string{
	"Sale Number", "Dealer", "Date", "Payment Method",
	"Subtotal", "Discount", "Total", "Paid", "Remaining", "Status", "Notes",
}

// WriteInvoices renders sales as an XLSX workbook with a totals row and writes it to w.
func WriteInvoices(w io.Writer, sales []core.Sale) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoiceSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create heading style: %w", err)
	}

	for i, h := range invoiceHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(InvoiceSheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(InvoiceSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, s := range sales {
		row := i + 2
		notes := ""
		if s.Notes != nil {
			notes = *s.Notes
		}
		status := "UNPAID"
		switch {
		case s.IsPaid:
			status = "PAID"
		case s.PaidAmount.IsPositive():
			status = "PARTIAL"
		}

		values := []any{
			s.SaleNumber,
			s.DealerName,
			s.CreatedAt.Format("2006-01-02"),
			string(s.PaymentMethod),
			amount(s.Subtotal),
			amount(s.Discount),
			amount(s.Total),
			amount(s.PaidAmount),
			amount(s.Remaining()),
			status,
			notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(InvoiceSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", s.SaleNumber, err)
		}
	}

	last := len(sales) + 1
	totalRow := last + 1
	if err := f.SetCellValue(InvoiceSheet, fmt.Sprintf("A%d", totalRow), "TOTAL"); err != nil {
		return err
	}
	for _, col := range []string{"E", "F", "G", "H", "I"} {
		formula := fmt.Sprintf("SUM(%s2:%s%d)", col, col, max(last, 2))
		if err := f.SetCellFormula(InvoiceSheet, fmt.Sprintf("%s%d", col, totalRow), formula); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(InvoiceSheet, "E2", fmt.Sprintf("I%d", totalRow), money); err != nil {
		return err
	}
	if err := f.SetRowStyle(InvoiceSheet, totalRow, totalRow, bold); err != nil {
		return err
	}
	_ = f.SetColWidth(InvoiceSheet, "A", "B", 18)
	_ = f.SetColWidth(InvoiceSheet, "K", "K", 30)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
