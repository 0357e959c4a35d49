package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptData carries everything a payment receipt shows.
type ReceiptData struct {
	ReceiptNumber string
	IssuedAt      time.Time
	BuyerName     string
	BuyerEmail    string
	ListingTitle  string
	ListingCity   string
	Segments      []string
	AmountMinor   int64
	Currency      string
}

// ReceiptRenderer produces payment receipt PDFs.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render creates a single-page receipt document.
func (r *ReceiptRenderer) Render(data ReceiptData) ([]byte, error) {
	if data.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt number required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Receipt %s", data.ReceiptNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, data.IssuedAt.Format("02 Jan 2006 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	writeRow := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 7, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, value, "", 1, "", false, 0, "")
	}

	writeRow("Billed to", data.BuyerName)
	if data.BuyerEmail != "" {
		writeRow("Email", data.BuyerEmail)
	}
	writeRow("Parking spot", data.ListingTitle)
	if data.ListingCity != "" {
		writeRow("City", data.ListingCity)
	}
	pdf.Ln(4)

	if len(data.Segments) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, "Reserved periods", "B", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, segment := range data.Segments {
			pdf.CellFormat(0, 6, segment, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	major := float64(data.AmountMinor) / 100
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Total paid: %.2f %s", major, strings.ToUpper(data.Currency)), "T", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
