package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ReceiptData carries everything needed to render a payment receipt.
type ReceiptData struct {
	StudioName    string
	StudioAddress string
	Number        int64
	IssuedAt      time.Time
	StudentName   string
	CourseName    string
	Concept       string
	Amount        decimal.Decimal
	Method        string
	Balance       decimal.Decimal
	NextDueDate   *time.Time
	CashierName   string
}

// ReceiptRenderer produces receipt PDFs.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render builds a half-letter receipt document.
func (r *ReceiptRenderer) Render(data ReceiptData) ([]byte, error) {
	if data.Number <= 0 {
		return nil, fmt.Errorf("receipt requires a positive number")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: 140, Ht: 216},
	})
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.StudioName, "", 1, "C", false, 0, "")
	if data.StudioAddress != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, data.StudioAddress, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("RECIBO No. %06d", data.Number), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, data.IssuedAt.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Alumno", data.StudentName},
		{"Curso", data.CourseName},
		{"Concepto", data.Concept},
		{"Monto", "$" + data.Amount.StringFixed(2)},
		{"Metodo", data.Method},
	}
	if data.Balance.IsPositive() {
		rows = append(rows, [2]string{"Saldo pendiente", "$" + data.Balance.StringFixed(2)})
	}
	if data.NextDueDate != nil {
		rows = append(rows, [2]string{"Proximo pago", data.NextDueDate.Format("02/01/2006")})
	}
	if data.CashierName != "" {
		rows = append(rows, [2]string{"Atendido por", data.CashierName})
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 7, row[0], "B", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, row[1], "B", 1, "", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Gracias por su pago", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
