// Package export writes journal postings in the ledger import layout.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cash-application-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName = "Journal Entries"
	dateFmt   = "2006-01-02"
)

// Columns is the fixed column order of the ledger import.
var Columns = []string{
	"Company Code",
	"Posting Date",
	"Document Date",
	"Document Type",
	"Line Number",
	"GL Account",
	"Debit",
	"Credit",
	"Currency",
	"Item Text",
}

// Row renders one posting as strings. The empty side of the posting is "".
func Row(p models.JournalPosting) []string {
	return []string{
		p.CompanyCode,
		p.PostingDate.Format(dateFmt),
		p.DocumentDate.Format(dateFmt),
		p.DocumentType,
		strconv.Itoa(p.LineNumber),
		p.GLAccount,
		amountText(p.Debit),
		amountText(p.Credit),
		p.Currency,
		p.ItemText,
	}
}

func amountText(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

func WriteCSV(w io.Writer, postings []models.JournalPosting) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range postings {
		if err := cw.Write(Row(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single sheet workbook. Line numbers and amounts are
// stored as numbers so the sheet sums without conversion.
func WriteXLSX(w io.Writer, postings []models.JournalPosting) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, p := range postings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			p.CompanyCode,
			p.PostingDate.Format(dateFmt),
			p.DocumentDate.Format(dateFmt),
			p.DocumentType,
			p.LineNumber,
			p.GLAccount,
			amountCell(p.Debit),
			amountCell(p.Credit),
			p.Currency,
			p.ItemText,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write line %d: %w", p.LineNumber, err)
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func amountCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
