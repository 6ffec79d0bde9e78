package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dealdesk/deal-engine/internal/model"
	"github.com/dealdesk/deal-engine/internal/underwriting"
)

// ExportSheetName names the single worksheet of an XLSX export.
const ExportSheetName = "Properties"

type exportColumn struct {
	header string
	value  func(p model.Property) string
}

var exportColumns = []exportColumn{
	{"Property ID", func(p model.Property) string { return p.PropertyID }},
	{"Address", func(p model.Property) string { return p.Address }},
	{"City", func(p model.Property) string { return p.City }},
	{"State", func(p model.Property) string { return p.State }},
	{"ZIP Code", func(p model.Property) string { return p.ZipCode }},
	{"County", func(p model.Property) string { return p.County }},
	{"Property Type", func(p model.Property) string { return p.PropertyType }},
	{"Deal Stage", func(p model.Property) string { return p.DealStage }},
	{"Units", func(p model.Property) string { return intCell(p.NumUnits) }},
	{"Bedrooms", func(p model.Property) string { return intCell(p.Bedrooms) }},
	{"Bathrooms", func(p model.Property) string { return decimalCell(p.Bathrooms) }},
	{"Square Feet", func(p model.Property) string { return intCell(p.SquareFeet) }},
	{"Year Built", func(p model.Property) string { return intCell(p.YearBuilt) }},
	{"Occupancy", func(p model.Property) string { return p.OccupancyStatus }},
	{"BPO Value", func(p model.Property) string { return currencyCell(p.BPO) }},
	{"ARV", func(p model.Property) string { return currencyCell(p.ARV) }},
	{"UPB", func(p model.Property) string { return currencyCell(p.UPB) }},
	{"Strike Price", func(p model.Property) string { return currencyCell(p.StrikePrice) }},
	{"LTV Ratio", func(p model.Property) string { return percentCell(p.LTVRatio, 100) }},
	{"Interest Rate", func(p model.Property) string { return percentCell(p.CurrentInterestRate, 1) }},
	{"Delinquent Status", func(p model.Property) string { return p.DelinquentStatus }},
	{"Foreclosure", func(p model.Property) string { return boolCell(p.ForeclosureFlag) }},
	{"Bankruptcy", func(p model.Property) string { return boolCell(p.BankruptcyFlag) }},
	{"Est. ROI", func(p model.Property) string { return percentCell(p.EstimatedROI, 1) }},
	{"Est. IRR", func(p model.Property) string { return percentCell(p.EstimatedIRR, 1) }},
	{"Risk Score", func(p model.Property) string { return intCell(p.RiskScore) }},
	{"Source", func(p model.Property) string { return p.Source }},
	{"Notes", func(p model.Property) string { return p.Notes }},
}

// ExportHeaders returns the export column headers in order.
func ExportHeaders() []string {
	headers := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		headers[i] = c.header
	}
	return headers
}

// ExportRow formats one property as export cells.
func ExportRow(p model.Property) []string {
	row := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		row[i] = c.value(p)
	}
	return row
}

// Export writes the properties with a header row in the given format.
func Export(w io.Writer, props []model.Property, format Format) error {
	switch format {
	case FormatCSV:
		return exportCSV(w, props)
	case FormatXLSX:
		return exportXLSX(w, props)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func exportCSV(w io.Writer, props []model.Property) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeaders()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range props {
		if err := cw.Write(ExportRow(p)); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.PropertyID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportXLSX(w io.Writer, props []model.Property) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := setRow(f, 1, ExportHeaders()); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(ExportSheetName, 1, 1, style)
	}
	for i, p := range props {
		if err := setRow(f, i+2, ExportRow(p)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(ExportSheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// --- Cell formatting ---

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func decimalCell(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func currencyCell(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return underwriting.FormatCurrency(v.Decimal.InexactFloat64())
}

func percentCell(v decimal.NullDecimal, scale int64) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.Mul(decimal.NewFromInt(scale)).StringFixed(2) + "%"
}

func boolCell(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
