package portfolio

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

// ExportXLSX writes the aggregation result to an xlsx workbook with an
// Exposure sheet and a Verification Queue sheet.
func ExportXLSX(result Result, path string) error {
	f := xlsx.NewFile()

	exposure, err := f.AddSheet("Exposure")
	if err != nil {
		return eris.Wrap(err, "portfolio: add exposure sheet")
	}

	header := exposure.AddRow()
	for _, h := range []string{
		"Supplier", "Org ID", "Status", "Price", "Delta %",
		"Absence", "Misalignment", "Contradiction", "Compression",
		"Open Questions", "Last Updated",
	} {
		header.AddCell().SetString(h)
	}

	for _, row := range result.Rows {
		r := exposure.AddRow()
		r.AddCell().SetString(row.SupplierName)
		r.AddCell().SetString(row.SupplierOrgID)
		r.AddCell().SetString(string(row.Status))
		r.AddCell().SetString(formatOptFloat(row.Price))
		r.AddCell().SetString(formatOptInt(row.PriceDeltaPct))
		for _, st := range model.SignalTypes {
			r.AddCell().SetInt(row.ExposureCounts[st])
		}
		r.AddCell().SetInt(row.OpenQuestions)
		r.AddCell().SetString(row.LastUpdated.Format("2006-01-02"))
	}

	queue, err := f.AddSheet("Verification Queue")
	if err != nil {
		return eris.Wrap(err, "portfolio: add queue sheet")
	}

	qHeader := queue.AddRow()
	for _, h := range []string{"Rank", "Supplier Org", "Severity", "Finding"} {
		qHeader.AddCell().SetString(h)
	}
	for i, entry := range result.Queue {
		r := queue.AddRow()
		r.AddCell().SetInt(i + 1)
		r.AddCell().SetString(entry.SupplierOrgID)
		r.AddCell().SetString(string(entry.Severity))
		r.AddCell().SetString(entry.Text)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "portfolio: save %s", path)
	}
	return nil
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
