// Package export renders sales as flat rows for CSV downloads and the
// spreadsheet snapshot.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"bountytracker/internal/core"
)

// FilenamePrefix is prepended to the export date in download filenames.
const FilenamePrefix = "commission_tracker_export_"

// Header is the column row shared by every export target.
var Header = []string{
	"IMEI",
	"Store",
	"Category",
	"Customer Name",
	"Email",
	"Activation Date",
	"Status",
	"Notes",
	"Month",
	"Paid",
	"Amount",
	"Date Paid",
	"Payment Type",
}

// Filename returns the download name for an export produced on day.
func Filename(day core.Date) string {
	return FilenamePrefix + day.String() + ".csv"
}

// Rows flattens sales into one row per payment per bounty month. Months
// without payments produce no rows.
func Rows(sales []core.Sale) [][]string {
	rows := make([][]string, 0)
	for _, s := range sales {
		for _, m := range s.BountyTracking {
			for _, p := range m.Payments {
				rows = append(rows, []string{
					s.IMEI,
					string(s.StoreLocation),
					string(s.Category),
					s.CustomerName,
					s.Email,
					s.ActivationDate,
					string(s.Status),
					s.Notes,
					fmt.Sprintf("%d", m.MonthNumber),
					yesNo(m.Paid),
					p.Amount.String(),
					paidOn(m),
					p.Type,
				})
			}
		}
	}
	return rows
}

// WriteCSV writes the header and rows of sales to w.
func WriteCSV(w io.Writer, sales []core.Sale) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(sales)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// paidOn prefers datePaid and falls back to dateChecked.
func paidOn(m core.BountyMonth) string {
	var t *time.Time
	switch {
	case m.DatePaid != nil:
		t = m.DatePaid
	case m.DateChecked != nil:
		t = m.DateChecked
	default:
		return ""
	}
	return core.DateOf(*t).String()
}
