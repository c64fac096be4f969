// Package report renders run summaries and table statistics.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/raaihank/order-etl/internal/etl"
	"github.com/raaihank/order-etl/internal/orders"
)

// Write prints the import summary of one run.
func Write(w io.Writer, s *etl.RunSummary) {
	fmt.Fprintln(w, "----- IMPORT SUMMARY -----")
	fmt.Fprintf(w, "Inserted rows: %d\n", s.Inserted)
	fmt.Fprintf(w, "Skipped conflicts: %d\n", s.Duplicates)
	fmt.Fprintf(w, "Skipped errors: %d\n", s.Errors)
	fmt.Fprintf(w, "  missing values: %d\n", s.Missing)
	fmt.Fprintf(w, "  timeouts: %d\n", s.Timeouts)
	fmt.Fprintf(w, "  storage errors: %d\n", s.StorageErrors()-s.Timeouts)
	fmt.Fprintf(w, "Total rows: %d\n", s.Total)
	if s.RejectSinkFailures > 0 {
		fmt.Fprintf(w, "Rejected rows not recorded: %d\n", s.RejectSinkFailures)
	}
	fmt.Fprintf(w, "Duration: %s\n", s.Duration)
	fmt.Fprintln(w, "ETL complete.")
}

// WriteValidation prints the outcome of a dry run that only validated rows.
func WriteValidation(w io.Writer, total int, missing map[string]int, rejected int) {
	fmt.Fprintln(w, "----- VALIDATION SUMMARY -----")
	fmt.Fprintf(w, "Total rows: %d\n", total)
	fmt.Fprintf(w, "Valid rows: %d\n", total-rejected)
	fmt.Fprintf(w, "Rows with missing values: %d\n", rejected)
	if len(missing) == 0 {
		return
	}

	table := newTable(w, "Column", "Rows missing")
	for _, column := range etl.RequiredColumns {
		if n := missing[column]; n > 0 {
			table.Append([]string{column, strconv.Itoa(n)})
		}
	}
	table.Render()
}

// WriteStats prints the row counts of both tables.
func WriteStats(w io.Writer, stats *orders.Stats) {
	table := newTable(w, "Table", "Rows")
	table.Append([]string{orders.OrdersTable, strconv.FormatInt(stats.Orders, 10)})
	table.Append([]string{orders.RejectedTable, strconv.FormatInt(stats.Rejected, 10)})
	table.Render()
}

// WriteGroups prints total profit per group, in the order given.
func WriteGroups(w io.Writer, column string, groups []orders.GroupTotal) {
	table := newTable(w, column, "Orders", "Profit")
	for _, g := range groups {
		table.Append([]string{g.Group, strconv.FormatInt(g.Orders, 10), g.Profit.StringFixed(2)})
	}
	table.Render()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
