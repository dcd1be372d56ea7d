package reset

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"ttreset/pkg/models"
)

// PrintOutcomes renders per-device reset results as a table.
func PrintOutcomes(w io.Writer, outcomes []models.ResetOutcome) {
	table := tablewriter.NewTable(w)
	table.Header("STATUS", "PCI INDEX", "NEW INDEX", "BUS ADDRESS", "DETAIL")

	for _, o := range outcomes {
		status := "✓ OK"
		if !o.Completed {
			status = "✗ FAILED"
		}

		bdf := o.BusAddress
		if bdf == "" {
			bdf = "(unknown)"
		}

		table.Append(status, strconv.Itoa(o.InterfaceID), strconv.Itoa(o.NewInterfaceID), bdf, o.Detail)
	}

	table.Render()
}
