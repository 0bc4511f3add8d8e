package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fulmenhq/tipguard/internal/batch"
	"github.com/fulmenhq/tipguard/internal/schema"
)

// printReport writes one line per document, indented detail lines for
// changes and failures, then the summary table.
func printReport(w io.Writer, sum *batch.Summary) {
	for _, r := range sum.Results {
		if r.Status == batch.StatusFailed {
			_, _ = fmt.Fprintf(w, "❌ %s\n", r.ID)
			for _, line := range failureLines(r) {
				_, _ = fmt.Fprintf(w, "   %s\n", line)
			}
			continue
		}
		_, _ = fmt.Fprintf(w, "✅ %s\n", r.ID)
		for _, c := range r.Changes {
			_, _ = fmt.Fprintf(w, "   %s\n", c)
		}
	}

	_, _ = fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
	_, _ = fmt.Fprintln(w, summaryTable(sum))
	switch {
	case sum.Failed():
		_, _ = fmt.Fprintf(w, "❌ %d of %d file(s) failed\n", len(sum.Failures), sum.Total)
	case sum.NoOp && sum.Mutated > 0:
		_, _ = fmt.Fprintf(w, "✅ All %d file(s) passed, %d would be modified (no-op)\n", sum.Total, sum.Mutated)
	default:
		_, _ = fmt.Fprintf(w, "✅ All %d file(s) passed, modified %d\n", sum.Total, sum.Mutated)
	}
}

func failureLines(r batch.DocumentResult) []string {
	var verr *schema.ViolationError
	if errors.As(r.Err, &verr) {
		lines := make([]string, 0, len(verr.Violations)+1)
		lines = append(lines, "Schema validation failed:")
		for _, v := range verr.Violations {
			lines = append(lines, fmt.Sprintf("- %s: %s", v.Field, v.Message))
		}
		return lines
	}
	msg := r.Error
	if r.Step != "" {
		msg = r.Step + ": " + msg
	}
	return strings.Split(msg, "\n")
}

func summaryTable(sum *batch.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", "Total", "Passed", "Modified", "Failed", "Duration"})
	tw.AppendRow(table.Row{
		shortRunID(sum.RunID),
		sum.Total,
		sum.Succeeded,
		sum.Mutated,
		len(sum.Failures),
		sum.Duration.Round(time.Millisecond).String(),
	})
	configs := make([]table.ColumnConfig, 0, 5)
	for i := 2; i <= 6; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
