package checkrun

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/typeforge/checkrun/reporting"
	"github.com/typeforge/checkrun/schedule"
	"github.com/typeforge/checkrun/types"
)

// renderResultsTable prints the results of a check run.
func renderResultsTable(out io.Writer, result *reporting.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Check Run Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Check", "Binding", "Duration", "Results", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Check", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Binding", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Results", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, rec := range result.Records {
		// Surface the first error-carrying result for the frame.
		var errMsg string
		for _, ev := range rec.Results {
			if err := ev.Err(); err != nil {
				errMsg = extractKeyErrorMessage(err)
				break
			}
		}

		t.AppendRow(table.Row{
			rec.Check,
			rec.Binding.String(),
			formatDuration(rec.Duration),
			len(rec.Results),
			boolToInt(rec.Status == types.StatusPass),
			boolToInt(rec.Status == types.StatusFail),
			boolToInt(rec.Status == types.StatusSkip),
			getResultString(rec.Status),
			errMsg,
		})
	}
	t.AppendSeparator()

	if result.Stats.Failed > 0 {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else if result.Stats.Skipped > 0 {
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(result.Duration),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Stats.Skipped,
		getResultString(overallStatus(result)),
		"",
	})

	t.Render()
}

func overallStatus(result *reporting.RunResult) types.Status {
	switch {
	case result.Stats.Failed > 0:
		return types.StatusFail
	case result.Stats.Total == result.Stats.Skipped && result.Stats.Total > 0:
		return types.StatusSkip
	default:
		return types.StatusPass
	}
}

// RenderPlanTable prints the deterministic schedule without executing it.
func RenderPlanTable(out io.Writer, order []string, items []schedule.Item) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Execution Plan (order: %v)", order))

	t.AppendHeader(table.Row{"#", "Check", "Binding"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Check", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, item := range items {
		t.AppendRow(table.Row{i + 1, item.Check.Name, item.Binding.String()})
	}

	t.AppendFooter(table.Row{"", "TOTAL", len(items)})
	t.SetStyle(table.StyleLight)
	t.Render()
}
