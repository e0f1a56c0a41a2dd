package reporter

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rcbops/zigzag-reporter/types"
)

// PrintSummaryTable prints the run's outcome to the console.
func PrintSummaryTable(result *types.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Test Run Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Test", "Package", "Duration", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Package", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, item := range result.Items {
		t.AppendRow(table.Row{
			item.Name,
			item.Package,
			formatDuration(item.Duration),
			getResultString(item.Status),
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", result.Stats.Total),
		"",
		formatDuration(result.Duration),
		fmt.Sprintf("%d passed, %d failed, %d skipped",
			result.Stats.Passed, result.Stats.Failed, result.Stats.Skipped),
	})

	t.Render()
}

// formatDuration trims sub-millisecond noise from displayed durations.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "0ms"
	}
	return d.Round(time.Millisecond).String()
}

func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return text.FgGreen.Sprint("pass")
	case types.TestStatusFail:
		return text.FgRed.Sprint("fail")
	case types.TestStatusSkip:
		return text.FgYellow.Sprint("skip")
	default:
		return string(status)
	}
}
