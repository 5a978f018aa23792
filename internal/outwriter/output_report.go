package outwriter

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// stateLabel colors a run state for the console.
func stateLabel(state schema.RunState) string {
	switch state {
	case schema.StateDone:
		return contract.SuccessColor.Sprint(string(state))
	case schema.StateAborted:
		return contract.ErrorColor.Sprint(string(state))
	default:
		return contract.WarnColor.Sprint(string(state))
	}
}

// writeReportTable renders the run summary as a two-column table.
func writeReportTable(w io.Writer, report *schema.RunReport) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "Value"})

	duplicates := strconv.Itoa(report.DuplicateRows)
	if !report.DuplicateChecked {
		duplicates = contract.WarnColor.Sprint("not checked")
	}
	sinks := strings.Join(report.Sinks, ", ")
	if sinks == "" {
		sinks = "none"
	}

	data := [][]string{
		{"Run", report.RunID},
		{"Range", fmt.Sprintf("%s to %s", schema.FormatFlagDate(report.Start), schema.FormatFlagDate(report.End))},
		{"State", stateLabel(report.State)},
		{"Records", strconv.Itoa(report.Records)},
		{"Flagged rows", strconv.Itoa(report.FlaggedRows)},
		{"Duplicates", duplicates},
		{"Skipped", strconv.FormatInt(report.Skipped, 10)},
		{"Rule failures", strconv.FormatInt(report.RuleFailures, 10)},
		{"Sinks", sinks},
	}
	if report.Message != "" {
		data = append(data, []string{"Message", report.Message})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Run completed in %v\n", report.Duration)
	return err
}

// writeStatusTable renders the hive status and the row count of each table.
func writeStatusTable(w io.Writer, status schema.HiveStatus) error {
	connected := contract.SuccessColor.Sprint("yes")
	if !status.Connected {
		connected = contract.WarnColor.Sprint("no")
	}
	checkpoint := contract.WarnColor.Sprint("none")
	if status.HasCheckpoint {
		checkpoint = schema.FormatFlagDate(status.LatestServiceDay)
	}

	if _, err := fmt.Fprintf(w, "Backend: %s\nConnected: %s\n", status.Backend, connected); err != nil {
		return err
	}
	if status.SchemaName != "" {
		if _, err := fmt.Fprintf(w, "Schema: %s\n", status.SchemaName); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Latest processed day: %s\nTotal flagged rows: %d\n", checkpoint, status.TotalFlagged); err != nil {
		return err
	}
	if len(status.TableSizes) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Table", "Rows"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, name := range slices.Sorted(maps.Keys(status.TableSizes)) {
		data = append(data, []string{name, strconv.FormatInt(status.TableSizes[name], 10)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeFlagsTable renders the flags reference table.
func writeFlagsTable(w io.Writer, flags []schema.Flag, descWidth int) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Name", "Description"})

	var data [][]string
	for _, f := range flags {
		data = append(data, []string{
			strconv.Itoa(int(f.FlagID)),
			f.Name,
			truncate(f.Description, descWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
