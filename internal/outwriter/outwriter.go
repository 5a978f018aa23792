// Package outwriter has the sinks that deliver flagged rows and the console output of the CLI.
package outwriter

import (
	"fmt"
	"io"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
)

// OutWriter renders run reports, hive status and flag listings.
// It keeps console formatting out of the core packages.
type OutWriter struct {
	w     io.Writer
	width int // 0 detects the terminal width
}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter(w io.Writer) *OutWriter {
	return &OutWriter{w: w}
}

// WithWidth fixes the table width instead of detecting it.
func (ow *OutWriter) WithWidth(width int) *OutWriter {
	ow.width = width
	return ow
}

// WriteReport prints the summary of a finished or aborted run.
func (ow *OutWriter) WriteReport(report *schema.RunReport) error {
	return writeReportTable(ow.w, report)
}

// WriteStatus prints the hive status.
func (ow *OutWriter) WriteStatus(status schema.HiveStatus) error {
	return writeStatusTable(ow.w, status)
}

// WriteFlags prints the flags reference table.
func (ow *OutWriter) WriteFlags(flags []schema.Flag) error {
	return writeFlagsTable(ow.w, flags, getMaxDescriptionWidth(ow.width))
}

// WriteFlag prints a single flag lookup result.
func (ow *OutWriter) WriteFlag(flag schema.Flag) error {
	_, err := fmt.Fprintf(ow.w, "%s = %d\n%s\n", contract.InfoColor.Sprint(flag.Name), flag.FlagID, flag.Description)
	return err
}

// WriteDeleted prints how many rows a range delete removed.
func (ow *OutWriter) WriteDeleted(n int64, start, end time.Time) error {
	_, err := fmt.Fprintf(ow.w, "%s %d flagged rows between %s and %s\n",
		contract.SuccessColor.Sprint("Deleted"), n, formatBound(start), formatBound(end))
	return err
}

// formatBound renders an open range bound as "*".
func formatBound(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return schema.FormatFlagDate(t)
}
