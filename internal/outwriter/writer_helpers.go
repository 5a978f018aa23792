package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
)

// writeWithFile handles the common pattern of creating a file, writing to it, and cleaning up.
func writeWithFile(path string, writer func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return writer(file)
}

// writeCSV encodes the header of T followed by rows. The header is written even without rows.
func writeCSV[T any](w io.Writer, rows []T) error {
	csvWriter := csv.NewWriter(w)
	enc := csvutil.NewEncoder(csvWriter)

	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
