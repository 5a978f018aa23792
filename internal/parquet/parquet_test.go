package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctran-hive/pipeline/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlaggedDataStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(FlaggedData))
	require.NotNil(t, s)

	for _, colName := range []string{"row_id", "service_key", "flag_id", "flag_name", "service_date"} {
		col, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col, "Column %s should not be nil", colName)
	}
}

func TestFlagStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(Flag))
	require.NotNil(t, s)

	for _, colName := range []string{"flag_id", "name", "description"} {
		_, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestConvertFlaggedRecords(t *testing.T) {
	day := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	out := ConvertFlaggedRecords([]schema.FlaggedRecord{
		{RowID: 10, ServiceKey: 2, FlagID: schema.FlagUnopenedDoor, ServiceDate: day},
	})
	require.Len(t, out, 1)
	assert.Equal(t, int64(10), out[0].RowID)
	assert.Equal(t, int32(schema.FlagUnopenedDoor), out[0].FlagID)
	assert.Equal(t, "UNOPENED_DOOR", out[0].FlagName)
	assert.Equal(t, day, out[0].ServiceDate)
}

func TestConvertFlags(t *testing.T) {
	out := ConvertFlags([]schema.Flag{
		{FlagID: schema.FlagDuplicate, Name: "DUPLICATE", Description: "Duplicate stop event"},
		{FlagID: schema.FlagMissingData, Name: "MISSING_DATA"},
	})
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Description)
	assert.Equal(t, "Duplicate stop event", *out[0].Description)
	assert.Nil(t, out[1].Description)
}

func TestWriteFlaggedDataParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "flagged_data.parquet")
	day := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	data := []FlaggedData{
		{RowID: 1, ServiceKey: 1, FlagID: 2, FlagName: "UNOBSERVED_STOP", ServiceDate: day},
		{RowID: 1, ServiceKey: 1, FlagID: 10, FlagName: "MISSING_DATA", ServiceDate: day},
		{RowID: 7, ServiceKey: 1, FlagID: 3, FlagName: "UNOPENED_DOOR", ServiceDate: day.AddDate(0, 0, 1)},
	}

	require.NoError(t, WriteFlaggedDataParquet(data, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[FlaggedData](file)
	defer reader.Close()

	readData := make([]FlaggedData, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	assert.Equal(t, len(data), n)
	for i := range data {
		assert.Equal(t, data[i].RowID, readData[i].RowID)
		assert.Equal(t, data[i].FlagID, readData[i].FlagID)
		assert.Equal(t, data[i].FlagName, readData[i].FlagName)
		assert.WithinDuration(t, data[i].ServiceDate, readData[i].ServiceDate, time.Nanosecond)
	}
}

func TestWriteFlagsParquet_InvalidPath(t *testing.T) {
	err := WriteFlagsParquet(ConvertFlags(schema.AllFlags()), filepath.Join(t.TempDir(), "missing", "flags.parquet"))
	assert.Error(t, err)
}
