package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTernaryOf(t *testing.T) {
	tests := []struct {
		day  int
		want int
	}{
		{1, 1},
		{10, 1},
		{11, 2},
		{20, 2},
		{21, 3},
		{31, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TernaryOf(tt.day), "day %d", tt.day)
	}
}

func TestPeriodOf(t *testing.T) {
	p := PeriodOf(time.Date(2019, time.February, 28, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, ServicePeriod{Month: 2, Year: 2019, Ternary: 3}, p)
	assert.NoError(t, p.Validate())
}

func TestServicePeriodValidate(t *testing.T) {
	assert.Error(t, ServicePeriod{Month: 0, Year: 2019, Ternary: 1}.Validate())
	assert.Error(t, ServicePeriod{Month: 13, Year: 2019, Ternary: 1}.Validate())
	assert.Error(t, ServicePeriod{Month: 1, Year: 1700, Ternary: 1}.Validate())
	assert.Error(t, ServicePeriod{Month: 1, Year: 2019, Ternary: 4}.Validate())
}

func TestParseInputDate(t *testing.T) {
	d, err := ParseInputDate("2019/03/04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, time.March, 4, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseInputDate(" 2019/3/4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, d.Day())

	_, err = ParseInputDate("2019-03-04")
	assert.Error(t, err)
}

func TestFormatFlagDate(t *testing.T) {
	assert.Equal(t, "2019/3/4", FormatFlagDate(time.Date(2019, time.March, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2019/12/25", FormatFlagDate(time.Date(2019, time.December, 25, 0, 0, 0, 0, time.UTC)))
}

func TestAllFlagsOrdered(t *testing.T) {
	flags := AllFlags()
	require.Len(t, flags, len(FlagDescriptions))
	assert.Equal(t, FlagDuplicate, flags[0].FlagID)
	for i := 1; i < len(flags); i++ {
		assert.Less(t, flags[i-1].FlagID, flags[i].FlagID)
	}
	for _, f := range flags {
		assert.LessOrEqual(t, len(f.Name), 30, "name column is VARCHAR(30)")
		assert.LessOrEqual(t, len(f.Description), 200, "description column is VARCHAR(200)")
	}
}

func TestFlagIDsArePinned(t *testing.T) {
	// Persisted flagged_data rows reference these numbers
	pinned := map[FlagID]int{
		FlagDuplicate:         1,
		FlagUnobservedStop:    2,
		FlagUnopenedDoor:      3,
		FlagLowLatitude:       4,
		FlagHighLatitude:      5,
		FlagLowLongitude:      6,
		FlagHighLongitude:     7,
		FlagAbnormalDwell:     8,
		FlagNegativeLoad:      9,
		FlagMissingData:       10,
		FlagAbnormalSpeed:     11,
		FlagLeaveBeforeArrive: 12,
	}
	require.Len(t, FlagDescriptions, len(pinned))
	for id, want := range pinned {
		assert.Equal(t, want, int(id), id.Name())
		assert.Equal(t, id, FlagDescriptions[id].FlagID)
	}
}

func TestFlagIDName(t *testing.T) {
	assert.Equal(t, "DUPLICATE", FlagDuplicate.Name())
	assert.Equal(t, "flagged_unopened_door", FlagUnopenedDoor.ViewName())
	assert.False(t, FlagID(999).Valid())
	assert.Equal(t, "FLAG_999", FlagID(999).String())
}

func TestOutputModeSinks(t *testing.T) {
	assert.True(t, TableOut.WritesTable())
	assert.False(t, TableOut.WritesCSV())
	assert.True(t, CSVOut.WritesCSV())
	assert.False(t, CSVOut.WritesTable())
	assert.True(t, BothOut.WritesTable())
	assert.True(t, BothOut.WritesCSV())
}
