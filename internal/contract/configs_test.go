package contract

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ctran-hive/pipeline/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation; tests mutate a copy.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		SourceBackend:  "sqlite",
		HiveBackend:    "sqlite",
		Output:         "table",
		Workers:        4,
		MaxSkippedRows: -1,
		LogLevel:       "info",
		LogFormat:      "text",
		Color:          "yes",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "zero workers", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: true},
		{name: "bad skip budget", mutate: func(in *ConfigRawInput) { in.MaxSkippedRows = -5 }, expectError: true},
		{name: "invalid hive backend", mutate: func(in *ConfigRawInput) { in.HiveBackend = "oracle" }, expectError: true},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.HiveBackend = "mysql" }, expectError: true},
		{
			name: "mysql with dsn",
			mutate: func(in *ConfigRawInput) {
				in.HiveBackend = "MySQL"
				in.HiveDBConnect = "root:pw@tcp(localhost:3306)/hive"
			},
		},
		{
			name: "table output needs a hive",
			mutate: func(in *ConfigRawInput) {
				in.HiveBackend = "none"
				in.Output = "both"
			},
			expectError: true,
		},
		{
			name: "csv output without a hive",
			mutate: func(in *ConfigRawInput) {
				in.HiveBackend = "none"
				in.Output = "csv"
			},
		},
		{name: "bad schema name", mutate: func(in *ConfigRawInput) { in.HiveSchema = "hive; DROP" }, expectError: true},
		{name: "bad log level", mutate: func(in *ConfigRawInput) { in.LogLevel = "loud" }, expectError: true},
		{name: "bad log format", mutate: func(in *ConfigRawInput) { in.LogFormat = "xml" }, expectError: true},
		{name: "bad color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "end without start", mutate: func(in *ConfigRawInput) { in.End = "2019/1/1" }, expectError: true},
		{name: "bad start", mutate: func(in *ConfigRawInput) { in.Start = "yesterday" }, expectError: true},
		{
			name: "negative dwell",
			mutate: func(in *ConfigRawInput) {
				v := int64(-1)
				in.Rules.MaxDwellSeconds = &v
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, schema.SQLiteBackend, cfg.HiveBackend)
	assert.Equal(t, schema.DefaultHiveSchema, cfg.HiveSchema)
	assert.Equal(t, schema.TableOut, cfg.Output)
	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, DefaultKafkaTopic, cfg.KafkaTopic)
	assert.Nil(t, cfg.MaxSkippedRows)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, schema.DefaultRuleConfig(), cfg.Rules)
	assert.True(t, cfg.StartDate.IsZero())
}

func TestProcessAndValidate_DateRange(t *testing.T) {
	t.Run("end defaults to start", func(t *testing.T) {
		input := validInput()
		input.Start = "2019/3/4"
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, input))
		assert.Equal(t, cfg.StartDate, cfg.EndDate)
	})

	t.Run("reversed endpoints are swapped", func(t *testing.T) {
		input := validInput()
		input.Start = "2019/03/10"
		input.End = "2019/03/01"
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, input))
		assert.Equal(t, time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
		assert.Equal(t, time.Date(2019, 3, 10, 0, 0, 0, 0, time.UTC), cfg.EndDate)
	})
}

func TestProcessAndValidate_SkipBudgetAndRules(t *testing.T) {
	input := validInput()
	input.MaxSkippedRows = 3
	input.Restart = true
	input.KafkaBrokers = "k1:9092, ,k2:9092"
	lat := 40.0
	input.Rules.MinLatitude = &lat

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	require.NotNil(t, cfg.MaxSkippedRows)
	assert.Equal(t, 3, *cfg.MaxSkippedRows)
	assert.True(t, cfg.Restart)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 40.0, cfg.Rules.MinLatitude)
	assert.Equal(t, schema.DefaultRuleConfig().MaxLatitude, cfg.Rules.MaxLatitude)
}

func TestConfigClone(t *testing.T) {
	limit := 2
	cfg := &Config{MaxSkippedRows: &limit, KafkaBrokers: []string{"a"}}
	clone := cfg.Clone()
	*clone.MaxSkippedRows = 9
	clone.KafkaBrokers[0] = "b"
	assert.Equal(t, 2, *cfg.MaxSkippedRows)
	assert.Equal(t, "a", cfg.KafkaBrokers[0])
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	assert.NoError(t, ValidateDatabaseConnectionString(schema.SQLiteBackend, ""))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.NoneBackend, ""))
	assert.Error(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "root@localhost"))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost dbname=hive"))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "postgres://u@h/db"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "dbname=hive"))
	assert.Error(t, ValidateDatabaseConnectionString("oracle", "x"))
}

func TestOrderDates(t *testing.T) {
	a := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.AddDate(0, 0, 5)
	s, e := OrderDates(b, a)
	assert.Equal(t, a, s)
	assert.Equal(t, b, e)
}
