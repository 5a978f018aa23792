package contract

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/ctran-hive/pipeline/schema"
)

// Default values for configuration.
const (
	DefaultMaxSkippedRows = -1 // Unset; the skip budget never trips
	DefaultOutputPath     = "."
	DefaultKafkaTopic     = "ctran.flagged"
	DefaultLogLevel       = "info"
	FatalExitCode         = 75 // EX_TEMPFAIL, tells a supervisor to restart the pipeline
)

// DefaultWorkers is the default number of concurrent row-pass workers.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Config holds the runtime configuration for the pipeline.
// This struct is the "final, validated" config.
type Config struct {
	SourceBackend   schema.DatabaseBackend
	SourceDBConnect string // Please use env var as this is plaintext

	HiveBackend   schema.DatabaseBackend
	HiveDBConnect string // Please use env var as this is plaintext
	HiveSchema    string // Only applies to PostgreSQL

	Output     schema.OutputMode
	OutputPath string

	Restart        bool
	MaxSkippedRows *int // nil when no budget is configured
	Workers        int
	SkipDuplicates bool // run without the duplicate batch rule

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  slog.Level
	LogFormat schema.LogFormat
	UseColors bool

	StartDate time.Time // Zero when not supplied
	EndDate   time.Time // Zero when not supplied

	Rules schema.RuleConfig
}

// RulesRawInput holds rule thresholds from the YAML config file.
// Pointer fields keep the defaults when a key is absent.
type RulesRawInput struct {
	MinLatitude     *float64 `mapstructure:"min_latitude"`
	MaxLatitude     *float64 `mapstructure:"max_latitude"`
	MinLongitude    *float64 `mapstructure:"min_longitude"`
	MaxLongitude    *float64 `mapstructure:"max_longitude"`
	MaxDwellSeconds *int64   `mapstructure:"max_dwell_seconds"`
	MaxSpeed        *float64 `mapstructure:"max_speed"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	SourceBackend   string `mapstructure:"source-backend"`
	SourceDBConnect string `mapstructure:"source-db-connect"`
	HiveBackend     string `mapstructure:"hive-backend"`
	HiveDBConnect   string `mapstructure:"hive-db-connect"`
	HiveSchema      string `mapstructure:"hive-schema"`
	Output          string `mapstructure:"output"`
	OutputPath      string `mapstructure:"output-path"`
	Restart         bool   `mapstructure:"restart"`
	SkipDuplicates  bool   `mapstructure:"skip-duplicates"`
	MaxSkippedRows  int    `mapstructure:"max-skipped-rows"`
	Workers         int    `mapstructure:"workers"`
	KafkaBrokers    string `mapstructure:"kafka-brokers"`
	KafkaTopic      string `mapstructure:"kafka-topic"`
	LogLevel        string `mapstructure:"log-level"`
	LogFormat       string `mapstructure:"log-format"`
	Color           string `mapstructure:"color"`

	// --- Fields from range commands ---
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`

	// --- Rule thresholds from config file ---
	Rules RulesRawInput `mapstructure:"rules"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.MaxSkippedRows != nil {
		v := *c.MaxSkippedRows
		clone.MaxSkippedRows = &v
	}
	if c.KafkaBrokers != nil {
		clone.KafkaBrokers = append([]string(nil), c.KafkaBrokers...)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processDateRange(cfg, input); err != nil {
		return err
	}
	return processRules(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") && !strings.HasPrefix(connStr, "postgres") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' or be a postgres:// URL")
		}
	default:
		return fmt.Errorf("unsupported backend: %s", backend)
	}
	return nil
}

// ParseBackend lower-cases and validates a backend name.
func ParseBackend(raw string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", raw)
	}
	return backend, nil
}

// validateBackendConfigs validates source and hive backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	source, err := ParseBackend(input.SourceBackend)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := ValidateDatabaseConnectionString(source, input.SourceDBConnect); err != nil {
		return fmt.Errorf("source-db-connect: %w", err)
	}
	cfg.SourceBackend = source
	cfg.SourceDBConnect = input.SourceDBConnect

	hive, err := ParseBackend(input.HiveBackend)
	if err != nil {
		return fmt.Errorf("hive: %w", err)
	}
	if err := ValidateDatabaseConnectionString(hive, input.HiveDBConnect); err != nil {
		return fmt.Errorf("hive-db-connect: %w", err)
	}
	cfg.HiveBackend = hive
	cfg.HiveDBConnect = input.HiveDBConnect

	cfg.HiveSchema = strings.TrimSpace(input.HiveSchema)
	if cfg.HiveSchema == "" {
		cfg.HiveSchema = schema.DefaultHiveSchema
	}
	if err := ValidateIdentifier(cfg.HiveSchema); err != nil {
		return fmt.Errorf("hive-schema: %w", err)
	}

	if cfg.Output.WritesTable() && cfg.HiveBackend == schema.NoneBackend {
		return fmt.Errorf("output '%s' writes to the hive table but hive-backend is none", cfg.Output)
	}
	return nil
}

// validateSimpleInputs processes and validates all non-backend fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Restart = input.Restart
	cfg.SkipDuplicates = input.SkipDuplicates
	cfg.OutputPath = input.OutputPath
	if cfg.OutputPath == "" {
		cfg.OutputPath = DefaultOutputPath
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	switch {
	case input.MaxSkippedRows < -1:
		return fmt.Errorf("max-skipped-rows must be -1 (unset) or a non-negative count (received %d)", input.MaxSkippedRows)
	case input.MaxSkippedRows == -1:
		cfg.MaxSkippedRows = nil
	default:
		limit := input.MaxSkippedRows
		cfg.MaxSkippedRows = &limit
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output '%s'. must be table, csv, both", input.Output)
	}

	cfg.LogFormat = schema.LogFormat(strings.ToLower(input.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = schema.TextLog
	}
	if _, ok := schema.ValidLogFormats[cfg.LogFormat]; !ok {
		return fmt.Errorf("invalid log-format '%s'. must be text, json", input.LogFormat)
	}
	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	cfg.KafkaBrokers = nil
	for b := range strings.SplitSeq(input.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	cfg.KafkaTopic = strings.TrimSpace(input.KafkaTopic)
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = DefaultKafkaTopic
	}

	return nil
}

// processDateRange parses the optional start and end dates.
// A missing end defaults to the start date; reversed endpoints are swapped.
func processDateRange(cfg *Config, input *ConfigRawInput) error {
	cfg.StartDate, cfg.EndDate = time.Time{}, time.Time{}
	if input.Start == "" {
		if input.End != "" {
			return fmt.Errorf("--end given without --start")
		}
		return nil
	}
	start, err := schema.ParseInputDate(input.Start)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end := start
	if input.End != "" {
		if end, err = schema.ParseInputDate(input.End); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}
	cfg.StartDate, cfg.EndDate = OrderDates(start, end)
	return nil
}

// processRules overlays configured thresholds on the defaults.
func processRules(cfg *Config, input *ConfigRawInput) error {
	rules := schema.DefaultRuleConfig()
	raw := input.Rules
	if raw.MinLatitude != nil {
		rules.MinLatitude = *raw.MinLatitude
	}
	if raw.MaxLatitude != nil {
		rules.MaxLatitude = *raw.MaxLatitude
	}
	if raw.MinLongitude != nil {
		rules.MinLongitude = *raw.MinLongitude
	}
	if raw.MaxLongitude != nil {
		rules.MaxLongitude = *raw.MaxLongitude
	}
	if raw.MaxDwellSeconds != nil {
		rules.MaxDwellSeconds = *raw.MaxDwellSeconds
	}
	if raw.MaxSpeed != nil {
		rules.MaxSpeed = *raw.MaxSpeed
	}
	if rules.MaxDwellSeconds < 0 {
		return fmt.Errorf("rules.max_dwell_seconds must not be negative (received %d)", rules.MaxDwellSeconds)
	}
	cfg.Rules = rules
	return nil
}

// OrderDates returns the two dates in ascending order.
func OrderDates(a, b time.Time) (time.Time, time.Time) {
	if a.After(b) {
		return b, a
	}
	return a, b
}

// ParseLogLevel maps a level name onto slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		s = DefaultLogLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log-level '%s'. must be debug, info, warn, error", s)
	}
	return level, nil
}
