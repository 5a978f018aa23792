package contract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ctran-hive/pipeline/schema"
	"github.com/fatih/color"
)

// Color variables for console output.
var (
	ErrorColor   = color.New(color.FgRed, color.Bold)
	WarnColor    = color.New(color.FgYellow)
	SuccessColor = color.New(color.FgGreen)
	InfoColor    = color.New(color.FgCyan)
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateIdentifier rejects SQL identifiers outside ^[a-zA-Z_][a-zA-Z0-9_]*$.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	LogFatalCode(msg, err, 1)
}

// LogFatalCode logs an error and exits the program with the given code.
func LogFatalCode(msg string, err error, code int) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(code)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// NewLogger builds the structured logger for the configured format and level.
func NewLogger(w io.Writer, format schema.LogFormat, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == schema.JSONLog {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// GetHiveDBFilePath returns the default path to the SQLite hive database.
func GetHiveDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".ctran_hive.db"
	}
	return filepath.Join(homeDir, ".ctran_hive.db")
}

// GetSourceDBFilePath returns the default path to the SQLite source database.
func GetSourceDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".ctran_source.db"
	}
	return filepath.Join(homeDir, ".ctran_source.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
