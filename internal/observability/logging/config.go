package logging

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Format of log lines
type Format string

const (
	FormatNone   Format = "none"
	FormatPretty Format = "pretty"
	FormatJSONL  Format = "jsonl"
)

// Level names understood by charmbracelet/log
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// OutputStderr is the default destination; any other Output is a file path
const OutputStderr = "stderr"

// Config selects log format, level and destination
type Config struct {
	Format Format
	Level  string
	Output string
}

func DefaultConfig() Config {
	return Config{Format: FormatNone, Level: LevelInfo, Output: OutputStderr}
}

// Validate rejects unknown formats and levels; empty values take defaults
func (c Config) Validate() error {
	switch c.Format {
	case "", FormatNone, FormatPretty, FormatJSONL:
	default:
		return fmt.Errorf("invalid log format: %s (use none, pretty or jsonl)", c.Format)
	}
	if _, err := c.minLevel(); err != nil {
		return err
	}
	return nil
}

// minLevel parses Level; fatal is not a level pkgvet logs at
func (c Config) minLevel() (log.Level, error) {
	if c.Level == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(c.Level)
	if err != nil || lvl > log.ErrorLevel {
		return 0, fmt.Errorf("invalid log level: %s (use debug, info, warn or error)", c.Level)
	}
	return lvl, nil
}
