package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrFilenameRequired is returned when no output file is configured and none
// was given on the command line.
var ErrFilenameRequired = errors.New("no output filename: pass --filename or set filename in macrostub.yaml")

var validLogLevels = []string{"debug", "info", "warn", "error"}

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level %q (expected one of %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.OutputFormat != "" && !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output %q (expected one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}

	for _, class := range c.Classes {
		if strings.ContainsAny(strings.TrimSpace(class), " /") {
			return fmt.Errorf("invalid class name %q", class)
		}
	}
	return nil
}

// ValidateFilename checks that an output file was configured.
func (c *Config) ValidateFilename() error {
	if strings.TrimSpace(c.Filename) == "" {
		return ErrFilenameRequired
	}
	return nil
}
