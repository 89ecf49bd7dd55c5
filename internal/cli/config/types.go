// Package config provides configuration management for the macrostub CLI.
package config

import (
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/macrostub/internal/macro"
)

// Config holds all CLI configuration options.
type Config struct {
	// Filename is the stub output path as written by the user. Use
	// OutputPath for the resolved location.
	Filename     string   `koanf:"filename"`
	Classes      []string `koanf:"classes"`
	Manifest     string   `koanf:"manifest"`
	Sources      []string `koanf:"sources"`
	Exclude      []string `koanf:"exclude"`
	LogLevel     string   `koanf:"log_level"`
	Verbose      bool     `koanf:"verbose"`
	OutputFormat string   `koanf:"output"`

	// ProjectRoot anchors relative paths from the config file and defaults.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// DefaultSources are the globs scanned for macro registrations when the
// config does not list any.
var DefaultSources = []string{
	"app/**/*.php",
	"routes/**/*.php",
}

// DefaultExclude keeps dependency and cache trees out of the scan.
var DefaultExclude = []string{
	"vendor/**",
	"node_modules/**",
	"storage/**",
	"bootstrap/cache/**",
}

// ClassList returns the built-in Macroable classes followed by the
// configured ones, without duplicates.
func (c *Config) ClassList() []string {
	return macro.MergeClasses(macro.DefaultClasses, c.Classes)
}

// OutputPath resolves Filename against the project root.
func (c *Config) OutputPath() string {
	return c.ResolvePath(c.Filename)
}

// ResolvePath returns path joined onto the project root unless it is
// already absolute.
func (c *Config) ResolvePath(path string) string {
	return resolvePathRelativeTo(path, c.ProjectRoot)
}

// Rel returns path relative to the project root when it lies inside it.
func (c *Config) Rel(path string) string {
	if c.ProjectRoot == "" {
		return path
	}
	rel, err := filepath.Rel(c.ProjectRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
