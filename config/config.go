// Package config loads the application configuration. Values are layered:
// built-in defaults, then an optional YAML file, then DOLLARGRAPH_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "DOLLARGRAPH_"

// ErrHelp is returned by Load when -h or -help was requested
var ErrHelp = flag.ErrHelp

// Config holds all application configuration
type Config struct {
	// Run mode: the HTTP canvas, the terminal canvas or a one-shot render
	Mode string `yaml:"mode" validate:"oneof=server tui render"`

	// Server configuration
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	EnableMetrics  bool     `yaml:"enable_metrics"`

	// Board input and output
	DataFile   string `yaml:"data_file" validate:"required_if=Mode render"`
	OutputFile string `yaml:"output_file"`
	Format     string `yaml:"format" validate:"oneof=svg ascii json dot"`
	Palette    string `yaml:"palette" validate:"oneof=classic dark"`

	// Canvas
	Width        float64 `yaml:"width" validate:"gt=0"`
	Height       float64 `yaml:"height" validate:"gt=0"`
	VertexRadius float64 `yaml:"vertex_radius" validate:"gt=0"`

	// Layout
	Layout        string `yaml:"layout" validate:"oneof=force circle"`
	MaxIterations int    `yaml:"max_iterations" validate:"min=1"`
	Arrange       bool   `yaml:"arrange"` // Lay out the whole board before rendering

	// Persistence; boards are kept in memory when empty
	StorePath string `yaml:"store_path"`

	// Logging
	Environment string `yaml:"environment" validate:"oneof=development production test"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	Debug       bool   `yaml:"debug"`

	// File the YAML layer was read from, if any
	File string `yaml:"-"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Mode:          "server",
		Addr:          ":8080",
		Format:        "svg",
		Palette:       "classic",
		Width:         1000,
		Height:        800,
		VertexRadius:  25,
		Layout:        "force",
		MaxIterations: 500,
		Environment:   "development",
		LogLevel:      "info",
	}
}

// Load builds the configuration from the given command-line arguments
// (without the program name) and the process environment.
func Load(args []string) (*Config, error) {
	return load(args, os.Getenv, os.Stderr)
}

func load(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	flags := Default()
	var file string
	fs := newFlagSet(flags, &file, output)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	if file == "" {
		file = getenv(EnvPrefix + "CONFIG")
	}
	if file != "" {
		if err := cfg.readFile(file); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(getenv)

	// Only flags given explicitly override the earlier layers
	fs.Visit(func(f *flag.Flag) {
		cfg.copyFlag(f.Name, flags)
	})

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if cfg.OutputFile == "" && cfg.Mode == "render" {
		cfg.OutputFile = "board." + extension(cfg.Format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config, file *string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("dollargraph", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(file, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Run mode: server, tui, render")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address for server mode")
	fs.Func("origins", "Comma-separated CORS origins for server mode", func(s string) error {
		cfg.AllowedOrigins = splitList(s)
		return nil
	})
	fs.BoolVar(&cfg.EnableMetrics, "metrics", cfg.EnableMetrics, "Expose Prometheus metrics at /metrics")

	fs.StringVar(&cfg.DataFile, "data", cfg.DataFile, "Board file to load (JSON, YAML, CSV, text)")
	fs.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Output file for render mode (defaults to 'board.[format]')")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Render format: svg, ascii, json, dot")
	fs.StringVar(&cfg.Palette, "palette", cfg.Palette, "Render palette: classic, dark")

	fs.Float64Var(&cfg.Width, "width", cfg.Width, "Canvas width")
	fs.Float64Var(&cfg.Height, "height", cfg.Height, "Canvas height")
	fs.Float64Var(&cfg.VertexRadius, "radius", cfg.VertexRadius, "Vertex radius")

	fs.StringVar(&cfg.Layout, "layout", cfg.Layout, "Layout for unplaced vertices: force, circle")
	fs.IntVar(&cfg.MaxIterations, "iterations", cfg.MaxIterations, "Maximum iterations for the force layout")
	fs.BoolVar(&cfg.Arrange, "arrange", cfg.Arrange, "Render mode: apply the layout to every vertex before rendering")

	fs.StringVar(&cfg.StorePath, "store", cfg.StorePath, "SQLite database for saved boards (in memory when empty)")

	fs.StringVar(&cfg.Environment, "env", cfg.Environment, "Environment: development, production, test")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	return fs
}

// copyFlag copies the value bound to the named flag from src
func (c *Config) copyFlag(name string, src *Config) {
	switch name {
	case "mode":
		c.Mode = src.Mode
	case "addr":
		c.Addr = src.Addr
	case "origins":
		c.AllowedOrigins = src.AllowedOrigins
	case "metrics":
		c.EnableMetrics = src.EnableMetrics
	case "data":
		c.DataFile = src.DataFile
	case "output":
		c.OutputFile = src.OutputFile
	case "format":
		c.Format = src.Format
	case "palette":
		c.Palette = src.Palette
	case "width":
		c.Width = src.Width
	case "height":
		c.Height = src.Height
	case "radius":
		c.VertexRadius = src.VertexRadius
	case "layout":
		c.Layout = src.Layout
	case "iterations":
		c.MaxIterations = src.MaxIterations
	case "arrange":
		c.Arrange = src.Arrange
	case "store":
		c.StorePath = src.StorePath
	case "env":
		c.Environment = src.Environment
	case "log-level":
		c.LogLevel = src.LogLevel
	case "debug":
		c.Debug = src.Debug
	}
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	env := func(key, defaultValue string) string {
		return getEnv(getenv, EnvPrefix+key, defaultValue)
	}

	c.Mode = env("MODE", c.Mode)
	c.Addr = env("ADDR", c.Addr)
	if origins := env("ALLOWED_ORIGINS", ""); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.EnableMetrics = getEnvBool(getenv, EnvPrefix+"ENABLE_METRICS", c.EnableMetrics)

	c.DataFile = env("DATA_FILE", c.DataFile)
	c.OutputFile = env("OUTPUT_FILE", c.OutputFile)
	c.Format = env("FORMAT", c.Format)
	c.Palette = env("PALETTE", c.Palette)

	c.Width = getEnvFloat(getenv, EnvPrefix+"WIDTH", c.Width)
	c.Height = getEnvFloat(getenv, EnvPrefix+"HEIGHT", c.Height)
	c.VertexRadius = getEnvFloat(getenv, EnvPrefix+"VERTEX_RADIUS", c.VertexRadius)

	c.Layout = env("LAYOUT", c.Layout)
	c.MaxIterations = getEnvInt(getenv, EnvPrefix+"MAX_ITERATIONS", c.MaxIterations)
	c.Arrange = getEnvBool(getenv, EnvPrefix+"ARRANGE", c.Arrange)

	c.StorePath = env("STORE_PATH", c.StorePath)

	c.Environment = env("ENVIRONMENT", c.Environment)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.Debug = getEnvBool(getenv, EnvPrefix+"DEBUG", c.Debug)
}

var validate = validator.New()

// Validate checks the configuration against its field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Mode == "server" && c.IsProduction() && len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func extension(format string) string {
	switch format {
	case "ascii":
		return "txt"
	default:
		return format
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(getenv func(string) string, key string, defaultValue bool) bool {
	value := getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(getenv func(string) string, key string, defaultValue float64) float64 {
	if value := getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
