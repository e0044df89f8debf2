package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Output structure values
const (
	StructureFlat    = "flat"
	StructureGrouped = "grouped"
)

// Output naming values
const (
	NamingKeep      = "keep"
	NamingNumerical = "numerical"
)

// Config holds all configuration options for the scraper
type Config struct {
	// Seed is the URL traversal starts from
	Seed string `yaml:"seed" json:"seed"`

	// URL matching patterns
	Patterns PatternConfig `yaml:"patterns" json:"patterns"`

	// Minimum image dimensions
	Filter FilterConfig `yaml:"filter" json:"filter"`

	// Output layout settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Traversal and download caps
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// HTTP fetch settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PatternConfig holds the page and image URL regexes. An empty pattern
// matches everything.
type PatternConfig struct {
	Pages  string `yaml:"pages" json:"pages"`
	Images string `yaml:"images" json:"images"`
}

// FilterConfig holds the minimum pixel dimensions for an image to qualify
type FilterConfig struct {
	MinWidth  int `yaml:"min_width" json:"min_width"`
	MinHeight int `yaml:"min_height" json:"min_height"`
}

// OutputConfig holds output directory layout configuration
type OutputConfig struct {
	Folder           string `yaml:"folder" json:"folder"`
	Structure        string `yaml:"structure" json:"structure"`
	Naming           string `yaml:"naming" json:"naming"`
	ImagesPerFolder  int    `yaml:"images_per_folder" json:"images_per_folder"`
	FolderInitialNum int    `yaml:"folder_initial_num" json:"folder_initial_num"`
}

// CrawlConfig holds the traversal and download caps. Zero means unbounded.
type CrawlConfig struct {
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	HowMany  int `yaml:"how_many" json:"how_many"`
}

// FetchConfig holds HTTP client settings
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RetryAttempts     int           `yaml:"retry_attempts" json:"retry_attempts"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Folder:           "./output",
			Structure:        StructureFlat,
			Naming:           NamingKeep,
			ImagesPerFolder:  0,
			FolderInitialNum: 1,
		},
		Crawl: CrawlConfig{
			MaxPages: 0, // unbounded
			HowMany:  0, // unbounded
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			RetryAttempts:     3,
			RequestsPerMinute: 0, // unpaced
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if seed := os.Getenv("MEGASCRAPER_SEED"); seed != "" {
		c.Seed = seed
	}
	if pages := os.Getenv("MEGASCRAPER_REGEX_PAGES"); pages != "" {
		c.Patterns.Pages = pages
	}
	if images := os.Getenv("MEGASCRAPER_REGEX_IMAGES"); images != "" {
		c.Patterns.Images = images
	}
	if outputDir := os.Getenv("MEGASCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.Folder = outputDir
	}
	if ua := os.Getenv("MEGASCRAPER_USER_AGENT"); ua != "" {
		c.Fetch.UserAgent = ua
	}
	if minWidth := os.Getenv("MEGASCRAPER_MIN_WIDTH"); minWidth != "" {
		var val int
		fmt.Sscanf(minWidth, "%d", &val)
		if val > 0 {
			c.Filter.MinWidth = val
		}
	}
	if minHeight := os.Getenv("MEGASCRAPER_MIN_HEIGHT"); minHeight != "" {
		var val int
		fmt.Sscanf(minHeight, "%d", &val)
		if val > 0 {
			c.Filter.MinHeight = val
		}
	}
	if rpm := os.Getenv("MEGASCRAPER_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.Fetch.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("MEGASCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".megascraper.yaml",
		".megascraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "megascraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "megascraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".megascraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Any violation here is
// fatal and is reported before the first network request.
func (c *Config) Validate() error {
	var errs []error

	if c.Seed == "" {
		errs = append(errs, errors.New("seed URL is required"))
	} else {
		u, err := url.Parse(c.Seed)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("seed must be an absolute URL: %q", c.Seed))
		}
	}

	if _, err := regexp.Compile(c.Patterns.Pages); err != nil {
		errs = append(errs, fmt.Errorf("invalid page regex: %w", err))
	}
	if _, err := regexp.Compile(c.Patterns.Images); err != nil {
		errs = append(errs, fmt.Errorf("invalid image regex: %w", err))
	}

	if c.Filter.MinWidth < 0 || c.Filter.MinHeight < 0 {
		errs = append(errs, errors.New("minimum dimensions cannot be negative"))
	}

	if c.Output.Folder == "" {
		errs = append(errs, errors.New("output folder is required"))
	}
	switch c.Output.Structure {
	case StructureFlat:
	case StructureGrouped:
		if c.Output.ImagesPerFolder <= 0 {
			errs = append(errs, errors.New("images_per_folder must be positive for grouped output"))
		}
		if c.Output.FolderInitialNum < 0 {
			errs = append(errs, errors.New("folder_initial_num cannot be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid output structure: %q", c.Output.Structure))
	}
	switch c.Output.Naming {
	case NamingKeep, NamingNumerical:
	default:
		errs = append(errs, fmt.Errorf("invalid output naming: %q", c.Output.Naming))
	}

	if c.Crawl.MaxPages < 0 {
		errs = append(errs, errors.New("max_pages cannot be negative"))
	}
	if c.Crawl.HowMany < 0 {
		errs = append(errs, errors.New("how_many cannot be negative"))
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.Fetch.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// PagePattern returns the compiled page regex, nil when the pattern is
// empty (match everything). Validate must have passed.
func (c *Config) PagePattern() *regexp.Regexp {
	if c.Patterns.Pages == "" {
		return nil
	}
	return regexp.MustCompile(c.Patterns.Pages)
}

// ImagePattern returns the compiled image regex, nil when the pattern is
// empty (match everything). Validate must have passed.
func (c *Config) ImagePattern() *regexp.Regexp {
	if c.Patterns.Images == "" {
		return nil
	}
	return regexp.MustCompile(c.Patterns.Images)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if seed, ok := flags["seed"].(string); ok && seed != "" {
		c.Seed = seed
	}
	if pages, ok := flags["regex-pages"].(string); ok && pages != "" {
		c.Patterns.Pages = pages
	}
	if images, ok := flags["regex-images"].(string); ok && images != "" {
		c.Patterns.Images = images
	}
	if minWidth, ok := flags["min-width"].(int); ok && minWidth > 0 {
		c.Filter.MinWidth = minWidth
	}
	if minHeight, ok := flags["min-height"].(int); ok && minHeight > 0 {
		c.Filter.MinHeight = minHeight
	}
	if output, ok := flags["output"].(string); ok && output != "" {
		c.Output.Folder = output
	}
	if structure, ok := flags["structure"].(string); ok && structure != "" {
		c.Output.Structure = structure
	}
	if naming, ok := flags["naming"].(string); ok && naming != "" {
		c.Output.Naming = naming
	}
	if perFolder, ok := flags["images-per-folder"].(int); ok && perFolder > 0 {
		c.Output.ImagesPerFolder = perFolder
	}
	if initialNum, ok := flags["folder-initial-num"].(int); ok && initialNum > 0 {
		c.Output.FolderInitialNum = initialNum
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Crawl.MaxPages = maxPages
	}
	if howMany, ok := flags["how-many"].(int); ok && howMany > 0 {
		c.Crawl.HowMany = howMany
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Fetch.Timeout = timeout
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".megascraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
