package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"megascraper/pkg/config"
	"megascraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage MegaScraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'megascraper.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Regex patterns
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "megascraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# MegaScraper Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with MEGASCRAPER_
# For example: MEGASCRAPER_SEED, MEGASCRAPER_OUTPUT

# Seed URL to start crawling from (required)
seed: "https://example.com/gallery/"

# URL patterns
patterns:
  # Only follow links whose URL matches this regex
  # Leave empty to follow every same-site link
  pages: ""

  # Only collect image sources matching this regex
  # Leave empty to collect every image
  images: ""

# Dimension filter
filter:
  # Minimum width in pixels (0 = no minimum)
  min_width: 0

  # Minimum height in pixels (0 = no minimum)
  min_height: 0

# Output configuration
output:
  # Folder downloads are written into
  folder: "./output"

  # Structure: flat (everything in one folder) or grouped
  # (numbered subfolders holding images_per_folder images each)
  structure: "flat"

  # Naming: keep (original filename) or numerical (1.jpg, 2.jpg, ...)
  naming: "keep"

  # Images per numbered subfolder (grouped structure only)
  images_per_folder: 100

  # Number of the first subfolder (grouped structure only)
  folder_initial_num: 1

# Crawl limits
crawl:
  # Maximum pages to visit per run (0 = unbounded)
  max_pages: 0

  # Maximum images to download per run (0 = unbounded)
  how_many: 0

# HTTP fetch configuration
fetch:
  # Request timeout
  timeout: 30s

  # User agent string (optional, leave empty for default)
  user_agent: ""

  # Retry attempts for transient fetch failures
  retry_attempts: 3

  # Requests per minute (0 = unlimited)
  requests_per_minute: 0

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional, leave empty for stderr only)
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file and set the seed URL")
	fmt.Println("2. Run 'megascraper config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'megascraper scrape <seed-url>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			ui.PrintError("Failed to load configuration", err.Error())
			os.Exit(1)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		ui.PrintError("Failed to load environment", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Current configuration", "")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (MEGASCRAPER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			"megascraper.yaml",
			"megascraper.yml",
			".megascraper.yaml",
			".megascraper.yml",
			filepath.Join(os.Getenv("HOME"), ".megascraper.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "megascraper", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	warnings := []string{}
	errors := []string{}

	if cfg.Seed == "https://example.com/gallery/" {
		warnings = append(warnings, "seed URL still points at the example site")
	}

	if cfg.Output.Folder != "" {
		if err := os.MkdirAll(cfg.Output.Folder, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(errors) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Seed URL: %s\n", cfg.Seed)
	fmt.Printf("  Output folder: %s\n", cfg.Output.Folder)
	fmt.Printf("  Structure: %s, naming: %s\n", cfg.Output.Structure, cfg.Output.Naming)
	fmt.Printf("  Max pages: %d, how many: %d\n", cfg.Crawl.MaxPages, cfg.Crawl.HowMany)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
