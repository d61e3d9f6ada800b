package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"igfetch/pkg/config"
	"igfetch/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igfetch configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGFETCH_*) and .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.igfetch.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources.

Session cookies and secrets are masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Session store settings
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# igfetch configuration file
#
# Every option can also be set through environment variables prefixed
# with IGFETCH_, for example IGFETCH_SESSION_ID or IGFETCH_LOG_LEVEL.

instagram:
  # Browser session cookies. Prefer 'igfetch auth login', which keeps
  # them in the keychain instead of this file.
  session_id: ""
  csrf_token: ""

  # User agent sent to Instagram; should match the browser the cookies
  # came from
  user_agent: ""

  # How long a scraped anti-forgery token is reused
  token_ttl: 24h

http:
  timeout: 30s

retry:
  enabled: true
  max_attempts: 3
  base_delay: 1s
  max_delay: 10s
  multiplier: 2.0

rate_limit:
  enabled: true
  # token_bucket or sliding_window
  strategy: token_bucket
  requests_per_minute: 60

session_store:
  # auto, keyring, file, env, redis or memory
  backend: auto
  # Encrypted session file (default ~/.config/igfetch/sessions.enc)
  file: ""
  redis_addr: ""
  redis_password: ""
  redis_db: 0

stream:
  # Signing key for thumbnail links; random per process when empty
  secret: ""
  # Address clients use to reach 'igfetch serve'
  public_url: http://localhost:9000
  ttl: 90s

server:
  addr: ":9000"

output:
  base_directory: ./downloads
  # Range: 1-10
  concurrent_downloads: 3
  overwrite_existing: false

logging:
  # debug, info, warn, error or disabled
  level: info
  # Optional JSON log file in addition to the console
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".igfetch.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError(os.Stderr, "Configuration file already exists: "+configPath, nil)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			ui.PrintError(os.Stderr, "Failed to create directory", err)
			os.Exit(1)
		}
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError(os.Stderr, "Failed to write configuration file", err)
		os.Exit(1)
	}

	ui.PrintSuccess(os.Stdout, "Configuration file created: "+configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Store your session:   igfetch auth login")
	fmt.Println("  2. Check the result:     igfetch config validate")
	fmt.Println("  3. Resolve a link:       igfetch fetch https://www.instagram.com/p/<code>/")
}

// maskedConfig returns a copy of cfg that is safe to print
func maskedConfig(cfg *config.Config) config.Config {
	masked := *cfg
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	masked.Instagram.SessionID = mask(cfg.Instagram.SessionID)
	masked.Instagram.CSRFToken = mask(cfg.Instagram.CSRFToken)
	masked.SessionStore.RedisPassword = mask(cfg.SessionStore.RedisPassword)
	masked.Stream.Secret = mask(cfg.Stream.Secret)
	return masked
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, _, err := loadConfig(nil)
	if err != nil {
		ui.PrintError(os.Stderr, "Failed to load configuration", err)
		os.Exit(1)
	}

	data, err := yaml.Marshal(maskedConfig(cfg))
	if err != nil {
		ui.PrintError(os.Stderr, "Failed to render configuration", err)
		os.Exit(1)
	}

	if configFile != "" {
		ui.PrintInfo(os.Stdout, "Configuration file", configFile)
	}
	fmt.Println(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile != "" {
		ui.PrintInfo(os.Stdout, "Validating configuration", configFile)
	}

	cfg, _, err := loadConfig(nil)
	if err != nil {
		ui.PrintError(os.Stderr, "Configuration validation failed", err)
		os.Exit(1)
	}

	var warnings []string
	if cfg.SessionStore.Backend == config.BackendEnv && (cfg.Instagram.SessionID == "" || cfg.Instagram.CSRFToken == "") {
		warnings = append(warnings, "env session backend selected but IGFETCH_SESSION_ID or IGFETCH_CSRF_TOKEN is empty")
	}
	if cfg.Instagram.SessionID != "" && cfg.SessionStore.Backend != config.BackendEnv && cfg.SessionStore.Backend != config.BackendAuto {
		warnings = append(warnings, "session_id in the config file is only read by the env backend; use 'igfetch auth login'")
	}
	if cfg.Stream.Secret == "" {
		warnings = append(warnings, "stream.secret is empty; thumbnail links only work for this process")
	}
	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		ui.PrintError(os.Stderr, "Cannot create output directory", err)
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning(os.Stdout, "Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess(os.Stdout, "Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Session backend: %s\n", cfg.SessionStore.Backend)
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Concurrent downloads: %d\n", cfg.Output.ConcurrentDownloads)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Max retries: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
