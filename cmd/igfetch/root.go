package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"igfetch/pkg/config"
	"igfetch/pkg/logger"
	"igfetch/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile     string
	logLevel       string
	sessionBackend string
	noColor        bool
	quiet          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igfetch",
	Short: "Resolve Instagram posts and stories into downloadable media",
	Long: `igfetch turns Instagram post, reel and story links into direct media URLs.

Features:
  - Photos, videos and carousels from public posts
  - Stories, using the cookies of a browser session you already have
  - Session cookies kept in the system keychain, an encrypted file or Redis
  - Rotating session claims and CSRF tokens persisted automatically
  - Optional downloads with concurrent workers
  - HTTP service mode with signed thumbnail proxy links`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetPlain(true)
		}
		if quiet {
			logLevel = "error"
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(os.Stderr, "Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igfetch.yaml or ~/.config/igfetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&sessionBackend, "session-backend", "", "session store (auto, keyring, file, env, redis, memory)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`igfetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration with global flags applied on top and
// initializes the global logger from it
func loadConfig(extra map[string]interface{}) (*config.Config, logger.Logger, error) {
	flags := map[string]interface{}{
		"log-level":       logLevel,
		"session-backend": sessionBackend,
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}
