package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/core/config"
	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	envFileFlag  string
	apiURLFlag   string
	storageFlag  string
	dataDirFlag  string
	logLevelFlag string
	noColorFlag  bool
	verboseFlag  bool
)

// Resolved by initConfig before any command runs.
var (
	cfg    = config.DefaultConfig()
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "mocha",
	Short: "Compose, send and organize HTTP requests.",
	Long: `mocha is an API client for the terminal. Compose requests, send them with
cancellation, keep them in shared collections with environments, and run whole
collections from CI.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(exitCode(err))
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", getEnvString("MOCHA_CONFIG", ""), "Path to config file (env: MOCHA_CONFIG)")
	pf.StringVar(&envFileFlag, "env-file", getEnvString("MOCHA_ENV_FILE", ".env"), "Path to .env file loaded before the config (env: MOCHA_ENV_FILE)")
	pf.StringVar(&apiURLFlag, "api-url", "", "Backend API URL (env: MOCHA_API_URL)")
	pf.StringVar(&storageFlag, "storage", "", "Session storage: file, sqlite or memory (env: MOCHA_STORAGE)")
	pf.StringVar(&dataDirFlag, "data-dir", "", "Directory for session and history data (env: MOCHA_DATA_DIR)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (env: MOCHA_LOG_LEVEL)")
	pf.BoolVar(&noColorFlag, "no-color", getEnvBool("MOCHA_NO_COLOR", false), "Disable colored output (env: MOCHA_NO_COLOR)")
	pf.BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("MOCHA_VERBOSE", false), "Verbose output (env: MOCHA_VERBOSE)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, signupCmd, nameCmd)
	rootCmd.AddCommand(orgCmd, collectionsCmd, requestsCmd, envCmd)
	rootCmd.AddCommand(importCmd, exportCmd, runCmd, historyCmd)
	rootCmd.AddCommand(mockCmd, tuiCmd)
	rootCmd.AddCommand(initCmd, validateCmd, versionCmd, completionCmd)
}

// initConfig loads .env, the config file and MOCHA_* overrides, then applies the
// flags given on the command line.
func initConfig(cmd *cobra.Command, _ []string) error {
	if envFileFlag != "" {
		if err := env.LoadAndExportDotEnv(envFileFlag); err != nil {
			return configError(err)
		}
	}

	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return configError(err)
	}

	overrides := &config.Config{
		APIURL:   apiURLFlag,
		Storage:  storageFlag,
		DataDir:  dataDirFlag,
		LogLevel: logLevelFlag,
	}
	if cmd.Flags().Changed("no-color") || noColorFlag {
		overrides.NoColor = config.BoolPtr(noColorFlag)
	}
	if cmd.Flags().Changed("verbose") || verboseFlag {
		overrides.Verbose = config.BoolPtr(verboseFlag)
	}
	cfg = loaded.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	level := cfg.LogLevel
	if cfg.GetVerbose() && logLevelFlag == "" {
		level = "debug"
	}
	logger, err = logging.New(cmd.ErrOrStderr(), level, cfg.LogFormat)
	if err != nil {
		return configError(err)
	}
	slog.SetDefault(logger)

	if cfg.GetNoColor() {
		color.NoColor = true
	}
	return nil
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
