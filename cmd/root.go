/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/tipguard/internal/enums"
	"github.com/fulmenhq/tipguard/pkg/buildinfo"
	"github.com/fulmenhq/tipguard/pkg/config"
	"github.com/fulmenhq/tipguard/pkg/exitcode"
	"github.com/fulmenhq/tipguard/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// Tests use it to build isolated command trees.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tipguard",
		Short: "Validate, enrich and rehome media for tip documents",
		Long: `Tipguard keeps a corpus of markdown tips consistent: it validates front matter
against the configured schema, fills derived metadata (dates, author) without
overwriting human edits, and moves externally hosted media into object storage.

Examples:
   tipguard validate tips/split-panes.md   # Draft schema check
   tipguard validate --published --changed # Published schema for changed files
   tipguard enrich --changed               # Fill publishedAt/updatedAt/author
   tipguard rehome                         # Rehome media for $CHANGED_FILES
   tipguard run tips/split-panes.md        # validate, enrich, rehome`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().Bool("no-op", false, "Run every step without writing files or uploading media")
	cmd.PersistentFlags().String("config", "", "Config file (default: tipguard.yaml or .tipguard.yaml)")
	cmd.PersistentFlags().Int("concurrency", 0, "Documents processed in parallel (default from config)")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("tipguard {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newEnrichCommand())
	cmd.AddCommand(newRehomeCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newTouchExternalCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCodeFor(err)
		var ee *exitError
		if !errors.As(err, &ee) || !ee.reported {
			logger.Error("Command failed", logger.Err(err))
		}
		os.Exit(code)
	}
}

// exitError carries the process exit code for an error. reported is set
// when the report already told the user what went wrong.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var (
		ee  *exitError
		cle *enums.ConfigLoadError
		mce *config.MissingCredentialsError
		ice *config.InvalidCredentialError
	)
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &ee):
		return ee.code
	case errors.As(err, &cle):
		return exitcode.ConfigError
	case errors.As(err, &mce), errors.As(err, &ice):
		return exitcode.CredentialsError
	default:
		return exitcode.UsageError
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	noOp, _ := cmd.Flags().GetBool("no-op")

	cfg := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "tipguard",
		NoOp:      noOp,
	}

	if err := logger.Initialize(cfg); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}
