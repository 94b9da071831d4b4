package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rezonia/ubl-pdf/internal/config"
	"github.com/rezonia/ubl-pdf/internal/logger"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool

	v   = config.New()
	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ublpdf",
	Short: "Convert UBL XML invoices to PDF",
	Long: `ublpdf turns UBL 2.x Invoice and CreditNote documents into a summary PDF
and extracts the original PDF embedded in the document, when there is one.

For every input document it writes:
  invoice_<id>_generated.pdf   one-page summary of the invoice
  invoice_<id>_embedded.pdf    the embedded original, when present

Examples:
  # Convert every .xml and .ubl file below the current directory
  ublpdf convert

  # Convert into a separate directory, summary only
  ublpdf convert invoices/ -o out/ --no-embedded

  # Show what a document contains
  ublpdf inspect invoice.xml -f table

  # Verify an XMLDSig signature against a CA bundle
  ublpdf verify --ca-file roots.pem invoice.xml`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")

	mustBind("logger.level", flags.Lookup("log-level"))
	mustBind("logger.format", flags.Lookup("log-format"))
}

// mustBind binds a flag to a config key; it fails only on a nil flag
func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(v, configFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logger.Level = "debug"
	}

	log, err = logger.NewLogger(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Debug("Configuration loaded",
		zap.String("config_file", v.ConfigFileUsed()),
		zap.String("command", cmd.Name()))
	return nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
