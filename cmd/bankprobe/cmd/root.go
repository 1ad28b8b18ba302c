package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/bankprobe/pkg/core/config"
	"github.com/msto63/bankprobe/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bankprobe",
	Short: "bankprobe - mutual-TLS gRPC probe for the bank API",
	Long: `bankprobe opens a mutually authenticated gRPC channel to a bank
endpoint and calls every bank API operation once, in a fixed order.
A failing operation is reported and the run continues with the next one.

Commands:
  run       - run the operation catalog against a bank
  ping      - standard gRPC health check over the secure channel
  catalog   - list the operations in run order
  fakebank  - serve a scriptable bank for local testing`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.Name(), err)
	}
	_ = logging.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/bankprobe.toml or $BANKPROBE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the config file named by --config, or the default
// locations, and configures logging from it
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.General.LogLevel = "debug"
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	lc := logging.DefaultLoggerConfig("bankprobe")
	lc.Level = cfg.General.LogLevel
	lc.Format = cfg.General.LogFormat
	lc.File = cfg.General.LogFile
	logging.Configure(lc)
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
