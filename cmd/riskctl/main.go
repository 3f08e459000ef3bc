// ABOUTME: Entry point for riskctl, the offline vendor risk assessment CLI.
// ABOUTME: Wires the cobra root command with the assess and version subcommands.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "riskctl",
		Short: "riskctl scores vendor profiles for third-party risk",
		Long: `riskctl runs the vendor risk scorer over a local profile file and prints
the portfolio report without starting the assessment service.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	newLogger := func() (*logrus.Logger, error) {
		logger := logrus.New()
		logger.SetOutput(stderr)
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
		return logger, nil
	}

	rootCmd.AddCommand(newAssessCmd(newLogger))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of riskctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "riskctl %s\n", version)
		},
	}
}
