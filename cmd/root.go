// Package cmd wires up the command-line entrypoint: a single root command
// that loads a config file and runs a router.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/encodeous/ripd/configerr"
	"github.com/encodeous/ripd/core"
	"github.com/encodeous/ripd/transport"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logPath string
)

var rootCmd = &cobra.Command{
	Use:   "rip-daemon <config-path>",
	Short: "A simulated RIP distance-vector router",
	Long: `rip-daemon runs a single RIP-style distance-vector router process
on loopback, exchanging periodic and triggered advertisements with the
neighbours named in its configuration file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := core.Bootstrap(args[0], logPath, verbose)
		if err == nil {
			return nil
		}

		var cerr *configerr.Error
		if errors.As(err, &cerr) {
			fmt.Fprintln(os.Stderr, cerr.Error())
			os.Exit(2)
		}

		var bindErr *transport.BindFailure
		if errors.As(err, &bindErr) {
			fmt.Fprintln(os.Stderr, bindErr.Error())
			os.Exit(1)
		}

		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
		return nil
	},
}

// Execute runs the root command. It is called by main.main and only needs
// to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.Flags().StringVarP(&logPath, "log-file", "l", "", "also append logs to this file")
}
