package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "reqifclean",
	Short: "Remove codeBeamer traces from ReqIF exports",
	Long: `reqifclean rewrites the .reqif documents inside .reqifz containers:
it strips elements carrying codeBeamer identifiers, fills in the
repository identifier of the header, and validates the result
against the ReqIF schema.

Configuration: ~/.config/reqifclean/config.toml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reqifclean v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/reqifclean/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd, watchCmd, checkCmd, historyCmd, restoreCmd, initCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reqifclean: %v\n", err)
		os.Exit(1)
	}
}
