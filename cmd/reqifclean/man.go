package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/reqifclean/internal/help"
)

var manCmd = &cobra.Command{
	Use:    "man [dir]",
	Short:  "Generate man pages",
	Args:   cobra.MaximumNArgs(1),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "man"
		if len(args) > 0 {
			dir = args[0]
		}
		written, err := help.WritePages(rootCmd, dir, "v"+version, time.Now().Format("2006-01-02"))
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(manCmd)
}
