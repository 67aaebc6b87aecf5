package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/suykerbuyk/reqifclean/internal/backup"
	"github.com/suykerbuyk/reqifclean/internal/check"
	"github.com/suykerbuyk/reqifclean/internal/config"
	"github.com/suykerbuyk/reqifclean/internal/ledger"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check config, directories, schema, backups and ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		report := check.Run(cfg)
		fmt.Fprint(cmd.OutOrStdout(), report.Format())
		if report.HasFailures() {
			return errors.New("check failed")
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent document outcomes from the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Ledger.Enabled {
			return errors.New("ledger disabled (set [ledger] enabled = true)")
		}
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer l.Close()

		records, err := l.RecentDocuments(context.Background(), historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no documents recorded")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tCONTAINER\tMEMBER\tREMOVED\tDATA LOSS\tID\tFINDINGS\tERROR")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
				humanize.Time(r.RecordedAt), r.Container, r.Member,
				r.Removed, r.DataLoss, yesNo(r.Identified), r.Findings, r.Error)
		}
		return tw.Flush()
	},
}

var restoreTo string

var restoreCmd = &cobra.Command{
	Use:   "restore <container>",
	Short: "Restore the newest backup of a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := filepath.Base(args[0])
		entry, err := backup.Latest(cfg.Backup.Dir, name)
		if err != nil {
			return err
		}
		dest := restoreTo
		if dest == "" {
			dest = filepath.Join(cfg.OutputDir, name)
		}
		if err := backup.Restore(entry.Path, dest); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s from backup taken %s\n", dest, humanize.Time(entry.Taken))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init [input-dir] [output-dir]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := "input", "output"
		if len(args) > 0 {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			input = abs
		}
		if len(args) > 1 {
			abs, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			output = abs
		}
		path, err := config.WriteDefault(input, output)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", config.CompressHome(path))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of documents to show")
	restoreCmd.Flags().StringVar(&restoreTo, "to", "", "destination path (default: output dir)")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
