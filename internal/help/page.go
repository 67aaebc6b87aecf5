// Package help renders man pages from the command tree.
package help

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag describes a command-line flag.
type Flag struct {
	Name string // e.g. "--input <string>" or "-n, --limit <int>"
	Desc string
}

// Page is the man page content of one command.
type Page struct {
	Name        string // man page name, e.g. "reqifclean-run"
	Synopsis    string
	Usage       string
	Description string
	Flags       []Flag
	Examples    []string
	SeeAlso     []string // man page cross-refs, e.g. "reqifclean(1)"
}

// ManName returns the man page name: "reqifclean" for the root,
// "reqifclean-<name>" for subcommands.
func ManName(cmd *cobra.Command) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", "-")
}

// FromCommand builds the page for cmd. Inherited flags are listed on the
// root page only.
func FromCommand(cmd *cobra.Command) Page {
	p := Page{
		Name:        ManName(cmd),
		Synopsis:    cmd.Short,
		Usage:       cmd.UseLine(),
		Description: cmd.Long,
	}
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		p.Flags = append(p.Flags, Flag{Name: flagName(f), Desc: f.Usage})
	})
	if cmd.Example != "" {
		for _, line := range strings.Split(cmd.Example, "\n") {
			if strings.TrimSpace(line) != "" {
				p.Examples = append(p.Examples, strings.TrimPrefix(line, "  "))
			}
		}
	}
	if cmd.HasParent() {
		p.SeeAlso = append(p.SeeAlso, ManName(cmd.Root())+"(1)")
	}
	return p
}

func flagName(f *pflag.Flag) string {
	name := "--" + f.Name
	if f.Shorthand != "" {
		name = "-" + f.Shorthand + ", " + name
	}
	if t := f.Value.Type(); t != "bool" {
		name += " <" + t + ">"
	}
	return name
}

// Visible returns the subcommands of root that get a man page.
func Visible(root *cobra.Command) []*cobra.Command {
	var subs []*cobra.Command
	for _, c := range root.Commands() {
		if c.IsAvailableCommand() {
			subs = append(subs, c)
		}
	}
	return subs
}

// WritePages writes root.1 and one page per visible subcommand into dir.
// Returns the written paths.
func WritePages(root *cobra.Command, dir, version, date string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create man dir: %w", err)
	}

	subs := Visible(root)
	var written []string
	write := func(name, content string) error {
		path := filepath.Join(dir, name+".1")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(ManName(root), FormatRoffTopLevel(root, subs, version, date)); err != nil {
		return written, err
	}
	for _, c := range subs {
		if err := write(ManName(c), FormatRoff(FromCommand(c), version, date)); err != nil {
			return written, err
		}
	}
	return written, nil
}
