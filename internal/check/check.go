package check

import (
	"fmt"
	"os"
	"strings"

	"github.com/suykerbuyk/reqifclean/internal/config"
	"github.com/suykerbuyk/reqifclean/internal/discover"
	"github.com/suykerbuyk/reqifclean/internal/ledger"
	"github.com/suykerbuyk/reqifclean/internal/reqif"
	"github.com/suykerbuyk/reqifclean/internal/validate"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "reqifclean check\n\n  no checks ran\n"
	}

	// Find max name length for alignment.
	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("reqifclean check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports which config file was loaded. Broken TOML is caught
// by config.Load before we get here.
func CheckConfig(cfg config.Config) Result {
	if cfg.Source == "" {
		return Result{Name: "config", Status: Pass, Detail: "defaults (no config file)"}
	}
	return Result{Name: "config", Status: Pass, Detail: config.CompressHome(cfg.Source)}
}

// CheckInputDir checks that the input directory exists and counts containers.
func CheckInputDir(path string) Result {
	files, err := discover.Discover(path)
	if err != nil {
		return Result{Name: "input", Status: Fail, Detail: path + " not found"}
	}
	return Result{Name: "input", Status: Pass, Detail: fmt.Sprintf("%s (%d containers)", config.CompressHome(path), len(files))}
}

// CheckOutputDir checks the output directory. A missing one is created on
// the first rewriting run.
func CheckOutputDir(path string) Result {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return Result{Name: "output", Status: Fail, Detail: path + " is not a directory"}
		}
		return Result{Name: "output", Status: Pass, Detail: config.CompressHome(path)}
	}
	return Result{Name: "output", Status: Warn, Detail: path + " not found (created on first run)"}
}

// CheckPolicy checks the foreign identifier prefix.
func CheckPolicy(policy config.PolicyConfig) Result {
	if policy.ForeignPrefix == "" {
		return Result{Name: "policy", Status: Warn, Detail: "foreign_prefix empty, using " + reqif.DefaultForeignPrefix}
	}
	return Result{Name: "policy", Status: Pass, Detail: "foreign_prefix " + policy.ForeignPrefix}
}

// CheckSchema compiles the schema bundle. Failure is fatal only when
// validation is enabled.
func CheckSchema(schema config.SchemaConfig, required bool) Result {
	miss := Warn
	if required {
		miss = Fail
	}
	if info, err := os.Stat(schema.Dir); err != nil || !info.IsDir() {
		return Result{Name: "schema", Status: miss, Detail: schema.Dir + " not found"}
	}
	if _, err := validate.NewFromDir(schema.Dir, schema.Root, validate.WithAllowMissingImports(schema.AllowMissingImports)); err != nil {
		return Result{Name: "schema", Status: miss, Detail: err.Error()}
	}
	return Result{Name: "schema", Status: Pass, Detail: schema.Root + " compiled"}
}

// CheckBackup checks the backup directory when backups are enabled.
func CheckBackup(b config.BackupConfig) Result {
	if !b.Enabled {
		return Result{Name: "backup", Status: Pass, Detail: "disabled"}
	}
	if info, err := os.Stat(b.Dir); err == nil && info.IsDir() {
		return Result{Name: "backup", Status: Pass, Detail: config.CompressHome(b.Dir)}
	}
	return Result{Name: "backup", Status: Warn, Detail: b.Dir + " not found (created on first backup)"}
}

// CheckLedger opens an existing ledger database when the ledger is enabled.
func CheckLedger(l config.LedgerConfig) Result {
	if !l.Enabled {
		return Result{Name: "ledger", Status: Pass, Detail: "disabled"}
	}
	if _, err := os.Stat(l.Path); err != nil {
		return Result{Name: "ledger", Status: Warn, Detail: l.Path + " not found (created on first run)"}
	}
	db, err := ledger.Open(l.Path)
	if err != nil {
		return Result{Name: "ledger", Status: Fail, Detail: err.Error()}
	}
	defer db.Close()
	return Result{Name: "ledger", Status: Pass, Detail: config.CompressHome(l.Path)}
}

// Run executes all checks against the given config and returns a report.
func Run(cfg config.Config) Report {
	var results []Result

	results = append(results, CheckConfig(cfg))
	results = append(results, CheckInputDir(cfg.InputDir))
	results = append(results, CheckOutputDir(cfg.OutputDir))
	results = append(results, CheckPolicy(cfg.Policy))
	results = append(results, CheckSchema(cfg.Schema, cfg.Modes.Validate))
	results = append(results, CheckBackup(cfg.Backup))
	results = append(results, CheckLedger(cfg.Ledger))

	return Report{Results: results}
}
