// Package batch drives cleanup, identifier synthesis and validation over
// every container in the input directory.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"github.com/suykerbuyk/reqifclean/internal/backup"
	"github.com/suykerbuyk/reqifclean/internal/config"
	"github.com/suykerbuyk/reqifclean/internal/container"
	"github.com/suykerbuyk/reqifclean/internal/discover"
	"github.com/suykerbuyk/reqifclean/internal/ledger"
	"github.com/suykerbuyk/reqifclean/internal/reqif"
	"github.com/suykerbuyk/reqifclean/internal/validate"
	"github.com/suykerbuyk/reqifclean/internal/xmltree"
)

// ErrNoValidator is returned when validation is enabled without a schema.
var ErrNoValidator = errors.New("validation enabled but no schema loaded")

// Validator checks a persisted document.
type Validator interface {
	Validate(r io.Reader) ([]validate.Finding, error)
}

// Recorder receives run, document and event records.
type Recorder interface {
	BeginRun(ctx context.Context, modes string) (string, error)
	FinishRun(ctx context.Context, runID, status string) error
	RecordDocument(ctx context.Context, r ledger.DocumentRecord) error
	RecordEvent(ctx context.Context, e ledger.Event) error
}

// DocumentReport is the outcome of one container member.
type DocumentReport struct {
	Container         string
	Member            string
	Cleanup           reqif.Result
	IdentifierChanged bool
	Saved             bool
	Findings          []validate.Finding
}

// ArchiveReport is the outcome of one container.
type ArchiveReport struct {
	Path      string
	Size      int64
	Backup    string
	Documents []DocumentReport
}

// Summary totals a run.
type Summary struct {
	Containers int
	Failed     int
	Documents  int
	Saved      int
	Removed    int
	DataLoss   int
	Unexpected int
	Findings   int
	Bytes      int64
}

func (s *Summary) add(r ArchiveReport) {
	s.Bytes += r.Size
	for _, d := range r.Documents {
		s.Documents++
		if d.Saved {
			s.Saved++
		}
		s.Removed += d.Cleanup.Removed
		s.DataLoss += len(d.Cleanup.DataLoss)
		s.Unexpected += len(d.Cleanup.Unexpected)
		s.Findings += len(d.Findings)
	}
}

// Option configures a Processor.
type Option func(*Processor)

// WithValidator sets the schema validator used in validate mode.
func WithValidator(v Validator) Option {
	return func(p *Processor) { p.validator = v }
}

// WithRecorder records outcomes to r, typically a *ledger.Ledger.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithClock overrides the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// Processor runs the configured modes over containers, one at a time.
type Processor struct {
	cfg       config.Config
	logger    *slog.Logger
	validator Validator
	recorder  Recorder
	now       func() time.Time
	runID     string
}

// New returns a Processor for cfg.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Begin registers a run with the recorder, if any. Run calls it itself;
// long-lived callers such as the watcher call it once up front.
func (p *Processor) Begin(ctx context.Context) error {
	if p.cfg.Modes.Validate && p.validator == nil {
		return ErrNoValidator
	}
	if p.recorder == nil || p.runID != "" {
		return nil
	}
	runID, err := p.recorder.BeginRun(ctx, p.cfg.ModeNames())
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	p.runID = runID
	p.logger.Debug("run started", "run", runID, "modes", p.cfg.ModeNames())
	return nil
}

// Finish closes the run registered by Begin.
func (p *Processor) Finish(ctx context.Context, runErr error) {
	if p.recorder == nil || p.runID == "" {
		return
	}
	status := "ok"
	if runErr != nil {
		status = "failed"
	}
	if err := p.recorder.FinishRun(ctx, p.runID, status); err != nil {
		p.logger.Warn("ledger update failed", "error", err)
	}
	p.runID = ""
}

// Run processes every container in the input directory. A failed container
// is reported and skipped unless halt_on_error is set; all failures are
// returned together.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if err := p.Begin(ctx); err != nil {
		return summary, err
	}

	var result *multierror.Error
	defer func() { p.Finish(ctx, result.ErrorOrNil()) }()

	files, err := discover.Discover(p.cfg.InputDir)
	if err != nil {
		result = multierror.Append(result, err)
		return summary, result.ErrorOrNil()
	}
	p.logger.Info("found containers", "count", len(files), "input", p.cfg.InputDir)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		summary.Containers++
		report, err := p.ProcessFile(ctx, f.Path)
		summary.add(report)
		if err != nil {
			summary.Failed++
			p.logger.Error("container failed", "container", f.Name, "error", err)
			result = multierror.Append(result, err)
			if p.cfg.HaltOnError {
				break
			}
		}
	}

	p.logger.Info("batch finished",
		"containers", summary.Containers,
		"failed", summary.Failed,
		"documents", summary.Documents,
		"saved", summary.Saved,
		"removed", summary.Removed,
		"data_loss", summary.DataLoss,
		"findings", summary.Findings,
		"size", humanize.Bytes(uint64(summary.Bytes)),
	)
	return summary, result.ErrorOrNil()
}

// ProcessFile stages a container from the input directory into the output
// directory when a rewriting mode is active, then processes it.
func (p *Processor) ProcessFile(ctx context.Context, path string) (ArchiveReport, error) {
	if p.cfg.Rewrites() {
		staged, err := discover.Stage(path, p.cfg.OutputDir, p.cfg.Modes.Debug)
		if err != nil {
			return ArchiveReport{Path: path}, fmt.Errorf("stage %s: %w", filepath.Base(path), err)
		}
		verb := "moved"
		if p.cfg.Modes.Debug {
			verb = "copied"
		}
		p.logger.Info("staged container", "container", filepath.Base(path), "action", verb, "output", p.cfg.OutputDir)
		path = staged
	}
	return p.ProcessArchive(ctx, path)
}

// ProcessArchive processes every document of the container at path. The
// container keeps its processing suffix when a document fails.
func (p *Processor) ProcessArchive(ctx context.Context, path string) (ArchiveReport, error) {
	name := filepath.Base(path)
	report := ArchiveReport{Path: path}
	if info, err := os.Stat(path); err == nil {
		report.Size = info.Size()
	}
	log := p.logger.With("container", name)
	log.Info("processing container", "size", humanize.Bytes(uint64(report.Size)))

	if p.cfg.Rewrites() && p.cfg.Backup.Enabled {
		dest, err := backup.Backup(path, p.cfg.Backup.Dir, p.now())
		if err != nil {
			return report, fmt.Errorf("back up %s: %w", name, err)
		}
		report.Backup = dest
		log.Info("backed up container", "backup", dest)
	}

	working, err := container.WithSuffix(path)
	if err != nil {
		return report, err
	}
	a, err := container.Open(working)
	if err != nil {
		return report, err
	}
	defer a.Close()

	for _, m := range a.Documents() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		doc, err := p.processDocument(log, a, m)
		doc.Container = name
		report.Documents = append(report.Documents, doc)
		p.record(ctx, log, doc, err)
		if err != nil {
			return report, fmt.Errorf("%s in %s: %w", m.Name, name, err)
		}
	}

	if a.Changed() {
		if err := a.Save(); err != nil {
			return report, err
		}
		log.Info("saved container")
	}
	if err := a.Close(); err != nil {
		return report, err
	}
	if _, err := container.RestoreSuffix(working); err != nil {
		return report, err
	}
	return report, nil
}

func (p *Processor) processDocument(log *slog.Logger, a *container.Archive, m *container.Member) (DocumentReport, error) {
	report := DocumentReport{Member: m.Name}
	log = log.With("member", m.Name)

	if p.cfg.Rewrites() {
		log.Info("parsing document")
		doc, err := xmltree.Parse(bytes.NewReader(m.Data))
		if err != nil {
			return report, err
		}

		changed := false
		if p.cfg.Modes.Cleanup {
			cleaner := reqif.NewCleaner(log, reqif.WithForeignPrefix(p.cfg.Policy.ForeignPrefix))
			report.Cleanup = cleaner.Clean(doc)
			changed = report.Cleanup.Changed()
		}
		if p.cfg.Modes.Identifier {
			ok, err := reqif.EnsureRepositoryID(doc)
			if err != nil {
				return report, err
			}
			report.IdentifierChanged = ok
			if ok {
				log.Info("repository identifier set", "value", reqif.SpecificationIDs(doc))
			} else {
				log.Info("repository identifier unchanged")
			}
			changed = changed || ok
		}

		if changed {
			if err := a.Replace(m.Name, doc.Bytes()); err != nil {
				return report, err
			}
			report.Saved = true
			log.Info("saved document", "size", humanize.Bytes(uint64(len(m.Data))))
		} else {
			log.Info("document unchanged")
		}
	}

	if p.cfg.Modes.Validate {
		findings, err := p.validator.Validate(bytes.NewReader(m.Data))
		if err != nil {
			return report, err
		}
		report.Findings = findings
		for _, f := range findings {
			log.Warn("validation finding",
				"severity", f.Severity.String(),
				"line", f.Line,
				"column", f.Column,
				"message", f.Message,
			)
		}
		log.Info("validated document", "findings", len(findings))
	}

	return report, nil
}

func (p *Processor) record(ctx context.Context, log *slog.Logger, d DocumentReport, docErr error) {
	if p.recorder == nil {
		return
	}
	rec := ledger.DocumentRecord{
		RunID:      p.runID,
		Container:  d.Container,
		Member:     d.Member,
		Candidates: d.Cleanup.Candidates,
		Removed:    d.Cleanup.Removed,
		DataLoss:   len(d.Cleanup.DataLoss),
		Unexpected: len(d.Cleanup.Unexpected),
		Cleaned:    d.Cleanup.Changed(),
		Identified: d.IdentifierChanged,
		Findings:   len(d.Findings),
	}
	if docErr != nil {
		rec.Error = docErr.Error()
	}
	if err := p.recorder.RecordDocument(ctx, rec); err != nil {
		log.Warn("ledger update failed", "error", err)
		return
	}
	for _, l := range d.Cleanup.DataLoss {
		p.recordEvent(ctx, log, ledger.Event{
			RunID: p.runID, Container: d.Container, Member: d.Member,
			Kind: ledger.KindDataLoss, Entity: l.Entity, Element: l.Element, Fragment: l.Fragment,
		})
	}
	for _, u := range d.Cleanup.Unexpected {
		p.recordEvent(ctx, log, ledger.Event{
			RunID: p.runID, Container: d.Container, Member: d.Member,
			Kind: ledger.KindUnexpected, Element: u.Element, Fragment: u.Fragment,
		})
	}
}

func (p *Processor) recordEvent(ctx context.Context, log *slog.Logger, e ledger.Event) {
	if err := p.recorder.RecordEvent(ctx, e); err != nil {
		log.Warn("ledger update failed", "error", err)
	}
}
