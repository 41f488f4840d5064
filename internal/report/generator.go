// Package report runs an analysis and renders its results.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dejisec/tattletale/internal/index"
	"github.com/dejisec/tattletale/internal/ingest"
	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/stats"
	"github.com/dejisec/tattletale/internal/util"
)

// Generator runs ingest, correlation and summarization for one set of inputs.
type Generator struct {
	config     *util.Config
	onFileDone func(model.FileStats)
	now        func() time.Time
}

// NewGenerator creates a new report generator.
func NewGenerator(cfg *util.Config) *Generator {
	if cfg == nil {
		cfg = util.DefaultConfig()
	}
	return &Generator{
		config: cfg,
		now:    time.Now,
	}
}

// OnFileDone registers a callback invoked as each input file finishes.
func (g *Generator) OnFileDone(fn func(model.FileStats)) *Generator {
	g.onFileDone = fn
	return g
}

// WithClock overrides the report timestamp source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate creates a report. It returns either a complete report or an error.
func (g *Generator) Generate(ctx context.Context, opts model.ReportOptions) (*model.Report, error) {
	started := time.Now()

	threshold, err := g.config.MmapThresholdBytes()
	if err != nil {
		return nil, err
	}

	loader := ingest.NewLoader(ingest.Options{
		MmapThreshold: threshold,
		Parallel:      g.config.Parallel,
		Workers:       g.config.Workers,
		OnFileDone:    g.onFileDone,
	})

	res, err := loader.Load(ctx, ingest.Inputs{
		AccountFiles: opts.AccountFiles,
		PotFiles:     opts.PotFiles,
		TargetFiles:  opts.TargetFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}

	ix := index.BuildWithOptions(res.Accounts, res.Pairs, index.Options{Dedupe: g.config.Dedupe})
	res.Diagnostics.DuplicatesCut = ix.Dropped()
	if ix.Dropped() > 0 {
		util.Info("Dropped %d duplicate account records", ix.Dropped())
	}
	for _, c := range ix.Conflicts() {
		util.Warn("Hash %s has conflicting plaintexts; kept %q from %s, ignored %q from %s",
			c.Hash, c.Kept, c.KeptSource, c.Discarded, c.DiscardedSource)
	}

	filter := stats.NewTargetFilter(res.TargetNames())
	if len(opts.TargetFiles) > 0 && !filter.Active() {
		util.Warn("No target names found in %d target file(s); reporting on all accounts", len(opts.TargetFiles))
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = g.config.TopN
	}

	rep := stats.Summarize(ix, filter, stats.Options{TopN: topN, Now: g.now})

	if g.config.Diagnostics {
		rep.Diagnostics = res.Diagnostics
		logDiagnostics(res.Diagnostics)
	}

	util.Info("Analyzed %s accounts (%s cracked, %.2f%%) and %s potfile entries in %s",
		humanize.Comma(int64(rep.TotalAccounts)),
		humanize.Comma(int64(rep.CrackedAccounts)),
		rep.CrackedPercent,
		humanize.Comma(int64(len(res.Pairs))),
		time.Since(started).Round(time.Millisecond))

	return rep, nil
}

func logDiagnostics(d *model.Diagnostics) {
	for _, fs := range d.Files {
		util.Info("%s %s: %d lines, %d records, %d empty, %d malformed (%s, %s)",
			fs.Format, fs.Path, fs.Lines, fs.Records, fs.Empty, fs.Malformed,
			fs.Strategy, humanize.IBytes(uint64(fs.Size)))
	}
	for _, path := range d.MissingFiles {
		util.Info("missing optional input: %s", path)
	}
}
