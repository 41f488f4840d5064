// Package ingest reads account exports, potfiles and target lists into records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/parser"
	"github.com/dejisec/tattletale/internal/util"
)

var (
	// ErrNoAccountFiles is returned when no account export was supplied.
	ErrNoAccountFiles = errors.New("no account files supplied")
	// ErrMissingMandatoryInput is wrapped by MissingInputError.
	ErrMissingMandatoryInput = errors.New("missing mandatory input")
)

// MissingInputError reports an account file that could not be read.
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("cannot read account file %s: %v", e.Path, e.Err)
}

func (e *MissingInputError) Unwrap() []error {
	return []error{ErrMissingMandatoryInput, e.Err}
}

// ctxCheckEvery is how many lines are parsed between cancellation checks.
const ctxCheckEvery = 4096

// Inputs lists the files of one run.
type Inputs struct {
	AccountFiles []string
	PotFiles     []string
	TargetFiles  []string
}

// Options controls how files are read.
type Options struct {
	MmapThreshold int64
	Parallel      bool
	Workers       int
	// OnFileDone is called once per finished file. It may be called from
	// several goroutines in parallel mode.
	OnFileDone func(model.FileStats)
}

// Result holds every record of one run, in canonical order.
type Result struct {
	Accounts    []model.Account
	Pairs       []model.CrackedPair
	Targets     []model.Target
	Diagnostics *model.Diagnostics
}

// TargetNames returns the parsed target names.
func (r *Result) TargetNames() []string {
	names := make([]string, len(r.Targets))
	for i, t := range r.Targets {
		names[i] = t.Name
	}
	return names
}

// Loader reads input files into a Result.
type Loader struct {
	opts Options
}

// NewLoader creates a loader.
func NewLoader(opts Options) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Loader{opts: opts}
}

type job struct {
	format model.Format
	path   string
	order  int
}

type fileResult struct {
	job      job
	stats    model.FileStats
	missing  bool
	accounts []model.Account
	pairs    []model.CrackedPair
	targets  []model.Target
}

// Load parses every input file. An account file that cannot be read fails the
// whole run; unreadable pot and target files are skipped with a warning.
func (l *Loader) Load(ctx context.Context, in Inputs) (*Result, error) {
	if len(in.AccountFiles) == 0 {
		return nil, ErrNoAccountFiles
	}

	jobs := buildJobs(in)
	results := make([]*fileResult, len(jobs))

	if l.opts.Parallel && len(jobs) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.opts.Workers)
		for i, j := range jobs {
			i, j := i, j
			g.Go(func() error {
				res, err := l.loadFile(gctx, j)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, j := range jobs {
			res, err := l.loadFile(ctx, j)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
	}

	return fold(results), nil
}

func buildJobs(in Inputs) []job {
	var jobs []job
	add := func(format model.Format, paths []string) {
		for _, p := range paths {
			jobs = append(jobs, job{format: format, path: p, order: len(jobs)})
		}
	}
	add(model.FormatAccounts, in.AccountFiles)
	add(model.FormatPot, in.PotFiles)
	add(model.FormatTargets, in.TargetFiles)
	return jobs
}

func (l *Loader) loadFile(ctx context.Context, j job) (*fileResult, error) {
	res := &fileResult{
		job:   j,
		stats: model.FileStats{Path: j.path, Format: j.format},
	}

	src, err := Open(j.path, l.opts.MmapThreshold)
	if err != nil {
		if j.format == model.FormatAccounts {
			return nil, &MissingInputError{Path: j.path, Err: err}
		}
		util.Warn("Skipping %s %s: %v", j.format, j.path, err)
		res.missing = true
		return res, nil
	}
	defer src.Close()

	res.stats.Strategy = src.Strategy()
	res.stats.Size = src.Size()

	var counter parser.Counter
	err = src.ForEachLine(func(line string) error {
		if counter.Lines%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		lineNo := counter.Lines + 1
		counter.Observe(res.parseLine(line, lineNo))
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if j.format == model.FormatAccounts {
			return nil, &MissingInputError{Path: j.path, Err: err}
		}
		util.Warn("Failed reading %s %s: %v", j.format, j.path, err)
		return &fileResult{job: j, stats: model.FileStats{Path: j.path, Format: j.format}, missing: true}, nil
	}
	counter.Apply(&res.stats)

	util.Debug("Read %s %s (%s, %s): %d records, %d empty, %d malformed",
		j.format, j.path, res.stats.Strategy, humanize.IBytes(uint64(res.stats.Size)),
		res.stats.Records, res.stats.Empty, res.stats.Malformed)

	if l.opts.OnFileDone != nil {
		l.opts.OnFileDone(res.stats)
	}
	return res, nil
}

func (r *fileResult) parseLine(line string, lineNo int) parser.SkipReason {
	switch r.job.format {
	case model.FormatAccounts:
		acct, reason := parser.ParseAccount(line)
		if reason == parser.SkipNone {
			acct.Source = r.job.path
			acct.Line = lineNo
			r.accounts = append(r.accounts, acct)
		}
		return reason
	case model.FormatPot:
		pair, reason := parser.ParsePot(line)
		if reason == parser.SkipNone {
			pair.Source = r.job.path
			pair.Line = lineNo
			r.pairs = append(r.pairs, pair)
		}
		return reason
	default:
		name, reason := parser.ParseTarget(line)
		if reason == parser.SkipNone {
			r.targets = append(r.targets, model.Target{Name: name, Source: r.job.path})
		}
		return reason
	}
}

// fold merges per-file results in (format, path, input order) order so the
// outcome does not depend on scheduling.
func fold(results []*fileResult) *Result {
	sort.SliceStable(results, func(i, k int) bool {
		a, b := results[i].job, results[k].job
		if a.format != b.format {
			return formatRank(a.format) < formatRank(b.format)
		}
		if a.path != b.path {
			return a.path < b.path
		}
		return a.order < b.order
	})

	out := &Result{Diagnostics: &model.Diagnostics{}}
	for _, r := range results {
		if r.missing {
			out.Diagnostics.MissingFiles = append(out.Diagnostics.MissingFiles, r.job.path)
			continue
		}
		out.Diagnostics.Files = append(out.Diagnostics.Files, r.stats)
		out.Accounts = append(out.Accounts, r.accounts...)
		out.Pairs = append(out.Pairs, r.pairs...)
		out.Targets = append(out.Targets, r.targets...)
	}
	return out
}

func formatRank(f model.Format) int {
	switch f {
	case model.FormatAccounts:
		return 0
	case model.FormatPot:
		return 1
	default:
		return 2
	}
}
