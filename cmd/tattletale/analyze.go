package main

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/dejisec/tattletale/internal/export"
	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/report"
)

var (
	analyzeOutput   string
	analyzeMarkdown bool
	analyzeStore    bool
	analyzeProgress bool
	analyzeTop      int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Correlate dumps with potfiles and print a summary",
	Long: `Correlate credential dumps with potfiles and print the summary.

Examples:
  tattletale analyze -d ntds.dit.ntds -p hashcat.pot
  tattletale analyze -d dc1.ntds -d dc2.ntds -p hashcat.pot -t admins.txt -o ./out
  tattletale analyze -d ntds.ntds -p hashcat.pot --markdown -o ./out
  tattletale analyze -d ntds.ntds -p hashcat.pot --store --db-driver pgx --db-dsn postgres://localhost/audit`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "",
		"directory for the CSV and TXT exports (none when empty)")
	analyzeCmd.Flags().BoolVar(&analyzeMarkdown, "markdown", false,
		"also write a Markdown report (to --output, or the configured output dir)")
	analyzeCmd.Flags().BoolVar(&analyzeStore, "store", false,
		"store the run in the configured database")
	analyzeCmd.Flags().BoolVar(&analyzeProgress, "progress", false,
		"show a progress bar while reading inputs")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 0,
		"number of reused passwords to list (default from config)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := reportOptions(analyzeTop)

	gen := report.NewGenerator(cfg)
	if analyzeProgress {
		bar := pb.New(len(opts.AccountFiles) + len(opts.PotFiles) + len(opts.TargetFiles))
		bar.SetWriter(os.Stderr)
		bar.Start()
		defer bar.Finish()
		gen.OnFileDone(func(model.FileStats) { bar.Increment() })
	}

	data, err := gen.Generate(ctx, opts)
	if err != nil {
		return err
	}

	if err := report.WriteSummary(os.Stdout, data); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if analyzeOutput != "" {
		files, err := export.WriteAll(analyzeOutput, data)
		if err != nil {
			return fmt.Errorf("failed to write exports: %w", err)
		}
		fmt.Printf("\nShared hashes saved to: %s\n", files.SharedHashes)
		fmt.Printf("Cracked accounts saved to: %s\n", files.UserPass)
	}

	if analyzeMarkdown {
		dir := analyzeOutput
		if dir == "" {
			dir = cfg.OutputDir
		}
		path, err := report.WriteMarkdownFile(data, dir)
		if err != nil {
			return err
		}
		fmt.Printf("Report saved to: %s\n", path)
	}

	if analyzeStore {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runID, err := db.SaveReport(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to store run: %w", err)
		}
		fmt.Printf("Run stored as: %s\n", runID)
	}

	return nil
}
