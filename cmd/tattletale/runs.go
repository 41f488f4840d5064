package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dejisec/tattletale/internal/report"
	"github.com/dejisec/tattletale/internal/stats"
	"github.com/dejisec/tattletale/internal/storage"
	"github.com/dejisec/tattletale/internal/util"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis runs",
	Long:  "List the most recent runs stored with 'analyze --store' or the web dashboard.",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
}

// openDB opens the configured database, creating the data dir for the
// default SQLite file.
func openDB() (*storage.DB, error) {
	if cfg.DBDSN == "" {
		if err := util.EnsureDir(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.DBDriver, cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("86"))

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("TattleTale Runs"))

	if len(runs) == 0 {
		fmt.Println(labelStyle.Render("No runs stored yet"))
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  %s accounts  %s cracked (%s)  %s shared\n",
			labelStyle.Render(r.ID),
			valueStyle.Render(r.GeneratedAt.Local().Format("2006-01-02 15:04:05")),
			humanize.Comma(int64(r.TotalAccounts)),
			humanize.Comma(int64(r.CrackedAccounts)),
			report.FormatPercent(stats.Percent(r.CrackedAccounts, r.TotalAccounts)),
			humanize.Comma(int64(r.SharedAccounts)))
	}

	return nil
}
