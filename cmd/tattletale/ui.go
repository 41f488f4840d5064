package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/report"
	"github.com/dejisec/tattletale/internal/tui"
	"github.com/dejisec/tattletale/internal/util"
)

var uiTop int

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long: `Launch an interactive terminal dashboard for the analysis.

The dashboard shows:
- Overview with crack rates and hash categories
- Per-domain breakdown
- Most reused passwords
- Shared password hashes
- High-value targets

Use tab or arrow keys to switch views, 'r' to reload the inputs, 'q' to quit.`,
	RunE: runUI,
}

func init() {
	uiCmd.Flags().IntVar(&uiTop, "top", 0, "number of reused passwords to list (default from config)")
}

func runUI(cmd *cobra.Command, args []string) error {
	// Keep log lines from drawing over the dashboard.
	if cfg.LogFile == "" {
		cfg.LogLevel = "error"
	}
	util.InitLogger(cfg.LogLevel, cfg.LogFile)

	opts := reportOptions(uiTop)
	gen := report.NewGenerator(cfg)

	app := tui.NewApp(func(ctx context.Context) (*model.Report, error) {
		return gen.Generate(ctx, opts)
	})
	return app.Run(cmd.Context())
}
