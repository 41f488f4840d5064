package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/report"
	"github.com/dejisec/tattletale/internal/storage"
	"github.com/dejisec/tattletale/internal/web"
)

var (
	webStore bool
	webTop   int
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the web dashboard",
	Long: `Start a lightweight web dashboard for the analysis.

The web server provides:
- Summary, domain, password and shared-hash views
- JSON endpoints under /api
- CSV, TXT and Markdown downloads
- Reloading the inputs with POST /api/reload

It listens on 127.0.0.1 unless --host says otherwise, since the pages
include recovered plaintexts.

Examples:
  tattletale web -d ntds.ntds -p hashcat.pot
  tattletale web -d ntds.ntds -p hashcat.pot --port 9090 --store`,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().Int("port", 8080, "Web server port")
	webCmd.Flags().String("host", "127.0.0.1", "Web server listen address")
	webCmd.Flags().BoolVar(&webStore, "store", false, "store every loaded run in the configured database")
	webCmd.Flags().IntVar(&webTop, "top", 0, "number of reused passwords to list (default from config)")

	viper.BindPFlag("web_port", webCmd.Flags().Lookup("port"))
	viper.BindPFlag("web_host", webCmd.Flags().Lookup("host"))
}

func runWeb(cmd *cobra.Command, args []string) error {
	var db *storage.DB
	if webStore {
		var err error
		db, err = openDB()
		if err != nil {
			return err
		}
		defer db.Close()
	}

	opts := reportOptions(webTop)
	gen := report.NewGenerator(cfg)

	srv := web.NewServer(cfg, func(ctx context.Context) (*model.Report, error) {
		return gen.Generate(ctx, opts)
	}, db)

	fmt.Printf("Starting web server on http://%s\n", cfg.WebAddr())
	fmt.Println("Press Ctrl+C to stop")

	return srv.Start(cmd.Context())
}
