package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/util"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile     string
	cfg         *util.Config
	ditFiles    []string
	potFiles    []string
	targetFiles []string
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "tattletale",
	Short: "Credential dump and potfile correlation for password audits",
	Long: `TattleTale correlates directory-service credential dumps (secretsdump
DOMAIN\user:rid:lm:nt lines) with cracked-hash potfiles and reports:
- Overall and per-domain crack rates
- Accounts that share a password hash
- The most reused cracked passwords
- The state of a watch-list of high-value accounts

Results go to the terminal, CSV/TXT exports, a Markdown report, a database,
an interactive terminal dashboard or a local web dashboard.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.tattletale/config.yaml)")
	flags.String("log-level", "info",
		"log level (debug, info, warn, error)")
	flags.StringSliceVarP(&ditFiles, "ditfiles", "d", nil,
		"credential dump files (DOMAIN\\user:rid:lm:nt), repeatable")
	flags.StringSliceVarP(&potFiles, "potfiles", "p", nil,
		"cracked hash potfiles (hash:plaintext), repeatable")
	flags.StringSliceVarP(&targetFiles, "targetfiles", "t", nil,
		"files with one high-value username per line, repeatable")
	flags.String("mmap-threshold", "16MiB",
		"memory-map inputs at least this large (0 disables)")
	flags.Bool("parallel", false, "read input files concurrently")
	flags.Int("workers", 0, "concurrent readers when --parallel is set (default: CPU count)")
	flags.Bool("diagnostics", false, "report per-file line counters")
	flags.Bool("dedupe", false, "drop repeated (domain, user, hash) records")
	flags.String("db-driver", "sqlite3", "database driver for stored runs (sqlite3, pgx)")
	flags.String("db-dsn", "", "database DSN (default: tattletale.db in the data dir)")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("mmap_threshold", flags.Lookup("mmap-threshold"))
	viper.BindPFlag("parallel", flags.Lookup("parallel"))
	viper.BindPFlag("workers", flags.Lookup("workers"))
	viper.BindPFlag("diagnostics", flags.Lookup("diagnostics"))
	viper.BindPFlag("dedupe", flags.Lookup("dedupe"))
	viper.BindPFlag("db_driver", flags.Lookup("db-driver"))
	viper.BindPFlag("db_dsn", flags.Lookup("db-dsn"))

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)

	// Add shell completion
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	var err error
	cfg, err = util.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = util.DefaultConfig().Workers
	}

	// Initialize logger
	util.InitLogger(cfg.LogLevel, cfg.LogFile)
}

// reportOptions collects the input files named on the command line.
func reportOptions(topN int) model.ReportOptions {
	return model.ReportOptions{
		AccountFiles: ditFiles,
		PotFiles:     potFiles,
		TargetFiles:  targetFiles,
		TopN:         topN,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tattletale version %s\n", version)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for tattletale.

To load completions:

Bash:
  $ source <(tattletale completion bash)

Zsh:
  $ source <(tattletale completion zsh)

Fish:
  $ tattletale completion fish | source

PowerShell:
  PS> tattletale completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		default:
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
