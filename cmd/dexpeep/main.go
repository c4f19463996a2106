// dexpeep runs the peephole pass over .dasm files.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/colorfulnotion/dexopt/config"
	"github.com/colorfulnotion/dexopt/dasm"
	"github.com/colorfulnotion/dexopt/ir"
	log "github.com/colorfulnotion/dexopt/log"
	"github.com/colorfulnotion/dexopt/peephole"
	"github.com/colorfulnotion/dexopt/report"
	"github.com/colorfulnotion/dexopt/storage"
	"github.com/colorfulnotion/dexopt/telemetry"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	atexit.Exit(1)
}

func readScope(path string) (ir.Scope, []byte) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("Failed to read %s: %v", path, err)
	}
	scope, err := dasm.Parse(bytes.NewReader(data))
	if err != nil {
		fatal("Failed to parse %s: %v", path, err)
	}
	return scope, data
}

func main() {
	var rootCmd = &cobra.Command{
		Use:     "dexpeep",
		Short:   "Peephole optimizer for register bytecode",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		configPath string
		logLevel   string
		logJSON    bool
		debug      string
		workers    int
		passes     int
		disabled   []string
		statsDB    string
		otlp       string
		outPath    string
		showDiff   bool
		chartPath  string
		bodies     bool
		limit      int
	)

	// loadConfig merges the config file, if any, with the flags set on cmd.
	loadConfig := func(cmd *cobra.Command) config.Config {
		cfg := config.Default()
		if configPath != "" {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				fatal("Failed to load config: %v", err)
			}
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("json") {
			cfg.LogJSON = logJSON
		}
		if flags.Changed("debug") {
			cfg.LogModules = debug
		}
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if flags.Changed("passes") {
			cfg.Passes = passes
		}
		if flags.Changed("disable") {
			cfg.DisabledRules = disabled
		}
		if flags.Changed("stats-db") {
			cfg.StatsDB = statsDB
		}
		if flags.Changed("otlp") {
			cfg.OTLPEndpoint = otlp
		}
		if err := cfg.Validate(); err != nil {
			fatal("Invalid configuration: %v", err)
		}
		if err := log.InitLogger(cfg.LogLevel, cfg.LogJSON); err != nil {
			fatal("Invalid log level: %v", err)
		}
		log.EnableModules(cfg.LogModules)
		return cfg
	}

	var runCmd = &cobra.Command{
		Use:   "run FILE.dasm",
		Short: "Optimize every method of a .dasm file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tc := telemetry.NewNoOpTelemetryClient()
			if cfg.OTLPEndpoint != "" {
				tc = telemetry.NewTelemetryClient(cfg.OTLPEndpoint, true)
			}
			if err := tc.Connect(ctx); err != nil {
				fatal("Failed to start telemetry: %v", err)
			}
			atexit.Register(func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tc.Close(sctx); err != nil {
					log.Warn(log.CLIModule, "telemetry shutdown", "err", err)
				}
			})

			rules, err := peephole.Select(peephole.DefaultRules(), cfg.DisabledRules)
			if err != nil {
				fatal("Failed to select rules: %v", err)
			}
			scope, data := readScope(args[0])
			before := report.Snapshot(scope)

			pass := &peephole.Pass{
				Rules:    rules,
				Resolver: ir.NewFieldTable(scope),
				Workers:  cfg.Workers,
			}
			st, n, err := pass.RunUntilFixed(ctx, scope, cfg.Passes)
			if err != nil {
				fatal("Pass failed after %d passes: %v", n, err)
			}
			log.Info(log.CLIModule, "optimized", "file", args[0], "passes", n, "rewrites", st.Total(), "removed", st.Removed)

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					fatal("Failed to create %s: %v", outPath, err)
				}
				defer f.Close()
				out = f
			}
			if err := dasm.Format(out, scope); err != nil {
				fatal("Failed to write output: %v", err)
			}
			fmt.Fprintln(os.Stderr, st)

			if showDiff {
				diff, changed, err := report.Diff(before, report.Snapshot(scope), true)
				if err != nil {
					fatal("Failed to diff: %v", err)
				}
				if changed {
					fmt.Fprintln(os.Stderr, diff)
				}
			}
			if chartPath != "" {
				writeChart(chartPath, args[0], st.Applied)
			}
			if cfg.StatsDB != "" {
				h, err := storage.OpenHistory(cfg.StatsDB)
				if err != nil {
					fatal("Failed to open stats db: %v", err)
				}
				defer h.Close()
				seq, err := h.Append(&storage.RunRecord{
					Input:           args[0],
					Digest:          storage.Digest(data),
					Passes:          n,
					Applied:         st.Applied,
					Methods:         st.Methods,
					Scanned:         st.Scanned,
					Removed:         st.Removed,
					Inconsistencies: st.Inconsistencies,
				})
				if err != nil {
					fatal("Failed to record run: %v", err)
				}
				log.Debug(log.CLIModule, "run recorded", "seq", seq)
			}
		},
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	runCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (trace, debug, info, warn, error)")
	runCmd.Flags().BoolVar(&logJSON, "json", false, "Log as JSON")
	runCmd.Flags().StringVar(&debug, "debug", "", "Debug modules to enable (peephole_mod,driver_mod,storage_mod,cli_mod or all)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent methods (0: GOMAXPROCS)")
	runCmd.Flags().IntVar(&passes, "passes", config.DefaultPasses, "Repeat the pass until nothing changes, at most this many times")
	runCmd.Flags().StringSliceVar(&disabled, "disable", nil, "Rules to disable")
	runCmd.Flags().StringVar(&statsDB, "stats-db", "", "LevelDB directory to record run statistics in")
	runCmd.Flags().StringVar(&otlp, "otlp", "", "OTLP/HTTP endpoint for traces (e.g., localhost:4318)")
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the optimized file here instead of stdout")
	runCmd.Flags().BoolVar(&showDiff, "diff", false, "Print a before/after diff of changed methods")
	runCmd.Flags().StringVar(&chartPath, "chart", "", "Write an HTML bar chart of rewrites per rule")

	var showCmd = &cobra.Command{
		Use:   "show FILE.dasm",
		Short: "Print the classes and methods of a .dasm file as a tree",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			scope, _ := readScope(args[0])
			fmt.Println(report.ScopeTree(scope, bodies).String())
		},
	}
	showCmd.Flags().BoolVar(&bodies, "bodies", false, "Include method bodies")

	var rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "List the peephole rules in matching order",
		Run: func(cmd *cobra.Command, args []string) {
			for _, r := range peephole.DefaultRules() {
				fmt.Println(r.String())
			}
		},
	}

	var historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recorded run statistics",
		Run: func(cmd *cobra.Command, args []string) {
			if statsDB == "" {
				fatal("--stats-db is required")
			}
			h, err := storage.OpenHistory(statsDB)
			if err != nil {
				fatal("Failed to open stats db: %v", err)
			}
			defer h.Close()
			runs, err := h.List(limit)
			if err != nil {
				fatal("Failed to read history: %v", err)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Run", "Time", "Input", "Digest", "Passes", "Methods", "Removed", "Rewrites"})
			for _, r := range runs {
				table.Append([]string{
					strconv.FormatUint(r.Seq, 10),
					r.Time().Format(time.RFC3339),
					r.Input,
					fmt.Sprintf("%x", shortDigest(r.Digest)),
					strconv.Itoa(r.Passes),
					strconv.Itoa(r.Methods),
					strconv.Itoa(r.Removed),
					strconv.Itoa(sum(r.Applied)),
				})
			}
			table.Render()
			if chartPath != "" {
				totals, err := h.Totals()
				if err != nil {
					fatal("Failed to total history: %v", err)
				}
				writeChart(chartPath, statsDB, totals)
			}
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Show at most this many recent runs (0: all)")
	historyCmd.Flags().StringVar(&chartPath, "chart", "", "Write an HTML bar chart of total rewrites per rule")

	var compareCmd = &cobra.Command{
		Use:   "compare SEQ SEQ",
		Short: "Compare the statistics of two recorded runs",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if statsDB == "" {
				fatal("--stats-db is required")
			}
			h, err := storage.OpenHistory(statsDB)
			if err != nil {
				fatal("Failed to open stats db: %v", err)
			}
			defer h.Close()
			var recs [2]*storage.RunRecord
			for i, arg := range args {
				seq, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					fatal("Invalid run number %q", arg)
				}
				rec, ok, err := h.Get(seq)
				if err != nil || !ok {
					fatal("Run %d not found (%v)", seq, err)
				}
				recs[i] = rec
			}
			same, text, err := report.CompareJSON(recs[0].Applied, recs[1].Applied, true)
			if err != nil {
				fatal("Failed to compare: %v", err)
			}
			if same {
				fmt.Println("identical rule counts")
				return
			}
			fmt.Println(text)
		},
	}
	var keep int
	var pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if statsDB == "" {
				fatal("--stats-db is required")
			}
			h, err := storage.OpenHistory(statsDB)
			if err != nil {
				fatal("Failed to open stats db: %v", err)
			}
			defer h.Close()
			n, err := h.Prune(keep)
			if err != nil {
				fatal("Failed to prune: %v", err)
			}
			fmt.Printf("removed %d runs\n", n)
		},
	}
	pruneCmd.Flags().IntVar(&keep, "keep", 100, "Number of recent runs to keep")
	historyCmd.AddCommand(compareCmd, pruneCmd)
	historyCmd.PersistentFlags().StringVar(&statsDB, "stats-db", "", "LevelDB directory holding run statistics")

	rootCmd.AddCommand(runCmd, showCmd, rulesCmd, historyCmd, newConsoleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func writeChart(path, title string, applied map[string]int) {
	f, err := os.Create(path)
	if err != nil {
		fatal("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := report.RenderCharts(f, report.RuleChart(title, applied)); err != nil {
		fatal("Failed to render chart: %v", err)
	}
}

func shortDigest(d []byte) []byte {
	if len(d) > 4 {
		return d[:4]
	}
	return d
}

func sum(applied map[string]int) int {
	n := 0
	for _, v := range applied {
		n += v
	}
	return n
}
