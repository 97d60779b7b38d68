// Package config builds the cobra command tree and viper-backed options
// materialization described in SPEC_FULL.md's CLI flags table: flags
// override the config file, the config file overrides engine.DefaultOptions.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ratewright/internal/banner"
	"ratewright/internal/cli"
	"ratewright/internal/dummy"
	"ratewright/internal/engine"
	"ratewright/internal/loadtest"
	"ratewright/internal/storage"
	"ratewright/internal/tui/app"
	"ratewright/internal/tui/views"
)

var cfgFile string

var (
	descriptorsPath string
	url             string
	method          string
	headers         []string

	records     int
	depth       int
	rate        float64
	ia          string
	keysize     string
	valuesize   string
	update      float64
	runTime     float64
	moderate    bool
	skip        bool
	noNodelay   bool
	loadOnly    bool
	connections int

	noTUI     bool
	outPrefix string
)

var rootCmd = &cobra.Command{
	Use:   "ratewright",
	Short: "ratewright - depth-bounded, rate-paced HTTP load generator",
	Long: `
ratewright drives an HTTP target with a fixed number of parallel
connections, each an independent paired write/read state machine
issuing up to --depth outstanding requests at an --ia-distributed,
--rate-paced arrival schedule.

It supports two main modes:
1. TUI Mode (default): interactive terminal dashboard
2. Headless Mode: run with --url or --descriptors for CI/CD usage (or pass --no-tui)`,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("url") || cmd.Flags().Changed("descriptors") || noTUI {
			runHeadless()
			return
		}
		runTUI()
	},
}

// Execute is the sole process entrypoint: parse flags/config, then
// dispatch to the TUI or the headless reporter.
func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.ratewright.yaml)")

	rootCmd.Flags().StringVar(&descriptorsPath, "descriptors", "", "path to a JSON operation descriptor file (array or single object)")
	rootCmd.Flags().StringVarP(&url, "url", "u", "", "Target URL for a single inline operation descriptor")
	rootCmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method for the inline descriptor")
	rootCmd.Flags().StringSliceVarP(&headers, "header", "H", []string{}, "HTTP header for the inline descriptor, e.g. \"Key: Value\"")

	def := engine.DefaultOptions()
	rootCmd.Flags().IntVar(&records, "records", def.Records, "keyspace size (distinct keys)")
	rootCmd.Flags().IntVar(&depth, "depth", def.Depth, "max outstanding operations per connection")
	rootCmd.Flags().Float64VarP(&rate, "rate", "r", def.Lambda, "mean arrivals/sec; 0 means as-fast-as-possible")
	rootCmd.Flags().StringVar(&ia, "ia", def.IA, "inter-arrival distribution (e.g. exponential, fixed)")
	rootCmd.Flags().StringVar(&keysize, "keysize", def.KeySize, "key size distribution spec")
	rootCmd.Flags().StringVar(&valuesize, "valuesize", def.ValueSize, "value size distribution spec")
	rootCmd.Flags().Float64Var(&update, "update", def.Update, "probability of POST vs GET, 0..1")
	rootCmd.Flags().Float64VarP(&runTime, "time", "d", def.Time, "total run duration in seconds")
	rootCmd.Flags().BoolVar(&moderate, "moderate", def.Moderate, "enforce >=250us between a response and its successor's issue")
	rootCmd.Flags().BoolVar(&skip, "skip", def.Skip, "allow catch-up by dropping scheduled arrivals that have fallen behind")
	rootCmd.Flags().BoolVar(&noNodelay, "no-nodelay", def.NoNodelay, "stored in the options only; the HTTP transport does not read it, so TCP_NODELAY stays at Go's default (on)")
	rootCmd.Flags().BoolVar(&loadOnly, "loadonly", def.LoadOnly, "exit once the queue drains, regardless of --time")
	rootCmd.Flags().IntVar(&connections, "connections", def.Connections, "number of parallel connections")

	rootCmd.Flags().BoolVar(&noTUI, "no-tui", false, "force the headless reporter even without --url/--descriptors")
	rootCmd.Flags().StringVarP(&outPrefix, "out", "o", "", "output filename prefix for JSON/CSV auto-reporting")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ratewright")
	}
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// buildOptions layers engine.DefaultOptions < config file < CLI flags, the
// precedence order SPEC_FULL.md's config section documents.
func buildOptions(cmd *cobra.Command) engine.Options {
	opts := engine.DefaultOptions()

	// Config file overlays the defaults first; CLI flags (checked below)
	// take final precedence per SPEC_FULL.md's config section.
	if viper.IsSet("records") {
		opts.Records = viper.GetInt("records")
	}
	if viper.IsSet("depth") {
		opts.Depth = viper.GetInt("depth")
	}
	if viper.IsSet("rate") {
		opts.Lambda = viper.GetFloat64("rate")
	}
	if viper.IsSet("ia") {
		opts.IA = viper.GetString("ia")
	}
	if viper.IsSet("keysize") {
		opts.KeySize = viper.GetString("keysize")
	}
	if viper.IsSet("valuesize") {
		opts.ValueSize = viper.GetString("valuesize")
	}
	if viper.IsSet("update") {
		opts.Update = viper.GetFloat64("update")
	}
	if viper.IsSet("time") {
		opts.Time = viper.GetFloat64("time")
	}
	if viper.IsSet("moderate") {
		opts.Moderate = viper.GetBool("moderate")
	}
	if viper.IsSet("skip") {
		opts.Skip = viper.GetBool("skip")
	}
	if viper.IsSet("connections") {
		opts.Connections = viper.GetInt("connections")
	}

	if cmd.Flags().Changed("records") {
		opts.Records = records
	}
	if cmd.Flags().Changed("depth") {
		opts.Depth = depth
	}
	if cmd.Flags().Changed("rate") {
		opts.Lambda = rate
	}
	if cmd.Flags().Changed("ia") {
		opts.IA = ia
	}
	if cmd.Flags().Changed("keysize") {
		opts.KeySize = keysize
	}
	if cmd.Flags().Changed("valuesize") {
		opts.ValueSize = valuesize
	}
	if cmd.Flags().Changed("update") {
		opts.Update = update
	}
	if cmd.Flags().Changed("time") {
		opts.Time = runTime
	}
	if cmd.Flags().Changed("moderate") {
		opts.Moderate = moderate
	}
	if cmd.Flags().Changed("skip") {
		opts.Skip = skip
	}
	if cmd.Flags().Changed("no-nodelay") {
		opts.NoNodelay = noNodelay
	}
	if cmd.Flags().Changed("loadonly") {
		opts.LoadOnly = loadOnly
	}
	if cmd.Flags().Changed("connections") {
		opts.Connections = connections
	}
	return opts
}

func parseHeaders(raw []string) map[string]string {
	h := make(map[string]string)
	for _, item := range raw {
		parts := strings.SplitN(item, ":", 2)
		if len(parts) == 2 {
			h[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return h
}

func resolveDescriptors() ([]engine.OperationDescriptor, error) {
	if descriptorsPath != "" {
		return loadtest.LoadDescriptors(descriptorsPath)
	}
	return loadtest.SingleDescriptor(url, method, parseHeaders(headers))
}

func runHeadless() {
	opts := buildOptions(rootCmd)
	if err := opts.Validate(); err != nil {
		slog.Error("invalid options", "err", err)
		fmt.Println(err)
		os.Exit(1)
	}

	descriptors, err := resolveDescriptors()
	if err != nil {
		slog.Error("failed to resolve operation descriptors", "err", err)
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, err := cli.Run(ctx, cli.RunOptions{
		Descriptors: descriptors,
		Options:     opts,
		Sampling:    true,
		OutPrefix:   outPrefix,
	})
	if err != nil {
		os.Exit(1)
	}
	if len(summary.FatalErrors) > 0 {
		os.Exit(1)
	}
}

func runTUI() {
	store, err := storage.NewStore()
	if err != nil {
		fmt.Printf("history disabled: %v\n", err)
	}
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	m := app.NewModel(store)
	if url != "" {
		m.RunnerView = views.NewRunnerView(views.RunConfig{URL: url, Options: buildOptions(rootCmd)})
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running ratewright: %v\n", err)
		os.Exit(1)
	}
}

// --- Dummy Subcommand ---

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run the internal dummy HTTP target for manual testing",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		dummy.Start(dummy.ServerConfig{Port: port})
		select {}
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run the dummy server on")
}
