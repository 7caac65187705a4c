package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/screa/puzzle-hunter/internal/config"
	"github.com/screa/puzzle-hunter/internal/journal"
	logpkg "github.com/screa/puzzle-hunter/internal/logger"
	"github.com/screa/puzzle-hunter/internal/telegram"
	"github.com/screa/puzzle-hunter/pkg/registry"
	solverpkg "github.com/screa/puzzle-hunter/pkg/solver"
	"github.com/screa/puzzle-hunter/pkg/stats"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"
)

var (
	cfg    = config.NewConfig()
	logger *logpkg.Logger

	colorTitle = color.New(color.FgCyan, color.Bold)
	colorFound = color.New(color.FgGreen, color.Bold)
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "puzzle-hunter",
		Short: "Random-search solver for the Bitcoin puzzle transactions",
		Long: `A command line tool that hunts the unsolved Bitcoin puzzle transactions.
It draws uniform random private keys from each puzzle's published range,
derives the P2PKH address and compares it against the puzzle's address, in
timed search bursts separated by rest pauses. Solutions are appended to a
journal before anything else happens. With TELEGRAM_BOT_TOKEN and
TELEGRAM_CHAT_ID set, a Telegram bot reports finds and accepts start/stop
commands.`,
		Run: runSolver,
	}

	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	rootCmd.Flags().DurationVar(&cfg.SessionDuration, "session", 10*time.Minute, "Length of each search burst")
	rootCmd.Flags().DurationVar(&cfg.RestDuration, "rest", time.Minute, "Pause between bursts")
	rootCmd.Flags().IntVar(&cfg.MinBits, "min-bits", 14, "Skip puzzles smaller than this many bits")
	rootCmd.Flags().IntVar(&cfg.MaxBits, "max-bits", 0, "Skip puzzles larger than this many bits (0 = no cap)")
	rootCmd.Flags().Float64Var(&cfg.MinReward, "min-reward", 0, "Skip puzzles below this BTC reward")
	rootCmd.Flags().StringVarP(&cfg.AddressMode, "address-mode", "m", "compressed", "Address encodings to test: compressed, uncompressed or both")
	rootCmd.Flags().StringVarP(&cfg.PuzzlesFile, "puzzles", "p", "unsolved_puzzles.json", "Puzzle definitions JSON file")
	rootCmd.Flags().StringVarP(&cfg.SolutionsFile, "solutions", "o", "solutions.log", "Append-only solutions journal")
	rootCmd.Flags().BoolVar(&cfg.StopOnFound, "stop-on-found", true, "Stop searching after a solve")
	rootCmd.Flags().DurationVar(&cfg.StatsInterval, "stats-interval", 24*time.Hour, "Interval between Telegram stats reports (0 = off)")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().StringVarP(&cfg.LogFile, "log-file", "l", "", "Log file for progress tracking (default: stdout)")
	rootCmd.Flags().IntVarP(&cfg.LogInterval, "log-interval", "i", 5, "Progress logging interval in seconds")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSolver(cmd *cobra.Command, args []string) {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging()
	printBanner()

	reg, err := registry.Load(cfg.PuzzlesFile, logger)
	if err != nil {
		logger.Printf("Cannot load puzzles from %s: %v", cfg.PuzzlesFile, err)
		os.Exit(1)
	}
	filter := cfg.Filter()
	eligible := reg.Eligible(filter)
	logger.Printf("Loaded %d puzzles, %d eligible under the active filters", reg.Len(), len(eligible))
	if len(eligible) == 0 {
		logger.Println("Nothing to search. Relax min-bits, max-bits or min-reward.")
		os.Exit(1)
	}

	notifier, err := telegram.NewFromEnv()
	if err != nil {
		logger.Printf("Telegram disabled: %v", err)
		notifier = nil
	} else if err := notifier.TestConnection(); err != nil {
		logger.Printf("Telegram unreachable, continuing without it: %v", err)
		notifier = nil
	}

	st := stats.New()
	jrnl := journal.New(cfg.SolutionsFile)

	// Leave the interface nil when credentials are missing; a stored
	// nil *Notifier would not compare equal to nil.
	var ntf solverpkg.Notifier
	if notifier != nil {
		ntf = notifier
	}
	solver := solverpkg.NewSolver(cfg, reg, st, jrnl, ntf, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("\nReceived interrupt signal (Ctrl+C). Stopping search...")
		solver.Stop()
		cancel()
	}()

	if notifier != nil {
		if err := notifier.NotifyStartup(reg.Len(), len(eligible), filter); err != nil {
			logger.Printf("Startup notification failed: %v", err)
		}
		bot := telegram.NewBot(notifier, solver, st, cfg, reg.Len(), logger)
		go bot.Run(ctx)
		if cfg.StatsInterval > 0 {
			go statsReporter(ctx, st, notifier)
		}
		logger.Println("Telegram bot online. Send /start to begin the hunt.")
	} else {
		logger.Printf("Starting search with %d workers (%s bursts, %s rest)...",
			cfg.Workers, cfg.SessionDuration, cfg.RestDuration)
		solver.Start()
	}

	// Start periodic logging if verbose mode is enabled
	if cfg.Verbose {
		logger.Printf("Logging progress every %d seconds...", cfg.LogInterval)
		go progressLogger(ctx, st)
	}

	solver.Run(ctx)
	printFinalStats(st)
}

func printBanner() {
	model := "unknown"
	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		model = info[0].ModelName
	}

	colorTitle.Println(strings.Repeat("=", 62))
	colorTitle.Println("                    BITCOIN PUZZLE HUNTER")
	colorTitle.Println("         random search over the unsolved puzzle ranges")
	colorTitle.Println(strings.Repeat("=", 62))
	fmt.Printf("CPU: %s (%d threads)\n", model, runtime.NumCPU())
	fmt.Printf("Address mode: %s, stop on found: %v\n\n", cfg.AddressMode, cfg.StopOnFound)
}

// progressLogger logs search progress at regular intervals
func progressLogger(ctx context.Context, st *stats.Stats) {
	ticker := time.NewTicker(time.Duration(cfg.LogInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snap := st.Snapshot()
			if snap.Matches > 0 {
				logger.Printf("Progress: %d keys checked, %.2f keys/sec, %d solved",
					snap.Trials, snap.Rate(), snap.Matches)
			} else if snap.CurrentPuzzle != 0 {
				logger.Printf("Progress: %d keys checked, %.2f keys/sec, no match yet (puzzle #%d)",
					snap.Trials, snap.Rate(), snap.CurrentPuzzle)
			} else {
				logger.Printf("Progress: %d keys checked, %.2f keys/sec, no match yet",
					snap.Trials, snap.Rate())
			}
		case <-ctx.Done():
			return
		}
	}
}

// statsReporter pushes a periodic stats summary to Telegram
func statsReporter(ctx context.Context, st *stats.Stats, notifier *telegram.Notifier) {
	ticker := time.NewTicker(cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := notifier.NotifyStats(st.Snapshot()); err != nil {
				logger.Printf("Stats notification failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func printFinalStats(st *stats.Stats) {
	snap := st.Snapshot()

	colorTitle.Println("\nFinal statistics")
	logger.Printf("Keys checked: %d", snap.Trials)
	logger.Printf("Sessions completed: %d", snap.Sessions)
	logger.Printf("Matches found: %d", snap.Matches)
	logger.Printf("Uptime: %s", snap.Uptime().Round(time.Second))
	logger.Printf("Average rate: %.2f keys/sec", snap.Rate())
	if snap.Matches > 0 {
		colorFound.Printf("Solved puzzles are journaled in %s\n", cfg.SolutionsFile)
	}
}

func setupLogging() {
	if cfg.LogFile != "" {
		// Log to file
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		logger = logpkg.NewWriter(file)
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		// Log to stdout
		logger = logpkg.New()
		logger.SetFlags(log.LstdFlags)
	}
	logger.SetDebug(cfg.Verbose)
}
