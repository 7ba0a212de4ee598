package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"

	"github.com/careercrawl/orchestrator/internal/clock"
	"github.com/careercrawl/orchestrator/internal/common"
	"github.com/careercrawl/orchestrator/internal/config"
	"github.com/careercrawl/orchestrator/internal/fetcher"
	"github.com/careercrawl/orchestrator/internal/llm"
	"github.com/careercrawl/orchestrator/internal/logging"
	"github.com/careercrawl/orchestrator/internal/orchestrator"
	"github.com/careercrawl/orchestrator/internal/profile"
	"github.com/careercrawl/orchestrator/internal/scheduler"
	"github.com/careercrawl/orchestrator/internal/store/badgerstore"
	"github.com/careercrawl/orchestrator/internal/telemetry"
)

// configPaths is a custom flag type that allows multiple -config flags,
// later files overriding earlier ones.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("careercrawl version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("careercrawl.toml"); err == nil {
			configFiles = append(configFiles, "careercrawl.toml")
		} else if _, err := os.Stat("deployments/local/careercrawl.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/careercrawl.toml")
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		if len(configFiles) == 0 {
			tempLogger.Fatal().Err(err).Msg("failed to load configuration from defaults and environment (no config file found)")
		} else {
			tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("failed to load configuration files")
		}
		os.Exit(1)
	}

	logger := logging.Setup(cfg)
	printBanner(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := badgerstore.New(cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open job store")
	}
	defer st.Close()

	llmClient, err := llm.NewClient(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM client")
	}

	httpFetcher := fetcher.New(cfg.Fetcher, clock.Real{}, logger)
	profiles := profile.NewFileSource(cfg.Profile.Path)
	metrics := telemetry.NewAggregator()

	orch := orchestrator.New(
		st,
		profiles,
		httpFetcher,
		llmClient,
		llmClient,
		clock.Real{},
		logger,
		metrics,
		orchestrator.Config{
			MaxConcurrentCompanyCrawls: cfg.Crawl.MaxConcurrentCompanyCrawls,
			RankerParallelism:          cfg.Ranker.Parallelism,
			RankerThreshold:            cfg.Ranker.RecommendThreshold,
			RankerTimeout:              config.ParseDuration(cfg.Ranker.Timeout, 30*time.Second),
			MaxDescriptionChars:        cfg.Crawl.MaxDescriptionChars,
		},
	)

	sched := scheduler.New(orch, cfg.Scheduler.IntervalMinutes, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	logger.Info().
		Int("interval_minutes", cfg.Scheduler.IntervalMinutes).
		Int("max_concurrent_company_crawls", cfg.Crawl.MaxConcurrentCompanyCrawls).
		Int("ranker_parallelism", cfg.Ranker.Parallelism).
		Msg("careercrawl running - press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	sched.Stop()
	if !orch.IsIdle() {
		if err := orch.Cancel(); err != nil {
			logger.Warn().Err(err).Msg("failed to cancel in-flight crawl during shutdown")
		}
		waitForIdle(orch, 30*time.Second)
	}

	logger.Info().Msg("careercrawl stopped")
}

// waitForIdle polls until the orchestrator finishes the in-flight run or
// the deadline elapses, so shutdown doesn't kill a crawl mid-write.
func waitForIdle(orch *orchestrator.Orchestrator, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if orch.IsIdle() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func printBanner(cfg *config.Config, logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("CAREERCRAWL")
	b.PrintCenteredText("Career Page Crawl Orchestrator")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", common.GetVersion(), 15)
	b.PrintKeyValue("Environment", cfg.Environment, 15)
	b.PrintKeyValue("Store", cfg.Store.BadgerPath, 15)
	b.PrintKeyValue("Ranker Provider", cfg.Ranker.Provider, 15)
	b.PrintKeyValue("Schedule", fmt.Sprintf("every %dm", cfg.Scheduler.IntervalMinutes), 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", cfg.Environment).
		Str("store_path", cfg.Store.BadgerPath).
		Str("ranker_provider", cfg.Ranker.Provider).
		Int("scheduler_interval_minutes", cfg.Scheduler.IntervalMinutes).
		Msg("careercrawl starting")
}
