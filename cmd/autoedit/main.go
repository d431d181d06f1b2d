package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"autoedit/internal/config"
	"autoedit/internal/httpapi"
	"autoedit/internal/lifecycle"
	"autoedit/internal/pipeline"
	"autoedit/internal/registry"
	"autoedit/internal/stage"
	"autoedit/internal/storage"
	"autoedit/internal/weights"
	"autoedit/pkg/types"
)

// service adapts the coordinator and lifecycle manager to the HTTP layer.
type service struct {
	coord *pipeline.Coordinator
	mgr   *lifecycle.Manager
}

func (s *service) Edit(ctx context.Context, req types.EditRequest) (pipeline.Outcome, error) {
	return s.coord.Run(ctx, req)
}

func (s *service) Refine(ctx context.Context, prompt string, mode types.Mode) (pipeline.Outcome, error) {
	return s.coord.Refine(ctx, prompt, mode)
}

func (s *service) History() []types.HistoryEntry { return s.coord.History().Entries() }
func (s *service) Status() types.StatusResponse  { return s.mgr.Status() }
func (s *service) Ready() bool                   { return s.mgr.Ready() }

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.Config{
		Addr:            envStr("AUTOEDIT_ADDR", ":8080"),
		WeightsDir:      envStr("AUTOEDIT_WEIGHTS_DIR", "~/autoedit/weights"),
		OutputDir:       envStr("AUTOEDIT_OUTPUT_DIR", "~/autoedit/results"),
		VRAMBudgetMB:    envInt("AUTOEDIT_VRAM_BUDGET_MB", 0),
		VRAMMarginMB:    envInt("AUTOEDIT_VRAM_MARGIN_MB", 0),
		HistoryCapacity: envInt("AUTOEDIT_HISTORY_CAPACITY", 0),
	}
	var configPath string
	var fetchWeights bool
	var modelsFile string

	root := &cobra.Command{
		Use:           "autoedit",
		Short:         "Two-stage image editing daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &cfg, configPath, fetchWeights, modelsFile)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Optional config file (.yaml/.json/.toml)")
	root.PersistentFlags().BoolVar(&fetchWeights, "fetch-weights", false, "Fetch model snapshots on first use instead of assuming local weights")
	root.PersistentFlags().StringVar(&modelsFile, "models-file", envStr("AUTOEDIT_MODELS_FILE", ""), "Optional YAML file overriding the built-in stage models")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &cfg, configPath, fetchWeights, modelsFile)
		},
	}
	addServeFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address, e.g. :8080")
		c.Flags().StringVar(&cfg.WeightsDir, "weights-dir", cfg.WeightsDir, "Directory for cached model snapshots")
		c.Flags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for persisted results")
		c.Flags().IntVar(&cfg.VRAMBudgetMB, "vram-budget-mb", cfg.VRAMBudgetMB, "VRAM budget in MB for all stage models (0=unlimited)")
		c.Flags().IntVar(&cfg.VRAMMarginMB, "vram-margin-mb", cfg.VRAMMarginMB, "Reserved VRAM margin in MB to keep free")
		c.Flags().IntVar(&cfg.HistoryCapacity, "history-capacity", cfg.HistoryCapacity, "Session history capacity (0=default)")
		c.Flags().IntVar(&cfg.MaxBodyMB, "max-body-mb", cfg.MaxBodyMB, "Maximum request body size in MB (0=default)")
		c.Flags().IntVar(&cfg.EditTimeoutSec, "edit-timeout-sec", cfg.EditTimeoutSec, "Per-request pipeline timeout in seconds (0=off)")
	}
	addServeFlags(root)
	addServeFlags(serve)
	root.AddCommand(serve)
	root.AddCommand(resultsCmd(&cfg))
	return root
}

// mergeConfigFile overlays file values onto cfg for every flag the user did
// not set explicitly.
func mergeConfigFile(cmd *cobra.Command, cfg *config.Config, path string) error {
	if path == "" {
		return nil
	}
	fileCfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if fileCfg.Addr != "" && !set("addr") {
		cfg.Addr = fileCfg.Addr
	}
	if fileCfg.WeightsDir != "" && !set("weights-dir") {
		cfg.WeightsDir = fileCfg.WeightsDir
	}
	if fileCfg.OutputDir != "" && !set("output-dir") {
		cfg.OutputDir = fileCfg.OutputDir
	}
	if fileCfg.VRAMBudgetMB != 0 && !set("vram-budget-mb") {
		cfg.VRAMBudgetMB = fileCfg.VRAMBudgetMB
	}
	if fileCfg.VRAMMarginMB != 0 && !set("vram-margin-mb") {
		cfg.VRAMMarginMB = fileCfg.VRAMMarginMB
	}
	if fileCfg.HistoryCapacity != 0 && !set("history-capacity") {
		cfg.HistoryCapacity = fileCfg.HistoryCapacity
	}
	if fileCfg.MaxBodyMB != 0 && !set("max-body-mb") {
		cfg.MaxBodyMB = fileCfg.MaxBodyMB
	}
	if fileCfg.EditTimeoutSec != 0 && !set("edit-timeout-sec") {
		cfg.EditTimeoutSec = fileCfg.EditTimeoutSec
	}
	return nil
}

func runServe(cmd *cobra.Command, cfg *config.Config, configPath string, fetchWeights bool, modelsFile string) error {
	if err := mergeConfigFile(cmd, cfg, configPath); err != nil {
		return err
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	models := registry.Default()
	if modelsFile != "" {
		var err error
		if models, err = registry.LoadFile(modelsFile); err != nil {
			return err
		}
	}
	if err := registry.Validate(models); err != nil {
		return fmt.Errorf("model registry: %w", err)
	}
	translatorModel, _ := registry.ByStage(models, types.StageTranslation)
	editorModel, _ := registry.ByStage(models, types.StageEdit)

	var weightsSource lifecycle.WeightsSource
	if fetchWeights {
		weightsSource = weights.NewFetcher(cfg.WeightsDir)
	}
	translator := stage.NewPreviewTranslator()
	editor := stage.NewPreviewEditor()

	mgr := lifecycle.NewWithConfig(lifecycle.ManagerConfig{
		Stages: map[types.Stage]lifecycle.StageBinding{
			types.StageTranslation: {Model: translatorModel, Loader: translator},
			types.StageEdit:        {Model: editorModel, Loader: editor},
		},
		BudgetMB: cfg.VRAMBudgetMB,
		MarginMB: cfg.VRAMMarginMB,
		Weights:  weightsSource,
	})

	store, err := storage.New(cfg.OutputDir, logger)
	if err != nil {
		return err
	}

	coord := pipeline.New(pipeline.Config{
		Lifecycle:  mgr,
		Translator: stage.NewTranslationStage(translator),
		Editor:     stage.NewEditStage(editor),
		History:    pipeline.NewSessionHistory(cfg.HistoryCapacity),
		Sink:       store,
		Logger:     logger,
	})

	httpapi.SetLogger(logger)
	if cfg.MaxBodyMB > 0 {
		httpapi.SetMaxBodyBytes(int64(cfg.MaxBodyMB) << 20)
	}
	httpapi.SetEditTimeoutSeconds(int64(cfg.EditTimeoutSec))

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(&service{coord: coord, mgr: mgr}, store)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("output_dir", store.Dir()).Msg("autoedit listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	for _, stg := range []types.Stage{types.StageTranslation, types.StageEdit} {
		if err := mgr.Unload(stg); err != nil {
			logger.Warn().Err(err).Str("stage", string(stg)).Msg("unload on shutdown failed")
		}
	}
	return nil
}
