package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voltcat/internal/catalog"
	"voltcat/internal/config"
	"voltcat/internal/embedding"
	"voltcat/internal/gateway"
	"voltcat/internal/logging"
	"voltcat/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	apiKey     string
	configPath string
	workspace  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "voltcat",
	Short: "voltcat - electrical component cataloging assistant",
	Long: `voltcat standardizes free-text electrical component descriptions.

Each description is classified into a fixed category taxonomy and rewritten
as a canonical catalog name by a Gemini model. Accepted results are appended
to a local knowledge base and feed future runs as few-shot examples, so the
assistant gets more consistent as the catalog grows.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// processCmd standardizes one description
var processCmd = &cobra.Command{
	Use:   "process [description]",
	Short: "Classify and standardize a component description",
	Long: `Runs the full flow for one free-text description:
  1. Classify it into one taxonomy category
  2. Produce the standardized catalog name
  3. Append the accepted result to the knowledge base

Example:
  voltcat process "electrolytic capacitor 100uF 16V radial"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

// categoriesCmd lists the loaded taxonomy
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the category taxonomy",
	RunE:  runCategories,
}

// examplesCmd lists knowledge-base records
var examplesCmd = &cobra.Command{
	Use:   "examples [category]",
	Short: "List stored knowledge-base examples, optionally for one category",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExamples,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "voltcat.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(examplesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the --api-key override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	return cfg, nil
}

// openStore initializes category logging and opens the knowledge base with
// the optional embedding engine.
func openStore(cfg *config.Config) (*catalog.Store, error) {
	if err := logging.Initialize(workspace); err != nil {
		logger.Warn("File logging unavailable", zap.Error(err))
	}

	var opts []catalog.Option
	engine, err := embedding.NewEngine(embedding.Config{
		Provider: cfg.Embedding.Provider,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
	})
	if err != nil {
		logger.Warn("Embedding engine unavailable, retrieval stays lexical", zap.Error(err))
	} else if engine != nil {
		opts = append(opts, catalog.WithEmbeddingEngine(engine))
	}

	return catalog.Open(cfg.Catalog.TaxonomyPath, cfg.Catalog.KnowledgeBasePath, opts...)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	client := gateway.NewGeminiClientWithConfig(gateway.GeminiConfig{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		Timeout:         cfg.LLM.TimeoutDuration(),
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})

	pipe := pipeline.New(store, gateway.New(client))
	pipe.SetFewShotK(cfg.Catalog.FewShotK)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.TimeoutDuration())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	description := strings.Join(args, " ")
	logger.Info("Processing description", zap.String("input", description))

	result, err := pipe.Process(ctx, description)
	if err != nil {
		return err
	}

	fmt.Printf("Category:          %s\n", result.Category)
	fmt.Printf("Standardized name: %s\n", result.StandardizedName)
	if result.PersistErr != nil {
		logger.Warn("Result not persisted", zap.Error(result.PersistErr))
		fmt.Fprintf(os.Stderr, "warning: result not saved to knowledge base: %v\n", result.PersistErr)
	} else {
		fmt.Printf("Saved as example:  %s\n", result.ExampleID)
	}
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	taxonomy, err := catalog.LoadTaxonomy(cfg.Catalog.TaxonomyPath)
	if err != nil {
		return err
	}

	for _, category := range taxonomy.Categories() {
		fmt.Println(category)
	}
	return nil
}

func runExamples(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	examples := store.Examples()
	if len(args) == 1 {
		examples = store.FindByCategory(args[0], store.Len())
	}

	if len(examples) == 0 {
		fmt.Println("no examples stored")
		return nil
	}
	for _, ex := range examples {
		fmt.Printf("%s  [%s]  %s\n", ex.ID, ex.Category, ex.StandardizedName)
	}
	return nil
}
