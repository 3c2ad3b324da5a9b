// Package cli implements the sercha-docs command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/config"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Global flags.
var (
	cfgPath    string
	verbose    bool
	jsonOutput bool
)

// Wired state. Commands read services from here; tests replace them with
// SetServices.
var (
	appConfig        *config.Config
	documentService  driving.DocumentService
	retrievalService driving.RetrievalService
	indexService     driving.IndexService
	currentApp       *App
)

// annotationStandalone marks commands that run without wired services.
const annotationStandalone = "standalone"

var rootCmd = &cobra.Command{
	Use:   "sercha-docs",
	Short: "Ingest documents and retrieve attributed excerpts",
	Long: `sercha-docs stores uploaded PDF and text documents, extracts their text
page by page, and answers questions with ranked excerpts that name the
source file and page.

Retrieval uses an embedding model and vector index when one is configured
and falls back to keyword search otherwise.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ~/.sercha-docs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// Services holds the driving ports used by commands.
type Services struct {
	Documents driving.DocumentService
	Retrieval driving.RetrievalService
	Index     driving.IndexService
}

// SetServices injects services and skips configuration-driven wiring.
func SetServices(s Services) {
	documentService = s.Documents
	retrievalService = s.Retrieval
	indexService = s.Index
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if isStandalone(cmd) {
		return nil
	}

	if appConfig == nil {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg
		logger.SetJSON(cfg.Log.JSON)
		if !verbose {
			if err := logger.SetLevel(cfg.Log.Level); err != nil {
				return err
			}
		}
	}

	if !needsServices(cmd) || documentService != nil {
		return nil
	}

	app, err := NewApp(commandContext(cmd), appConfig)
	if err != nil {
		return err
	}
	currentApp = app
	SetServices(app.Services())
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if currentApp == nil {
		return nil
	}
	err := currentApp.Close()
	currentApp = nil
	SetServices(Services{})
	return err
}

// isStandalone reports whether cmd or an ancestor is annotated standalone.
func isStandalone(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationStandalone] == "true" {
			return true
		}
	}
	return cmd.Name() == "help" || cmd.Name() == "completion"
}

// needsServices reports whether cmd runs against the document services.
// Config commands only need the loaded configuration.
func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return false
		}
	}
	return true
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func requireDocuments() error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	return nil
}
