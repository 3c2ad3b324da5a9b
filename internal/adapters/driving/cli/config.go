package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-docs/internal/config"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and check configuration",
	Long: `View the resolved configuration, write a starter config file, or check
that the configured embedding provider is reachable.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default config file",
	Annotations: map[string]string{annotationStandalone: "true"},
	Args:        cobra.NoArgs,
	RunE:        runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the embedding provider connection",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd, configInitCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if appConfig == nil {
		return errors.New("configuration not loaded")
	}
	if jsonOutput {
		return printJSON(cmd, redacted(appConfig))
	}

	cfg := redacted(appConfig)
	st := stylesFor(cmd)

	cmd.Println(st.Title.Render("Current Configuration"))
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", cfg.Storage.DataDir)
	cmd.Printf("  Blobs: %s", cfg.Blob.Backend)
	if cfg.Blob.Backend == domain.BlobBackendMinio {
		cmd.Printf(" (%s, bucket %s)\n", cfg.Blob.Minio.Endpoint, cfg.Blob.Minio.Bucket)
	} else {
		cmd.Printf(" (%s)\n", cfg.Blob.Dir)
	}
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Max upload: %d bytes\n", cfg.Ingest.MaxUploadBytes)
	cmd.Printf("  Process timeout: %s\n", cfg.Ingest.ProcessTimeout.Std())
	cmd.Printf("  Auto process: %t\n", cfg.Ingest.ShouldAutoProcess())
	cmd.Printf("  Chunk size: %d (overlap %d)\n", cfg.Chunker.Size, cfg.Chunker.OverlapOrDefault())
	cmd.Println()

	cmd.Println("[Embedding]")
	settings := cfg.Embedding.Settings()
	cmd.Printf("  Provider: %s\n", settings.Provider.Description())
	if settings.IsConfigured() {
		cmd.Printf("  Model: %s\n", settings.ResolvedModel())
		if settings.Provider.IsLocal() || cfg.Embedding.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", cfg.Embedding.BaseURL)
		}
		if settings.Provider.RequiresAPIKey() {
			if cfg.Embedding.APIKey != "" {
				cmd.Printf("  API Key: %s\n", cfg.Embedding.APIKey)
			} else {
				cmd.Printf("  API Key: (not set)\n")
			}
		}
	}
	cmd.Println()

	cmd.Println("[Indexes]")
	cmd.Printf("  Keyword: %s\n", cfg.Lexical.Backend)
	cmd.Printf("  Vector: %s\n", cfg.Vector.Backend)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := config.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cmd.Printf("Wrote %s\n", path)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if appConfig == nil {
		return errors.New("configuration not loaded")
	}

	status := ai.ValidateEmbeddingConfig(commandContext(cmd), appConfig.Embedding)
	if jsonOutput {
		return printJSON(cmd, status)
	}

	st := stylesFor(cmd)
	if status == nil {
		cmd.Println("No embedding provider configured; search uses the keyword index only.")
		return nil
	}

	cmd.Printf("Validating %s (%s)... ", status.Provider, status.Model)
	if !status.Reachable {
		cmd.Println(st.Error.Render("FAILED"))
		return fmt.Errorf("embedding provider unreachable: %s", status.Error)
	}
	cmd.Println(st.Success.Render("OK"))
	if status.Dimensions > 0 {
		cmd.Printf("Dimensions: %d\n", status.Dimensions)
	}
	return nil
}

// redacted returns a copy of cfg with secrets masked.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	if c.Embedding.APIKey != "" {
		c.Embedding.APIKey = maskAPIKey(c.Embedding.APIKey)
	}
	if c.Blob.Minio.SecretKey != "" {
		c.Blob.Minio.SecretKey = maskAPIKey(c.Blob.Minio.SecretKey)
	}
	if c.Blob.Minio.AccessKey != "" {
		c.Blob.Minio.AccessKey = maskAPIKey(c.Blob.Minio.AccessKey)
	}
	if c.Vector.Milvus.Password != "" {
		c.Vector.Milvus.Password = maskAPIKey(c.Vector.Milvus.Password)
	}
	return c
}
