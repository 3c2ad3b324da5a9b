package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and repair the search indexes",
}

var indexHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Compare index entries with stored pages and chunks",
	Args:  cobra.NoArgs,
	RunE:  runIndexHealth,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the keyword index from stored content",
	Long: `Clears the keyword index and re-populates it from stored pages and chunks.
Uploads and processing wait while the rebuild runs.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

var indexVectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Re-embed every processed document",
	Long:  `Recomputes embeddings for all chunks and replaces the vector index contents.`,
	Args:  cobra.NoArgs,
	RunE:  runIndexVectors,
}

func init() {
	indexCmd.AddCommand(indexHealthCmd, indexRebuildCmd, indexVectorsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexHealth(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	health, err := indexService.Health(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to check index health: %w", err)
	}
	return outputHealth(cmd, health)
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if !jsonOutput {
		cmd.Println("Rebuilding keyword index...")
	}
	health, err := indexService.Rebuild(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	return outputHealth(cmd, health)
}

func runIndexVectors(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	n, err := indexService.ReindexVectors(commandContext(cmd))
	if errors.Is(err, domain.ErrVectorIndexUnavailable) {
		return errors.New("no vector index configured: set [embedding] provider and [vector] backend")
	}
	if err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, map[string]int{"records": n})
	}
	cmd.Printf("Indexed %d vector records.\n", n)
	return nil
}

func outputHealth(cmd *cobra.Command, h *domain.IndexHealth) error {
	if jsonOutput {
		return printJSON(cmd, h)
	}
	st := stylesFor(cmd)
	cmd.Printf("           %8s %8s\n", "pages", "chunks")
	cmd.Printf("  stored   %8d %8d\n", h.Source.Pages, h.Source.Chunks)
	cmd.Printf("  indexed  %8d %8d\n", h.Indexed.Pages, h.Indexed.Chunks)
	cmd.Println()
	if h.Healthy {
		cmd.Println(st.Success.Render("Index is healthy."))
	} else {
		cmd.Println(st.Warning.Render("Index is out of sync. Run 'sercha-docs index rebuild' to repair."))
	}
	return nil
}
