package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search uploaded documents",
	Long: `Returns ranked excerpts with the file and page they came from.
Uses semantic (vector) search when an embedding provider is configured and
falls back to keyword search when it is unavailable or finds nothing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	query := strings.Join(args, " ")
	results, err := retrievalService.Retrieve(commandContext(cmd), query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		if results == nil {
			results = []domain.RetrievalResult{}
		}
		return printJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := stylesFor(cmd)
	cmd.Println(st.Title.Render("Results:"))
	cmd.Println()
	for i := range results {
		r := &results[i]
		// Format: [N] filename, page P (score, source)
		location := r.Filename
		if r.PageNumber != nil {
			location += fmt.Sprintf(", page %d", *r.PageNumber)
		}
		cmd.Printf("  [%d] %s %s\n", i+1, location,
			st.Muted.Render(fmt.Sprintf("(%.2f, %s)", r.Score, r.Source)))

		excerpt := r.Text
		if r.Snippet != "" {
			excerpt = r.Snippet
		}
		cmd.Printf("      %s\n", truncate(excerpt, 240))
		cmd.Printf("      %s\n", st.Muted.Render("id: "+r.DocumentID))
		cmd.Println()
	}
	return nil
}
