package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

const timeLayout = "2006-01-02 15:04:05"

var uploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload documents",
	Long: `Stores each file and creates its document record. Files are processed
immediately unless ingest.auto_process is false or --process=false is given.

Supported: PDF, plain text, Markdown, HTML, JSON, YAML, CSV, XML and source code.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var processCmd = &cobra.Command{
	Use:   "process [doc-id...]",
	Short: "Parse uploaded documents",
	Long: `Extracts text from the given documents and makes them searchable.
With --pending (or no arguments) every document that is uploaded or in
error is processed.`,
	RunE: runProcess,
}

var getCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var pagesCmd = &cobra.Command{
	Use:   "pages [doc-id]",
	Short: "Print extracted pages",
	Args:  cobra.ExactArgs(1),
	RunE:  runPages,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents",
	Long:  `Removes documents, their stored bytes and their search index entries.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var (
	uploadCategory    string
	uploadTags        []string
	uploadContentType string
	uploadProcess     bool
	processPending    bool
	listCategory      string
	listStatus        []string
	listLimit         int
	pagesChunks       bool
)

func init() {
	uploadCmd.Flags().StringVar(&uploadCategory, "category", "", "category label")
	uploadCmd.Flags().StringSliceVarP(&uploadTags, "tag", "t", nil, "tag (repeatable)")
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "declared MIME type (default: detected)")
	uploadCmd.Flags().BoolVar(&uploadProcess, "process", true, "process after upload")

	processCmd.Flags().BoolVar(&processPending, "pending", false, "process every uploaded or failed document")

	listCmd.Flags().StringVar(&listCategory, "category", "", "filter by category")
	listCmd.Flags().StringSliceVar(&listStatus, "status", nil, "filter by status (uploaded, processed, error)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of documents")

	pagesCmd.Flags().BoolVar(&pagesChunks, "chunks", false, "print chunks instead of pages")

	rootCmd.AddCommand(uploadCmd, processCmd, getCmd, listCmd, pagesCmd, deleteCmd)
}

// autoProcess resolves the --process flag against configuration.
func autoProcess(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("process") || appConfig == nil {
		return uploadProcess
	}
	return appConfig.Ingest.ShouldAutoProcess()
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	st := stylesFor(cmd)
	process := autoProcess(cmd)

	var docs []*domain.Document
	var failed int
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc, err := documentService.Upload(ctx, driving.UploadRequest{
			Filename:    filepath.Base(path),
			ContentType: uploadContentType,
			Category:    uploadCategory,
			Tags:        uploadTags,
			Data:        data,
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", path, err)
		}

		if process {
			processed, err := documentService.Process(ctx, doc.ID)
			if _, ok := domain.AsProcessingError(err); err != nil && !ok {
				return fmt.Errorf("failed to process %s: %w", path, err)
			}
			if processed != nil {
				doc = processed
			}
			if err != nil {
				failed++
			}
		}
		docs = append(docs, doc)

		if !jsonOutput {
			cmd.Printf("%s  %s  %s\n", doc.ID, st.status(doc.Status), doc.OriginalFilename)
			printDocumentError(cmd, st, doc)
		}
	}

	if jsonOutput {
		return printJSON(cmd, toDocumentViews(docs))
	}
	if failed > 0 {
		cmd.Printf("\n%d of %d documents failed to process.\n", failed, len(docs))
	}
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	st := stylesFor(cmd)

	if processPending || len(args) == 0 {
		outcomes, err := documentService.ProcessPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to process pending documents: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd, toOutcomeViews(outcomes))
		}
		if len(outcomes) == 0 {
			cmd.Println("No pending documents.")
			return nil
		}
		for _, o := range outcomes {
			line := fmt.Sprintf("%s  %s", o.DocumentID, st.status(o.Status))
			if o.Err != nil {
				line += "  " + st.Muted.Render(o.Err.Error())
			}
			cmd.Println(line)
		}
		return nil
	}

	var docs []*domain.Document
	for _, id := range args {
		doc, err := documentService.Process(ctx, id)
		if _, ok := domain.AsProcessingError(err); err != nil && (!ok || doc == nil) {
			return fmt.Errorf("failed to process document %s: %w", id, err)
		}
		docs = append(docs, doc)
		if !jsonOutput {
			cmd.Printf("%s  %s  %s\n", doc.ID, st.status(doc.Status), doc.OriginalFilename)
			printDocumentError(cmd, st, doc)
		}
	}
	if jsonOutput {
		return printJSON(cmd, toDocumentViews(docs))
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	doc, err := documentService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, toDocumentView(doc))
	}

	st := stylesFor(cmd)
	cmd.Println(st.Title.Render("Document: " + doc.ID))
	cmd.Println()
	cmd.Printf("  Filename:     %s\n", doc.OriginalFilename)
	cmd.Printf("  Stored as:    %s\n", doc.BlobKey)
	cmd.Printf("  Content type: %s\n", doc.ContentType)
	cmd.Printf("  Size:         %d bytes\n", doc.Size)
	cmd.Printf("  Status:       %s\n", st.status(doc.Status))
	if doc.Category != "" {
		cmd.Printf("  Category:     %s\n", doc.Category)
	}
	if len(doc.Tags) > 0 {
		cmd.Printf("  Tags:         %s\n", strings.Join(doc.Tags, ", "))
	}
	cmd.Printf("  Uploaded:     %s\n", doc.UploadedAt.Format(timeLayout))
	if doc.ParsedAt != nil {
		cmd.Printf("  Parsed:       %s\n", doc.ParsedAt.Format(timeLayout))
	}
	if doc.Status == domain.StatusProcessed {
		cmd.Printf("  Format:       %s (%s)\n", doc.Format, doc.SubFormat)
		cmd.Printf("  Language:     %s\n", doc.Language)
		cmd.Printf("  Words:        %d\n", doc.WordCount)
		cmd.Printf("  Characters:   %d\n", doc.CharacterCount)
		cmd.Printf("  Parser:       %s\n", doc.ParserVersion)
	}
	printDocumentError(cmd, st, doc)

	if doc.Status != domain.StatusError && len(doc.ParsedMetadata) > 0 {
		cmd.Println("\n  Metadata:")
		for _, k := range sortedKeys(doc.ParsedMetadata) {
			cmd.Printf("    %s: %v\n", k, doc.ParsedMetadata[k])
		}
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	filter := domain.ListFilter{Category: listCategory, Limit: listLimit}
	for _, s := range listStatus {
		status := domain.DocumentStatus(strings.ToLower(strings.TrimSpace(s)))
		if !status.IsValid() {
			return fmt.Errorf("unknown status %q", s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	docs, err := documentService.List(commandContext(cmd), filter)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if jsonOutput {
		views := make([]documentView, len(docs))
		for i := range docs {
			views[i] = toDocumentView(&docs[i])
		}
		return printJSON(cmd, views)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	st := stylesFor(cmd)
	for i := range docs {
		d := &docs[i]
		cmd.Printf("%s  %-9s  %s", d.ID, st.status(d.Status), d.OriginalFilename)
		if d.Category != "" {
			cmd.Print(st.Muted.Render("  [" + d.Category + "]"))
		}
		cmd.Println()
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runPages(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	st := stylesFor(cmd)

	if pagesChunks {
		chunks, err := documentService.Chunks(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get chunks: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd, toChunkViews(chunks))
		}
		for _, c := range chunks {
			label := fmt.Sprintf("--- chunk %d", c.Index)
			if c.PageNumber != nil {
				label += fmt.Sprintf(" (page %d)", *c.PageNumber)
			}
			cmd.Println(st.Title.Render(label + " ---"))
			cmd.Println(c.Text)
			cmd.Println()
		}
		return nil
	}

	pages, err := documentService.Pages(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get pages: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, toPageViews(pages))
	}
	for _, p := range pages {
		cmd.Println(st.Title.Render(fmt.Sprintf("--- page %d ---", p.PageNumber)))
		cmd.Println(p.Content)
		cmd.Println()
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	for _, id := range args {
		if err := documentService.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", id, err)
		}
		if !jsonOutput {
			cmd.Printf("Deleted %s\n", id)
		}
	}
	if jsonOutput {
		return printJSON(cmd, map[string]any{"deleted": args})
	}
	return nil
}

func printDocumentError(cmd *cobra.Command, st styles, doc *domain.Document) {
	code, msg, ok := doc.ErrorDetail()
	if !ok {
		return
	}
	cmd.Printf("  %s %s\n", st.Error.Render(string(code)), msg)
}
