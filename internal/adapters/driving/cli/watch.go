package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// defaultWatchCategory groups documents ingested by watch.
const defaultWatchCategory = "watched"

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest files from a folder as they change",
	Long: `Uploads and processes every matching file under dir, then keeps watching.
New and modified files are re-ingested after a quiet period; deleted files
are removed from the index. Hidden files and directories are ignored.

Documents are filed under --category and identified by their path relative
to dir, so restarting the watcher does not duplicate unchanged files.

Examples:
  sercha-docs watch ~/manuals --pattern '*.pdf'
  sercha-docs watch ./notes --pattern '*.{md,txt}' --category notes`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchPattern  string
	watchCategory string
	watchDebounce time.Duration
	watchOnce     bool
)

func init() {
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "", "glob matched against file names, e.g. '*.pdf'")
	watchCmd.Flags().StringVar(&watchCategory, "category", defaultWatchCategory, "category for ingested documents")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before a change is ingested")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "ingest the current files and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	w, err := filesystem.New(args[0], filesystem.WithPattern(watchPattern), filesystem.WithDebounce(watchDebounce))
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck

	ing, err := newFolderIngester(ctx, documentService, w.Root(), watchCategory)
	if err != nil {
		return err
	}
	ing.report = func(path string, doc *domain.Document, err error) {
		reportIngest(cmd, path, doc, err)
	}

	paths, err := w.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", w.Root(), err)
	}
	for _, p := range paths {
		ing.sync(ctx, p)
	}
	if watchOnce {
		return nil
	}

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())
	for change := range changes {
		ing.apply(ctx, change)
	}
	return nil
}

func reportIngest(cmd *cobra.Command, path string, doc *domain.Document, err error) {
	st := stylesFor(cmd)
	switch {
	case err != nil:
		cmd.Printf("%s  %s\n", st.Error.Render("failed"), path)
		cmd.Printf("  %s\n", st.Muted.Render(err.Error()))
	case doc == nil:
		cmd.Printf("%s  %s\n", st.Muted.Render("removed"), path)
	default:
		cmd.Printf("%s  %s  %s\n", st.status(doc.Status), path, st.Muted.Render(doc.ID))
		printDocumentError(cmd, st, doc)
	}
}

// folderIngester mirrors a directory into the document service. Documents
// are keyed by their slash-separated path relative to root.
type folderIngester struct {
	docs     driving.DocumentService
	root     string
	category string
	known    map[string]domain.Document
	report   func(path string, doc *domain.Document, err error)
}

func newFolderIngester(ctx context.Context, docs driving.DocumentService, root, category string) (*folderIngester, error) {
	existing, err := docs.List(ctx, domain.ListFilter{Category: category})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	known := make(map[string]domain.Document, len(existing))
	// Newest first: keep the most recent upload for each path.
	for _, d := range existing {
		if _, seen := known[d.OriginalFilename]; !seen {
			known[d.OriginalFilename] = d
		}
	}

	return &folderIngester{
		docs:     docs,
		root:     root,
		category: category,
		known:    known,
		report:   func(string, *domain.Document, error) {},
	}, nil
}

func (f *folderIngester) key(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func (f *folderIngester) apply(ctx context.Context, change filesystem.Change) {
	switch change.Type {
	case filesystem.ChangeDeleted:
		f.remove(ctx, change.Path)
	default:
		f.ingest(ctx, change.Path)
	}
}

// sync ingests path unless an unchanged copy is already stored.
func (f *folderIngester) sync(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		f.report(f.key(path), nil, err)
		return
	}
	if prev, ok := f.known[f.key(path)]; ok && prev.Size == info.Size() && prev.Status != domain.StatusError {
		logger.Debug("watch: %s unchanged", f.key(path))
		return
	}
	f.ingest(ctx, path)
}

// ingest uploads path, processes it and then deletes the previous
// document for the same path so search never loses the file.
func (f *folderIngester) ingest(ctx context.Context, path string) {
	key := f.key(path)

	data, err := os.ReadFile(path)
	if err != nil {
		f.report(key, nil, err)
		return
	}

	doc, err := f.docs.Upload(ctx, driving.UploadRequest{
		Filename: key,
		Category: f.category,
		Data:     data,
	})
	if err != nil {
		f.report(key, nil, err)
		return
	}

	processed, err := f.docs.Process(ctx, doc.ID)
	if _, ok := domain.AsProcessingError(err); err != nil && !ok {
		f.report(key, nil, err)
		return
	}
	if processed != nil {
		doc = processed
	}

	if prev, ok := f.known[key]; ok && prev.ID != doc.ID {
		if err := f.docs.Delete(ctx, prev.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("watch: removing previous version of %s: %v", key, err)
		}
	}
	f.known[key] = *doc
	f.report(key, doc, nil)
}

func (f *folderIngester) remove(ctx context.Context, path string) {
	key := f.key(path)
	prev, ok := f.known[key]
	if !ok {
		return
	}
	delete(f.known, key)
	if err := f.docs.Delete(ctx, prev.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		f.report(key, nil, err)
		return
	}
	f.report(key, nil, nil)
}
